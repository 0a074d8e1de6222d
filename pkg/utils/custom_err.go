package utils

import "errors"

var (
	ErrUnauthorized            = errors.New("unauthorized")
	ErrForbidden               = errors.New("forbidden")
	ErrInvalidCredentials      = errors.New("invalid credentials")
	ErrMissingSignature        = errors.New("missing signature")
	ErrInvalidSignature        = errors.New("invalid signature")
	ErrUnresolvedBuyer         = errors.New("unresolved buyer")
	ErrUnresolvedRecipient     = errors.New("unresolved recipient")
	ErrInvalidNotificationType = errors.New("invalid notification type")
	ErrUnknownAction           = errors.New("unknown action")
	ErrInvalidPayload          = errors.New("invalid payload")
	ErrAccountNotFound         = errors.New("account not found")
	ErrInsufficientTokens      = errors.New("insufficient tokens")
	ErrWaitlistEntryNotFound   = errors.New("waitlist entry not found")
	ErrWaitlistNotPending      = errors.New("waitlist entry is not pending")
	ErrGenerationNotFound      = errors.New("generation not found")
	ErrInvalidRecoveryToken    = errors.New("invalid or expired recovery token")
	ErrDatabaseError           = errors.New("database error")
)
