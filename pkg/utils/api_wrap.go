package utils

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

type APIResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Error   string      `json:"error,omitempty"`
	TraceID string      `json:"trace_id,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

func RespondSuccess(c *gin.Context, data interface{}, message string) {
	c.JSON(http.StatusOK, APIResponse{
		Success: true,
		Message: message,
		TraceID: c.GetString("trace_id"),
		Data:    data,
	})
}

func RespondError(c *gin.Context, code int, message string) {
	c.JSON(code, APIResponse{
		Success: false,
		Error:   message,
		TraceID: c.GetString("trace_id"),
	})
}

// StatusFor maps a service error to the HTTP status it should surface as.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, ErrUnauthorized), errors.Is(err, ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrMissingSignature),
		errors.Is(err, ErrInvalidSignature),
		errors.Is(err, ErrUnknownAction),
		errors.Is(err, ErrInvalidPayload),
		errors.Is(err, ErrInvalidNotificationType),
		errors.Is(err, ErrUnresolvedRecipient),
		errors.Is(err, ErrWaitlistNotPending),
		errors.Is(err, ErrInvalidRecoveryToken):
		return http.StatusBadRequest
	case errors.Is(err, ErrAccountNotFound),
		errors.Is(err, ErrWaitlistEntryNotFound),
		errors.Is(err, ErrGenerationNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInsufficientTokens):
		return http.StatusPaymentRequired
	default:
		return http.StatusInternalServerError
	}
}

// HandleServiceError writes err with its mapped status. Upstream failures keep
// their message; raw database errors do not leak.
func HandleServiceError(c *gin.Context, err error) {
	code := StatusFor(err)
	message := err.Error()
	if errors.Is(err, ErrDatabaseError) {
		message = "Internal server error"
	}
	if code >= http.StatusInternalServerError {
		_ = c.Error(err)
	}
	RespondError(c, code, message)
}
