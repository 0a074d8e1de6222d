package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"luxscaler/internal/infra"
	"luxscaler/internal/models/db_models"
	"luxscaler/pkg/utils"
)

// CreditGrant is a checkout event resolved to an account and a token amount.
type CreditGrant struct {
	Provider   string
	EventID    string
	EventType  string
	AccountID  uuid.UUID
	Tokens     int64
	CustomerID string
	Payload    []byte
}

// SubscriptionChange is a subscription event; the account is resolved from the
// subscription id, then the customer id, then AccountID.
type SubscriptionChange struct {
	Provider       string
	EventID        string
	EventType      string
	SubscriptionID string
	CustomerID     string
	AccountID      uuid.UUID
	Status         db_models.SubscriptionStatus
	OccurredAt     int64
	Payload        []byte
}

type ApplyResult struct {
	AccountID uuid.UUID
	// Duplicate means the provider event id was already in the ledger.
	Duplicate bool
	// Stale means a newer subscription event was already applied.
	Stale bool
}

type EntitlementRepository interface {
	// EventRecorded reports whether the provider event id is already in the
	// ledger. ApplyCredit still enforces uniqueness on its own.
	EventRecorded(ctx context.Context, provider, eventID string) (bool, error)
	ApplyCredit(ctx context.Context, grant CreditGrant) (ApplyResult, error)
	ApplySubscriptionStatus(ctx context.Context, change SubscriptionChange) (ApplyResult, error)
}

type entitlementRepository struct {
	db  *infra.PrivilegedDB
	now func() time.Time
}

func NewEntitlementRepository(db *infra.PrivilegedDB) EntitlementRepository {
	return &entitlementRepository{db: db, now: time.Now}
}

var errDuplicateEvent = errors.New("duplicate provider event")

func (r *entitlementRepository) EventRecorded(ctx context.Context, provider, eventID string) (bool, error) {
	var n int64
	err := r.db.Conn(ctx).
		Model(&db_models.WebhookEvent{}).
		Where("provider = ? AND provider_event_id = ?", provider, eventID).
		Count(&n).Error
	return n > 0, err
}

func (r *entitlementRepository) ApplyCredit(ctx context.Context, grant CreditGrant) (ApplyResult, error) {
	result := ApplyResult{AccountID: grant.AccountID}
	now := r.now().Unix()

	err := r.db.Conn(ctx).Transaction(func(tx *gorm.DB) error {
		if err := recordEvent(tx, now, grant.Provider, grant.EventID, grant.EventType, grant.AccountID, grant.Tokens, grant.Payload); err != nil {
			return err
		}

		res := tx.Exec(`UPDATE profiles
			SET tokens = tokens + ?,
				stripe_customer_id = COALESCE(NULLIF(stripe_customer_id, ''), ?),
				updated_at = ?
			WHERE id = ? AND deleted_at IS NULL`,
			grant.Tokens, grant.CustomerID, now, grant.AccountID)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("%w: %s", utils.ErrAccountNotFound, grant.AccountID)
		}

		if grant.Tokens == 0 {
			return nil
		}
		return insertTokenTransaction(tx, now, grant.AccountID, grant.Tokens, db_models.TokenReasonPurchase, grant.EventID)
	})

	if errors.Is(err, errDuplicateEvent) {
		result.Duplicate = true
		return result, nil
	}
	return result, err
}

func (r *entitlementRepository) ApplySubscriptionStatus(ctx context.Context, change SubscriptionChange) (ApplyResult, error) {
	var result ApplyResult
	now := r.now().Unix()

	err := r.db.Conn(ctx).Transaction(func(tx *gorm.DB) error {
		accountID, err := resolveSubscriptionAccount(tx, change)
		if err != nil {
			return err
		}
		result.AccountID = accountID

		if err := recordEvent(tx, now, change.Provider, change.EventID, change.EventType, accountID, 0, change.Payload); err != nil {
			return err
		}

		res := tx.Exec(`UPDATE profiles
			SET subscription_status = ?,
				stripe_subscription_id = ?,
				stripe_customer_id = COALESCE(NULLIF(stripe_customer_id, ''), ?),
				subscription_event_at = ?,
				updated_at = ?
			WHERE id = ? AND subscription_event_at <= ?`,
			change.Status, change.SubscriptionID, change.CustomerID,
			change.OccurredAt, now, accountID, change.OccurredAt)
		if res.Error != nil {
			return res.Error
		}
		result.Stale = res.RowsAffected == 0
		return nil
	})

	if errors.Is(err, errDuplicateEvent) {
		result.Duplicate = true
		return result, nil
	}
	return result, err
}

func resolveSubscriptionAccount(tx *gorm.DB, change SubscriptionChange) (uuid.UUID, error) {
	lookups := []struct {
		column string
		value  interface{}
		ok     bool
	}{
		{"stripe_subscription_id", change.SubscriptionID, change.SubscriptionID != ""},
		{"stripe_customer_id", change.CustomerID, change.CustomerID != ""},
		{"id", change.AccountID, change.AccountID != uuid.Nil},
	}

	for _, l := range lookups {
		if !l.ok {
			continue
		}
		var ids []uuid.UUID
		err := tx.Model(&db_models.Profile{}).
			Where(l.column+" = ?", l.value).
			Limit(1).
			Pluck("id", &ids).Error
		if err != nil {
			return uuid.Nil, err
		}
		if len(ids) > 0 {
			return ids[0], nil
		}
	}

	return uuid.Nil, fmt.Errorf("%w: subscription %s customer %s", utils.ErrUnresolvedBuyer, change.SubscriptionID, change.CustomerID)
}

// recordEvent claims the provider event id; a conflict aborts the enclosing
// transaction with errDuplicateEvent.
func recordEvent(tx *gorm.DB, now int64, provider, eventID, eventType string, accountID uuid.UUID, tokens int64, payload []byte) error {
	if len(payload) == 0 {
		payload = []byte("{}")
	}
	res := tx.Exec(`INSERT INTO webhook_events
			(id, created_at, updated_at, provider, provider_event_id, event_type, account_id, tokens_granted, payload)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (provider, provider_event_id) DO NOTHING`,
		uuid.New(), now, now, provider, eventID, eventType, accountID, tokens, datatypes.JSON(payload))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return errDuplicateEvent
	}
	return nil
}

func insertTokenTransaction(tx *gorm.DB, now int64, accountID uuid.UUID, delta int64, reason db_models.TokenReason, reference string) error {
	return tx.Exec(`INSERT INTO token_transactions
			(id, created_at, updated_at, account_id, delta, reason, reference)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		uuid.New(), now, now, accountID, delta, reason, reference).Error
}
