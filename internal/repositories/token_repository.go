package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"luxscaler/internal/infra"
	"luxscaler/internal/models/db_models"
	"luxscaler/pkg/utils"
)

// TokenMutation describes one audited balance change.
type TokenMutation struct {
	AccountID uuid.UUID
	Amount    int64
	Reason    db_models.TokenReason
	Reference string
}

// TokenRepository owns every server-side balance write outside webhooks.
// Each call is a single conditional statement plus its audit row.
type TokenRepository interface {
	// SetBalance overwrites the balance and returns the previous one.
	SetBalance(ctx context.Context, m TokenMutation) (int64, error)
	// Debit fails with utils.ErrInsufficientTokens instead of going negative.
	Debit(ctx context.Context, m TokenMutation) (int64, error)
	Credit(ctx context.Context, m TokenMutation) (int64, error)
}

type tokenRepository struct {
	db  *infra.PrivilegedDB
	now func() time.Time
}

func NewTokenRepository(db *infra.PrivilegedDB) TokenRepository {
	return &tokenRepository{db: db, now: time.Now}
}

func (r *tokenRepository) SetBalance(ctx context.Context, m TokenMutation) (int64, error) {
	if m.Amount < 0 {
		return 0, fmt.Errorf("%w: negative balance", utils.ErrInvalidPayload)
	}
	now := r.now().Unix()
	var previous int64

	err := r.db.Conn(ctx).Transaction(func(tx *gorm.DB) error {
		var profile db_models.Profile
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Select("id", "tokens").
			First(&profile, "id = ?", m.AccountID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: %s", utils.ErrAccountNotFound, m.AccountID)
		}
		if err != nil {
			return err
		}
		previous = profile.Tokens

		if err := tx.Exec(`UPDATE profiles SET tokens = ?, updated_at = ? WHERE id = ?`,
			m.Amount, now, m.AccountID).Error; err != nil {
			return err
		}

		if delta := m.Amount - previous; delta != 0 {
			return insertTokenTransaction(tx, now, m.AccountID, delta, m.Reason, m.Reference)
		}
		return nil
	})

	return previous, err
}

func (r *tokenRepository) Debit(ctx context.Context, m TokenMutation) (int64, error) {
	if m.Amount <= 0 {
		return 0, fmt.Errorf("%w: debit must be positive", utils.ErrInvalidPayload)
	}
	now := r.now().Unix()
	var balance int64

	err := r.db.Conn(ctx).Transaction(func(tx *gorm.DB) error {
		var balances []int64
		err := tx.Raw(`UPDATE profiles
			SET tokens = tokens - ?, updated_at = ?
			WHERE id = ? AND deleted_at IS NULL AND tokens >= ?
			RETURNING tokens`,
			m.Amount, now, m.AccountID, m.Amount).Scan(&balances).Error
		if err != nil {
			return err
		}
		if len(balances) == 0 {
			return r.debitFailure(tx, m.AccountID)
		}
		balance = balances[0]
		return insertTokenTransaction(tx, now, m.AccountID, -m.Amount, m.Reason, m.Reference)
	})

	return balance, err
}

func (r *tokenRepository) Credit(ctx context.Context, m TokenMutation) (int64, error) {
	if m.Amount <= 0 {
		return 0, fmt.Errorf("%w: credit must be positive", utils.ErrInvalidPayload)
	}
	now := r.now().Unix()
	var balance int64

	err := r.db.Conn(ctx).Transaction(func(tx *gorm.DB) error {
		var balances []int64
		err := tx.Raw(`UPDATE profiles
			SET tokens = tokens + ?, updated_at = ?
			WHERE id = ? AND deleted_at IS NULL
			RETURNING tokens`,
			m.Amount, now, m.AccountID).Scan(&balances).Error
		if err != nil {
			return err
		}
		if len(balances) == 0 {
			return fmt.Errorf("%w: %s", utils.ErrAccountNotFound, m.AccountID)
		}
		balance = balances[0]
		return insertTokenTransaction(tx, now, m.AccountID, m.Amount, m.Reason, m.Reference)
	})

	return balance, err
}

func (r *tokenRepository) debitFailure(tx *gorm.DB, id uuid.UUID) error {
	var n int64
	if err := tx.Model(&db_models.Profile{}).Where("id = ?", id).Count(&n).Error; err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", utils.ErrAccountNotFound, id)
	}
	return utils.ErrInsufficientTokens
}
