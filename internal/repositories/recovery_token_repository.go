package repositories

import (
	"context"
	"time"

	"github.com/google/uuid"

	"luxscaler/internal/infra"
	"luxscaler/internal/models/db_models"
	"luxscaler/pkg/utils"
)

type RecoveryTokenRepository interface {
	Create(ctx context.Context, token *db_models.RecoveryToken) error
	// Consume marks an unexpired, unused token as used and returns its account.
	Consume(ctx context.Context, tokenHash string) (uuid.UUID, error)
}

type recoveryTokenRepository struct {
	db  *infra.PrivilegedDB
	now func() time.Time
}

func NewRecoveryTokenRepository(db *infra.PrivilegedDB) RecoveryTokenRepository {
	return &recoveryTokenRepository{db: db, now: time.Now}
}

func (r *recoveryTokenRepository) Create(ctx context.Context, token *db_models.RecoveryToken) error {
	return r.db.Conn(ctx).Create(token).Error
}

func (r *recoveryTokenRepository) Consume(ctx context.Context, tokenHash string) (uuid.UUID, error) {
	now := r.now().Unix()
	var ids []uuid.UUID
	err := r.db.Conn(ctx).Raw(`UPDATE recovery_tokens
		SET used_at = ?, updated_at = ?
		WHERE token_hash = ? AND used_at IS NULL AND expires_at > ? AND deleted_at IS NULL
		RETURNING account_id`,
		now, now, tokenHash, now).Scan(&ids).Error
	if err != nil {
		return uuid.Nil, err
	}
	if len(ids) == 0 {
		return uuid.Nil, utils.ErrInvalidRecoveryToken
	}
	return ids[0], nil
}
