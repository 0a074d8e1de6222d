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

type WaitlistRepository interface {
	// Join is idempotent on email; created reports whether a row was inserted.
	Join(ctx context.Context, email, name string) (created bool, err error)
	FindById(ctx context.Context, id uuid.UUID) (*db_models.WaitlistEntry, error)
	FindByEmail(ctx context.Context, email string) (*db_models.WaitlistEntry, error)
	// MarkApproved moves a pending entry to approved exactly once.
	MarkApproved(ctx context.Context, id uuid.UUID) error
}

type waitlistRepository struct {
	db  *infra.PrivilegedDB
	now func() time.Time
}

func NewWaitlistRepository(db *infra.PrivilegedDB) WaitlistRepository {
	return &waitlistRepository{db: db, now: time.Now}
}

func (r *waitlistRepository) Join(ctx context.Context, email, name string) (bool, error) {
	entry := &db_models.WaitlistEntry{
		Email:  NormalizeEmail(email),
		Name:   name,
		Status: db_models.WaitlistPending,
	}
	res := r.db.Conn(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "email"}}, DoNothing: true}).
		Create(entry)
	return res.RowsAffected > 0, res.Error
}

func (r *waitlistRepository) FindById(ctx context.Context, id uuid.UUID) (*db_models.WaitlistEntry, error) {
	return r.find(ctx, "id = ?", id)
}

func (r *waitlistRepository) FindByEmail(ctx context.Context, email string) (*db_models.WaitlistEntry, error) {
	return r.find(ctx, "email = ?", NormalizeEmail(email))
}

func (r *waitlistRepository) find(ctx context.Context, query string, args ...interface{}) (*db_models.WaitlistEntry, error) {
	var entry db_models.WaitlistEntry
	err := r.db.Conn(ctx).Where(query, args...).First(&entry).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &entry, nil
}

func (r *waitlistRepository) MarkApproved(ctx context.Context, id uuid.UUID) error {
	now := r.now().Unix()
	res := r.db.Conn(ctx).Exec(`UPDATE waitlist
		SET status = ?, approved_at = ?, updated_at = ?
		WHERE id = ? AND status = ?`,
		db_models.WaitlistApproved, now, now, id, db_models.WaitlistPending)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: %s", utils.ErrWaitlistNotPending, id)
	}
	return nil
}
