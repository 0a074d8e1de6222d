package repositories

import (
	"context"
	"time"

	"gorm.io/gorm/clause"

	"luxscaler/internal/infra"
	"luxscaler/internal/models/db_models"
)

// ProvisioningRepository creates accounts on behalf of an administrator.
type ProvisioningRepository interface {
	FindByEmail(ctx context.Context, email string) (*db_models.Profile, error)
	// CreateConfirmed inserts a profile with a confirmed email. If another
	// request created the same email first, that profile is returned with
	// created=false.
	CreateConfirmed(ctx context.Context, email, name string) (profile *db_models.Profile, created bool, err error)
}

type provisioningRepository struct {
	db  *infra.PrivilegedDB
	now func() time.Time
}

func NewProvisioningRepository(db *infra.PrivilegedDB) ProvisioningRepository {
	return &provisioningRepository{db: db, now: time.Now}
}

func (r *provisioningRepository) FindByEmail(ctx context.Context, email string) (*db_models.Profile, error) {
	return findProfile(r.db.Conn(ctx), "email = ?", NormalizeEmail(email))
}

func (r *provisioningRepository) CreateConfirmed(ctx context.Context, email, name string) (*db_models.Profile, bool, error) {
	confirmedAt := r.now().Unix()
	profile := &db_models.Profile{
		Name:             name,
		Email:            NormalizeEmail(email),
		EmailConfirmedAt: &confirmedAt,
	}

	res := r.db.Conn(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "email"}}, DoNothing: true}).
		Create(profile)
	if res.Error != nil {
		return nil, false, res.Error
	}
	if res.RowsAffected == 0 {
		existing, err := r.FindByEmail(ctx, email)
		return existing, false, err
	}
	return profile, true, nil
}
