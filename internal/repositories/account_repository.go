package repositories

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"luxscaler/internal/infra"
	"luxscaler/internal/models/db_models"
	"luxscaler/pkg/utils"
)

// AccountRepository is the read path used by request-scoped handlers. It never
// writes balances; see TokenRepository and EntitlementRepository for that.
type AccountRepository interface {
	FindById(ctx context.Context, id uuid.UUID) (*db_models.Profile, error)
	FindByEmail(ctx context.Context, email string) (*db_models.Profile, error)
	UpdatePasswordHash(ctx context.Context, id uuid.UUID, hash string) error
}

// AccountDirectory reads any account through the privileged handle. Server-side
// flows use it to address users other than the caller.
type AccountDirectory interface {
	FindById(ctx context.Context, id uuid.UUID) (*db_models.Profile, error)
	FindByEmail(ctx context.Context, email string) (*db_models.Profile, error)
}

type accountRepository struct {
	db *gorm.DB
}

func NewAccountRepository(db *gorm.DB) AccountRepository {
	return &accountRepository{
		db: db,
	}
}

func NewAccountDirectory(db *infra.PrivilegedDB) AccountDirectory {
	return &accountRepository{
		db: db.Conn(context.Background()),
	}
}

func (a *accountRepository) FindByEmail(ctx context.Context, email string) (*db_models.Profile, error) {
	return findProfile(a.db.WithContext(ctx), "email = ?", NormalizeEmail(email))
}

func (a *accountRepository) FindById(ctx context.Context, id uuid.UUID) (*db_models.Profile, error) {
	return findProfile(a.db.WithContext(ctx), "id = ?", id)
}

func (a *accountRepository) UpdatePasswordHash(ctx context.Context, id uuid.UUID, hash string) error {
	res := a.db.WithContext(ctx).
		Model(db_models.ProfileRef(id)).
		Update("password_hash", hash)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: %s", utils.ErrAccountNotFound, id)
	}
	return nil
}

func findProfile(db *gorm.DB, query string, args ...interface{}) (*db_models.Profile, error) {
	var profile db_models.Profile
	err := db.Where(query, args...).First(&profile).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	return &profile, nil
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
