package repositories

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"luxscaler/internal/models/db_models"
)

type GenerationRepository interface {
	Create(ctx context.Context, gen *db_models.Generation) error
	Save(ctx context.Context, gen *db_models.Generation) error
	ListByAccount(ctx context.Context, accountID uuid.UUID, page, pageSize int) ([]db_models.Generation, error)
}

type generationRepository struct {
	db *gorm.DB
}

func NewGenerationRepository(db *gorm.DB) GenerationRepository {
	return &generationRepository{db: db}
}

func (r *generationRepository) Create(ctx context.Context, gen *db_models.Generation) error {
	return r.db.WithContext(ctx).Omit("Account").Create(gen).Error
}

func (r *generationRepository) Save(ctx context.Context, gen *db_models.Generation) error {
	return r.db.WithContext(ctx).Omit("Account").Save(gen).Error
}

func (r *generationRepository) ListByAccount(ctx context.Context, accountID uuid.UUID, page, pageSize int) ([]db_models.Generation, error) {
	var gens []db_models.Generation
	err := r.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		Limit(pageSize).
		Offset((page - 1) * pageSize).
		Order("created_at DESC").
		Find(&gens).Error
	return gens, err
}
