package repositories

import (
	"context"

	"gorm.io/gorm"

	"luxscaler/internal/models/db_models"
)

type CreditPackRepository interface {
	ListActive(ctx context.Context) ([]db_models.CreditPack, error)
	// FindByPriceIDs returns active packs keyed by provider price id.
	FindByPriceIDs(ctx context.Context, priceIDs []string) (map[string]db_models.CreditPack, error)
}

type creditPackRepository struct {
	db *gorm.DB
}

func NewCreditPackRepository(db *gorm.DB) CreditPackRepository {
	return &creditPackRepository{db: db}
}

func (r *creditPackRepository) ListActive(ctx context.Context) ([]db_models.CreditPack, error) {
	var packs []db_models.CreditPack
	err := r.db.WithContext(ctx).
		Where("is_active = TRUE").
		Order("tokens ASC").
		Find(&packs).Error
	return packs, err
}

func (r *creditPackRepository) FindByPriceIDs(ctx context.Context, priceIDs []string) (map[string]db_models.CreditPack, error) {
	out := make(map[string]db_models.CreditPack, len(priceIDs))
	if len(priceIDs) == 0 {
		return out, nil
	}

	var packs []db_models.CreditPack
	err := r.db.WithContext(ctx).
		Where("stripe_price_id IN ? AND is_active = TRUE", priceIDs).
		Find(&packs).Error
	if err != nil {
		return nil, err
	}
	for _, p := range packs {
		out[p.StripePriceID] = p
	}
	return out, nil
}
