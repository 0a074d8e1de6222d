package services

import (
	"context"
	"fmt"

	"luxscaler/internal/models/response_models"
	"luxscaler/internal/repositories"
	"luxscaler/pkg/utils"
)

type CreditPackServiceInterface interface {
	ListActive(ctx context.Context) ([]response_models.CreditPackResponse, error)
}

func NewCreditPackService(packRepo repositories.CreditPackRepository) CreditPackServiceInterface {
	return &CreditPackService{
		packRepo: packRepo,
	}
}

type CreditPackService struct {
	packRepo repositories.CreditPackRepository
}

func (p *CreditPackService) ListActive(ctx context.Context) ([]response_models.CreditPackResponse, error) {
	packs, err := p.packRepo.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", utils.ErrDatabaseError, err)
	}

	result := make([]response_models.CreditPackResponse, 0, len(packs))
	for _, pack := range packs {
		result = append(result, response_models.NewCreditPackResponse(pack))
	}
	return result, nil
}
