package response_models

import (
	"github.com/google/uuid"

	"luxscaler/internal/models/db_models"
)

type GenerationResponse struct {
	ID            uuid.UUID `json:"id"`
	SessionID     string    `json:"session_id,omitempty"`
	Status        string    `json:"status"`
	Notes         string    `json:"notes,omitempty"`
	ImageBase64   string    `json:"image_base64,omitempty"`
	StoragePaths  []string  `json:"storage_paths"`
	TokensCharged int64     `json:"tokens_charged"`
	Balance       int64     `json:"balance"`
	CreatedAt     int64     `json:"created_at"`
}

func NewGenerationResponse(g *db_models.Generation) GenerationResponse {
	return GenerationResponse{
		ID:            g.ID,
		SessionID:     g.SessionID,
		Status:        string(g.Status),
		Notes:         g.Notes,
		StoragePaths:  g.StoragePaths,
		TokensCharged: g.TokensCharged,
		CreatedAt:     g.CreatedAt,
	}
}

type CreditPackResponse struct {
	ID            uuid.UUID `json:"id"`
	StripePriceID string    `json:"stripe_price_id"`
	Name          string    `json:"name"`
	Description   *string   `json:"description,omitempty"`
	Tokens        int64     `json:"tokens"`
	PriceMinor    int64     `json:"price_minor"`
	Currency      string    `json:"currency"`
}

func NewCreditPackResponse(p db_models.CreditPack) CreditPackResponse {
	return CreditPackResponse{
		ID:            p.ID,
		StripePriceID: p.StripePriceID,
		Name:          p.Name,
		Description:   p.Description,
		Tokens:        p.Tokens,
		PriceMinor:    p.PriceMinor,
		Currency:      p.Currency,
	}
}
