package response_models

import (
	"github.com/google/uuid"

	"luxscaler/internal/models/db_models"
)

type AccountLoginResponse struct {
	Token     string `json:"token"`
	ExpiresIn int64  `json:"expires_in"`
	IsAdmin   bool   `json:"is_admin"`
}

type AccountResponse struct {
	ID                 uuid.UUID `json:"id"`
	Name               string    `json:"name"`
	Email              string    `json:"email"`
	Tokens             int64     `json:"tokens"`
	IsAdmin            bool      `json:"is_admin"`
	SubscriptionStatus string    `json:"subscription_status,omitempty"`
	EmailConfirmed     bool      `json:"email_confirmed"`
}

func NewAccountResponse(p *db_models.Profile) AccountResponse {
	return AccountResponse{
		ID:                 p.ID,
		Name:               p.Name,
		Email:              p.Email,
		Tokens:             p.Tokens,
		IsAdmin:            p.IsAdmin,
		SubscriptionStatus: string(p.SubscriptionStatus),
		EmailConfirmed:     p.HasConfirmedEmail(),
	}
}

type OnboardResponse struct {
	Success bool      `json:"success"`
	UserID  uuid.UUID `json:"userId"`
	Message string    `json:"message"`
}

type WaitlistJoinResponse struct {
	Email   string `json:"email"`
	Created bool   `json:"created"`
}
