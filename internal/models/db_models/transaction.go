package db_models

import (
	"github.com/google/uuid"
)

type TokenReason string

const (
	TokenReasonPurchase   TokenReason = "purchase"
	TokenReasonAdminGrant TokenReason = "admin_grant"
	TokenReasonGeneration TokenReason = "generation"
	TokenReasonRefund     TokenReason = "generation_refund"
)

// TokenTransaction is the audit row written next to every balance mutation.
type TokenTransaction struct {
	BaseModel
	AccountID uuid.UUID   `gorm:"type:uuid;index"`
	Delta     int64       `gorm:"not null"`
	Reason    TokenReason `gorm:"size:32;index"`
	// Reference is the provider event id, generation id or admin id.
	Reference string `gorm:"index"`
}
