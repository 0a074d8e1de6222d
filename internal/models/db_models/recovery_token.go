package db_models

import "github.com/google/uuid"

// RecoveryToken backs one-time account recovery links. Only the hash is stored.
type RecoveryToken struct {
	BaseModel
	AccountID uuid.UUID `gorm:"type:uuid;index"`
	TokenHash string    `gorm:"uniqueIndex"`
	Purpose   string    `gorm:"size:32"`
	ExpiresAt int64     `gorm:"not null"`
	UsedAt    *int64
}
