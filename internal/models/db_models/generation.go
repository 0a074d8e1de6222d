package db_models

import (
	"github.com/google/uuid"
	"github.com/lib/pq"
)

type GenerationStatus string

const (
	GenerationPending   GenerationStatus = "pending"
	GenerationSucceeded GenerationStatus = "succeeded"
	GenerationFailed    GenerationStatus = "failed"
)

// Generation is one enhancement request relayed to the AI provider.
type Generation struct {
	BaseModel
	AccountID uuid.UUID        `gorm:"type:uuid;index" json:"account_id"`
	SessionID string           `gorm:"index" json:"session_id"`
	Status    GenerationStatus `gorm:"size:16;index" json:"status"`
	Provider  string           `json:"provider"`
	Model     string           `json:"model"`
	Prompt    string           `json:"prompt"`
	Notes     string           `json:"notes,omitempty"`

	TokensCharged int64   `json:"tokens_charged"`
	InputTokens   int32   `json:"input_tokens"`
	OutputTokens  int32   `json:"output_tokens"`
	CostUSD       float64 `json:"cost_usd"`

	StoragePaths pq.StringArray `gorm:"type:text[]" json:"storage_paths"`
	Error        string         `json:"error,omitempty"`

	Account *Profile `gorm:"foreignKey:AccountID" json:"account,omitempty"`
}
