package db_models

import (
	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// WebhookEvent is the dedup ledger for provider events.
type WebhookEvent struct {
	BaseModel
	Provider        string     `gorm:"size:20;not null;uniqueIndex:ux_webhook_events_provider_event,priority:1"`
	ProviderEventID string     `gorm:"size:191;not null;uniqueIndex:ux_webhook_events_provider_event,priority:2"`
	EventType       string     `gorm:"size:100;index"`
	AccountID       *uuid.UUID `gorm:"type:uuid;index"`
	TokensGranted   int64
	Payload         datatypes.JSON `gorm:"type:jsonb;default:'{}'"`
}
