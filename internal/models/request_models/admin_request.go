package request_models

import "encoding/json"

// AdminActionRequest is the envelope of POST /admin/actions. Payload is
// decoded by the handler registered for Action.
type AdminActionRequest struct {
	Action  string          `json:"action" binding:"required"`
	Payload json.RawMessage `json:"payload"`
}

type OnboardRequest struct {
	Email         string `json:"email" binding:"required,email"`
	Name          string `json:"name"`
	InitialTokens *int64 `json:"initial_tokens"`
}

type NotificationRequest struct {
	Type           string         `json:"type" binding:"required"`
	UserID         string         `json:"user_id"`
	RecipientEmail string         `json:"recipient_email"`
	Data           map[string]any `json:"data"`
}

// ---- action payloads ----

type DashboardStatsPayload struct {
	LastDays int    `json:"last_days"`
	Interval string `json:"interval"`
	Timezone string `json:"tz"`
}

type GenerationsLogPayload struct {
	Page     int    `json:"page"`
	PageSize int    `json:"page_size"`
	Status   string `json:"status"`
	UserID   string `json:"user_id"`
}

type SessionDetailsPayload struct {
	SessionID string `json:"session_id"`
}

type ApproveWaitlistPayload struct {
	WaitlistID    string `json:"waitlist_id"`
	Email         string `json:"email"`
	InitialTokens *int64 `json:"initial_tokens"`
}

type DeleteStorageFilesPayload struct {
	Paths []string `json:"paths"`
}

type DeleteGenerationPayload struct {
	GenerationID string `json:"generation_id"`
}
