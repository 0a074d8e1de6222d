package response_models

import (
	"time"

	"luxscaler/internal/models/db_models"
)

type TimeRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
	// "day" | "week" | "month"
	Interval string `json:"interval"`
	// Optional: timezone used for bucketing (defaults to UTC if empty)
	Timezone string `json:"timezone,omitempty"`
}

type KPIBlock struct {
	TotalAccounts         int64 `json:"total_accounts"`
	NewAccounts           int64 `json:"new_accounts"`
	TotalGenerations      int64 `json:"total_generations"`
	GenerationsToday      int64 `json:"generations_today"`
	FailedGenerations     int64 `json:"failed_generations"`
	WaitlistPending       int64 `json:"waitlist_pending"`
	ActiveSubscriptions   int64 `json:"active_subscriptions"`
	TrialingSubscriptions int64 `json:"trialing_subscriptions"`
	CanceledSubscriptions int64 `json:"canceled_subscriptions"`
	TokensOutstanding     int64 `json:"tokens_outstanding"`

	// AI spend over the range; zero when the aggregation failed.
	CostUSD float64 `json:"cost_usd"`
}

type SeriesPoint struct {
	Bucket time.Time `json:"bucket"`
	Value  int64     `json:"value"`
}

type CountSeries struct {
	Points []SeriesPoint `json:"points"`
	Total  int64         `json:"total"`
}

type DashboardReport struct {
	Range           TimeRange   `json:"range"`
	KPIs            KPIBlock    `json:"kpis"`
	NewUsers        CountSeries `json:"new_users"`
	Generations     CountSeries `json:"generations"`
	PurchasedTokens CountSeries `json:"purchased_tokens"`
}

type GenerationsLog struct {
	Items    any   `json:"items"`
	Total    int64 `json:"total"`
	Page     int   `json:"page"`
	PageSize int   `json:"page_size"`
}

type SessionDetails struct {
	SessionID   string                 `json:"session_id"`
	Generations []db_models.Generation `json:"generations"`
	TokensSpent int64                  `json:"tokens_spent"`
	CostUSD     float64                `json:"cost_usd"`
}

type DeletedFiles struct {
	Deleted int `json:"deleted"`
}

type DeletedGeneration struct {
	GenerationID string `json:"generation_id"`
	FilesRemoved int    `json:"files_removed"`
}
