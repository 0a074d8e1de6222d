package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"luxscaler/internal/infra"
	dbm "luxscaler/internal/models/db_models"
)

// DashboardRepository backs the admin actions. It reads across every account,
// so it only runs on the privileged handle.
type DashboardRepository interface {
	// KPIs / counts
	CountTotalAccounts(ctx context.Context) (int64, error)
	CountNewAccounts(ctx context.Context, start, end time.Time) (int64, error)
	CountGenerations(ctx context.Context, since time.Time) (int64, error)
	CountGenerationsByStatus(ctx context.Context, status dbm.GenerationStatus) (int64, error)
	CountWaitlistByStatus(ctx context.Context, status dbm.WaitlistStatus) (int64, error)
	CountSubscriptionsByStatus(ctx context.Context, status dbm.SubscriptionStatus) (int64, error)
	SumOutstandingTokens(ctx context.Context) (int64, error)
	SumGenerationCost(ctx context.Context, start, end time.Time) (float64, error)

	// Time series
	NewUsersSeries(ctx context.Context, start, end time.Time, interval, tz string) ([]BucketSum, error)
	GenerationsSeries(ctx context.Context, start, end time.Time, interval, tz string) ([]BucketSum, error)
	PurchasedTokensSeries(ctx context.Context, start, end time.Time, interval, tz string) ([]BucketSum, error)

	// Generations
	ListGenerations(ctx context.Context, filter GenerationFilter) ([]GenerationLogRow, int64, error)
	GenerationsBySession(ctx context.Context, sessionID string) ([]dbm.Generation, error)
	FindGeneration(ctx context.Context, id uuid.UUID) (*dbm.Generation, error)
	HardDeleteGeneration(ctx context.Context, id uuid.UUID) error
}

type dashboardRepository struct {
	db *infra.PrivilegedDB
}

func NewDashboardRepository(db *infra.PrivilegedDB) DashboardRepository {
	return &dashboardRepository{db: db}
}

// ---------- Row helpers ----------
type BucketSum struct {
	Bucket time.Time `gorm:"column:bucket"`
	Sum    int64     `gorm:"column:sum"`
}

type GenerationFilter struct {
	AccountID *uuid.UUID
	Status    dbm.GenerationStatus
	Limit     int
	Offset    int
}

type GenerationLogRow struct {
	ID            string  `gorm:"column:id" json:"id"`
	CreatedAt     int64   `gorm:"column:created_at" json:"created_at"`
	AccountID     string  `gorm:"column:account_id" json:"account_id"`
	AccountEmail  string  `gorm:"column:email" json:"account_email"`
	SessionID     string  `gorm:"column:session_id" json:"session_id"`
	Status        string  `gorm:"column:status" json:"status"`
	Provider      string  `gorm:"column:provider" json:"provider"`
	Model         string  `gorm:"column:model" json:"model"`
	TokensCharged int64   `gorm:"column:tokens_charged" json:"tokens_charged"`
	CostUSD       float64 `gorm:"column:cost_usd" json:"cost_usd"`
	Error         string  `gorm:"column:error" json:"error,omitempty"`
}

// ---------- Helpers ----------
func dateTrunc(tz string, unixColumn string) string {
	// unixColumn holds UNIX seconds; bucket in tz when given.
	if tz == "" {
		return "date_trunc(?, to_timestamp(" + unixColumn + "))"
	}
	return "date_trunc(?, timezone(?, to_timestamp(" + unixColumn + ")))"
}

func truncArgs(interval, tz string) []interface{} {
	if tz == "" {
		return []interface{}{interval}
	}
	return []interface{}{interval, tz}
}

// ---------- Counts ----------
func (r *dashboardRepository) CountTotalAccounts(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.Conn(ctx).Model(&dbm.Profile{}).Count(&n).Error
	return n, err
}

func (r *dashboardRepository) CountNewAccounts(ctx context.Context, start, end time.Time) (int64, error) {
	var n int64
	err := r.db.Conn(ctx).
		Model(&dbm.Profile{}).
		Where("created_at BETWEEN ? AND ?", start.Unix(), end.Unix()).
		Count(&n).Error
	return n, err
}

func (r *dashboardRepository) CountGenerations(ctx context.Context, since time.Time) (int64, error) {
	var n int64
	q := r.db.Conn(ctx).Model(&dbm.Generation{})
	if !since.IsZero() {
		q = q.Where("created_at >= ?", since.Unix())
	}
	err := q.Count(&n).Error
	return n, err
}

func (r *dashboardRepository) CountGenerationsByStatus(ctx context.Context, status dbm.GenerationStatus) (int64, error) {
	var n int64
	err := r.db.Conn(ctx).Model(&dbm.Generation{}).Where("status = ?", status).Count(&n).Error
	return n, err
}

func (r *dashboardRepository) CountWaitlistByStatus(ctx context.Context, status dbm.WaitlistStatus) (int64, error) {
	var n int64
	err := r.db.Conn(ctx).Model(&dbm.WaitlistEntry{}).Where("status = ?", status).Count(&n).Error
	return n, err
}

func (r *dashboardRepository) CountSubscriptionsByStatus(ctx context.Context, status dbm.SubscriptionStatus) (int64, error) {
	var n int64
	err := r.db.Conn(ctx).Model(&dbm.Profile{}).Where("subscription_status = ?", status).Count(&n).Error
	return n, err
}

func (r *dashboardRepository) SumOutstandingTokens(ctx context.Context) (int64, error) {
	var sum int64
	err := r.db.Conn(ctx).
		Model(&dbm.Profile{}).
		Select("COALESCE(SUM(tokens), 0)").
		Scan(&sum).Error
	return sum, err
}

func (r *dashboardRepository) SumGenerationCost(ctx context.Context, start, end time.Time) (float64, error) {
	var sum float64
	err := r.db.Conn(ctx).
		Model(&dbm.Generation{}).
		Select("COALESCE(SUM(cost_usd), 0)").
		Where("created_at BETWEEN ? AND ?", start.Unix(), end.Unix()).
		Scan(&sum).Error
	return sum, err
}

// ---------- Series ----------
func (r *dashboardRepository) series(ctx context.Context, table, column, agg string, start, end time.Time, interval, tz string, scope func(*gorm.DB) *gorm.DB) ([]BucketSum, error) {
	var rows []BucketSum
	tx := r.db.Conn(ctx).
		Table(table).
		Select(dateTrunc(tz, column)+" AS bucket, "+agg+" AS sum", truncArgs(interval, tz)...).
		Where(column+" BETWEEN ? AND ?", start.Unix(), end.Unix()).
		Where("deleted_at IS NULL")
	if scope != nil {
		tx = scope(tx)
	}
	err := tx.Group("bucket").Order("bucket ASC").Find(&rows).Error
	return rows, err
}

func (r *dashboardRepository) NewUsersSeries(ctx context.Context, start, end time.Time, interval, tz string) ([]BucketSum, error) {
	return r.series(ctx, "profiles", "created_at", "COUNT(*)", start, end, interval, tz, nil)
}

func (r *dashboardRepository) GenerationsSeries(ctx context.Context, start, end time.Time, interval, tz string) ([]BucketSum, error) {
	return r.series(ctx, "generations", "created_at", "COUNT(*)", start, end, interval, tz, nil)
}

func (r *dashboardRepository) PurchasedTokensSeries(ctx context.Context, start, end time.Time, interval, tz string) ([]BucketSum, error) {
	return r.series(ctx, "token_transactions", "created_at", "COALESCE(SUM(delta), 0)", start, end, interval, tz,
		func(tx *gorm.DB) *gorm.DB {
			return tx.Where("reason = ?", dbm.TokenReasonPurchase)
		})
}

// ---------- Generations ----------
func (r *dashboardRepository) ListGenerations(ctx context.Context, f GenerationFilter) ([]GenerationLogRow, int64, error) {
	q := r.db.Conn(ctx).
		Table("generations g").
		Joins("LEFT JOIN profiles p ON p.id = g.account_id").
		Where("g.deleted_at IS NULL")
	if f.AccountID != nil {
		q = q.Where("g.account_id = ?", *f.AccountID)
	}
	if f.Status != "" {
		q = q.Where("g.status = ?", f.Status)
	}

	var total int64
	if err := q.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []GenerationLogRow
	err := q.Select(`
			g.id,
			g.created_at,
			g.account_id,
			p.email,
			g.session_id,
			g.status,
			g.provider,
			g.model,
			g.tokens_charged,
			g.cost_usd,
			g.error`).
		Order("g.created_at DESC").
		Limit(f.Limit).
		Offset(f.Offset).
		Find(&rows).Error
	return rows, total, err
}

func (r *dashboardRepository) GenerationsBySession(ctx context.Context, sessionID string) ([]dbm.Generation, error) {
	var gens []dbm.Generation
	err := r.db.Conn(ctx).
		Preload("Account").
		Where("session_id = ?", sessionID).
		Order("created_at ASC").
		Find(&gens).Error
	return gens, err
}

func (r *dashboardRepository) FindGeneration(ctx context.Context, id uuid.UUID) (*dbm.Generation, error) {
	var gen dbm.Generation
	err := r.db.Conn(ctx).Unscoped().First(&gen, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &gen, nil
}

func (r *dashboardRepository) HardDeleteGeneration(ctx context.Context, id uuid.UUID) error {
	return r.db.Conn(ctx).Unscoped().Delete(&dbm.Generation{}, "id = ?", id).Error
}
