package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"luxscaler/internal/infra"
	dbm "luxscaler/internal/models/db_models"
	"luxscaler/internal/models/request_models"
	resp "luxscaler/internal/models/response_models"
	"luxscaler/internal/repositories"
	"luxscaler/pkg/utils"
)

type AdminAction string

const (
	ActionDashboardStats        AdminAction = "get_dashboard_stats"
	ActionGenerationsLog        AdminAction = "get_generations_log"
	ActionSessionDetails        AdminAction = "get_session_details"
	ActionApproveWaitlist       AdminAction = "approve_waitlist"
	ActionDeleteStorageFiles    AdminAction = "delete_storage_files"
	ActionDeleteGenerationForce AdminAction = "delete_generation_force"
)

// AdminActions lists every action the admin endpoint accepts.
var AdminActions = []AdminAction{
	ActionDashboardStats,
	ActionGenerationsLog,
	ActionSessionDetails,
	ActionApproveWaitlist,
	ActionDeleteStorageFiles,
	ActionDeleteGenerationForce,
}

type actionHandler func(ctx context.Context, actor *dbm.Profile, payload json.RawMessage) (any, error)

type AdminService interface {
	Execute(ctx context.Context, actor *dbm.Profile, action AdminAction, payload json.RawMessage) (any, error)
	BuildDashboard(ctx context.Context, rng resp.TimeRange) (*resp.DashboardReport, error)
}

type adminService struct {
	repo         repositories.DashboardRepository
	waitlist     repositories.WaitlistRepository
	provisioning ProvisioningService
	storage      infra.ObjectStorage
	log          *zap.Logger
	now          func() time.Time
	actions      map[AdminAction]actionHandler
}

func NewAdminService(
	repo repositories.DashboardRepository,
	waitlist repositories.WaitlistRepository,
	provisioning ProvisioningService,
	storage infra.ObjectStorage,
	log *zap.Logger,
) AdminService {
	s := &adminService{
		repo:         repo,
		waitlist:     waitlist,
		provisioning: provisioning,
		storage:      storage,
		log:          log,
		now:          time.Now,
	}
	s.actions = map[AdminAction]actionHandler{
		ActionDashboardStats:        s.dashboardStats,
		ActionGenerationsLog:        s.generationsLog,
		ActionSessionDetails:        s.sessionDetails,
		ActionApproveWaitlist:       s.approveWaitlist,
		ActionDeleteStorageFiles:    s.deleteStorageFiles,
		ActionDeleteGenerationForce: s.deleteGenerationForce,
	}
	return s
}

func (s *adminService) Execute(ctx context.Context, actor *dbm.Profile, action AdminAction, payload json.RawMessage) (any, error) {
	if actor == nil || !actor.IsAdmin {
		return nil, utils.ErrForbidden
	}
	handler, ok := s.actions[action]
	if !ok {
		return nil, fmt.Errorf("%w: %q", utils.ErrUnknownAction, action)
	}

	s.log.Info("admin action",
		zap.String("action", string(action)),
		zap.String("actor_id", actor.ID.String()))
	return handler(ctx, actor, payload)
}

// decodePayload rejects unknown fields; an empty payload leaves dst zeroed.
func decodePayload(payload json.RawMessage, dst any) error {
	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: %v", utils.ErrInvalidPayload, err)
	}
	return nil
}

// ---------- get_dashboard_stats ----------

func validInterval(s string) bool {
	switch s {
	case "day", "week", "month":
		return true
	default:
		return false
	}
}

func (s *adminService) dashboardStats(ctx context.Context, _ *dbm.Profile, payload json.RawMessage) (any, error) {
	var p request_models.DashboardStatsPayload
	if err := decodePayload(payload, &p); err != nil {
		return nil, err
	}
	if p.LastDays < 0 || p.LastDays > 366 {
		return nil, fmt.Errorf("%w: last_days must be between 1 and 366", utils.ErrInvalidPayload)
	}
	if p.Interval != "" && !validInterval(p.Interval) {
		return nil, fmt.Errorf("%w: interval must be one of: day, week, month", utils.ErrInvalidPayload)
	}
	if p.Timezone != "" {
		if _, err := time.LoadLocation(p.Timezone); err != nil {
			return nil, fmt.Errorf("%w: unknown timezone %q", utils.ErrInvalidPayload, p.Timezone)
		}
	}

	end := s.now().UTC()
	days := p.LastDays
	if days == 0 {
		days = 30
	}
	return s.BuildDashboard(ctx, resp.TimeRange{
		Start:    end.AddDate(0, 0, -days),
		End:      end,
		Interval: p.Interval,
		Timezone: p.Timezone,
	})
}

// normalizeRange ensures sane defaults and ordering
func (s *adminService) normalizeRange(r resp.TimeRange) resp.TimeRange {
	out := r
	if out.Interval == "" {
		out.Interval = "day"
	}
	if out.End.IsZero() {
		out.End = s.now().UTC()
	}
	if out.Start.IsZero() {
		out.Start = out.End.AddDate(0, 0, -30)
	}
	if out.Start.After(out.End) {
		out.Start, out.End = out.End, out.Start
	}
	return out
}

func toSeries(rows []repositories.BucketSum) resp.CountSeries {
	series := resp.CountSeries{Points: make([]resp.SeriesPoint, 0, len(rows))}
	for _, r := range rows {
		series.Points = append(series.Points, resp.SeriesPoint{Bucket: r.Bucket, Value: r.Sum})
		series.Total += r.Sum
	}
	return series
}

func (s *adminService) BuildDashboard(ctx context.Context, rng resp.TimeRange) (*resp.DashboardReport, error) {
	rng = s.normalizeRange(rng)
	var kpi resp.KPIBlock
	var err error

	// ---------- Core counts ----------
	if kpi.TotalAccounts, err = s.repo.CountTotalAccounts(ctx); err != nil {
		return nil, err
	}
	if kpi.NewAccounts, err = s.repo.CountNewAccounts(ctx, rng.Start, rng.End); err != nil {
		return nil, err
	}
	if kpi.TotalGenerations, err = s.repo.CountGenerations(ctx, time.Time{}); err != nil {
		return nil, err
	}
	if kpi.GenerationsToday, err = s.repo.CountGenerations(ctx, utils.StartOfDay(s.now().UTC())); err != nil {
		return nil, err
	}
	if kpi.FailedGenerations, err = s.repo.CountGenerationsByStatus(ctx, dbm.GenerationFailed); err != nil {
		return nil, err
	}
	if kpi.WaitlistPending, err = s.repo.CountWaitlistByStatus(ctx, dbm.WaitlistPending); err != nil {
		return nil, err
	}
	if kpi.ActiveSubscriptions, err = s.repo.CountSubscriptionsByStatus(ctx, dbm.SubStatusActive); err != nil {
		return nil, err
	}
	if kpi.TrialingSubscriptions, err = s.repo.CountSubscriptionsByStatus(ctx, dbm.SubStatusTrialing); err != nil {
		return nil, err
	}
	if kpi.CanceledSubscriptions, err = s.repo.CountSubscriptionsByStatus(ctx, dbm.SubStatusCanceled); err != nil {
		return nil, err
	}
	if kpi.TokensOutstanding, err = s.repo.SumOutstandingTokens(ctx); err != nil {
		return nil, err
	}

	// Cost is informational; a failed aggregation must not hide the rest.
	if kpi.CostUSD, err = s.repo.SumGenerationCost(ctx, rng.Start, rng.End); err != nil {
		s.log.Warn("dashboard cost aggregation failed", zap.Error(err))
		kpi.CostUSD = 0
	}

	// ---------- Series ----------
	newUsers, err := s.repo.NewUsersSeries(ctx, rng.Start, rng.End, rng.Interval, rng.Timezone)
	if err != nil {
		return nil, err
	}
	generations, err := s.repo.GenerationsSeries(ctx, rng.Start, rng.End, rng.Interval, rng.Timezone)
	if err != nil {
		return nil, err
	}
	purchased, err := s.repo.PurchasedTokensSeries(ctx, rng.Start, rng.End, rng.Interval, rng.Timezone)
	if err != nil {
		return nil, err
	}

	return &resp.DashboardReport{
		Range:           rng,
		KPIs:            kpi,
		NewUsers:        toSeries(newUsers),
		Generations:     toSeries(generations),
		PurchasedTokens: toSeries(purchased),
	}, nil
}

// ---------- get_generations_log ----------

func (s *adminService) generationsLog(ctx context.Context, _ *dbm.Profile, payload json.RawMessage) (any, error) {
	var p request_models.GenerationsLogPayload
	if err := decodePayload(payload, &p); err != nil {
		return nil, err
	}
	if p.Page <= 0 {
		p.Page = 1
	}
	if p.PageSize <= 0 || p.PageSize > 200 {
		p.PageSize = 50
	}

	filter := repositories.GenerationFilter{
		Status: dbm.GenerationStatus(p.Status),
		Limit:  p.PageSize,
		Offset: (p.Page - 1) * p.PageSize,
	}
	if p.UserID != "" {
		id, err := uuid.Parse(p.UserID)
		if err != nil {
			return nil, fmt.Errorf("%w: user_id must be a UUID", utils.ErrInvalidPayload)
		}
		filter.AccountID = &id
	}

	rows, total, err := s.repo.ListGenerations(ctx, filter)
	if err != nil {
		return nil, err
	}
	return &resp.GenerationsLog{Items: rows, Total: total, Page: p.Page, PageSize: p.PageSize}, nil
}

// ---------- get_session_details ----------

func (s *adminService) sessionDetails(ctx context.Context, _ *dbm.Profile, payload json.RawMessage) (any, error) {
	var p request_models.SessionDetailsPayload
	if err := decodePayload(payload, &p); err != nil {
		return nil, err
	}
	if strings.TrimSpace(p.SessionID) == "" {
		return nil, fmt.Errorf("%w: session_id is required", utils.ErrInvalidPayload)
	}

	gens, err := s.repo.GenerationsBySession(ctx, p.SessionID)
	if err != nil {
		return nil, err
	}
	out := &resp.SessionDetails{SessionID: p.SessionID, Generations: gens}
	for _, g := range gens {
		out.TokensSpent += g.TokensCharged
		out.CostUSD += g.CostUSD
	}
	return out, nil
}

// ---------- approve_waitlist ----------

func (s *adminService) approveWaitlist(ctx context.Context, actor *dbm.Profile, payload json.RawMessage) (any, error) {
	var p request_models.ApproveWaitlistPayload
	if err := decodePayload(payload, &p); err != nil {
		return nil, err
	}

	var entry *dbm.WaitlistEntry
	var err error
	switch {
	case p.WaitlistID != "":
		id, perr := uuid.Parse(p.WaitlistID)
		if perr != nil {
			return nil, fmt.Errorf("%w: waitlist_id must be a UUID", utils.ErrInvalidPayload)
		}
		entry, err = s.waitlist.FindById(ctx, id)
	case p.Email != "":
		entry, err = s.waitlist.FindByEmail(ctx, p.Email)
	default:
		return nil, fmt.Errorf("%w: waitlist_id or email is required", utils.ErrInvalidPayload)
	}
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, utils.ErrWaitlistEntryNotFound
	}
	if entry.Status != dbm.WaitlistPending {
		return nil, fmt.Errorf("%w: %s", utils.ErrWaitlistNotPending, entry.Email)
	}

	result, err := s.provisioning.Provision(ctx, ProvisionRequest{
		Email:         entry.Email,
		Name:          entry.Name,
		InitialTokens: p.InitialTokens,
		ActorID:       actor.ID,
	})
	if err != nil {
		return nil, err
	}
	if err := s.waitlist.MarkApproved(ctx, entry.ID); err != nil {
		return nil, err
	}

	return &resp.OnboardResponse{Success: true, UserID: result.UserID, Message: result.Message}, nil
}

// ---------- delete_storage_files ----------

func (s *adminService) deleteStorageFiles(ctx context.Context, _ *dbm.Profile, payload json.RawMessage) (any, error) {
	var p request_models.DeleteStorageFilesPayload
	if err := decodePayload(payload, &p); err != nil {
		return nil, err
	}
	paths := make([]string, 0, len(p.Paths))
	for _, path := range p.Paths {
		if path = strings.TrimSpace(path); path != "" {
			paths = append(paths, path)
		}
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("%w: paths must not be empty", utils.ErrInvalidPayload)
	}

	n, err := s.storage.Delete(ctx, paths)
	if err != nil {
		return nil, err
	}
	return &resp.DeletedFiles{Deleted: n}, nil
}

// ---------- delete_generation_force ----------

func (s *adminService) deleteGenerationForce(ctx context.Context, actor *dbm.Profile, payload json.RawMessage) (any, error) {
	var p request_models.DeleteGenerationPayload
	if err := decodePayload(payload, &p); err != nil {
		return nil, err
	}
	id, err := uuid.Parse(p.GenerationID)
	if err != nil {
		return nil, fmt.Errorf("%w: generation_id must be a UUID", utils.ErrInvalidPayload)
	}

	gen, err := s.repo.FindGeneration(ctx, id)
	if err != nil {
		return nil, err
	}
	if gen == nil {
		return nil, utils.ErrGenerationNotFound
	}

	removed := 0
	if len(gen.StoragePaths) > 0 {
		if removed, err = s.storage.Delete(ctx, gen.StoragePaths); err != nil {
			return nil, err
		}
	}
	if err := s.repo.HardDeleteGeneration(ctx, id); err != nil {
		return nil, err
	}

	s.log.Info("generation force-deleted",
		zap.String("generation_id", id.String()),
		zap.String("actor_id", actor.ID.String()),
		zap.Int("files_removed", removed))
	return &resp.DeletedGeneration{GenerationID: id.String(), FilesRemoved: removed}, nil
}
