package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stripe/stripe-go/v82"

	dbm "luxscaler/internal/models/db_models"
	"luxscaler/internal/repositories"
	"luxscaler/pkg/ai"
)

// MockEntitlementRepository is a mock implementation of repositories.EntitlementRepository
type MockEntitlementRepository struct {
	mock.Mock
}

func (m *MockEntitlementRepository) EventRecorded(ctx context.Context, provider, eventID string) (bool, error) {
	args := m.Called(ctx, provider, eventID)
	return args.Bool(0), args.Error(1)
}

func (m *MockEntitlementRepository) ApplyCredit(ctx context.Context, grant repositories.CreditGrant) (repositories.ApplyResult, error) {
	args := m.Called(ctx, grant)
	return args.Get(0).(repositories.ApplyResult), args.Error(1)
}

func (m *MockEntitlementRepository) ApplySubscriptionStatus(ctx context.Context, change repositories.SubscriptionChange) (repositories.ApplyResult, error) {
	args := m.Called(ctx, change)
	return args.Get(0).(repositories.ApplyResult), args.Error(1)
}

type MockCreditPackRepository struct {
	mock.Mock
}

func (m *MockCreditPackRepository) ListActive(ctx context.Context) ([]dbm.CreditPack, error) {
	args := m.Called(ctx)
	return args.Get(0).([]dbm.CreditPack), args.Error(1)
}

func (m *MockCreditPackRepository) FindByPriceIDs(ctx context.Context, priceIDs []string) (map[string]dbm.CreditPack, error) {
	args := m.Called(ctx, priceIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]dbm.CreditPack), args.Error(1)
}

type MockLineItemSource struct {
	mock.Mock
}

func (m *MockLineItemSource) ListLineItems(ctx context.Context, sessionID string) ([]PurchasedItem, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]PurchasedItem), args.Error(1)
}

type MockProvisioningRepository struct {
	mock.Mock
}

func (m *MockProvisioningRepository) FindByEmail(ctx context.Context, email string) (*dbm.Profile, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dbm.Profile), args.Error(1)
}

func (m *MockProvisioningRepository) CreateConfirmed(ctx context.Context, email, name string) (*dbm.Profile, bool, error) {
	args := m.Called(ctx, email, name)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).(*dbm.Profile), args.Bool(1), args.Error(2)
}

type MockTokenRepository struct {
	mock.Mock
}

func (m *MockTokenRepository) SetBalance(ctx context.Context, mut repositories.TokenMutation) (int64, error) {
	args := m.Called(ctx, mut)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockTokenRepository) Debit(ctx context.Context, mut repositories.TokenMutation) (int64, error) {
	args := m.Called(ctx, mut)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockTokenRepository) Credit(ctx context.Context, mut repositories.TokenMutation) (int64, error) {
	args := m.Called(ctx, mut)
	return args.Get(0).(int64), args.Error(1)
}

type MockRecoveryTokenRepository struct {
	mock.Mock
}

func (m *MockRecoveryTokenRepository) Create(ctx context.Context, token *dbm.RecoveryToken) error {
	args := m.Called(ctx, token)
	return args.Error(0)
}

func (m *MockRecoveryTokenRepository) Consume(ctx context.Context, tokenHash string) (uuid.UUID, error) {
	args := m.Called(ctx, tokenHash)
	return args.Get(0).(uuid.UUID), args.Error(1)
}

type MockMailService struct {
	mock.Mock
}

func (m *MockMailService) SendMailToNotifyUser(to, subject, body, ctaText, ctaURL string) error {
	args := m.Called(to, subject, body, ctaText, ctaURL)
	return args.Error(0)
}

func (m *MockMailService) SendMailToResetPassword(to, token string) error {
	args := m.Called(to, token)
	return args.Error(0)
}

func (m *MockMailService) SendAccessLink(to, name, token string) error {
	args := m.Called(to, name, token)
	return args.Error(0)
}

// MockAccountRepository satisfies both AccountRepository and AccountDirectory.
type MockAccountRepository struct {
	mock.Mock
}

func (m *MockAccountRepository) FindById(ctx context.Context, id uuid.UUID) (*dbm.Profile, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dbm.Profile), args.Error(1)
}

func (m *MockAccountRepository) FindByEmail(ctx context.Context, email string) (*dbm.Profile, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dbm.Profile), args.Error(1)
}

func (m *MockAccountRepository) UpdatePasswordHash(ctx context.Context, id uuid.UUID, hash string) error {
	args := m.Called(ctx, id, hash)
	return args.Error(0)
}

type MockWaitlistRepository struct {
	mock.Mock
}

func (m *MockWaitlistRepository) Join(ctx context.Context, email, name string) (bool, error) {
	args := m.Called(ctx, email, name)
	return args.Bool(0), args.Error(1)
}

func (m *MockWaitlistRepository) FindById(ctx context.Context, id uuid.UUID) (*dbm.WaitlistEntry, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dbm.WaitlistEntry), args.Error(1)
}

func (m *MockWaitlistRepository) FindByEmail(ctx context.Context, email string) (*dbm.WaitlistEntry, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dbm.WaitlistEntry), args.Error(1)
}

func (m *MockWaitlistRepository) MarkApproved(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type MockDashboardRepository struct {
	mock.Mock
}

func (m *MockDashboardRepository) CountTotalAccounts(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockDashboardRepository) CountNewAccounts(ctx context.Context, start, end time.Time) (int64, error) {
	args := m.Called(ctx, start, end)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockDashboardRepository) CountGenerations(ctx context.Context, since time.Time) (int64, error) {
	args := m.Called(ctx, since)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockDashboardRepository) CountGenerationsByStatus(ctx context.Context, status dbm.GenerationStatus) (int64, error) {
	args := m.Called(ctx, status)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockDashboardRepository) CountWaitlistByStatus(ctx context.Context, status dbm.WaitlistStatus) (int64, error) {
	args := m.Called(ctx, status)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockDashboardRepository) CountSubscriptionsByStatus(ctx context.Context, status dbm.SubscriptionStatus) (int64, error) {
	args := m.Called(ctx, status)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockDashboardRepository) SumOutstandingTokens(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockDashboardRepository) SumGenerationCost(ctx context.Context, start, end time.Time) (float64, error) {
	args := m.Called(ctx, start, end)
	return args.Get(0).(float64), args.Error(1)
}

func (m *MockDashboardRepository) NewUsersSeries(ctx context.Context, start, end time.Time, interval, tz string) ([]repositories.BucketSum, error) {
	args := m.Called(ctx, start, end, interval, tz)
	return args.Get(0).([]repositories.BucketSum), args.Error(1)
}

func (m *MockDashboardRepository) GenerationsSeries(ctx context.Context, start, end time.Time, interval, tz string) ([]repositories.BucketSum, error) {
	args := m.Called(ctx, start, end, interval, tz)
	return args.Get(0).([]repositories.BucketSum), args.Error(1)
}

func (m *MockDashboardRepository) PurchasedTokensSeries(ctx context.Context, start, end time.Time, interval, tz string) ([]repositories.BucketSum, error) {
	args := m.Called(ctx, start, end, interval, tz)
	return args.Get(0).([]repositories.BucketSum), args.Error(1)
}

func (m *MockDashboardRepository) ListGenerations(ctx context.Context, filter repositories.GenerationFilter) ([]repositories.GenerationLogRow, int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]repositories.GenerationLogRow), args.Get(1).(int64), args.Error(2)
}

func (m *MockDashboardRepository) GenerationsBySession(ctx context.Context, sessionID string) ([]dbm.Generation, error) {
	args := m.Called(ctx, sessionID)
	return args.Get(0).([]dbm.Generation), args.Error(1)
}

func (m *MockDashboardRepository) FindGeneration(ctx context.Context, id uuid.UUID) (*dbm.Generation, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dbm.Generation), args.Error(1)
}

func (m *MockDashboardRepository) HardDeleteGeneration(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type MockProvisioningService struct {
	mock.Mock
}

func (m *MockProvisioningService) Provision(ctx context.Context, req ProvisionRequest) (*ProvisionResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ProvisionResult), args.Error(1)
}

type MockObjectStorage struct {
	mock.Mock
}

func (m *MockObjectStorage) Upload(ctx context.Context, path, contentType string, data []byte) error {
	args := m.Called(ctx, path, contentType, data)
	return args.Error(0)
}

func (m *MockObjectStorage) Delete(ctx context.Context, paths []string) (int, error) {
	args := m.Called(ctx, paths)
	return args.Int(0), args.Error(1)
}

type MockGenerationRepository struct {
	mock.Mock
}

func (m *MockGenerationRepository) Create(ctx context.Context, gen *dbm.Generation) error {
	args := m.Called(ctx, gen)
	return args.Error(0)
}

func (m *MockGenerationRepository) Save(ctx context.Context, gen *dbm.Generation) error {
	args := m.Called(ctx, gen)
	return args.Error(0)
}

func (m *MockGenerationRepository) ListByAccount(ctx context.Context, accountID uuid.UUID, page, pageSize int) ([]dbm.Generation, error) {
	args := m.Called(ctx, accountID, page, pageSize)
	return args.Get(0).([]dbm.Generation), args.Error(1)
}

type MockNotificationService struct {
	mock.Mock
}

func (m *MockNotificationService) Dispatch(ctx context.Context, n Notification) error {
	args := m.Called(ctx, n)
	return args.Error(0)
}

type MockEnhancer struct {
	mock.Mock
}

func (m *MockEnhancer) Enhance(ctx context.Context, req ai.EnhanceRequest) (*ai.EnhanceResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ai.EnhanceResult), args.Error(1)
}

func (m *MockEnhancer) Provider() string { return "gemini" }
func (m *MockEnhancer) Model() string    { return "gemini-2.0-flash" }
func (m *MockEnhancer) Close() error     { return nil }

func stripeEvent(id, eventType string) stripe.Event {
	return stripe.Event{ID: id, Type: stripe.EventType(eventType), Data: &stripe.EventData{Raw: []byte(`{}`)}}
}
