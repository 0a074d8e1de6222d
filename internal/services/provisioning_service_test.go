package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"luxscaler/internal/config"
	dbm "luxscaler/internal/models/db_models"
	"luxscaler/internal/repositories"
	"luxscaler/pkg/utils"
)

type provisioningFixture struct {
	svc      ProvisioningService
	accounts *MockProvisioningRepository
	tokens   *MockTokenRepository
	links    *MockRecoveryTokenRepository
	mail     *MockMailService
}

func newProvisioningFixture(t *testing.T) *provisioningFixture {
	t.Helper()
	cfg := &config.Config{Tokens: config.TokenConfig{DefaultInitial: 500, RecoveryLinkTTL: 24 * time.Hour}}
	f := &provisioningFixture{
		accounts: new(MockProvisioningRepository),
		tokens:   new(MockTokenRepository),
		links:    new(MockRecoveryTokenRepository),
		mail:     new(MockMailService),
	}
	f.svc = NewProvisioningService(f.accounts, f.tokens, f.links, f.mail, cfg, zaptest.NewLogger(t))
	return f
}

func TestProvision_CreatesMissingAccount(t *testing.T) {
	f := newProvisioningFixture(t)
	actor := uuid.New()
	profile := &dbm.Profile{BaseModel: dbm.BaseModel{ID: uuid.New()}, Email: "new@luxscaler.test", Name: "new"}

	f.accounts.On("FindByEmail", mock.Anything, "new@luxscaler.test").Return(nil, nil)
	f.accounts.On("CreateConfirmed", mock.Anything, "new@luxscaler.test", "new").Return(profile, true, nil)
	f.tokens.On("SetBalance", mock.Anything, repositories.TokenMutation{
		AccountID: profile.ID,
		Amount:    500,
		Reason:    dbm.TokenReasonAdminGrant,
		Reference: actor.String(),
	}).Return(int64(0), nil)

	var stored *dbm.RecoveryToken
	f.links.On("Create", mock.Anything, mock.AnythingOfType("*db_models.RecoveryToken")).
		Run(func(args mock.Arguments) { stored = args.Get(1).(*dbm.RecoveryToken) }).
		Return(nil)

	var sentToken string
	f.mail.On("SendAccessLink", "new@luxscaler.test", "new", mock.AnythingOfType("string")).
		Run(func(args mock.Arguments) { sentToken = args.String(2) }).
		Return(nil)

	res, err := f.svc.Provision(context.Background(), ProvisionRequest{Email: " New@LuxScaler.test ", ActorID: actor})

	require.NoError(t, err)
	assert.True(t, res.Created)
	assert.Equal(t, profile.ID, res.UserID)
	assert.Contains(t, res.Message, "created")

	require.NotNil(t, stored)
	assert.Equal(t, RecoveryPurposeAccess, stored.Purpose)
	assert.Equal(t, utils.HashToken(sentToken), stored.TokenHash)
	assert.NotEqual(t, sentToken, stored.TokenHash)
	f.accounts.AssertExpectations(t)
	f.tokens.AssertExpectations(t)
}

func TestProvision_ExistingAccountSkipsCreate(t *testing.T) {
	f := newProvisioningFixture(t)
	initial := int64(42)
	profile := &dbm.Profile{BaseModel: dbm.BaseModel{ID: uuid.New()}, Email: "old@luxscaler.test", Name: "Old"}

	f.accounts.On("FindByEmail", mock.Anything, "old@luxscaler.test").Return(profile, nil)
	f.tokens.On("SetBalance", mock.Anything, mock.MatchedBy(func(m repositories.TokenMutation) bool {
		return m.Amount == 42
	})).Return(int64(7), nil)
	f.links.On("Create", mock.Anything, mock.Anything).Return(nil)
	f.mail.On("SendAccessLink", "old@luxscaler.test", "Old", mock.Anything).Return(nil)

	res, err := f.svc.Provision(context.Background(), ProvisionRequest{Email: "old@luxscaler.test", InitialTokens: &initial})

	require.NoError(t, err)
	assert.False(t, res.Created)
	f.accounts.AssertNotCalled(t, "CreateConfirmed", mock.Anything, mock.Anything, mock.Anything)
}

func TestProvision_GrantFailureContinues(t *testing.T) {
	f := newProvisioningFixture(t)
	profile := &dbm.Profile{BaseModel: dbm.BaseModel{ID: uuid.New()}, Email: "a@luxscaler.test"}

	f.accounts.On("FindByEmail", mock.Anything, mock.Anything).Return(profile, nil)
	f.tokens.On("SetBalance", mock.Anything, mock.Anything).Return(int64(0), errors.New("deadlock"))
	f.links.On("Create", mock.Anything, mock.Anything).Return(nil)
	f.mail.On("SendAccessLink", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	res, err := f.svc.Provision(context.Background(), ProvisionRequest{Email: "a@luxscaler.test"})

	require.NoError(t, err)
	assert.Equal(t, profile.ID, res.UserID)
	f.mail.AssertNumberOfCalls(t, "SendAccessLink", 1)
}

func TestProvision_NotifyFailureKeepsGrant(t *testing.T) {
	f := newProvisioningFixture(t)
	profile := &dbm.Profile{BaseModel: dbm.BaseModel{ID: uuid.New()}, Email: "b@luxscaler.test"}

	f.accounts.On("FindByEmail", mock.Anything, mock.Anything).Return(profile, nil)
	f.tokens.On("SetBalance", mock.Anything, mock.MatchedBy(func(m repositories.TokenMutation) bool {
		return m.Amount == 500
	})).Return(int64(0), nil)
	f.links.On("Create", mock.Anything, mock.Anything).Return(nil)
	f.mail.On("SendAccessLink", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("smtp down"))

	res, err := f.svc.Provision(context.Background(), ProvisionRequest{Email: "b@luxscaler.test"})

	require.Error(t, err)
	assert.Nil(t, res)
	assert.Contains(t, err.Error(), "send access link")
	f.tokens.AssertCalled(t, "SetBalance", mock.Anything, mock.Anything)
	f.tokens.AssertNotCalled(t, "Credit", mock.Anything, mock.Anything)
}

func TestProvision_LinkFailureStopsBeforeMail(t *testing.T) {
	f := newProvisioningFixture(t)
	profile := &dbm.Profile{BaseModel: dbm.BaseModel{ID: uuid.New()}, Email: "c@luxscaler.test"}

	f.accounts.On("FindByEmail", mock.Anything, mock.Anything).Return(profile, nil)
	f.tokens.On("SetBalance", mock.Anything, mock.Anything).Return(int64(0), nil)
	f.links.On("Create", mock.Anything, mock.Anything).Return(errors.New("insert failed"))

	_, err := f.svc.Provision(context.Background(), ProvisionRequest{Email: "c@luxscaler.test"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "generate access link")
	f.mail.AssertNotCalled(t, "SendAccessLink", mock.Anything, mock.Anything, mock.Anything)
}

func TestProvision_ValidatesInput(t *testing.T) {
	f := newProvisioningFixture(t)
	negative := int64(-1)

	_, err := f.svc.Provision(context.Background(), ProvisionRequest{Email: "not-an-email"})
	assert.ErrorIs(t, err, utils.ErrInvalidPayload)

	_, err = f.svc.Provision(context.Background(), ProvisionRequest{Email: "d@luxscaler.test", InitialTokens: &negative})
	assert.ErrorIs(t, err, utils.ErrInvalidPayload)

	f.accounts.AssertNotCalled(t, "FindByEmail", mock.Anything, mock.Anything)
}
