package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"luxscaler/internal/config"
	dbm "luxscaler/internal/models/db_models"
	"luxscaler/pkg/utils"
)

func newNotificationFixture(t *testing.T) (NotificationService, *MockAccountRepository, *MockMailService) {
	t.Helper()
	cfg := &config.Config{App: config.AppConfig{Name: "LuxScaler", BaseURL: "https://luxscaler.test"}}
	dir := new(MockAccountRepository)
	mailer := new(MockMailService)
	return NewNotificationService(dir, mailer, cfg, zaptest.NewLogger(t)), dir, mailer
}

func TestDispatch_LowBalanceWithoutRecipient(t *testing.T) {
	svc, dir, mailer := newNotificationFixture(t)

	err := svc.Dispatch(context.Background(), Notification{Kind: NotifyLowBalance})

	assert.ErrorIs(t, err, utils.ErrUnresolvedRecipient)
	dir.AssertNotCalled(t, "FindById", mock.Anything, mock.Anything)
	mailer.AssertNotCalled(t, "SendMailToNotifyUser", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestDispatch_UnknownAccount(t *testing.T) {
	svc, dir, mailer := newNotificationFixture(t)
	id := uuid.New()
	dir.On("FindById", mock.Anything, id).Return(nil, nil)

	err := svc.Dispatch(context.Background(), Notification{Kind: NotifySecurityAlert, UserID: id})

	assert.ErrorIs(t, err, utils.ErrUnresolvedRecipient)
	mailer.AssertNotCalled(t, "SendMailToNotifyUser", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestDispatch_InvalidKind(t *testing.T) {
	svc, dir, _ := newNotificationFixture(t)

	err := svc.Dispatch(context.Background(), Notification{Kind: "PROMO", RecipientEmail: "x@luxscaler.test"})

	assert.ErrorIs(t, err, utils.ErrInvalidNotificationType)
	dir.AssertNotCalled(t, "FindById", mock.Anything, mock.Anything)
}

func TestDispatch_LowBalanceFromAccount(t *testing.T) {
	svc, dir, mailer := newNotificationFixture(t)
	id := uuid.New()
	dir.On("FindById", mock.Anything, id).
		Return(&dbm.Profile{BaseModel: dbm.BaseModel{ID: id}, Email: "owner@luxscaler.test", Tokens: 12}, nil)
	mailer.On("SendMailToNotifyUser", "owner@luxscaler.test", "Your token balance is low",
		mock.MatchedBy(func(body string) bool { return strings.Contains(body, "12 tokens left") }),
		"Buy tokens", "https://luxscaler.test/pricing").Return(nil)

	err := svc.Dispatch(context.Background(), Notification{Kind: NotifyLowBalance, UserID: id})

	require.NoError(t, err)
	mailer.AssertExpectations(t)
}

func TestDispatch_DirectEmailWins(t *testing.T) {
	svc, dir, mailer := newNotificationFixture(t)
	id := uuid.New()
	dir.On("FindById", mock.Anything, id).
		Return(&dbm.Profile{BaseModel: dbm.BaseModel{ID: id}, Email: "owner@luxscaler.test"}, nil)
	mailer.On("SendMailToNotifyUser", "override@luxscaler.test", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)

	err := svc.Dispatch(context.Background(), Notification{
		Kind:           NotifyNewsletter,
		UserID:         id,
		RecipientEmail: "override@luxscaler.test",
		Data:           map[string]any{"body": "Spring update"},
	})

	require.NoError(t, err)
	mailer.AssertExpectations(t)
}

func TestDispatch_DirectEmailSurvivesLookupFailure(t *testing.T) {
	svc, dir, mailer := newNotificationFixture(t)
	id := uuid.New()
	dir.On("FindById", mock.Anything, id).Return(nil, errors.New("connection reset"))
	mailer.On("SendMailToNotifyUser", "override@luxscaler.test", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)

	err := svc.Dispatch(context.Background(), Notification{
		Kind:           NotifySecurityAlert,
		UserID:         id,
		RecipientEmail: "override@luxscaler.test",
	})

	require.NoError(t, err)
	mailer.AssertExpectations(t)
}

func TestDispatch_LookupFailureWithoutDirectEmail(t *testing.T) {
	svc, dir, mailer := newNotificationFixture(t)
	id := uuid.New()
	dir.On("FindById", mock.Anything, id).Return(nil, errors.New("connection reset"))

	err := svc.Dispatch(context.Background(), Notification{Kind: NotifySecurityAlert, UserID: id})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")
	mailer.AssertNotCalled(t, "SendMailToNotifyUser", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestDispatch_NewsletterDefaults(t *testing.T) {
	svc, _, mailer := newNotificationFixture(t)
	mailer.On("SendMailToNotifyUser", "reader@luxscaler.test", "News from LuxScaler", "Hello", "", "").Return(nil)

	err := svc.Dispatch(context.Background(), Notification{
		Kind:           NotifyNewsletter,
		RecipientEmail: "reader@luxscaler.test",
		Data:           map[string]any{"body": "Hello"},
	})

	require.NoError(t, err)
	mailer.AssertExpectations(t)
}

func TestDispatch_TransportFailureSurfaces(t *testing.T) {
	svc, _, mailer := newNotificationFixture(t)
	mailer.On("SendMailToNotifyUser", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(errors.New("421 try later"))

	err := svc.Dispatch(context.Background(), Notification{Kind: NotifySecurityAlert, RecipientEmail: "x@luxscaler.test"})

	assert.EqualError(t, err, "421 try later")
}

func TestParseNotificationKind(t *testing.T) {
	k, err := ParseNotificationKind(" low_balance ")
	require.NoError(t, err)
	assert.Equal(t, NotifyLowBalance, k)

	_, err = ParseNotificationKind("digest")
	assert.ErrorIs(t, err, utils.ErrInvalidNotificationType)
}
