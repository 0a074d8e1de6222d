package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v82/webhook"
	"go.uber.org/zap/zaptest"

	"luxscaler/internal/config"
	dbm "luxscaler/internal/models/db_models"
	"luxscaler/internal/repositories"
	"luxscaler/pkg/utils"
)

const testWebhookSecret = "whsec_test_secret"

type entitlementFixture struct {
	svc       EntitlementService
	repo      *MockEntitlementRepository
	packs     *MockCreditPackRepository
	lineItems *MockLineItemSource
	metrics   *EntitlementMetrics
}

func newEntitlementFixture(t *testing.T) *entitlementFixture {
	t.Helper()
	cfg := &config.Config{Stripe: config.StripeConfig{WebhookSecret: testWebhookSecret, WebhookTolerance: 5 * time.Minute}}
	f := &entitlementFixture{
		repo:      new(MockEntitlementRepository),
		packs:     new(MockCreditPackRepository),
		lineItems: new(MockLineItemSource),
		metrics:   NewEntitlementMetrics(prometheus.NewRegistry()),
	}
	f.svc = NewEntitlementService(NewWebhookVerifier(cfg), f.repo, f.packs, f.lineItems, f.metrics, zaptest.NewLogger(t))
	return f
}

func signedEvent(t *testing.T, payload string) (body []byte, header string) {
	t.Helper()
	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   []byte(payload),
		Secret:    testWebhookSecret,
		Timestamp: time.Now(),
	})
	return signed.Payload, signed.Header
}

func checkoutPayload(eventID string, accountID uuid.UUID) string {
	return fmt.Sprintf(`{
		"id": %q,
		"object": "event",
		"type": "checkout.session.completed",
		"created": 1735689600,
		"data": {"object": {
			"id": "cs_test_1",
			"object": "checkout.session",
			"client_reference_id": %q,
			"customer": "cus_123",
			"payment_status": "paid"
		}}
	}`, eventID, accountID)
}

func TestHandleWebhook_BadSignatureRejectedWithoutMutation(t *testing.T) {
	f := newEntitlementFixture(t)
	body, _ := signedEvent(t, checkoutPayload("evt_1", uuid.New()))

	forged := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   body,
		Secret:    "whsec_someone_else",
		Timestamp: time.Now(),
	})

	_, err := f.svc.HandleWebhook(context.Background(), body, forged.Header)

	assert.ErrorIs(t, err, utils.ErrInvalidSignature)
	f.repo.AssertNotCalled(t, "ApplyCredit", mock.Anything, mock.Anything)
	f.repo.AssertNotCalled(t, "ApplySubscriptionStatus", mock.Anything, mock.Anything)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.events.WithLabelValues("unverified", "rejected")))
}

func TestHandleWebhook_TamperedBodyRejected(t *testing.T) {
	f := newEntitlementFixture(t)
	_, header := signedEvent(t, checkoutPayload("evt_1", uuid.New()))

	_, err := f.svc.HandleWebhook(context.Background(), []byte(checkoutPayload("evt_1", uuid.New())), header)

	assert.ErrorIs(t, err, utils.ErrInvalidSignature)
	f.repo.AssertNotCalled(t, "ApplyCredit", mock.Anything, mock.Anything)
}

func TestHandleWebhook_MissingSignature(t *testing.T) {
	f := newEntitlementFixture(t)

	_, err := f.svc.HandleWebhook(context.Background(), []byte(`{}`), "  ")

	assert.ErrorIs(t, err, utils.ErrMissingSignature)
}

func TestHandleWebhook_CheckoutCreditsOnceAcrossRedelivery(t *testing.T) {
	f := newEntitlementFixture(t)
	accountID := uuid.New()
	body, header := signedEvent(t, checkoutPayload("evt_checkout_1", accountID))

	f.lineItems.On("ListLineItems", mock.Anything, "cs_test_1").
		Return([]PurchasedItem{{PriceID: "price_pro", Quantity: 2}}, nil)
	f.packs.On("FindByPriceIDs", mock.Anything, []string{"price_pro"}).
		Return(map[string]dbm.CreditPack{"price_pro": {StripePriceID: "price_pro", Tokens: 500}}, nil)

	grant := mock.MatchedBy(func(g repositories.CreditGrant) bool {
		return g.EventID == "evt_checkout_1" && g.AccountID == accountID && g.Tokens == 1000 && g.CustomerID == "cus_123"
	})
	f.repo.On("EventRecorded", mock.Anything, "stripe", "evt_checkout_1").Return(false, nil).Once()
	f.repo.On("EventRecorded", mock.Anything, "stripe", "evt_checkout_1").Return(true, nil).Once()
	f.repo.On("ApplyCredit", mock.Anything, grant).
		Return(repositories.ApplyResult{AccountID: accountID}, nil).Once()

	first, err := f.svc.HandleWebhook(context.Background(), body, header)
	require.NoError(t, err)
	assert.True(t, first.Handled)
	assert.False(t, first.Duplicate)

	second, err := f.svc.HandleWebhook(context.Background(), body, header)
	require.NoError(t, err)
	assert.True(t, second.Duplicate)

	f.repo.AssertNumberOfCalls(t, "ApplyCredit", 1)
	f.lineItems.AssertNumberOfCalls(t, "ListLineItems", 1)
	assert.Equal(t, 1000.0, testutil.ToFloat64(f.metrics.tokensCredited))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.events.WithLabelValues("checkout.session.completed", "duplicate")))
}

func TestHandleWebhook_UnknownTypeAcknowledged(t *testing.T) {
	f := newEntitlementFixture(t)
	body, header := signedEvent(t, `{"id":"evt_9","object":"event","type":"invoice.paid","data":{"object":{"id":"in_1"}}}`)

	out, err := f.svc.HandleWebhook(context.Background(), body, header)

	require.NoError(t, err)
	assert.False(t, out.Handled)
	assert.Equal(t, "invoice.paid", out.EventType)
	f.repo.AssertNotCalled(t, "ApplyCredit", mock.Anything, mock.Anything)
	f.repo.AssertNotCalled(t, "ApplySubscriptionStatus", mock.Anything, mock.Anything)
	f.lineItems.AssertNotCalled(t, "ListLineItems", mock.Anything, mock.Anything)
}

func TestHandleWebhook_SubscriptionDeletedSetsCanceled(t *testing.T) {
	f := newEntitlementFixture(t)
	body, header := signedEvent(t, `{
		"id": "evt_sub_del",
		"object": "event",
		"type": "customer.subscription.deleted",
		"created": 1735689700,
		"data": {"object": {"id": "sub_1", "object": "subscription", "customer": "cus_123", "status": "active"}}
	}`)

	f.repo.On("ApplySubscriptionStatus", mock.Anything, mock.MatchedBy(func(c repositories.SubscriptionChange) bool {
		return c.SubscriptionID == "sub_1" && c.CustomerID == "cus_123" &&
			c.Status == dbm.SubStatusCanceled && c.OccurredAt == 1735689700
	})).Return(repositories.ApplyResult{AccountID: uuid.New()}, nil)

	out, err := f.svc.HandleWebhook(context.Background(), body, header)

	require.NoError(t, err)
	assert.True(t, out.Handled)
	f.repo.AssertExpectations(t)
}

func TestHandleWebhook_HandlerFailureSurfaces(t *testing.T) {
	f := newEntitlementFixture(t)
	body, header := signedEvent(t, `{
		"id": "evt_sub_upd",
		"object": "event",
		"type": "customer.subscription.updated",
		"data": {"object": {"id": "sub_unknown", "customer": "cus_unknown", "status": "past_due"}}
	}`)

	f.repo.On("ApplySubscriptionStatus", mock.Anything, mock.Anything).
		Return(repositories.ApplyResult{}, fmt.Errorf("%w: subscription sub_unknown", utils.ErrUnresolvedBuyer))

	_, err := f.svc.HandleWebhook(context.Background(), body, header)

	assert.ErrorIs(t, err, utils.ErrUnresolvedBuyer)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.events.WithLabelValues("customer.subscription.updated", "failed")))
}

func TestApplyCheckoutCompleted_MissingBuyerReference(t *testing.T) {
	f := newEntitlementFixture(t)
	body, header := signedEvent(t, `{
		"id": "evt_nobuyer",
		"object": "event",
		"type": "checkout.session.completed",
		"data": {"object": {"id": "cs_2", "customer": "cus_9"}}
	}`)

	_, err := f.svc.HandleWebhook(context.Background(), body, header)

	assert.ErrorIs(t, err, utils.ErrUnresolvedBuyer)
	f.repo.AssertNotCalled(t, "ApplyCredit", mock.Anything, mock.Anything)
}

func TestApplyCheckoutCompleted_MetadataFallbackAndEmbeddedItems(t *testing.T) {
	f := newEntitlementFixture(t)
	accountID := uuid.New()
	var session CheckoutSession
	require.NoError(t, json.Unmarshal([]byte(fmt.Sprintf(`{
		"id": "cs_3",
		"payment_status": "paid",
		"metadata": {"user_id": %q},
		"line_items": {"data": [
			{"quantity": 3, "price": {"id": "price_meta", "metadata": {"tokens": "100"}}}
		]}
	}`, accountID)), &session))

	f.repo.On("EventRecorded", mock.Anything, "stripe", "evt_meta").Return(false, nil)
	f.packs.On("FindByPriceIDs", mock.Anything, []string{"price_meta"}).Return(map[string]dbm.CreditPack{}, nil)
	f.repo.On("ApplyCredit", mock.Anything, mock.MatchedBy(func(g repositories.CreditGrant) bool {
		return g.AccountID == accountID && g.Tokens == 300
	})).Return(repositories.ApplyResult{AccountID: accountID}, nil)

	_, err := f.svc.ApplyCheckoutCompleted(context.Background(), stripeEvent("evt_meta", "checkout.session.completed"), session)

	require.NoError(t, err)
	f.lineItems.AssertNotCalled(t, "ListLineItems", mock.Anything, mock.Anything)
	f.repo.AssertExpectations(t)
}

func TestApplyCheckoutCompleted_MalformedReference(t *testing.T) {
	f := newEntitlementFixture(t)

	_, err := f.svc.ApplyCheckoutCompleted(context.Background(), stripeEvent("evt_bad", "checkout.session.completed"),
		CheckoutSession{ID: "cs_5", ClientReferenceID: "not-a-uuid"})

	assert.ErrorIs(t, err, utils.ErrUnresolvedBuyer)
	f.packs.AssertNotCalled(t, "FindByPriceIDs", mock.Anything, mock.Anything)
}

func TestApplyCheckoutCompleted_LineItemFetchFails(t *testing.T) {
	f := newEntitlementFixture(t)
	f.repo.On("EventRecorded", mock.Anything, "stripe", "evt_4").Return(false, nil)
	f.lineItems.On("ListLineItems", mock.Anything, "cs_4").Return(nil, errors.New("stripe unavailable"))

	_, err := f.svc.ApplyCheckoutCompleted(context.Background(), stripeEvent("evt_4", "checkout.session.completed"),
		CheckoutSession{ID: "cs_4", ClientReferenceID: uuid.NewString(), PaymentStatus: "paid"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "stripe unavailable")
	f.repo.AssertNotCalled(t, "ApplyCredit", mock.Anything, mock.Anything)
}

func TestApplyCheckoutCompleted_UnpaidSessionRecordedWithoutCredit(t *testing.T) {
	f := newEntitlementFixture(t)
	accountID := uuid.New()
	body, header := signedEvent(t, fmt.Sprintf(`{
		"id": "evt_unpaid",
		"object": "event",
		"type": "checkout.session.completed",
		"data": {"object": {
			"id": "cs_unpaid",
			"client_reference_id": %q,
			"customer": "cus_7",
			"payment_status": "unpaid",
			"line_items": {"data": [{"quantity": 1, "price": {"id": "price_pro"}}]}
		}}
	}`, accountID))

	f.repo.On("EventRecorded", mock.Anything, "stripe", "evt_unpaid").Return(false, nil)
	f.repo.On("ApplyCredit", mock.Anything, mock.MatchedBy(func(g repositories.CreditGrant) bool {
		return g.EventID == "evt_unpaid" && g.AccountID == accountID && g.Tokens == 0
	})).Return(repositories.ApplyResult{AccountID: accountID}, nil)

	out, err := f.svc.HandleWebhook(context.Background(), body, header)

	require.NoError(t, err)
	assert.True(t, out.Handled)
	f.packs.AssertNotCalled(t, "FindByPriceIDs", mock.Anything, mock.Anything)
	f.lineItems.AssertNotCalled(t, "ListLineItems", mock.Anything, mock.Anything)
	assert.Equal(t, 0.0, testutil.ToFloat64(f.metrics.tokensCredited))
	f.repo.AssertExpectations(t)
}

func TestHandleWebhook_AsyncPaymentSucceededCredits(t *testing.T) {
	f := newEntitlementFixture(t)
	accountID := uuid.New()
	body, header := signedEvent(t, fmt.Sprintf(`{
		"id": "evt_async",
		"object": "event",
		"type": "checkout.session.async_payment_succeeded",
		"data": {"object": {
			"id": "cs_unpaid",
			"client_reference_id": %q,
			"payment_status": "paid",
			"line_items": {"data": [{"quantity": 1, "price": {"id": "price_pro"}}]}
		}}
	}`, accountID))

	f.repo.On("EventRecorded", mock.Anything, "stripe", "evt_async").Return(false, nil)
	f.packs.On("FindByPriceIDs", mock.Anything, []string{"price_pro"}).
		Return(map[string]dbm.CreditPack{"price_pro": {StripePriceID: "price_pro", Tokens: 500}}, nil)
	f.repo.On("ApplyCredit", mock.Anything, mock.MatchedBy(func(g repositories.CreditGrant) bool {
		return g.EventID == "evt_async" && g.Tokens == 500
	})).Return(repositories.ApplyResult{AccountID: accountID}, nil)

	out, err := f.svc.HandleWebhook(context.Background(), body, header)

	require.NoError(t, err)
	assert.True(t, out.Handled)
	assert.Equal(t, 500.0, testutil.ToFloat64(f.metrics.tokensCredited))
}

func TestApplyCheckoutCompleted_RedeliverySkipsStripeLookup(t *testing.T) {
	f := newEntitlementFixture(t)
	accountID := uuid.New()
	f.repo.On("EventRecorded", mock.Anything, "stripe", "evt_done").Return(true, nil)

	res, err := f.svc.ApplyCheckoutCompleted(context.Background(), stripeEvent("evt_done", "checkout.session.completed"),
		CheckoutSession{ID: "cs_done", ClientReferenceID: accountID.String(), PaymentStatus: "paid"})

	require.NoError(t, err)
	assert.True(t, res.Duplicate)
	assert.Equal(t, accountID, res.AccountID)
	f.lineItems.AssertNotCalled(t, "ListLineItems", mock.Anything, mock.Anything)
	f.packs.AssertNotCalled(t, "FindByPriceIDs", mock.Anything, mock.Anything)
	f.repo.AssertNotCalled(t, "ApplyCredit", mock.Anything, mock.Anything)
}

func TestApplyCheckoutCompleted_LedgerLookupFails(t *testing.T) {
	f := newEntitlementFixture(t)
	f.repo.On("EventRecorded", mock.Anything, "stripe", "evt_db").Return(false, errors.New("connection reset"))

	_, err := f.svc.ApplyCheckoutCompleted(context.Background(), stripeEvent("evt_db", "checkout.session.completed"),
		CheckoutSession{ID: "cs_db", ClientReferenceID: uuid.NewString(), PaymentStatus: "paid"})

	require.Error(t, err)
	f.repo.AssertNotCalled(t, "ApplyCredit", mock.Anything, mock.Anything)
}

func TestApplySubscriptionStatusChange_RejectsUnknownStatus(t *testing.T) {
	f := newEntitlementFixture(t)

	_, err := f.svc.ApplySubscriptionStatusChange(context.Background(), stripeEvent("evt_5", "customer.subscription.updated"),
		SubscriptionObject{ID: "sub_1"}, dbm.SubscriptionStatus("bogus"))

	assert.ErrorIs(t, err, utils.ErrInvalidPayload)
}
