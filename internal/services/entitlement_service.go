package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/client"
	"github.com/stripe/stripe-go/v82/webhook"
	"go.uber.org/zap"

	"luxscaler/internal/config"
	"luxscaler/internal/models/db_models"
	"luxscaler/internal/repositories"
	"luxscaler/pkg/utils"
)

const ProviderStripe = "stripe"

// EventKind is the closed set of provider events that change entitlements.
type EventKind string

const (
	EventCheckoutCompleted   EventKind = "checkout.session.completed"
	EventSubscriptionUpdated EventKind = "customer.subscription.updated"
	EventSubscriptionDeleted EventKind = "customer.subscription.deleted"
	// Delayed payment methods complete the session unpaid and settle here.
	EventCheckoutAsyncPaymentSucceeded EventKind = "checkout.session.async_payment_succeeded"
)

// ---------- Verifier ----------

type WebhookVerifier interface {
	Verify(payload []byte, signature string) (stripe.Event, error)
}

type stripeVerifier struct {
	secret    string
	tolerance time.Duration
}

func NewWebhookVerifier(cfg *config.Config) WebhookVerifier {
	return &stripeVerifier{
		secret:    cfg.Stripe.WebhookSecret,
		tolerance: cfg.Stripe.WebhookTolerance,
	}
}

// Verify checks the signature header against the raw body. It never inspects
// the payload of a rejected request.
func (v *stripeVerifier) Verify(payload []byte, signature string) (stripe.Event, error) {
	if strings.TrimSpace(signature) == "" {
		return stripe.Event{}, utils.ErrMissingSignature
	}
	event, err := webhook.ConstructEventWithOptions(payload, signature, v.secret, webhook.ConstructEventOptions{
		Tolerance:                v.tolerance,
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return stripe.Event{}, fmt.Errorf("%w: %v", utils.ErrInvalidSignature, err)
	}
	return event, nil
}

// ---------- Line items ----------

type PurchasedItem struct {
	PriceID       string
	Quantity      int64
	PriceMetadata map[string]string
}

// LineItemSource fetches what a checkout session sold when the event payload
// does not embed it.
type LineItemSource interface {
	ListLineItems(ctx context.Context, sessionID string) ([]PurchasedItem, error)
}

type stripeLineItems struct {
	api *client.API
}

// NewLineItemSource returns nil when no API key is configured; checkout events
// must then embed their line items.
func NewLineItemSource(cfg *config.Config) LineItemSource {
	if cfg.Stripe.SecretKey == "" {
		return nil
	}
	api := &client.API{}
	api.Init(cfg.Stripe.SecretKey, nil)
	return &stripeLineItems{api: api}
}

func (s *stripeLineItems) ListLineItems(ctx context.Context, sessionID string) ([]PurchasedItem, error) {
	params := &stripe.CheckoutSessionListLineItemsParams{Session: stripe.String(sessionID)}
	params.Context = ctx

	var items []PurchasedItem
	iter := s.api.CheckoutSessions.ListLineItems(params)
	for iter.Next() {
		li := iter.LineItem()
		item := PurchasedItem{Quantity: li.Quantity}
		if li.Price != nil {
			item.PriceID = li.Price.ID
			item.PriceMetadata = li.Price.Metadata
		}
		items = append(items, item)
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("stripe list line items %s: %w", sessionID, err)
	}
	return items, nil
}

// ---------- Payload shapes ----------

type CheckoutSession struct {
	ID                string            `json:"id"`
	ClientReferenceID string            `json:"client_reference_id"`
	Customer          string            `json:"customer"`
	CustomerEmail     string            `json:"customer_email"`
	PaymentStatus     string            `json:"payment_status"`
	Metadata          map[string]string `json:"metadata"`
	LineItems         *struct {
		Data []struct {
			Quantity int64 `json:"quantity"`
			Price    *struct {
				ID       string            `json:"id"`
				Metadata map[string]string `json:"metadata"`
			} `json:"price"`
		} `json:"data"`
	} `json:"line_items"`
}

// Paid reports whether the session's payment has settled.
func (s CheckoutSession) Paid() bool {
	switch s.PaymentStatus {
	case "paid", "no_payment_required":
		return true
	default:
		return false
	}
}

// BuyerReference is the account id the checkout was started for.
func (s CheckoutSession) BuyerReference() string {
	if ref := strings.TrimSpace(s.ClientReferenceID); ref != "" {
		return ref
	}
	return strings.TrimSpace(s.Metadata["user_id"])
}

type SubscriptionObject struct {
	ID       string            `json:"id"`
	Customer string            `json:"customer"`
	Status   string            `json:"status"`
	Metadata map[string]string `json:"metadata"`
}

// ---------- Metrics ----------

type EntitlementMetrics struct {
	events         *prometheus.CounterVec
	tokensCredited prometheus.Counter
}

func NewEntitlementMetrics(reg prometheus.Registerer) *EntitlementMetrics {
	m := &EntitlementMetrics{
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "webhook_events_total",
			Help: "Payment webhook events by type and outcome.",
		}, []string{"type", "outcome"}),
		tokensCredited: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tokens_credited_total",
			Help: "Tokens credited from purchases.",
		}),
	}
	reg.MustRegister(m.events, m.tokensCredited)
	return m
}

func (m *EntitlementMetrics) observe(eventType, outcome string) {
	if m != nil {
		m.events.WithLabelValues(eventType, outcome).Inc()
	}
}

// ---------- Service ----------

type WebhookOutcome struct {
	EventID   string
	EventType string
	Handled   bool
	Duplicate bool
}

type EntitlementService interface {
	// HandleWebhook verifies, routes and applies one delivery.
	HandleWebhook(ctx context.Context, payload []byte, signature string) (WebhookOutcome, error)
	ApplyCheckoutCompleted(ctx context.Context, event stripe.Event, session CheckoutSession) (repositories.ApplyResult, error)
	ApplySubscriptionStatusChange(ctx context.Context, event stripe.Event, sub SubscriptionObject, status db_models.SubscriptionStatus) (repositories.ApplyResult, error)
}

type eventHandler func(ctx context.Context, event stripe.Event) (repositories.ApplyResult, error)

type entitlementService struct {
	verifier     WebhookVerifier
	entitlements repositories.EntitlementRepository
	packs        repositories.CreditPackRepository
	lineItems    LineItemSource
	metrics      *EntitlementMetrics
	log          *zap.Logger
	routes       map[EventKind]eventHandler
}

func NewEntitlementService(
	verifier WebhookVerifier,
	entitlements repositories.EntitlementRepository,
	packs repositories.CreditPackRepository,
	lineItems LineItemSource,
	metrics *EntitlementMetrics,
	log *zap.Logger,
) EntitlementService {
	s := &entitlementService{
		verifier:     verifier,
		entitlements: entitlements,
		packs:        packs,
		lineItems:    lineItems,
		metrics:      metrics,
		log:          log,
	}
	s.routes = map[EventKind]eventHandler{
		EventCheckoutCompleted:             s.onCheckoutCompleted,
		EventCheckoutAsyncPaymentSucceeded: s.onCheckoutCompleted,
		EventSubscriptionUpdated:           s.onSubscriptionChanged,
		EventSubscriptionDeleted:           s.onSubscriptionChanged,
	}
	return s
}

func (s *entitlementService) HandleWebhook(ctx context.Context, payload []byte, signature string) (WebhookOutcome, error) {
	event, err := s.verifier.Verify(payload, signature)
	if err != nil {
		s.metrics.observe("unverified", "rejected")
		return WebhookOutcome{}, err
	}

	out := WebhookOutcome{EventID: event.ID, EventType: string(event.Type)}
	handler, ok := s.routes[EventKind(event.Type)]
	if !ok {
		s.log.Info("webhook ignored, unhandled type",
			zap.String("event_id", event.ID), zap.String("type", out.EventType))
		s.metrics.observe(out.EventType, "ignored")
		return out, nil
	}

	res, err := handler(ctx, event)
	if err != nil {
		s.log.Error("webhook handler failed",
			zap.String("event_id", event.ID), zap.String("type", out.EventType), zap.Error(err))
		s.metrics.observe(out.EventType, "failed")
		return out, err
	}

	out.Handled = true
	out.Duplicate = res.Duplicate
	switch {
	case res.Duplicate:
		s.metrics.observe(out.EventType, "duplicate")
	case res.Stale:
		s.metrics.observe(out.EventType, "stale")
	default:
		s.metrics.observe(out.EventType, "applied")
	}
	return out, nil
}

func (s *entitlementService) onCheckoutCompleted(ctx context.Context, event stripe.Event) (repositories.ApplyResult, error) {
	var session CheckoutSession
	if err := json.Unmarshal(rawObject(event), &session); err != nil {
		return repositories.ApplyResult{}, fmt.Errorf("decode checkout.session: %w", err)
	}
	return s.ApplyCheckoutCompleted(ctx, event, session)
}

func (s *entitlementService) onSubscriptionChanged(ctx context.Context, event stripe.Event) (repositories.ApplyResult, error) {
	var sub SubscriptionObject
	if err := json.Unmarshal(rawObject(event), &sub); err != nil {
		return repositories.ApplyResult{}, fmt.Errorf("decode subscription: %w", err)
	}

	status := db_models.SubscriptionStatus(sub.Status)
	if EventKind(event.Type) == EventSubscriptionDeleted {
		status = db_models.SubStatusCanceled
	}
	return s.ApplySubscriptionStatusChange(ctx, event, sub, status)
}

func (s *entitlementService) ApplyCheckoutCompleted(ctx context.Context, event stripe.Event, session CheckoutSession) (repositories.ApplyResult, error) {
	ref := session.BuyerReference()
	if ref == "" {
		return repositories.ApplyResult{}, fmt.Errorf("%w: checkout session %s has no client reference", utils.ErrUnresolvedBuyer, session.ID)
	}
	accountID, err := uuid.Parse(ref)
	if err != nil {
		return repositories.ApplyResult{}, fmt.Errorf("%w: malformed reference %q", utils.ErrUnresolvedBuyer, ref)
	}

	seen, err := s.entitlements.EventRecorded(ctx, ProviderStripe, event.ID)
	if err != nil {
		return repositories.ApplyResult{}, fmt.Errorf("check webhook ledger: %w", err)
	}
	if seen {
		s.log.Info("checkout already applied", zap.String("event_id", event.ID))
		return repositories.ApplyResult{AccountID: accountID, Duplicate: true}, nil
	}

	var tokens int64
	if session.Paid() {
		if tokens, err = s.creditsFor(ctx, session); err != nil {
			return repositories.ApplyResult{}, err
		}
		if tokens == 0 {
			s.log.Warn("checkout completed without creditable items",
				zap.String("event_id", event.ID),
				zap.String("session_id", session.ID),
				zap.String("account_id", accountID.String()))
		}
	} else {
		s.log.Info("checkout payment not settled, nothing credited",
			zap.String("event_id", event.ID),
			zap.String("session_id", session.ID),
			zap.String("payment_status", session.PaymentStatus))
	}

	res, err := s.entitlements.ApplyCredit(ctx, repositories.CreditGrant{
		Provider:   ProviderStripe,
		EventID:    event.ID,
		EventType:  string(event.Type),
		AccountID:  accountID,
		Tokens:     tokens,
		CustomerID: session.Customer,
		Payload:    rawObject(event),
	})
	if err != nil {
		return res, err
	}

	if res.Duplicate {
		s.log.Info("checkout already applied", zap.String("event_id", event.ID))
	} else {
		s.log.Info("tokens credited",
			zap.String("event_id", event.ID),
			zap.String("account_id", accountID.String()),
			zap.Int64("tokens", tokens))
		if s.metrics != nil {
			s.metrics.tokensCredited.Add(float64(tokens))
		}
	}
	return res, nil
}

func (s *entitlementService) ApplySubscriptionStatusChange(ctx context.Context, event stripe.Event, sub SubscriptionObject, status db_models.SubscriptionStatus) (repositories.ApplyResult, error) {
	if !status.Valid() {
		return repositories.ApplyResult{}, fmt.Errorf("%w: subscription status %q", utils.ErrInvalidPayload, status)
	}

	var accountID uuid.UUID
	if ref := sub.Metadata["user_id"]; ref != "" {
		accountID, _ = uuid.Parse(ref)
	}

	res, err := s.entitlements.ApplySubscriptionStatus(ctx, repositories.SubscriptionChange{
		Provider:       ProviderStripe,
		EventID:        event.ID,
		EventType:      string(event.Type),
		SubscriptionID: sub.ID,
		CustomerID:     sub.Customer,
		AccountID:      accountID,
		Status:         status,
		OccurredAt:     event.Created,
		Payload:        rawObject(event),
	})
	if err != nil {
		return res, err
	}

	if res.Stale {
		s.log.Info("subscription event older than applied state",
			zap.String("event_id", event.ID), zap.String("subscription_id", sub.ID))
	}
	return res, nil
}

func rawObject(event stripe.Event) json.RawMessage {
	if event.Data == nil || len(event.Data.Raw) == 0 {
		return json.RawMessage("null")
	}
	return event.Data.Raw
}

// creditsFor sums quantity * pack tokens over the session's line items. A
// price without a pack may carry a "tokens" metadata value instead.
func (s *entitlementService) creditsFor(ctx context.Context, session CheckoutSession) (int64, error) {
	items, err := s.purchasedItems(ctx, session)
	if err != nil {
		return 0, err
	}

	priceIDs := make([]string, 0, len(items))
	for _, it := range items {
		if it.PriceID != "" {
			priceIDs = append(priceIDs, it.PriceID)
		}
	}
	packs, err := s.packs.FindByPriceIDs(ctx, priceIDs)
	if err != nil {
		return 0, fmt.Errorf("load credit packs: %w", err)
	}

	var total int64
	for _, it := range items {
		qty := it.Quantity
		if qty <= 0 {
			qty = 1
		}
		if pack, ok := packs[it.PriceID]; ok {
			total += qty * pack.Tokens
			continue
		}
		if n, err := strconv.ParseInt(it.PriceMetadata["tokens"], 10, 64); err == nil && n > 0 {
			total += qty * n
			continue
		}
		s.log.Warn("line item has no credit mapping", zap.String("price_id", it.PriceID))
	}
	return total, nil
}

func (s *entitlementService) purchasedItems(ctx context.Context, session CheckoutSession) ([]PurchasedItem, error) {
	if session.LineItems != nil {
		items := make([]PurchasedItem, 0, len(session.LineItems.Data))
		for _, li := range session.LineItems.Data {
			item := PurchasedItem{Quantity: li.Quantity}
			if li.Price != nil {
				item.PriceID = li.Price.ID
				item.PriceMetadata = li.Price.Metadata
			}
			items = append(items, item)
		}
		return items, nil
	}
	if s.lineItems == nil {
		return nil, errors.New("checkout session has no embedded line items and STRIPE_SECRET_KEY is not set")
	}
	return s.lineItems.ListLineItems(ctx, session.ID)
}
