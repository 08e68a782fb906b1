package billing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/inversionreal/storefront/pkg/logger"
	"github.com/inversionreal/storefront/pkg/payments"
	"github.com/inversionreal/storefront/pkg/store"
	"github.com/stripe/stripe-go/v76"
)

const eventMarkTimeout = 2 * time.Second

// ErrInvalidSignature is returned when a webhook payload fails verification
var ErrInvalidSignature = payments.ErrInvalidSignature

// Outcome describes what a delivery did
type Outcome string

const (
	OutcomeProcessed Outcome = "processed"
	OutcomeDuplicate Outcome = "duplicate"
	OutcomeSkipped   Outcome = "skipped"
	OutcomeIgnored   Outcome = "ignored"
	outcomeError     Outcome = "error"
)

// Result is returned for every verified delivery
type Result struct {
	EventID string  `json:"eventId"`
	Type    string  `json:"type"`
	Outcome Outcome `json:"outcome"`
}

// Verifier authenticates webhook payloads
type Verifier interface {
	ConstructEvent(payload []byte, signature string) (stripe.Event, error)
}

// Store is the persistence the reconciler writes to
type Store interface {
	ConnectionStore
	GetCourse(ctx context.Context, id int) (*store.Course, error)
	UpsertCustomer(ctx context.Context, email, fullName string) (*store.Customer, error)
	GetOrderBySessionID(ctx context.Context, sessionID string) (*store.Order, error)
	CreateOrder(ctx context.Context, o store.Order) (*store.Order, error)
	GetMembership(ctx context.Context, id int) (*store.Membership, error)
	GetSubscriptionByStripeID(ctx context.Context, stripeSubscriptionID string) (*store.Subscription, error)
	CreateSubscription(ctx context.Context, in store.SubscriptionInput) (*store.Subscription, error)
	UpdateSubscriptionStatus(ctx context.Context, stripeSubscriptionID string, upd store.SubscriptionUpdate) (*store.Subscription, error)
}

// ContractGenerator produces the acceptance contract of a new subscription
type ContractGenerator interface {
	Generate(ctx context.Context, sub *store.Subscription, membership *store.Membership) (*store.Contract, error)
}

// Reconciler applies verified Stripe events to local state
type Reconciler struct {
	verifier  Verifier
	store     Store
	contracts ContractGenerator
	roles     *RoleSyncer
	events    EventLog
	metrics   Metrics
	log       logger.Logger
}

// NewReconciler creates a reconciler. Contracts, role sync and the event log are optional.
func NewReconciler(verifier Verifier, st Store, log logger.Logger) *Reconciler {
	return &Reconciler{
		verifier: verifier,
		store:    st,
		metrics:  noopMetrics{},
		log:      log,
	}
}

// SetContracts enables contract generation for new subscriptions
func (r *Reconciler) SetContracts(c ContractGenerator) {
	r.contracts = c
}

// SetRoleSyncer enables Discord role sync on status changes
func (r *Reconciler) SetRoleSyncer(s *RoleSyncer) {
	r.roles = s
}

// SetEventLog enables the delivered-event fast path
func (r *Reconciler) SetEventLog(l EventLog) {
	r.events = l
}

// SetMetrics sets the counters deliveries are reported to
func (r *Reconciler) SetMetrics(m Metrics) {
	r.metrics = m
}

// HandleWebhook verifies and applies one delivery.
// ErrInvalidSignature means nothing was read or written. Any other error is a
// persistence failure and the delivery should be retried.
func (r *Reconciler) HandleWebhook(ctx context.Context, payload []byte, signature string) (Result, error) {
	event, err := r.verifier.ConstructEvent(payload, signature)
	if err != nil {
		r.log.Warn("webhook signature verification failed", "error", err)
		return Result{}, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	res := Result{EventID: event.ID, Type: string(event.Type)}
	log := r.log.With("event_id", event.ID, "event_type", res.Type)

	if r.events != nil && event.ID != "" {
		seen, err := r.events.Seen(ctx, event.ID)
		switch {
		case err != nil:
			log.Warn("event log unavailable, processing without it", "error", err)
		case seen:
			log.Info("event already processed")
			res.Outcome = OutcomeDuplicate
			r.metrics.WebhookEvent(res.Type, string(res.Outcome))
			return res, nil
		}
	}

	res.Outcome, err = r.process(ctx, log, event)
	if err != nil {
		log.Error("webhook processing failed", "error", err)
		r.metrics.WebhookEvent(res.Type, string(outcomeError))
		return res, err
	}
	r.markProcessed(ctx, log, event.ID)

	log.Info("webhook processed", "outcome", res.Outcome)
	r.metrics.WebhookEvent(res.Type, string(res.Outcome))
	return res, nil
}

// markProcessed records a successful delivery. It outlives the request so a
// client disconnect after the write still records it.
func (r *Reconciler) markProcessed(ctx context.Context, log logger.Logger, eventID string) {
	if r.events == nil || eventID == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), eventMarkTimeout)
	defer cancel()
	if err := r.events.Mark(ctx, eventID); err != nil {
		log.Warn("failed to record processed event", "error", err)
	}
}

func (r *Reconciler) process(ctx context.Context, log logger.Logger, event stripe.Event) (Outcome, error) {
	ev, err := Decode(event)
	if err != nil {
		log.Warn("malformed event data", "error", err)
		return OutcomeSkipped, nil
	}

	switch e := ev.(type) {
	case CheckoutCompleted:
		return r.handleCheckoutCompleted(ctx, log, e)
	case InvoicePaymentSucceeded:
		return r.handleInvoicePaymentSucceeded(ctx, log, e)
	case SubscriptionChanged:
		return r.handleSubscriptionChanged(ctx, log, e)
	case UnhandledEvent:
		log.Info("unhandled event type")
		return OutcomeIgnored, nil
	default:
		return "", fmt.Errorf("no handler for event variant %T", ev)
	}
}

// handleCheckoutCompleted records a course purchase
func (r *Reconciler) handleCheckoutCompleted(ctx context.Context, log logger.Logger, e CheckoutCompleted) (Outcome, error) {
	log = log.With("session_id", e.SessionID)

	if e.SubscriptionID != "" {
		log.Debug("subscription checkout, settled by invoice")
		return OutcomeIgnored, nil
	}
	courseID, ok := e.courseID()
	if !ok || e.CustomerEmail == "" {
		log.Warn("checkout missing course id or customer email", "course_id", e.CourseID)
		return OutcomeSkipped, nil
	}

	if _, err := r.store.GetOrderBySessionID(ctx, e.SessionID); err == nil {
		return OutcomeDuplicate, nil
	} else if !errors.Is(err, store.ErrNotFound) {
		return "", fmt.Errorf("failed to look up order: %w", err)
	}

	if _, err := r.store.GetCourse(ctx, courseID); errors.Is(err, store.ErrNotFound) {
		log.Warn("checkout references unknown course", "course_id", courseID)
		return OutcomeSkipped, nil
	} else if err != nil {
		return "", fmt.Errorf("failed to look up course: %w", err)
	}

	if _, err := r.store.UpsertCustomer(ctx, e.CustomerEmail, e.CustomerName); err != nil {
		return "", fmt.Errorf("failed to upsert customer: %w", err)
	}

	order := store.Order{
		CustomerEmail:   e.CustomerEmail,
		CustomerName:    e.CustomerName,
		CourseID:        courseID,
		Amount:          float64(e.AmountTotal) / 100,
		StripeSessionID: e.SessionID,
		PaymentStatus:   "completed",
		PaymentProvider: "stripe",
	}
	if e.PaymentIntentID != "" {
		order.StripePaymentIntentID = &e.PaymentIntentID
	}
	created, err := r.store.CreateOrder(ctx, order)
	if errors.Is(err, store.ErrDuplicate) {
		return OutcomeDuplicate, nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to create order: %w", err)
	}

	log.Info("course order recorded", "order_id", created.ID, "course_id", courseID, "email", e.CustomerEmail)
	return OutcomeProcessed, nil
}

// handleInvoicePaymentSucceeded creates the local subscription on its first paid invoice
func (r *Reconciler) handleInvoicePaymentSucceeded(ctx context.Context, log logger.Logger, e InvoicePaymentSucceeded) (Outcome, error) {
	log = log.With("subscription_id", e.SubscriptionID, "invoice_id", e.InvoiceID)

	membershipID, ok := e.membershipID()
	if e.SubscriptionID == "" || !ok || e.CustomerEmail == "" {
		log.Warn("invoice missing subscription, membership or customer email", "membership_id", e.MembershipID)
		return OutcomeSkipped, nil
	}

	if _, err := r.store.GetSubscriptionByStripeID(ctx, e.SubscriptionID); err == nil {
		return OutcomeDuplicate, nil
	} else if !errors.Is(err, store.ErrNotFound) {
		return "", fmt.Errorf("failed to look up subscription: %w", err)
	}

	membership, err := r.store.GetMembership(ctx, membershipID)
	if errors.Is(err, store.ErrNotFound) {
		log.Warn("invoice references unknown membership", "membership_id", membershipID)
		return OutcomeSkipped, nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to look up membership: %w", err)
	}

	name := e.CustomerName
	if name == "" {
		name = e.CustomerEmail
	}
	sub, err := r.store.CreateSubscription(ctx, store.SubscriptionInput{
		MembershipID:         membershipID,
		CustomerEmail:        e.CustomerEmail,
		CustomerName:         name,
		StripeSubscriptionID: e.SubscriptionID,
		StripeCustomerID:     e.CustomerID,
		Status:               store.StatusActive,
		CurrentPeriodStart:   e.CurrentPeriodStart,
		CurrentPeriodEnd:     e.CurrentPeriodEnd,
	})
	if errors.Is(err, store.ErrDuplicate) {
		return OutcomeDuplicate, nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to create subscription: %w", err)
	}
	log.Info("subscription created", "id", sub.ID, "membership_id", membershipID, "email", sub.CustomerEmail)

	if r.contracts != nil {
		_, err := r.contracts.Generate(ctx, sub, membership)
		if err != nil {
			log.Error("failed to generate contract", "error", err)
			captureError(ctx, err)
		}
		r.metrics.RecordContract(err)
	}
	r.roles.Sync(ctx, sub.CustomerEmail, sub.Status)

	return OutcomeProcessed, nil
}

// handleSubscriptionChanged mirrors provider status and syncs the chat role
func (r *Reconciler) handleSubscriptionChanged(ctx context.Context, log logger.Logger, e SubscriptionChanged) (Outcome, error) {
	log = log.With("subscription_id", e.SubscriptionID)
	if e.SubscriptionID == "" {
		log.Warn("subscription event without id")
		return OutcomeSkipped, nil
	}

	sub, err := r.store.UpdateSubscriptionStatus(ctx, e.SubscriptionID, store.SubscriptionUpdate{
		Status:             e.status(),
		CancelAtPeriodEnd:  e.CancelAtPeriodEnd,
		CurrentPeriodStart: e.CurrentPeriodStart,
		CurrentPeriodEnd:   e.CurrentPeriodEnd,
	})
	if errors.Is(err, store.ErrNotFound) {
		log.Warn("subscription not found locally")
		return OutcomeSkipped, nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to update subscription: %w", err)
	}
	log.Info("subscription status updated", "status", sub.Status, "cancel_at_period_end", sub.CancelAtPeriodEnd)

	r.roles.Sync(ctx, sub.CustomerEmail, sub.Status)
	return OutcomeProcessed, nil
}

// captureError reports a swallowed side-effect failure to Sentry
func captureError(ctx context.Context, err error) {
	if hub := sentry.GetHubFromContext(ctx); hub != nil {
		hub.CaptureException(err)
		return
	}
	sentry.CaptureException(err)
}
