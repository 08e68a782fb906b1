package payments

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"github.com/stripe/stripe-go/v76/webhook"
)

// ErrInvalidSignature is returned when a webhook payload fails verification
var ErrInvalidSignature = errors.New("invalid webhook signature")

// Config holds Stripe configuration
type Config struct {
	SecretKey     string
	WebhookSecret string
	Currency      string
	BaseURL       string

	// APIURL overrides the Stripe API endpoint, used by tests
	APIURL     string
	HTTPClient *http.Client
}

// Gateway wraps the Stripe API calls the storefront needs
type Gateway struct {
	api    *client.API
	config Config
	now    func() time.Time
}

// CheckoutSession is the subset of a created session the API returns to callers
type CheckoutSession struct {
	ID        string `json:"sessionId"`
	URL       string `json:"url"`
	ExpiresAt int64  `json:"expiresAt"`
}

// SubscriptionState is the provider view of a subscription
type SubscriptionState struct {
	ID                 string
	Status             string
	CancelAtPeriodEnd  bool
	CurrentPeriodStart time.Time
	CurrentPeriodEnd   time.Time
}

// NewGateway creates a Stripe gateway. The key is bound to this client, not to the
// package-level stripe.Key, so several gateways can coexist in tests.
func NewGateway(cfg Config) *Gateway {
	if cfg.Currency == "" {
		cfg.Currency = string(stripe.CurrencyUSD)
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}

	backendCfg := func() *stripe.BackendConfig {
		c := &stripe.BackendConfig{
			HTTPClient:        httpClient,
			MaxNetworkRetries: stripe.Int64(0),
			LeveledLogger:     &stripe.LeveledLogger{Level: stripe.LevelError},
		}
		if cfg.APIURL != "" {
			c.URL = stripe.String(cfg.APIURL)
		}
		return c
	}

	api := &client.API{}
	api.Init(cfg.SecretKey, &stripe.Backends{
		API:     stripe.GetBackendWithConfig(stripe.APIBackend, backendCfg()),
		Connect: stripe.GetBackendWithConfig(stripe.ConnectBackend, backendCfg()),
		Uploads: stripe.GetBackendWithConfig(stripe.UploadsBackend, backendCfg()),
	})

	return &Gateway{
		api:    api,
		config: cfg,
		now:    time.Now,
	}
}

// CreateCourseCheckout opens a one-time payment session for a course
func (g *Gateway) CreateCourseCheckout(ctx context.Context, item CourseItem) (*CheckoutSession, error) {
	params := CourseCheckoutParams(item, g.config.BaseURL, g.config.Currency)
	params.Context = ctx

	sess, err := g.api.CheckoutSessions.New(params)
	if err != nil {
		return nil, fmt.Errorf("failed to create checkout session: %w", err)
	}

	log.Printf("🛒 Course checkout created: course_id=%d, session=%s", item.ID, sess.ID)
	return &CheckoutSession{ID: sess.ID, URL: sess.URL, ExpiresAt: sess.ExpiresAt}, nil
}

// CreateMembershipCheckout opens a subscription session for a membership,
// deferring the first charge to the membership start date when the trial policy allows it
func (g *Gateway) CreateMembershipCheckout(ctx context.Context, item MembershipItem, customerEmail string) (*CheckoutSession, error) {
	params := MembershipCheckoutParams(item, customerEmail, g.config.BaseURL, g.config.Currency, g.now())
	params.Context = ctx

	sess, err := g.api.CheckoutSessions.New(params)
	if err != nil {
		return nil, fmt.Errorf("failed to create subscription checkout session: %w", err)
	}

	if params.SubscriptionData.TrialEnd != nil {
		log.Printf("🎯 Membership checkout with trial until %s: membership_id=%d, session=%s",
			time.Unix(*params.SubscriptionData.TrialEnd, 0).UTC().Format(time.RFC3339), item.ID, sess.ID)
	} else {
		log.Printf("🎯 Membership checkout charging immediately: membership_id=%d, session=%s", item.ID, sess.ID)
	}
	return &CheckoutSession{ID: sess.ID, URL: sess.URL, ExpiresAt: sess.ExpiresAt}, nil
}

// GetSubscription fetches the provider view of a subscription
func (g *Gateway) GetSubscription(ctx context.Context, subscriptionID string) (*SubscriptionState, error) {
	params := &stripe.SubscriptionParams{}
	params.Context = ctx

	sub, err := g.api.Subscriptions.Get(subscriptionID, params)
	if err != nil {
		return nil, fmt.Errorf("failed to get subscription: %w", err)
	}
	return subscriptionState(sub), nil
}

// CancelAtPeriodEnd schedules a subscription to end when its current period closes.
// No refund is issued.
func (g *Gateway) CancelAtPeriodEnd(ctx context.Context, subscriptionID string) (*SubscriptionState, error) {
	params := &stripe.SubscriptionParams{
		CancelAtPeriodEnd: stripe.Bool(true),
	}
	params.Context = ctx

	sub, err := g.api.Subscriptions.Update(subscriptionID, params)
	if err != nil {
		return nil, fmt.Errorf("failed to cancel subscription: %w", err)
	}

	log.Printf("🚫 Subscription %s set to cancel at period end (status=%s)", sub.ID, sub.Status)
	return subscriptionState(sub), nil
}

// ConstructEvent verifies a webhook payload against the signing secret
func (g *Gateway) ConstructEvent(payload []byte, signature string) (stripe.Event, error) {
	event, err := webhook.ConstructEventWithOptions(payload, signature, g.config.WebhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return stripe.Event{}, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	return event, nil
}

func subscriptionState(sub *stripe.Subscription) *SubscriptionState {
	return &SubscriptionState{
		ID:                 sub.ID,
		Status:             string(sub.Status),
		CancelAtPeriodEnd:  sub.CancelAtPeriodEnd,
		CurrentPeriodStart: time.Unix(sub.CurrentPeriodStart, 0).UTC(),
		CurrentPeriodEnd:   time.Unix(sub.CurrentPeriodEnd, 0).UTC(),
	}
}
