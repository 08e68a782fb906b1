package billing

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/inversionreal/storefront/pkg/logger"
	"github.com/inversionreal/storefront/pkg/payments"
	"github.com/inversionreal/storefront/pkg/store"
	"github.com/stripe/stripe-go/v76"
)

// Gateway is the payment provider surface checkout needs
type Gateway interface {
	CreateCourseCheckout(ctx context.Context, item payments.CourseItem) (*payments.CheckoutSession, error)
	CreateMembershipCheckout(ctx context.Context, item payments.MembershipItem, customerEmail string) (*payments.CheckoutSession, error)
	GetSubscription(ctx context.Context, subscriptionID string) (*payments.SubscriptionState, error)
	CancelAtPeriodEnd(ctx context.Context, subscriptionID string) (*payments.SubscriptionState, error)
}

// CatalogStore reads sellable items and writes cancellation state
type CatalogStore interface {
	GetCourse(ctx context.Context, id int) (*store.Course, error)
	GetMembership(ctx context.Context, id int) (*store.Membership, error)
	GetSubscriptionByStripeID(ctx context.Context, stripeSubscriptionID string) (*store.Subscription, error)
	UpdateSubscriptionStatus(ctx context.Context, stripeSubscriptionID string, upd store.SubscriptionUpdate) (*store.Subscription, error)
}

// Checkout starts purchases and cancellations
type Checkout struct {
	gateway Gateway
	store   CatalogStore
	log     logger.Logger
}

// NewCheckout creates the checkout service
func NewCheckout(gateway Gateway, st CatalogStore, log logger.Logger) *Checkout {
	return &Checkout{gateway: gateway, store: st, log: log}
}

// StartMembershipCheckout opens a subscription session for an active membership.
// Missing or inactive memberships yield store.ErrNotFound.
func (c *Checkout) StartMembershipCheckout(ctx context.Context, membershipID int, customerEmail string) (*payments.CheckoutSession, error) {
	m, err := c.store.GetMembership(ctx, membershipID)
	if err != nil {
		return nil, err
	}
	if !m.IsActive {
		return nil, store.ErrNotFound
	}

	return c.gateway.CreateMembershipCheckout(ctx, payments.MembershipItem{
		ID:           m.ID,
		Name:         m.Name,
		Description:  m.Description,
		MonthlyPrice: m.MonthlyPrice,
		StartDate:    m.StartDate,
	}, strings.TrimSpace(customerEmail))
}

// StartCourseCheckout opens a one-time payment session for an active course
func (c *Checkout) StartCourseCheckout(ctx context.Context, courseID int) (*payments.CheckoutSession, error) {
	course, err := c.store.GetCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}
	if !course.IsActive {
		return nil, store.ErrNotFound
	}

	return c.gateway.CreateCourseCheckout(ctx, payments.CourseItem{
		ID:          course.ID,
		Title:       course.Title,
		Description: course.Description,
		Price:       course.Price,
		ImageURL:    course.ImageURL,
	})
}

// CancelSubscription schedules cancellation at period end and mirrors the
// provider's view locally. A subscription already ending is not updated again.
func (c *Checkout) CancelSubscription(ctx context.Context, stripeSubscriptionID string) (*store.Subscription, error) {
	local, err := c.store.GetSubscriptionByStripeID(ctx, stripeSubscriptionID)
	if err != nil {
		return nil, err
	}

	state, err := c.gateway.GetSubscription(ctx, stripeSubscriptionID)
	if err != nil {
		return nil, err
	}
	if state.Status != string(stripe.SubscriptionStatusCanceled) && !state.CancelAtPeriodEnd {
		state, err = c.gateway.CancelAtPeriodEnd(ctx, stripeSubscriptionID)
		if err != nil {
			return nil, err
		}
	}

	upd := store.SubscriptionUpdate{
		Status:            state.Status,
		CancelAtPeriodEnd: state.CancelAtPeriodEnd,
	}
	if upd.Status == "" {
		upd.Status = local.Status
	}
	if !state.CurrentPeriodEnd.IsZero() {
		start, end := state.CurrentPeriodStart, state.CurrentPeriodEnd
		upd.CurrentPeriodStart, upd.CurrentPeriodEnd = &start, &end
	}
	sub, err := c.store.UpdateSubscriptionStatus(ctx, stripeSubscriptionID, upd)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to record cancellation: %w", err)
	}

	c.log.Info("subscription set to cancel at period end",
		"subscription_id", stripeSubscriptionID, "status", sub.Status,
		"period_end", state.CurrentPeriodEnd.Format(time.RFC3339))
	return sub, nil
}
