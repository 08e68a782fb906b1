package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"
)

// Subscription statuses mirrored from the payment provider
const (
	StatusActive   = "active"
	StatusPastDue  = "past_due"
	StatusCanceled = "canceled"
	StatusUnpaid   = "unpaid"
)

// Subscription mirrors one provider subscription. Rows are never deleted.
type Subscription struct {
	ID                   int        `json:"id"`
	MembershipID         int        `json:"membershipId"`
	CustomerEmail        string     `json:"customerEmail"`
	CustomerName         string     `json:"customerName"`
	StripeSubscriptionID string     `json:"stripeSubscriptionId"`
	StripeCustomerID     string     `json:"stripeCustomerId"`
	Status               string     `json:"status"`
	CancelAtPeriodEnd    bool       `json:"cancelAtPeriodEnd"`
	CurrentPeriodStart   *time.Time `json:"currentPeriodStart,omitempty"`
	CurrentPeriodEnd     *time.Time `json:"currentPeriodEnd,omitempty"`
	DiscordUserID        *string    `json:"discordUserId,omitempty"`
	CreatedAt            time.Time  `json:"createdAt"`
	UpdatedAt            time.Time  `json:"updatedAt"`
}

// SubscriptionInput holds the fields recorded on first payment
type SubscriptionInput struct {
	MembershipID         int
	CustomerEmail        string
	CustomerName         string
	StripeSubscriptionID string
	StripeCustomerID     string
	Status               string
	CancelAtPeriodEnd    bool
	CurrentPeriodStart   *time.Time
	CurrentPeriodEnd     *time.Time
	DiscordUserID        *string
}

// SubscriptionUpdate carries provider-side changes. Nil period bounds keep the stored value.
type SubscriptionUpdate struct {
	Status             string
	CancelAtPeriodEnd  bool
	CurrentPeriodStart *time.Time
	CurrentPeriodEnd   *time.Time
}

var subscriptionColumns = []string{
	"id", "membership_id", "customer_email", "customer_name", "stripe_subscription_id",
	"stripe_customer_id", "status", "cancel_at_period_end", "current_period_start",
	"current_period_end", "discord_user_id", "created_at", "updated_at",
}

func scanSubscription(sc scanner) (*Subscription, error) {
	var (
		sub         Subscription
		periodStart sql.NullTime
		periodEnd   sql.NullTime
		discordID   sql.NullString
	)
	if err := sc.Scan(&sub.ID, &sub.MembershipID, &sub.CustomerEmail, &sub.CustomerName,
		&sub.StripeSubscriptionID, &sub.StripeCustomerID, &sub.Status, &sub.CancelAtPeriodEnd,
		&periodStart, &periodEnd, &discordID, &sub.CreatedAt, &sub.UpdatedAt); err != nil {
		return nil, err
	}
	sub.CurrentPeriodStart = nullTime(periodStart)
	sub.CurrentPeriodEnd = nullTime(periodEnd)
	sub.DiscordUserID = nullString(discordID)
	return &sub, nil
}

// CreateSubscription inserts a subscription keyed by its provider id.
// A second insert for the same provider id returns ErrDuplicate.
func (s *Store) CreateSubscription(ctx context.Context, in SubscriptionInput) (*Subscription, error) {
	now := s.now()
	id, err := s.insert(ctx, s.builder().Insert(tableSubscriptions).
		Columns("membership_id", "customer_email", "customer_name", "stripe_subscription_id",
			"stripe_customer_id", "status", "cancel_at_period_end", "current_period_start",
			"current_period_end", "discord_user_id", "created_at", "updated_at").
		Values(in.MembershipID, in.CustomerEmail, in.CustomerName, in.StripeSubscriptionID,
			in.StripeCustomerID, in.Status, in.CancelAtPeriodEnd, nullable(in.CurrentPeriodStart),
			nullable(in.CurrentPeriodEnd), nullable(in.DiscordUserID), now, now).
		OnConflict(entsql.ConflictColumns("stripe_subscription_id"), entsql.DoNothing()))
	if err != nil {
		return nil, fmt.Errorf("failed to create subscription: %w", err)
	}
	return s.GetSubscription(ctx, id)
}

// GetSubscription returns a subscription by local id
func (s *Store) GetSubscription(ctx context.Context, id int) (*Subscription, error) {
	q := s.builder().Select(subscriptionColumns...).From(entsql.Table(tableSubscriptions)).
		Where(entsql.EQ("id", id))
	return one(s.queryRow(ctx, q), scanSubscription)
}

// GetSubscriptionByStripeID returns a subscription by provider subscription id
func (s *Store) GetSubscriptionByStripeID(ctx context.Context, stripeSubscriptionID string) (*Subscription, error) {
	q := s.builder().Select(subscriptionColumns...).From(entsql.Table(tableSubscriptions)).
		Where(entsql.EQ("stripe_subscription_id", stripeSubscriptionID))
	return one(s.queryRow(ctx, q), scanSubscription)
}

// ListSubscriptionsByEmail returns a customer's subscriptions newest first
func (s *Store) ListSubscriptionsByEmail(ctx context.Context, email string) ([]*Subscription, error) {
	q := s.builder().Select(subscriptionColumns...).From(entsql.Table(tableSubscriptions)).
		Where(entsql.EQ("customer_email", email)).
		OrderBy(entsql.Desc("created_at"), entsql.Desc("id"))
	list, err := queryAll(ctx, s, q, scanSubscription)
	if err != nil {
		return nil, fmt.Errorf("failed to list subscriptions: %w", err)
	}
	return list, nil
}

// ListSubscriptions returns every subscription newest first
func (s *Store) ListSubscriptions(ctx context.Context) ([]*Subscription, error) {
	q := s.builder().Select(subscriptionColumns...).From(entsql.Table(tableSubscriptions)).
		OrderBy(entsql.Desc("created_at"), entsql.Desc("id"))
	list, err := queryAll(ctx, s, q, scanSubscription)
	if err != nil {
		return nil, fmt.Errorf("failed to list subscriptions: %w", err)
	}
	return list, nil
}

// UpdateSubscriptionStatus applies provider-side changes by provider subscription id
func (s *Store) UpdateSubscriptionStatus(ctx context.Context, stripeSubscriptionID string, upd SubscriptionUpdate) (*Subscription, error) {
	b := s.builder().Update(tableSubscriptions).
		Set("status", upd.Status).
		Set("cancel_at_period_end", upd.CancelAtPeriodEnd).
		Set("updated_at", s.now())
	if upd.CurrentPeriodStart != nil {
		b.Set("current_period_start", *upd.CurrentPeriodStart)
	}
	if upd.CurrentPeriodEnd != nil {
		b.Set("current_period_end", *upd.CurrentPeriodEnd)
	}
	b.Where(entsql.EQ("stripe_subscription_id", stripeSubscriptionID))

	n, err := s.exec(ctx, b)
	if err != nil {
		return nil, fmt.Errorf("failed to update subscription: %w", err)
	}
	if n == 0 {
		return nil, ErrNotFound
	}
	return s.GetSubscriptionByStripeID(ctx, stripeSubscriptionID)
}

// LinkDiscordUser records a chat user id on every subscription of an email
func (s *Store) LinkDiscordUser(ctx context.Context, email, discordUserID string) (int64, error) {
	n, err := s.exec(ctx, s.builder().Update(tableSubscriptions).
		Set("discord_user_id", discordUserID).
		Set("updated_at", s.now()).
		Where(entsql.EQ("customer_email", email)))
	if err != nil {
		return 0, fmt.Errorf("failed to link discord user: %w", err)
	}
	return n, nil
}

// HasActiveSubscription reports whether an email holds at least one active subscription
func (s *Store) HasActiveSubscription(ctx context.Context, email string) (bool, error) {
	q := s.builder().Select(entsql.Count("*")).From(entsql.Table(tableSubscriptions)).
		Where(entsql.And(
			entsql.EQ("customer_email", email),
			entsql.EQ("status", StatusActive),
		))
	var n int
	if err := s.queryRow(ctx, q).Scan(&n); err != nil {
		return false, fmt.Errorf("failed to count subscriptions: %w", err)
	}
	return n > 0, nil
}
