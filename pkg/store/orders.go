package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"
)

// Customer is a buyer identified by email
type Customer struct {
	ID        int       `json:"id"`
	Email     string    `json:"email"`
	FullName  string    `json:"fullName"`
	CreatedAt time.Time `json:"createdAt"`
}

// Order records a one-time course purchase, keyed by checkout session id
type Order struct {
	ID                    int       `json:"id"`
	CustomerEmail         string    `json:"customerEmail"`
	CustomerName          string    `json:"customerName"`
	CourseID              int       `json:"courseId"`
	Amount                float64   `json:"amount"`
	StripeSessionID       string    `json:"stripeSessionId"`
	StripePaymentIntentID *string   `json:"stripePaymentIntentId,omitempty"`
	PaymentStatus         string    `json:"paymentStatus"`
	PaymentProvider       string    `json:"paymentProvider"`
	CreatedAt             time.Time `json:"createdAt"`
}

var (
	customerColumns = []string{"id", "email", "full_name", "created_at"}
	orderColumns    = []string{
		"id", "customer_email", "customer_name", "course_id", "amount", "stripe_session_id",
		"stripe_payment_intent_id", "payment_status", "payment_provider", "created_at",
	}
)

func scanCustomer(sc scanner) (*Customer, error) {
	var c Customer
	if err := sc.Scan(&c.ID, &c.Email, &c.FullName, &c.CreatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}

func scanOrder(sc scanner) (*Order, error) {
	var (
		o        Order
		intentID sql.NullString
	)
	if err := sc.Scan(&o.ID, &o.CustomerEmail, &o.CustomerName, &o.CourseID, &o.Amount,
		&o.StripeSessionID, &intentID, &o.PaymentStatus, &o.PaymentProvider, &o.CreatedAt); err != nil {
		return nil, err
	}
	o.StripePaymentIntentID = nullString(intentID)
	return &o, nil
}

// UpsertCustomer creates a customer or refreshes the name of an existing one
func (s *Store) UpsertCustomer(ctx context.Context, email, fullName string) (*Customer, error) {
	_, err := s.exec(ctx, s.builder().Insert(tableCustomers).
		Columns("email", "full_name", "created_at").
		Values(email, fullName, s.now()).
		OnConflict(
			entsql.ConflictColumns("email"),
			entsql.ResolveWith(func(u *entsql.UpdateSet) {
				u.SetExcluded("full_name")
			}),
		))
	if err != nil {
		return nil, fmt.Errorf("failed to upsert customer: %w", err)
	}
	q := s.builder().Select(customerColumns...).From(entsql.Table(tableCustomers)).
		Where(entsql.EQ("email", email))
	return one(s.queryRow(ctx, q), scanCustomer)
}

// CreateOrder inserts an order keyed by checkout session id.
// A second insert for the same session returns ErrDuplicate.
func (s *Store) CreateOrder(ctx context.Context, o Order) (*Order, error) {
	id, err := s.insert(ctx, s.builder().Insert(tableOrders).
		Columns("customer_email", "customer_name", "course_id", "amount", "stripe_session_id",
			"stripe_payment_intent_id", "payment_status", "payment_provider", "created_at").
		Values(o.CustomerEmail, o.CustomerName, o.CourseID, o.Amount, o.StripeSessionID,
			nullable(o.StripePaymentIntentID), o.PaymentStatus, o.PaymentProvider, s.now()).
		OnConflict(entsql.ConflictColumns("stripe_session_id"), entsql.DoNothing()))
	if err != nil {
		return nil, fmt.Errorf("failed to create order: %w", err)
	}
	q := s.builder().Select(orderColumns...).From(entsql.Table(tableOrders)).Where(entsql.EQ("id", id))
	return one(s.queryRow(ctx, q), scanOrder)
}

// GetOrderBySessionID returns the order created for a checkout session
func (s *Store) GetOrderBySessionID(ctx context.Context, sessionID string) (*Order, error) {
	q := s.builder().Select(orderColumns...).From(entsql.Table(tableOrders)).
		Where(entsql.EQ("stripe_session_id", sessionID))
	return one(s.queryRow(ctx, q), scanOrder)
}

// ListOrdersByCourse returns a course's orders newest first
func (s *Store) ListOrdersByCourse(ctx context.Context, courseID int) ([]*Order, error) {
	q := s.builder().Select(orderColumns...).From(entsql.Table(tableOrders)).
		Where(entsql.EQ("course_id", courseID)).
		OrderBy(entsql.Desc("created_at"), entsql.Desc("id"))
	list, err := queryAll(ctx, s, q, scanOrder)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	return list, nil
}

// CountOrders returns the number of orders, used by tests and the admin dashboard
func (s *Store) CountOrders(ctx context.Context) (int, error) {
	var n int
	q := s.builder().Select(entsql.Count("*")).From(entsql.Table(tableOrders))
	if err := s.queryRow(ctx, q).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count orders: %w", err)
	}
	return n, nil
}
