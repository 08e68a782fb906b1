package billing

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/inversionreal/storefront/pkg/payments"
	"github.com/inversionreal/storefront/pkg/store"
	"github.com/stripe/stripe-go/v76"
)

// Stripe event types the reconciler acts on
const (
	EventCheckoutCompleted       = "checkout.session.completed"
	EventInvoicePaymentSucceeded = "invoice.payment_succeeded"
	EventSubscriptionUpdated     = "customer.subscription.updated"
	EventSubscriptionDeleted     = "customer.subscription.deleted"
)

// Event is a decoded webhook event. The set of variants is closed.
type Event interface {
	eventType() string
}

// CheckoutCompleted is a finished checkout session. Course purchases carry a course id;
// membership checkouts carry a subscription id and are settled by the invoice.
type CheckoutCompleted struct {
	SessionID       string
	SubscriptionID  string
	CourseID        string
	CustomerEmail   string
	CustomerName    string
	AmountTotal     int64
	PaymentIntentID string
}

// InvoicePaymentSucceeded is a paid subscription invoice
type InvoicePaymentSucceeded struct {
	InvoiceID          string
	SubscriptionID     string
	CustomerID         string
	CustomerEmail      string
	CustomerName       string
	MembershipID       string
	CurrentPeriodStart *time.Time
	CurrentPeriodEnd   *time.Time
}

// SubscriptionChanged is an updated or deleted subscription
type SubscriptionChanged struct {
	SubscriptionID     string
	Status             string
	CancelAtPeriodEnd  bool
	CurrentPeriodStart *time.Time
	CurrentPeriodEnd   *time.Time
	Deleted            bool
}

// UnhandledEvent is any event type the reconciler does not act on
type UnhandledEvent struct {
	Type string
}

func (CheckoutCompleted) eventType() string       { return EventCheckoutCompleted }
func (InvoicePaymentSucceeded) eventType() string { return EventInvoicePaymentSucceeded }
func (e SubscriptionChanged) eventType() string {
	if e.Deleted {
		return EventSubscriptionDeleted
	}
	return EventSubscriptionUpdated
}
func (e UnhandledEvent) eventType() string { return e.Type }

// Decode maps a verified Stripe event onto its Event variant.
// An error means the event data object could not be parsed.
func Decode(event stripe.Event) (Event, error) {
	if event.Data == nil {
		return nil, fmt.Errorf("event %s has no data", event.ID)
	}

	switch string(event.Type) {
	case EventCheckoutCompleted:
		var sess stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
			return nil, fmt.Errorf("failed to unmarshal checkout session: %w", err)
		}
		return decodeCheckout(&sess), nil

	case EventInvoicePaymentSucceeded:
		var inv stripe.Invoice
		if err := json.Unmarshal(event.Data.Raw, &inv); err != nil {
			return nil, fmt.Errorf("failed to unmarshal invoice: %w", err)
		}
		return decodeInvoice(&inv), nil

	case EventSubscriptionUpdated, EventSubscriptionDeleted:
		var sub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			return nil, fmt.Errorf("failed to unmarshal subscription: %w", err)
		}
		return SubscriptionChanged{
			SubscriptionID:     sub.ID,
			Status:             string(sub.Status),
			CancelAtPeriodEnd:  sub.CancelAtPeriodEnd,
			CurrentPeriodStart: unixTime(sub.CurrentPeriodStart),
			CurrentPeriodEnd:   unixTime(sub.CurrentPeriodEnd),
			Deleted:            string(event.Type) == EventSubscriptionDeleted,
		}, nil

	default:
		return UnhandledEvent{Type: string(event.Type)}, nil
	}
}

func decodeCheckout(sess *stripe.CheckoutSession) CheckoutCompleted {
	ev := CheckoutCompleted{
		SessionID:     sess.ID,
		CourseID:      sess.Metadata[payments.MetadataCourseID],
		CustomerEmail: sess.CustomerEmail,
		AmountTotal:   sess.AmountTotal,
	}
	if sess.CustomerDetails != nil {
		if sess.CustomerDetails.Email != "" {
			ev.CustomerEmail = sess.CustomerDetails.Email
		}
		ev.CustomerName = sess.CustomerDetails.Name
	}
	if sess.Subscription != nil {
		ev.SubscriptionID = sess.Subscription.ID
	}
	if sess.PaymentIntent != nil {
		ev.PaymentIntentID = sess.PaymentIntent.ID
	}
	return ev
}

func decodeInvoice(inv *stripe.Invoice) InvoicePaymentSucceeded {
	ev := InvoicePaymentSucceeded{
		InvoiceID:     inv.ID,
		CustomerEmail: inv.CustomerEmail,
		CustomerName:  inv.CustomerName,
	}
	if inv.Subscription != nil {
		ev.SubscriptionID = inv.Subscription.ID
	}
	if inv.Customer != nil {
		ev.CustomerID = inv.Customer.ID
	}

	// Subscription metadata is copied onto the invoice; line items carry it too.
	if inv.SubscriptionDetails != nil {
		ev.MembershipID = inv.SubscriptionDetails.Metadata[payments.MetadataMembershipID]
	}
	if inv.Lines != nil {
		for _, line := range inv.Lines.Data {
			if ev.MembershipID == "" {
				ev.MembershipID = line.Metadata[payments.MetadataMembershipID]
			}
			if ev.CurrentPeriodEnd == nil && line.Period != nil {
				ev.CurrentPeriodStart = unixTime(line.Period.Start)
				ev.CurrentPeriodEnd = unixTime(line.Period.End)
			}
		}
	}
	return ev
}

// membershipID parses the membership id carried in checkout metadata
func (e InvoicePaymentSucceeded) membershipID() (int, bool) {
	id, err := strconv.Atoi(e.MembershipID)
	return id, err == nil && id > 0
}

// courseID parses the course id carried in checkout metadata
func (e CheckoutCompleted) courseID() (int, bool) {
	id, err := strconv.Atoi(e.CourseID)
	return id, err == nil && id > 0
}

// status is the local status a change maps to. Deletion always cancels.
func (e SubscriptionChanged) status() string {
	if e.Deleted {
		return store.StatusCanceled
	}
	return e.Status
}

func unixTime(sec int64) *time.Time {
	if sec == 0 {
		return nil
	}
	t := time.Unix(sec, 0).UTC()
	return &t
}
