package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/inversionreal/storefront/pkg/billing"
	"github.com/inversionreal/storefront/pkg/logger"
	"github.com/inversionreal/storefront/pkg/models"
	"github.com/inversionreal/storefront/pkg/store"
	"github.com/inversionreal/storefront/pkg/testdata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupCheckoutTest(t *testing.T) (*CheckoutHandler, *store.Store, *fakeGateway, *fakeRecorder) {
	t.Helper()
	s := testdata.OpenStore(t)
	gw := &fakeGateway{periodEnd: time.Date(2026, 12, 1, 0, 0, 0, 0, time.UTC)}
	rec := &fakeRecorder{}
	h := NewCheckoutHandler(billing.NewCheckout(gw, s, logger.Discard()), s)
	h.SetMetrics(rec)
	return h, s, gw, rec
}

func TestCheckoutHandler_Course(t *testing.T) {
	h, s, gw, metrics := setupCheckoutTest(t)
	course := testdata.CreateCourse(t, s)

	t.Run("Success - Session created", func(t *testing.T) {
		rec := call(t, h.CreateCourseCheckout, http.MethodPost, "/api/stripe/checkout", fmt.Sprintf(`{"courseId":%d}`, course.ID))
		require.Equal(t, http.StatusOK, rec.Code)

		var resp models.CheckoutResponse
		decode(t, rec, &resp)
		assert.Equal(t, "cs_course", resp.SessionID)
		assert.Equal(t, []string{"course"}, metrics.checkouts)
	})

	t.Run("Failure - Unknown course", func(t *testing.T) {
		rec := call(t, h.CreateCourseCheckout, http.MethodPost, "/api/stripe/checkout", `{"courseId":9999}`)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("Failure - Missing course id", func(t *testing.T) {
		rec := call(t, h.CreateCourseCheckout, http.MethodPost, "/api/stripe/checkout", `{}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("Failure - Provider error", func(t *testing.T) {
		gw.err = errors.New("stripe: card_declined")
		defer func() { gw.err = nil }()

		rec := call(t, h.CreateCourseCheckout, http.MethodPost, "/api/stripe/checkout", fmt.Sprintf(`{"courseId":%d}`, course.ID))
		assert.Equal(t, http.StatusBadGateway, rec.Code)
		assert.NotContains(t, rec.Body.String(), "card_declined")
	})
}

func TestCheckoutHandler_Subscription(t *testing.T) {
	h, s, gw, metrics := setupCheckoutTest(t)
	m := testdata.CreateMembership(t, s)

	t.Run("Success - Session created with email", func(t *testing.T) {
		body := fmt.Sprintf(`{"membershipId":%d,"customerEmail":"ana@example.com"}`, m.ID)
		rec := call(t, h.CreateSubscriptionCheckout, http.MethodPost, "/api/stripe/subscription-checkout", body)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "cs_membership")
		assert.Equal(t, "ana@example.com", gw.email)
		assert.Equal(t, []string{"membership"}, metrics.checkouts)
	})

	t.Run("Failure - Invalid email", func(t *testing.T) {
		body := fmt.Sprintf(`{"membershipId":%d,"customerEmail":"not-an-email"}`, m.ID)
		rec := call(t, h.CreateSubscriptionCheckout, http.MethodPost, "/api/stripe/subscription-checkout", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("Failure - Inactive membership", func(t *testing.T) {
		in := testdata.MembershipInput()
		in.IsActive = false
		inactive, err := s.CreateMembership(context.Background(), in)
		require.NoError(t, err)

		rec := call(t, h.CreateSubscriptionCheckout, http.MethodPost, "/api/stripe/subscription-checkout",
			fmt.Sprintf(`{"membershipId":%d}`, inactive.ID))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestCheckoutHandler_CancelAndList(t *testing.T) {
	h, s, gw, _ := setupCheckoutTest(t)
	m := testdata.CreateMembership(t, s)
	sub := testdata.CreateSubscription(t, s, m.ID)

	t.Run("Success - Cancel at period end", func(t *testing.T) {
		rec := call(t, h.CancelSubscription, http.MethodPost, "/api/subscriptions/cancel",
			fmt.Sprintf(`{"stripeSubscriptionId":%q}`, sub.StripeSubscriptionID))
		require.Equal(t, http.StatusOK, rec.Code)

		var resp models.CancelSubscriptionResponse
		decode(t, rec, &resp)
		assert.True(t, resp.Success)
		require.NotNil(t, resp.PeriodEnd)
		assert.True(t, gw.periodEnd.Equal(*resp.PeriodEnd))

		stored, err := s.GetSubscriptionByStripeID(context.Background(), sub.StripeSubscriptionID)
		require.NoError(t, err)
		assert.True(t, stored.CancelAtPeriodEnd)
		assert.Equal(t, store.StatusActive, stored.Status)
	})

	t.Run("Failure - Unknown subscription", func(t *testing.T) {
		rec := call(t, h.CancelSubscription, http.MethodPost, "/api/subscriptions/cancel", `{"stripeSubscriptionId":"sub_missing"}`)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("Success - List by email", func(t *testing.T) {
		rec := call(t, h.ListSubscriptions, http.MethodGet, "/api/subscriptions?email="+sub.CustomerEmail, "")
		require.Equal(t, http.StatusOK, rec.Code)

		var resp struct {
			Subscriptions []store.Subscription `json:"subscriptions"`
		}
		decode(t, rec, &resp)
		require.Len(t, resp.Subscriptions, 1)
		assert.Equal(t, sub.StripeSubscriptionID, resp.Subscriptions[0].StripeSubscriptionID)
	})

	t.Run("Failure - List without email", func(t *testing.T) {
		rec := call(t, h.ListSubscriptions, http.MethodGet, "/api/subscriptions", "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestCheckoutHandler_AcceptTerms(t *testing.T) {
	h, _, _, _ := setupCheckoutTest(t)

	rec := call(t, h.AcceptTerms, http.MethodPost, "/api/memberships/terms",
		`{"customerName":"Ana Pérez","customerEmail":"ana@example.com","membershipName":"Trading en Vivo"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "proceed to payment")

	rec = call(t, h.AcceptTerms, http.MethodPost, "/api/memberships/terms", `{"customerEmail":"ana@example.com"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
