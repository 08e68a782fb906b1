package handlers

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/inversionreal/storefront/pkg/cache"
	"github.com/inversionreal/storefront/pkg/payments"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
)

// call runs handler against a recorded request. params are path parameter name/value pairs.
func call(t *testing.T, handler echo.HandlerFunc, method, target, body string, params ...string) *httptest.ResponseRecorder {
	t.Helper()
	return callWith(t, handler, method, target, body, nil, params...)
}

// callWith is call with a hook to adjust the request and context before the handler runs
func callWith(t *testing.T, handler echo.HandlerFunc, method, target, body string, setup func(c echo.Context), params ...string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	for i := 0; i+1 < len(params); i += 2 {
		c.SetParamNames(append(c.ParamNames(), params[i])...)
		c.SetParamValues(append(c.ParamValues(), params[i+1])...)
	}
	if setup != nil {
		setup(c)
	}
	require.NoError(t, handler(c))
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v))
}

func newCache(t *testing.T) (*cache.Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	c, err := cache.NewClient("redis://" + mr.Addr())
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c, mr
}

type fakeRecorder struct {
	mu        sync.Mutex
	checkouts []string
	logins    []bool
}

func (r *fakeRecorder) RecordCheckout(kind string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.checkouts = append(r.checkouts, kind)
}

func (r *fakeRecorder) RecordLoginAttempt(success bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logins = append(r.logins, success)
}

type fakeGateway struct {
	email     string
	canceled  string
	periodEnd time.Time
	err       error
}

func (g *fakeGateway) CreateCourseCheckout(ctx context.Context, item payments.CourseItem) (*payments.CheckoutSession, error) {
	if g.err != nil {
		return nil, g.err
	}
	return &payments.CheckoutSession{ID: "cs_course", URL: "https://checkout.stripe.com/c/cs_course"}, nil
}

func (g *fakeGateway) CreateMembershipCheckout(ctx context.Context, item payments.MembershipItem, email string) (*payments.CheckoutSession, error) {
	if g.err != nil {
		return nil, g.err
	}
	g.email = email
	return &payments.CheckoutSession{ID: "cs_membership", URL: "https://checkout.stripe.com/c/cs_membership"}, nil
}

func (g *fakeGateway) GetSubscription(ctx context.Context, subscriptionID string) (*payments.SubscriptionState, error) {
	if g.err != nil {
		return nil, g.err
	}
	return &payments.SubscriptionState{ID: subscriptionID, Status: "active"}, nil
}

func (g *fakeGateway) CancelAtPeriodEnd(ctx context.Context, subscriptionID string) (*payments.SubscriptionState, error) {
	if g.err != nil {
		return nil, g.err
	}
	g.canceled = subscriptionID
	return &payments.SubscriptionState{
		ID:                 subscriptionID,
		Status:             "active",
		CancelAtPeriodEnd:  true,
		CurrentPeriodStart: g.periodEnd.AddDate(0, -1, 0),
		CurrentPeriodEnd:   g.periodEnd,
	}, nil
}
