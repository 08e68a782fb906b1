package handlers

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	apierrors "github.com/inversionreal/storefront/pkg/api/errors"
	"github.com/inversionreal/storefront/pkg/billing"
	"github.com/inversionreal/storefront/pkg/models"
	"github.com/inversionreal/storefront/pkg/store"
	"github.com/labstack/echo/v4"
)

// CheckoutHandler starts purchases and manages customer subscriptions
type CheckoutHandler struct {
	checkout  *billing.Checkout
	store     *store.Store
	validator *validator.Validate
	metrics   Recorder
}

// NewCheckoutHandler creates a new checkout handler
func NewCheckoutHandler(checkout *billing.Checkout, st *store.Store) *CheckoutHandler {
	return &CheckoutHandler{
		checkout:  checkout,
		store:     st,
		validator: validator.New(),
		metrics:   noopRecorder{},
	}
}

// SetMetrics enables checkout counters
func (h *CheckoutHandler) SetMetrics(m Recorder) {
	h.metrics = m
}

// CreateCourseCheckout godoc
// @Summary Start course checkout
// @Description Open a one-time Stripe Checkout session for an active course
// @Tags Checkout
// @Accept json
// @Produce json
// @Param request body models.CourseCheckoutRequest true "Course to buy"
// @Success 200 {object} models.CheckoutResponse "Checkout session"
// @Failure 400 {object} models.ErrorResponse "Validation error"
// @Failure 404 {object} models.ErrorResponse "Course not found"
// @Failure 502 {object} models.ErrorResponse "Payment provider error"
// @Router /stripe/checkout [post]
func (h *CheckoutHandler) CreateCourseCheckout(c echo.Context) error {
	var req models.CourseCheckoutRequest
	if err := c.Bind(&req); err != nil {
		return apierrors.BadRequestError(c, "invalid_request", "Invalid request body")
	}
	if err := h.validator.Struct(req); err != nil {
		return apierrors.ValidationError(c, err)
	}

	session, err := h.checkout.StartCourseCheckout(c.Request().Context(), req.CourseID)
	if err != nil {
		return checkoutError(c, err, "course")
	}
	h.metrics.RecordCheckout("course")

	return c.JSON(http.StatusOK, models.CheckoutResponse{SessionID: session.ID, URL: session.URL})
}

// CreateSubscriptionCheckout godoc
// @Summary Start membership checkout
// @Description Open a Stripe subscription session. The first charge is deferred to the membership start date when it is at least 2 days away.
// @Tags Checkout
// @Accept json
// @Produce json
// @Param request body models.SubscriptionCheckoutRequest true "Membership to subscribe to"
// @Success 200 {object} models.CheckoutResponse "Checkout session"
// @Failure 400 {object} models.ErrorResponse "Validation error"
// @Failure 404 {object} models.ErrorResponse "Membership not found"
// @Failure 502 {object} models.ErrorResponse "Payment provider error"
// @Router /stripe/subscription-checkout [post]
func (h *CheckoutHandler) CreateSubscriptionCheckout(c echo.Context) error {
	var req models.SubscriptionCheckoutRequest
	if err := c.Bind(&req); err != nil {
		return apierrors.BadRequestError(c, "invalid_request", "Invalid request body")
	}
	if err := h.validator.Struct(req); err != nil {
		return apierrors.ValidationError(c, err)
	}

	session, err := h.checkout.StartMembershipCheckout(c.Request().Context(), req.MembershipID, req.CustomerEmail)
	if err != nil {
		return checkoutError(c, err, "membership")
	}
	h.metrics.RecordCheckout("membership")

	return c.JSON(http.StatusOK, models.CheckoutResponse{SessionID: session.ID, URL: session.URL})
}

// CancelSubscription godoc
// @Summary Cancel subscription
// @Description Schedule cancellation at the end of the current billing period. No refund is issued.
// @Tags Subscriptions
// @Accept json
// @Produce json
// @Param request body models.CancelSubscriptionRequest true "Subscription to cancel"
// @Success 200 {object} models.CancelSubscriptionResponse "Cancellation scheduled"
// @Failure 400 {object} models.ErrorResponse "Validation error"
// @Failure 404 {object} models.ErrorResponse "Subscription not found"
// @Failure 502 {object} models.ErrorResponse "Payment provider error"
// @Router /subscriptions/cancel [post]
func (h *CheckoutHandler) CancelSubscription(c echo.Context) error {
	var req models.CancelSubscriptionRequest
	if err := c.Bind(&req); err != nil {
		return apierrors.BadRequestError(c, "invalid_request", "Invalid request body")
	}
	if err := h.validator.Struct(req); err != nil {
		return apierrors.ValidationError(c, err)
	}

	sub, err := h.checkout.CancelSubscription(c.Request().Context(), strings.TrimSpace(req.StripeSubscriptionID))
	if err != nil {
		return checkoutError(c, err, "subscription")
	}

	return c.JSON(http.StatusOK, models.CancelSubscriptionResponse{
		Success:   true,
		Message:   "Subscription will be canceled at the end of the current billing period",
		PeriodEnd: sub.CurrentPeriodEnd,
	})
}

// ListSubscriptions godoc
// @Summary List customer subscriptions
// @Tags Subscriptions
// @Produce json
// @Param email query string true "Customer email"
// @Success 200 {object} map[string]interface{} "subscriptions"
// @Failure 400 {object} models.ErrorResponse "Missing email"
// @Failure 500 {object} models.ErrorResponse "Internal server error"
// @Router /subscriptions [get]
func (h *CheckoutHandler) ListSubscriptions(c echo.Context) error {
	email := queryEmail(c)
	if email == "" {
		return apierrors.BadRequestError(c, "missing_email", "Email is required")
	}

	subs, err := h.store.ListSubscriptionsByEmail(c.Request().Context(), email)
	if err != nil {
		return apierrors.DatabaseError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"subscriptions": subs,
	})
}

// AcceptTerms godoc
// @Summary Accept membership terms
// @Description Validate a terms acceptance before checkout. The contract itself is produced once the first payment succeeds.
// @Tags Checkout
// @Accept json
// @Produce json
// @Param request body models.TermsAcceptanceRequest true "Terms acceptance"
// @Success 200 {object} models.SuccessResponse "Terms accepted"
// @Failure 400 {object} models.ErrorResponse "Validation error"
// @Router /memberships/terms [post]
func (h *CheckoutHandler) AcceptTerms(c echo.Context) error {
	var req models.TermsAcceptanceRequest
	if err := c.Bind(&req); err != nil {
		return apierrors.BadRequestError(c, "invalid_request", "Invalid request body")
	}
	if err := h.validator.Struct(req); err != nil {
		return apierrors.ValidationError(c, err)
	}

	log.Printf("📝 Terms accepted by %s for %q", req.CustomerEmail, req.MembershipName)
	return c.JSON(http.StatusOK, models.SuccessResponse{
		Success: true,
		Message: "Terms accepted, proceed to payment",
	})
}

func checkoutError(c echo.Context, err error, resource string) error {
	if errors.Is(err, store.ErrNotFound) {
		return apierrors.NotFoundError(c, resource)
	}
	if errors.Is(err, store.ErrDuplicate) || errors.Is(err, store.ErrMembershipInUse) {
		return apierrors.StoreError(c, err, resource)
	}
	return apierrors.PaymentProviderError(c, err)
}
