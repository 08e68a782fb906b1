package handlers

import (
	"errors"
	"io"
	"net/http"

	apierrors "github.com/inversionreal/storefront/pkg/api/errors"
	"github.com/inversionreal/storefront/pkg/billing"
	"github.com/inversionreal/storefront/pkg/models"
	"github.com/labstack/echo/v4"
)

// maxWebhookBody bounds the payload read from Stripe. Invoices with many line
// items run well past 64 KiB.
const maxWebhookBody = 1 << 20

// WebhookHandler receives Stripe event deliveries
type WebhookHandler struct {
	reconciler *billing.Reconciler
}

// NewWebhookHandler creates a new webhook handler
func NewWebhookHandler(reconciler *billing.Reconciler) *WebhookHandler {
	return &WebhookHandler{reconciler: reconciler}
}

// HandleStripeWebhook godoc
// @Summary Stripe webhook
// @Description Verify and reconcile one Stripe event. Signature failures answer 400 and persistence failures 500 so Stripe redelivers.
// @Tags Webhooks
// @Accept json
// @Produce json
// @Param Stripe-Signature header string true "Stripe signature"
// @Success 200 {object} map[string]bool "received"
// @Failure 400 {object} models.ErrorResponse "Invalid signature"
// @Failure 413 {object} models.ErrorResponse "Payload too large"
// @Failure 500 {object} models.ErrorResponse "Internal server error"
// @Router /stripe/webhook [post]
func (h *WebhookHandler) HandleStripeWebhook(c echo.Context) error {
	payload, err := io.ReadAll(http.MaxBytesReader(c.Response(), c.Request().Body, maxWebhookBody))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return c.JSON(http.StatusRequestEntityTooLarge, models.ErrorResponse{
				Error:   "payload_too_large",
				Message: "Webhook payload exceeds the size limit",
			})
		}
		return apierrors.BadRequestError(c, "invalid_request", "Failed to read request body")
	}

	_, err = h.reconciler.HandleWebhook(c.Request().Context(), payload, c.Request().Header.Get("Stripe-Signature"))
	if err != nil {
		if errors.Is(err, billing.ErrInvalidSignature) {
			return c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid_signature"})
		}
		return apierrors.InternalError(c, err)
	}

	return c.JSON(http.StatusOK, map[string]bool{"received": true})
}
