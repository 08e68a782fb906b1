package errors

import (
	stderrors "errors"
	"log"
	"net/http"

	sentryecho "github.com/getsentry/sentry-go/echo"
	"github.com/inversionreal/storefront/pkg/models"
	"github.com/inversionreal/storefront/pkg/store"
	"github.com/labstack/echo/v4"
)

// ValidationError returns a generic validation error without exposing internal details
func ValidationError(c echo.Context, err error) error {
	log.Printf("[VALIDATION ERROR] Path: %s, Error: %v", c.Request().URL.Path, err)

	return c.JSON(http.StatusBadRequest, models.ErrorResponse{
		Error:   "validation_error",
		Message: "Invalid request data. Please check your input and try again.",
	})
}

// BadRequestError returns a 400 with a message safe to show the caller
func BadRequestError(c echo.Context, code, message string) error {
	return c.JSON(http.StatusBadRequest, models.ErrorResponse{
		Error:   code,
		Message: message,
	})
}

// DatabaseError returns a generic database error and reports it to Sentry
func DatabaseError(c echo.Context, err error) error {
	log.Printf("[DATABASE ERROR] Path: %s, Error: %v", c.Request().URL.Path, err)
	capture(c, err)

	return c.JSON(http.StatusInternalServerError, models.ErrorResponse{
		Error:   "database_error",
		Message: "A database error occurred. Please try again later.",
	})
}

// InternalError returns a generic internal server error and reports it to Sentry
func InternalError(c echo.Context, err error) error {
	log.Printf("[INTERNAL ERROR] Path: %s, Error: %v", c.Request().URL.Path, err)
	capture(c, err)

	return c.JSON(http.StatusInternalServerError, models.ErrorResponse{
		Error:   "internal_error",
		Message: "An internal error occurred. Please try again later.",
	})
}

// PaymentProviderError returns a 502 when Stripe rejects or fails a call
func PaymentProviderError(c echo.Context, err error) error {
	log.Printf("[PAYMENT ERROR] Path: %s, Error: %v", c.Request().URL.Path, err)
	capture(c, err)

	return c.JSON(http.StatusBadGateway, models.ErrorResponse{
		Error:   "payment_provider_error",
		Message: "The payment provider could not complete the request. Please try again later.",
	})
}

// UnauthorizedError returns a generic unauthorized error
func UnauthorizedError(c echo.Context, reason string) error {
	return c.JSON(http.StatusUnauthorized, models.ErrorResponse{
		Error:   "unauthorized",
		Message: "You are not authorized to access this resource.",
	})
}

// NotFoundError returns a generic not found error
func NotFoundError(c echo.Context, resource string) error {
	return c.JSON(http.StatusNotFound, models.ErrorResponse{
		Error:   "not_found",
		Message: "The requested resource was not found.",
	})
}

// ConflictError returns a generic conflict error
func ConflictError(c echo.Context, message string) error {
	return c.JSON(http.StatusConflict, models.ErrorResponse{
		Error:   "conflict",
		Message: message, // safe to expose
	})
}

// StoreError maps persistence sentinels to their HTTP responses
func StoreError(c echo.Context, err error, resource string) error {
	switch {
	case stderrors.Is(err, store.ErrNotFound):
		return NotFoundError(c, resource)
	case stderrors.Is(err, store.ErrMembershipInUse):
		return ConflictError(c, "This membership has subscriptions and cannot be deleted. Deactivate it instead.")
	case stderrors.Is(err, store.ErrDuplicate):
		return ConflictError(c, "The "+resource+" already exists.")
	default:
		return DatabaseError(c, err)
	}
}

func capture(c echo.Context, err error) {
	if hub := sentryecho.GetHubFromContext(c); hub != nil {
		hub.CaptureException(err)
	}
}
