package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/inversionreal/storefront/config"
	apierrors "github.com/inversionreal/storefront/pkg/api/errors"
	custommw "github.com/inversionreal/storefront/pkg/api/middleware"
	"github.com/inversionreal/storefront/pkg/auth"
	"github.com/inversionreal/storefront/pkg/models"
	"github.com/inversionreal/storefront/pkg/store"
	"github.com/labstack/echo/v4"
)

// AdminStore looks up admin accounts
type AdminStore interface {
	GetAdminByUsername(ctx context.Context, username string) (*store.AdminUser, error)
}

// AuthHandler handles admin sign in and sign out
type AuthHandler struct {
	store     AdminStore
	config    *config.Config
	blacklist *auth.TokenBlacklist
	validator *validator.Validate
	metrics   Recorder
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(st AdminStore, cfg *config.Config, blacklist *auth.TokenBlacklist) *AuthHandler {
	return &AuthHandler{
		store:     st,
		config:    cfg,
		blacklist: blacklist,
		validator: validator.New(),
		metrics:   noopRecorder{},
	}
}

// SetMetrics enables login counters
func (h *AuthHandler) SetMetrics(m Recorder) {
	h.metrics = m
}

// Login godoc
// @Summary Admin login
// @Description Check admin credentials and issue a JWT, also set as the admin_token cookie
// @Tags Authentication
// @Accept json
// @Produce json
// @Param request body models.LoginRequest true "Admin credentials"
// @Success 200 {object} models.LoginResponse "Login successful"
// @Failure 400 {object} models.ErrorResponse "Invalid request"
// @Failure 401 {object} models.ErrorResponse "Invalid credentials"
// @Failure 429 {object} models.ErrorResponse "Too many attempts"
// @Router /auth/login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	var req models.LoginRequest
	if err := c.Bind(&req); err != nil {
		return apierrors.BadRequestError(c, "invalid_request", "Invalid request body")
	}
	if err := h.validator.Struct(req); err != nil {
		return apierrors.ValidationError(c, err)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	admin, err := h.store.GetAdminByUsername(ctx, req.Username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			h.metrics.RecordLoginAttempt(false)
			return invalidCredentials(c)
		}
		return apierrors.DatabaseError(c, err)
	}

	if !auth.CheckPassword(admin.PasswordHash, req.Password) {
		h.metrics.RecordLoginAttempt(false)
		return invalidCredentials(c)
	}

	token, expiresAt, err := auth.GenerateJWT(admin.ID, admin.Username, h.config.JWTSecret, h.config.JWTExpirationHours)
	if err != nil {
		return apierrors.InternalError(c, err)
	}
	h.metrics.RecordLoginAttempt(true)

	c.SetCookie(h.sessionCookie(token, expiresAt))
	return c.JSON(http.StatusOK, models.LoginResponse{
		Token:     token,
		ExpiresAt: expiresAt,
	})
}

// Logout godoc
// @Summary Admin logout
// @Description Revoke the current token until it expires and clear the session cookie
// @Tags Authentication
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.SuccessResponse "Logged out"
// @Failure 401 {object} models.ErrorResponse "Missing or invalid token"
// @Failure 500 {object} models.ErrorResponse "Internal server error"
// @Router /auth/logout [post]
func (h *AuthHandler) Logout(c echo.Context) error {
	token, ok := c.Get("token").(string)
	if !ok || token == "" {
		return c.JSON(http.StatusUnauthorized, models.ErrorResponse{
			Error:   "missing_token",
			Message: "No token found in request",
		})
	}

	if h.blacklist != nil {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
		defer cancel()

		expiresAt, _ := c.Get("token_expires_at").(time.Time)
		if expiresAt.IsZero() {
			expiresAt = time.Now().Add(time.Duration(h.config.JWTExpirationHours) * time.Hour)
		}
		if err := h.blacklist.Revoke(ctx, token, expiresAt); err != nil {
			return apierrors.InternalError(c, err)
		}
	}

	c.SetCookie(h.sessionCookie("", time.Unix(0, 0)))
	return c.JSON(http.StatusOK, models.SuccessResponse{
		Success: true,
		Message: "Successfully logged out",
	})
}

func (h *AuthHandler) sessionCookie(value string, expires time.Time) *http.Cookie {
	cookie := &http.Cookie{
		Name:     custommw.AdminCookie,
		Value:    value,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   h.config.IsProduction(),
		SameSite: http.SameSiteLaxMode,
	}
	if value == "" {
		cookie.MaxAge = -1
	}
	return cookie
}

func invalidCredentials(c echo.Context) error {
	return c.JSON(http.StatusUnauthorized, models.ErrorResponse{
		Error:   "invalid_credentials",
		Message: "Invalid username or password",
	})
}
