package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/inversionreal/storefront/pkg/auth"
	"github.com/inversionreal/storefront/pkg/models"
	"github.com/labstack/echo/v4"
)

// AdminCookie carries the admin session token for browser clients
const AdminCookie = "admin_token"

// JWTMiddleware creates an admin authentication middleware
func JWTMiddleware(secret string) echo.MiddlewareFunc {
	return JWTMiddlewareWithBlacklist(secret, nil)
}

// JWTMiddlewareWithBlacklist creates an admin authentication middleware with blacklist support.
// The token is read from the Authorization header first, then from the admin cookie.
func JWTMiddlewareWithBlacklist(secret string, blacklist *auth.TokenBlacklist) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token, errResp := tokenFromRequest(c)
			if errResp != nil {
				return c.JSON(http.StatusUnauthorized, errResp)
			}

			ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
			defer cancel()

			claims, err := auth.ValidateJWTWithBlacklist(ctx, token, secret, blacklist)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, models.ErrorResponse{
					Error:   "invalid_token",
					Message: err.Error(),
				})
			}

			// Store token in context for logout
			c.Set("token", token)
			if claims.ExpiresAt != nil {
				c.Set("token_expires_at", claims.ExpiresAt.Time)
			}

			c.Set("admin_id", claims.AdminID)
			c.Set("admin_username", claims.Username)

			return next(c)
		}
	}
}

func tokenFromRequest(c echo.Context) (string, *models.ErrorResponse) {
	if header := c.Request().Header.Get("Authorization"); header != "" {
		parts := strings.Split(header, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			return "", &models.ErrorResponse{
				Error:   "invalid_token_format",
				Message: "Authorization header must be 'Bearer {token}'",
			}
		}
		return parts[1], nil
	}

	if cookie, err := c.Cookie(AdminCookie); err == nil && cookie.Value != "" {
		return cookie.Value, nil
	}

	return "", &models.ErrorResponse{
		Error:   "missing_token",
		Message: "Authorization header or admin session cookie is required",
	}
}
