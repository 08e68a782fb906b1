package handlers

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/inversionreal/storefront/config"
	custommw "github.com/inversionreal/storefront/pkg/api/middleware"
	"github.com/inversionreal/storefront/pkg/auth"
	"github.com/inversionreal/storefront/pkg/models"
	"github.com/inversionreal/storefront/pkg/testdata"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testJWTSecret = "handlers-test-secret"

func setupAuthTest(t *testing.T) (*AuthHandler, *auth.TokenBlacklist, *fakeRecorder) {
	t.Helper()
	s := testdata.OpenStore(t)
	hash, err := auth.HashPassword("correct-horse")
	require.NoError(t, err)
	_, err = s.CreateAdminUser(context.Background(), "root", hash)
	require.NoError(t, err)

	c, _ := newCache(t)
	blacklist := auth.NewTokenBlacklist(c)
	cfg := &config.Config{JWTSecret: testJWTSecret, JWTExpirationHours: 1, APIEnvironment: "production"}

	rec := &fakeRecorder{}
	h := NewAuthHandler(s, cfg, blacklist)
	h.SetMetrics(rec)
	return h, blacklist, rec
}

func TestAuthHandler_Login(t *testing.T) {
	h, _, metrics := setupAuthTest(t)

	t.Run("Success - Token and cookie", func(t *testing.T) {
		rec := call(t, h.Login, http.MethodPost, "/api/auth/login", `{"username":"root","password":"correct-horse"}`)
		require.Equal(t, http.StatusOK, rec.Code)

		var resp models.LoginResponse
		decode(t, rec, &resp)
		claims, err := auth.ValidateJWT(resp.Token, testJWTSecret)
		require.NoError(t, err)
		assert.Equal(t, "root", claims.Username)
		assert.WithinDuration(t, time.Now().Add(time.Hour), resp.ExpiresAt, time.Minute)

		cookies := rec.Result().Cookies()
		require.Len(t, cookies, 1)
		assert.Equal(t, custommw.AdminCookie, cookies[0].Name)
		assert.Equal(t, resp.Token, cookies[0].Value)
		assert.True(t, cookies[0].HttpOnly)
		assert.True(t, cookies[0].Secure)
	})

	t.Run("Failure - Wrong password", func(t *testing.T) {
		rec := call(t, h.Login, http.MethodPost, "/api/auth/login", `{"username":"root","password":"wrong-password"}`)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Contains(t, rec.Body.String(), "invalid_credentials")
		assert.Empty(t, rec.Result().Cookies())
	})

	t.Run("Failure - Unknown admin", func(t *testing.T) {
		rec := call(t, h.Login, http.MethodPost, "/api/auth/login", `{"username":"nobody","password":"correct-horse"}`)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("Failure - Missing fields", func(t *testing.T) {
		rec := call(t, h.Login, http.MethodPost, "/api/auth/login", `{"username":"root"}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "validation_error")
	})

	assert.Equal(t, []bool{true, false, false}, metrics.logins)
}

func TestAuthHandler_Logout(t *testing.T) {
	h, blacklist, _ := setupAuthTest(t)
	token, expiresAt, err := auth.GenerateJWT(1, "root", testJWTSecret, 1)
	require.NoError(t, err)

	t.Run("Success - Token revoked and cookie cleared", func(t *testing.T) {
		rec := callWith(t, h.Logout, http.MethodPost, "/api/auth/logout", "", func(c echo.Context) {
			c.Set("token", token)
			c.Set("token_expires_at", expiresAt)
		})
		require.Equal(t, http.StatusOK, rec.Code)

		revoked, err := blacklist.IsBlacklisted(context.Background(), token)
		require.NoError(t, err)
		assert.True(t, revoked)

		cookies := rec.Result().Cookies()
		require.Len(t, cookies, 1)
		assert.Empty(t, cookies[0].Value)
		assert.Less(t, cookies[0].MaxAge, 0)
	})

	t.Run("Failure - No token in context", func(t *testing.T) {
		rec := call(t, h.Logout, http.MethodPost, "/api/auth/logout", "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}
