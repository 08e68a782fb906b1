package secrets

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/inversionreal/storefront/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewManager(t *testing.T) {
	m, err := NewManager(Config{Backend: "env"})
	require.NoError(t, err)
	assert.IsType(t, &EnvironmentManager{}, m)

	_, err = NewManager(Config{Backend: "vault"})
	assert.Error(t, err)
}

func TestEnvironmentManager(t *testing.T) {
	ctx := context.Background()
	t.Setenv("STOREFRONT_TEST_SECRET", "s3cret")

	m := NewEnvironmentManager(Config{CacheDuration: time.Minute})

	t.Run("Success - Reads and caches", func(t *testing.T) {
		v, err := m.GetSecret(ctx, "STOREFRONT_TEST_SECRET")
		require.NoError(t, err)
		assert.Equal(t, "s3cret", v)

		t.Setenv("STOREFRONT_TEST_SECRET", "rotated")
		v, err = m.GetSecret(ctx, "STOREFRONT_TEST_SECRET")
		require.NoError(t, err)
		assert.Equal(t, "s3cret", v)

		require.NoError(t, m.RefreshCache(ctx))
		v, err = m.GetSecret(ctx, "STOREFRONT_TEST_SECRET")
		require.NoError(t, err)
		assert.Equal(t, "rotated", v)
	})

	t.Run("Failure - Missing", func(t *testing.T) {
		_, err := m.GetSecret(ctx, "STOREFRONT_TEST_MISSING")
		assert.ErrorIs(t, err, ErrNotFound)

		_, err = LoadStringRequired(ctx, m, "STOREFRONT_TEST_MISSING")
		assert.Error(t, err)
		assert.Equal(t, "fallback", LoadString(ctx, m, "STOREFRONT_TEST_MISSING", "fallback"))
	})
}

func TestAWSSecretsManager(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		assert.Equal(t, "secretsmanager.GetSecretValue", r.Header.Get("X-Amz-Target"))

		var in struct{ SecretId string }
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&in))

		w.Header().Set("Content-Type", "application/x-amz-json-1.1")
		if in.SecretId != "STRIPE_SECRET_KEY" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"__type":"ResourceNotFoundException","message":"not found"}`))
			return
		}
		_, _ = w.Write([]byte(`{"Name":"STRIPE_SECRET_KEY","SecretString":"sk_live_abc"}`))
	}))
	defer srv.Close()

	cfg := Config{Backend: BackendAWS, AWSRegion: "us-east-1", CacheDuration: time.Minute}
	m, err := newAWSSecretsManager(cfg, newStaticAWSConfig("us-east-1", srv.URL, "AKID", "SECRET"))
	require.NoError(t, err)
	ctx := context.Background()

	v, err := m.GetSecret(ctx, "STRIPE_SECRET_KEY")
	require.NoError(t, err)
	assert.Equal(t, "sk_live_abc", v)

	_, err = m.GetSecret(ctx, "STRIPE_SECRET_KEY")
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))

	_, err = m.GetSecret(ctx, "MISSING")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestApply(t *testing.T) {
	t.Setenv("STRIPE_WEBHOOK_SECRET", "whsec_from_manager")
	t.Setenv("JWT_SECRET", "")

	cfg := &config.Config{JWTSecret: "from-env", StripeWebhookSecret: "whsec_old"}
	Apply(context.Background(), NewEnvironmentManager(Config{}), cfg)

	assert.Equal(t, "whsec_from_manager", cfg.StripeWebhookSecret)
	assert.Equal(t, "from-env", cfg.JWTSecret)
}
