package secrets

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/inversionreal/storefront/config"
)

// LoadString returns the secret for key, or fallback when it cannot be resolved
func LoadString(ctx context.Context, m Manager, key, fallback string) string {
	value, err := m.GetSecret(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			log.Printf("⚠️  Failed to load secret %s: %v", key, err)
		}
		return fallback
	}
	return value
}

// LoadStringRequired returns the secret for key or an error when missing or empty
func LoadStringRequired(ctx context.Context, m Manager, key string) (string, error) {
	value, err := m.GetSecret(ctx, key)
	if err != nil {
		return "", fmt.Errorf("required secret %s not found: %w", key, err)
	}
	if value == "" {
		return "", fmt.Errorf("required secret %s is empty", key)
	}
	return value, nil
}

// Apply overwrites the credential fields of cfg with values held by m.
// Fields keep their environment value when the manager has nothing for them.
func Apply(ctx context.Context, m Manager, cfg *config.Config) {
	fields := []struct {
		key  string
		dest *string
	}{
		{"JWT_SECRET", &cfg.JWTSecret},
		{"STRIPE_SECRET_KEY", &cfg.StripeSecretKey},
		{"STRIPE_WEBHOOK_SECRET", &cfg.StripeWebhookSecret},
		{"DISCORD_CLIENT_SECRET", &cfg.DiscordClientSecret},
		{"DISCORD_BOT_TOKEN", &cfg.DiscordBotToken},
		{"SENDGRID_API_KEY", &cfg.SendGridAPIKey},
		{"DATABASE_URL", &cfg.DatabaseURL},
	}
	for _, f := range fields {
		*f.dest = LoadString(ctx, m, f.key, *f.dest)
	}
}

// ConfigFrom builds the secrets configuration from application config
func ConfigFrom(cfg *config.Config) Config {
	return Config{
		Backend:       cfg.SecretsBackend,
		AWSRegion:     cfg.AWSRegion,
		CacheDuration: cfg.SecretsCacheDuration,
	}
}
