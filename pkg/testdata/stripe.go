package testdata

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/inversionreal/storefront/pkg/store"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v76/webhook"
)

// WebhookSecret signs test webhook payloads
const WebhookSecret = "whsec_test_secret"

// StripeEvent builds a webhook payload wrapping object
func StripeEvent(t *testing.T, id, eventType string, object map[string]any) []byte {
	t.Helper()
	payload, err := json.Marshal(map[string]any{
		"id":      id,
		"object":  "event",
		"type":    eventType,
		"created": time.Now().Unix(),
		"data":    map[string]any{"object": object},
	})
	require.NoError(t, err)
	return payload
}

// Sign returns the Stripe-Signature header for payload
func Sign(payload []byte, secret string) string {
	return webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   payload,
		Secret:    secret,
		Timestamp: time.Now(),
	}).Header
}

// CourseCheckout is a completed one-time checkout session for a course
func CourseCheckout(sessionID, courseID, email string) map[string]any {
	return map[string]any{
		"id":             sessionID,
		"object":         "checkout.session",
		"mode":           "payment",
		"amount_total":   19900,
		"payment_intent": "pi_" + gofakeit.LetterN(14),
		"metadata":       map[string]any{"courseId": courseID},
		"customer_details": map[string]any{
			"email": email,
			"name":  gofakeit.Name(),
		},
	}
}

// PaidInvoice is the first paid invoice of a membership subscription
func PaidInvoice(subscriptionID, membershipID, email string) map[string]any {
	start := time.Now().UTC().Truncate(time.Second)
	return map[string]any{
		"id":             "in_" + gofakeit.LetterN(14),
		"object":         "invoice",
		"subscription":   subscriptionID,
		"customer":       "cus_" + gofakeit.LetterN(14),
		"customer_email": email,
		"customer_name":  gofakeit.Name(),
		"subscription_details": map[string]any{
			"metadata": map[string]any{"membershipId": membershipID, "type": "membership"},
		},
		"lines": map[string]any{
			"object": "list",
			"data": []any{map[string]any{
				"id":       "il_" + gofakeit.LetterN(14),
				"object":   "line_item",
				"metadata": map[string]any{},
				"period":   map[string]any{"start": start.Unix(), "end": start.AddDate(0, 1, 0).Unix()},
			}},
		},
	}
}

// SubscriptionObject is a subscription in the given provider status
func SubscriptionObject(subscriptionID, status string, cancelAtPeriodEnd bool) map[string]any {
	start := time.Now().UTC().Truncate(time.Second)
	return map[string]any{
		"id":                   subscriptionID,
		"object":               "subscription",
		"status":               status,
		"cancel_at_period_end": cancelAtPeriodEnd,
		"current_period_start": start.Unix(),
		"current_period_end":   start.AddDate(0, 1, 0).Unix(),
	}
}

// LinkDiscord stores a Discord connection for email
func LinkDiscord(t *testing.T, s *store.Store, email, discordUserID string) *store.DiscordConnection {
	t.Helper()
	c, err := s.UpsertDiscordConnection(context.Background(), store.DiscordConnection{
		CustomerEmail:   email,
		DiscordUserID:   discordUserID,
		DiscordUsername: gofakeit.Username() + "#0001",
		AccessToken:     gofakeit.UUID(),
		RefreshToken:    gofakeit.UUID(),
	})
	require.NoError(t, err)
	return c
}
