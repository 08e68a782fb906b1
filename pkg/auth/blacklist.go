package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/inversionreal/storefront/pkg/cache"
)

const blacklistPrefix = "jwt:blacklist:"

// TokenBlacklist records admin tokens revoked before they expire
type TokenBlacklist struct {
	cache *cache.Client
}

// NewTokenBlacklist creates a blacklist stored in Redis
func NewTokenBlacklist(c *cache.Client) *TokenBlacklist {
	return &TokenBlacklist{cache: c}
}

// Revoke blacklists token until expiresAt. Tokens already expired are ignored.
func (b *TokenBlacklist) Revoke(ctx context.Context, token string, expiresAt time.Time) error {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return nil
	}
	return b.cache.Set(ctx, blacklistKey(token), "revoked", ttl)
}

// IsBlacklisted reports whether token was revoked
func (b *TokenBlacklist) IsBlacklisted(ctx context.Context, token string) (bool, error) {
	return b.cache.Exists(ctx, blacklistKey(token))
}

// blacklistKey hashes the token so raw tokens never reach Redis
func blacklistKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return blacklistPrefix + hex.EncodeToString(sum[:])
}
