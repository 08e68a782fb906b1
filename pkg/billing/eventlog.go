package billing

import (
	"context"
	"errors"
	"time"

	"github.com/inversionreal/storefront/pkg/cache"
)

const eventKeyPrefix = "stripe:event:"

// EventLog remembers processed event ids so redeliveries short-circuit
type EventLog interface {
	// Seen reports whether id was already processed
	Seen(ctx context.Context, id string) (bool, error)
	// Mark records id as processed
	Mark(ctx context.Context, id string) error
}

// RedisEventLog keeps event ids in Redis for a fixed window
type RedisEventLog struct {
	cache *cache.Client
	ttl   time.Duration
}

// NewRedisEventLog creates an event log whose marks expire after ttl
func NewRedisEventLog(c *cache.Client, ttl time.Duration) *RedisEventLog {
	return &RedisEventLog{cache: c, ttl: ttl}
}

func (l *RedisEventLog) Seen(ctx context.Context, id string) (bool, error) {
	_, err := l.cache.Get(ctx, eventKeyPrefix+id)
	if errors.Is(err, cache.ErrMiss) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Mark keeps the first processing time. A redelivery does not extend the window.
func (l *RedisEventLog) Mark(ctx context.Context, id string) error {
	_, err := l.cache.SetNX(ctx, eventKeyPrefix+id, time.Now().UTC().Format(time.RFC3339), l.ttl)
	return err
}
