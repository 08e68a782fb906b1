package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestRedis creates a test Redis client using miniredis
func setupTestRedis(t *testing.T) (*Client, *miniredis.Miniredis) {
	mr, err := miniredis.Run()
	require.NoError(t, err)

	client := &Client{
		Redis: redis.NewClient(&redis.Options{Addr: mr.Addr()}),
	}
	t.Cleanup(func() {
		client.Close()
		mr.Close()
	})
	return client, mr
}

func TestClient_SetGet(t *testing.T) {
	client, _ := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, client.Set(ctx, "test:key1", "value1", time.Hour))

	val, err := client.Get(ctx, "test:key1")
	require.NoError(t, err)
	assert.Equal(t, "value1", val)

	_, err = client.Get(ctx, "test:missing")
	assert.ErrorIs(t, err, ErrMiss)
}

func TestClient_SetNX(t *testing.T) {
	client, mr := setupTestRedis(t)
	ctx := context.Background()

	ok, err := client.SetNX(ctx, "test:once", "1", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = client.SetNX(ctx, "test:once", "2", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	mr.FastForward(2 * time.Minute)
	ok, err = client.SetNX(ctx, "test:once", "3", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestClient_Take(t *testing.T) {
	client, _ := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, client.Set(ctx, "test:state", "trader@example.com", time.Minute))

	val, err := client.Take(ctx, "test:state")
	require.NoError(t, err)
	assert.Equal(t, "trader@example.com", val)

	_, err = client.Take(ctx, "test:state")
	assert.ErrorIs(t, err, ErrMiss)
}

func TestClient_Exists(t *testing.T) {
	client, mr := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, client.Set(ctx, "test:key1", "value1", time.Minute))

	exists, err := client.Exists(ctx, "test:key1")
	require.NoError(t, err)
	assert.True(t, exists)

	mr.FastForward(2 * time.Minute)
	exists, err = client.Exists(ctx, "test:key1")
	require.NoError(t, err)
	assert.False(t, exists)
}
