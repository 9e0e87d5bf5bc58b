package store

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func redisClient(t *testing.T) *redis.Client {
	t.Helper()

	url := os.Getenv("REDIS_URL")
	if url == "" {
		t.Skip("REDIS_URL not set")
	}

	opts, err := redis.ParseURL(url)
	require.NoError(t, err)

	client := redis.NewClient(opts)
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestRedisStore(t *testing.T) {
	ctx := context.Background()
	client := redisClient(t)
	s := NewRedisStore(client)

	require.NoError(t, s.Ping(ctx))

	tokenID := uuid.NewString()
	t.Cleanup(func() { client.Del(ctx, "mvc:invalidated:"+tokenID) })

	invalidated, err := s.IsTokenInvalidated(ctx, tokenID)
	require.NoError(t, err)
	assert.False(t, invalidated)

	require.NoError(t, s.InvalidateToken(ctx, tokenID, time.Minute))

	invalidated, err = s.IsTokenInvalidated(ctx, tokenID)
	require.NoError(t, err)
	assert.True(t, invalidated)

	ttl, err := client.TTL(ctx, "mvc:invalidated:"+tokenID).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))
	assert.LessOrEqual(t, ttl, time.Minute)
}

func TestRedisStoreNonPositiveExpiry(t *testing.T) {
	ctx := context.Background()
	client := redisClient(t)
	s := NewRedisStore(client)

	tokenID := uuid.NewString()
	t.Cleanup(func() { client.Del(ctx, "mvc:invalidated:"+tokenID) })

	require.NoError(t, s.InvalidateToken(ctx, tokenID, 0))

	ttl, err := client.TTL(ctx, "mvc:invalidated:"+tokenID).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0), "key must not persist forever")
}

func TestRedisStorePingFailure(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer client.Close()

	err := NewRedisStore(client).Ping(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis ping failed")
}
