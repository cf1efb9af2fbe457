package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return client, mr
}

func TestRateLimiter_AllowWithDetails(t *testing.T) {
	t.Run("allows requests within limit", func(t *testing.T) {
		client, _ := setupTestRedis(t)
		limiter := NewRateLimiter(client)
		ctx := context.Background()

		for i := 0; i < 5; i++ {
			allowed, remaining, resetAt, err := limiter.AllowWithDetails(ctx, "10.0.0.1", 5)
			require.NoError(t, err)
			assert.True(t, allowed)
			assert.Equal(t, 5-i-1, remaining)
			assert.False(t, resetAt.IsZero())
		}
	})

	t.Run("blocks requests over limit", func(t *testing.T) {
		client, _ := setupTestRedis(t)
		limiter := NewRateLimiter(client)
		ctx := context.Background()

		for i := 0; i < 3; i++ {
			allowed, _, _, err := limiter.AllowWithDetails(ctx, "10.0.0.2", 3)
			require.NoError(t, err)
			assert.True(t, allowed)
		}

		allowed, remaining, resetAt, err := limiter.AllowWithDetails(ctx, "10.0.0.2", 3)
		require.NoError(t, err)
		assert.False(t, allowed)
		assert.Equal(t, 0, remaining)
		assert.True(t, resetAt.After(time.Now()))

		usage, err := limiter.GetCurrentUsage(ctx, "10.0.0.2")
		require.NoError(t, err)
		assert.Equal(t, int64(3), usage, "rejected requests are not counted")
	})

	t.Run("clients are isolated", func(t *testing.T) {
		client, _ := setupTestRedis(t)
		limiter := NewRateLimiter(client)
		ctx := context.Background()

		allowed, _, _, err := limiter.AllowWithDetails(ctx, "a", 1)
		require.NoError(t, err)
		assert.True(t, allowed)
		allowed, _, _, err = limiter.AllowWithDetails(ctx, "b", 1)
		require.NoError(t, err)
		assert.True(t, allowed)
		allowed, _, _, err = limiter.AllowWithDetails(ctx, "a", 1)
		require.NoError(t, err)
		assert.False(t, allowed)
	})

	t.Run("unlimited when limit is 0", func(t *testing.T) {
		client, mr := setupTestRedis(t)
		limiter := NewRateLimiter(client)

		for i := 0; i < 50; i++ {
			allowed, remaining, resetAt, err := limiter.AllowWithDetails(context.Background(), "any", 0)
			require.NoError(t, err)
			assert.True(t, allowed)
			assert.Equal(t, -1, remaining)
			assert.True(t, resetAt.IsZero())
		}
		assert.Empty(t, mr.Keys())
	})

	t.Run("key expires with the window", func(t *testing.T) {
		client, mr := setupTestRedis(t)
		limiter := NewRateLimiterWithWindow(client, time.Second)

		_, _, _, err := limiter.AllowWithDetails(context.Background(), "ttl", 1)
		require.NoError(t, err)
		require.True(t, mr.Exists("mm:ratelimit:ttl"))
		mr.FastForward(3 * time.Second)
		assert.False(t, mr.Exists("mm:ratelimit:ttl"))
	})
}

func TestRateLimiter_Reset(t *testing.T) {
	client, _ := setupTestRedis(t)
	limiter := NewRateLimiter(client)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		allowed, _, _, err := limiter.AllowWithDetails(ctx, "reset-me", 2)
		require.NoError(t, err)
		assert.True(t, allowed)
	}
	allowed, _, _, err := limiter.AllowWithDetails(ctx, "reset-me", 2)
	require.NoError(t, err)
	assert.False(t, allowed)

	require.NoError(t, limiter.Reset(ctx, "reset-me"))

	allowed, remaining, _, err := limiter.AllowWithDetails(ctx, "reset-me", 2)
	require.NoError(t, err)
	assert.True(t, allowed)
	assert.Equal(t, 1, remaining)
}

func TestRateLimiter_RedisDown(t *testing.T) {
	client, mr := setupTestRedis(t)
	limiter := NewRateLimiter(client)
	mr.Close()

	allowed, _, _, err := limiter.AllowWithDetails(context.Background(), "x", 1)
	assert.Error(t, err)
	assert.False(t, allowed)
}

func TestLocalLimiter(t *testing.T) {
	l := NewLocalLimiter(time.Minute)
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		allowed, remaining, _, err := l.AllowWithDetails(ctx, "ip", 2)
		require.NoError(t, err)
		assert.True(t, allowed)
		assert.Equal(t, 1-i, remaining)
	}

	allowed, remaining, resetAt, err := l.AllowWithDetails(ctx, "ip", 2)
	require.NoError(t, err)
	assert.False(t, allowed)
	assert.Equal(t, 0, remaining)
	assert.Equal(t, now.Add(time.Minute), resetAt)

	now = now.Add(61 * time.Second)
	allowed, _, _, err = l.AllowWithDetails(ctx, "ip", 2)
	require.NoError(t, err)
	assert.True(t, allowed)

	allowed, remaining, _, _ = l.AllowWithDetails(ctx, "ip", 0)
	assert.True(t, allowed)
	assert.Equal(t, -1, remaining)
}

func TestNoopLimiter(t *testing.T) {
	limiter := NewNoopLimiter()
	ctx := context.Background()

	for i := 0; i < 100; i++ {
		assert.True(t, limiter.Allow(ctx, "any-key"))
	}
	allowed, remaining, _, err := limiter.AllowWithDetails(ctx, "any-key", 1)
	require.NoError(t, err)
	assert.True(t, allowed)
	assert.Equal(t, -1, remaining)
}

var (
	_ Limiter = (*RateLimiter)(nil)
	_ Limiter = (*LocalLimiter)(nil)
	_ Limiter = (*NoopLimiter)(nil)
)
