package ratelimit

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newSliding(t *testing.T) (*miniredis.Miniredis, Limiter) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, Limiter{Client: client, Prefix: "test:"}
}

func TestLimiterAllowSlidingWindow(t *testing.T) {
	mr, limiter := newSliding(t)
	ctx := context.Background()
	window := 2 * time.Second
	max := 2

	for i := 0; i < max; i++ {
		allowed, remaining, _, err := limiter.Allow(ctx, "key", window, max)
		require.NoError(t, err)
		require.True(t, allowed, "request %d", i)
		require.Equal(t, max-(i+1), remaining)
	}

	allowed, remaining, _, err := limiter.Allow(ctx, "key", window, max)
	require.NoError(t, err)
	require.False(t, allowed)
	require.Zero(t, remaining)

	mr.FastForward(window)

	allowed, _, _, err = limiter.Allow(ctx, "key", window, max)
	require.NoError(t, err)
	require.True(t, allowed)
}

func TestLimiterRejectedAttemptsDoNotExtendWindow(t *testing.T) {
	mr, limiter := newSliding(t)
	ctx := context.Background()
	window := time.Minute

	start := time.Now()
	allowed, _, firstReset, err := limiter.Allow(ctx, "auth:1.2.3.4:/app/auth/login/password", window, 1)
	require.NoError(t, err)
	require.True(t, allowed)

	for i := 0; i < 3; i++ {
		allowed, _, reset, err := limiter.Allow(ctx, "auth:1.2.3.4:/app/auth/login/password", window, 1)
		require.NoError(t, err)
		require.False(t, allowed)
		require.Equal(t, firstReset, reset, "reset follows the oldest accepted attempt")
	}

	members, err := mr.ZMembers("test:auth:1.2.3.4:/app/auth/login/password")
	require.NoError(t, err)
	require.Len(t, members, 1)
	require.WithinDuration(t, start.Add(window), firstReset, time.Second)
}

func TestLimiterWithoutClientAllows(t *testing.T) {
	allowed, remaining, _, err := Limiter{}.Allow(context.Background(), "k", time.Minute, 3)
	require.NoError(t, err)
	require.True(t, allowed)
	require.Equal(t, 3, remaining)
}
