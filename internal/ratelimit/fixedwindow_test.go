package ratelimit

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestFixedWindowMemory(t *testing.T) {
	lim := NewMemory("test")
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		allowed, remaining, _, err := lim.Allow(ctx, "ip", time.Minute, 2)
		require.NoError(t, err)
		require.True(t, allowed)
		require.Equal(t, 1-i, remaining)
	}
	allowed, remaining, reset, err := lim.Allow(ctx, "ip", time.Minute, 2)
	require.NoError(t, err)
	require.False(t, allowed)
	require.Zero(t, remaining)
	require.True(t, reset.After(time.Now()))

	allowed, _, _, err = lim.Allow(ctx, "other", time.Minute, 2)
	require.NoError(t, err)
	require.True(t, allowed, "keys are limited independently")
}

func TestKeyByIPMiddleware(t *testing.T) {
	handler := Handler{
		Limiter: NewMemory("auth"),
		Config:  Config{Key: KeyByIP("auth:"), Window: time.Minute, Max: 1},
	}
	next := handler.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	first := httptest.NewRequest(http.MethodPost, "/app/auth/login/email", nil)
	first.RemoteAddr = "10.0.0.1:1234"
	rr := httptest.NewRecorder()
	next.ServeHTTP(rr, first)
	require.Equal(t, http.StatusNoContent, rr.Code)

	rr = httptest.NewRecorder()
	next.ServeHTTP(rr, first)
	require.Equal(t, http.StatusTooManyRequests, rr.Code)
	require.Contains(t, rr.Body.String(), "RATE_LIMITED")
	require.NotEmpty(t, rr.Header().Get("Retry-After"))

	other := httptest.NewRequest(http.MethodPost, "/app/auth/login/email", nil)
	other.RemoteAddr = "10.0.0.2:1234"
	rr = httptest.NewRecorder()
	next.ServeHTTP(rr, other)
	require.Equal(t, http.StatusNoContent, rr.Code)
}

func TestKeyByIPAndPath(t *testing.T) {
	key := KeyByIPAndPath("auth:")
	req := httptest.NewRequest(http.MethodPost, "/app/auth/login/password", nil)
	req.RemoteAddr = "10.0.0.1:1234"
	require.Equal(t, "auth:10.0.0.1:/app/auth/login/password", key(req))
}
