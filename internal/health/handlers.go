package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync/atomic"
	"time"
)

// Checker represents dependencies that can be probed for readiness.
type Checker interface {
	PingRemote(ctx context.Context, timeout time.Duration) error
	PingCache(ctx context.Context, timeout time.Duration) error
}

var (
	ready            atomic.Bool
	errNotConfigured = errors.New("not configured")
)

func init() { ready.Store(true) }

// SetReady toggles readiness. The server clears it when draining so load
// balancers stop routing new requests.
func SetReady(v bool) { ready.Store(v) }

// Handler exposes HTTP handlers for health endpoints.
type Handler struct {
	Checker       Checker
	RemoteTimeout time.Duration
	CacheTimeout  time.Duration
}

// Live reports liveness status.
func (h Handler) Live(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// Ready reports readiness based on the remote API and cache probes.
func (h Handler) Ready(w http.ResponseWriter, r *http.Request) {
	if !ready.Load() {
		http.Error(w, "shutting down", http.StatusServiceUnavailable)
		return
	}
	if h.Checker == nil {
		http.Error(w, "dependencies unavailable", http.StatusServiceUnavailable)
		return
	}
	ctx := r.Context()
	remoteStatus := "ok"
	if err := h.Checker.PingRemote(ctx, h.remoteTimeout()); err != nil {
		remoteStatus = err.Error()
	}
	cacheStatus := "ok"
	if err := h.Checker.PingCache(ctx, h.cacheTimeout()); err != nil {
		cacheStatus = err.Error()
	}
	status := map[string]string{
		"remote": remoteStatus,
		"cache":  cacheStatus,
	}
	w.Header().Set("Content-Type", "application/json")
	if remoteStatus != "ok" || cacheStatus != "ok" {
		w.WriteHeader(http.StatusServiceUnavailable)
	} else {
		w.WriteHeader(http.StatusOK)
	}
	_ = json.NewEncoder(w).Encode(status)
}

func (h Handler) remoteTimeout() time.Duration {
	if h.RemoteTimeout <= 0 {
		return time.Second
	}
	return h.RemoteTimeout
}

func (h Handler) cacheTimeout() time.Duration {
	if h.CacheTimeout <= 0 {
		return 300 * time.Millisecond
	}
	return h.CacheTimeout
}

// Pingers adapts plain ping functions to Checker, applying the timeout.
type Pingers struct {
	Remote func(ctx context.Context) error
	Cache  func(ctx context.Context) error
}

// PingRemote implements Checker.
func (p Pingers) PingRemote(ctx context.Context, timeout time.Duration) error {
	return ping(ctx, timeout, p.Remote)
}

// PingCache implements Checker. A nil Cache func means caching is disabled
// and always reports healthy.
func (p Pingers) PingCache(ctx context.Context, timeout time.Duration) error {
	if p.Cache == nil {
		return nil
	}
	return ping(ctx, timeout, p.Cache)
}

func ping(ctx context.Context, timeout time.Duration, fn func(context.Context) error) error {
	if fn == nil {
		return errNotConfigured
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return fn(ctx)
}
