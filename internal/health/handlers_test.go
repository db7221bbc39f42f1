package health_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/noah-isme/xpro-storefront/internal/health"
)

type stubChecker struct {
	remoteErr error
	cacheErr  error
}

func (s stubChecker) PingRemote(_ context.Context, _ time.Duration) error {
	return s.remoteErr
}

func (s stubChecker) PingCache(_ context.Context, _ time.Duration) error {
	return s.cacheErr
}

func TestLive(t *testing.T) {
	handler := health.Handler{}
	rr := httptest.NewRecorder()
	handler.Live(rr, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rr.Code)
	}
	if body := rr.Body.String(); body != "ok" {
		t.Fatalf("unexpected body %q", body)
	}
}

func TestReadySuccess(t *testing.T) {
	handler := health.Handler{Checker: stubChecker{}, RemoteTimeout: 50 * time.Millisecond, CacheTimeout: 50 * time.Millisecond}
	rr := httptest.NewRecorder()
	handler.Ready(rr, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rr.Code)
	}
	var status map[string]string
	if err := json.Unmarshal(rr.Body.Bytes(), &status); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if status["remote"] != "ok" || status["cache"] != "ok" {
		t.Fatalf("unexpected status %#v", status)
	}
}

func TestReadyFailure(t *testing.T) {
	handler := health.Handler{Checker: stubChecker{remoteErr: errors.New("remote down")}, RemoteTimeout: 10 * time.Millisecond, CacheTimeout: 10 * time.Millisecond}
	rr := httptest.NewRecorder()
	handler.Ready(rr, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 got %d", rr.Code)
	}
	var status map[string]string
	if err := json.Unmarshal(rr.Body.Bytes(), &status); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if status["remote"] != "remote down" {
		t.Fatalf("unexpected status %#v", status)
	}
}

func TestPingersApplyTimeout(t *testing.T) {
	p := health.Pingers{
		Remote: func(ctx context.Context) error {
			<-ctx.Done()
			return ctx.Err()
		},
	}
	if err := p.PingRemote(context.Background(), 5*time.Millisecond); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	if err := p.PingCache(context.Background(), time.Millisecond); err != nil {
		t.Fatalf("disabled cache should be healthy, got %v", err)
	}
	if err := (health.Pingers{}).PingRemote(context.Background(), time.Millisecond); err == nil {
		t.Fatal("expected error for missing remote ping")
	}
}
