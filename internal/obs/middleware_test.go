package obs_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/noah-isme/xpro-storefront/internal/obs"
)

func TestHTTPMetricsLabels(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := obs.NewHTTPMetrics("storefront", []float64{1, 10}, registry)
	handler := obs.HTTPObs{Metrics: metrics}.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/app/basket", nil)
	req = req.WithContext(obs.WithRoutePattern(req.Context(), "/app/basket"))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected 204 got %d", rr.Code)
	}

	total := testutil.ToFloat64(metrics.ReqTotal.WithLabelValues(http.MethodGet, "/app/basket", "204"))
	if total != 1 {
		t.Fatalf("expected counter to be 1, got %v", total)
	}

	samples := testutil.CollectAndCount(metrics.ReqDur)
	if samples == 0 {
		t.Fatalf("expected histogram sample")
	}

	if metrics.InFlight != nil {
		if val := testutil.ToFloat64(metrics.InFlight); val != 0 {
			t.Fatalf("expected no in-flight requests, got %v", val)
		}
	}
}

func TestDomainMetricsCountRemoteCalls(t *testing.T) {
	registry := prometheus.NewRegistry()
	obs.MustRegisterDomainMetrics("storefront", registry)

	obs.ObserveRemote("basket", http.StatusOK, 0)
	obs.ObserveRemote("basket", 0, 0)
	obs.Count(obs.CouponApplyTotal, "basket", "invalid")

	if got := testutil.ToFloat64(obs.RemoteRequestTotal.WithLabelValues("basket", "2xx")); got != 1 {
		t.Fatalf("expected one 2xx call, got %v", got)
	}
	if got := testutil.ToFloat64(obs.RemoteRequestTotal.WithLabelValues("basket", "error")); got != 1 {
		t.Fatalf("expected one transport error, got %v", got)
	}
	if got := testutil.ToFloat64(obs.CouponApplyTotal.WithLabelValues("basket", "invalid")); got != 1 {
		t.Fatalf("expected coupon counter to be 1, got %v", got)
	}
}

func TestStatusRecorderKeepsFirstStatus(t *testing.T) {
	rr := httptest.NewRecorder()
	rec := obs.NewStatusRecorder(rr)
	_, _ = rec.Write([]byte("ok"))
	rec.WriteHeader(http.StatusInternalServerError)
	if rec.Status() != http.StatusOK {
		t.Fatalf("expected implicit 200 to stick, got %d", rec.Status())
	}
	if rec.BytesWritten() != 2 {
		t.Fatalf("expected 2 bytes, got %d", rec.BytesWritten())
	}
	if rec.Unwrap() != rr {
		t.Fatal("unwrap should return the wrapped writer")
	}
}

func TestInitTracerNoneExporter(t *testing.T) {
	shutdown, err := obs.InitTracer(context.Background(), obs.TracingConfig{Exporter: "none"})
	if err != nil {
		t.Fatalf("init tracer: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
	if _, err := obs.InitTracer(context.Background(), obs.TracingConfig{Exporter: "zipkin"}); err == nil {
		t.Fatal("expected unsupported exporter error")
	}
}
