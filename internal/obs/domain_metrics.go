package obs

import (
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// RemoteRequestTotal counts calls to the remote ecommerce/auth API.
	RemoteRequestTotal *prometheus.CounterVec
	// RemoteRequestLatency records remote call latency in milliseconds.
	RemoteRequestLatency *prometheus.HistogramVec
	// CouponApplyTotal counts coupon application outcomes.
	CouponApplyTotal *prometheus.CounterVec
	// AuthDispatchTotal counts auth responses by state and whether a custom handler ran.
	AuthDispatchTotal *prometheus.CounterVec
	// CheckoutSubmitTotal counts checkout submissions by kind and outcome.
	CheckoutSubmitTotal *prometheus.CounterVec
	// EntityCacheTotal counts entity cache lookups by entity and result.
	EntityCacheTotal *prometheus.CounterVec
)

// MustRegisterDomainMetrics initialises and registers domain-specific Prometheus collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		RemoteRequestTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "remote_requests_total",
			Help:      "Count of remote API calls by endpoint and status class.",
		}, []string{"endpoint", "status"})
		RemoteRequestLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "remote_request_duration_ms",
			Help:      "Remote API call latency in milliseconds.",
			Buckets:   []float64{10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		}, []string{"endpoint"})
		CouponApplyTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "coupon_apply_total",
			Help:      "Count of coupon application outcomes.",
		}, []string{"flow", "result"})
		AuthDispatchTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "auth_dispatch_total",
			Help:      "Count of dispatched auth responses.",
		}, []string{"state", "handler"})
		CheckoutSubmitTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checkout_submit_total",
			Help:      "Count of checkout submissions.",
		}, []string{"kind", "result"})
		EntityCacheTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "entity_cache_total",
			Help:      "Entity cache lookups by entity and result.",
		}, []string{"entity", "result"})

		for _, c := range []**prometheus.CounterVec{&RemoteRequestTotal, &CouponApplyTotal, &AuthDispatchTotal, &CheckoutSubmitTotal, &EntityCacheTotal} {
			target := c
			mustRegisterCollector(reg, *target, func(existing prometheus.Collector) {
				if v, ok := existing.(*prometheus.CounterVec); ok {
					*target = v
				}
			})
		}
		mustRegisterCollector(reg, RemoteRequestLatency, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.HistogramVec); ok {
				RemoteRequestLatency = v
			}
		})
	})
}

// ObserveRemote records one remote call. Safe before registration.
func ObserveRemote(endpoint string, status int, elapsed time.Duration) {
	if RemoteRequestTotal != nil {
		RemoteRequestTotal.WithLabelValues(endpoint, statusClass(status)).Inc()
	}
	if RemoteRequestLatency != nil {
		RemoteRequestLatency.WithLabelValues(endpoint).Observe(DurationMillis(elapsed))
	}
}

// Count increments vec when it has been registered.
func Count(vec *prometheus.CounterVec, labels ...string) {
	if vec == nil {
		return
	}
	vec.WithLabelValues(labels...).Inc()
}

func statusClass(status int) string {
	if status <= 0 {
		return "error"
	}
	return fmt.Sprintf("%dxx", status/100)
}

func mustRegisterCollector(reg prometheus.Registerer, collector prometheus.Collector, reuse func(prometheus.Collector)) {
	if err := reg.Register(collector); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if reuse != nil {
				reuse(are.ExistingCollector)
			}
			return
		}
		panic(fmt.Errorf("register metric: %w", err))
	}
}
