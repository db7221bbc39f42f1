// Package app assembles the shared infrastructure the storefront is built
// from: the optional Redis connection, the entity cache backend, rate limiter
// stores and the instrumented HTTP client used to reach the remote API.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/extra/redisotel/v9"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	limiter "github.com/ulule/limiter/v3"
	limiterredis "github.com/ulule/limiter/v3/drivers/store/redis"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/xpro-storefront/internal/cache"
	"github.com/noah-isme/xpro-storefront/internal/forms"
	"github.com/noah-isme/xpro-storefront/internal/lock"
	"github.com/noah-isme/xpro-storefront/internal/ratelimit"
)

const (
	limiterPrefix = "xpro:limiter"
	slidingPrefix = "xpro:rl:"
	formPrefix    = "xpro:form:"
)

// Options controls how New builds the dependencies.
type Options struct {
	// RedisURL enables the shared cache and limiter. Empty keeps both in
	// process.
	RedisURL    string
	PingTimeout time.Duration
	// Metrics instruments the Redis client with OpenTelemetry metrics.
	Metrics bool
	Logger  zerolog.Logger
}

// Dependencies enumerates the services shared across handlers.
type Dependencies struct {
	Redis        redis.UniversalClient
	Cache        cache.Backend
	LimiterStore limiter.Store
	HTTP         *http.Client

	Registerer     prometheus.Registerer
	Gatherer       prometheus.Gatherer
	TracerProvider trace.TracerProvider
	MeterProvider  metric.MeterProvider
}

// New connects to Redis when configured and builds the rest of the graph.
// The global OpenTelemetry providers are read here, so tracing must be
// initialised first.
func New(ctx context.Context, opts Options) (*Dependencies, error) {
	deps := &Dependencies{
		Registerer:     prometheus.DefaultRegisterer,
		Gatherer:       prometheus.DefaultGatherer,
		TracerProvider: otel.GetTracerProvider(),
		MeterProvider:  otel.GetMeterProvider(),
	}
	deps.HTTP = &http.Client{
		Transport: otelhttp.NewTransport(http.DefaultTransport,
			otelhttp.WithTracerProvider(deps.TracerProvider),
			otelhttp.WithMeterProvider(deps.MeterProvider),
		),
	}

	redisURL := strings.TrimSpace(opts.RedisURL)
	if redisURL == "" {
		deps.Cache = cache.NewMemory()
		deps.LimiterStore = ratelimit.NewMemory(limiterPrefix).Store
		return deps, nil
	}

	rdb, err := connectRedis(ctx, redisURL, opts, deps)
	if err != nil {
		return nil, err
	}
	store, err := NewLimiterStore(rdb)
	if err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("limiter store: %w", err)
	}
	deps.Redis = rdb
	deps.Cache = cache.NewRedis(rdb)
	deps.LimiterStore = store
	return deps, nil
}

func connectRedis(ctx context.Context, redisURL string, opts Options, deps *Dependencies) (redis.UniversalClient, error) {
	redisOpts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(redisOpts)
	if err := redisotel.InstrumentTracing(rdb, redisotel.WithTracerProvider(deps.TracerProvider)); err != nil {
		opts.Logger.Error().Err(err).Msg("instrument redis tracing")
	}
	if opts.Metrics {
		if err := redisotel.InstrumentMetrics(rdb, redisotel.WithMeterProvider(deps.MeterProvider)); err != nil {
			opts.Logger.Error().Err(err).Msg("instrument redis metrics")
		}
	}

	timeout := opts.PingTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return rdb, nil
}

// NewLimiterStore wires a rate limiter store backed by Redis.
func NewLimiterStore(rdb redis.UniversalClient) (limiter.Store, error) {
	return limiterredis.NewStoreWithOptions(rdb, limiter.StoreOptions{Prefix: limiterPrefix})
}

// AuthLimiter returns the limiter guarding the auth routes. The sliding
// window needs Redis; every other case uses the fixed window store.
func (d *Dependencies) AuthLimiter(strategy string) ratelimit.Allower {
	if strategy == "sliding" && d.Redis != nil {
		return ratelimit.Limiter{Client: d.Redis, Prefix: slidingPrefix}
	}
	return ratelimit.FixedWindow{Store: d.LimiterStore}
}

// FormLocker returns the cross-instance form lock, or nil without Redis.
func (d *Dependencies) FormLocker() forms.Locker {
	if d.Redis == nil {
		return nil
	}
	return lock.Locker{R: d.Redis, Prefix: formPrefix}
}

// Close releases the Redis connection, if any.
func (d *Dependencies) Close() error {
	if d == nil || d.Redis == nil {
		return nil
	}
	if err := d.Redis.Close(); err != nil && !errors.Is(err, redis.ErrClosed) {
		return err
	}
	return nil
}
