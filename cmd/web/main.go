package main

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/noah-isme/xpro-storefront/internal/app"
	"github.com/noah-isme/xpro-storefront/internal/checkout"
	"github.com/noah-isme/xpro-storefront/internal/config"
	"github.com/noah-isme/xpro-storefront/internal/entities"
	"github.com/noah-isme/xpro-storefront/internal/health"
	"github.com/noah-isme/xpro-storefront/internal/obs"
	"github.com/noah-isme/xpro-storefront/internal/ratelimit"
	"github.com/noah-isme/xpro-storefront/internal/remote"
	"github.com/noah-isme/xpro-storefront/internal/resilience"
	"github.com/noah-isme/xpro-storefront/internal/security"
	"github.com/noah-isme/xpro-storefront/internal/web"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logFormat := envOrDefault("OBS_LOG_FORMAT", "json")
	logLevel := envOrDefault("OBS_LOG_LEVEL", "info")
	logger := obs.NewLogger(logFormat, logLevel).With().Str("env", cfg.AppEnv).Logger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tracingEnabled := envBool("OBS_ENABLE_TRACING", true)
	if tracingEnabled {
		shutdown, err := obs.InitTracer(ctx, obs.TracingConfig{
			ServiceName:   envOrDefault("OBS_SERVICE_NAME", obs.DefaultServiceName),
			Endpoint:      envOrDefault("OBS_OTLP_ENDPOINT", ""),
			Exporter:      envOrDefault("OBS_TRACING_EXPORTER", "otlp"),
			SamplingRatio: envFloat("OBS_TRACING_SAMPLING_RATIO", 1.0),
			Environment:   cfg.AppEnv,
		})
		if err != nil {
			logger.Error().Err(err).Msg("initialise tracing")
			tracingEnabled = false
		} else {
			defer func() {
				if err := shutdown(context.Background()); err != nil {
					logger.Error().Err(err).Msg("shutdown tracer")
				}
			}()
		}
	}

	metricsEnabled := envBool("OBS_ENABLE_PROMETHEUS", true)
	deps, err := app.New(ctx, app.Options{
		RedisURL: cfg.RedisURL,
		Metrics:  metricsEnabled,
		Logger:   logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise dependencies")
	}
	defer func() {
		if err := deps.Close(); err != nil {
			logger.Error().Err(err).Msg("close redis")
		}
	}()

	metricsNamespace := envOrDefault("OBS_METRICS_NAMESPACE", "xpro")
	var httpMetrics *obs.HTTPMetrics
	if metricsEnabled {
		obs.MustRegisterDomainMetrics(metricsNamespace, deps.Registerer)
		buckets := obs.ParseBucketsCSV(envOrDefault("OBS_METRICS_BUCKETS_MS", ""))
		httpMetrics = obs.NewHTTPMetrics(metricsNamespace, buckets, deps.Registerer)
	}

	client, err := remote.New(remote.Config{
		BaseURL: cfg.APIBaseURL,
		HTTP: resilience.HTTPClient{
			Client: deps.HTTP,
			Breaker: resilience.NewBreaker(resilience.BreakerConfig{
				Target:       "xpro-api",
				MinRequests:  cfg.BreakerMinReqs,
				FailureRatio: cfg.BreakerFailRatio,
				OpenFor:      cfg.BreakerOpenFor,
				Logger:       logger,
			}),
			BaseBackoff: cfg.RemoteBackoff,
			MaxAttempts: cfg.RemoteMaxAttempts,
			Jitter:      envFloat("REMOTE_BACKOFF_JITTER", 0.2),
			Timeout:     cfg.RemoteTimeout,
		},
		CSRFCookie: cfg.CSRFCookieName,
		CSRFHeader: cfg.CSRFHeaderName,
		UserAgent:  "xpro-storefront",
		Logger:     logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise remote client")
	}

	store := entities.NewStore(client, deps.Cache, entities.Options{
		CatalogTTL: cfg.CatalogCacheTTL,
		BasketTTL:  cfg.BasketCacheTTL,
		Logger:     logger,
	})

	var metricsHandler, pprofHandler http.Handler
	if metricsEnabled {
		metricsHandler = promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})
	}
	if envBool("OBS_ENABLE_PPROF", !cfg.Production()) {
		user := envOrDefault("SECURE_PPROF_BASIC_AUTH_USER", "")
		pass := envOrDefault("SECURE_PPROF_BASIC_AUTH_PASS", "")
		pprofHandler = protectPprof(newPprofMux(), user, pass)
	}

	router := web.NewRouter(web.RouterConfig{
		Logger:      logger,
		HTTPMetrics: httpMetrics,
		Tracing:     tracingEnabled,
		CORSOrigins: cfg.CORSAllowedOrigins,
		CSRFHeader:  cfg.CSRFHeaderName,
		Sessions: web.Sessions{
			SessionCookie:  cfg.SessionCookieName,
			CSRFCookie:     cfg.CSRFCookieName,
			CookieDomain:   cfg.CookieDomain,
			CookieSecure:   cfg.CookieSecure,
			CookieSameSite: cfg.CookieSameSite,
		},
		CSRF: security.CSRF{
			Header:         cfg.CSRFHeaderName,
			Cookie:         cfg.CSRFCookieName,
			Issue:          true,
			CookieDomain:   cfg.CookieDomain,
			CookieSecure:   cfg.CookieSecure,
			CookieSameSite: cfg.CookieSameSite,
		},
		Headers:   security.Headers{Enable: true, EnableHSTS: cfg.Production(), HSTSMaxAge: envInt("SECURE_HSTS_MAX_AGE", 31536000)},
		BodyLimit: security.BodyLimit{Max: cfg.BodyLimitBytes},
		AuthLimit: &ratelimit.Handler{
			Limiter: deps.AuthLimiter(cfg.RateLimitStrategy),
			Config: ratelimit.Config{
				Key:    ratelimit.KeyByIPAndPath("auth:"),
				Window: cfg.RateLimitAuthWindow,
				Max:    cfg.RateLimitAuthMax,
			},
			OnError: func(err error) {
				logger.Warn().Err(err).Msg("auth rate limiter unavailable")
			},
		},
		FormLock: deps.FormLocker(),
		Health: health.Handler{
			Checker:       health.Pingers{Remote: client.Ping, Cache: store.Ping},
			RemoteTimeout: envDurationMillis("HEALTH_READY_REMOTE_TIMEOUT_MS", 1000),
			CacheTimeout:  envDurationMillis("HEALTH_READY_CACHE_TIMEOUT_MS", 300),
		},
		Metrics: metricsHandler,
		Pprof:   pprofHandler,
		Auth:    &web.AuthHandler{API: client, Logger: logger},
		Catalog: &web.CatalogHandler{Store: store, API: client, Logger: logger},
		Checkout: &checkout.Handler{
			Svc: checkout.NewService(client, store, logger),
			B2B: checkout.NewB2BService(client, store, logger),
		},
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", srv.Addr).Str("remote", client.BaseURL()).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			logger.Fatal().Err(err).Msg("server exited unexpectedly")
		}
	case <-ctx.Done():
	}

	health.SetReady(false)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), envDurationMillis("SHUTDOWN_TIMEOUT_MS", 15000))
	defer cancel()
	logger.Info().Msg("server shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown")
	}
}

func envOrDefault(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		trimmed := strings.TrimSpace(val)
		if trimmed != "" {
			return trimmed
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if val, ok := os.LookupEnv(key); ok {
		switch strings.ToLower(strings.TrimSpace(val)) {
		case "1", "t", "true", "yes", "on":
			return true
		case "0", "f", "false", "no", "off":
			return false
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if val, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.ParseFloat(strings.TrimSpace(val), 64); err == nil {
			return parsed
		}
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if val, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.Atoi(strings.TrimSpace(val)); err == nil {
			return parsed
		}
	}
	return fallback
}

func envDurationMillis(key string, fallback int) time.Duration {
	return time.Duration(envInt(key, fallback)) * time.Millisecond
}

func newPprofMux() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", pprof.Index)
	mux.HandleFunc("/cmdline", pprof.Cmdline)
	mux.HandleFunc("/profile", pprof.Profile)
	mux.HandleFunc("/symbol", pprof.Symbol)
	mux.HandleFunc("/trace", pprof.Trace)
	for _, name := range []string{"allocs", "block", "goroutine", "heap", "mutex", "threadcreate"} {
		mux.Handle("/"+name, pprof.Handler(name))
	}
	return mux
}

func protectPprof(handler http.Handler, user, pass string) http.Handler {
	user = strings.TrimSpace(user)
	pass = strings.TrimSpace(pass)
	if user == "" {
		return handler
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, p, ok := r.BasicAuth()
		if !ok || subtle.ConstantTimeCompare([]byte(u), []byte(user)) != 1 || subtle.ConstantTimeCompare([]byte(p), []byte(pass)) != 1 {
			w.Header().Set("WWW-Authenticate", "Basic realm=restricted")
			http.Error(w, "unauthorised", http.StatusUnauthorized)
			return
		}
		handler.ServeHTTP(w, r)
	})
}
