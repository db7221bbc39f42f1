package config

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	AppEnv             string
	Port               string
	CORSAllowedOrigins []string

	// Remote API.
	APIBaseURL        string
	RemoteTimeout     time.Duration
	RemoteMaxAttempts int
	RemoteBackoff     time.Duration
	BreakerMinReqs    int
	BreakerFailRatio  float64
	BreakerOpenFor    time.Duration

	// Browser cookies forwarded to the remote API.
	SessionCookieName string
	CSRFCookieName    string
	CSRFHeaderName    string
	CookieDomain      string
	CookieSecure      bool
	CookieSameSite    http.SameSite

	// Entity cache. An empty RedisURL keeps the cache in process.
	RedisURL        string
	CatalogCacheTTL time.Duration
	BasketCacheTTL  time.Duration

	// Auth endpoint throttling. Strategy "sliding" needs Redis; without it
	// the fixed window limiter is used.
	RateLimitStrategy   string
	RateLimitAuthMax    int
	RateLimitAuthWindow time.Duration

	BodyLimitBytes int64
}

// Load reads configuration from environment variables and optional .env files.
func Load() (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", func(s string) string { return s }), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	cfg := &Config{
		AppEnv:             valueOrDefault(k.String("APP_ENV"), "development"),
		Port:               valueOrDefault(k.String("PORT"), "8080"),
		CORSAllowedOrigins: splitAndTrim(k.String("CORS_ALLOWED_ORIGINS")),

		APIBaseURL:        strings.TrimRight(strings.TrimSpace(k.String("XPRO_API_BASE_URL")), "/"),
		RemoteTimeout:     parseDuration(k.String("REMOTE_TIMEOUT"), "10s"),
		RemoteMaxAttempts: parseInt(k.String("REMOTE_MAX_ATTEMPTS"), 3),
		RemoteBackoff:     parseDuration(k.String("REMOTE_BACKOFF"), "200ms"),
		BreakerMinReqs:    parseInt(k.String("REMOTE_BREAKER_MIN_REQUESTS"), 20),
		BreakerFailRatio:  parseFloat(k.String("REMOTE_BREAKER_FAILURE_RATIO"), 0.5),
		BreakerOpenFor:    parseDuration(k.String("REMOTE_BREAKER_OPEN_FOR"), "30s"),

		SessionCookieName: valueOrDefault(k.String("SESSION_COOKIE_NAME"), "sessionid"),
		CSRFCookieName:    valueOrDefault(k.String("CSRF_COOKIE_NAME"), "csrftoken"),
		CSRFHeaderName:    valueOrDefault(k.String("CSRF_HEADER"), "X-CSRFTOKEN"),
		CookieDomain:      strings.TrimSpace(k.String("COOKIE_DOMAIN")),
		CookieSecure:      parseBool(k.String("COOKIE_SECURE")),
		CookieSameSite:    parseSameSite(k.String("COOKIE_SAMESITE")),

		RedisURL:        strings.TrimSpace(k.String("REDIS_URL")),
		CatalogCacheTTL: parseDuration(k.String("CATALOG_CACHE_TTL"), "5m"),
		BasketCacheTTL:  parseDuration(k.String("BASKET_CACHE_TTL"), "30s"),

		RateLimitStrategy:   strings.ToLower(valueOrDefault(k.String("RATE_LIMIT_STRATEGY"), "sliding")),
		RateLimitAuthMax:    parseInt(k.String("RATE_LIMIT_AUTH_MAX"), 10),
		RateLimitAuthWindow: parseDuration(k.String("RATE_LIMIT_AUTH_WINDOW"), "1m"),

		BodyLimitBytes: int64(parseInt(k.String("BODY_LIMIT_BYTES"), 1<<20)),
	}

	if cfg.CookieSameSite == http.SameSiteDefaultMode {
		cfg.CookieSameSite = http.SameSiteLaxMode
	}

	if cfg.APIBaseURL == "" {
		return nil, errors.New("XPRO_API_BASE_URL is required")
	}
	u, err := url.Parse(cfg.APIBaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("XPRO_API_BASE_URL must be an absolute http(s) url, got %q", cfg.APIBaseURL)
	}
	if cfg.RemoteMaxAttempts < 1 {
		return nil, errors.New("REMOTE_MAX_ATTEMPTS must be at least 1")
	}
	if cfg.RateLimitStrategy != "sliding" && cfg.RateLimitStrategy != "fixed" {
		return nil, fmt.Errorf("RATE_LIMIT_STRATEGY must be sliding or fixed, got %q", cfg.RateLimitStrategy)
	}
	if cfg.BreakerFailRatio <= 0 || cfg.BreakerFailRatio > 1 {
		return nil, errors.New("REMOTE_BREAKER_FAILURE_RATIO must be in (0, 1]")
	}

	return cfg, nil
}

// HTTPAddr returns the address the HTTP server should bind to.
func (c *Config) HTTPAddr() string {
	port := strings.TrimSpace(c.Port)
	if port == "" {
		port = "8080"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return ":" + port
}

// Production reports whether the service runs in production.
func (c *Config) Production() bool {
	return strings.EqualFold(c.AppEnv, "production")
}

func splitAndTrim(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func valueOrDefault(value, fallback string) string {
	if strings.TrimSpace(value) != "" {
		return strings.TrimSpace(value)
	}
	return fallback
}

func parseDuration(value, fallback string) time.Duration {
	base := strings.TrimSpace(value)
	if base == "" {
		base = fallback
	}
	d, err := time.ParseDuration(base)
	if err != nil {
		d, _ = time.ParseDuration(fallback)
	}
	return d
}

func parseInt(value string, fallback int) int {
	if n, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
		return n
	}
	return fallback
}

func parseFloat(value string, fallback float64) float64 {
	if f, err := strconv.ParseFloat(strings.TrimSpace(value), 64); err == nil {
		return f
	}
	return fallback
}

func parseBool(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}

func parseSameSite(value string) http.SameSite {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "strict":
		return http.SameSiteStrictMode
	case "none":
		return http.SameSiteNoneMode
	case "lax":
		return http.SameSiteLaxMode
	default:
		return http.SameSiteDefaultMode
	}
}

// MustLoad behaves like Load but panics on error.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// LoadForTests allows tests to override environment variables without touching the real environment.
func LoadForTests(env map[string]string) (*Config, error) {
	original := make(map[string]string, len(env))
	for key := range env {
		original[key] = os.Getenv(key)
		if err := setEnvVar(key, env[key]); err != nil {
			return nil, err
		}
	}
	cfg, err := Load()
	restoreErr := restoreEnv(original)
	if err != nil {
		return nil, err
	}
	return cfg, restoreErr
}

func setEnvVar(key, value string) error {
	if value == "" {
		return os.Unsetenv(key)
	}
	return os.Setenv(key, value)
}

func restoreEnv(values map[string]string) error {
	var errs []string
	for key, value := range values {
		if err := setEnvVar(key, value); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", key, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("restore env: %s", strings.Join(errs, "; "))
	}
	return nil
}
