package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/noah-isme/xpro-storefront/internal/checkout"
	"github.com/noah-isme/xpro-storefront/internal/forms"
	"github.com/noah-isme/xpro-storefront/internal/health"
	"github.com/noah-isme/xpro-storefront/internal/obs"
	"github.com/noah-isme/xpro-storefront/internal/ratelimit"
	"github.com/noah-isme/xpro-storefront/internal/remote"
	"github.com/noah-isme/xpro-storefront/internal/security"
)

// RouterConfig collects the handlers and middleware of the storefront.
// Nil optional fields disable the matching feature.
type RouterConfig struct {
	Logger      zerolog.Logger
	HTTPMetrics *obs.HTTPMetrics
	Tracing     bool
	CORSOrigins []string
	CSRFHeader  string

	Sessions  Sessions
	CSRF      security.CSRF
	Headers   security.Headers
	BodyLimit security.BodyLimit
	AuthLimit *ratelimit.Handler
	FormLock  forms.Locker

	Health   health.Handler
	Metrics  http.Handler
	Pprof    http.Handler
	Auth     *AuthHandler
	Checkout *checkout.Handler
	Catalog  *CatalogHandler
}

// NewRouter builds the HTTP handler serving the storefront under /app.
func NewRouter(cfg RouterConfig) http.Handler {
	csrfHeader := cfg.CSRFHeader
	if csrfHeader == "" {
		csrfHeader = remote.DefaultCSRFHeader
	}
	origins := cfg.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(obs.RoutePatternMiddleware)
	if cfg.Tracing {
		r.Use(obs.TracingMiddleware)
	}
	if cfg.HTTPMetrics != nil {
		r.Use(obs.HTTPObs{Metrics: cfg.HTTPMetrics}.Middleware)
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Content-Type", csrfHeader, "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	if cfg.Metrics != nil {
		r.Handle("/metrics", cfg.Metrics)
	}
	if cfg.Pprof != nil {
		r.Mount("/debug/pprof", cfg.Pprof)
	}
	r.Get("/health/live", cfg.Health.Live)
	r.Get("/health/ready", cfg.Health.Ready)

	r.Route("/app", func(app chi.Router) {
		app.Use(cfg.Headers.Middleware)
		app.Use(cfg.BodyLimit.Middleware)
		app.Use(cfg.CSRF.Middleware)
		app.Use(cfg.Sessions.Middleware)
		app.Use(forms.LockerMiddleware(cfg.FormLock))
		app.Use(obs.RequestLogger{Logger: cfg.Logger}.Middleware)

		if c := cfg.Catalog; c != nil {
			app.Get("/products", c.Products)
			app.Get("/companies", c.Companies)
			app.Post("/coupons", c.CreateCoupons)
			app.Get("/b2b/orders/{hash}", c.B2BOrderStatus)
		}

		if c := cfg.Checkout; c != nil {
			app.Get("/basket", c.Basket)
			app.Post("/basket/coupon", c.ApplyCoupon)
			app.Delete("/basket/coupon", c.ClearCoupon)
			app.Patch("/basket/items", c.UpdateItems)
			app.Post("/basket/consents", c.SignConsents)
			app.Post("/checkout", c.Checkout)
			app.Post("/b2b/quote", c.Quote)
			app.Post("/b2b/checkout", c.B2BCheckout)
		}

		if a := cfg.Auth; a != nil {
			app.Route("/auth", func(auth chi.Router) {
				if cfg.AuthLimit != nil {
					auth.Use(cfg.AuthLimit.Middleware)
				}
				for _, step := range remote.AuthSteps {
					auth.Post("/"+string(step), a.Step(step))
				}
				auth.Post("/password-reset", a.PasswordReset)
				auth.Post("/password-reset/confirm", a.PasswordResetConfirm)
			})
		}
	})

	return r
}
