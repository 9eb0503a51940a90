package transport

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/lancerkit/esign/internal/config"
	"github.com/lancerkit/esign/internal/lifecycle"
)

// Dependencies holds all injected dependencies for the HTTP transport layer.
type Dependencies struct {
	Config       *config.Config
	Engine       *lifecycle.Engine
	Authenticate func(http.Handler) http.Handler

	// Health, Ready and Metrics serve the unauthenticated operational
	// endpoints.
	Health  http.HandlerFunc
	Ready   http.HandlerFunc
	Metrics http.Handler

	// MetricsMiddleware instruments every request; RateLimited counts
	// limiter rejections per scope. Both are optional.
	MetricsMiddleware func(http.Handler) http.Handler
	RateLimited       func(scope string)
}

// NewRouter creates a chi.Router with the full middleware pipeline and all
// route registrations. The agreement routes are anonymous: the bearer token
// in the path is the credential. Contract routes require an administrator.
func NewRouter(deps Dependencies) chi.Router {
	r := chi.NewRouter()

	r.Use(Recovery)
	r.Use(RequestID)
	r.Use(SecurityHeaders)
	if deps.MetricsMiddleware != nil {
		r.Use(deps.MetricsMiddleware)
	}

	// Operational endpoints bypass everything else.
	if deps.Health != nil {
		r.Get("/healthz", deps.Health)
	}
	if deps.Ready != nil {
		r.Get("/readyz", deps.Ready)
	}
	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", deps.Metrics)
	}

	auth := deps.Authenticate
	if auth == nil {
		auth = func(next http.Handler) http.Handler { return next }
	}

	readLimit := NewRateLimiter("read", deps.Config.RateLimit.Read)
	mutateLimit := NewRateLimiter("mutate", deps.Config.RateLimit.Mutate)
	readLimit.OnLimited = deps.RateLimited
	mutateLimit.OnLimited = deps.RateLimited

	contracts := NewContractHandler(deps.Engine)
	agreements := NewAgreementHandler(deps.Engine)

	// Administrator surface.
	r.Route("/api/contracts/{contractID}", func(r chi.Router) {
		r.Use(auth)
		r.Use(HandlerTimeout(deps.Config.Server.WriteTimeout))
		r.Use(RequestLogging)
		r.With(mutateLimit.Middleware).Post("/send", contracts.Send)
		r.With(mutateLimit.Middleware).Post("/cancel", contracts.Cancel)
		r.With(readLimit.Middleware).Get("/audit", contracts.Audit)
		r.With(readLimit.Middleware).Post("/verify", contracts.Verify)
	})

	// Anonymous bearer surface.
	r.Route("/api/agreements/{token}", func(r chi.Router) {
		r.Use(HandlerTimeout(deps.Config.Server.WriteTimeout))
		r.Use(RequestLogging)
		r.With(readLimit.Middleware).Get("/", agreements.View)
		r.With(mutateLimit.Middleware).Post("/", agreements.Act)
	})

	return r
}
