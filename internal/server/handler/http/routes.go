// Package http provides HTTP routing and handlers for the vessel portal API.
package http

import (
	"net/http"

	"github.com/atinyakov/VesselPortal/internal/middleware"
	"go.uber.org/zap"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// RouterConfig carries the cross-cutting pieces of the router.
type RouterConfig struct {
	// Verifier checks bearer tokens on /api routes.
	Verifier middleware.TokenVerifier
	// CORSOrigins lists the browser origins allowed to call the API.
	CORSOrigins []string
	// RateLimiter limits /api requests per user; nil disables it.
	RateLimiter *middleware.RateLimiter
	// Metrics serves /metrics when set.
	Metrics http.Handler
	// Logger is used by the logging and recovery middleware.
	Logger *zap.Logger
}

// NewRouter constructs and returns an HTTP handler that serves the vessel
// portal API.
//
// Routes:
//
//	GET   /health                        → Health (public)
//	GET   /metrics                       → cfg.Metrics (public, optional)
//	GET   /api/users/me                  → users.Me
//	PATCH /api/users/me                  → users.UpdateMe
//	GET   /api/users/me/activity         → users.MyActivity (audit log only)
//	GET   /api/vessels                   → vessels.List
//	GET   /api/vessels/{vesselID}        → vessels.Get
//	PATCH /api/vessels/{vesselID}/status → vessels.UpdateStatus
//
// Middleware chain (applied in order):
//  1. RequestID                            - assigns X-Request-ID
//  2. WithRequestLogging(logger)           - logs every request
//  3. Recoverer(logger)                    - turns panics into a generic 500
//  4. cors.Handler                         - answers preflight requests
//
// and under /api:
//  5. BearerAuth                           - verifies the identity token
//  6. RateLimiter                          - per-user token bucket
//  7. AllowContentType("application/json") - rejects non-JSON bodies
func NewRouter(users *UserHandler, vessels *VesselHandler, cfg RouterConfig) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.WithRequestLogging(logger))
	r.Use(middleware.Recoverer(logger))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		ExposedHeaders:   []string{middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.NotFound(NotFound)
	r.MethodNotAllowed(MethodNotAllowed)

	r.Get("/health", Health)
	if cfg.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", cfg.Metrics)
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.BearerAuth(cfg.Verifier, logger))
		if cfg.RateLimiter != nil {
			r.Use(cfg.RateLimiter.Middleware)
		}
		r.Use(chiMiddleware.AllowContentType("application/json"))

		r.Get("/users/me", users.Me)
		r.Patch("/users/me", users.UpdateMe)
		if users.Activity != nil {
			r.Get("/users/me/activity", users.MyActivity)
		}

		r.Route("/vessels", func(r chi.Router) {
			r.Get("/", vessels.List)
			r.Get("/{vesselID}", vessels.Get)
			r.Patch("/{vesselID}/status", vessels.UpdateStatus)
		})
	})

	return r
}
