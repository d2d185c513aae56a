package api

import (
	"github.com/go-chi/chi/v5"

	"github.com/good-yellow-bee/fleetwatch/internal/api/alerts"
	"github.com/good-yellow-bee/fleetwatch/internal/api/auth"
	"github.com/good-yellow-bee/fleetwatch/internal/api/buses"
	"github.com/good-yellow-bee/fleetwatch/internal/api/events"
	"github.com/good-yellow-bee/fleetwatch/internal/api/middleware"
	"github.com/good-yellow-bee/fleetwatch/internal/api/reports"
	"github.com/good-yellow-bee/fleetwatch/internal/api/users"
	"github.com/good-yellow-bee/fleetwatch/internal/api/ws"
	"github.com/good-yellow-bee/fleetwatch/internal/report"
)

// setupRouter creates and configures the chi router with all routes.
func (s *Server) setupRouter() *chi.Mux {
	r := chi.NewRouter()

	jwtService := auth.NewJWTService(s.config.JWTSecret, s.config.AccessTokenTTL)
	loginLimiter := middleware.NewRateLimiter(s.config.LoginRatePerMin, s.config.LoginRateBurst)

	// Global middleware
	r.Use(middleware.RequestLogger(s.config.Verbose))
	r.Use(middleware.PrometheusMiddleware)
	r.Use(middleware.Recoverer)

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		// Auth routes (mostly public)
		r.Route("/auth", func(r chi.Router) {
			authHandler := auth.NewHandler(s.storage, jwtService, s.config.RefreshTokenTTL)

			// Public routes with IP rate limiting
			r.Group(func(r chi.Router) {
				r.Use(middleware.RateLimitByIP(loginLimiter))
				r.Post("/login", authHandler.Login)
				r.Post("/refresh", authHandler.Refresh)
			})

			// Protected routes
			r.Group(func(r chi.Router) {
				r.Use(middleware.JWTAuth(jwtService))
				r.Post("/logout", authHandler.Logout)
			})
		})

		// Everything below requires a valid token.
		r.Group(func(r chi.Router) {
			r.Use(middleware.JWTAuth(jwtService))

			r.Route("/buses", func(r chi.Router) {
				busHandler := buses.NewHandler(s.storage)

				r.Get("/", busHandler.List)
				r.Get("/{id}", busHandler.GetByID)

				// Mutations are admin-only
				r.Group(func(r chi.Router) {
					r.Use(middleware.RequireAdmin)
					r.Post("/", busHandler.Create)
					r.Put("/{id}", busHandler.Update)
					r.Delete("/{id}", busHandler.Delete)
				})
			})

			r.Route("/events", func(r chi.Router) {
				eventHandler := events.NewHandler(s.storage, s.ingest)

				r.Post("/", eventHandler.Submit)
				r.Get("/", eventHandler.List)
				r.Get("/{id}", eventHandler.GetByID)
			})

			r.Route("/alerts", func(r chi.Router) {
				alertHandler := alerts.NewHandler(s.storage)

				r.Get("/", alertHandler.List)
				r.Get("/{id}", alertHandler.GetByID)

				// Resolution needs supervisor or admin
				r.Group(func(r chi.Router) {
					r.Use(middleware.RequireCanResolve)
					r.Post("/{id}/resolve", alertHandler.Resolve)
				})
			})

			r.Route("/users", func(r chi.Router) {
				userHandler := users.NewHandler(s.storage)

				// Current user endpoints (any authenticated user)
				r.Get("/me", userHandler.GetCurrentUser)
				r.Put("/me/password", userHandler.ChangePassword)

				// Admin-only endpoints
				r.Group(func(r chi.Router) {
					r.Use(middleware.RequireAdmin)
					r.Get("/", userHandler.List)
					r.Post("/", userHandler.Create)
					r.Get("/{id}", userHandler.GetByID)
					r.Put("/{id}", userHandler.Update)
					r.Delete("/{id}", userHandler.Delete)
				})
			})

			r.Route("/reports", func(r chi.Router) {
				reportHandler := reports.NewHandler(report.NewExporter(s.storage))

				r.Get("/summary", reportHandler.Summary)
				r.Get("/inspections", reportHandler.Export)
			})

			// Live viewer endpoint
			wsHandler := ws.NewHandler(s.hub)
			r.Get("/ws", wsHandler.Serve)
		})
	})

	// Health probes (public, no auth)
	r.Get("/healthz", s.healthHandler.Live)
	r.Get("/readyz", s.healthHandler.Ready)

	return r
}
