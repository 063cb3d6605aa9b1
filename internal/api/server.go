// Package api wires the chi router: middleware stack, CORS, rate limiting,
// and all engagement-engine routes.
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	corslib "github.com/rs/cors"

	"github.com/enesbilik/cleny/internal/api/handler"
	"github.com/enesbilik/cleny/internal/cache"
	"github.com/enesbilik/cleny/internal/config"
	"github.com/enesbilik/cleny/internal/db"
	"github.com/enesbilik/cleny/internal/notify"
	"github.com/enesbilik/cleny/internal/store"
)

// NewRouter creates and configures the Chi router with all middleware and routes.
func NewRouter(pool *db.Pool, runner *notify.Runner, appCache *cache.Cache, cfg *config.Config) *chi.Mux {
	r := chi.NewRouter()

	// --- Middleware stack ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(TimingMiddleware)
	r.Use(middleware.Compress(5)) // gzip

	// CORS
	c := corslib.New(corslib.Options{
		AllowedOrigins:   cfg.CORSAllowOrigins,
		AllowedMethods:   []string{"GET", "POST", "HEAD", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Accept-Encoding", "Content-Type", "If-None-Match", "X-User-ID"},
		ExposedHeaders:   []string{"X-Process-Time", "X-Cache", "ETag"},
		AllowCredentials: false,
	})
	r.Use(c.Handler)

	// Rate limiting
	if cfg.RateLimitEnabled {
		r.Use(RateLimitMiddleware(cfg.RateLimitRequests, cfg.RateLimitWindow))
	}

	// --- Handler dependencies ---
	h := handler.New(pool.Pool, store.New(pool.Pool), runner, appCache, cfg)

	// --- Routes ---

	// Root
	r.Get("/", h.Root)

	// Health checks
	r.Route("/health", func(r chi.Router) {
		r.Get("/", h.HealthCheck)
		r.Get("/db", h.HealthCheckDB)
	})

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		// Daily tasks
		r.Route("/tasks", func(r chi.Router) {
			r.Get("/today", h.GetTodayTask)
			r.Get("/stats", h.GetStats)
			r.Get("/history", h.GetHistory)
			r.Get("/catalog", h.GetCatalog)
			r.Post("/{taskID}/complete", h.CompleteTask)
		})

		// Campaign trigger (platform cron)
		r.Post("/notifications/run", h.RunNotifications)
	})

	return r
}
