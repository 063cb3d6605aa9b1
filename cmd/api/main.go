// Command api is the Cleny engagement API server.
//
// Usage:
//
//	cleny-api
//	API_PORT=8080 cleny-api
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"

	"github.com/enesbilik/cleny/internal/api"
	"github.com/enesbilik/cleny/internal/cache"
	"github.com/enesbilik/cleny/internal/config"
	"github.com/enesbilik/cleny/internal/db"
	"github.com/enesbilik/cleny/internal/notify"
	"github.com/enesbilik/cleny/internal/push"
	"github.com/enesbilik/cleny/internal/store"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	// Load .env if present
	_ = godotenv.Load(".env")

	cfg, err := config.Load()
	if err != nil {
		logger.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Context with signal handling
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	// Connect to database (runs migrations)
	logger.Info("Connecting to database...")
	pool, err := db.New(ctx, cfg)
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	logger.Info("Database connected",
		"min_conns", cfg.DBPoolMinConns,
		"max_conns", cfg.DBPoolMaxConns)

	// Catalog cache
	appCache := cache.New(true)

	// Campaign runner. The sender is nil-safe: without OneSignal credentials
	// campaign runs log and count but deliver nothing.
	sender := push.NewOneSignal(cfg.OneSignalAppID, cfg.OneSignalAPIKey, logger)
	runner := notify.NewRunner(store.New(pool.Pool), sender, logger)
	if sender == nil {
		logger.Info("Push delivery disabled (no ONESIGNAL_REST_API_KEY)")
	}

	// In-process campaign schedule, for deployments without external cron
	if cfg.NotifyScheduleEnabled {
		go notify.StartSchedule(ctx, runner, notify.DefaultSchedule())
		logger.Info("Campaign schedule started")
	}

	// Create router
	router := api.NewRouter(pool, runner, appCache, cfg)

	// Create HTTP server
	addr := fmt.Sprintf("%s:%d", cfg.APIHost, cfg.APIPort)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in background
	go func() {
		logger.Info("Starting Cleny engagement API",
			"addr", addr,
			"environment", cfg.Environment)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt
	<-ctx.Done()
	logger.Info("Shutting down...")

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Shutdown error", "error", err)
	}
	logger.Info("Server stopped")
}
