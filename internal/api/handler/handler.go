// Package handler provides HTTP handlers for the engagement API. Handlers
// hold no business logic: they validate input, call into the engine packages,
// and map engine errors onto HTTP statuses.
package handler

import (
	"context"
	"math/rand/v2"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/enesbilik/cleny/internal/api/respond"
	"github.com/enesbilik/cleny/internal/cache"
	"github.com/enesbilik/cleny/internal/config"
	"github.com/enesbilik/cleny/internal/model"
	"github.com/enesbilik/cleny/internal/notify"
	"github.com/enesbilik/cleny/internal/task"
)

// userIDHeader carries the authenticated user's id, injected by the gateway
// in front of this service. Session validation happens there, not here.
const userIDHeader = "X-User-ID"

// Store is the slice of the relational store the surfaces need beyond what
// task.Store covers.
type Store interface {
	task.Store
	DailyTaskDetailByID(ctx context.Context, id string) (*model.DailyTaskDetail, error)
	CompleteDailyTask(ctx context.Context, taskID, userID, method string, durationSeconds *int, completedAt time.Time) (*model.DailyTask, error)
	ListTaskHistory(ctx context.Context, userID, since string) ([]model.DailyTask, error)
	CompletedDates(ctx context.Context, userID string) ([]string, error)
}

// Handler holds shared dependencies for all endpoint handlers.
type Handler struct {
	pool   *pgxpool.Pool
	store  Store
	runner *notify.Runner
	cache  *cache.Cache
	cfg    *config.Config

	now func() time.Time
	rng *rand.Rand
}

// New creates a Handler with shared dependencies.
func New(pool *pgxpool.Pool, st Store, runner *notify.Runner, c *cache.Cache, cfg *config.Config) *Handler {
	return &Handler{
		pool:   pool,
		store:  st,
		runner: runner,
		cache:  c,
		cfg:    cfg,
		now:    time.Now,
		rng:    rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
	}
}

// Root serves API info at /.
func (h *Handler) Root(w http.ResponseWriter, r *http.Request) {
	respond.WriteJSONObject(w, http.StatusOK, map[string]interface{}{
		"name":    "Cleny Engagement API",
		"version": "1.0.0",
		"status":  "running",
	})
}

// HealthCheck returns basic health status.
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respond.WriteJSONObject(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// HealthCheckDB verifies database connectivity.
func (h *Handler) HealthCheckDB(w http.ResponseWriter, r *http.Request) {
	var n int
	err := h.pool.QueryRow(r.Context(), "health_check").Scan(&n)
	if err != nil {
		respond.WriteJSONObject(w, http.StatusServiceUnavailable, map[string]interface{}{
			"status":    "unhealthy",
			"database":  "disconnected",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
		return
	}
	respond.WriteJSONObject(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"database":  "connected",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// requireUserID extracts and validates the caller's user id. Writes the error
// response itself when validation fails.
func (h *Handler) requireUserID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := r.Header.Get(userIDHeader)
	if id == "" {
		respond.WriteError(w, http.StatusBadRequest, "MISSING_USER_ID",
			userIDHeader+" header is required")
		return "", false
	}
	if _, err := uuid.Parse(id); err != nil {
		respond.WriteError(w, http.StatusBadRequest, "INVALID_USER_ID",
			"user id must be a UUID")
		return "", false
	}
	return id, true
}
