package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/enesbilik/cleny/internal/api/respond"
	"github.com/enesbilik/cleny/internal/cache"
	"github.com/enesbilik/cleny/internal/clock"
	"github.com/enesbilik/cleny/internal/stats"
	"github.com/enesbilik/cleny/internal/store"
	"github.com/enesbilik/cleny/internal/task"
)

const (
	defaultHistoryDays = 14
	maxHistoryDays     = 365
)

// GetTodayTask returns the caller's task for the current civil day, creating
// it when none exists yet. Two calls on the same day always return the same
// row.
func (h *Handler) GetTodayTask(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireUserID(w, r)
	if !ok {
		return
	}

	today := clock.Today(h.now(), 0)
	t, err := task.Assign(r.Context(), h.store, h.rng, userID, today)
	if err != nil {
		h.writeTaskError(w, err)
		return
	}

	detail, err := h.store.DailyTaskDetailByID(r.Context(), t.ID)
	if err != nil {
		h.writeTaskError(w, err)
		return
	}
	respond.WriteJSONObject(w, http.StatusOK, detail)
}

// GetStats returns the caller's streak and cleanliness analytics.
func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireUserID(w, r)
	if !ok {
		return
	}

	dates, err := h.store.CompletedDates(r.Context(), userID)
	if err != nil {
		respond.WriteError(w, http.StatusInternalServerError, "STORE_ERROR",
			"Could not load completion history")
		return
	}

	s, err := stats.Compute(dates, clock.Today(h.now(), 0))
	if err != nil {
		respond.WriteError(w, http.StatusInternalServerError, "STATS_ERROR",
			"Could not compute stats")
		return
	}
	respond.WriteJSONObject(w, http.StatusOK, s)
}

// GetHistory returns the caller's recent daily tasks, newest first.
func (h *Handler) GetHistory(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireUserID(w, r)
	if !ok {
		return
	}

	days := defaultHistoryDays
	if d := r.URL.Query().Get("days"); d != "" {
		n, err := strconv.Atoi(d)
		if err != nil || n < 1 || n > maxHistoryDays {
			respond.WriteError(w, http.StatusBadRequest, "INVALID_DAYS",
				"days must be an integer between 1 and 365")
			return
		}
		days = n
	}

	since := clock.Today(h.now(), -days)
	history, err := h.store.ListTaskHistory(r.Context(), userID, since)
	if err != nil {
		respond.WriteError(w, http.StatusInternalServerError, "STORE_ERROR",
			"Could not load task history")
		return
	}
	respond.WriteJSONObject(w, http.StatusOK, history)
}

// GetCatalog returns the global task catalog with cache and ETag headers.
func (h *Handler) GetCatalog(w http.ResponseWriter, r *http.Request) {
	const cacheKey = "catalog"

	if data, etag, ok := h.cache.Get(cacheKey); ok {
		if cache.CheckETagMatch(r.Header.Get("If-None-Match"), etag) {
			respond.WriteNotModified(w, etag)
			return
		}
		respond.WriteJSON(w, data, etag, cache.TTLCatalog, true)
		return
	}

	entries, err := h.store.ListCatalog(r.Context())
	if err != nil {
		respond.WriteError(w, http.StatusInternalServerError, "STORE_ERROR",
			"Could not load task catalog")
		return
	}

	data, err := json.Marshal(entries)
	if err != nil {
		respond.WriteError(w, http.StatusInternalServerError, "ENCODE_ERROR",
			"Could not encode catalog")
		return
	}
	etag := h.cache.Set(cacheKey, data, cache.TTLCatalog)
	respond.WriteJSON(w, data, etag, cache.TTLCatalog, false)
}

type completeRequest struct {
	CompletionMethod string `json:"completion_method"`
	DurationSeconds  *int   `json:"duration_seconds"`
}

// CompleteTask transitions the caller's task to completed. The assigned →
// completed transition happens at most once; repeating the call overwrites
// the completion timestamp but never reverts the status.
func (h *Handler) CompleteTask(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireUserID(w, r)
	if !ok {
		return
	}

	taskID := chi.URLParam(r, "taskID")
	if _, err := uuid.Parse(taskID); err != nil {
		respond.WriteError(w, http.StatusBadRequest, "INVALID_TASK_ID",
			"task id must be a UUID")
		return
	}

	var req completeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		req = completeRequest{}
	}
	if req.CompletionMethod == "" {
		req.CompletionMethod = "hold_clean"
	}

	t, err := h.store.CompleteDailyTask(r.Context(), taskID, userID,
		req.CompletionMethod, req.DurationSeconds, h.now().UTC())
	if errors.Is(err, store.ErrNotFound) {
		respond.WriteError(w, http.StatusNotFound, "TASK_NOT_FOUND",
			"No task with that id belongs to this user")
		return
	}
	if err != nil {
		respond.WriteError(w, http.StatusInternalServerError, "STORE_ERROR",
			"Could not complete task")
		return
	}
	respond.WriteJSONObject(w, http.StatusOK, t)
}

// writeTaskError maps task-selection failures onto HTTP statuses.
func (h *Handler) writeTaskError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, task.ErrNoRooms):
		respond.WriteError(w, http.StatusConflict, "NO_ROOMS",
			"Add at least one room before requesting a task")
	case errors.Is(err, task.ErrCatalogEmpty):
		respond.WriteError(w, http.StatusConflict, "CATALOG_UNAVAILABLE",
			"The task catalog is empty")
	case errors.Is(err, store.ErrNotFound):
		respond.WriteError(w, http.StatusNotFound, "TASK_NOT_FOUND",
			"Task not found")
	default:
		respond.WriteError(w, http.StatusInternalServerError, "STORE_ERROR",
			"Could not assign daily task")
	}
}
