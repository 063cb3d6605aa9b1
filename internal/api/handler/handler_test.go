package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/enesbilik/cleny/internal/cache"
	"github.com/enesbilik/cleny/internal/config"
	"github.com/enesbilik/cleny/internal/model"
	"github.com/enesbilik/cleny/internal/notify"
	"github.com/enesbilik/cleny/internal/push"
	"github.com/enesbilik/cleny/internal/store"
)

const (
	testUserID = "8e3f2bfb-1df0-4f9f-a0a5-0a9e6c1f7d42"
	testTaskID = "4c7a2d10-6e2b-4a8a-9c31-2f6c8d9e0b11"
)

// fakeStore satisfies Store with canned data. Zero values mean "not found".
type fakeStore struct {
	task          *model.DailyTask
	detail        *model.DailyTaskDetail
	rooms         []model.Room
	catalog       []model.CatalogEntry
	history       []model.DailyTask
	dates         []string
	completed     *model.DailyTask
	completeErr   error
	catalogCalls  int
	insertedTasks []*model.DailyTask
}

func (f *fakeStore) GetDailyTask(_ context.Context, userID, date string) (*model.DailyTask, error) {
	if f.task == nil {
		return nil, store.ErrNotFound
	}
	return f.task, nil
}

func (f *fakeStore) ListRooms(_ context.Context, userID string) ([]model.Room, error) {
	return f.rooms, nil
}

func (f *fakeStore) ListCatalog(_ context.Context) ([]model.CatalogEntry, error) {
	f.catalogCalls++
	return f.catalog, nil
}

func (f *fakeStore) LatestAssignment(_ context.Context, userID string) (*model.DailyTask, error) {
	return nil, store.ErrNotFound
}

func (f *fakeStore) InsertDailyTask(_ context.Context, t *model.DailyTask) (*model.DailyTask, error) {
	created := *t
	created.ID = testTaskID
	created.Status = model.StatusAssigned
	f.insertedTasks = append(f.insertedTasks, &created)
	return &created, nil
}

func (f *fakeStore) DailyTaskDetailByID(_ context.Context, id string) (*model.DailyTaskDetail, error) {
	if f.detail == nil {
		return nil, store.ErrNotFound
	}
	return f.detail, nil
}

func (f *fakeStore) CompleteDailyTask(_ context.Context, taskID, userID, method string, durationSeconds *int, completedAt time.Time) (*model.DailyTask, error) {
	if f.completeErr != nil {
		return nil, f.completeErr
	}
	t := *f.completed
	t.CompletionMethod = method
	t.DurationSeconds = durationSeconds
	t.CompletedAt = &completedAt
	t.Status = model.StatusCompleted
	return &t, nil
}

func (f *fakeStore) ListTaskHistory(_ context.Context, userID, since string) ([]model.DailyTask, error) {
	return f.history, nil
}

func (f *fakeStore) CompletedDates(_ context.Context, userID string) ([]string, error) {
	return f.dates, nil
}

type noopNotifyStore struct{ enabled []string }

func (n *noopNotifyStore) EnabledUserIDs(context.Context) ([]string, error) { return n.enabled, nil }
func (n *noopNotifyStore) UserIDsWithTaskOn(context.Context, string) ([]string, error) {
	return nil, nil
}
func (n *noopNotifyStore) UserIDsCompletedOn(context.Context, string) ([]string, error) {
	return nil, nil
}
func (n *noopNotifyStore) UserIDsWithTaskBetween(context.Context, string, string) ([]string, error) {
	return nil, nil
}
func (n *noopNotifyStore) CompletionCountsBetween(context.Context, string, string) (map[string]int, error) {
	return nil, nil
}
func (n *noopNotifyStore) CompletedDatesSince(context.Context, []string, string) (map[string][]string, error) {
	return nil, nil
}

type stubSender struct {
	sent int
	err  error
}

func (s *stubSender) Send(_ context.Context, userIDs []string, title, body string) error {
	if s.err != nil {
		return s.err
	}
	s.sent += len(userIDs)
	return nil
}

func newTestHandler(fs *fakeStore, runner *notify.Runner) *Handler {
	h := New(nil, fs, runner, cache.New(true), &config.Config{})
	h.now = func() time.Time { return time.Date(2024, 6, 15, 9, 0, 0, 0, time.UTC) }
	h.rng = rand.New(rand.NewPCG(1, 2))
	return h
}

func doRequest(h http.HandlerFunc, method, target string, body io.Reader, withUser bool) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, body)
	if withUser {
		req.Header.Set(userIDHeader, testUserID)
	}
	rr := httptest.NewRecorder()
	h(rr, req)
	return rr
}

func errorCode(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	var resp struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	return resp.Error.Code
}

func TestRequireUserID(t *testing.T) {
	h := newTestHandler(&fakeStore{}, nil)

	rr := doRequest(h.GetStats, http.MethodGet, "/api/v1/tasks/stats", nil, false)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "MISSING_USER_ID", errorCode(t, rr))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/tasks/stats", nil)
	req.Header.Set(userIDHeader, "not-a-uuid")
	rr = httptest.NewRecorder()
	h.GetStats(rr, req)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "INVALID_USER_ID", errorCode(t, rr))
}

func TestGetTodayTaskAssignsAndReturnsDetail(t *testing.T) {
	fs := &fakeStore{
		rooms:   []model.Room{{ID: "r1", UserID: testUserID, Name: "Kitchen"}},
		catalog: []model.CatalogEntry{{ID: "c1", Title: "Wipe counters", RoomScope: model.RoomRequired}},
	}
	fs.detail = &model.DailyTaskDetail{
		DailyTask: model.DailyTask{ID: testTaskID, UserID: testUserID, Date: "2024-06-15"},
		Catalog:   fs.catalog[0],
		Room:      &fs.rooms[0],
	}
	h := newTestHandler(fs, nil)

	rr := doRequest(h.GetTodayTask, http.MethodGet, "/api/v1/tasks/today", nil, true)
	require.Equal(t, http.StatusOK, rr.Code)
	require.Len(t, fs.insertedTasks, 1)
	assert.Equal(t, "2024-06-15", fs.insertedTasks[0].Date)

	var detail model.DailyTaskDetail
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &detail))
	assert.Equal(t, testTaskID, detail.ID)
	assert.Equal(t, "Wipe counters", detail.Catalog.Title)
}

func TestGetTodayTaskNoRooms(t *testing.T) {
	fs := &fakeStore{catalog: []model.CatalogEntry{{ID: "c1"}}}
	h := newTestHandler(fs, nil)

	rr := doRequest(h.GetTodayTask, http.MethodGet, "/api/v1/tasks/today", nil, true)
	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Equal(t, "NO_ROOMS", errorCode(t, rr))
}

func TestGetStats(t *testing.T) {
	fs := &fakeStore{dates: []string{"2024-06-13", "2024-06-14"}}
	h := newTestHandler(fs, nil)

	rr := doRequest(h.GetStats, http.MethodGet, "/api/v1/tasks/stats", nil, true)
	require.Equal(t, http.StatusOK, rr.Code)

	var s model.Stats
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &s))
	assert.Equal(t, 2, s.CurrentStreak)
	assert.Equal(t, 2, s.TotalCompleted)
	assert.Equal(t, 2, s.Last7DaysCompleted)
}

func TestGetHistoryValidatesDays(t *testing.T) {
	h := newTestHandler(&fakeStore{}, nil)

	for _, bad := range []string{"0", "366", "abc", "-1"} {
		rr := doRequest(h.GetHistory, http.MethodGet, "/api/v1/tasks/history?days="+bad, nil, true)
		assert.Equal(t, http.StatusBadRequest, rr.Code, "days=%s", bad)
		assert.Equal(t, "INVALID_DAYS", errorCode(t, rr))
	}
}

func TestGetCatalogCachesWithETag(t *testing.T) {
	fs := &fakeStore{catalog: []model.CatalogEntry{{ID: "c1", Title: "Dust shelves"}}}
	h := newTestHandler(fs, nil)

	rr := doRequest(h.GetCatalog, http.MethodGet, "/api/v1/tasks/catalog", nil, true)
	require.Equal(t, http.StatusOK, rr.Code)
	etag := rr.Header().Get("ETag")
	require.NotEmpty(t, etag)
	assert.Equal(t, "MISS", rr.Header().Get("X-Cache"))

	// Second hit is served from cache without touching the store.
	rr = doRequest(h.GetCatalog, http.MethodGet, "/api/v1/tasks/catalog", nil, true)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "HIT", rr.Header().Get("X-Cache"))
	assert.Equal(t, 1, fs.catalogCalls)

	// Conditional request with the matching ETag short-circuits to 304.
	req := httptest.NewRequest(http.MethodGet, "/api/v1/tasks/catalog", nil)
	req.Header.Set("If-None-Match", etag)
	rec := httptest.NewRecorder()
	h.GetCatalog(rec, req)
	assert.Equal(t, http.StatusNotModified, rec.Code)
}

func completeRoute(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Post("/api/v1/tasks/{taskID}/complete", h.CompleteTask)
	return r
}

func TestCompleteTask(t *testing.T) {
	fs := &fakeStore{
		completed: &model.DailyTask{ID: testTaskID, UserID: testUserID, Date: "2024-06-15"},
	}
	h := newTestHandler(fs, nil)
	router := completeRoute(h)

	body := strings.NewReader(`{"completion_method":"timer","duration_seconds":600}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/tasks/"+testTaskID+"/complete", body)
	req.Header.Set(userIDHeader, testUserID)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var got model.DailyTask
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	assert.Equal(t, model.StatusCompleted, got.Status)
	assert.Equal(t, "timer", got.CompletionMethod)
	require.NotNil(t, got.DurationSeconds)
	assert.Equal(t, 600, *got.DurationSeconds)
}

func TestCompleteTaskDefaultsMethod(t *testing.T) {
	fs := &fakeStore{
		completed: &model.DailyTask{ID: testTaskID, UserID: testUserID, Date: "2024-06-15"},
	}
	h := newTestHandler(fs, nil)
	router := completeRoute(h)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/tasks/"+testTaskID+"/complete", nil)
	req.Header.Set(userIDHeader, testUserID)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var got model.DailyTask
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	assert.Equal(t, "hold_clean", got.CompletionMethod)
}

func TestCompleteTaskErrors(t *testing.T) {
	h := newTestHandler(&fakeStore{completeErr: store.ErrNotFound}, nil)
	router := completeRoute(h)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/tasks/not-a-uuid/complete", nil)
	req.Header.Set(userIDHeader, testUserID)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "INVALID_TASK_ID", errorCode(t, rr))

	req = httptest.NewRequest(http.MethodPost, "/api/v1/tasks/"+testTaskID+"/complete", nil)
	req.Header.Set(userIDHeader, testUserID)
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "TASK_NOT_FOUND", errorCode(t, rr))
}

func testRunner(ns notify.Store, snd notify.Sender) *notify.Runner {
	r := notify.NewRunner(ns, snd, slog.New(slog.NewTextHandler(io.Discard, nil)))
	r.Now = func() time.Time { return time.Date(2024, 6, 15, 9, 0, 0, 0, time.UTC) }
	return r
}

func TestRunNotificationsValidatesCampaign(t *testing.T) {
	h := newTestHandler(&fakeStore{}, testRunner(&noopNotifyStore{}, &stubSender{}))

	rr := doRequest(h.RunNotifications, http.MethodPost, "/api/v1/notifications/run?type=bogus", nil, false)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "INVALID_CAMPAIGN", errorCode(t, rr))
}

func TestRunNotificationsDaily(t *testing.T) {
	snd := &stubSender{}
	h := newTestHandler(&fakeStore{},
		testRunner(&noopNotifyStore{enabled: []string{"u1", "u2"}}, snd))

	rr := doRequest(h.RunNotifications, http.MethodPost, "/api/v1/notifications/run", nil, false)
	require.Equal(t, http.StatusOK, rr.Code)

	var res notify.Result
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &res))
	assert.Equal(t, notify.CampaignDaily, res.Campaign)
	assert.Equal(t, 2, res.Sent)
	assert.Equal(t, 2, snd.sent)
}

func TestRunNotificationsDeliveryFailure(t *testing.T) {
	snd := &stubSender{err: &push.DeliveryError{Status: 503, Body: "unavailable"}}
	h := newTestHandler(&fakeStore{},
		testRunner(&noopNotifyStore{enabled: []string{"u1"}}, snd))

	rr := doRequest(h.RunNotifications, http.MethodPost, "/api/v1/notifications/run", nil, false)
	require.Equal(t, http.StatusBadGateway, rr.Code)

	var resp struct {
		Error   string        `json:"error"`
		Partial notify.Result `json:"partial"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "push delivery failed", resp.Error)
	assert.Zero(t, resp.Partial.Sent)
}

func TestRunNotificationsCampaignError(t *testing.T) {
	snd := &stubSender{err: errors.New("store exploded")}
	h := newTestHandler(&fakeStore{},
		testRunner(&noopNotifyStore{enabled: []string{"u1"}}, snd))

	rr := doRequest(h.RunNotifications, http.MethodPost, "/api/v1/notifications/run", nil, false)
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Equal(t, "CAMPAIGN_ERROR", errorCode(t, rr))
}
