// Package store is the Postgres access layer for the engagement engine.
// Queries run against prepared statements registered in internal/db; writes
// use inline SQL. Row absence maps to ErrNotFound, uniqueness violations to
// ErrConflict; everything else surfaces wrapped and unretried.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/enesbilik/cleny/internal/model"
)

// pgUniqueViolation is the Postgres error code for a unique constraint hit.
const pgUniqueViolation = "23505"

// Store executes engine queries against a pgx pool.
type Store struct {
	pool *pgxpool.Pool
}

// New creates a Store.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func scanDailyTask(scanner interface{ Scan(...any) error }) (*model.DailyTask, error) {
	var t model.DailyTask
	err := scanner.Scan(
		&t.ID, &t.UserID, &t.Date, &t.TaskCatalogID, &t.RoomID,
		&t.Status, &t.CompletedAt, &t.CompletionMethod, &t.DurationSeconds,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// GetDailyTask returns the task assigned to the user for a calendar day.
func (s *Store) GetDailyTask(ctx context.Context, userID, date string) (*model.DailyTask, error) {
	t, err := scanDailyTask(s.pool.QueryRow(ctx, "daily_task_by_user_date", userID, date))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get daily task: %w", err)
	}
	return t, nil
}

// ListRooms returns the user's rooms ordered by sort order.
func (s *Store) ListRooms(ctx context.Context, userID string) ([]model.Room, error) {
	rows, err := s.pool.Query(ctx, "rooms_by_user", userID)
	if err != nil {
		return nil, fmt.Errorf("list rooms: %w", err)
	}
	defer rows.Close()

	var rooms []model.Room
	for rows.Next() {
		var r model.Room
		if err := rows.Scan(&r.ID, &r.UserID, &r.Name, &r.SortOrder); err != nil {
			return nil, fmt.Errorf("scan room: %w", err)
		}
		rooms = append(rooms, r)
	}
	return rooms, rows.Err()
}

// ListCatalog returns the global task catalog.
func (s *Store) ListCatalog(ctx context.Context) ([]model.CatalogEntry, error) {
	rows, err := s.pool.Query(ctx, "catalog_all")
	if err != nil {
		return nil, fmt.Errorf("list catalog: %w", err)
	}
	defer rows.Close()

	var entries []model.CatalogEntry
	for rows.Next() {
		var e model.CatalogEntry
		if err := rows.Scan(&e.ID, &e.Title, &e.Description, &e.RoomScope,
			&e.DurationMinutes, &e.Icon); err != nil {
			return nil, fmt.Errorf("scan catalog entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// LatestAssignment returns the user's most recent daily task by date.
func (s *Store) LatestAssignment(ctx context.Context, userID string) (*model.DailyTask, error) {
	t, err := scanDailyTask(s.pool.QueryRow(ctx, "latest_assignment", userID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("latest assignment: %w", err)
	}
	return t, nil
}

// InsertDailyTask persists a new assignment. The (user_id, date) uniqueness
// constraint turns a concurrent double-create into ErrConflict.
func (s *Store) InsertDailyTask(ctx context.Context, t *model.DailyTask) (*model.DailyTask, error) {
	created, err := scanDailyTask(s.pool.QueryRow(ctx, `
		INSERT INTO daily_tasks (user_id, date, task_catalog_id, room_id, status)
		VALUES ($1, $2::date, $3, $4, $5)
		RETURNING id, user_id, date::text, task_catalog_id, room_id, status,
		          completed_at, completion_method, duration_seconds`,
		t.UserID, t.Date, t.TaskCatalogID, t.RoomID, t.Status,
	))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return nil, ErrConflict
		}
		return nil, fmt.Errorf("insert daily task: %w", err)
	}
	return created, nil
}

// CompleteDailyTask transitions a task to completed. Returns ErrNotFound when
// no task matches (id, user).
func (s *Store) CompleteDailyTask(ctx context.Context, taskID, userID, method string, durationSeconds *int, completedAt time.Time) (*model.DailyTask, error) {
	t, err := scanDailyTask(s.pool.QueryRow(ctx, `
		UPDATE daily_tasks
		SET status = 'completed', completed_at = $3,
		    completion_method = $4, duration_seconds = $5
		WHERE id = $1 AND user_id = $2
		RETURNING id, user_id, date::text, task_catalog_id, room_id, status,
		          completed_at, completion_method, duration_seconds`,
		taskID, userID, completedAt, method, durationSeconds,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("complete daily task: %w", err)
	}
	return t, nil
}

// DailyTaskDetailByID returns a task joined with its catalog entry and room.
func (s *Store) DailyTaskDetailByID(ctx context.Context, id string) (*model.DailyTaskDetail, error) {
	var d model.DailyTaskDetail
	var roomID, roomUserID, roomName *string
	var roomSort *int

	err := s.pool.QueryRow(ctx, "daily_task_detail_by_id", id).Scan(
		&d.ID, &d.UserID, &d.Date, &d.TaskCatalogID, &d.RoomID,
		&d.Status, &d.CompletedAt, &d.CompletionMethod, &d.DurationSeconds,
		&d.Catalog.ID, &d.Catalog.Title, &d.Catalog.Description,
		&d.Catalog.RoomScope, &d.Catalog.DurationMinutes, &d.Catalog.Icon,
		&roomID, &roomUserID, &roomName, &roomSort,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("daily task detail: %w", err)
	}
	if roomID != nil {
		d.Room = &model.Room{ID: *roomID, UserID: *roomUserID,
			Name: *roomName, SortOrder: *roomSort}
	}
	return &d, nil
}

// ListTaskHistory returns the user's daily tasks on or after a calendar day,
// newest first.
func (s *Store) ListTaskHistory(ctx context.Context, userID, since string) ([]model.DailyTask, error) {
	rows, err := s.pool.Query(ctx, "task_history", userID, since)
	if err != nil {
		return nil, fmt.Errorf("task history: %w", err)
	}
	defer rows.Close()

	var tasks []model.DailyTask
	for rows.Next() {
		t, err := scanDailyTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan history row: %w", err)
		}
		tasks = append(tasks, *t)
	}
	return tasks, rows.Err()
}

// CompletedDates returns every calendar day the user completed a task,
// newest first. Sole input to streak computation.
func (s *Store) CompletedDates(ctx context.Context, userID string) ([]string, error) {
	rows, err := s.pool.Query(ctx, "completed_dates", userID)
	if err != nil {
		return nil, fmt.Errorf("completed dates: %w", err)
	}
	defer rows.Close()
	return scanStrings(rows)
}

// EnabledUserIDs returns every user with notifications enabled.
func (s *Store) EnabledUserIDs(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, "enabled_user_ids")
	if err != nil {
		return nil, fmt.Errorf("enabled users: %w", err)
	}
	defer rows.Close()
	return scanStrings(rows)
}

// UserIDsWithTaskOn returns users holding any daily-task row on date.
func (s *Store) UserIDsWithTaskOn(ctx context.Context, date string) ([]string, error) {
	rows, err := s.pool.Query(ctx, "users_with_task_on", date)
	if err != nil {
		return nil, fmt.Errorf("users with task: %w", err)
	}
	defer rows.Close()
	return scanStrings(rows)
}

// UserIDsCompletedOn returns users who completed their task on date.
func (s *Store) UserIDsCompletedOn(ctx context.Context, date string) ([]string, error) {
	rows, err := s.pool.Query(ctx, "users_completed_on", date)
	if err != nil {
		return nil, fmt.Errorf("users completed: %w", err)
	}
	defer rows.Close()
	return scanStrings(rows)
}

// UserIDsWithTaskBetween returns users holding any daily-task row in the
// inclusive [from, to] window.
func (s *Store) UserIDsWithTaskBetween(ctx context.Context, from, to string) ([]string, error) {
	rows, err := s.pool.Query(ctx, "users_with_task_between", from, to)
	if err != nil {
		return nil, fmt.Errorf("users with task between: %w", err)
	}
	defer rows.Close()
	return scanStrings(rows)
}

// CompletionCountsBetween counts completions per user in the inclusive
// [from, to] window. Users with zero completions are absent from the map.
func (s *Store) CompletionCountsBetween(ctx context.Context, from, to string) (map[string]int, error) {
	rows, err := s.pool.Query(ctx, "completion_counts_between", from, to)
	if err != nil {
		return nil, fmt.Errorf("completion counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var id string
		var n int
		if err := rows.Scan(&id, &n); err != nil {
			return nil, fmt.Errorf("scan completion count: %w", err)
		}
		counts[id] = n
	}
	return counts, rows.Err()
}

// CompletedDatesSince returns each listed user's completion days on or after
// since, grouped by user.
func (s *Store) CompletedDatesSince(ctx context.Context, userIDs []string, since string) (map[string][]string, error) {
	rows, err := s.pool.Query(ctx, "completed_dates_since", userIDs, since)
	if err != nil {
		return nil, fmt.Errorf("completed dates since: %w", err)
	}
	defer rows.Close()

	dates := make(map[string][]string)
	for rows.Next() {
		var id, date string
		if err := rows.Scan(&id, &date); err != nil {
			return nil, fmt.Errorf("scan completion date: %w", err)
		}
		dates[id] = append(dates[id], date)
	}
	return dates, rows.Err()
}

func scanStrings(rows pgx.Rows) ([]string, error) {
	var out []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}
