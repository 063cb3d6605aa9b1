// Package task implements daily task selection: one randomized (task, room)
// pairing per user per calendar day, avoiding immediate repetition of the
// previous day's task and room.
package task

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"

	"github.com/enesbilik/cleny/internal/model"
	"github.com/enesbilik/cleny/internal/store"
)

var (
	// ErrNoRooms reports that the user has no rooms configured, so no task
	// can be assigned. Nothing is written.
	ErrNoRooms = errors.New("no rooms configured")

	// ErrCatalogEmpty reports that the global task catalog is empty.
	ErrCatalogEmpty = errors.New("task catalog unavailable")
)

// Store is the slice of the relational store the selection algorithm needs.
type Store interface {
	// GetDailyTask returns the task for (userID, date), or store.ErrNotFound.
	GetDailyTask(ctx context.Context, userID, date string) (*model.DailyTask, error)
	ListRooms(ctx context.Context, userID string) ([]model.Room, error)
	ListCatalog(ctx context.Context) ([]model.CatalogEntry, error)
	// LatestAssignment returns the user's most recent daily task by date, or
	// store.ErrNotFound when the user has no history.
	LatestAssignment(ctx context.Context, userID string) (*model.DailyTask, error)
	// InsertDailyTask persists a new assignment and returns the stored row.
	// Returns store.ErrConflict when a row for (user, date) already exists.
	InsertDailyTask(ctx context.Context, t *model.DailyTask) (*model.DailyTask, error)
}

// Assign returns the user's daily task for date, creating it if it does not
// exist yet. Creation is idempotent: at most one row per (user, date) ever
// exists, enforced by the store's uniqueness constraint. When a concurrent
// caller wins the insert, the loser re-reads and returns the winner's row.
func Assign(ctx context.Context, st Store, rng *rand.Rand, userID, date string) (*model.DailyTask, error) {
	existing, err := st.GetDailyTask(ctx, userID, date)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("get daily task: %w", err)
	}

	rooms, err := st.ListRooms(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list rooms: %w", err)
	}
	if len(rooms) == 0 {
		return nil, ErrNoRooms
	}

	catalog, err := st.ListCatalog(ctx)
	if err != nil {
		return nil, fmt.Errorf("list catalog: %w", err)
	}
	if len(catalog) == 0 {
		return nil, ErrCatalogEmpty
	}

	// Only the single most recent assignment is excluded. A one-day lookback
	// is enough for day-to-day variety and keeps selection O(n) in catalog
	// and room size.
	var lastTaskID, lastRoomID string
	last, err := st.LatestAssignment(ctx, userID)
	switch {
	case err == nil:
		lastTaskID = last.TaskCatalogID
		if last.RoomID != nil {
			lastRoomID = *last.RoomID
		}
	case errors.Is(err, store.ErrNotFound):
		// First assignment ever; nothing to exclude.
	default:
		return nil, fmt.Errorf("latest assignment: %w", err)
	}

	// Anti-repetition is best effort: when exclusion would empty a set, fall
	// back to the full set rather than blocking the assignment.
	eligible := excludeEntry(catalog, lastTaskID)
	if len(eligible) == 0 {
		eligible = catalog
	}
	eligibleRooms := excludeRoom(rooms, lastRoomID)
	if len(eligibleRooms) == 0 {
		eligibleRooms = rooms
	}

	entry := eligible[rng.IntN(len(eligible))]

	var roomID *string
	if entry.RoomScope == model.RoomRequired || rng.IntN(2) == 0 {
		id := eligibleRooms[rng.IntN(len(eligibleRooms))].ID
		roomID = &id
	}

	created, err := st.InsertDailyTask(ctx, &model.DailyTask{
		UserID:        userID,
		Date:          date,
		TaskCatalogID: entry.ID,
		RoomID:        roomID,
		Status:        model.StatusAssigned,
	})
	if errors.Is(err, store.ErrConflict) {
		// Lost the race for today's row; the winner's task is the task.
		winner, err := st.GetDailyTask(ctx, userID, date)
		if err != nil {
			return nil, fmt.Errorf("reread after conflict: %w", err)
		}
		return winner, nil
	}
	if err != nil {
		return nil, fmt.Errorf("insert daily task: %w", err)
	}
	return created, nil
}

func excludeEntry(catalog []model.CatalogEntry, id string) []model.CatalogEntry {
	if id == "" {
		return catalog
	}
	out := make([]model.CatalogEntry, 0, len(catalog))
	for _, e := range catalog {
		if e.ID != id {
			out = append(out, e)
		}
	}
	return out
}

func excludeRoom(rooms []model.Room, id string) []model.Room {
	if id == "" {
		return rooms
	}
	out := make([]model.Room, 0, len(rooms))
	for _, r := range rooms {
		if r.ID != id {
			out = append(out, r)
		}
	}
	return out
}
