// Package model holds the transient in-memory views of rows owned by the
// relational store. The engine never mutates these beyond what its own
// operations write back.
package model

import "time"

// Room scope values for catalog entries.
const (
	RoomRequired = "ROOM_REQUIRED"
	RoomOptional = "ROOM_OPTIONAL"
)

// Daily task status values.
const (
	StatusAssigned  = "assigned"
	StatusCompleted = "completed"
)

// Room belongs to exactly one user. The 1–10 per user invariant is enforced
// by the CRUD layer, not here.
type Room struct {
	ID        string `json:"id"`
	UserID    string `json:"user_id"`
	Name      string `json:"name"`
	SortOrder int    `json:"sort_order"`
}

// CatalogEntry is a global task shared across all users, immutable from the
// engine's perspective.
type CatalogEntry struct {
	ID              string `json:"id"`
	Title           string `json:"title"`
	Description     string `json:"description"`
	RoomScope       string `json:"room_scope"`
	DurationMinutes int    `json:"duration_minutes"`
	Icon            string `json:"icon"`
}

// DailyTask is the one-per-(user, day) assignment. Date is a calendar day in
// the app's civil timezone (clock.DayFormat).
type DailyTask struct {
	ID               string     `json:"id"`
	UserID           string     `json:"user_id"`
	Date             string     `json:"date"`
	TaskCatalogID    string     `json:"task_catalog_id"`
	RoomID           *string    `json:"room_id"`
	Status           string     `json:"status"`
	CompletedAt      *time.Time `json:"completed_at"`
	CompletionMethod string     `json:"completion_method,omitempty"`
	DurationSeconds  *int       `json:"duration_seconds,omitempty"`
}

// DailyTaskDetail is a DailyTask joined with its catalog entry and, when one
// was assigned, its room.
type DailyTaskDetail struct {
	DailyTask
	Catalog CatalogEntry `json:"tasks_catalog"`
	Room    *Room        `json:"rooms"`
}

// Stats is the five-field analytics object computed from a user's completion
// history.
type Stats struct {
	CurrentStreak      int `json:"currentStreak"`
	BestStreak         int `json:"bestStreak"`
	TotalCompleted     int `json:"totalCompleted"`
	Last7DaysCompleted int `json:"last7DaysCompleted"`
	CleanlinessLevel   int `json:"cleanlinessLevel"`
}
