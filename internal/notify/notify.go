// Package notify segments the notification-enabled user population into
// behavioral campaigns and sends one push batch per non-empty segment.
//
// Each Run is one discrete batch: fetch the enabled set, classify it for the
// requested campaign, send. Nothing is carried across runs except what is
// re-derived from the store each time.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"
)

// Campaign selects which segmentation rule a batch run applies.
type Campaign string

const (
	CampaignDaily      Campaign = "daily"       // every enabled user
	CampaignInactive   Campaign = "inactive"    // no task row for today
	CampaignStreakRisk Campaign = "streak_risk" // completed yesterday, not today
	CampaignMilestone  Campaign = "milestone"   // streak hit a milestone today
	CampaignWeekly     Campaign = "weekly"      // tiered weekly recap
	CampaignDormant    Campaign = "dormant"     // no activity for three days
)

// ErrUnknownCampaign reports an unrecognized campaign type. This is a client
// error on the trigger surface, never a crash.
var ErrUnknownCampaign = errors.New("unknown campaign type")

// Streak lengths that trigger a one-time congratulatory message the day they
// are first reached.
var milestoneLengths = []int{7, 14, 21, 30, 60, 90, 100, 200, 365}

// ParseCampaign resolves the trigger parameter. Absence defaults to daily.
func ParseCampaign(s string) (Campaign, error) {
	switch Campaign(s) {
	case "":
		return CampaignDaily, nil
	case CampaignDaily, CampaignInactive, CampaignStreakRisk,
		CampaignMilestone, CampaignWeekly, CampaignDormant:
		return Campaign(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownCampaign, s)
}

// Store is the slice of the relational store the segmentation engine reads.
// All date arguments are calendar-day strings; ranges are inclusive on both
// ends.
type Store interface {
	// EnabledUserIDs returns every user with notifications enabled.
	EnabledUserIDs(ctx context.Context) ([]string, error)
	// UserIDsWithTaskOn returns users holding any daily-task row on date.
	UserIDsWithTaskOn(ctx context.Context, date string) ([]string, error)
	// UserIDsCompletedOn returns users who completed their task on date.
	UserIDsCompletedOn(ctx context.Context, date string) ([]string, error)
	// UserIDsWithTaskBetween returns users holding any daily-task row in
	// [from, to].
	UserIDsWithTaskBetween(ctx context.Context, from, to string) ([]string, error)
	// CompletionCountsBetween counts completions per user in [from, to].
	// Users with no completions are absent from the map.
	CompletionCountsBetween(ctx context.Context, from, to string) (map[string]int, error)
	// CompletedDatesSince returns each listed user's completion days on or
	// after since.
	CompletedDatesSince(ctx context.Context, userIDs []string, since string) (map[string][]string, error)
}

// Sender delivers one message to a batch of recipients. Delivery is
// best-effort at the batch level: the engine reports the recipient count as
// sent when the batch call succeeds.
type Sender interface {
	Send(ctx context.Context, userIDs []string, title, body string) error
}

// Result summarizes one batch run.
type Result struct {
	Campaign   Campaign       `json:"campaign"`
	Sent       int            `json:"sent"`
	Tiers      map[string]int `json:"tiers,omitempty"`
	Milestones map[int]int    `json:"milestones,omitempty"`
}

// Runner executes campaign batch runs.
type Runner struct {
	store  Store
	sender Sender
	logger *slog.Logger

	// Now supplies the current instant; defaults to time.Now. Injected so
	// tests pin the calendar day.
	Now func() time.Time
	// Rng drives message selection; defaults to a time-seeded generator.
	Rng *rand.Rand
}

// NewRunner creates a Runner with live clock and randomness.
func NewRunner(st Store, sender Sender, logger *slog.Logger) *Runner {
	return &Runner{
		store:  st,
		sender: sender,
		logger: logger,
		Now:    time.Now,
		Rng:    rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
	}
}
