package notify

import (
	"context"
	"time"

	"github.com/enesbilik/cleny/internal/clock"
)

// Entry fires one campaign at a fixed hour of the civil day, at most once per
// calendar day. Weekday restricts the entry to one day of the week.
type Entry struct {
	Campaign Campaign
	Hour     int
	Weekday  *time.Weekday
}

// DefaultSchedule mirrors the cron layout the campaigns were designed around:
// greeting in the morning, activation at noon, risk warnings in the evening,
// recap on Sunday.
func DefaultSchedule() []Entry {
	sunday := time.Sunday
	return []Entry{
		{Campaign: CampaignDaily, Hour: 8},
		{Campaign: CampaignInactive, Hour: 12},
		{Campaign: CampaignWeekly, Hour: 18, Weekday: &sunday},
		{Campaign: CampaignStreakRisk, Hour: 19},
		{Campaign: CampaignDormant, Hour: 20},
		{Campaign: CampaignMilestone, Hour: 21},
	}
}

// StartSchedule runs campaigns from an in-process ticker. Blocks until ctx is
// cancelled. Intended to be called with `go`. A campaign run failure is
// logged and does not stop the loop.
func StartSchedule(ctx context.Context, r *Runner, entries []Entry) {
	r.logger.Info("notification schedule started", "entries", len(entries))

	lastRun := make(map[Campaign]string)
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("notification schedule stopped")
			return
		case <-ticker.C:
			r.fireDue(ctx, entries, lastRun)
		}
	}
}

func (r *Runner) fireDue(ctx context.Context, entries []Entry, lastRun map[Campaign]string) {
	civil := r.Now().UTC().Add(3 * time.Hour)
	today := clock.Today(r.Now(), 0)

	for _, e := range entries {
		if civil.Hour() != e.Hour {
			continue
		}
		if e.Weekday != nil && civil.Weekday() != *e.Weekday {
			continue
		}
		if lastRun[e.Campaign] == today {
			continue
		}
		lastRun[e.Campaign] = today

		res, err := r.Run(ctx, e.Campaign)
		if err != nil {
			r.logger.Error("scheduled campaign failed",
				"campaign", e.Campaign, "error", err)
			continue
		}
		r.logger.Info("scheduled campaign sent",
			"campaign", e.Campaign, "sent", res.Sent)
	}
}
