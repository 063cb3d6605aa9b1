package notify

import (
	"context"
	"fmt"

	"github.com/enesbilik/cleny/internal/clock"
)

// Run executes one campaign batch. When no user has notifications enabled the
// run reports zero sent and exits cleanly. Any query or send failure aborts
// the remainder of the run; batches already handed to the sender stand.
func (r *Runner) Run(ctx context.Context, campaign Campaign) (Result, error) {
	res := Result{Campaign: campaign}
	today := clock.Today(r.Now(), 0)

	enabled, err := r.store.EnabledUserIDs(ctx)
	if err != nil {
		return res, fmt.Errorf("enabled users: %w", err)
	}
	if len(enabled) == 0 {
		r.logger.Info("no notification-enabled users", "campaign", campaign)
		return res, nil
	}

	switch campaign {
	case CampaignDaily:
		err = r.runDaily(ctx, &res, enabled)
	case CampaignInactive:
		err = r.runInactive(ctx, &res, enabled, today)
	case CampaignStreakRisk:
		err = r.runStreakRisk(ctx, &res, enabled, today)
	case CampaignWeekly:
		err = r.runWeekly(ctx, &res, enabled, today)
	case CampaignDormant:
		err = r.runDormant(ctx, &res, enabled, today)
	case CampaignMilestone:
		err = r.runMilestone(ctx, &res, enabled, today)
	default:
		return res, fmt.Errorf("%w: %q", ErrUnknownCampaign, campaign)
	}

	if err != nil {
		return res, err
	}
	r.logger.Info("campaign run complete",
		"campaign", campaign, "date", today, "sent", res.Sent)
	return res, nil
}

// runDaily greets every enabled user.
func (r *Runner) runDaily(ctx context.Context, res *Result, enabled []string) error {
	return r.send(ctx, res, enabled, pick(r.Rng, dailyPool))
}

// runInactive targets enabled users with no daily-task row for today, i.e.
// those who have not even opened the app to receive an assignment.
func (r *Runner) runInactive(ctx context.Context, res *Result, enabled []string, today string) error {
	withTask, err := r.store.UserIDsWithTaskOn(ctx, today)
	if err != nil {
		return fmt.Errorf("users with task today: %w", err)
	}
	targets := subtract(enabled, withTask)
	return r.send(ctx, res, targets, pick(r.Rng, activationPool))
}

// runStreakRisk targets users who completed yesterday but have not completed
// today: the ones with a live streak on the line.
func (r *Runner) runStreakRisk(ctx context.Context, res *Result, enabled []string, today string) error {
	yesterday, err := clock.AddDays(today, -1)
	if err != nil {
		return err
	}
	completedYesterday, err := r.store.UserIDsCompletedOn(ctx, yesterday)
	if err != nil {
		return fmt.Errorf("completed yesterday: %w", err)
	}
	completedToday, err := r.store.UserIDsCompletedOn(ctx, today)
	if err != nil {
		return fmt.Errorf("completed today: %w", err)
	}
	targets := subtract(intersect(enabled, completedYesterday), completedToday)
	return r.send(ctx, res, targets, pick(r.Rng, atRiskPool))
}

// runWeekly partitions the enabled set into three tiers by completion count
// over the trailing week (today excluded) and sends each non-empty tier its
// own message.
func (r *Runner) runWeekly(ctx context.Context, res *Result, enabled []string, today string) error {
	from, err := clock.AddDays(today, -7)
	if err != nil {
		return err
	}
	to, err := clock.AddDays(today, -1)
	if err != nil {
		return err
	}
	counts, err := r.store.CompletionCountsBetween(ctx, from, to)
	if err != nil {
		return fmt.Errorf("weekly completion counts: %w", err)
	}

	var great, good, low []string
	for _, id := range enabled {
		switch n := counts[id]; {
		case n >= 6:
			great = append(great, id)
		case n >= 3:
			good = append(good, id)
		default:
			low = append(low, id)
		}
	}

	res.Tiers = map[string]int{}
	tiers := []struct {
		name  string
		users []string
		pool  []Message
	}{
		{"great", great, weeklyGreatPool},
		{"good", good, weeklyGoodPool},
		{"low", low, weeklyLowPool},
	}
	for _, tier := range tiers {
		if len(tier.users) == 0 {
			continue
		}
		if err := r.send(ctx, res, tier.users, pick(r.Rng, tier.pool)); err != nil {
			return fmt.Errorf("tier %s: %w", tier.name, err)
		}
		res.Tiers[tier.name] = len(tier.users)
	}
	return nil
}

// runDormant targets users with no daily-task row over the last three days
// and none today either — the win-back segment.
func (r *Runner) runDormant(ctx context.Context, res *Result, enabled []string, today string) error {
	from, err := clock.AddDays(today, -3)
	if err != nil {
		return err
	}
	active, err := r.store.UserIDsWithTaskBetween(ctx, from, today)
	if err != nil {
		return fmt.Errorf("users with recent task: %w", err)
	}
	targets := subtract(enabled, active)
	return r.send(ctx, res, targets, pick(r.Rng, winBackPool))
}

// runMilestone finds users whose completion today brought their streak to
// exactly one of the fixed milestone lengths and sends each length's unique
// message to exactly those users.
func (r *Runner) runMilestone(ctx context.Context, res *Result, enabled []string, today string) error {
	completedToday, err := r.store.UserIDsCompletedOn(ctx, today)
	if err != nil {
		return fmt.Errorf("completed today: %w", err)
	}
	candidates := intersect(enabled, completedToday)
	if len(candidates) == 0 {
		return nil
	}

	since, err := clock.AddDays(today, -365)
	if err != nil {
		return err
	}
	datesByUser, err := r.store.CompletedDatesSince(ctx, candidates, since)
	if err != nil {
		return fmt.Errorf("completion history: %w", err)
	}

	byLength := make(map[int][]string)
	for _, id := range candidates {
		// Today is completed for every candidate by construction, so the
		// consecutive-day walk anchors at today directly.
		n := streakEndingToday(datesByUser[id], today)
		byLength[n] = append(byLength[n], id)
	}

	res.Milestones = map[int]int{}
	for _, length := range milestoneLengths {
		users := byLength[length]
		if len(users) == 0 {
			continue
		}
		msg := milestoneMessages[length]
		if err := r.send(ctx, res, users, msg); err != nil {
			return fmt.Errorf("milestone %d: %w", length, err)
		}
		res.Milestones[length] = len(users)
	}
	return nil
}

// send delivers one message to a segment and accounts for it. Empty segments
// are a clean no-op, not an error.
func (r *Runner) send(ctx context.Context, res *Result, userIDs []string, msg Message) error {
	if len(userIDs) == 0 {
		return nil
	}
	if err := r.sender.Send(ctx, userIDs, msg.Title, msg.Body); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	res.Sent += len(userIDs)
	return nil
}

// subtract returns members of a not present in b, preserving a's order.
func subtract(a, b []string) []string {
	drop := make(map[string]bool, len(b))
	for _, id := range b {
		drop[id] = true
	}
	var out []string
	for _, id := range a {
		if !drop[id] {
			out = append(out, id)
		}
	}
	return out
}

// intersect returns members of a also present in b, preserving a's order.
func intersect(a, b []string) []string {
	keep := make(map[string]bool, len(b))
	for _, id := range b {
		keep[id] = true
	}
	var out []string
	for _, id := range a {
		if keep[id] {
			out = append(out, id)
		}
	}
	return out
}

// streakEndingToday walks backward from today counting consecutive completed
// days. Duplicate dates in the history are harmless.
func streakEndingToday(dates []string, today string) int {
	completed := make(map[string]bool, len(dates))
	for _, d := range dates {
		completed[d] = true
	}

	streak := 0
	day := today
	for completed[day] {
		streak++
		prev, err := clock.AddDays(day, -1)
		if err != nil {
			break
		}
		day = prev
	}
	return streak
}
