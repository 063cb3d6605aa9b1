// Package stats computes streak and cleanliness analytics from a user's
// completion-date history. Compute is a pure function: the same history and
// the same "today" always produce the same result.
package stats

import (
	"fmt"
	"sort"
	"time"

	"github.com/enesbilik/cleny/internal/clock"
	"github.com/enesbilik/cleny/internal/model"
)

// Cleanliness level thresholds over the trailing-week completion count.
// Coarse on purpose: two histories with the same trailing-week count always
// map to the same level.
var levelThresholds = []struct {
	minLast7 int
	level    int
}{
	{6, 4},
	{5, 3},
	{3, 2},
	{2, 1},
}

// Compute derives the five-field stats object from an unordered set of
// completion days. today must be a calendar day from clock.Today.
func Compute(completedDates []string, today string) (model.Stats, error) {
	todayTime, err := clock.Parse(today)
	if err != nil {
		return model.Stats{}, fmt.Errorf("parse today: %w", err)
	}

	completed := make(map[string]bool, len(completedDates))
	parsed := make([]time.Time, 0, len(completedDates))
	for _, d := range completedDates {
		t, err := clock.Parse(d)
		if err != nil {
			return model.Stats{}, fmt.Errorf("parse completion date: %w", err)
		}
		if !completed[d] {
			parsed = append(parsed, t)
		}
		completed[d] = true
	}

	s := model.Stats{
		CurrentStreak:      currentStreak(completed, todayTime, today),
		BestStreak:         bestStreak(parsed),
		TotalCompleted:     len(completed),
		Last7DaysCompleted: lastWindow(parsed, todayTime),
	}
	s.CleanlinessLevel = level(s.Last7DaysCompleted)
	return s, nil
}

// currentStreak walks backward day by day until the first gap. A day still in
// progress does not break the streak: when today itself is missing, the walk
// anchors at yesterday instead.
func currentStreak(completed map[string]bool, todayTime time.Time, today string) int {
	check := todayTime
	if !completed[today] {
		check = check.AddDate(0, 0, -1)
	}

	streak := 0
	for completed[check.Format(clock.DayFormat)] {
		streak++
		check = check.AddDate(0, 0, -1)
	}
	return streak
}

// bestStreak finds the longest run of calendar-consecutive days anywhere in
// the history.
func bestStreak(dates []time.Time) int {
	if len(dates) == 0 {
		return 0
	}
	sorted := make([]time.Time, len(dates))
	copy(sorted, dates)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Before(sorted[j]) })

	best, run := 1, 1
	for i := 1; i < len(sorted); i++ {
		if sorted[i].Sub(sorted[i-1]) == 24*time.Hour {
			run++
		} else {
			run = 1
		}
		if run > best {
			best = run
		}
	}
	return best
}

// lastWindow counts completions on or after today minus seven days.
func lastWindow(dates []time.Time, todayTime time.Time) int {
	cutoff := todayTime.AddDate(0, 0, -7)
	n := 0
	for _, d := range dates {
		if !d.Before(cutoff) {
			n++
		}
	}
	return n
}

func level(last7 int) int {
	for _, t := range levelThresholds {
		if last7 >= t.minLast7 {
			return t.level
		}
	}
	return 0
}
