// Package clock converts wall-clock instants to calendar days in the app's
// fixed civil timezone (UTC+3). Every consumer receives the current instant
// as an explicit argument, so all date arithmetic stays a pure function of
// its inputs.
package clock

import (
	"errors"
	"fmt"
	"time"
)

// DayFormat is the calendar-day layout used everywhere: dates in the store,
// API payloads, and streak arithmetic.
const DayFormat = "2006-01-02"

// civilOffset shifts UTC to the app's business-day boundary (Istanbul, UTC+3).
const civilOffset = 3 * time.Hour

// ErrBadDate reports a string that does not parse as a YYYY-MM-DD day.
var ErrBadDate = errors.New("invalid date format")

// Today returns the calendar day for the given instant in the civil timezone,
// shifted by offsetDays whole days. Pass time.Now() for the live day.
func Today(now time.Time, offsetDays int) string {
	civil := now.UTC().Add(civilOffset)
	return civil.AddDate(0, 0, offsetDays).Format(DayFormat)
}

// Parse validates a calendar-day string.
func Parse(day string) (time.Time, error) {
	t, err := time.Parse(DayFormat, day)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrBadDate, day)
	}
	return t, nil
}

// AddDays shifts a calendar-day string by n whole days.
func AddDays(day string, n int) (string, error) {
	t, err := Parse(day)
	if err != nil {
		return "", err
	}
	return t.AddDate(0, 0, n).Format(DayFormat), nil
}

// DaysBetween returns b minus a in whole days. Both arguments must be valid
// calendar-day strings.
func DaysBetween(a, b string) (int, error) {
	ta, err := Parse(a)
	if err != nil {
		return 0, err
	}
	tb, err := Parse(b)
	if err != nil {
		return 0, err
	}
	return int(tb.Sub(ta) / (24 * time.Hour)), nil
}
