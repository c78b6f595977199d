package common

import (
	"strings"
	"time"
)

// DateLayout is the wire format for calendar days.
const DateLayout = "2006-01-02"

// Clock returns the current instant. Services hold one so tests can pin time.
type Clock func() time.Time

// CalendarDay returns the date t falls on in loc, as midnight UTC.
// DATE columns scan back from pgx in the same form, so values compare with Equal.
func CalendarDay(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// IsDayAfter reports whether day is exactly one calendar day after prev.
// Both arguments must come from CalendarDay.
func IsDayAfter(day, prev time.Time) bool {
	return prev.AddDate(0, 0, 1).Equal(day)
}

// ClampPage normalizes limit/offset query parameters.
func ClampPage(limit, offset, def, max int) (int, int) {
	if limit <= 0 {
		limit = def
	}
	if limit > max {
		limit = max
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// Truncate cuts s to at most n runes.
func Truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// NormalizeSpace trims s and collapses internal whitespace runs.
func NormalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
