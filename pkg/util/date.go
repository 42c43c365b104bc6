package util

import (
	"strconv"
	"time"
)

// DateLayout is the calendar-date format used on the wire.
const DateLayout = "2006-01-02"

// ParseTime tries RFC3339, RFC3339Nano, YYYY-MM-DD and unix seconds.
func ParseTime(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{time.RFC3339, time.RFC3339Nano, DateLayout} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	if ts, err := strconv.ParseInt(s, 10, 64); err == nil && ts > 0 {
		return time.Unix(ts, 0).UTC(), true
	}
	return time.Time{}, false
}

// ParseTimeDefault parses time or returns default if empty/invalid.
func ParseTimeDefault(s string, def time.Time) time.Time {
	if t, ok := ParseTime(s); ok {
		return t
	}
	return def
}

// ParseDate parses s and truncates it to a UTC calendar date.
func ParseDate(s string) (time.Time, bool) {
	t, ok := ParseTime(s)
	if !ok {
		return time.Time{}, false
	}
	return StartOfDay(t), true
}

// StartOfDay returns midnight UTC of t's calendar date in UTC.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// IsBusinessDay reports whether t falls on Monday..Friday.
func IsBusinessDay(t time.Time) bool {
	wd := t.Weekday()
	return wd != time.Saturday && wd != time.Sunday
}

// BusinessDaysAfter returns the next n weekdays strictly after start.
// Holidays are not modelled.
func BusinessDaysAfter(start time.Time, n int) []time.Time {
	if n <= 0 {
		return nil
	}
	out := make([]time.Time, 0, n)
	d := StartOfDay(start)
	for len(out) < n {
		d = d.AddDate(0, 0, 1)
		if IsBusinessDay(d) {
			out = append(out, d)
		}
	}
	return out
}

// FormatDate renders t as YYYY-MM-DD in UTC.
func FormatDate(t time.Time) string {
	return t.UTC().Format(DateLayout)
}
