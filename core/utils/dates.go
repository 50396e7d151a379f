package utils

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout is the canonical diary date format.
const DateLayout = "2006-01-02"

// ParseDate parses a YYYY-MM-DD string into a UTC midnight time.
func ParseDate(s string) (time.Time, error) {
	d, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: expected YYYY-MM-DD", s)
	}
	return d, nil
}

// FormatDate renders a date as YYYY-MM-DD.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// NormalizeDate truncates t to its calendar date at UTC midnight,
// keeping the year, month and day as seen in t's own location.
func NormalizeDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseSyncTime parses an episode identifier (RFC3339 with optional fraction).
func ParseSyncTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid sync datetime %q: expected RFC3339", s)
	}
	return NormalizeSyncTime(t), nil
}

// FormatSyncTime renders an episode identifier.
func FormatSyncTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// NormalizeSyncTime converts t to UTC with microsecond precision,
// which every supported database stores losslessly.
func NormalizeSyncTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Microsecond)
}

// DateFromFilename extracts the date from names like "2024-03-01.txt".
func DateFromFilename(name, extension string) (time.Time, bool) {
	if !strings.HasSuffix(name, extension) {
		return time.Time{}, false
	}
	d, err := time.Parse(DateLayout, strings.TrimSuffix(name, extension))
	if err != nil {
		return time.Time{}, false
	}
	return d, true
}
