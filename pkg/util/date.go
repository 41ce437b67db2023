package util

import (
	"strconv"
	"time"
)

// ParseTime tries RFC3339, RFC3339Nano, and unix seconds. Returns (t, true) if any worked.
func ParseTime(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, true
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, true
	}
	if ts, err := strconv.ParseInt(s, 10, 64); err == nil && ts > 0 {
		return time.Unix(ts, 0), true
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

// Bucket truncates t down to the start of its fixed-width bucket.
func Bucket(t time.Time, freq time.Duration) time.Time {
	if freq <= 0 {
		freq = time.Hour
	}
	return t.Truncate(freq)
}

// FormatStart renders a bucket timestamp the way the forecasting service
// expects series start fields: "2006-01-02 15:04:05".
func FormatStart(t time.Time) string {
	return t.UTC().Format("2006-01-02 15:04:05")
}

// ParseStart is the inverse of FormatStart.
func ParseStart(s string) (time.Time, error) {
	return time.ParseInLocation("2006-01-02 15:04:05", s, time.UTC)
}
