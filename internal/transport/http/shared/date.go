package shared

import (
	"strconv"
	"time"
)

// ParseDate accepts RFC3339 or YYYY-MM-DD and returns the UTC calendar date.
func ParseDate(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	if parsed, err := time.Parse(time.RFC3339, value); err == nil {
		return time.Date(parsed.Year(), parsed.Month(), parsed.Day(), 0, 0, 0, 0, time.UTC), nil
	}
	return time.Parse("2006-01-02", value)
}

// ParseYear returns 0 for an empty value so callers fall back to the
// current leave year.
func ParseYear(value string) (int, bool) {
	if value == "" {
		return 0, true
	}
	year, err := strconv.Atoi(value)
	if err != nil || year < 1900 || year > 9999 {
		return 0, false
	}
	return year, true
}
