package leave

import "time"

// DateRange is an inclusive span of calendar dates.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// Overlaps reports whether the two inclusive ranges share at least one day.
func (r DateRange) Overlaps(other DateRange) bool {
	return !r.Start.After(other.End) && !other.Start.After(r.End)
}

func (r DateRange) Contains(day time.Time) bool {
	day = DateOf(day)
	return !DateOf(r.Start).After(day) && !day.After(DateOf(r.End))
}

// WorkingDays counts Monday to Friday dates in [start, end]. A reversed
// range has no working days.
func WorkingDays(start, end time.Time) int {
	start, end = DateOf(start), DateOf(end)
	if start.After(end) {
		return 0
	}
	count := 0
	for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
		if wd := day.Weekday(); wd != time.Saturday && wd != time.Sunday {
			count++
		}
	}
	return count
}

// DateOf drops the clock part of t, keeping its calendar date.
func DateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
