package clock

import "time"

// Clock supplies the current instant. Leave rules that depend on "this year"
// or "today" read it from here instead of calling time.Now directly.
type Clock interface {
	Now() time.Time
}

type System struct {
	Location *time.Location
}

func (s System) Now() time.Time {
	if s.Location == nil {
		return time.Now()
	}
	return time.Now().In(s.Location)
}

type Fixed struct {
	At time.Time
}

func (f Fixed) Now() time.Time {
	return f.At
}

// Today truncates the clock's current instant to a UTC calendar date.
func Today(c Clock) time.Time {
	now := c.Now()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}
