// Package interval provides the half-open time range math shared by the
// slot resolver, the booking conflict checks, and the eligibility check.
// All instants are UTC; weekly availability windows use zero-padded "HH:MM"
// wall-clock strings.
package interval

import (
	"fmt"
	"time"
)

// Range is a half-open interval [Start, End). Two back-to-back sessions
// sharing a boundary instant do not overlap.
type Range struct {
	Start time.Time
	End   time.Time
}

func New(start, end time.Time) (Range, error) {
	if !end.After(start) {
		return Range{}, fmt.Errorf("range end %s must be after start %s",
			end.Format(time.RFC3339), start.Format(time.RFC3339))
	}
	return Range{Start: start.UTC(), End: end.UTC()}, nil
}

// FromDuration builds the range covered by a session starting at start.
func FromDuration(start time.Time, d time.Duration) Range {
	s := start.UTC()
	return Range{Start: s, End: s.Add(d)}
}

func (r Range) Overlaps(o Range) bool {
	return r.Start.Before(o.End) && o.Start.Before(r.End)
}

// Contains reports whether o lies entirely inside r, boundaries included.
func (r Range) Contains(o Range) bool {
	return !r.Start.After(o.Start) && !r.End.Before(o.End)
}

func (r Range) Duration() time.Duration {
	return r.End.Sub(r.Start)
}

// ParseClock converts a zero-padded "HH:MM" string to minutes since
// midnight. "09:00" is valid, "9:00" and "24:00" are not.
func ParseClock(s string) (int, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, fmt.Errorf("invalid clock time %q: %w", s, err)
	}
	return t.Hour()*60 + t.Minute(), nil
}

// MinutesOfDay returns t's UTC wall clock as minutes since midnight.
func MinutesOfDay(t time.Time) int {
	u := t.UTC()
	return u.Hour()*60 + u.Minute()
}

// DayStart truncates t to midnight UTC.
func DayStart(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// OnDay projects minutes-since-midnight onto day's UTC date, yielding the
// absolute instant a window boundary represents on that day.
func OnDay(day time.Time, minutes int) time.Time {
	return DayStart(day).Add(time.Duration(minutes) * time.Minute)
}

// SameDay reports whether both instants fall on the same UTC date.
func SameDay(a, b time.Time) bool {
	return DayStart(a).Equal(DayStart(b))
}
