// Package schedule holds the studio's time model: half-open booking intervals
// and the slot grid guests pick from (hourly start times, whole-hour durations,
// a rolling window of bookable dates).
package schedule

import (
	"fmt"
	"time"
)

// Interval is a half-open time range [Start, End). A session occupies Start
// up to but not including End, so back-to-back sessions share an instant
// without colliding.
type Interval struct {
	Start time.Time
	End   time.Time
}

// NewInterval builds a validated interval. End must be strictly after Start.
func NewInterval(start, end time.Time) (Interval, error) {
	if !end.After(start) {
		return Interval{}, fmt.Errorf("schedule: interval end %s not after start %s", end, start)
	}
	return Interval{Start: start, End: end}, nil
}

// Overlaps reports whether two half-open intervals share any instant.
// Touching endpoints (i.End == o.Start) do not overlap.
func (i Interval) Overlaps(o Interval) bool {
	return i.Start.Before(o.End) && o.Start.Before(i.End)
}

// Duration returns the interval length.
func (i Interval) Duration() time.Duration {
	return i.End.Sub(i.Start)
}

// Contains reports whether t falls inside the interval.
func (i Interval) Contains(t time.Time) bool {
	return !t.Before(i.Start) && t.Before(i.End)
}
