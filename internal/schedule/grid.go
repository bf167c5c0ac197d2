package schedule

import (
	"errors"
	"fmt"
	"time"
)

// Label formats used in chat keyboards.
const (
	DateLabelFormat = "02.01"
	SlotLabelFormat = "15:04"
	dayKeyFormat    = "2006-01-02"
)

var (
	// ErrUnknownDate means the date label is not inside the bookable window.
	ErrUnknownDate = errors.New("schedule: date outside booking window")
	// ErrUnknownSlot means the time label is not on the slot grid.
	ErrUnknownSlot = errors.New("schedule: time not on slot grid")
	// ErrBadDuration means the duration does not fit the grid rules.
	ErrBadDuration = errors.New("schedule: duration not allowed")
	// ErrSlotPassed means the chosen start is already in the past.
	ErrSlotPassed = errors.New("schedule: slot already passed")
)

// Grid describes what can be booked: hourly start slots between OpenHour and
// LastSlotHour, whole-hour durations up to MaxDurationHours, sessions ending
// by CloseHour, dates within WindowDays starting today. All times are read on
// the studio clock (Location).
type Grid struct {
	Location             *time.Location
	OpenHour             int
	LastSlotHour         int
	CloseHour            int
	WindowDays           int
	DefaultDurationHours int
	MaxDurationHours     int
}

// NewGrid validates and returns a grid. A nil location falls back to UTC.
func NewGrid(loc *time.Location, openHour, lastSlotHour, closeHour, windowDays, defaultDuration, maxDuration int) (Grid, error) {
	if loc == nil {
		loc = time.UTC
	}
	g := Grid{
		Location:             loc,
		OpenHour:             openHour,
		LastSlotHour:         lastSlotHour,
		CloseHour:            closeHour,
		WindowDays:           windowDays,
		DefaultDurationHours: defaultDuration,
		MaxDurationHours:     maxDuration,
	}
	if openHour < 0 || openHour > 23 || lastSlotHour < openHour || lastSlotHour > 23 {
		return Grid{}, fmt.Errorf("schedule: invalid slot hours %d..%d", openHour, lastSlotHour)
	}
	if closeHour <= lastSlotHour || closeHour > 24 {
		return Grid{}, fmt.Errorf("schedule: invalid close hour %d", closeHour)
	}
	if windowDays < 1 {
		return Grid{}, fmt.Errorf("schedule: invalid booking window %d", windowDays)
	}
	if defaultDuration < 1 || maxDuration < defaultDuration {
		return Grid{}, fmt.Errorf("schedule: invalid durations default=%d max=%d", defaultDuration, maxDuration)
	}
	return g, nil
}

// SlotHours lists the bookable start hours, e.g. 10..21.
func (g Grid) SlotHours() []int {
	hours := make([]int, 0, g.LastSlotHour-g.OpenHour+1)
	for h := g.OpenHour; h <= g.LastSlotHour; h++ {
		hours = append(hours, h)
	}
	return hours
}

// SlotLabels lists the start hours as keyboard labels ("10:00".."21:00").
func (g Grid) SlotLabels() []string {
	hours := g.SlotHours()
	labels := make([]string, 0, len(hours))
	for _, h := range hours {
		labels = append(labels, fmt.Sprintf("%02d:00", h))
	}
	return labels
}

// Dates lists the bookable dates as studio-local midnights, today first.
func (g Grid) Dates(now time.Time) []time.Time {
	today := g.DayStart(now)
	dates := make([]time.Time, 0, g.WindowDays)
	for i := 0; i < g.WindowDays; i++ {
		dates = append(dates, today.AddDate(0, 0, i))
	}
	return dates
}

// DateLabels lists the bookable dates as keyboard labels ("02.07").
func (g Grid) DateLabels(now time.Time) []string {
	dates := g.Dates(now)
	labels := make([]string, 0, len(dates))
	for _, d := range dates {
		labels = append(labels, d.Format(DateLabelFormat))
	}
	return labels
}

// DayStart returns the studio-local midnight for t.
func (g Grid) DayStart(t time.Time) time.Time {
	local := t.In(g.loc())
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, g.loc())
}

// DayKey returns the canonical per-day key ("2006-01-02") on the studio clock.
func (g Grid) DayKey(t time.Time) string {
	return t.In(g.loc()).Format(dayKeyFormat)
}

// ParseDate resolves a "DD.MM" label against the current booking window.
// Labels outside the window return ErrUnknownDate.
func (g Grid) ParseDate(label string, now time.Time) (time.Time, error) {
	for _, d := range g.Dates(now) {
		if d.Format(DateLabelFormat) == label {
			return d, nil
		}
	}
	return time.Time{}, ErrUnknownDate
}

// ParseSlot resolves an "HH:MM" label to a start hour on the grid.
func (g Grid) ParseSlot(label string) (int, error) {
	t, err := time.Parse(SlotLabelFormat, label)
	if err != nil {
		return 0, ErrUnknownSlot
	}
	if t.Minute() != 0 {
		return 0, ErrUnknownSlot
	}
	h := t.Hour()
	if h < g.OpenHour || h > g.LastSlotHour {
		return 0, ErrUnknownSlot
	}
	return h, nil
}

// DurationsFor lists the whole-hour durations that still fit the grid when
// starting at the given hour.
func (g Grid) DurationsFor(startHour int) []int {
	var out []int
	for d := 1; d <= g.MaxDurationHours; d++ {
		if startHour+d <= g.CloseHour {
			out = append(out, d)
		}
	}
	return out
}

// ValidDuration reports whether a session of d hours may start at startHour.
func (g Grid) ValidDuration(startHour, d int) bool {
	return d >= 1 && d <= g.MaxDurationHours && startHour+d <= g.CloseHour
}

// At builds the concrete booking interval for a date (studio-local midnight),
// start hour and duration. now guards against booking a slot that already
// started.
func (g Grid) At(now, date time.Time, startHour, durationHours int) (Interval, error) {
	if startHour < g.OpenHour || startHour > g.LastSlotHour {
		return Interval{}, ErrUnknownSlot
	}
	if !g.ValidDuration(startHour, durationHours) {
		return Interval{}, ErrBadDuration
	}
	local := date.In(g.loc())
	start := time.Date(local.Year(), local.Month(), local.Day(), startHour, 0, 0, 0, g.loc())
	if !start.After(now) {
		return Interval{}, ErrSlotPassed
	}
	return NewInterval(start, start.Add(time.Duration(durationHours)*time.Hour))
}

func (g Grid) loc() *time.Location {
	if g.Location == nil {
		return time.UTC
	}
	return g.Location
}
