// Package reminders plans and delivers booking reminders.
//
// Planning is pure: PlanTriggers derives reminder times from the gap between
// the booking decision and the session start. Delivery goes through an
// outbox, so a reminder survives restarts and is sent at least once.
package reminders

import "time"

// PlanTriggers returns the times a reminder should fire for a session that
// starts at start, decided at now.
//
// More than 24h ahead gets a day-before and an hour-before trigger. Between
// 1h and 24h ahead gets only the hour-before trigger. An hour or less ahead
// gets none. Boundaries are exclusive: exactly 24h ahead plans one trigger,
// exactly 1h ahead plans none.
func PlanTriggers(now, start time.Time) []time.Time {
	gap := start.Sub(now)
	switch {
	case gap > 24*time.Hour:
		return []time.Time{start.Add(-24 * time.Hour), start.Add(-time.Hour)}
	case gap > time.Hour:
		return []time.Time{start.Add(-time.Hour)}
	default:
		return nil
	}
}
