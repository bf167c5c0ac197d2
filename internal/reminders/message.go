package reminders

import (
	"fmt"
	"time"
)

// MessageText composes the reminder sent to a guest. The day word is picked
// in studio-local time: "сегодня" for same-day sessions, "завтра" for the
// next day, otherwise the date as DD.MM.
func MessageText(now, startAt time.Time, loc *time.Location, studioName string) string {
	if loc == nil {
		loc = time.UTC
	}
	start := startAt.In(loc)
	return fmt.Sprintf("🔔 Напоминание: у вас запись в %s %s в %s!",
		studioName, dayWord(now.In(loc), start), start.Format("15:04"))
}

func dayWord(now, start time.Time) string {
	nowDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	startDay := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, start.Location())
	switch {
	case startDay.Equal(nowDay):
		return "сегодня"
	case startDay.Equal(nowDay.AddDate(0, 0, 1)):
		return "завтра"
	default:
		return start.Format("02.01")
	}
}
