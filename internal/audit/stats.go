package audit

import (
	"context"
	"fmt"
	"time"
)

// Overview aggregates the numbers the owner asks for: load on the timeline,
// guests with upcoming sessions, credits still unspent, and what got turned
// away recently.
type Overview struct {
	BookingsToday      int64            `json:"bookings_today"`
	BookingsWeek       int64            `json:"bookings_week"`
	ActiveGuests       int64            `json:"active_guests"`
	CreditsOutstanding int64            `json:"credits_outstanding"`
	Rejections         []RejectionCount `json:"rejections_last_7_days"`
	GeneratedAt        string           `json:"generated_at"`
}

// RejectionCount is one rejection reason with its weekly tally.
type RejectionCount struct {
	Reason string `json:"reason"`
	Count  int64  `json:"count"`
}

// Overview computes the stats summary. now must already be in the studio
// timezone so the day boundaries land on studio midnights.
func (s *Store) Overview(ctx context.Context, now time.Time) (*Overview, error) {
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	dayEnd := dayStart.AddDate(0, 0, 1)
	weekEnd := dayStart.AddDate(0, 0, 7)

	o := &Overview{GeneratedAt: now.Format(time.RFC3339)}

	todayQuery := `SELECT COUNT(*) FROM bookings WHERE status = 'confirmed' AND start_at >= $1 AND start_at < $2`
	if err := s.db.QueryRowContext(ctx, todayQuery, dayStart, dayEnd).Scan(&o.BookingsToday); err != nil {
		return nil, fmt.Errorf("audit stats: count today: %w", err)
	}

	weekQuery := `SELECT COUNT(*) FROM bookings WHERE status = 'confirmed' AND start_at >= $1 AND start_at < $2`
	if err := s.db.QueryRowContext(ctx, weekQuery, dayStart, weekEnd).Scan(&o.BookingsWeek); err != nil {
		return nil, fmt.Errorf("audit stats: count week: %w", err)
	}

	guestsQuery := `SELECT COUNT(DISTINCT chat_id) FROM bookings WHERE status = 'confirmed' AND start_at >= $1`
	if err := s.db.QueryRowContext(ctx, guestsQuery, now).Scan(&o.ActiveGuests); err != nil {
		return nil, fmt.Errorf("audit stats: count active guests: %w", err)
	}

	creditsQuery := `SELECT COALESCE(SUM(visits_left), 0) FROM credits`
	if err := s.db.QueryRowContext(ctx, creditsQuery).Scan(&o.CreditsOutstanding); err != nil {
		return nil, fmt.Errorf("audit stats: sum credits: %w", err)
	}

	rejectionsQuery := `
		SELECT reason, COUNT(*) FROM audit_events
		WHERE event_type = $1 AND created_at >= $2
		GROUP BY reason ORDER BY COUNT(*) DESC
	`
	rows, err := s.db.QueryContext(ctx, rejectionsQuery, EventBookingRejected, now.AddDate(0, 0, -7))
	if err != nil {
		return nil, fmt.Errorf("audit stats: query rejections: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var rc RejectionCount
		if err := rows.Scan(&rc.Reason, &rc.Count); err != nil {
			return nil, fmt.Errorf("audit stats: scan rejection: %w", err)
		}
		o.Rejections = append(o.Rejections, rc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("audit stats: rejections rows: %w", err)
	}

	return o, nil
}
