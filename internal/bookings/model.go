// Package bookings owns the studio's single timeline: conflict detection over
// half-open intervals, the booking records themselves, and the orchestrator
// that decides whether a requested visit happens.
package bookings

import (
	"time"

	"github.com/google/uuid"
)

// Status of a booking row. Only confirmed rows occupy the timeline.
type Status string

const (
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
)

// Booking is one reserved session in the studio. The interval is half-open:
// the room is held from StartAt up to but not including EndAt.
type Booking struct {
	ID          uuid.UUID  `json:"id"`
	ChatID      int64      `json:"chat_id"`
	StartAt     time.Time  `json:"start_at"`
	EndAt       time.Time  `json:"end_at"`
	Status      Status     `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	CancelledAt *time.Time `json:"cancelled_at,omitempty"`
}
