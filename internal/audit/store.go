// Package audit keeps the append-only trail of booking decisions. Every
// confirmation, rejection, cancellation and credit grant lands here as an
// immutable row, which is also what feeds the owner's stats endpoint.
package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/artchaos/booking-platform/internal/bookings"
)

// EventType labels an audit record.
type EventType string

const (
	EventBookingConfirmed EventType = "booking.confirmed"
	EventBookingRejected  EventType = "booking.rejected"
	EventBookingCancelled EventType = "booking.cancelled"
	EventCreditsGranted   EventType = "credits.granted"
)

// Event is one immutable audit record.
type Event struct {
	ID        string          `json:"id"`
	EventType EventType       `json:"event_type"`
	ChatID    int64           `json:"chat_id"`
	BookingID string          `json:"booking_id,omitempty"`
	Reason    string          `json:"reason,omitempty"`
	Details   json.RawMessage `json:"details,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// Details carries the event-specific fields serialized into the details
// column.
type Details struct {
	StartAt     string `json:"start_at,omitempty"`
	EndAt       string `json:"end_at,omitempty"`
	CreditSpent bool   `json:"credit_spent,omitempty"`
	Visits      int    `json:"visits,omitempty"`
}

// Store writes audit events through database/sql.
type Store struct {
	db *sql.DB
}

var _ bookings.DecisionRecorder = (*Store)(nil)

// NewStore creates the audit store.
func NewStore(db *sql.DB) *Store {
	if db == nil {
		panic("audit: db required")
	}
	return &Store{db: db}
}

// LogEvent appends one audit record.
func (s *Store) LogEvent(ctx context.Context, event Event) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO audit_events (id, event_type, chat_id, booking_id, reason, details, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := s.db.ExecContext(ctx, query,
		event.ID,
		event.EventType,
		event.ChatID,
		nullString(event.BookingID),
		nullString(event.Reason),
		nullString(string(event.Details)),
		event.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("audit: log event: %w", err)
	}
	return nil
}

// RecordConfirmed logs a confirmed booking.
func (s *Store) RecordConfirmed(ctx context.Context, b *bookings.Booking, creditSpent bool) error {
	details, _ := json.Marshal(Details{
		StartAt:     b.StartAt.UTC().Format(time.RFC3339),
		EndAt:       b.EndAt.UTC().Format(time.RFC3339),
		CreditSpent: creditSpent,
	})
	return s.LogEvent(ctx, Event{
		EventType: EventBookingConfirmed,
		ChatID:    b.ChatID,
		BookingID: b.ID.String(),
		Details:   details,
	})
}

// RecordRejected logs a declined booking request with its reason.
func (s *Store) RecordRejected(ctx context.Context, chatID int64, reason string, start, end time.Time) error {
	details, _ := json.Marshal(Details{
		StartAt: start.UTC().Format(time.RFC3339),
		EndAt:   end.UTC().Format(time.RFC3339),
	})
	return s.LogEvent(ctx, Event{
		EventType: EventBookingRejected,
		ChatID:    chatID,
		Reason:    reason,
		Details:   details,
	})
}

// RecordCancelled logs a cancelled booking.
func (s *Store) RecordCancelled(ctx context.Context, b *bookings.Booking) error {
	details, _ := json.Marshal(Details{
		StartAt: b.StartAt.UTC().Format(time.RFC3339),
		EndAt:   b.EndAt.UTC().Format(time.RFC3339),
	})
	return s.LogEvent(ctx, Event{
		EventType: EventBookingCancelled,
		ChatID:    b.ChatID,
		BookingID: b.ID.String(),
		Details:   details,
	})
}

// RecordCreditsGranted logs an owner top-up.
func (s *Store) RecordCreditsGranted(ctx context.Context, chatID int64, visits int) error {
	details, _ := json.Marshal(Details{Visits: visits})
	return s.LogEvent(ctx, Event{
		EventType: EventCreditsGranted,
		ChatID:    chatID,
		Details:   details,
	})
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
