package reminders

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/artchaos/booking-platform/internal/observability/metrics"
)

// Reminder is one planned trigger for a confirmed booking.
type Reminder struct {
	ID        uuid.UUID
	BookingID uuid.UUID
	ChatID    int64
	StartAt   time.Time
	FireAt    time.Time
	SentAt    *time.Time
	CreatedAt time.Time
}

// DB abstracts the pgx query interface for testing.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store persists reminder triggers in the reminders outbox table.
type Store struct {
	db      DB
	metrics *metrics.ReminderMetrics
	now     func() time.Time
}

// NewStore creates a reminder store.
func NewStore(db DB) *Store {
	return &Store{db: db, now: time.Now}
}

// WithMetrics attaches reminder metrics.
func (s *Store) WithMetrics(m *metrics.ReminderMetrics) *Store {
	s.metrics = m
	return s
}

// WithNow overrides the clock, for tests.
func (s *Store) WithNow(now func() time.Time) *Store {
	if now != nil {
		s.now = now
	}
	return s
}

// ScheduleForBooking plans triggers for a confirmed booking and writes one
// outbox row per trigger. A booking too close to its start gets no rows.
func (s *Store) ScheduleForBooking(ctx context.Context, bookingID uuid.UUID, chatID int64, startAt time.Time) error {
	now := s.now().UTC()
	triggers := PlanTriggers(now, startAt)
	for _, fireAt := range triggers {
		_, err := s.db.Exec(ctx, `
			INSERT INTO reminders (id, booking_id, chat_id, start_at, fire_at, created_at)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			uuid.New(), bookingID, chatID, startAt.UTC(), fireAt.UTC(), now,
		)
		if err != nil {
			return fmt.Errorf("reminders: schedule trigger: %w", err)
		}
	}
	if len(triggers) > 0 {
		s.metrics.ObserveScheduled(len(triggers))
	}
	return nil
}

// FetchDue returns unsent reminders whose fire time has passed, oldest first.
func (s *Store) FetchDue(ctx context.Context, asOf time.Time, limit int32) ([]Reminder, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, booking_id, chat_id, start_at, fire_at, sent_at, created_at
		FROM reminders
		WHERE sent_at IS NULL AND fire_at <= $1
		ORDER BY fire_at ASC
		LIMIT $2`, asOf.UTC(), limit)
	if err != nil {
		return nil, fmt.Errorf("reminders: fetch due: %w", err)
	}
	defer rows.Close()
	return scanReminders(rows)
}

// MarkSent records delivery of a reminder. Returns false when the row was
// already marked, so concurrent dispatchers do not double-count.
func (s *Store) MarkSent(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE reminders SET sent_at = $1
		WHERE id = $2 AND sent_at IS NULL`, s.now().UTC(), id)
	if err != nil {
		return false, fmt.Errorf("reminders: mark sent: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// CancelForBooking removes unsent triggers for a booking, returning how many
// were dropped. Already-sent rows stay for the audit trail.
func (s *Store) CancelForBooking(ctx context.Context, bookingID uuid.UUID) (int64, error) {
	tag, err := s.db.Exec(ctx, `
		DELETE FROM reminders WHERE booking_id = $1 AND sent_at IS NULL`, bookingID)
	if err != nil {
		return 0, fmt.Errorf("reminders: cancel for booking: %w", err)
	}
	return tag.RowsAffected(), nil
}

func scanReminders(rows pgx.Rows) ([]Reminder, error) {
	var result []Reminder
	for rows.Next() {
		var r Reminder
		err := rows.Scan(&r.ID, &r.BookingID, &r.ChatID, &r.StartAt, &r.FireAt, &r.SentAt, &r.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("reminders: scan reminder: %w", err)
		}
		result = append(result, r)
	}
	return result, rows.Err()
}
