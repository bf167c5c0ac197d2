package bookings

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// overlapConstraint is the exclusion constraint guarding the timeline at the
// database level (see migrations). It is the backstop for concurrent inserts
// the in-transaction re-check cannot see.
const overlapConstraint = "bookings_no_overlap"

// DB abstracts the pgx pool interface for testing.
type DB interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store provides persistence for bookings.
type Store struct {
	db DB
}

// NewStore creates a booking store.
func NewStore(db DB) *Store {
	return &Store{db: db}
}

// CountOverlapping counts confirmed bookings sharing any instant with
// [start, end). Touching endpoints do not count.
func (s *Store) CountOverlapping(ctx context.Context, start, end time.Time) (int, error) {
	var n int
	err := s.db.QueryRow(ctx, `
		SELECT COUNT(*) FROM bookings
		WHERE status = 'confirmed' AND start_at < $2 AND end_at > $1`,
		start, end).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("bookings: count overlapping: %w", err)
	}
	return n, nil
}

// HasBookingBetween reports whether the guest holds a confirmed booking
// starting within [dayStart, dayEnd). Used for the first-booking-of-day rule.
func (s *Store) HasBookingBetween(ctx context.Context, chatID int64, dayStart, dayEnd time.Time) (bool, error) {
	var exists bool
	err := s.db.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM bookings
			WHERE chat_id = $1 AND status = 'confirmed' AND start_at >= $2 AND start_at < $3
		)`, chatID, dayStart, dayEnd).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("bookings: day check: %w", err)
	}
	return exists, nil
}

// CreateConfirmed inserts a confirmed booking inside a transaction that locks
// and re-checks the overlapping window. Returns ErrSlotTaken when the window
// is occupied, either by the re-check or by the exclusion constraint.
func (s *Store) CreateConfirmed(ctx context.Context, b *Booking) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	b.Status = StatusConfirmed
	b.CreatedAt = time.Now().UTC()

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("bookings: begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var clash uuid.UUID
	err = tx.QueryRow(ctx, `
		SELECT id FROM bookings
		WHERE status = 'confirmed' AND start_at < $2 AND end_at > $1
		LIMIT 1
		FOR UPDATE`, b.StartAt, b.EndAt).Scan(&clash)
	if err == nil {
		return ErrSlotTaken
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("bookings: overlap recheck: %w", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO bookings (id, chat_id, start_at, end_at, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		b.ID, b.ChatID, b.StartAt, b.EndAt, string(b.Status), b.CreatedAt)
	if err != nil {
		if isOverlapViolation(err) {
			return ErrSlotTaken
		}
		return fmt.Errorf("bookings: insert: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("bookings: commit: %w", err)
	}
	return nil
}

// Cancel transitions confirmed → cancelled. When chatID is non-nil the
// booking must belong to that guest (guest self-cancel); nil skips the
// ownership check (admin). Returns ErrNotFound when nothing matched.
func (s *Store) Cancel(ctx context.Context, id uuid.UUID, chatID *int64) error {
	now := time.Now().UTC()
	var (
		tag pgconn.CommandTag
		err error
	)
	if chatID != nil {
		tag, err = s.db.Exec(ctx, `
			UPDATE bookings SET status = 'cancelled', cancelled_at = $2
			WHERE id = $1 AND status = 'confirmed' AND chat_id = $3`, id, now, *chatID)
	} else {
		tag, err = s.db.Exec(ctx, `
			UPDATE bookings SET status = 'cancelled', cancelled_at = $2
			WHERE id = $1 AND status = 'confirmed'`, id, now)
	}
	if err != nil {
		return fmt.Errorf("bookings: cancel: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// GetByID loads a booking, or nil when absent.
func (s *Store) GetByID(ctx context.Context, id uuid.UUID) (*Booking, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, chat_id, start_at, end_at, status, created_at, cancelled_at
		FROM bookings WHERE id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("bookings: get: %w", err)
	}
	defer rows.Close()
	found, err := scanBookings(rows)
	if err != nil {
		return nil, err
	}
	if len(found) == 0 {
		return nil, nil
	}
	return &found[0], nil
}

// ListUpcomingByChat returns the guest's confirmed bookings starting at or
// after from, soonest first.
func (s *Store) ListUpcomingByChat(ctx context.Context, chatID int64, from time.Time) ([]Booking, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, chat_id, start_at, end_at, status, created_at, cancelled_at
		FROM bookings
		WHERE chat_id = $1 AND status = 'confirmed' AND start_at >= $2
		ORDER BY start_at ASC`, chatID, from)
	if err != nil {
		return nil, fmt.Errorf("bookings: list upcoming: %w", err)
	}
	defer rows.Close()
	return scanBookings(rows)
}

// ListBetween returns confirmed bookings starting within [from, to), soonest
// first. Used for the admin day view.
func (s *Store) ListBetween(ctx context.Context, from, to time.Time) ([]Booking, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, chat_id, start_at, end_at, status, created_at, cancelled_at
		FROM bookings
		WHERE status = 'confirmed' AND start_at >= $1 AND start_at < $2
		ORDER BY start_at ASC`, from, to)
	if err != nil {
		return nil, fmt.Errorf("bookings: list between: %w", err)
	}
	defer rows.Close()
	return scanBookings(rows)
}

func scanBookings(rows pgx.Rows) ([]Booking, error) {
	var result []Booking
	for rows.Next() {
		var (
			b      Booking
			status string
		)
		if err := rows.Scan(&b.ID, &b.ChatID, &b.StartAt, &b.EndAt, &status, &b.CreatedAt, &b.CancelledAt); err != nil {
			return nil, fmt.Errorf("bookings: scan booking: %w", err)
		}
		b.Status = Status(status)
		result = append(result, b)
	}
	return result, rows.Err()
}

func isOverlapViolation(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	if pgErr.ConstraintName == overlapConstraint {
		return true
	}
	// 23P01 exclusion_violation, 23505 unique_violation
	return pgErr.Code == "23P01"
}
