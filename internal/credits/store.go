// Package credits is the visit-pass ledger. A pass holds a number of visits;
// the first booking of a guest's day spends one. The balance never goes below
// zero: the decrement is a single conditional UPDATE, so concurrent spends
// cannot overdraw.
package credits

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// ErrNoCredits means the guest has no visits left to spend.
var ErrNoCredits = errors.New("credits: no visits left")

// Balance is the remaining visits on a guest's pass.
type Balance struct {
	ChatID     int64     `json:"chat_id"`
	VisitsLeft int       `json:"visits_left"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// DB abstracts the pgx query interface for testing.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store provides the ledger operations.
type Store struct {
	db DB
}

// NewStore creates a credits store.
func NewStore(db DB) *Store {
	return &Store{db: db}
}

// ConsumeOne spends one visit. Returns ErrNoCredits when the balance is zero
// or the guest has no pass; the balance is never driven below zero.
func (s *Store) ConsumeOne(ctx context.Context, chatID int64) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE credits SET visits_left = visits_left - 1, updated_at = $2
		WHERE chat_id = $1 AND visits_left > 0`, chatID, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("credits: consume: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNoCredits
	}
	return nil
}

// Refund returns one visit to the pass. Used as compensation when a booking
// fails after the credit was already spent.
func (s *Store) Refund(ctx context.Context, chatID int64) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO credits (chat_id, visits_left, updated_at)
		VALUES ($1, 1, $2)
		ON CONFLICT (chat_id) DO UPDATE SET visits_left = credits.visits_left + 1, updated_at = EXCLUDED.updated_at`,
		chatID, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("credits: refund: %w", err)
	}
	return nil
}

// Grant adds visits to a guest's pass, creating the pass if needed.
func (s *Store) Grant(ctx context.Context, chatID int64, visits int) (*Balance, error) {
	if visits <= 0 {
		return nil, fmt.Errorf("credits: grant of %d visits", visits)
	}
	row := s.db.QueryRow(ctx, `
		INSERT INTO credits (chat_id, visits_left, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (chat_id) DO UPDATE SET visits_left = credits.visits_left + EXCLUDED.visits_left, updated_at = EXCLUDED.updated_at
		RETURNING chat_id, visits_left, updated_at`,
		chatID, visits, time.Now().UTC())

	var b Balance
	if err := row.Scan(&b.ChatID, &b.VisitsLeft, &b.UpdatedAt); err != nil {
		return nil, fmt.Errorf("credits: grant: %w", err)
	}
	return &b, nil
}

// BalanceFor reads the remaining visits. A guest without a pass reads as zero.
func (s *Store) BalanceFor(ctx context.Context, chatID int64) (*Balance, error) {
	row := s.db.QueryRow(ctx, `
		SELECT chat_id, visits_left, updated_at
		FROM credits WHERE chat_id = $1`, chatID)

	var b Balance
	err := row.Scan(&b.ChatID, &b.VisitsLeft, &b.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return &Balance{ChatID: chatID}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("credits: balance: %w", err)
	}
	return &b, nil
}
