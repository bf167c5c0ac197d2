// Package guests keeps the registry of studio guests. Guests are identified
// by their chat ID across every channel and store.
package guests

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Guest is a person who talks to the studio bot.
type Guest struct {
	ChatID    int64     `json:"chat_id"`
	FirstName string    `json:"first_name"`
	Username  string    `json:"username,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// GuestWithBalance pairs a guest with the remaining visits on their pass.
type GuestWithBalance struct {
	Guest
	VisitsLeft int `json:"visits_left"`
}

// DB abstracts the pgx query interface for testing.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store provides persistence for the guest registry.
type Store struct {
	db DB
}

// NewStore creates a guest store.
func NewStore(db DB) *Store {
	return &Store{db: db}
}

// GetOrCreate registers a guest on first contact. Repeat contacts refresh the
// profile fields so renamed accounts stay current.
func (s *Store) GetOrCreate(ctx context.Context, chatID int64, firstName, username string) (*Guest, error) {
	row := s.db.QueryRow(ctx, `
		INSERT INTO guests (chat_id, first_name, username, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (chat_id) DO UPDATE SET first_name = EXCLUDED.first_name, username = EXCLUDED.username
		RETURNING chat_id, first_name, username, created_at`,
		chatID, firstName, username, time.Now().UTC())

	var g Guest
	if err := row.Scan(&g.ChatID, &g.FirstName, &g.Username, &g.CreatedAt); err != nil {
		return nil, fmt.Errorf("guests: get or create: %w", err)
	}
	return &g, nil
}

// Get returns a guest by chat ID, or nil when unknown.
func (s *Store) Get(ctx context.Context, chatID int64) (*Guest, error) {
	row := s.db.QueryRow(ctx, `
		SELECT chat_id, first_name, username, created_at
		FROM guests WHERE chat_id = $1`, chatID)

	var g Guest
	err := row.Scan(&g.ChatID, &g.FirstName, &g.Username, &g.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("guests: get: %w", err)
	}
	return &g, nil
}

// ListWithBalances returns all guests with their remaining visits, newest first.
// Guests without a pass read as zero visits.
func (s *Store) ListWithBalances(ctx context.Context) ([]GuestWithBalance, error) {
	rows, err := s.db.Query(ctx, `
		SELECT g.chat_id, g.first_name, g.username, g.created_at, COALESCE(c.visits_left, 0)
		FROM guests g
		LEFT JOIN credits c ON c.chat_id = g.chat_id
		ORDER BY g.created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("guests: list with balances: %w", err)
	}
	defer rows.Close()

	var out []GuestWithBalance
	for rows.Next() {
		var g GuestWithBalance
		if err := rows.Scan(&g.ChatID, &g.FirstName, &g.Username, &g.CreatedAt, &g.VisitsLeft); err != nil {
			return nil, fmt.Errorf("guests: scan guest: %w", err)
		}
		out = append(out, g)
	}
	if out == nil {
		out = []GuestWithBalance{}
	}
	return out, rows.Err()
}
