package telegram

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

// DB abstracts the pgx command interface for testing.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// UpdateStore remembers Bot API update ids that were already handled, so
// webhook re-deliveries and poller restarts never run an update twice.
type UpdateStore struct {
	db DB
}

func NewUpdateStore(db DB) *UpdateStore {
	if db == nil {
		panic("telegram: db required")
	}
	return &UpdateStore{db: db}
}

// MarkProcessed records an update id, returning false when it was seen before.
func (s *UpdateStore) MarkProcessed(ctx context.Context, updateID int64) (bool, error) {
	ct, err := s.db.Exec(ctx, `
		INSERT INTO processed_updates (update_id)
		VALUES ($1)
		ON CONFLICT DO NOTHING
	`, updateID)
	if err != nil {
		return false, fmt.Errorf("telegram: mark update processed: %w", err)
	}
	return ct.RowsAffected() > 0, nil
}
