// Package guestdata wipes every trace of a guest across the database and
// Redis. Intended for test accounts and right-to-erasure requests, not for
// day-to-day cancellations.
package guestdata

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	"github.com/artchaos/booking-platform/pkg/logging"
)

// Purger deletes a guest's rows from every table that references a chat id.
type Purger struct {
	db     *sql.DB
	redis  *redis.Client
	logger *logging.Logger
}

func NewPurger(db *sql.DB, redisClient *redis.Client, logger *logging.Logger) *Purger {
	if logger == nil {
		logger = logging.Default()
	}
	return &Purger{
		db:     db,
		redis:  redisClient,
		logger: logger,
	}
}

type PurgeCounts struct {
	Reminders   int64 `json:"reminders"`
	AuditEvents int64 `json:"audit_events"`
	Bookings    int64 `json:"bookings"`
	Credits     int64 `json:"credits"`
	Guests      int64 `json:"guests"`
}

type PurgeResult struct {
	ChatIDs         []int64     `json:"chat_ids"`
	Deleted         PurgeCounts `json:"deleted"`
	SessionsCleared int64       `json:"sessions_cleared"`
}

// PurgeGuests deletes all data for the given chat ids in one transaction,
// then drops their dialogue sessions from Redis. Sent reminders and audit
// rows go too: erasure beats the audit trail here.
func (p *Purger) PurgeGuests(ctx context.Context, chatIDs []int64) (PurgeResult, error) {
	if p == nil || p.db == nil {
		return PurgeResult{}, fmt.Errorf("guestdata: database not configured")
	}
	if len(chatIDs) == 0 {
		return PurgeResult{}, fmt.Errorf("guestdata: no chat ids given")
	}

	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return PurgeResult{}, fmt.Errorf("guestdata: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var resp PurgeResult
	resp.ChatIDs = chatIDs
	ids := pq.Array(chatIDs)

	resp.Deleted.Reminders, err = execRowsAffected(ctx, tx, `
		DELETE FROM reminders WHERE chat_id = ANY($1::bigint[])
	`, ids)
	if err != nil {
		return PurgeResult{}, fmt.Errorf("guestdata: delete reminders: %w", err)
	}

	resp.Deleted.AuditEvents, err = execRowsAffected(ctx, tx, `
		DELETE FROM audit_events WHERE chat_id = ANY($1::bigint[])
	`, ids)
	if err != nil {
		return PurgeResult{}, fmt.Errorf("guestdata: delete audit events: %w", err)
	}

	resp.Deleted.Bookings, err = execRowsAffected(ctx, tx, `
		DELETE FROM bookings WHERE chat_id = ANY($1::bigint[])
	`, ids)
	if err != nil {
		return PurgeResult{}, fmt.Errorf("guestdata: delete bookings: %w", err)
	}

	resp.Deleted.Credits, err = execRowsAffected(ctx, tx, `
		DELETE FROM credits WHERE chat_id = ANY($1::bigint[])
	`, ids)
	if err != nil {
		return PurgeResult{}, fmt.Errorf("guestdata: delete credits: %w", err)
	}

	resp.Deleted.Guests, err = execRowsAffected(ctx, tx, `
		DELETE FROM guests WHERE chat_id = ANY($1::bigint[])
	`, ids)
	if err != nil {
		return PurgeResult{}, fmt.Errorf("guestdata: delete guests: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return PurgeResult{}, fmt.Errorf("guestdata: commit purge: %w", err)
	}

	if p.redis != nil {
		keys := make([]string, 0, len(chatIDs))
		for _, chatID := range chatIDs {
			keys = append(keys, fmt.Sprintf("session:%d", chatID))
		}
		res := p.redis.Del(ctx, keys...)
		if err := res.Err(); err != nil {
			p.logger.Warn("guestdata purge: redis DEL failed", "error", err, "chat_ids", chatIDs)
		} else {
			resp.SessionsCleared = res.Val()
		}
	}

	return resp, nil
}

func execRowsAffected(ctx context.Context, tx *sql.Tx, query string, args ...any) (int64, error) {
	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
