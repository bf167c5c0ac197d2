// Package bootstrap wires shared infrastructure for the binaries: Postgres,
// Redis, the slot grid. Builders degrade to nil when an optional dependency
// is not configured, so each binary decides what it can live without.
package bootstrap

import (
	"context"
	"crypto/tls"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/redis/go-redis/v9"

	appconfig "github.com/artchaos/booking-platform/internal/config"
	"github.com/artchaos/booking-platform/internal/conversation"
	"github.com/artchaos/booking-platform/internal/schedule"
	"github.com/artchaos/booking-platform/pkg/logging"
)

// BuildRedisClient returns a configured Redis client or nil when disabled.
// When verify is true, a ping is issued and failures return nil.
func BuildRedisClient(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger, verify bool) *redis.Client {
	if cfg == nil || strings.TrimSpace(cfg.RedisAddr) == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	redisOptions := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}
	if cfg.RedisTLS {
		redisOptions.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(redisOptions)
	if !verify {
		return client
	}
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis not available", "error", err)
		return nil
	}
	return client
}

// BuildPgxPool connects the pgx pool used by the booking, credit, guest and
// reminder stores. The pool is pinged so a bad DATABASE_URL fails at boot.
func BuildPgxPool(ctx context.Context, cfg *appconfig.Config) (*pgxpool.Pool, error) {
	if cfg == nil || strings.TrimSpace(cfg.DatabaseURL) == "" {
		return nil, fmt.Errorf("bootstrap: DATABASE_URL is required")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("bootstrap: ping postgres: %w", err)
	}
	return pool, nil
}

// BuildSQLDB opens a database/sql handle over the pgx stdlib driver for the
// audit store and the guest purger.
func BuildSQLDB(ctx context.Context, cfg *appconfig.Config) (*sql.DB, error) {
	if cfg == nil || strings.TrimSpace(cfg.DatabaseURL) == "" {
		return nil, fmt.Errorf("bootstrap: DATABASE_URL is required")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	db, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: open sql db: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("bootstrap: ping sql db: %w", err)
	}
	return db, nil
}

// BuildSessionStore wires dialogue session persistence when Redis is available.
func BuildSessionStore(redisClient *redis.Client, cfg *appconfig.Config) *conversation.SessionStore {
	if redisClient == nil {
		return nil
	}
	ttl := 30 * time.Minute
	if cfg != nil && cfg.SessionTTL > 0 {
		ttl = cfg.SessionTTL
	}
	return conversation.NewSessionStore(redisClient, ttl)
}

// BuildGrid resolves the studio timezone and validates the slot grid. A bad
// STUDIO_TIMEZONE is a boot failure: the grid decides where days begin.
func BuildGrid(cfg *appconfig.Config) (schedule.Grid, error) {
	if cfg == nil {
		return schedule.Grid{}, fmt.Errorf("bootstrap: config is required")
	}

	loc, err := time.LoadLocation(cfg.StudioTimezone)
	if err != nil {
		return schedule.Grid{}, fmt.Errorf("bootstrap: load studio timezone %q: %w", cfg.StudioTimezone, err)
	}

	grid, err := schedule.NewGrid(loc,
		cfg.OpenHour, cfg.LastSlotHour, cfg.CloseHour,
		cfg.BookingWindowDays, cfg.DefaultDurationHours, cfg.MaxDurationHours)
	if err != nil {
		return schedule.Grid{}, fmt.Errorf("bootstrap: build grid: %w", err)
	}
	return grid, nil
}
