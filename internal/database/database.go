// Package database provides connection management for the two supported
// datastores: PostgreSQL via pgx and SQLite via modernc.org/sqlite.
package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// PoolConfig tunes the pgx pool and its startup retries.
type PoolConfig struct {
	DSN          string
	MaxConns     int32
	MinConns     int32
	Attempts     int
	RetryBackoff time.Duration
}

// DefaultPoolConfig returns sensible pool defaults for a small service.
func DefaultPoolConfig(dsn string) PoolConfig {
	return PoolConfig{
		DSN:          dsn,
		MaxConns:     20,
		MinConns:     2,
		Attempts:     5,
		RetryBackoff: 2 * time.Second,
	}
}

// NewPool creates and validates a pgxpool connection pool and applies the
// schema. It retries to accommodate containers starting up.
func NewPool(ctx context.Context, cfg PoolConfig, logger zerolog.Logger) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse db config: %w", err)
	}
	poolCfg.MaxConns = cfg.MaxConns
	poolCfg.MinConns = cfg.MinConns
	poolCfg.MaxConnLifetime = 30 * time.Minute
	poolCfg.MaxConnIdleTime = 5 * time.Minute

	attempts := max(cfg.Attempts, 1)
	var pool *pgxpool.Pool
	for attempt := 1; attempt <= attempts; attempt++ {
		pool, err = pgxpool.NewWithConfig(ctx, poolCfg)
		if err == nil {
			if err = pool.Ping(ctx); err == nil {
				break
			}
			pool.Close()
			pool = nil
		}
		logger.Warn().Err(err).
			Int("attempt", attempt).
			Int("of", attempts).
			Dur("backoff", cfg.RetryBackoff).
			Msg("postgres connect failed")
		if attempt < attempts {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(cfg.RetryBackoff):
			}
		}
	}
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}

	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("apply postgres schema: %w", err)
	}
	return pool, nil
}

// The (event_id, attendee_id) unique constraint is what rejects duplicate
// registrations; application code never checks for existence first.
const postgresSchema = `
CREATE TABLE IF NOT EXISTS events (
	id                TEXT PRIMARY KEY,
	organizer_id      TEXT NOT NULL,
	college           TEXT NOT NULL DEFAULT '',
	title             TEXT NOT NULL,
	description       TEXT NOT NULL,
	category          TEXT NOT NULL DEFAULT '',
	tags              TEXT[] NOT NULL DEFAULT '{}',
	venue             TEXT NOT NULL,
	banner_url        TEXT NOT NULL DEFAULT '',
	start_date        TIMESTAMPTZ NOT NULL,
	end_date          TIMESTAMPTZ NOT NULL,
	capacity          INTEGER NOT NULL CHECK (capacity >= 1),
	registered_count  INTEGER NOT NULL DEFAULT 0,
	status            TEXT NOT NULL CHECK (status IN ('draft', 'pending', 'approved', 'rejected', 'cancelled', 'completed')),
	is_featured       BOOLEAN NOT NULL DEFAULT FALSE,
	requires_approval BOOLEAN NOT NULL DEFAULT TRUE,
	created_at        TIMESTAMPTZ NOT NULL,
	updated_at        TIMESTAMPTZ NOT NULL,
	CONSTRAINT events_registered_count_bounds CHECK (registered_count >= 0 AND registered_count <= capacity)
);

CREATE INDEX IF NOT EXISTS idx_events_organizer_status ON events (organizer_id, status);
CREATE INDEX IF NOT EXISTS idx_events_start_end ON events (start_date, end_date);
CREATE INDEX IF NOT EXISTS idx_events_tags ON events USING GIN (tags);

CREATE TABLE IF NOT EXISTS registrations (
	id                 TEXT PRIMARY KEY,
	event_id           TEXT NOT NULL REFERENCES events (id) ON DELETE RESTRICT,
	attendee_id        TEXT NOT NULL,
	attendee_name      TEXT NOT NULL DEFAULT '',
	status             TEXT NOT NULL CHECK (status IN ('pending', 'confirmed', 'checked_in', 'cancelled')),
	check_in_code      TEXT NOT NULL,
	checked_in_at      TIMESTAMPTZ,
	payment_status     TEXT NOT NULL DEFAULT 'none' CHECK (payment_status IN ('none', 'pending', 'paid', 'refunded')),
	feedback_submitted BOOLEAN NOT NULL DEFAULT FALSE,
	feedback           TEXT NOT NULL DEFAULT '',
	rating             INTEGER CHECK (rating BETWEEN 1 AND 5),
	created_at         TIMESTAMPTZ NOT NULL,
	updated_at         TIMESTAMPTZ NOT NULL,
	CONSTRAINT registrations_event_attendee_key UNIQUE (event_id, attendee_id)
);

CREATE INDEX IF NOT EXISTS idx_registrations_attendee ON registrations (attendee_id, created_at DESC);

CREATE TABLE IF NOT EXISTS notifications (
	id           TEXT PRIMARY KEY,
	recipient_id TEXT NOT NULL,
	title        TEXT NOT NULL,
	message      TEXT NOT NULL,
	type         TEXT NOT NULL DEFAULT 'info' CHECK (type IN ('info', 'reminder', 'update', 'alert')),
	event_id     TEXT NOT NULL DEFAULT '',
	is_read      BOOLEAN NOT NULL DEFAULT FALSE,
	meta         JSONB NOT NULL DEFAULT '{}',
	created_at   TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_notifications_recipient_read ON notifications (recipient_id, is_read);
`
