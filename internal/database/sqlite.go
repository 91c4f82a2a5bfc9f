package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // pure Go driver
)

// SQLiteConfig defines SQLite operational parameters.
type SQLiteConfig struct {
	BusyTimeout time.Duration
	// MaxOpenConns is 1 so that database/sql serialises every writer; SQLite
	// allows a single writer anyway and this keeps BEGIN from racing to
	// upgrade shared locks.
	MaxOpenConns int
}

// DefaultSQLiteConfig returns the recommended configuration.
func DefaultSQLiteConfig() SQLiteConfig {
	return SQLiteConfig{
		BusyTimeout:  5 * time.Second,
		MaxOpenConns: 1,
	}
}

// OpenSQLite opens the database at path with mandatory PRAGMAs and applies
// the schema.
func OpenSQLite(ctx context.Context, path string, cfg SQLiteConfig) (*sql.DB, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(%d)&_pragma=synchronous(NORMAL)&_pragma=foreign_keys(ON)",
		path, cfg.BusyTimeout.Milliseconds())

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open failed: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxOpenConns)
	db.SetConnMaxLifetime(time.Hour)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: ping failed: %w", err)
	}
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: apply schema: %w", err)
	}
	return db, nil
}

// Timestamps are stored as fixed-width UTC text so that string comparison
// orders them chronologically.
const sqliteSchema = `
CREATE TABLE IF NOT EXISTS events (
	id                TEXT PRIMARY KEY,
	organizer_id      TEXT NOT NULL,
	college           TEXT NOT NULL DEFAULT '',
	title             TEXT NOT NULL,
	description       TEXT NOT NULL,
	category          TEXT NOT NULL DEFAULT '',
	tags              TEXT NOT NULL DEFAULT '[]',
	venue             TEXT NOT NULL,
	banner_url        TEXT NOT NULL DEFAULT '',
	start_date        TEXT NOT NULL,
	end_date          TEXT NOT NULL,
	capacity          INTEGER NOT NULL CHECK (capacity >= 1),
	registered_count  INTEGER NOT NULL DEFAULT 0,
	status            TEXT NOT NULL CHECK (status IN ('draft', 'pending', 'approved', 'rejected', 'cancelled', 'completed')),
	is_featured       INTEGER NOT NULL DEFAULT 0,
	requires_approval INTEGER NOT NULL DEFAULT 1,
	created_at        TEXT NOT NULL,
	updated_at        TEXT NOT NULL,
	CHECK (registered_count >= 0 AND registered_count <= capacity)
);

CREATE INDEX IF NOT EXISTS idx_events_organizer_status ON events (organizer_id, status);
CREATE INDEX IF NOT EXISTS idx_events_start_end ON events (start_date, end_date);

CREATE TABLE IF NOT EXISTS registrations (
	id                 TEXT PRIMARY KEY,
	event_id           TEXT NOT NULL REFERENCES events (id) ON DELETE RESTRICT,
	attendee_id        TEXT NOT NULL,
	attendee_name      TEXT NOT NULL DEFAULT '',
	status             TEXT NOT NULL CHECK (status IN ('pending', 'confirmed', 'checked_in', 'cancelled')),
	check_in_code      TEXT NOT NULL,
	checked_in_at      TEXT,
	payment_status     TEXT NOT NULL DEFAULT 'none' CHECK (payment_status IN ('none', 'pending', 'paid', 'refunded')),
	feedback_submitted INTEGER NOT NULL DEFAULT 0,
	feedback           TEXT NOT NULL DEFAULT '',
	rating             INTEGER CHECK (rating BETWEEN 1 AND 5),
	created_at         TEXT NOT NULL,
	updated_at         TEXT NOT NULL,
	UNIQUE (event_id, attendee_id)
);

CREATE INDEX IF NOT EXISTS idx_registrations_attendee ON registrations (attendee_id, created_at);

CREATE TABLE IF NOT EXISTS notifications (
	id           TEXT PRIMARY KEY,
	recipient_id TEXT NOT NULL,
	title        TEXT NOT NULL,
	message      TEXT NOT NULL,
	type         TEXT NOT NULL DEFAULT 'info' CHECK (type IN ('info', 'reminder', 'update', 'alert')),
	event_id     TEXT NOT NULL DEFAULT '',
	is_read      INTEGER NOT NULL DEFAULT 0,
	meta         TEXT NOT NULL DEFAULT '{}',
	created_at   TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_notifications_recipient_read ON notifications (recipient_id, is_read);
`
