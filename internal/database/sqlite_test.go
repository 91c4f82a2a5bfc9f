package database

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenSQLite_AppliesPragmasAndSchema(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "campus.db")

	db, err := OpenSQLite(ctx, path, DefaultSQLiteConfig())
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	var mode string
	require.NoError(t, db.QueryRowContext(ctx, "PRAGMA journal_mode").Scan(&mode))
	assert.Equal(t, "wal", mode)

	var fk int
	require.NoError(t, db.QueryRowContext(ctx, "PRAGMA foreign_keys").Scan(&fk))
	assert.Equal(t, 1, fk)

	for _, table := range []string{"events", "registrations", "notifications"} {
		var name string
		err := db.QueryRowContext(ctx,
			"SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?", table).Scan(&name)
		require.NoError(t, err, table)
	}
}

func TestOpenSQLite_SchemaIsIdempotent(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "campus.db")

	db, err := OpenSQLite(ctx, path, DefaultSQLiteConfig())
	require.NoError(t, err)
	require.NoError(t, db.Close())

	db, err = OpenSQLite(ctx, path, DefaultSQLiteConfig())
	require.NoError(t, err)
	require.NoError(t, db.Close())
}

func TestOpenSQLite_CapacityCheck(t *testing.T) {
	ctx := context.Background()
	db, err := OpenSQLite(ctx, filepath.Join(t.TempDir(), "campus.db"), DefaultSQLiteConfig())
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	_, err = db.ExecContext(ctx, `INSERT INTO events
		(id, organizer_id, title, description, venue, start_date, end_date, capacity, registered_count, status, created_at, updated_at)
		VALUES ('e1', 'o1', 't', 'd', 'v', 's', 'e', 1, 2, 'approved', 'c', 'u')`)
	assert.Error(t, err)
}

func TestDefaultPoolConfig(t *testing.T) {
	cfg := DefaultPoolConfig("postgres://localhost/campus")
	assert.Equal(t, "postgres://localhost/campus", cfg.DSN)
	assert.Greater(t, cfg.MaxConns, cfg.MinConns)
	assert.Positive(t, cfg.Attempts)
}
