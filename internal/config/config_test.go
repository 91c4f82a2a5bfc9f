package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, DriverPostgres, cfg.DBDriver)
	assert.Equal(t, "localhost", cfg.Postgres.Host)
	assert.Equal(t, "campus_events", cfg.Postgres.DBName)
	assert.Equal(t, 4, cfg.NotifyWorkers)
	assert.Equal(t, 1024, cfg.NotifyQueueDepth)
	assert.Equal(t, 600, cfg.RateLimitPerMinute)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.False(t, cfg.Telemetry.Enabled)
	assert.Equal(t,
		"host=localhost port=5432 user=postgres password=postgres dbname=campus_events sslmode=disable",
		cfg.Postgres.DSN())
}

func TestLoad_CORSOrigins(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("CORS_ORIGINS", "https://a.example,https://b.example")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins)
}

func TestLoad_DotenvFile(t *testing.T) {
	t.Setenv("PORT", "9090")
	// Registered so t.Setenv restores the pre-test state after godotenv sets them.
	t.Setenv("DB_DRIVER", "")
	t.Setenv("JWT_SECRET", "")
	t.Setenv("NOTIFY_WORKERS", "")
	require.NoError(t, os.Unsetenv("DB_DRIVER"))
	require.NoError(t, os.Unsetenv("JWT_SECRET"))
	require.NoError(t, os.Unsetenv("NOTIFY_WORKERS"))

	path := filepath.Join(t.TempDir(), ".env")
	content := "PORT=7070\nDB_DRIVER=SQLite\nJWT_SECRET=from-file\nNOTIFY_WORKERS=2\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port, "environment wins over .env")
	assert.Equal(t, DriverSQLite, cfg.DBDriver)
	assert.Equal(t, "from-file", cfg.JWTSecret)
	assert.Equal(t, 2, cfg.NotifyWorkers)
}

func TestValidate(t *testing.T) {
	base := Config{
		DBDriver:           DriverSQLite,
		JWTSecret:          "x",
		NotifyWorkers:      1,
		NotifyQueueDepth:   1,
		RateLimitPerMinute: 1,
	}
	require.NoError(t, base.Validate())

	bad := base
	bad.DBDriver = "mongo"
	assert.ErrorContains(t, bad.Validate(), "DB_DRIVER")

	bad = base
	bad.JWTSecret = " "
	assert.ErrorContains(t, bad.Validate(), "JWT_SECRET")

	bad = base
	bad.NotifyWorkers = 0
	assert.ErrorContains(t, bad.Validate(), "NOTIFY_WORKERS")

	bad = base
	bad.NotifyQueueDepth = -1
	assert.ErrorContains(t, bad.Validate(), "NOTIFY_QUEUE_DEPTH")

	bad = base
	bad.RateLimitPerMinute = -1
	assert.ErrorContains(t, bad.Validate(), "RATE_LIMIT_PER_MINUTE")

	unlimited := base
	unlimited.RateLimitPerMinute = 0
	assert.NoError(t, unlimited.Validate(), "0 turns rate limiting off")
}
