// Package config loads process configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Supported storage drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Config is the full process configuration.
type Config struct {
	Port     string `env:"PORT" envDefault:"8080"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	DBDriver   string   `env:"DB_DRIVER" envDefault:"postgres"`
	Postgres   Postgres `envPrefix:"DB_"`
	SQLitePath string   `env:"SQLITE_PATH" envDefault:"campus-events.db"`

	JWTSecret string `env:"JWT_SECRET"`
	RedisAddr string `env:"REDIS_ADDR"`

	NotifyWorkers    int `env:"NOTIFY_WORKERS" envDefault:"4"`
	NotifyQueueDepth int `env:"NOTIFY_QUEUE_DEPTH" envDefault:"1024"`

	VenueCatalog       string   `env:"VENUE_CATALOG"`
	RateLimitPerMinute int      `env:"RATE_LIMIT_PER_MINUTE" envDefault:"600"`
	CORSOrigins        []string `env:"CORS_ORIGINS" envSeparator:","`

	Telemetry Telemetry `envPrefix:"OTEL_"`

	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

// Postgres holds PostgreSQL connection settings.
type Postgres struct {
	Host     string `env:"HOST" envDefault:"localhost"`
	Port     string `env:"PORT" envDefault:"5432"`
	User     string `env:"USER" envDefault:"postgres"`
	Password string `env:"PASSWORD" envDefault:"postgres"`
	DBName   string `env:"NAME" envDefault:"campus_events"`
	SSLMode  string `env:"SSLMODE" envDefault:"disable"`
}

// DSN builds a libpq-compatible connection string.
func (p Postgres) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.DBName, p.SSLMode,
	)
}

// Telemetry controls OpenTelemetry trace export.
type Telemetry struct {
	Enabled      bool    `env:"ENABLED" envDefault:"false"`
	Endpoint     string  `env:"ENDPOINT" envDefault:"localhost:4318"`
	SamplingRate float64 `env:"SAMPLING_RATE" envDefault:"1.0"`
}

// Load reads an optional .env file and then parses the environment.
// Variables already present in the environment win over the file.
func Load(dotenvPaths ...string) (Config, error) {
	if len(dotenvPaths) == 0 {
		dotenvPaths = []string{".env"}
	}
	for _, p := range dotenvPaths {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", p, err)
		}
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	cfg.DBDriver = strings.ToLower(strings.TrimSpace(cfg.DBDriver))
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects configurations the server cannot start with.
func (c Config) Validate() error {
	switch c.DBDriver {
	case DriverPostgres, DriverSQLite:
	default:
		return fmt.Errorf("DB_DRIVER must be %q or %q, got %q", DriverPostgres, DriverSQLite, c.DBDriver)
	}
	if strings.TrimSpace(c.JWTSecret) == "" {
		return errors.New("JWT_SECRET is required")
	}
	if c.NotifyWorkers <= 0 {
		return errors.New("NOTIFY_WORKERS must be positive")
	}
	if c.NotifyQueueDepth <= 0 {
		return errors.New("NOTIFY_QUEUE_DEPTH must be positive")
	}
	if c.RateLimitPerMinute < 0 {
		return errors.New("RATE_LIMIT_PER_MINUTE must not be negative (0 disables it)")
	}
	return nil
}
