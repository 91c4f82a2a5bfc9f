// cmd/main.go is the application entry point.
// It wires together all layers and starts the HTTP server.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/Shivanand-hulikatti/campus-events/internal/config"
	"github.com/Shivanand-hulikatti/campus-events/internal/database"
	"github.com/Shivanand-hulikatti/campus-events/internal/handler"
	"github.com/Shivanand-hulikatti/campus-events/internal/identity"
	xlog "github.com/Shivanand-hulikatti/campus-events/internal/log"
	"github.com/Shivanand-hulikatti/campus-events/internal/notify"
	"github.com/Shivanand-hulikatti/campus-events/internal/repository/postgres"
	"github.com/Shivanand-hulikatti/campus-events/internal/repository/sqlite"
	"github.com/Shivanand-hulikatti/campus-events/internal/service"
	"github.com/Shivanand-hulikatti/campus-events/internal/telemetry"
	"github.com/Shivanand-hulikatti/campus-events/internal/venue"
)

const serviceName = "campus-events"

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if err := run(); err != nil {
		base := xlog.Base()
		base.Fatal().Err(err).Msg("startup failed")
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	xlog.Configure(xlog.Config{Level: cfg.LogLevel, Service: serviceName})
	logger := xlog.WithComponent("main")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── 1. Tracing ────────────────────────────────────────────────────────
	provider, err := telemetry.NewProvider(ctx, telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		ServiceName:    serviceName,
		ServiceVersion: version,
		Endpoint:       cfg.Telemetry.Endpoint,
		SamplingRate:   cfg.Telemetry.SamplingRate,
	})
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}

	// ── 2. Connect to the datastore ───────────────────────────────────────
	st, err := openStores(ctx, cfg, xlog.WithComponent("database"))
	if err != nil {
		return err
	}
	defer st.close()

	// ── 3. Notification fan-out ───────────────────────────────────────────
	sinks := []notify.Sink{notify.NewStoreSink(st.inbox)}
	if cfg.RedisAddr != "" {
		client, err := notify.DialRedis(ctx, notify.RedisConfig{Addr: cfg.RedisAddr}, xlog.WithComponent("redis"))
		if err != nil {
			return err
		}
		defer func() { _ = client.Close() }()
		sinks = append(sinks, notify.NewRedisPublisher(client))
	}
	dispatcher := notify.NewDispatcher(notify.Config{
		Workers:    cfg.NotifyWorkers,
		QueueDepth: cfg.NotifyQueueDepth,
	}, xlog.WithComponent("notify"), sinks...)
	defer dispatcher.Close()

	// ── 4. Venue catalog ──────────────────────────────────────────────────
	venues := venue.NewStaticLoader(venue.DefaultCatalog())
	if cfg.VenueCatalog != "" {
		venues, err = venue.NewLoader(cfg.VenueCatalog, xlog.WithComponent("venue"))
		if err != nil {
			return err
		}
		stopWatch, err := venues.Watch()
		if err != nil {
			return err
		}
		defer stopWatch()
	}

	// ── 5. Wire up layers ─────────────────────────────────────────────────
	resolver, err := identity.NewResolver(identity.Config{Secret: []byte(cfg.JWTSecret)})
	if err != nil {
		return err
	}
	svcLogger := xlog.WithComponent("service")
	router := handler.NewRouter(handler.RouterConfig{
		Events:             service.NewEventService(st.events, st.registrations, dispatcher, svcLogger),
		Registrations:      service.NewRegistrationService(st.events, st.registrations, dispatcher, svcLogger),
		Inbox:              service.NewInboxService(st.inbox, svcLogger),
		Venues:             venues,
		Resolver:           resolver,
		Logger:             xlog.WithComponent("http"),
		CORSOrigins:        cfg.CORSOrigins,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		ServiceName:        serviceName,
	})

	// ── 6. Start server with graceful shutdown ────────────────────────────
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", srv.Addr).Str("driver", cfg.DBDriver).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	case <-ctx.Done():
	}

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}
	dispatcher.Close()
	if err := provider.Shutdown(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("tracer shutdown failed")
	}
	logger.Info().Msg("server stopped")
	return nil
}

// inbox is what both notification repositories provide: the delivery sink
// writes through Create and the inbox service reads the rest.
type inbox interface {
	service.InboxStore
	notify.NotificationStore
}

type stores struct {
	events        service.EventStore
	registrations service.RegistrationStore
	inbox         inbox
	close         func()
}

func openStores(ctx context.Context, cfg config.Config, logger zerolog.Logger) (*stores, error) {
	switch cfg.DBDriver {
	case config.DriverSQLite:
		db, err := database.OpenSQLite(ctx, cfg.SQLitePath, database.DefaultSQLiteConfig())
		if err != nil {
			return nil, fmt.Errorf("database: %w", err)
		}
		logger.Info().Str("path", cfg.SQLitePath).Msg("connected to sqlite")
		return &stores{
			events:        sqlite.NewEventRepository(db),
			registrations: sqlite.NewRegistrationRepository(db),
			inbox:         sqlite.NewNotificationRepository(db),
			close:         func() { _ = db.Close() },
		}, nil
	default:
		pool, err := database.NewPool(ctx, database.DefaultPoolConfig(cfg.Postgres.DSN()), logger)
		if err != nil {
			return nil, fmt.Errorf("database: %w", err)
		}
		logger.Info().Str("host", cfg.Postgres.Host).Str("db", cfg.Postgres.DBName).Msg("connected to postgres")
		return &stores{
			events:        postgres.NewEventRepository(pool),
			registrations: postgres.NewRegistrationRepository(pool),
			inbox:         postgres.NewNotificationRepository(pool),
			close:         pool.Close,
		}, nil
	}
}
