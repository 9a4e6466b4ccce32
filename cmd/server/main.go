// Trunkcast - Radio Event Fan-out and Forwarding
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trunkcast

package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/tomtom215/trunkcast/internal/api"
	"github.com/tomtom215/trunkcast/internal/config"
	"github.com/tomtom215/trunkcast/internal/coordinator"
	"github.com/tomtom215/trunkcast/internal/database"
	"github.com/tomtom215/trunkcast/internal/forwarder"
	"github.com/tomtom215/trunkcast/internal/logging"
	"github.com/tomtom215/trunkcast/internal/pruner"
	"github.com/tomtom215/trunkcast/internal/publisher"
	"github.com/tomtom215/trunkcast/internal/queue"
	"github.com/tomtom215/trunkcast/internal/supervisor"
	"github.com/tomtom215/trunkcast/internal/supervisor/services"
	"github.com/tomtom215/trunkcast/internal/telemetry"
	ws "github.com/tomtom215/trunkcast/internal/websocket"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

//nolint:gocyclo // Main initialization function with sequential setup steps
func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		Caller:    cfg.Logging.Caller,
		Timestamp: true,
	})
	logging.Info().Str("version", version).Msg("Starting Trunkcast with supervisor tree")

	reporter, flush, err := telemetry.New(telemetry.Config{
		DSN:         cfg.Telemetry.DSN,
		Environment: cfg.Telemetry.Environment,
		Release:     version,
		SampleRate:  cfg.Telemetry.SampleRate,
	})
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize error reporting")
	}
	defer flush()

	if err := run(cfg, reporter); err != nil {
		reporter.CaptureError(context.Background(), err, map[string]string{"phase": "startup"})
		flush()
		logging.Fatal().Err(err).Msg("Trunkcast failed")
	}
	logging.Info().Msg("Application stopped gracefully")
}

func run(cfg *config.Config, reporter telemetry.Reporter) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.New(&cfg.Database)
	if err != nil {
		return fmt.Errorf("initialize database: %w", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing database")
		}
	}()
	if err := db.SeedRegistry(ctx, &cfg.Registry); err != nil {
		return fmt.Errorf("seed registry: %w", err)
	}
	logging.Info().Str("path", cfg.Database.Path).Msg("Database initialized successfully")

	// Deferred calls run in reverse, so the broker outlives every client.
	srv, err := startBroker(cfg)
	if err != nil {
		return err
	}
	if srv != nil {
		defer closeWithTimeout("nats-server", cfg.Supervisor.ShutdownTimeout, srv.Shutdown)
	}

	logger := queue.NewLoggerAdapter("watermill")
	transport, err := newTransport(cfg, natsURL(cfg, srv), logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := transport.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing delivery transport")
		}
	}()

	pool := publisher.NewPool(publisherConfig(&cfg.Publisher))
	defer func() {
		if err := pool.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing publisher pool")
		}
	}()

	execOpts := []queue.ExecutorOption{queue.WithReporter(reporter)}
	dedupStore, err := openDedup(&cfg.Delivery.Dedup)
	if err != nil {
		return err
	}
	if dedupStore != nil {
		defer func() {
			if err := dedupStore.Close(); err != nil {
				logging.Error().Err(err).Msg("Error closing dedup store")
			}
		}()
		execOpts = append(execOpts, queue.WithDeduper(dedupStore))
	}

	hub := ws.NewHub()
	fwd := forwarder.New(forwarderConfig(&cfg.Forwarder), reporter)
	executor := queue.NewExecutor(fwd, db, pool, hub, execOpts...)

	q := queue.New(transport.Publisher, cfg.Delivery.Topic)
	coord := coordinator.New(db, q)

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.TreeConfigFrom(&cfg.Supervisor))
	if err != nil {
		return fmt.Errorf("create supervisor tree: %w", err)
	}

	if cfg.Prune.Enabled {
		p := pruner.New(db, pruner.WithNotifier(coord), pruner.WithReporter(reporter))
		scheduler, err := pruner.NewScheduler(p, pruner.SchedulerConfig{
			Schedule: cfg.Prune.Schedule,
			Timeout:  cfg.Prune.Timeout,
		})
		if err != nil {
			return fmt.Errorf("create retention scheduler: %w", err)
		}
		tree.AddDataService(scheduler)
		logging.Info().Str("schedule", cfg.Prune.Schedule).Msg("Retention pruning scheduled")
	}

	delivery := services.NewDeliveryRouterService(
		deliveryRouterFactory(&cfg.Delivery, transport, executor, q.Topic(), logger),
	)
	tree.AddMessagingService(delivery)
	tree.AddMessagingService(services.NewWebSocketHubService(hub))

	handler := api.NewHandler(&api.HandlerConfig{
		Store:      db,
		Dispatcher: coord,
		Delivery:   delivery,
		Reporter:   reporter,
		IngestKey:  cfg.API.IngestKey,
		Publisher:  publisherConfig(&cfg.Publisher),
	})
	if cfg.API.IngestKey == "" {
		logging.Warn().Msg("INGEST_API_KEY is empty; local ingestion is disabled")
	}

	mwCfg := api.DefaultChiMiddlewareConfig()
	mwCfg.CORSAllowedOrigins = cfg.Server.AllowedOrigins
	if cfg.API.RateLimitWindow > 0 {
		mwCfg.RateLimitRequests = cfg.API.RateLimitRequests
		mwCfg.RateLimitWindow = cfg.API.RateLimitWindow
	}
	router := api.NewRouter(handler, api.NewChiMiddleware(mwCfg), ws.NewHandler(hub, cfg.Server.AllowedOrigins))

	addr := net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port))
	tree.AddAPIService(services.NewHTTPServerService(
		services.NewServerFactory(addr, router.SetupChi(), cfg.Server.ReadTimeout, cfg.Server.WriteTimeout),
		cfg.Server.ShutdownTimeout,
	))
	logging.Info().Str("addr", addr).Str("transport", cfg.Delivery.Transport).Msg("Starting supervisor tree...")

	if err := <-tree.ServeBackground(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logging.Error().Err(err).Msg("Supervisor tree error")
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	for _, svc := range unstopped {
		logging.Warn().Str("service", svc.Name).Msg("Service failed to stop within timeout")
	}
	return nil
}
