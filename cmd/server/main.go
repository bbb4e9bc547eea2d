// Package main provides the entry point for the editorial service HTTP server.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/openjournal/editorial-service/internal/audit"
	"github.com/openjournal/editorial-service/internal/auth"
	"github.com/openjournal/editorial-service/internal/cache"
	"github.com/openjournal/editorial-service/internal/config"
	"github.com/openjournal/editorial-service/internal/database"
	"github.com/openjournal/editorial-service/internal/notify"
	"github.com/openjournal/editorial-service/internal/observability"
	"github.com/openjournal/editorial-service/internal/server"
	"github.com/openjournal/editorial-service/internal/workflow"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// Set up structured logging.
	logger := observability.NewLogger(observability.LoggingConfig{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		Output:     cfg.Logging.Output,
		AddSource:  cfg.Logging.AddSource,
		TimeFormat: cfg.Logging.TimeFormat,
	})
	logger = logger.With().Str("component", "server").Logger()
	logger.Info().Msg("editorial-service server starting")

	// Set up context with graceful shutdown via OS signals.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Connect to PostgreSQL.
	db, err := database.New(ctx, &cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()
	logger.Info().Msg("database connection established")

	// Run migrations if configured.
	if cfg.Database.MigrationAutoRun {
		migrator, err := database.NewMigrator(db, cfg.Database.MigrationPath, logger)
		if err != nil {
			return fmt.Errorf("create migrator: %w", err)
		}
		defer func() {
			if closeErr := migrator.Close(); closeErr != nil {
				logger.Error().Err(closeErr).Msg("failed to close migrator")
			}
		}()

		if err := migrator.Up(); err != nil {
			return fmt.Errorf("run migrations: %w", err)
		}
	}

	metrics := observability.NewMetrics("editorial")
	store := workflow.NewStore(db)

	// Redis-backed workload cache. When disabled, loads are computed from
	// the database on every call.
	var loadCache workflow.LoadCache
	if cfg.Redis.Enabled {
		redisClient := cache.NewRedisClient(cfg.Redis)
		defer redisClient.Close()
		loadCache = cache.NewWorkloadCache(redisClient, cfg.Redis.TTL)
		logger.Info().Str("address", cfg.Redis.Address).Msg("workload cache enabled")
	}

	// Email notifications. When mail is disabled, notifications are dropped.
	var notifier workflow.Notifier = workflow.NopNotifier{}
	if cfg.Mail.Enabled {
		resolver := notify.DomainResolver{Domain: mailDomain(cfg.Mail.From)}
		notifier = notify.NewMailer(cfg.Mail, resolver, metrics, logger)
		logger.Info().Str("host", cfg.Mail.Host).Msg("mail notifications enabled")
	}

	opts := workflow.Options{
		Notifier: notifier,
		Audit:    audit.NewLogRecorder(logger),
		Metrics:  metrics,
		Logger:   logger,
	}

	repos := store.Repos()
	engine := workflow.NewEngine(store, opts)
	tracker := workflow.NewTracker(repos.Assignments, repos.Reviewers, loadCache, metrics, logger)
	reviewSvc := workflow.NewReviewService(store, tracker, workflow.ReviewServiceConfig{
		ReviewDuration:       cfg.Deadlines.ReviewDuration,
		DefaultMaxConcurrent: cfg.Reviews.DefaultMaxConcurrent,
	}, opts)
	matcher := workflow.NewMatcher(repos.Reviewers, tracker, workflow.MatcherConfig{
		Limit:                cfg.Reviews.SuggestionLimit,
		DefaultMaxConcurrent: cfg.Reviews.DefaultMaxConcurrent,
	}, metrics, logger)
	monitor := workflow.NewMonitor(store, db, opts)

	// JWT bearer authentication for the API surface.
	tokenManager := auth.NewTokenManager(cfg.Auth)
	authMiddleware := auth.Middleware(tokenManager)

	httpCfg := server.Config{
		Address:         cfg.Server.HTTPAddress(),
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		IdleTimeout:     2 * time.Minute,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	}
	httpSrv := server.NewServer(httpCfg, engine, reviewSvc, matcher, monitor, db, logger, authMiddleware)

	// Set up Prometheus metrics handler on a separate port if configured.
	var metricsServer *http.Server
	if cfg.Metrics.Enabled {
		metricsMux := http.NewServeMux()
		metricsMux.Handle(cfg.Metrics.Path, promhttp.Handler())
		metricsServer = &http.Server{
			Addr:         cfg.Server.MetricsAddress(),
			Handler:      metricsMux,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
		}
	}

	// Channel to collect server errors.
	errCh := make(chan error, 2)

	go func() {
		logger.Info().Str("address", httpCfg.Address).Msg("HTTP server starting")
		if err := httpSrv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	if metricsServer != nil {
		go func() {
			logger.Info().Str("address", metricsServer.Addr).Msg("metrics server starting")
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- fmt.Errorf("metrics server error: %w", err)
			}
		}()
	}

	readyLog := logger.Info().Str("http_address", httpCfg.Address)
	if metricsServer != nil {
		readyLog = readyLog.Str("metrics_address", metricsServer.Addr)
	}
	readyLog.Msg("editorial-service is ready")

	// Wait for shutdown signal or server error.
	select {
	case <-ctx.Done():
		logger.Info().Msg("received shutdown signal")
	case err := <-errCh:
		logger.Error().Err(err).Msg("server error")
		return err
	}

	// Graceful shutdown.
	logger.Info().Msg("shutting down editorial-service")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("HTTP server shutdown error")
	}

	if metricsServer != nil {
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("metrics server shutdown error")
		}
	}

	logger.Info().Msg("editorial-service shutdown complete")
	return nil
}

// mailDomain extracts the domain part of the configured sender address for
// user ID to email resolution.
func mailDomain(from string) string {
	if i := strings.LastIndex(from, "@"); i >= 0 {
		return from[i+1:]
	}
	return from
}
