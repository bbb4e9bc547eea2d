// Package main provides the entry point for the editorial service background
// worker: the Temporal deadline sweep worker and the outbox publisher.
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

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/openjournal/editorial-service/internal/audit"
	"github.com/openjournal/editorial-service/internal/config"
	"github.com/openjournal/editorial-service/internal/database"
	"github.com/openjournal/editorial-service/internal/notify"
	"github.com/openjournal/editorial-service/internal/observability"
	"github.com/openjournal/editorial-service/internal/outbox"
	"github.com/openjournal/editorial-service/internal/temporal"
	"github.com/openjournal/editorial-service/internal/temporal/activities"
	"github.com/openjournal/editorial-service/internal/temporal/workflows"
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
	logger = logger.With().Str("component", "worker").Logger()
	logger.Info().Msg("editorial-service worker starting")

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

	metrics := observability.NewMetrics("editorial_worker")
	store := workflow.NewStore(db)

	// The sweep notifies assignees of lapsed deadlines, so the worker
	// carries the same mail wiring as the server.
	var notifier workflow.Notifier = workflow.NopNotifier{}
	if cfg.Mail.Enabled {
		resolver := notify.DomainResolver{Domain: mailDomain(cfg.Mail.From)}
		notifier = notify.NewMailer(cfg.Mail, resolver, metrics, logger)
		logger.Info().Str("host", cfg.Mail.Host).Msg("mail notifications enabled")
	}

	monitor := workflow.NewMonitor(store, db, workflow.Options{
		Notifier: notifier,
		Audit:    audit.NewLogRecorder(logger),
		Metrics:  metrics,
		Logger:   logger,
	})

	// Connect to Temporal.
	temporalClient, err := temporal.NewClient(temporal.ClientConfig{
		HostPort:  cfg.Temporal.HostPort,
		Namespace: cfg.Temporal.Namespace,
		TaskQueue: cfg.Temporal.TaskQueue,
		Logger:    observability.NewTemporalLogger(logger),
	})
	if err != nil {
		return fmt.Errorf("connect to temporal: %w", err)
	}
	sweepClient := temporal.NewSweepWorkflowClient(temporalClient, cfg.Temporal.TaskQueue)
	defer sweepClient.Close()
	logger.Info().
		Str("host_port", cfg.Temporal.HostPort).
		Str("namespace", cfg.Temporal.Namespace).
		Msg("temporal client connected")

	// Register the sweep workflow and its activities.
	w := temporal.NewWorker(temporalClient, temporal.DefaultWorkerConfig(cfg.Temporal.TaskQueue))
	w.RegisterWorkflow(workflows.DeadlineSweepWorkflow)
	w.RegisterActivity(activities.NewSweepActivities(monitor, logger))

	// Set up Prometheus metrics handler if configured.
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

	errCh := make(chan error, 3)

	go func() {
		logger.Info().Str("task_queue", cfg.Temporal.TaskQueue).Msg("temporal worker starting")
		if err := temporal.StartWorker(ctx, w); err != nil && !errors.Is(err, context.Canceled) {
			errCh <- fmt.Errorf("temporal worker error: %w", err)
		}
	}()

	// Drain the outbox to Kafka if publishing is enabled.
	if cfg.Kafka.Enabled {
		writer := outbox.NewKafkaWriter(cfg.Kafka)
		defer func() {
			if closeErr := writer.Close(); closeErr != nil {
				logger.Error().Err(closeErr).Msg("failed to close kafka writer")
			}
		}()

		publisher := outbox.NewPublisher(store, writer, outbox.Config{
			PollInterval: cfg.Outbox.PollInterval,
			BatchSize:    cfg.Outbox.BatchSize,
			MaxRetries:   cfg.Outbox.MaxRetries,
		}, metrics, logger)

		go func() {
			logger.Info().
				Strs("brokers", cfg.Kafka.Brokers).
				Str("topic", cfg.Kafka.Topic).
				Msg("outbox publisher starting")
			if err := publisher.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				errCh <- fmt.Errorf("outbox publisher error: %w", err)
			}
		}()
	}

	if metricsServer != nil {
		go func() {
			logger.Info().Str("address", metricsServer.Addr).Msg("metrics server starting")
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- fmt.Errorf("metrics server error: %w", err)
			}
		}()
	}

	// Ensure the singleton deadline sweep loop is running. An instance
	// already started by another worker is fine.
	workflowID, runID, err := sweepClient.EnsureSweepWorkflow(ctx, workflows.DeadlineSweepWorkflow, temporal.SweepWorkflowInput{
		Interval: cfg.Deadlines.SweepInterval,
	})
	if err != nil {
		return fmt.Errorf("start sweep workflow: %w", err)
	}
	logger.Info().
		Str("workflow_id", workflowID).
		Str("run_id", runID).
		Msg("deadline sweep workflow running")

	logger.Info().Msg("editorial-service worker is ready")

	// Wait for shutdown signal or component error.
	select {
	case <-ctx.Done():
		logger.Info().Msg("received shutdown signal")
	case err := <-errCh:
		logger.Error().Err(err).Msg("worker error")
		return err
	}

	logger.Info().Msg("shutting down editorial-service worker")

	if metricsServer != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer shutdownCancel()
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("metrics server shutdown error")
		}
	}

	logger.Info().Msg("editorial-service worker shutdown complete")
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
