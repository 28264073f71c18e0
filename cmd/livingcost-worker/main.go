package main

import (
	"context"
	"errors"
	"os"

	"livingcost/internal/amqp"
	"livingcost/internal/backend"
	"livingcost/internal/cli"
	"livingcost/internal/log"
	"livingcost/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(log.ComponentWorker, os.Getenv("LOG_LEVEL"))
	cfg := cli.LoadAndValidateConfig(logger)

	logger.Info("Starting livingcost-worker", log.FieldSource, cfg.RefreshSource, "schedule", cfg.RefreshSchedule)

	ctx, cancel := cli.SignalContext(logger)
	defer cancel()

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err)
		os.Exit(1)
	}
	source, cleanup, err := backend.NewFactory(logger.WithComponent(log.ComponentBackend).Slog()).CreateReader(ctx, backend.SourceType(cfg.RefreshSource), backendCfg)
	if err != nil {
		logger.Error("Failed to initialize refresh source", log.FieldError, err, log.FieldSource, cfg.RefreshSource)
		os.Exit(1)
	}
	if cleanup != nil {
		defer cleanup()
	}

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	var publisher worker.Publisher
	if cfg.AMQPURL != "" {
		amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, logger.WithComponent(log.ComponentAMQP).Slog())
		if err != nil {
			logger.Warn("AMQP unavailable, refresh events disabled", log.FieldError, err)
		} else {
			defer amqpClient.Close()
			publisher = amqpClient
		}
	}

	w := worker.NewRefreshWorker(source, repo, publisher, logger, worker.Options{
		MinRows:   cfg.RefreshMinRows,
		Retention: cfg.SnapshotRetention,
		Schedule:  cfg.RefreshSchedule,
	})
	if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Refresh worker stopped", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Worker shutdown complete")
}
