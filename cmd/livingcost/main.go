package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"livingcost/internal/amqp"
	"livingcost/internal/backend"
	"livingcost/internal/basket"
	"livingcost/internal/cache"
	"livingcost/internal/cli"
	apphttp "livingcost/internal/http"
	"livingcost/internal/log"
	"livingcost/internal/prices"
	"livingcost/internal/services"
)

const cacheCleanupInterval = 5 * time.Minute

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(log.ComponentApp, os.Getenv("LOG_LEVEL"))
	cfg := cli.LoadAndValidateConfig(logger)

	ctx, cancel := cli.SignalContext(logger)
	defer cancel()

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err)
		os.Exit(1)
	}
	be, err := backend.NewFactory(logger.WithComponent(log.ComponentBackend).Slog()).CreateBackend(ctx, backendCfg)
	if err != nil {
		logger.Error("Failed to initialize price backend", log.FieldError, err, log.FieldSource, cfg.PriceSource)
		os.Exit(1)
	}
	defer func() {
		if err := be.Cleanup(); err != nil {
			logger.Error("Backend cleanup failed", log.FieldError, err)
		}
	}()

	resolver := prices.NewResolver(be.Source, be.Fallback, be.Cache, logger.WithComponent(log.ComponentPrices).Slog())
	baskets := basket.NewProvider(cfg.BaseBasketPath)
	if _, err := baskets.Basket(); err != nil {
		logger.Error("Failed to load base basket", log.FieldError, err, "path", cfg.BaseBasketPath)
		os.Exit(1)
	}
	svc := services.NewEstimateService(resolver, baskets, logger)

	readyChecks := make(map[string]apphttp.ReadyCheck, len(be.ReadyChecks))
	for name, check := range be.ReadyChecks {
		readyChecks[name] = apphttp.ReadyCheck(check)
	}

	srv, err := apphttp.NewServer(apphttp.Options{
		Addr:               ":" + cfg.Port,
		Estimator:          svc,
		Locations:          resolver,
		Logger:             logger,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		ReadyChecks:        readyChecks,
	})
	if err != nil {
		logger.Error("Failed to configure HTTP server", log.FieldError, err)
		os.Exit(1)
	}
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 10 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16
	srv.BaseContext = func(net.Listener) context.Context { return ctx }

	cleanup := cache.NewManager(logger.WithComponent(log.ComponentCache).Slog())
	if be.Cleaner != nil {
		cleanup.Register(be.Cleaner)
	}
	cleanup.Register(srv.RateLimiter())

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("Starting livingcost server", "port", cfg.Port, log.FieldSource, cfg.PriceSource, "cache", cfg.CacheBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, shutdownCancel := cli.ShutdownContext(30 * time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
		return nil
	})

	g.Go(func() error {
		if err := cleanup.Run(gctx, cacheCleanupInterval); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})

	if cfg.AMQPURL != "" {
		amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, logger.WithComponent(log.ComponentAMQP).Slog())
		if err != nil {
			// Without events the cached table still expires after PRICE_TABLE_TTL.
			logger.Warn("AMQP unavailable, refresh events disabled", log.FieldError, err)
		} else {
			defer amqpClient.Close()
			amqpClient.OnReconnect(func(ctx context.Context) {
				resolver.Invalidate(ctx)
				logger.InfoContext(ctx, "Price table invalidated after refresh consumer reconnect")
			})
			g.Go(func() error {
				err := amqpClient.ConsumePriceRefresh(gctx, func(ctx context.Context, msg *amqp.PriceTableRefreshedMessage) error {
					resolver.Invalidate(ctx)
					logger.InfoContext(ctx, "Price table invalidated by refresh event",
						log.FieldSnapshotID, msg.SnapshotID, log.FieldSource, msg.Source, log.FieldEntries, msg.Entries)
					return nil
				})
				if err != nil && !errors.Is(err, context.Canceled) {
					logger.Error("Refresh event consumption stopped", log.FieldError, err)
				}
				return nil
			})
		}
	}

	if err := g.Wait(); err != nil {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}
