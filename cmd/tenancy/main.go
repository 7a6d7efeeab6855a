package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"github.com/platinummonkey/tenancy/pkg/api"
	"github.com/platinummonkey/tenancy/pkg/config"
	"github.com/platinummonkey/tenancy/pkg/janitor"
	"github.com/platinummonkey/tenancy/pkg/observability"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(observability.ParseLogLevel(cfg.Observability.LogLevel), os.Stdout)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.WithError(err).Error("tenancy exited with error")
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *observability.Logger) error {
	ctx = observability.WithLogger(ctx, logger)
	shutdown := observability.NewShutdownManager(logger, cfg.Server.ShutdownTimeout)
	defer func() {
		if err := shutdown.Shutdown(context.Background()); err != nil {
			logger.WithError(err).Error("shutdown finished with errors")
		}
	}()

	providers, err := observability.InitOTel(ctx, cfg.Observability.OTel(), logger)
	if err != nil {
		return err
	}
	shutdown.Register("otel", func(ctx context.Context) error {
		return observability.ShutdownOTel(ctx, providers, logger)
	})

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := observability.NewMetrics(registry)

	deps, err := openDependencies(ctx, cfg, logger, metrics, shutdown)
	if err != nil {
		return err
	}
	services := buildServices(deps, metrics)

	health := observability.NewHealthChecker(cfg.Observability.OTelServiceVersion)
	health.Require("database", deps.db.HealthCheck)
	if deps.redis != nil {
		health.Optional("redis", deps.redis.Ping)
	}
	if deps.images != nil {
		health.Optional("s3", deps.images.HealthCheck)
	}

	apiServer := api.NewServer(services, api.Options{
		Tokens:       deps.tokens,
		Limiter:      deps.limiter,
		Metrics:      metrics,
		Health:       health,
		Logger:       logger,
		CORSOrigins:  cfg.Server.CORSOrigins,
		MaxBodyBytes: cfg.Server.MaxBodyBytes,
	})

	httpServer := &http.Server{
		Addr:         net.JoinHostPort(cfg.Server.Host, cfg.Server.Port),
		Handler:      apiServer,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
		BaseContext:  func(net.Listener) context.Context { return ctx },
	}
	shutdown.Register("http", httpServer.Shutdown)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Infof("API listening on %s", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("API server: %w", err)
		}
		return nil
	})

	if cfg.Observability.MetricsEnabled && cfg.Server.HealthPort != "" {
		opsServer := &http.Server{
			Addr:              net.JoinHostPort(cfg.Server.Host, cfg.Server.HealthPort),
			Handler:           opsMux(registry, health),
			ReadHeaderTimeout: 5 * time.Second,
		}
		shutdown.Register("metrics", opsServer.Shutdown)
		g.Go(func() error {
			logger.Infof("metrics listening on %s", opsServer.Addr)
			if err := opsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			return recordDBStats(gctx, deps, metrics)
		})
	}

	if cfg.Janitor.Enabled {
		j := janitor.New(deps.repos.Relations, cfg.Janitor.PendingTTL, metrics, logger.WithField("component", "janitor"))
		g.Go(func() error {
			return j.Run(gctx, cfg.Janitor.Schedule)
		})
	}

	// the first failing listener cancels gctx; close everything from here
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		return shutdown.Shutdown(context.Background())
	})

	return g.Wait()
}

func opsMux(registry *prometheus.Registry, health *observability.HealthChecker) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", observability.MetricsHandler(registry))
	mux.HandleFunc("/health/live", health.Liveness)
	mux.HandleFunc("/health/ready", health.Readiness)
	return mux
}

func recordDBStats(ctx context.Context, deps *dependencies, metrics *observability.Metrics) error {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			metrics.RecordDBStats(deps.db.Stats())
		}
	}
}
