package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/angeloszaimis/endpoint-balancer/config"
	"github.com/angeloszaimis/endpoint-balancer/internal/handler"
	"github.com/angeloszaimis/endpoint-balancer/internal/healthcheck"
	"github.com/angeloszaimis/endpoint-balancer/internal/httpserver"
	"github.com/angeloszaimis/endpoint-balancer/internal/metrics"
	"github.com/angeloszaimis/endpoint-balancer/internal/registry"
	"github.com/angeloszaimis/endpoint-balancer/internal/service"
	"github.com/angeloszaimis/endpoint-balancer/internal/strategy"
	"github.com/angeloszaimis/endpoint-balancer/pkg/logger"
)

const version = "1.0.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.Any("err", err))
		os.Exit(1)
	}

	log := logger.New(cfg.Logging.Level, cfg.Logging.AddSource, cfg.Server.Environment)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	collector := metrics.NewCollector(cfg.Metrics.BufferSize, log)
	collector.Start(ctx)

	svc, err := initializeService(cfg, log, collector)
	if err != nil {
		log.Error("Failed to initialize endpoint service", slog.Any("err", err))
		os.Exit(1)
	}

	go healthcheck.Run(ctx, svc, cfg.HealthCheckInterval(), log)

	endpointHandler := handler.NewEndpointHandler(log, svc, collector)
	healthHandler := handler.NewHealthHandler(log, version, cfg.Server.Environment)

	router := setupRouter(log, endpointHandler, healthHandler, collector, cfg.RateLimit)

	timeouts := httpserver.Timeouts{
		Read:  config.Duration(cfg.Server.ReadTimeout),
		Write: config.Duration(cfg.Server.WriteTimeout),
		Idle:  config.Duration(cfg.Server.IdleTimeout),
	}

	srv, err := httpserver.New(cfg.Server.Address, router, timeouts, log)
	if err != nil {
		log.Error("Failed to create server", slog.Any("err", err))
		os.Exit(1)
	}

	srvErrCh := make(chan error, 1)

	go func() {
		srvErrCh <- srv.Start()
	}()

	select {
	case <-ctx.Done():
		log.Info("Shutting down gracefully...")
		if err := srv.Shutdown(context.Background()); err != nil {
			log.Error("Error during shutdown", slog.Any("err", err))
		}
	case err := <-srvErrCh:
		if err != nil {
			log.Error("Error starting endpoint service", slog.Any("err", err))
			os.Exit(1)
		}
	}
}

func initializeService(cfg *config.Config, log *slog.Logger, collector *metrics.Collector) (*service.Service, error) {
	reg, err := registry.New(cfg.SeedEndpoints(time.Now()), registry.UUIDGenerator)
	if err != nil {
		return nil, err
	}

	seed := cfg.Sampler.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}

	log.Info("Endpoint registry initialized",
		slog.Int("endpoints", reg.Len()),
		slog.Uint64("sampler_seed", seed))

	sampler := healthcheck.NewSampler(healthcheck.NewSeededSource(seed))

	return service.New(log, reg, sampler, strategy.NewTieredStrategy(), service.WithCollector(collector)), nil
}
