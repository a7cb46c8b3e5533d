package main

import (
	"log/slog"
	"net/http"

	"github.com/angeloszaimis/endpoint-balancer/config"
	"github.com/angeloszaimis/endpoint-balancer/internal/handler"
	"github.com/angeloszaimis/endpoint-balancer/internal/httpserver"
	"github.com/angeloszaimis/endpoint-balancer/internal/metrics"
)

func setupRouter(
	log *slog.Logger,
	endpointHandler *handler.EndpointHandler,
	healthHandler *handler.HealthHandler,
	metricsCollector *metrics.Collector,
	rateLimit config.RateLimitConfig,
) http.Handler {
	mux := http.NewServeMux()

	register := httpserver.Chain(http.HandlerFunc(endpointHandler.Register),
		httpserver.RateLimit(rateLimit.RequestsPerSecond, rateLimit.Burst))

	mux.HandleFunc("GET /api/endpoints", endpointHandler.List)
	mux.Handle("POST /api/endpoints", register)
	mux.Handle("GET /api/health", healthHandler)
	mux.HandleFunc("GET /metrics", metricsCollector.Handler())
	mux.Handle("GET /metrics/prometheus", metricsCollector.PrometheusHandler())

	return httpserver.Chain(mux, endpointHandler.Instrument, httpserver.Recover(log))
}
