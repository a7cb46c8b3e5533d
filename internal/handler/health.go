package handler

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

const statusHealthy = "healthy"

type HealthResponse struct {
	Status       string            `json:"status"`
	Timestamp    time.Time         `json:"timestamp"`
	Uptime       float64           `json:"uptime"`
	ResponseTime string            `json:"responseTime"`
	Version      string            `json:"version"`
	Environment  string            `json:"environment"`
	Checks       map[string]string `json:"checks"`
}

// HealthHandler reports process liveness. It never touches the endpoint
// registry.
type HealthHandler struct {
	logger      *slog.Logger
	version     string
	environment string
	startTime   time.Time
}

func NewHealthHandler(logger *slog.Logger, version, environment string) *HealthHandler {
	return &HealthHandler{
		logger:      logger,
		version:     version,
		environment: environment,
		startTime:   time.Now(),
	}
}

func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	resp := HealthResponse{
		Status:      statusHealthy,
		Timestamp:   start.UTC(),
		Uptime:      time.Since(h.startTime).Seconds(),
		Version:     h.version,
		Environment: h.environment,
		Checks: map[string]string{
			"database":         statusHealthy,
			"cache":            statusHealthy,
			"externalServices": statusHealthy,
			"memory":           statusHealthy,
		},
	}
	resp.ResponseTime = fmt.Sprintf("%dms", time.Since(start).Milliseconds())

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		h.logger.Error("Failed to encode health response", slog.Any("err", err))
	}
}
