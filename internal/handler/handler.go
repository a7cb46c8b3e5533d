package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/angeloszaimis/endpoint-balancer/internal/endpoint"
	"github.com/angeloszaimis/endpoint-balancer/internal/metrics"
	"github.com/angeloszaimis/endpoint-balancer/internal/service"
)

const (
	MsgEndpointAdded = "Endpoint added successfully"

	maxBodyBytes = 1 << 20
)

// EndpointService is the part of service.Service the HTTP layer depends on.
type EndpointService interface {
	Query(ctx context.Context) (service.Snapshot, error)
	Register(ctx context.Context, req service.RegisterRequest) (endpoint.Endpoint, error)
}

type EndpointHandler struct {
	logger           *slog.Logger
	service          EndpointService
	metricsCollector *metrics.Collector
}

type RegisterResponse struct {
	Endpoint endpoint.Endpoint `json:"endpoint"`
	Message  string            `json:"message"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func NewEndpointHandler(logger *slog.Logger, svc EndpointService, collector *metrics.Collector) *EndpointHandler {
	return &EndpointHandler{
		logger:           logger,
		service:          svc,
		metricsCollector: collector,
	}
}

// List samples the fleet and returns the resulting snapshot.
func (h *EndpointHandler) List(w http.ResponseWriter, r *http.Request) {
	snap, err := h.service.Query(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusOK, snap)
}

// Register adds an endpoint from a {name, url} JSON body.
func (h *EndpointHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req service.RegisterRequest

	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		h.writeError(w, r, &service.ValidationError{Message: service.MsgInvalidBody, Err: err})
		return
	}

	created, err := h.service.Register(r.Context(), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusOK, RegisterResponse{
		Endpoint: created,
		Message:  MsgEndpointAdded,
	})
}

// Instrument logs each request and reports its response status.
func (h *EndpointHandler) Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		wrapped := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapped, r)

		duration := time.Since(start)

		h.logger.Info("Handled request",
			slog.String("from", extractClientIP(r)),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", wrapped.statusCode),
			slog.Duration("duration", duration),
			slog.String("user_agent", r.UserAgent()))

		h.metricsCollector.Emit(metrics.MetricEvent{
			Type:       metrics.EventResponseCompleted,
			Timestamp:  time.Now(),
			Duration:   duration,
			StatusCode: wrapped.statusCode,
		})
	})
}

func (h *EndpointHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, message := service.HTTPStatus(err)

	if status >= http.StatusInternalServerError {
		h.logger.Error("Request failed",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Any("err", err))
	} else {
		h.logger.Warn("Rejected request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Any("err", err))
	}

	h.writeJSON(w, status, ErrorResponse{Error: message})
}

func (h *EndpointHandler) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.Error("Failed to encode response", slog.Any("err", err))
	}
}

func extractClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		return strings.TrimSpace(strings.Split(xff, ",")[0])
	}

	host, _, _ := net.SplitHostPort(r.RemoteAddr)
	return host
}

func (r *statusRecorder) WriteHeader(code int) {
	r.statusCode = code
	r.ResponseWriter.WriteHeader(code)
}
