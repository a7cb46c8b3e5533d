package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/angeloszaimis/endpoint-balancer/internal/endpoint"
	"github.com/angeloszaimis/endpoint-balancer/internal/healthcheck"
	"github.com/angeloszaimis/endpoint-balancer/internal/metrics"
	"github.com/angeloszaimis/endpoint-balancer/internal/registry"
	"github.com/angeloszaimis/endpoint-balancer/internal/strategy"
)

// Snapshot is the result of a query: the full fleet after one sampling and
// redistribution pass plus aggregate figures.
type Snapshot struct {
	Endpoints           []endpoint.Endpoint `json:"endpoints"`
	Timestamp           time.Time           `json:"timestamp"`
	TotalLoad           int                 `json:"totalLoad"`
	AverageResponseTime int                 `json:"averageResponseTime"`
}

type RegisterRequest struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

func (r RegisterRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required),
		validation.Field(&r.URL, validation.Required),
	)
}

type Service struct {
	logger    *slog.Logger
	registry  *registry.Registry
	sampler   *healthcheck.Sampler
	strategy  strategy.Strategy
	collector *metrics.Collector
	now       func() time.Time
}

type Option func(*Service)

// WithClock replaces time.Now as the source of check and response timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// WithCollector reports queries, registrations and tier changes to collector.
func WithCollector(collector *metrics.Collector) Option {
	return func(s *Service) {
		s.collector = collector
	}
}

func New(
	logger *slog.Logger,
	reg *registry.Registry,
	sampler *healthcheck.Sampler,
	strat strategy.Strategy,
	opts ...Option,
) *Service {
	s := &Service{
		logger:   logger,
		registry: reg,
		sampler:  sampler,
		strategy: strat,
		now:      time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Query runs one sampling and redistribution pass over the registry and
// returns the stored result.
func (s *Service) Query(ctx context.Context) (Snapshot, error) {
	start := s.now()

	updated, err := s.cycle(ctx)
	if err != nil {
		return Snapshot{}, &InternalError{Message: MsgQueryFailed, Err: err}
	}

	snap := Snapshot{
		Endpoints:           updated,
		Timestamp:           s.now().UTC(),
		TotalLoad:           endpoint.TotalLoad(updated),
		AverageResponseTime: endpoint.AverageResponseTime(updated),
	}

	s.collector.Emit(metrics.MetricEvent{
		Type:      metrics.EventQueryServed,
		Timestamp: snap.Timestamp,
		Endpoints: updated,
		Duration:  s.now().Sub(start),
	})

	return snap, nil
}

// Refresh runs the same pass as Query without building a response.
func (s *Service) Refresh(ctx context.Context) error {
	if _, err := s.cycle(ctx); err != nil {
		return &InternalError{Message: MsgQueryFailed, Err: err}
	}
	return nil
}

// Register appends a new endpoint with default health fields. It does not
// trigger sampling.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (endpoint.Endpoint, error) {
	if err := req.Validate(); err != nil {
		return endpoint.Endpoint{}, &ValidationError{Message: MsgNameAndURLRequired, Err: err}
	}

	created, err := s.registry.Register(func(id string) endpoint.Endpoint {
		return endpoint.New(id, req.Name, req.URL, s.now())
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to register endpoint",
			slog.String("name", req.Name),
			slog.String("url", req.URL),
			slog.Any("err", err))
		return endpoint.Endpoint{}, &InternalError{Message: MsgRegisterFailed, Err: err}
	}

	s.logger.InfoContext(ctx, "Endpoint registered",
		slog.String("id", created.ID),
		slog.String("name", created.Name),
		slog.String("url", created.URL))

	s.collector.Emit(metrics.MetricEvent{
		Type:      metrics.EventEndpointRegistered,
		Timestamp: created.LastChecked,
		Endpoint:  created,
	})

	return created, nil
}

type transition struct {
	from endpoint.Status
	to   endpoint.Endpoint
}

func (s *Service) cycle(ctx context.Context) ([]endpoint.Endpoint, error) {
	var changes []transition

	updated, err := s.registry.Update(func(current []endpoint.Endpoint) ([]endpoint.Endpoint, error) {
		sampled := s.sampler.Sample(current, s.now())
		next := s.strategy.Redistribute(sampled)

		if len(next) != len(current) {
			return nil, fmt.Errorf("redistribution returned %d endpoints, want %d", len(next), len(current))
		}

		changes = changes[:0]
		for i := range next {
			if next[i].Status != current[i].Status {
				changes = append(changes, transition{from: current[i].Status, to: next[i]})
			}
		}

		return next, nil
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "Health sampling pass failed", slog.Any("err", err))
		return nil, err
	}

	for _, c := range changes {
		s.logStatusChange(ctx, c)
		s.collector.Emit(metrics.MetricEvent{
			Type:      metrics.EventStatusChanged,
			Timestamp: c.to.LastChecked,
			Endpoint:  c.to,
			Previous:  c.from,
		})
	}

	return updated, nil
}

func (s *Service) logStatusChange(ctx context.Context, c transition) {
	attrs := []any{
		slog.String("id", c.to.ID),
		slog.String("name", c.to.Name),
		slog.String("from", c.from.String()),
		slog.String("to", c.to.Status.String()),
		slog.Int("response_time_ms", c.to.ResponseTime),
	}

	if severity(c.to.Status) > severity(c.from) {
		s.logger.WarnContext(ctx, "Endpoint degraded", attrs...)
		return
	}

	s.logger.InfoContext(ctx, "Endpoint recovered", attrs...)
}

func severity(status endpoint.Status) int {
	switch status {
	case endpoint.StatusWarning:
		return 1
	case endpoint.StatusError:
		return 2
	default:
		return 0
	}
}
