package metrics

import (
	"context"
	"log/slog"
	"time"

	"github.com/angeloszaimis/endpoint-balancer/internal/endpoint"
)

type EventType string

const (
	EventQueryServed        EventType = "query_served"
	EventEndpointRegistered EventType = "endpoint_registered"
	EventStatusChanged      EventType = "status_changed"
	EventResponseCompleted  EventType = "response_completed"
)

type MetricEvent struct {
	Type       EventType
	Timestamp  time.Time
	Endpoints  []endpoint.Endpoint
	Endpoint   endpoint.Endpoint
	Previous   endpoint.Status
	Duration   time.Duration
	StatusCode int
}

type Collector struct {
	eventCh  chan MetricEvent
	metrics  *Metrics
	exporter *exporter
	logger   *slog.Logger
}

func NewCollector(bufferSize int, logger *slog.Logger) *Collector {
	return &Collector{
		eventCh:  make(chan MetricEvent, bufferSize),
		metrics:  NewMetrics(),
		exporter: newExporter(),
		logger:   logger,
	}
}

func (c *Collector) EventChannel() chan<- MetricEvent {
	return c.eventCh
}

// Emit queues event without blocking; the event is dropped when the buffer is
// full. A nil collector discards everything.
func (c *Collector) Emit(event MetricEvent) {
	if c == nil {
		return
	}

	select {
	case c.eventCh <- event:
	default:
		c.logger.Debug("Metrics buffer full, dropping event", slog.String("type", string(event.Type)))
	}
}

func (c *Collector) Start(ctx context.Context) {
	go c.run(ctx)
}

func (c *Collector) run(ctx context.Context) {
	c.logger.Info("Metrics collector started")
	defer c.logger.Info("Metrics collector stopped")

	for {
		select {
		case event := <-c.eventCh:
			c.processEvent(event)
		case <-ctx.Done():
			// Drain remaining events before shutdown
			c.drain()
			return
		}
	}
}

func (c *Collector) processEvent(event MetricEvent) {
	switch event.Type {
	case EventQueryServed:
		for _, e := range event.Endpoints {
			c.exporter.observeEndpoint(e)
		}
		c.exporter.observeQuery(event.Duration)
		c.metrics.ObserveEndpoints(event.Endpoints)
		c.metrics.RecordQuery(event.Duration)

	case EventEndpointRegistered:
		c.exporter.observeEndpoint(event.Endpoint)
		c.exporter.registrations.Inc()
		c.metrics.RecordRegistration(event.Endpoint)

	case EventStatusChanged:
		c.exporter.observeTransition(event.Previous, event.Endpoint.Status)
		c.metrics.RecordTransition(event.Endpoint.ID)

	case EventResponseCompleted:
		c.exporter.observeResponse(event.StatusCode)
		c.metrics.RecordStatusCode(event.StatusCode)
	}
}

func (c *Collector) drain() {
	for {
		select {
		case event := <-c.eventCh:
			c.processEvent(event)
		default:
			return
		}
	}
}

func (c *Collector) Snapshot() Snapshot {
	return c.metrics.Snapshot()
}
