package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angeloszaimis/endpoint-balancer/internal/endpoint"
)

const namespace = "endpoint_balancer"

// exporter mirrors collected events into a private Prometheus registry.
type exporter struct {
	registry      *prometheus.Registry
	load          *prometheus.GaugeVec
	responseTime  *prometheus.GaugeVec
	queries       prometheus.Counter
	queryDuration prometheus.Histogram
	registrations prometheus.Counter
	transitions   *prometheus.CounterVec
	responses     *prometheus.CounterVec
}

func newExporter() *exporter {
	e := &exporter{
		registry: prometheus.NewRegistry(),
		load: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "endpoint_load_percent",
			Help:      "Load share currently assigned to an endpoint.",
		}, []string{"id", "name"}),
		responseTime: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "endpoint_response_time_milliseconds",
			Help:      "Most recently sampled endpoint response time.",
		}, []string{"id", "name"}),
		queries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "queries_total",
			Help:      "Snapshot queries served.",
		}),
		queryDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "query_duration_seconds",
			Help:      "Time spent sampling and redistributing per query.",
			Buckets:   prometheus.ExponentialBuckets(0.00001, 4, 8),
		}),
		registrations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "registrations_total",
			Help:      "Endpoints registered at runtime.",
		}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "status_transitions_total",
			Help:      "Endpoint health tier changes.",
		}, []string{"from", "to"}),
		responses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_responses_total",
			Help:      "API responses by status code.",
		}, []string{"code"}),
	}

	e.registry.MustRegister(
		e.load,
		e.responseTime,
		e.queries,
		e.queryDuration,
		e.registrations,
		e.transitions,
		e.responses,
	)

	return e
}

func (e *exporter) observeEndpoint(ep endpoint.Endpoint) {
	e.load.WithLabelValues(ep.ID, ep.Name).Set(float64(ep.Load))
	e.responseTime.WithLabelValues(ep.ID, ep.Name).Set(float64(ep.ResponseTime))
}

func (e *exporter) observeQuery(d time.Duration) {
	e.queries.Inc()
	e.queryDuration.Observe(d.Seconds())
}

func (e *exporter) observeTransition(from, to endpoint.Status) {
	e.transitions.WithLabelValues(from.String(), to.String()).Inc()
}

func (e *exporter) observeResponse(code int) {
	e.responses.WithLabelValues(strconv.Itoa(code)).Inc()
}

func (e *exporter) handler() http.Handler {
	return promhttp.HandlerFor(e.registry, promhttp.HandlerOpts{})
}
