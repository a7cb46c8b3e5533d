// Package metrics collects operational metrics for the endpoint service.
//
// Events are pushed onto a buffered channel and processed by a dedicated
// goroutine, so the request path never blocks on bookkeeping. The collector
// tracks:
//   - Snapshot queries and their latency percentiles (P50, P95, P99)
//   - Runtime endpoint registrations
//   - Per-endpoint load, response time and health tier transitions
//   - API response status codes
//
// The same events feed a private Prometheus registry.
//
// Example usage:
//
//	collector := metrics.NewCollector(1000, logger)
//	collector.Start(ctx)
//
//	collector.Emit(metrics.MetricEvent{
//		Type:       metrics.EventResponseCompleted,
//		StatusCode: 200,
//	})
//
//	snapshot := collector.Snapshot()
//
// Pending events are drained when the context is cancelled.
package metrics
