package metrics

import (
	"encoding/json"
	"net/http"
)

// Handler serves the JSON metrics snapshot.
func (c *Collector) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap := c.metrics.Snapshot()

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(snap); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
	}
}

// PrometheusHandler serves the Prometheus text exposition.
func (c *Collector) PrometheusHandler() http.Handler {
	return c.exporter.handler()
}
