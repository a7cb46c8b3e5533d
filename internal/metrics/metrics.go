package metrics

import (
	"sort"
	"sync"
	"time"

	"github.com/angeloszaimis/endpoint-balancer/internal/endpoint"
)

const maxQuerySamples = 1000

type Metrics struct {
	mutex         sync.RWMutex
	queries       int64
	registrations int64
	queryTimes    []time.Duration
	statusCodes   map[int]int64
	endpoints     map[string]EndpointMetrics
	startTime     time.Time
}

type Snapshot struct {
	Uptime             time.Duration              `json:"uptime"`
	TotalQueries       int64                      `json:"total_queries"`
	TotalRegistrations int64                      `json:"total_registrations"`
	AvgQuery           time.Duration              `json:"avg_query"`
	P50Query           time.Duration              `json:"p50_query"`
	P95Query           time.Duration              `json:"p95_query"`
	P99Query           time.Duration              `json:"p99_query"`
	StatusCodes        map[int]int64              `json:"status_codes"`
	Endpoints          map[string]EndpointMetrics `json:"endpoints"`
}

// EndpointMetrics is the last observed state of one endpoint plus the number
// of tier changes seen since it was first observed.
type EndpointMetrics struct {
	Name         string          `json:"name"`
	Status       endpoint.Status `json:"status"`
	Load         int             `json:"load"`
	ResponseTime int             `json:"response_time"`
	Transitions  int64           `json:"transitions"`
}

func (m *Metrics) RecordQuery(duration time.Duration) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.queries++
	m.queryTimes = append(m.queryTimes, duration)

	if len(m.queryTimes) > maxQuerySamples {
		m.queryTimes = m.queryTimes[1:]
	}
}

func (m *Metrics) RecordRegistration(e endpoint.Endpoint) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.registrations++
	m.observeLocked(e)
}

func (m *Metrics) RecordStatusCode(statusCode int) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.statusCodes[statusCode]++
}

func (m *Metrics) RecordTransition(id string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	em := m.endpoints[id]
	em.Transitions++
	m.endpoints[id] = em
}

// ObserveEndpoints stores the latest state of every endpoint in a snapshot.
func (m *Metrics) ObserveEndpoints(endpoints []endpoint.Endpoint) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	for _, e := range endpoints {
		m.observeLocked(e)
	}
}

func (m *Metrics) observeLocked(e endpoint.Endpoint) {
	em := m.endpoints[e.ID]
	em.Name = e.Name
	em.Status = e.Status
	em.Load = e.Load
	em.ResponseTime = e.ResponseTime
	m.endpoints[e.ID] = em
}

func (m *Metrics) Snapshot() Snapshot {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	snap := Snapshot{
		Uptime:             time.Since(m.startTime),
		TotalQueries:       m.queries,
		TotalRegistrations: m.registrations,
		StatusCodes:        make(map[int]int64, len(m.statusCodes)),
		Endpoints:          make(map[string]EndpointMetrics, len(m.endpoints)),
	}

	for code, n := range m.statusCodes {
		snap.StatusCodes[code] = n
	}

	for id, em := range m.endpoints {
		snap.Endpoints[id] = em
	}

	if len(m.queryTimes) > 0 {
		sorted := make([]time.Duration, len(m.queryTimes))
		copy(sorted, m.queryTimes)
		sort.Slice(sorted, func(i, j int) bool {
			return sorted[i] < sorted[j]
		})

		snap.AvgQuery = average(sorted)
		snap.P50Query = percentile(sorted, 0.50)
		snap.P95Query = percentile(sorted, 0.95)
		snap.P99Query = percentile(sorted, 0.99)
	}

	return snap
}

func NewMetrics() *Metrics {
	return &Metrics{
		statusCodes: make(map[int]int64),
		endpoints:   make(map[string]EndpointMetrics),
		startTime:   time.Now(),
	}
}

func average(durations []time.Duration) time.Duration {
	if len(durations) == 0 {
		return 0
	}

	var sum time.Duration
	for _, d := range durations {
		sum += d
	}

	return sum / time.Duration(len(durations))
}

func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}

	index := int(float64(len(sorted)) * p)
	if index >= len(sorted) {
		index = len(sorted) - 1
	}

	return sorted[index]
}
