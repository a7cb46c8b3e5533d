package endpoint

import (
	"math"
	"time"
)

// Status is the health tier of an endpoint, derived from its response time.
type Status string

const (
	StatusHealthy Status = "healthy"
	StatusWarning Status = "warning"
	StatusError   Status = "error"
)

const (
	// WarningThreshold and ErrorThreshold are response times in milliseconds.
	// Anything strictly above a threshold falls into the worse tier.
	WarningThreshold = 200
	ErrorThreshold   = 500

	DefaultResponseTime = 100
	MinResponseTime     = 50

	MinLoad = 0
	MaxLoad = 100
)

// Endpoint is a simulated backend service. ID, Name and URL never change after
// creation; the remaining fields are rewritten by sampling and redistribution.
type Endpoint struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	URL          string    `json:"url"`
	Status       Status    `json:"status"`
	ResponseTime int       `json:"responseTime"`
	Load         int       `json:"load"`
	LastChecked  time.Time `json:"lastChecked"`
}

// New returns a freshly registered endpoint with default health fields.
func New(id, name, url string, now time.Time) Endpoint {
	return Endpoint{
		ID:           id,
		Name:         name,
		URL:          url,
		Status:       DeriveStatus(DefaultResponseTime),
		ResponseTime: DefaultResponseTime,
		Load:         0,
		LastChecked:  now.UTC(),
	}
}

// DeriveStatus maps a response time in milliseconds to its health tier.
func DeriveStatus(responseTime int) Status {
	switch {
	case responseTime > ErrorThreshold:
		return StatusError
	case responseTime > WarningThreshold:
		return StatusWarning
	default:
		return StatusHealthy
	}
}

// Valid reports whether s is one of the known tiers.
func (s Status) Valid() bool {
	switch s {
	case StatusHealthy, StatusWarning, StatusError:
		return true
	default:
		return false
	}
}

func (s Status) String() string {
	return string(s)
}

// Clone returns a copy of endpoints that shares no backing array with the input.
func Clone(endpoints []Endpoint) []Endpoint {
	if endpoints == nil {
		return nil
	}

	out := make([]Endpoint, len(endpoints))
	copy(out, endpoints)
	return out
}

// TotalLoad sums the load of every endpoint.
func TotalLoad(endpoints []Endpoint) int {
	total := 0
	for _, e := range endpoints {
		total += e.Load
	}
	return total
}

// AverageResponseTime returns the rounded mean response time, or 0 when there
// are no endpoints.
func AverageResponseTime(endpoints []Endpoint) int {
	if len(endpoints) == 0 {
		return 0
	}

	sum := 0
	for _, e := range endpoints {
		sum += e.ResponseTime
	}

	return int(math.Round(float64(sum) / float64(len(endpoints))))
}
