package healthcheck

import (
	"math"
	"math/rand/v2"
	"time"

	"github.com/angeloszaimis/endpoint-balancer/internal/endpoint"
)

const (
	ResponseTimeJitter = 25.0
	LoadJitter         = 10.0
)

// Source yields uniformly distributed values in [0, 1).
// *rand.Rand from math/rand/v2 satisfies it.
type Source interface {
	Float64() float64
}

// NewSeededSource returns a deterministic PCG-backed source.
func NewSeededSource(seed uint64) Source {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// ConstSource always returns the same value. ConstSource(0.5) applies no
// variation at all.
type ConstSource float64

func (c ConstSource) Float64() float64 {
	return float64(c)
}

// Sampler is not safe for concurrent use; callers serialize passes through the
// registry's write lock.
type Sampler struct {
	source Source
}

func NewSampler(source Source) *Sampler {
	return &Sampler{source: source}
}

// Sample returns one perturbed record per input record. Identity fields pass
// through unchanged and the input slice is not modified.
func (s *Sampler) Sample(endpoints []endpoint.Endpoint, now time.Time) []endpoint.Endpoint {
	checked := now.UTC()
	out := make([]endpoint.Endpoint, len(endpoints))

	for i, e := range endpoints {
		responseTime := math.Max(endpoint.MinResponseTime, float64(e.ResponseTime)+s.delta(ResponseTimeJitter))
		e.ResponseTime = int(math.Round(responseTime))
		e.Status = endpoint.DeriveStatus(e.ResponseTime)

		load := clamp(float64(e.Load)+s.delta(LoadJitter), endpoint.MinLoad, endpoint.MaxLoad)
		e.Load = int(math.Round(load))

		e.LastChecked = checked
		out[i] = e
	}

	return out
}

// delta draws uniformly from [-jitter, +jitter).
func (s *Sampler) delta(jitter float64) float64 {
	return s.source.Float64()*2*jitter - jitter
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
