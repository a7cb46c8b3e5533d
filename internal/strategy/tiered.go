package strategy

import (
	"math"

	"github.com/angeloszaimis/endpoint-balancer/internal/endpoint"
)

const (
	HealthyShare = 0.8
	WarningShare = 0.2
)

// tieredStrategy splits the fleet's total load between status tiers: healthy
// endpoints share HealthyShare of it evenly, warning endpoints share
// WarningShare, and error endpoints are drained.
type tieredStrategy struct {
	healthyShare float64
	warningShare float64
}

// NewTieredStrategy creates the health-tier redistribution strategy.
func NewTieredStrategy() Strategy {
	return &tieredStrategy{
		healthyShare: HealthyShare,
		warningShare: WarningShare,
	}
}

// Redistribute computes every tier's share from the same total. Rounding is
// not corrected, so the resulting loads may not add up to the total exactly.
// An empty warning tier forfeits its share for this pass, and a share is capped
// at MaxLoad.
//
// When no endpoint is healthy the snapshot is returned as is, error tier
// included.
func (t *tieredStrategy) Redistribute(endpoints []endpoint.Endpoint) []endpoint.Endpoint {
	out := endpoint.Clone(endpoints)

	totalLoad := float64(endpoint.TotalLoad(endpoints))
	healthy, warning := countTiers(endpoints)

	if healthy == 0 {
		return out
	}

	healthyLoad := share(totalLoad*t.healthyShare, healthy)
	warningLoad := 0
	if warning > 0 {
		warningLoad = share(totalLoad*t.warningShare, warning)
	}

	for i := range out {
		switch out[i].Status {
		case endpoint.StatusHealthy:
			out[i].Load = healthyLoad
		case endpoint.StatusWarning:
			out[i].Load = warningLoad
		case endpoint.StatusError:
			out[i].Load = 0
		}
	}

	return out
}

func countTiers(endpoints []endpoint.Endpoint) (healthy, warning int) {
	for _, e := range endpoints {
		switch e.Status {
		case endpoint.StatusHealthy:
			healthy++
		case endpoint.StatusWarning:
			warning++
		}
	}
	return healthy, warning
}

// share splits budget evenly. A single share never exceeds MaxLoad, which can
// only happen when few healthy endpoints absorb a heavily loaded fleet.
func share(budget float64, members int) int {
	return min(int(math.Round(budget/float64(members))), endpoint.MaxLoad)
}
