package strategy

import (
	"github.com/angeloszaimis/endpoint-balancer/internal/endpoint"
)

// Strategy rewrites the load share of every endpoint in a sampled snapshot.
// Implementations must not modify the input slice and must return one record
// per input record, in the same order.
type Strategy interface {
	Redistribute(endpoints []endpoint.Endpoint) []endpoint.Endpoint
}
