// Package endpoint defines the simulated backend service record tracked by the
// registry, its derived health status, and the aggregate figures reported with
// every snapshot.
package endpoint
