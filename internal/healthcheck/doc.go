// Package healthcheck produces synthetic health samples for the endpoint fleet.
//
// A Sampler perturbs every endpoint's response time and load by a bounded
// random amount, derives the resulting health status and stamps the check
// time. The randomness comes from an injected Source so a fixed seed, or a
// constant source, reproduces the same pass in tests.
//
// Run drives periodic sampling in the background when an interval is
// configured; otherwise sampling happens only when a snapshot is queried.
package healthcheck
