// Package service is the only externally reachable surface of the endpoint
// fleet. Query samples every endpoint, redistributes load and stores the
// result in one atomic registry update; Register validates and appends a new
// endpoint without sampling.
package service
