// Package handler implements the HTTP surface of the endpoint service: the
// snapshot query, endpoint registration and the process liveness probe. It
// maps service errors to response statuses and records every response.
package handler
