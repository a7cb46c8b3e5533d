// Package httpserver wraps net/http with address validation, connection
// timeouts, graceful shutdown and a small middleware chain (panic recovery and
// token-bucket rate limiting).
package httpserver
