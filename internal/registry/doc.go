// Package registry owns the process-wide set of endpoints.
//
// Every mutation, including the sample-and-redistribute cycle, runs inside a
// single critical section so concurrent queries and registrations can never
// interleave their reads and writes. Readers receive copies and never observe
// a partially updated sequence.
package registry
