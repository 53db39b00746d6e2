// Package metrics collects circuit breaker call and transition events.
// Producers publish events to a buffered channel; a Collector goroutine
// aggregates them into a JSON snapshot and a Prometheus registry, keeping
// all bookkeeping off the guarded call path.
package metrics
