// Package monitor exposes the breaker registry for operations: a /health
// handler that reflects whether any breaker is open, and a watch loop
// that logs state transitions and feeds them to the metrics collector.
package monitor
