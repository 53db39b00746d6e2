// Package upstream represents the proxied targets of the daemon: a route
// prefix, a target URL with its reverse proxy, and response time tracking.
// Each upstream is guarded by a circuit breaker registered under its name.
package upstream
