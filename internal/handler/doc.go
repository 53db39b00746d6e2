// Package handler implements the daemon's HTTP request handler. It routes
// each request to the matching upstream through that upstream's circuit
// breaker and answers with 503 and a Retry-After hint while the breaker
// is open.
package handler
