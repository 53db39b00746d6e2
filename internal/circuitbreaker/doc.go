// Package circuitbreaker implements the circuit breaker pattern for
// guarding fallible operations such as remote calls.
//
// A circuit breaker prevents cascading failures by temporarily rejecting
// calls to a failing dependency. It has three states:
//
//   - CLOSED: Normal operation, calls pass through and failures are counted
//   - OPEN: Dependency failing, calls rejected without being invoked
//   - HALF-OPEN: Recovery timeout elapsed, one trial call probes the dependency
//
// Usage:
//
//	cb, err := circuitbreaker.New("payments",
//	    circuitbreaker.WithFailureThreshold(5),
//	    circuitbreaker.WithRecoveryTimeout(30*time.Second))
//	if err != nil {
//	    // invalid configuration
//	}
//
//	err = cb.Execute(func() error {
//	    return chargeCard(order)
//	})
//	if circuitbreaker.IsOpen(err) {
//	    // rejected without running chargeCard; try later or fall back
//	}
//
// A Registry tracks breakers by name for health checks and monitoring.
package circuitbreaker
