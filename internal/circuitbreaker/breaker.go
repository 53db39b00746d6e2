package circuitbreaker

import (
	"sync"
	"time"
)

type State int

const (
	StateClosed   State = iota // Normal operation
	StateOpen                  // Rejecting calls
	StateHalfOpen              // Probing with a trial call
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "CLOSED"
	case StateOpen:
		return "OPEN"
	case StateHalfOpen:
		return "HALF-OPEN"
	default:
		return "UNKNOWN"
	}
}

// Classifier decides whether an error returned by a guarded operation
// counts against the breaker. Errors it rejects pass through to the
// caller without touching the failure counter.
type Classifier func(error) bool

type CircuitBreaker struct {
	mutex sync.Mutex

	name             string
	state            State
	failureCount     int
	failureThreshold int
	recoveryTimeout  time.Duration
	openedAt         time.Time
	classify         Classifier

	// Set while a half-open trial call is in flight. Only one trial
	// runs at a time; concurrent callers are rejected until it resolves.
	trialInFlight bool
}

// Execute runs op under the breaker's rules.
//
// While the breaker is open and the recovery timeout has not elapsed,
// op is never invoked and Execute returns an *OpenError. Once the
// timeout elapses exactly one caller is admitted as the trial call
// (the state flips to HALF-OPEN before op runs); concurrent callers
// keep getting *OpenError until that trial resolves.
//
// A classified failure is recorded and then returned unchanged. An
// error the classifier rejects propagates without being counted and
// without resetting the counter. On success the breaker closes and
// the counter resets.
func (cb *CircuitBreaker) Execute(op func() error) error {
	if err := cb.allow(); err != nil {
		return err
	}

	if err := op(); err != nil {
		if cb.classify(err) {
			cb.recordFailure()
		} else {
			cb.releaseTrial()
		}
		return err
	}

	cb.recordSuccess()
	return nil
}

func (cb *CircuitBreaker) allow() error {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	switch cb.state {
	case StateClosed:
		return nil
	case StateOpen:
		if time.Since(cb.openedAt) >= cb.recoveryTimeout {
			cb.state = StateHalfOpen
			cb.trialInFlight = true
			return nil
		}
		return cb.openError()
	case StateHalfOpen:
		if cb.trialInFlight {
			return cb.openError()
		}
		cb.trialInFlight = true
		return nil
	default:
		return nil
	}
}

func (cb *CircuitBreaker) recordFailure() {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	cb.failureCount++
	cb.trialInFlight = false

	// A failed trial re-opens immediately, regardless of the threshold.
	if cb.state == StateHalfOpen || cb.failureCount >= cb.failureThreshold {
		cb.open()
	}
}

func (cb *CircuitBreaker) recordSuccess() {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	cb.trialInFlight = false
	cb.close()
}

// releaseTrial frees the trial slot after an unclassified error so the
// next caller can probe instead of the breaker wedging in HALF-OPEN.
func (cb *CircuitBreaker) releaseTrial() {
	cb.mutex.Lock()
	cb.trialInFlight = false
	cb.mutex.Unlock()
}

// ForceOpen trips the breaker regardless of the failure count, as if a
// failure had just crossed the threshold.
func (cb *CircuitBreaker) ForceOpen() {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()
	cb.open()
}

// ForceClose resets the breaker to normal operation and clears the
// failure counter.
func (cb *CircuitBreaker) ForceClose() {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()
	cb.close()
}

// open and close are the only two state writers. Callers hold the mutex.
func (cb *CircuitBreaker) open() {
	cb.state = StateOpen
	cb.openedAt = time.Now()
	cb.trialInFlight = false
}

func (cb *CircuitBreaker) close() {
	cb.state = StateClosed
	cb.failureCount = 0
	cb.trialInFlight = false
}

// Name returns the breaker's registry name.
func (cb *CircuitBreaker) Name() string {
	return cb.name
}

func (cb *CircuitBreaker) State() State {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()
	return cb.state
}

func (cb *CircuitBreaker) FailureCount() int {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()
	return cb.failureCount
}

// IsHealthy reports whether the breaker is in any state other than OPEN.
func (cb *CircuitBreaker) IsHealthy() bool {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()
	return cb.state != StateOpen
}

// OpenUntil returns the time at which the breaker will admit a trial call.
// It is only meaningful after the breaker has opened at least once.
func (cb *CircuitBreaker) OpenUntil() time.Time {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()
	return cb.openedAt.Add(cb.recoveryTimeout)
}

// OpenRemaining returns how long the breaker stays OPEN before the next
// trial call. The value goes negative once the recovery timeout has
// elapsed; callers clamp for display.
func (cb *CircuitBreaker) OpenRemaining() time.Duration {
	return time.Until(cb.OpenUntil())
}

// openError snapshots the breaker into an *OpenError. Callers hold the mutex.
func (cb *CircuitBreaker) openError() *OpenError {
	until := cb.openedAt.Add(cb.recoveryTimeout)
	return &OpenError{
		Name:         cb.name,
		OpenUntil:    until,
		FailureCount: cb.failureCount,
		Remaining:    time.Until(until),
	}
}
