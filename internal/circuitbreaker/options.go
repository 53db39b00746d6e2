package circuitbreaker

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

const (
	DefaultFailureThreshold = 5
	DefaultRecoveryTimeout  = 30 * time.Second
)

// Option configures a CircuitBreaker at construction time.
type Option func(*CircuitBreaker)

// WithFailureThreshold sets how many consecutive classified failures
// trip the breaker while closed.
func WithFailureThreshold(threshold int) Option {
	return func(cb *CircuitBreaker) {
		cb.failureThreshold = threshold
	}
}

// WithRecoveryTimeout sets how long the breaker stays open before
// admitting a trial call.
func WithRecoveryTimeout(timeout time.Duration) Option {
	return func(cb *CircuitBreaker) {
		cb.recoveryTimeout = timeout
	}
}

// WithClassifier replaces the default classifier, under which every
// non-nil error counts against the breaker.
func WithClassifier(classify Classifier) Option {
	return func(cb *CircuitBreaker) {
		cb.classify = classify
	}
}

// New creates a closed breaker with the given name. Configuration is
// validated up front; a non-positive threshold or timeout is rejected
// here rather than surfacing as confusing runtime behavior.
func New(name string, opts ...Option) (*CircuitBreaker, error) {
	cb := &CircuitBreaker{
		name:             name,
		state:            StateClosed,
		failureThreshold: DefaultFailureThreshold,
		recoveryTimeout:  DefaultRecoveryTimeout,
		classify:         func(error) bool { return true },
	}

	for _, opt := range opts {
		opt(cb)
	}

	if err := cb.validate(); err != nil {
		return nil, err
	}

	return cb, nil
}

func (cb *CircuitBreaker) validate() error {
	return validation.Errors{
		"name": validation.Validate(cb.name,
			validation.Required,
		),
		"failure_threshold": validation.Validate(cb.failureThreshold,
			validation.Required,
			validation.Min(1),
		),
		"recovery_timeout": validation.Validate(cb.recoveryTimeout,
			validation.By(validatePositiveTimeout),
		),
		"classifier": validation.Validate(cb.classify,
			validation.By(validateClassifier),
		),
	}.Filter()
}

func validatePositiveTimeout(value interface{}) error {
	timeout, ok := value.(time.Duration)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a duration")
	}

	if timeout <= 0 {
		return validation.NewError("validation_invalid_timeout", "must be a positive duration")
	}

	return nil
}

func validateClassifier(value interface{}) error {
	classify, ok := value.(Classifier)
	if !ok || classify == nil {
		return validation.NewError("validation_invalid_classifier", "classifier cannot be nil")
	}

	return nil
}
