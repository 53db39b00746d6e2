package circuitbreaker

import (
	"reflect"
	"runtime"
	"strings"
)

// Guard returns a function that routes every call to op through the
// breaker. It is sugar over calling Execute directly.
func Guard(cb *CircuitBreaker, op func() error) func() error {
	return func() error {
		return cb.Execute(op)
	}
}

// Call runs op through the breaker and returns its result. When the
// breaker rejects the call, the zero value of T is returned together
// with the *OpenError.
func Call[T any](cb *CircuitBreaker, op func() (T, error)) (T, error) {
	var result T

	err := cb.Execute(func() error {
		var opErr error
		result, opErr = op()
		return opErr
	})

	return result, err
}

// Wrap guards op with a breaker registered in reg under a name inferred
// from op's function name. An existing breaker with that name is reused;
// otherwise one is created with the given options.
func Wrap(reg *Registry, op func() error, opts ...Option) (func() error, error) {
	cb, err := reg.GetOrCreate(functionName(op), opts...)
	if err != nil {
		return nil, err
	}

	return Guard(cb, op), nil
}

// functionName extracts the bare symbol name of fn, e.g.
// "github.com/acme/svc.fetchUser" becomes "fetchUser".
func functionName(fn interface{}) string {
	name := runtime.FuncForPC(reflect.ValueOf(fn).Pointer()).Name()

	if i := strings.LastIndex(name, "."); i >= 0 {
		name = name[i+1:]
	}

	// Method values carry a "-fm" suffix
	return strings.TrimSuffix(name, "-fm")
}
