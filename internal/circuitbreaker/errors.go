package circuitbreaker

import (
	"errors"
	"fmt"
	"time"
)

// OpenError is returned by Execute when the breaker rejects a call
// without invoking the guarded operation.
type OpenError struct {
	Name         string
	OpenUntil    time.Time
	FailureCount int
	Remaining    time.Duration
}

func (e *OpenError) Error() string {
	remaining := e.Remaining
	if remaining < 0 {
		remaining = 0
	}

	return fmt.Sprintf("circuit %q open until %s (%d failures, %d sec remaining)",
		e.Name,
		e.OpenUntil.Format(time.RFC3339),
		e.FailureCount,
		int(remaining.Round(time.Second).Seconds()))
}

// IsOpen reports whether err is a breaker rejection, as opposed to a
// failure from the guarded operation itself.
func IsOpen(err error) bool {
	var openErr *OpenError
	return errors.As(err, &openErr)
}
