package circuitbreaker

import (
	"sync"
)

// Registry is a process-wide directory of breakers keyed by name. It is
// meant for introspection and health reporting, not for the hot call
// path: callers hold on to their breaker after looking it up once.
//
// Breakers live for the process lifetime, so there is no removal.
type Registry struct {
	mutex    sync.RWMutex
	breakers map[string]*CircuitBreaker
}

func NewRegistry() *Registry {
	return &Registry{
		breakers: make(map[string]*CircuitBreaker),
	}
}

// Register inserts the breaker under its name. Registering a second
// breaker with the same name overwrites the first; callers are
// responsible for keeping names unique.
func (r *Registry) Register(cb *CircuitBreaker) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.breakers[cb.Name()] = cb
}

// Get returns the breaker registered under name, if any.
func (r *Registry) Get(name string) (*CircuitBreaker, bool) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	cb, ok := r.breakers[name]
	return cb, ok
}

// GetOrCreate returns the breaker registered under name, creating and
// registering one with the given options if it does not exist yet.
func (r *Registry) GetOrCreate(name string, opts ...Option) (*CircuitBreaker, error) {
	r.mutex.RLock()
	cb, exists := r.breakers[name]
	r.mutex.RUnlock()

	if exists {
		return cb, nil
	}

	r.mutex.Lock()
	defer r.mutex.Unlock()

	// Double-check: another goroutine may have created it
	if cb, exists = r.breakers[name]; exists {
		return cb, nil
	}

	cb, err := New(name, opts...)
	if err != nil {
		return nil, err
	}

	r.breakers[name] = cb
	return cb, nil
}

// List returns a snapshot of all registered breakers.
func (r *Registry) List() []*CircuitBreaker {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	all := make([]*CircuitBreaker, 0, len(r.breakers))
	for _, cb := range r.breakers {
		all = append(all, cb)
	}
	return all
}

// ListOpen returns the breakers currently in the OPEN state.
func (r *Registry) ListOpen() []*CircuitBreaker {
	return r.filter(func(cb *CircuitBreaker) bool {
		return cb.State() == StateOpen
	})
}

// ListClosed returns the breakers not currently in the OPEN state.
func (r *Registry) ListClosed() []*CircuitBreaker {
	return r.filter(func(cb *CircuitBreaker) bool {
		return cb.State() != StateOpen
	})
}

// AllClosed reports whether no registered breaker is currently OPEN.
func (r *Registry) AllClosed() bool {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	for _, cb := range r.breakers {
		if cb.State() == StateOpen {
			return false
		}
	}
	return true
}

// Stats returns the current state of every registered breaker by name.
func (r *Registry) Stats() map[string]State {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	stats := make(map[string]State, len(r.breakers))
	for name, cb := range r.breakers {
		stats[name] = cb.State()
	}
	return stats
}

func (r *Registry) filter(keep func(*CircuitBreaker) bool) []*CircuitBreaker {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	var matched []*CircuitBreaker
	for _, cb := range r.breakers {
		if keep(cb) {
			matched = append(matched, cb)
		}
	}
	return matched
}
