package store

import (
	"context"
	"errors"
	"sync"
	"time"

	lockerrors "github.com/mirkobrombin/go-redlock/v1/errors"
)

var ErrCircuitOpen = errors.New("circuit breaker is open")

type state int

const (
	stateClosed state = iota
	stateOpen
	stateHalfOpen
)

// CircuitBreaker decorates a Store with circuit breaker logic. After
// threshold consecutive transport errors calls fail fast until timeout has
// passed, then a single probe decides whether the node is back. A store
// answering false is healthy and never trips the breaker.
type CircuitBreaker struct {
	inner     Store
	mu        sync.RWMutex
	state     state
	failures  int
	threshold int
	timeout   time.Duration
	lastFail  time.Time
}

// NewCircuitBreaker returns a new CircuitBreaker around inner.
func NewCircuitBreaker(inner Store, threshold int, timeout time.Duration) *CircuitBreaker {
	if threshold <= 0 {
		threshold = 1
	}
	return &CircuitBreaker{
		inner:     inner,
		threshold: threshold,
		timeout:   timeout,
		state:     stateClosed,
	}
}

// IsHealthy returns true if the circuit is closed or ready to probe.
func (cb *CircuitBreaker) IsHealthy() bool {
	cb.mu.RLock()
	defer cb.mu.RUnlock()
	if cb.state == stateOpen {
		return time.Since(cb.lastFail) > cb.timeout
	}
	return true
}

// allow checks if a call should reach the inner store.
// It handles the transition from Open to Half-Open based on timeout.
func (cb *CircuitBreaker) allow() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case stateClosed:
		return true
	case stateOpen:
		if time.Since(cb.lastFail) > cb.timeout {
			cb.state = stateHalfOpen
			return true
		}
		return false
	case stateHalfOpen:
		return false // one probe at a time
	}
	return false
}

func (cb *CircuitBreaker) onSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.state = stateClosed
	cb.failures = 0
}

func (cb *CircuitBreaker) onFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.lastFail = time.Now()
	cb.failures++
	if cb.state == stateClosed && cb.failures >= cb.threshold {
		cb.state = stateOpen
	} else if cb.state == stateHalfOpen {
		cb.state = stateOpen
	}
}

func (cb *CircuitBreaker) call(op string, fn func() (bool, error)) (bool, error) {
	if !cb.allow() {
		return false, lockerrors.Unavailable(op, ErrCircuitOpen)
	}
	ok, err := fn()
	if err != nil {
		cb.onFailure()
		return false, err
	}
	cb.onSuccess()
	return ok, nil
}

// SetIfAbsent implements Store.SetIfAbsent.
func (cb *CircuitBreaker) SetIfAbsent(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	return cb.call("set", func() (bool, error) {
		return cb.inner.SetIfAbsent(ctx, key, value, ttl)
	})
}

// DeleteIfEqual implements Store.DeleteIfEqual.
func (cb *CircuitBreaker) DeleteIfEqual(ctx context.Context, key, value string) (bool, error) {
	return cb.call("delete", func() (bool, error) {
		return cb.inner.DeleteIfEqual(ctx, key, value)
	})
}

// ExtendIfEqual implements Store.ExtendIfEqual.
func (cb *CircuitBreaker) ExtendIfEqual(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	return cb.call("extend", func() (bool, error) {
		return cb.inner.ExtendIfEqual(ctx, key, value, ttl)
	})
}
