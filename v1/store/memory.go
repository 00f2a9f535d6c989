package store

import (
	"context"
	"sync"
	"time"

	"github.com/mirkobrombin/go-redlock/v1/clock"
	lockerrors "github.com/mirkobrombin/go-redlock/v1/errors"
)

type entry struct {
	value     string
	expiresAt time.Time
}

// InMemory implements Store using local memory. Each operation runs under a
// single mutex, which makes it atomic in the same sense a Redis command is.
// Expiry is measured on the configured clock and applied lazily.
type InMemory struct {
	mu     sync.Mutex
	clock  clock.Clock
	items  map[string]entry
	closed bool
}

// InMemoryOption configures an InMemory store.
type InMemoryOption func(*InMemory)

// WithClock sets the clock used to expire keys.
func WithClock(c clock.Clock) InMemoryOption {
	return func(m *InMemory) {
		m.clock = c
	}
}

// NewInMemory returns an empty in-memory store.
func NewInMemory(opts ...InMemoryOption) *InMemory {
	m := &InMemory{
		clock: clock.NewMonotonic(),
		items: make(map[string]entry),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// lookup returns the live entry for key, dropping it if it has expired.
// Callers must hold m.mu.
func (m *InMemory) lookup(key string) (entry, bool) {
	e, ok := m.items[key]
	if !ok {
		return entry{}, false
	}
	if !m.clock.Now().Before(e.expiresAt) {
		delete(m.items, key)
		return entry{}, false
	}
	return e, true
}

// SetIfAbsent implements Store.SetIfAbsent.
func (m *InMemory) SetIfAbsent(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, lockerrors.Unavailable("set", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return false, lockerrors.Closed("set")
	}
	if _, ok := m.lookup(key); ok {
		return false, nil
	}
	m.items[key] = entry{value: value, expiresAt: m.clock.Now().Add(ttl)}
	return true, nil
}

// DeleteIfEqual implements Store.DeleteIfEqual.
func (m *InMemory) DeleteIfEqual(ctx context.Context, key, value string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, lockerrors.Unavailable("delete", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return false, lockerrors.Closed("delete")
	}
	e, ok := m.lookup(key)
	if !ok || e.value != value {
		return false, nil
	}
	delete(m.items, key)
	return true, nil
}

// ExtendIfEqual implements Store.ExtendIfEqual.
func (m *InMemory) ExtendIfEqual(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, lockerrors.Unavailable("extend", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return false, lockerrors.Closed("extend")
	}
	e, ok := m.lookup(key)
	if !ok || e.value != value {
		return false, nil
	}
	e.expiresAt = m.clock.Now().Add(ttl)
	m.items[key] = e
	return true, nil
}

// Get returns the live value stored under key.
func (m *InMemory) Get(key string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.lookup(key)
	return e.value, ok
}

// Close makes every further call fail with errors.ErrConnectionClosed.
func (m *InMemory) Close() error {
	m.mu.Lock()
	m.closed = true
	m.items = make(map[string]entry)
	m.mu.Unlock()
	return nil
}
