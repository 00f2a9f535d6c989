// Package clock supplies the time source used to measure how long a lock
// acquisition took. Measurements rely on Go's monotonic clock reading so wall
// clock adjustments never shorten or stretch a computed validity window.
package clock

import (
	"sync"
	"time"
)

// Clock reports the current instant and elapsed time since an earlier one.
type Clock interface {
	Now() time.Time
	Since(t time.Time) time.Duration
}

// Monotonic is the default Clock. Values returned by Now carry a monotonic
// reading, so Since is immune to system time changes.
type Monotonic struct{}

// NewMonotonic returns a Clock backed by the runtime monotonic clock.
func NewMonotonic() Monotonic {
	return Monotonic{}
}

// Now implements Clock.Now.
func (Monotonic) Now() time.Time {
	return time.Now()
}

// Since implements Clock.Since.
func (Monotonic) Since(t time.Time) time.Duration {
	return time.Since(t)
}

// Manual is a Clock that only moves when Advance is called.
type Manual struct {
	mu  sync.Mutex
	now time.Time
}

// NewManual returns a Manual clock positioned at start.
func NewManual(start time.Time) *Manual {
	return &Manual{now: start}
}

// Now implements Clock.Now.
func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// Since implements Clock.Since.
func (m *Manual) Since(t time.Time) time.Duration {
	return m.Now().Sub(t)
}

// Advance moves the clock forward by d. Negative values are ignored so the
// clock never goes backwards.
func (m *Manual) Advance(d time.Duration) {
	if d <= 0 {
		return
	}
	m.mu.Lock()
	m.now = m.now.Add(d)
	m.mu.Unlock()
}
