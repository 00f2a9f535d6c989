package redlock

import "time"

// Lock is a held, or formerly held, lock instance. It is immutable.
type Lock struct {
	resource string
	token    string
	ttl      time.Duration
	validity time.Duration
	deadline time.Time
	nodes    []int
}

// Resource returns the locked key.
func (l *Lock) Resource() string { return l.resource }

// Token returns the random value written to the stores. It is the only
// credential accepted by Release and Extend.
func (l *Lock) Token() string { return l.token }

// TTL returns the ttl requested for this lock.
func (l *Lock) TTL() time.Duration { return l.ttl }

// Validity returns how long the holder may assume ownership, measured from
// the end of the acquisition. It does not shrink as time passes.
func (l *Lock) Validity() time.Duration { return l.validity }

// Deadline returns the instant, on the coordinator's clock, at which the
// validity window closes.
func (l *Lock) Deadline() time.Time { return l.deadline }

// AcquiredNodes returns the indices of the stores that accepted the token.
// It is informational only: a store missing from this list may still hold
// the token after a timed out reply.
func (l *Lock) AcquiredNodes() []int {
	return append([]int(nil), l.nodes...)
}
