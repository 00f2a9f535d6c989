package redlock

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidConfig is matched by every *ConfigError.
	ErrInvalidConfig = errors.New("redlock: invalid configuration")
	// ErrNotAcquired is matched by every *AcquisitionFailedError.
	ErrNotAcquired = errors.New("redlock: lock not acquired")
	// ErrLockExpired is returned when extending a lock whose validity has
	// already elapsed.
	ErrLockExpired = errors.New("redlock: lock expired")
)

// ConfigError reports an invalid configuration value or request argument.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("redlock: invalid %s: %s", e.Field, e.Reason)
}

// Is makes errors.Is(err, ErrInvalidConfig) hold.
func (e *ConfigError) Is(target error) bool {
	return target == ErrInvalidConfig
}

// AcquisitionFailedError is returned when every attempt to acquire or extend
// a lock failed to reach quorum with a positive validity, or when the
// caller's context ended first.
type AcquisitionFailedError struct {
	Op       string
	Resource string
	Attempts int
	// Votes is the number of stores that accepted the last attempt.
	Votes  int
	Quorum int
	// Err is the context error when the caller gave up, or the random
	// source error when no token could be generated. Nil when the retry
	// budget ran out.
	Err error
}

func (e *AcquisitionFailedError) Error() string {
	var reason string
	switch {
	case e.Err != nil:
		reason = fmt.Sprintf("%v (%d/%d votes)", e.Err, e.Votes, e.Quorum)
	case e.Votes >= e.Quorum:
		reason = "no validity left"
	default:
		reason = fmt.Sprintf("%d/%d votes", e.Votes, e.Quorum)
	}
	return fmt.Sprintf("redlock: %s %q failed after %d attempt(s): %s", e.Op, e.Resource, e.Attempts, reason)
}

func (e *AcquisitionFailedError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrNotAcquired, e.Err}
	}
	return []error{ErrNotAcquired}
}
