// Package errors holds the sentinel errors shared by store implementations.
// Every transport level failure of a single store wraps ErrStoreUnavailable
// so callers can fold it into a quorum tally without inspecting details.
package errors

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrStoreUnavailable = errors.New("store unavailable")
	ErrTimeout          = errors.New("timeout")
	ErrConnectionClosed = errors.New("connection closed")
)

type storeError struct {
	op    string
	cause error
	kind  error
}

func (e *storeError) Error() string {
	if e.kind != nil {
		return fmt.Sprintf("%s: %v: %v", e.op, e.kind, e.cause)
	}
	return fmt.Sprintf("%s: %v", e.op, e.cause)
}

func (e *storeError) Unwrap() []error {
	errs := []error{ErrStoreUnavailable, e.cause}
	if e.kind != nil {
		errs = append(errs, e.kind)
	}
	return errs
}

// Unavailable wraps err so that it matches ErrStoreUnavailable. Context
// deadline errors additionally match ErrTimeout. A nil err returns nil.
func Unavailable(op string, err error) error {
	if err == nil {
		return nil
	}
	var kind error
	if errors.Is(err, context.DeadlineExceeded) {
		kind = ErrTimeout
	}
	return &storeError{op: op, cause: err, kind: kind}
}

// Closed reports that op was attempted on a closed store.
func Closed(op string) error {
	return &storeError{op: op, cause: ErrConnectionClosed}
}
