package store

import (
	"context"
	"time"
)

// Store is one independent key-value node. Implementations must perform each
// method as one atomic operation on the server side; a client side
// check-then-act is not acceptable.
//
// Transport failures are reported as errors wrapping
// errors.ErrStoreUnavailable. A false result with a nil error means the store
// answered but the condition did not hold.
type Store interface {
	// SetIfAbsent creates key=value expiring after ttl unless key exists.
	SetIfAbsent(ctx context.Context, key, value string, ttl time.Duration) (bool, error)
	// DeleteIfEqual removes key only if it currently holds value.
	DeleteIfEqual(ctx context.Context, key, value string) (bool, error)
	// ExtendIfEqual resets the expiration of key to ttl only if it
	// currently holds value.
	ExtendIfEqual(ctx context.Context, key, value string, ttl time.Duration) (bool, error)
}
