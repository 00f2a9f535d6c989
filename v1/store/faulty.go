package store

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	lockerrors "github.com/mirkobrombin/go-redlock/v1/errors"
)

// ErrInjected is the cause reported by a Faulty store that is down or drops
// its replies.
var ErrInjected = errors.New("injected fault")

// Faulty decorates a Store with switchable failures: a down node, added
// latency, and lost replies where the write is applied but the caller sees
// an error. It is meant for exercising partition and timeout behaviour.
type Faulty struct {
	inner       Store
	down        atomic.Bool
	dropReplies atomic.Bool
	latency     atomic.Int64
	calls       atomic.Uint64
}

// NewFaulty wraps inner. The returned store is healthy until configured
// otherwise.
func NewFaulty(inner Store) *Faulty {
	return &Faulty{inner: inner}
}

// SetDown makes every call fail without reaching the inner store.
func (f *Faulty) SetDown(down bool) { f.down.Store(down) }

// SetDropReplies applies calls to the inner store but reports a failure.
func (f *Faulty) SetDropReplies(drop bool) { f.dropReplies.Store(drop) }

// SetLatency delays every call by d, or until the call context is done.
func (f *Faulty) SetLatency(d time.Duration) { f.latency.Store(int64(d)) }

// Calls returns how many calls reached the decorator.
func (f *Faulty) Calls() uint64 { return f.calls.Load() }

func (f *Faulty) before(ctx context.Context, op string) error {
	f.calls.Add(1)
	if d := time.Duration(f.latency.Load()); d > 0 {
		timer := time.NewTimer(d)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return lockerrors.Unavailable(op, ctx.Err())
		}
	}
	if f.down.Load() {
		return lockerrors.Unavailable(op, ErrInjected)
	}
	return nil
}

func (f *Faulty) after(op string, ok bool, err error) (bool, error) {
	if err != nil {
		return false, err
	}
	if f.dropReplies.Load() {
		return false, lockerrors.Unavailable(op, ErrInjected)
	}
	return ok, nil
}

// SetIfAbsent implements Store.SetIfAbsent.
func (f *Faulty) SetIfAbsent(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	if err := f.before(ctx, "set"); err != nil {
		return false, err
	}
	ok, err := f.inner.SetIfAbsent(ctx, key, value, ttl)
	return f.after("set", ok, err)
}

// DeleteIfEqual implements Store.DeleteIfEqual.
func (f *Faulty) DeleteIfEqual(ctx context.Context, key, value string) (bool, error) {
	if err := f.before(ctx, "delete"); err != nil {
		return false, err
	}
	ok, err := f.inner.DeleteIfEqual(ctx, key, value)
	return f.after("delete", ok, err)
}

// ExtendIfEqual implements Store.ExtendIfEqual.
func (f *Faulty) ExtendIfEqual(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	if err := f.before(ctx, "extend"); err != nil {
		return false, err
	}
	ok, err := f.inner.ExtendIfEqual(ctx, key, value, ttl)
	return f.after("extend", ok, err)
}
