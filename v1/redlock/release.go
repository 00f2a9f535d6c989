package redlock

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/mirkobrombin/go-redlock/v1/metrics"
	"github.com/mirkobrombin/go-redlock/v1/store"
)

// Release deletes the lock from every configured store that still holds its
// token and returns how many stores did. It never fails: unreachable stores
// are logged and left to expire the key on their own. Release keeps running
// when ctx is cancelled, bounded by the per-store timeout. Releasing a nil,
// already released or expired lock is a no-op.
func (r *Redlock) Release(ctx context.Context, lock *Lock) int {
	if lock == nil {
		return 0
	}
	ctx, span := r.startSpan(ctx, "Redlock.Release", lock.resource, lock.ttl)
	n := r.releaseAll(ctx, lock.resource, lock.token, lock.ttl)
	metrics.ReleaseTotal.Inc()
	if span != nil {
		span.SetAttributes(attribute.Int("redlock.released", n))
	}
	endSpan(span, 1, nil)
	return n
}

// releaseAll targets all stores, not only the ones that voted, because a
// store whose reply was lost may still hold token.
func (r *Redlock) releaseAll(ctx context.Context, resource, token string, ttl time.Duration) int {
	ctx = context.WithoutCancel(ctx)
	nodes, failed := r.fanOut(ctx, "delete", r.cfg.storeTimeout(ttl), func(ctx context.Context, s store.Store) (bool, error) {
		return s.DeleteIfEqual(ctx, resource, token)
	})
	if failed > 0 {
		r.logger.Warn("redlock: release incomplete, remaining entries expire on their own",
			"resource", resource, "failed", failed, "stores", len(r.stores))
	}
	return len(nodes)
}
