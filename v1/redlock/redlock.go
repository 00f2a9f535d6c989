package redlock

import (
	"context"
	"crypto/rand"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/mirkobrombin/go-redlock/v1/clock"
	"github.com/mirkobrombin/go-redlock/v1/metrics"
	"github.com/mirkobrombin/go-redlock/v1/store"
)

var tracer = otel.Tracer("github.com/mirkobrombin/go-redlock/v1/redlock")

type operation int

const (
	opAcquire operation = iota
	opExtend
)

func (o operation) String() string {
	if o == opExtend {
		return "extend"
	}
	return "acquire"
}

// Redlock coordinates lock acquisition and release across independent
// stores. It is safe for concurrent use; locks on different resources are
// fully independent.
type Redlock struct {
	id     string
	stores []store.Store
	cfg    Config
	quorum int

	clock        clock.Clock
	logger       *slog.Logger
	traceEnabled bool

	randMu sync.Mutex
	random io.Reader
}

// New returns a coordinator over stores. The order of stores defines the
// indices reported by Lock.AcquiredNodes.
func New(stores []store.Store, cfg Config, opts ...Option) (*Redlock, error) {
	if len(stores) == 0 {
		return nil, &ConfigError{Field: "stores", Reason: "at least one store is required"}
	}
	for _, s := range stores {
		if s == nil {
			return nil, &ConfigError{Field: "stores", Reason: "nil store"}
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	r := &Redlock{
		id:     uuid.NewString(),
		stores: append([]store.Store(nil), stores...),
		cfg:    cfg.withDefaults(),
		quorum: len(stores)/2 + 1,
		clock:  clock.NewMonotonic(),
		logger: slog.Default(),
		random: rand.Reader,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.With("redlock", r.id)
	return r, nil
}

// ID returns the random identifier of this coordinator, used in logs and
// spans.
func (r *Redlock) ID() string { return r.id }

// Quorum returns the number of stores that must accept a lock.
func (r *Redlock) Quorum() int { return r.quorum }

// Stores returns the number of configured stores.
func (r *Redlock) Stores() int { return len(r.stores) }

// Config returns the configuration in use.
func (r *Redlock) Config() Config {
	cfg := r.cfg
	cfg.Addresses = append([]string(nil), r.cfg.Addresses...)
	return cfg
}

func validateRequest(resource string, ttl time.Duration) error {
	if resource == "" {
		return &ConfigError{Field: "resource", Reason: "must not be empty"}
	}
	if ttl <= 0 {
		return &ConfigError{Field: "ttl", Reason: "must be positive"}
	}
	return nil
}

func (r *Redlock) startSpan(ctx context.Context, name, resource string, ttl time.Duration) (context.Context, trace.Span) {
	if !r.traceEnabled {
		return ctx, nil
	}
	return tracer.Start(ctx, name, trace.WithAttributes(
		attribute.String("redlock.resource", resource),
		attribute.Int64("redlock.ttl_ms", ttl.Milliseconds()),
		attribute.Int("redlock.stores", len(r.stores)),
		attribute.String("redlock.instance", r.id),
	))
}

func endSpan(span trace.Span, attempts int, err error) {
	if span == nil {
		return
	}
	span.SetAttributes(attribute.Int("redlock.attempts", attempts))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// Acquire obtains a lock on resource valid for at most ttl. It returns a
// *ConfigError for invalid arguments and an *AcquisitionFailedError once
// 1+RetryCount attempts failed or ctx is done.
func (r *Redlock) Acquire(ctx context.Context, resource string, ttl time.Duration) (*Lock, error) {
	if err := validateRequest(resource, ttl); err != nil {
		return nil, err
	}
	ctx, span := r.startSpan(ctx, "Redlock.Acquire", resource, ttl)
	start := time.Now()
	l, attempts, err := r.request(ctx, opAcquire, resource, "", ttl)
	metrics.AcquireAttempts.Observe(float64(attempts))
	metrics.AcquireDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.AcquireTotal.WithLabelValues("failed").Inc()
	} else {
		metrics.AcquireTotal.WithLabelValues("acquired").Inc()
		if span != nil {
			span.SetAttributes(attribute.Int64("redlock.validity_ms", l.validity.Milliseconds()))
		}
	}
	endSpan(span, attempts, err)
	return l, err
}

// Extend re-arms lock with a new ttl on the stores that still hold its
// token and returns the resulting lock. The token is kept, and a failed
// extension leaves the original lock in place until it expires.
func (r *Redlock) Extend(ctx context.Context, lock *Lock, ttl time.Duration) (*Lock, error) {
	if lock == nil {
		return nil, &ConfigError{Field: "lock", Reason: "must not be nil"}
	}
	if err := validateRequest(lock.resource, ttl); err != nil {
		return nil, err
	}
	if !r.clock.Now().Before(lock.deadline) {
		metrics.ExtendTotal.WithLabelValues("expired").Inc()
		return nil, ErrLockExpired
	}
	ctx, span := r.startSpan(ctx, "Redlock.Extend", lock.resource, ttl)
	l, attempts, err := r.request(ctx, opExtend, lock.resource, lock.token, ttl)
	if err != nil {
		metrics.ExtendTotal.WithLabelValues("failed").Inc()
	} else {
		metrics.ExtendTotal.WithLabelValues("extended").Inc()
	}
	endSpan(span, attempts, err)
	return l, err
}

// WithLock acquires resource, runs fn with a context that ends when the
// lock validity does, and releases the lock afterwards.
func (r *Redlock) WithLock(ctx context.Context, resource string, ttl time.Duration, fn func(context.Context) error) error {
	l, err := r.Acquire(ctx, resource, ttl)
	if err != nil {
		return err
	}
	defer r.Release(ctx, l)
	lctx, cancel := context.WithTimeout(ctx, l.validity)
	defer cancel()
	return fn(lctx)
}

// request runs attempts until one succeeds, the retry budget is spent or
// ctx ends. An empty token asks for a fresh one on every attempt.
func (r *Redlock) request(ctx context.Context, op operation, resource, token string, ttl time.Duration) (*Lock, int, error) {
	attempts := 0
	for {
		attempts++
		t := token
		if t == "" {
			var err error
			if t, err = r.newToken(); err != nil {
				return nil, attempts, &AcquisitionFailedError{
					Op:       op.String(),
					Resource: resource,
					Attempts: attempts,
					Quorum:   r.quorum,
					Err:      fmt.Errorf("generate token: %w", err),
				}
			}
		}

		l, votes := r.attempt(ctx, op, resource, t, ttl)
		if l != nil {
			return l, attempts, nil
		}
		if op == opAcquire {
			r.releaseAll(ctx, resource, t, ttl)
		}

		fail := func(err error) (*Lock, int, error) {
			return nil, attempts, &AcquisitionFailedError{
				Op:       op.String(),
				Resource: resource,
				Attempts: attempts,
				Votes:    votes,
				Quorum:   r.quorum,
				Err:      err,
			}
		}
		if err := ctx.Err(); err != nil {
			return fail(err)
		}
		if attempts > r.cfg.RetryCount {
			r.logger.Debug("redlock: giving up", "op", op.String(), "resource", resource, "attempts", attempts)
			return fail(nil)
		}
		if err := r.sleep(ctx, r.retryDelay()); err != nil {
			return fail(err)
		}
	}
}

// attempt performs one voting round. It returns a lock when a quorum
// accepted token and some validity remains, and the number of votes either
// way.
func (r *Redlock) attempt(ctx context.Context, op operation, resource, token string, ttl time.Duration) (*Lock, int) {
	start := r.clock.Now()
	nodes, _ := r.fanOut(ctx, op.String(), r.cfg.storeTimeout(ttl), func(ctx context.Context, s store.Store) (bool, error) {
		if op == opExtend {
			return s.ExtendIfEqual(ctx, resource, token, ttl)
		}
		return s.SetIfAbsent(ctx, resource, token, ttl)
	})
	elapsed := r.clock.Since(start)
	drift := r.cfg.drift(ttl)
	validity := ttl - elapsed - drift

	if len(nodes) >= r.quorum && validity > 0 && validity <= ttl {
		return &Lock{
			resource: resource,
			token:    token,
			ttl:      ttl,
			validity: validity,
			deadline: start.Add(ttl - drift),
			nodes:    nodes,
		}, len(nodes)
	}
	r.logger.Debug("redlock: attempt failed",
		"op", op.String(), "resource", resource,
		"votes", len(nodes), "quorum", r.quorum,
		"elapsed", elapsed, "validity", validity)
	return nil, len(nodes)
}

// fanOut calls fn on every store concurrently, each under its own timeout,
// and waits for all of them. It returns the indices of the stores that
// answered true and the number of stores that failed.
func (r *Redlock) fanOut(ctx context.Context, op string, timeout time.Duration, fn func(context.Context, store.Store) (bool, error)) ([]int, int) {
	results := make([]bool, len(r.stores))
	errs := make([]error, len(r.stores))
	var g errgroup.Group
	for i, s := range r.stores {
		i, s := i, s
		g.Go(func() error {
			cctx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()
			ok, err := fn(cctx, s)
			results[i] = ok && err == nil
			errs[i] = err
			return nil
		})
	}
	_ = g.Wait()

	var nodes []int
	failed := 0
	for i, ok := range results {
		if ok {
			nodes = append(nodes, i)
		}
		if errs[i] != nil {
			failed++
			metrics.StoreErrors.WithLabelValues(op).Inc()
			r.logger.Debug("redlock: store call failed", "op", op, "store", i, "error", errs[i])
		}
	}
	return nodes, failed
}

func (r *Redlock) sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
