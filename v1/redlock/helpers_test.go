package redlock

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/mirkobrombin/go-redlock/v1/clock"
	"github.com/mirkobrombin/go-redlock/v1/store"
)

func testConfig() Config {
	return Config{
		RetryCount:     0,
		RetryDelay:     time.Millisecond,
		DriftFactor:    0.01,
		DriftAllowance: 2 * time.Millisecond,
	}
}

type cluster struct {
	mem    []*store.InMemory
	faulty []*store.Faulty
	stores []store.Store
}

func newCluster(n int, opts ...store.InMemoryOption) *cluster {
	c := &cluster{}
	for i := 0; i < n; i++ {
		m := store.NewInMemory(opts...)
		f := store.NewFaulty(m)
		c.mem = append(c.mem, m)
		c.faulty = append(c.faulty, f)
		c.stores = append(c.stores, f)
	}
	return c
}

// holders counts the stores holding value under key.
func (c *cluster) holders(key, value string) int {
	n := 0
	for _, m := range c.mem {
		if v, ok := m.Get(key); ok && v == value {
			n++
		}
	}
	return n
}

func (c *cluster) empty(key string) bool {
	for _, m := range c.mem {
		if _, ok := m.Get(key); ok {
			return false
		}
	}
	return true
}

func newTestRedlock(t *testing.T, stores []store.Store, cfg Config, opts ...Option) *Redlock {
	t.Helper()
	r, err := New(stores, cfg, opts...)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	return r
}

// slowStore advances a manual clock on every SetIfAbsent, simulating a
// store that takes d to answer.
type slowStore struct {
	store.Store
	clock *clock.Manual
	d     time.Duration
}

func (s *slowStore) SetIfAbsent(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	s.clock.Advance(s.d)
	return s.Store.SetIfAbsent(ctx, key, value, ttl)
}

// recordingStore remembers every token offered by SetIfAbsent.
type recordingStore struct {
	store.Store
	mu     sync.Mutex
	tokens []string
}

func (s *recordingStore) SetIfAbsent(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	s.tokens = append(s.tokens, value)
	s.mu.Unlock()
	return s.Store.SetIfAbsent(ctx, key, value, ttl)
}
