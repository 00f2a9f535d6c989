package presets

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"github.com/mirkobrombin/go-redlock/v1/redlock"
)

func TestNewInMemory(t *testing.T) {
	rl, mem, err := NewInMemory(3, redlock.DefaultConfig())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	ctx := context.Background()
	l, err := rl.Acquire(ctx, "foo", time.Second)
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	for i, m := range mem {
		if v, ok := m.Get("foo"); !ok || v != l.Token() {
			t.Fatalf("store %d missing token", i)
		}
	}
	if n := rl.Release(ctx, l); n != 3 {
		t.Fatalf("expected 3 releases, got %d", n)
	}

	if _, _, err := NewInMemory(0, redlock.DefaultConfig()); !errors.Is(err, redlock.ErrInvalidConfig) {
		t.Fatalf("expected config error, got %v", err)
	}
}

func TestNewRedis(t *testing.T) {
	var addrs []string
	for i := 0; i < 3; i++ {
		mr, err := miniredis.Run()
		if err != nil {
			t.Fatalf("miniredis run: %v", err)
		}
		defer mr.Close()
		addrs = append(addrs, mr.Addr())
	}
	cfg := redlock.DefaultConfig()
	cfg.Addresses = addrs
	cfg.RetryCount = 0

	rl, closeAll, err := NewRedis(cfg, RedisOptions{BreakerThreshold: 3, BreakerTimeout: time.Second})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer func() { _ = closeAll() }()

	if rl.Stores() != 3 || rl.Quorum() != 2 {
		t.Fatalf("unexpected topology: %d stores, quorum %d", rl.Stores(), rl.Quorum())
	}
	ctx := context.Background()
	err = rl.WithLock(ctx, "foo", time.Second, func(context.Context) error {
		if _, err := rl.Acquire(ctx, "foo", time.Second); !errors.Is(err, redlock.ErrNotAcquired) {
			t.Errorf("expected lock held, got %v", err)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("with lock: %v", err)
	}
}

func TestNewRedisRequiresAddresses(t *testing.T) {
	cfg := redlock.DefaultConfig()
	cfg.Addresses = nil
	if _, _, err := NewRedis(cfg, RedisOptions{}); !errors.Is(err, redlock.ErrInvalidConfig) {
		t.Fatalf("expected config error, got %v", err)
	}
}
