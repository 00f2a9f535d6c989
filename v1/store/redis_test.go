package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"

	lockerrors "github.com/mirkobrombin/go-redlock/v1/errors"
)

func newRedisStore(t *testing.T) (*Redis, *miniredis.Miniredis, context.Context) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis run: %v", err)
	}
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	s := NewRedis(client)
	t.Cleanup(func() {
		_ = s.Close()
		mr.Close()
	})
	return s, mr, context.Background()
}

func TestRedisSetIfAbsent(t *testing.T) {
	s, mr, ctx := newRedisStore(t)

	ok, err := s.SetIfAbsent(ctx, "k", "a", time.Second)
	if err != nil || !ok {
		t.Fatalf("set: %v ok %v", err, ok)
	}
	if ok, err := s.SetIfAbsent(ctx, "k", "b", time.Second); err != nil || ok {
		t.Fatalf("expected key held, ok %v err %v", ok, err)
	}
	if v, _ := mr.Get("k"); v != "a" {
		t.Fatalf("value overwritten: %q", v)
	}
	if ttl := mr.TTL("k"); ttl <= 0 || ttl > time.Second {
		t.Fatalf("unexpected ttl %v", ttl)
	}

	mr.FastForward(time.Second)
	if ok, err := s.SetIfAbsent(ctx, "k", "b", time.Second); err != nil || !ok {
		t.Fatalf("expired key still blocks, ok %v err %v", ok, err)
	}
}

func TestRedisDeleteIfEqual(t *testing.T) {
	s, mr, ctx := newRedisStore(t)
	_, _ = s.SetIfAbsent(ctx, "k", "a", time.Second)

	if ok, err := s.DeleteIfEqual(ctx, "k", "b"); err != nil || ok {
		t.Fatalf("foreign token deleted, ok %v err %v", ok, err)
	}
	if !mr.Exists("k") {
		t.Fatal("key removed by foreign token")
	}
	if ok, err := s.DeleteIfEqual(ctx, "k", "a"); err != nil || !ok {
		t.Fatalf("delete: %v ok %v", err, ok)
	}
	if mr.Exists("k") {
		t.Fatal("key not removed")
	}
	if ok, err := s.DeleteIfEqual(ctx, "k", "a"); err != nil || ok {
		t.Fatalf("second delete should be a no-op, ok %v err %v", ok, err)
	}
}

func TestRedisExtendIfEqual(t *testing.T) {
	s, mr, ctx := newRedisStore(t)
	_, _ = s.SetIfAbsent(ctx, "k", "a", 100*time.Millisecond)

	if ok, err := s.ExtendIfEqual(ctx, "k", "b", time.Minute); err != nil || ok {
		t.Fatalf("extended with foreign token, ok %v err %v", ok, err)
	}
	if ok, err := s.ExtendIfEqual(ctx, "k", "a", time.Minute); err != nil || !ok {
		t.Fatalf("extend: %v ok %v", err, ok)
	}
	if ttl := mr.TTL("k"); ttl != time.Minute {
		t.Fatalf("expected ttl 1m, got %v", ttl)
	}
	if ok, err := s.ExtendIfEqual(ctx, "missing", "a", time.Minute); err != nil || ok {
		t.Fatalf("extended a missing key, ok %v err %v", ok, err)
	}
}

func TestRedisSubMillisecondTTLRoundsUp(t *testing.T) {
	s, mr, ctx := newRedisStore(t)
	if ok, err := s.SetIfAbsent(ctx, "k", "a", 1500*time.Microsecond); err != nil || !ok {
		t.Fatalf("set: %v ok %v", err, ok)
	}
	if ttl := mr.TTL("k"); ttl != 2*time.Millisecond {
		t.Fatalf("expected ttl rounded up to 2ms, got %v", ttl)
	}

	if ok, err := s.ExtendIfEqual(ctx, "k", "a", 900*time.Microsecond); err != nil || !ok {
		t.Fatalf("extend: %v ok %v", err, ok)
	}
	if !mr.Exists("k") {
		t.Fatal("sub-millisecond extend deleted the key")
	}
	if ttl := mr.TTL("k"); ttl != time.Millisecond {
		t.Fatalf("expected ttl 1ms, got %v", ttl)
	}
}

func TestRedisUnavailable(t *testing.T) {
	s, mr, ctx := newRedisStore(t)
	mr.Close()

	_, err := s.SetIfAbsent(ctx, "k", "a", time.Second)
	if !errors.Is(err, lockerrors.ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
	_, err = s.DeleteIfEqual(ctx, "k", "a")
	if !errors.Is(err, lockerrors.ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
}

func TestRedisClosedClient(t *testing.T) {
	s, _, ctx := newRedisStore(t)
	_ = s.Close()
	_, err := s.SetIfAbsent(ctx, "k", "a", time.Second)
	if !errors.Is(err, lockerrors.ErrConnectionClosed) {
		t.Fatalf("expected ErrConnectionClosed, got %v", err)
	}
}

func TestDialRedis(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis run: %v", err)
	}
	defer mr.Close()
	ctx := context.Background()

	for _, addr := range []string{mr.Addr(), "redis://" + mr.Addr() + "/0"} {
		s, err := DialRedis(addr, RedisOptions{DialTimeout: time.Second})
		if err != nil {
			t.Fatalf("dial %s: %v", addr, err)
		}
		if ok, err := s.SetIfAbsent(ctx, "dial:"+addr, "v", time.Second); err != nil || !ok {
			t.Fatalf("set via %s: %v ok %v", addr, err, ok)
		}
		_ = s.Close()
	}

	if _, err := DialRedis("redis://%zz", RedisOptions{}); err == nil {
		t.Fatal("expected error for malformed url")
	}
}
