package store

import (
	"context"
	"errors"
	"strings"
	"time"

	redis "github.com/redis/go-redis/v9"

	lockerrors "github.com/mirkobrombin/go-redlock/v1/errors"
)

var delScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
    return redis.call("DEL", KEYS[1])
else
    return 0
end
`)

var extendScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
    return redis.call("PEXPIRE", KEYS[1], ARGV[2])
else
    return 0
end
`)

// Redis implements Store on top of a single Redis instance.
type Redis struct {
	client redis.UniversalClient
}

// RedisOptions configures connections created by DialRedis.
type RedisOptions struct {
	Password     string
	DB           int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	PoolSize     int
}

// NewRedis returns a Store using the provided client.
func NewRedis(client redis.UniversalClient) *Redis {
	return &Redis{client: client}
}

// DialRedis creates a client for addr, which may be a host:port pair or a
// redis:// / rediss:// URL. Client side retries are disabled: a failed call
// must count as a lost vote rather than silently eat into the lock validity.
func DialRedis(addr string, opts RedisOptions) (*Redis, error) {
	var ro *redis.Options
	if strings.Contains(addr, "://") {
		parsed, err := redis.ParseURL(addr)
		if err != nil {
			return nil, err
		}
		ro = parsed
	} else {
		ro = &redis.Options{Addr: addr}
	}
	if opts.Password != "" {
		ro.Password = opts.Password
	}
	if opts.DB != 0 {
		ro.DB = opts.DB
	}
	if opts.DialTimeout > 0 {
		ro.DialTimeout = opts.DialTimeout
	}
	if opts.ReadTimeout > 0 {
		ro.ReadTimeout = opts.ReadTimeout
	}
	if opts.WriteTimeout > 0 {
		ro.WriteTimeout = opts.WriteTimeout
	}
	if opts.PoolSize > 0 {
		ro.PoolSize = opts.PoolSize
	}
	ro.MaxRetries = -1
	ro.ContextTimeoutEnabled = true
	return NewRedis(redis.NewClient(ro)), nil
}

// SetIfAbsent implements Store.SetIfAbsent using SET NX PX.
func (r *Redis) SetIfAbsent(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	ok, err := r.client.SetNX(ctx, key, value, time.Duration(pxMillis(ttl))*time.Millisecond).Result()
	if err != nil {
		return false, wrapRedisErr("set", err)
	}
	return ok, nil
}

// DeleteIfEqual implements Store.DeleteIfEqual.
func (r *Redis) DeleteIfEqual(ctx context.Context, key, value string) (bool, error) {
	n, err := delScript.Run(ctx, r.client, []string{key}, value).Int64()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, wrapRedisErr("delete", err)
	}
	return n > 0, nil
}

// ExtendIfEqual implements Store.ExtendIfEqual.
func (r *Redis) ExtendIfEqual(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	n, err := extendScript.Run(ctx, r.client, []string{key}, value, pxMillis(ttl)).Int64()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, wrapRedisErr("extend", err)
	}
	return n > 0, nil
}

// Close closes the underlying client.
func (r *Redis) Close() error {
	return r.client.Close()
}

// pxMillis converts ttl to whole milliseconds for PX/PEXPIRE, rounding up so
// the key never expires before ttl. PEXPIRE 0 would delete the key.
func pxMillis(ttl time.Duration) int64 {
	ms := int64((ttl + time.Millisecond - 1) / time.Millisecond)
	if ms < 1 {
		ms = 1
	}
	return ms
}

func wrapRedisErr(op string, err error) error {
	if errors.Is(err, redis.ErrClosed) {
		return lockerrors.Closed(op)
	}
	return lockerrors.Unavailable(op, err)
}
