package presets

import (
	"errors"
	"time"

	"github.com/mirkobrombin/go-redlock/v1/redlock"
	"github.com/mirkobrombin/go-redlock/v1/store"
)

// RedisOptions configures the connections to the Redis instances.
type RedisOptions struct {
	Password    string
	DB          int
	DialTimeout time.Duration
	// BreakerThreshold enables a circuit breaker per instance once that
	// many consecutive calls failed. Zero disables it.
	BreakerThreshold int
	// BreakerTimeout is how long an open breaker waits before probing.
	BreakerTimeout time.Duration
}

// NewRedis dials one independent Redis instance per cfg.Addresses entry and
// returns a coordinator over them, along with a function closing every
// client.
func NewRedis(cfg redlock.Config, opts RedisOptions, ropts ...redlock.Option) (*redlock.Redlock, func() error, error) {
	if err := cfg.ValidateAddresses(); err != nil {
		return nil, nil, err
	}
	var clients []*store.Redis
	closeAll := func() error {
		var errs []error
		for _, c := range clients {
			errs = append(errs, c.Close())
		}
		return errors.Join(errs...)
	}

	stores := make([]store.Store, 0, len(cfg.Addresses))
	for _, addr := range cfg.Addresses {
		c, err := store.DialRedis(addr, store.RedisOptions{
			Password:    opts.Password,
			DB:          opts.DB,
			DialTimeout: opts.DialTimeout,
		})
		if err != nil {
			_ = closeAll()
			return nil, nil, err
		}
		clients = append(clients, c)
		var s store.Store = c
		if opts.BreakerThreshold > 0 {
			s = store.NewCircuitBreaker(c, opts.BreakerThreshold, opts.BreakerTimeout)
		}
		stores = append(stores, s)
	}

	rl, err := redlock.New(stores, cfg, ropts...)
	if err != nil {
		_ = closeAll()
		return nil, nil, err
	}
	return rl, closeAll, nil
}

// NewInMemory creates a coordinator over n in-memory stores living in this
// process. Useful for local development and tests; it offers no protection
// across processes.
func NewInMemory(n int, cfg redlock.Config, ropts ...redlock.Option) (*redlock.Redlock, []*store.InMemory, error) {
	mem := make([]*store.InMemory, n)
	stores := make([]store.Store, n)
	for i := range mem {
		mem[i] = store.NewInMemory()
		stores[i] = mem[i]
	}
	rl, err := redlock.New(stores, cfg, ropts...)
	if err != nil {
		return nil, nil, err
	}
	return rl, mem, nil
}
