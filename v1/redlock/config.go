package redlock

import (
	"math"
	"time"
)

const (
	defaultRetryCount         = 10
	defaultRetryDelay         = 400 * time.Millisecond
	defaultRetryJitter        = 400 * time.Millisecond
	defaultDriftFactor        = 0.01
	defaultDriftAllowance     = 2 * time.Millisecond
	defaultStoreTimeoutFactor = 0.1
	defaultMinStoreTimeout    = 5 * time.Millisecond
)

// Config holds the immutable settings of a Redlock coordinator.
type Config struct {
	// Addresses lists the store endpoints. It is only read by helpers that
	// dial the stores themselves; New takes already built stores.
	Addresses []string
	// RetryCount is the number of additional attempts after the first one.
	RetryCount int
	// RetryDelay is the base pause between attempts.
	RetryDelay time.Duration
	// RetryJitter is the upper bound of a uniform random delay added to
	// RetryDelay.
	RetryJitter time.Duration
	// DriftFactor is multiplied by the ttl and subtracted from the validity.
	DriftFactor float64
	// DriftAllowance is a fixed amount subtracted from the validity on top
	// of the drift factor.
	DriftAllowance time.Duration
	// StoreTimeoutFactor is the per-store call timeout as a fraction of the
	// ttl. Zero selects 0.1.
	StoreTimeoutFactor float64
	// MinStoreTimeout is the lower bound of the per-store timeout.
	MinStoreTimeout time.Duration
}

// DefaultConfig returns a configuration for a single local Redis instance.
func DefaultConfig() Config {
	return Config{
		Addresses:          []string{"127.0.0.1:6379"},
		RetryCount:         defaultRetryCount,
		RetryDelay:         defaultRetryDelay,
		RetryJitter:        defaultRetryJitter,
		DriftFactor:        defaultDriftFactor,
		DriftAllowance:     defaultDriftAllowance,
		StoreTimeoutFactor: defaultStoreTimeoutFactor,
		MinStoreTimeout:    defaultMinStoreTimeout,
	}
}

// Validate reports the first invalid field as a *ConfigError.
func (c Config) Validate() error {
	switch {
	case c.RetryCount < 0:
		return &ConfigError{Field: "retry_count", Reason: "must not be negative"}
	case c.RetryDelay < 0:
		return &ConfigError{Field: "retry_delay", Reason: "must not be negative"}
	case c.RetryJitter < 0:
		return &ConfigError{Field: "retry_jitter", Reason: "must not be negative"}
	case c.DriftFactor < 0 || math.IsNaN(c.DriftFactor) || math.IsInf(c.DriftFactor, 0):
		return &ConfigError{Field: "drift_factor", Reason: "must be a finite value >= 0"}
	case c.DriftAllowance < 0:
		return &ConfigError{Field: "drift_allowance", Reason: "must not be negative"}
	case c.StoreTimeoutFactor < 0 || c.StoreTimeoutFactor >= 1 || math.IsNaN(c.StoreTimeoutFactor):
		return &ConfigError{Field: "store_timeout_factor", Reason: "must be in [0, 1)"}
	case c.MinStoreTimeout < 0:
		return &ConfigError{Field: "min_store_timeout", Reason: "must not be negative"}
	}
	return nil
}

// ValidateAddresses checks Validate and additionally requires at least one
// store address.
func (c Config) ValidateAddresses() error {
	if len(c.Addresses) == 0 {
		return &ConfigError{Field: "addresses", Reason: "at least one address is required"}
	}
	for _, a := range c.Addresses {
		if a == "" {
			return &ConfigError{Field: "addresses", Reason: "empty address"}
		}
	}
	return c.Validate()
}

func (c Config) withDefaults() Config {
	if c.StoreTimeoutFactor == 0 {
		c.StoreTimeoutFactor = defaultStoreTimeoutFactor
	}
	c.Addresses = append([]string(nil), c.Addresses...)
	return c
}

// drift is the part of the ttl reserved for clock drift between stores. It
// saturates at ttl, so an oversized factor or allowance leaves no validity.
func (c Config) drift(ttl time.Duration) time.Duration {
	d := float64(ttl)*c.DriftFactor + float64(c.DriftAllowance)
	if d >= float64(ttl) {
		return ttl
	}
	return time.Duration(d)
}

// storeTimeout bounds a single store call. The result is always strictly
// less than ttl.
func (c Config) storeTimeout(ttl time.Duration) time.Duration {
	t := time.Duration(float64(ttl) * c.StoreTimeoutFactor)
	if t < c.MinStoreTimeout {
		t = c.MinStoreTimeout
	}
	if t >= ttl {
		t = ttl / 2
	}
	return t
}
