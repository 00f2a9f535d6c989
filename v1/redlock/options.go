package redlock

import (
	"io"
	"log/slog"

	"github.com/mirkobrombin/go-redlock/v1/clock"
)

// Option configures a Redlock.
type Option func(*Redlock)

// WithRandom sets the source used for tokens and retry jitter. The default
// is crypto/rand. Tests may pass a seeded reader to make tokens and delays
// reproducible.
func WithRandom(r io.Reader) Option {
	return func(rl *Redlock) {
		if r != nil {
			rl.random = r
		}
	}
}

// WithClock sets the time source used to measure attempt duration.
func WithClock(c clock.Clock) Option {
	return func(rl *Redlock) {
		if c != nil {
			rl.clock = c
		}
	}
}

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(rl *Redlock) {
		if l != nil {
			rl.logger = l
		}
	}
}

// WithTracing enables OpenTelemetry spans for Acquire, Extend and Release.
func WithTracing() Option {
	return func(rl *Redlock) {
		rl.traceEnabled = true
	}
}
