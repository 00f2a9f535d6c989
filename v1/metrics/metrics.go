package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	// AcquireTotal counts Acquire calls by outcome ("acquired" or "failed").
	AcquireTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "redlock_acquire_total",
		Help: "Total number of lock acquisitions by outcome",
	}, []string{"status"})
	// AcquireAttempts observes how many attempts an Acquire call needed.
	AcquireAttempts = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "redlock_acquire_attempts",
		Help:    "Number of attempts per lock acquisition",
		Buckets: []float64{1, 2, 3, 5, 8, 13},
	})
	// AcquireDuration observes the wall time of Acquire calls, retries included.
	AcquireDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "redlock_acquire_duration_seconds",
		Help:    "Time taken to acquire a lock",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
	})
	// ExtendTotal counts Extend calls by outcome.
	ExtendTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "redlock_extend_total",
		Help: "Total number of lock extensions by outcome",
	}, []string{"status"})
	// ReleaseTotal counts Release calls.
	ReleaseTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "redlock_release_total",
		Help: "Total number of lock releases",
	})
	// StoreErrors counts per-store failures by operation.
	StoreErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "redlock_store_errors_total",
		Help: "Total number of failed store calls",
	}, []string{"op"})
)

// NewRegistry creates a new Prometheus registry.
func NewRegistry() *prometheus.Registry {
	return prometheus.NewRegistry()
}

// RegisterLockMetrics registers the lock metrics on the provided registry.
func RegisterLockMetrics(reg prometheus.Registerer) {
	reg.MustRegister(AcquireTotal, AcquireAttempts, AcquireDuration, ExtendTotal, ReleaseTotal, StoreErrors)
}
