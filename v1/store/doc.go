// Package store defines the per-node capability a Redlock coordinator needs
// from each backing key-value store, together with a Redis implementation,
// an in-memory implementation and decorators that inject faults or trip a
// circuit breaker. Every operation is a single atomic step on the store side.
package store
