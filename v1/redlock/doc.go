// Package redlock implements the Redlock distributed mutual exclusion
// algorithm over N independent key-value stores.
//
// A lock is acquired by writing a fresh random token to every store with
// SET-if-absent semantics. The attempt wins only if a strict majority of the
// stores accepted the token and, after subtracting the time the attempt took
// and an allowance for clock drift, some validity is left. Losing attempts
// clean up after themselves on every store and retry after a randomized
// delay. Release deletes the key only where it still holds the lock token, so
// an expired lock can never remove another holder's entry.
//
// The approach does not provide consensus. A store that loses its data on
// restart while a lock is held can let a second client acquire the same
// resource. Callers must stop protected work once Lock.Validity has elapsed.
package redlock
