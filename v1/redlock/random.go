package redlock

import (
	"encoding/binary"
	"encoding/hex"
	"io"
	"time"

	uuid "github.com/hashicorp/go-uuid"
)

// tokenSize is the number of random bytes in a lock token.
const tokenSize = 20

func (r *Redlock) newToken() (string, error) {
	r.randMu.Lock()
	defer r.randMu.Unlock()
	b, err := uuid.GenerateRandomBytesWithReader(tokenSize, r.random)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// retryDelay returns RetryDelay plus a uniform jitter in [0, RetryJitter].
// A failing random source drops the jitter rather than the retry.
func (r *Redlock) retryDelay() time.Duration {
	d := r.cfg.RetryDelay
	j := r.cfg.RetryJitter
	if j <= 0 {
		return d
	}
	var buf [8]byte
	r.randMu.Lock()
	_, err := io.ReadFull(r.random, buf[:])
	r.randMu.Unlock()
	if err != nil {
		r.logger.Warn("redlock: jitter source failed", "error", err)
		return d
	}
	n := binary.BigEndian.Uint64(buf[:])
	return d + time.Duration(n%(uint64(j)+1))
}
