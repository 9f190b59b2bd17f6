package sqlite

import (
	"math/rand"
	"strings"
	"time"
)

// retryConfig controls retry behavior for transient SQLite errors.
type retryConfig struct {
	maxRetries int
	baseDelay  time.Duration
	maxDelay   time.Duration
}

var defaultRetryConfig = retryConfig{
	maxRetries: 3,
	baseDelay:  50 * time.Millisecond,
	maxDelay:   500 * time.Millisecond,
}

// isTransient reports whether the error is a transient SQLite condition
// that retrying can resolve. The busy_timeout pragma handles most
// SQLITE_BUSY cases at the connection level; this covers lock conflicts
// that fall through it under WAL contention.
func isTransient(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	for _, pattern := range []string{
		"SQLITE_BUSY",
		"SQLITE_LOCKED",
		"database is locked",
		"database table is locked",
	} {
		if strings.Contains(msg, pattern) {
			return true
		}
	}
	return false
}

// retryOnContention runs fn, retrying transient SQLite errors with
// exponential backoff and jitter. Non-transient errors return
// immediately.
func retryOnContention(fn func() error) error {
	cfg := defaultRetryConfig
	var err error
	for attempt := 0; ; attempt++ {
		err = fn()
		if err == nil || !isTransient(err) || attempt >= cfg.maxRetries {
			return err
		}
		delay := cfg.baseDelay << attempt
		if delay > cfg.maxDelay {
			delay = cfg.maxDelay
		}
		delay += time.Duration(rand.Int63n(int64(cfg.baseDelay)))
		time.Sleep(delay)
	}
}
