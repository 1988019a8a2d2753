// Package ratelimit enforces the per-identity pass issuance quota.
//
// Every issuance attempt increments the caller's counter, including attempts that are denied or
// later fail. Counters are fixed windows that start at the first attempt and reset lazily: the
// first attempt after a window has elapsed starts a new one.
package ratelimit

import (
	"context"
	"time"
)

// Counter is the state of one identity's window after an increment.
type Counter struct {
	// Count is the number of attempts in the current window, including the one just recorded.
	Count int64

	// ResetAt is when the current window ends.
	ResetAt time.Time
}

// Store increments counters atomically.
//
// Increment records one attempt for key and returns the resulting counter. If the window for key
// has elapsed at now, a new window starts with a count of 1. Concurrent increments of the same
// key must each observe a distinct count.
type Store interface {
	Increment(ctx context.Context, key string, window time.Duration, now time.Time) (Counter, error)
	Close() error
}
