package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/cardpass/pass-issuer/internal/pass"
)

// Defaults for the issuance quota.
const (
	DefaultQuota  = 10
	DefaultWindow = time.Hour
)

const keyPrefix = "issuance:"

// Decision is the outcome of one Allow call.
type Decision struct {
	Allowed bool

	// Limit is the quota per window. Zero when the limiter is disabled.
	Limit int

	// Remaining is how many more attempts the identity can make in the current window.
	Remaining int

	ResetAt    time.Time
	RetryAfter time.Duration
}

// Limiter applies a fixed quota per window to each caller identity.
type Limiter struct {
	store  Store
	quota  int
	window time.Duration
	now    func() time.Time
}

// NewLimiter returns a limiter allowing quota attempts per window per identity.
// A quota <= 0 disables the limiter.
func NewLimiter(store Store, quota int, window time.Duration) *Limiter {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Limiter{store: store, quota: quota, window: window, now: time.Now}
}

// WithClock sets the time source used to stamp attempts.
func (l *Limiter) WithClock(now func() time.Time) *Limiter {
	l.now = now
	return l
}

// Enabled reports whether the limiter enforces a quota.
func (l *Limiter) Enabled() bool {
	return l != nil && l.quota > 0 && l.store != nil
}

// Allow records an attempt for identity and reports whether it is within the quota.
//
// The attempt is counted even when it is denied, and is never refunded. A denied attempt returns
// a rate limit error; a store failure returns an internal error and the request is not allowed.
func (l *Limiter) Allow(ctx context.Context, identity string) (Decision, error) {
	if !l.Enabled() {
		return Decision{Allowed: true}, nil
	}
	if identity == "" {
		return Decision{}, pass.NewInternalError("rate limit identity is empty")
	}

	now := l.now()
	counter, err := l.store.Increment(ctx, keyPrefix+identity, l.window, now)
	if err != nil {
		return Decision{}, pass.WrapInternalError(err, "rate limit check failed")
	}

	d := Decision{
		Allowed:   counter.Count <= int64(l.quota),
		Limit:     l.quota,
		Remaining: max(0, l.quota-int(counter.Count)),
		ResetAt:   counter.ResetAt,
	}

	if !d.Allowed {
		d.RetryAfter = max(counter.ResetAt.Sub(now), time.Second)
		return d, pass.NewRateLimitError(
			fmt.Sprintf("issuance quota of %d per %s exceeded", l.quota, l.window),
			d.RetryAfter,
		)
	}
	return d, nil
}
