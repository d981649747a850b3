package util

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Limiter is a token bucket. A non-positive rate disables limiting.
type Limiter struct {
	inner *rate.Limiter
}

// NewLimiter creates a limiter that refills r tokens per second up to burst b.
func NewLimiter(r float64, b int) *Limiter {
	limit := rate.Limit(r)
	if r <= 0 {
		limit = rate.Inf
	}
	if b < 1 {
		b = 1
	}
	return &Limiter{inner: rate.NewLimiter(limit, b)}
}

// Allow reports whether n tokens are available now and consumes them if so.
func (l *Limiter) Allow(n int) bool {
	return l.inner.AllowN(time.Now(), n)
}

// Wait blocks until n tokens are available or ctx is done.
func (l *Limiter) Wait(ctx context.Context, n int) error {
	return l.inner.WaitN(ctx, n)
}

// Take consumes one token, waiting when none is available. throttled is true
// when the caller had to wait.
func (l *Limiter) Take(ctx context.Context) (throttled bool, err error) {
	if l.Allow(1) {
		return false, nil
	}
	return true, l.Wait(ctx, 1)
}
