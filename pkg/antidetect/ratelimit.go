package antidetect

import (
	"sync"
	"time"

	"golang.org/x/time/rate"

	"context"
)

// RateLimiter spaces actions at least minDelay apart and stretches the gap
// exponentially while failures accumulate. Successes decay the failure
// counter back down.
type RateLimiter struct {
	mu       sync.Mutex
	limiter  *rate.Limiter
	minDelay time.Duration
	maxDelay time.Duration
	failures int
}

func NewRateLimiter(minDelay, maxDelay time.Duration) *RateLimiter {
	if minDelay <= 0 {
		minDelay = time.Second
	}
	if maxDelay < minDelay {
		maxDelay = minDelay
	}
	return &RateLimiter{
		limiter:  rate.NewLimiter(rate.Every(minDelay), 1),
		minDelay: minDelay,
		maxDelay: maxDelay,
	}
}

// NextDelay returns the currently computed inter-action delay.
func (r *RateLimiter) NextDelay() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.nextDelayLocked()
}

func (r *RateLimiter) nextDelayLocked() time.Duration {
	d := r.minDelay
	for i := 0; i < r.failures; i++ {
		d *= 2
		if d >= r.maxDelay {
			return r.maxDelay
		}
	}
	return d
}

// Wait blocks until the next action is allowed. The x/time limiter enforces
// the minDelay floor; any backoff beyond the floor is waited out first.
func (r *RateLimiter) Wait(ctx context.Context) error {
	r.mu.Lock()
	extra := r.nextDelayLocked() - r.minDelay
	r.mu.Unlock()

	if extra > 0 {
		timer := time.NewTimer(extra)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return r.limiter.Wait(ctx)
}

// RecordFailure increases the backoff.
func (r *RateLimiter) RecordFailure() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failures++
}

// RecordSuccess decays the backoff one step.
func (r *RateLimiter) RecordSuccess() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failures > 0 {
		r.failures--
	}
}

// Failures returns the current failure count.
func (r *RateLimiter) Failures() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.failures
}
