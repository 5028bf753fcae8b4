package provider

import (
	"context"
	"sync"
	"time"
)

// RateLimiter spaces outbound calls at least minInterval apart. Every caller
// sharing a limiter shares the same last-call timestamp, so the spacing holds
// across providers and goroutines.
type RateLimiter struct {
	mu          sync.Mutex
	minInterval time.Duration
	lastCall    time.Time
}

// NewRateLimiter creates a limiter that allows one call per minInterval.
func NewRateLimiter(minInterval time.Duration) *RateLimiter {
	return &RateLimiter{minInterval: minInterval}
}

// Wait blocks until minInterval has passed since the previous call or ctx is cancelled.
// The lock is held while sleeping so concurrent callers queue up behind each other.
func (r *RateLimiter) Wait(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.lastCall.IsZero() {
		wait := r.minInterval - time.Since(r.lastCall)
		if wait > 0 {
			timer := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
		}
	}
	r.lastCall = time.Now()
	return nil
}

func (r *RateLimiter) MinInterval() time.Duration {
	return r.minInterval
}
