package embedding

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// DefaultRateLimitBackoff is how long calls pause after the provider reports throttling.
const DefaultRateLimitBackoff = 5 * time.Second

// RateLimiter throttles calls to the embedding provider.
// It uses a token bucket with an additional pause after a 429 response.
type RateLimiter struct {
	mu      sync.Mutex
	limiter *rate.Limiter
	retryAt time.Time
}

// NewRateLimiter creates a limiter allowing requestsPerSecond sustained calls.
// A value <= 0 disables throttling.
func NewRateLimiter(requestsPerSecond float64) *RateLimiter {
	limit := rate.Inf
	burst := 1
	if requestsPerSecond > 0 {
		limit = rate.Limit(requestsPerSecond)
		burst = max(1, int(requestsPerSecond))
	}
	return &RateLimiter{
		limiter: rate.NewLimiter(limit, burst),
	}
}

// Wait blocks until a request can be made without exceeding the rate limit.
// It also respects any pause set by RecordRateLimitError.
func (r *RateLimiter) Wait(ctx context.Context) error {
	r.mu.Lock()
	retryAt := r.retryAt
	r.mu.Unlock()

	if time.Now().Before(retryAt) {
		timer := time.NewTimer(time.Until(retryAt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}

	return r.limiter.Wait(ctx)
}

// RecordRateLimitError pauses all callers for d.
// A non-positive d uses DefaultRateLimitBackoff.
func (r *RateLimiter) RecordRateLimitError(d time.Duration) {
	if d <= 0 {
		d = DefaultRateLimitBackoff
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if until := time.Now().Add(d); until.After(r.retryAt) {
		r.retryAt = until
	}
}
