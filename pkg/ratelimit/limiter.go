package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Limiter defines the interface for rate limiting
type Limiter interface {
	// Allow checks if a request is allowed under the current rate limit
	Allow() bool
	// Wait blocks until the rate limit allows another request or ctx ends
	Wait(ctx context.Context) error
	// Reset resets the rate limiter state
	Reset()
}

// TokenBucket refills continuously at rate tokens per second up to capacity
type TokenBucket struct {
	capacity   float64
	tokens     float64
	rate       float64
	lastRefill time.Time
	mu         sync.Mutex
}

// NewTokenBucket creates a full bucket. capacity below 1 is raised to 1.
func NewTokenBucket(capacity int, perSecond float64) *TokenBucket {
	if capacity < 1 {
		capacity = 1
	}
	return &TokenBucket{
		capacity:   float64(capacity),
		tokens:     float64(capacity),
		rate:       perSecond,
		lastRefill: time.Now(),
	}
}

// PerSecond returns a bucket allowing n requests per second with bursts of n,
// or an unlimited limiter when n <= 0
func PerSecond(n float64) Limiter {
	if n <= 0 {
		return Unlimited{}
	}
	burst := int(n)
	if burst < 1 {
		burst = 1
	}
	return NewTokenBucket(burst, n)
}

// Allow checks if a request can proceed
func (tb *TokenBucket) Allow() bool {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	tb.refill(time.Now())

	if tb.tokens >= 1 {
		tb.tokens--
		return true
	}
	return false
}

// Wait blocks until a token is available
func (tb *TokenBucket) Wait(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if tb.Allow() {
			return nil
		}

		timer := time.NewTimer(tb.untilNextToken())
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		}
	}
}

// Reset resets the token bucket to full capacity
func (tb *TokenBucket) Reset() {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	tb.tokens = tb.capacity
	tb.lastRefill = time.Now()
}

func (tb *TokenBucket) refill(now time.Time) {
	elapsed := now.Sub(tb.lastRefill).Seconds()
	if elapsed <= 0 {
		return
	}
	tb.tokens += elapsed * tb.rate
	if tb.tokens > tb.capacity {
		tb.tokens = tb.capacity
	}
	tb.lastRefill = now
}

func (tb *TokenBucket) untilNextToken() time.Duration {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	if tb.rate <= 0 {
		return 100 * time.Millisecond
	}
	missing := 1 - tb.tokens
	if missing <= 0 {
		return time.Millisecond
	}
	return time.Duration(missing / tb.rate * float64(time.Second))
}

// Unlimited never blocks
type Unlimited struct{}

func (Unlimited) Allow() bool                    { return true }
func (Unlimited) Wait(ctx context.Context) error { return ctx.Err() }
func (Unlimited) Reset()                         {}
