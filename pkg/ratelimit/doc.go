// Package ratelimit paces outgoing Bot API calls.
//
// TokenBucket refills continuously and allows bursts up to its capacity.
// Wait honours context cancellation, so a cancelled session never blocks on
// the limiter.
//
// Usage:
//
//	limiter := ratelimit.PerSecond(20)
//	if err := limiter.Wait(ctx); err != nil {
//	    return err
//	}
//	// issue getFile
package ratelimit
