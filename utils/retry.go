package utils

import (
	"context"
	"fmt"
	"time"
)

// Backoff returns how long to wait after the given failed attempt (1-based).
type Backoff func(attempt int) time.Duration

// Exponential doubles the wait after every attempt: base*2, base*4, base*8...
func Exponential(base time.Duration) Backoff {
	return func(attempt int) time.Duration {
		return base * time.Duration(1<<uint(attempt))
	}
}

// Fixed waits the same amount after every attempt.
func Fixed(d time.Duration) Backoff {
	return func(int) time.Duration { return d }
}

// Retry runs fn up to maxRetries times and stops at the first success.
// Between failures it waits according to backoff; a cancelled context
// aborts the wait and returns the context error.
//
// Usage:
//
//	err := utils.Retry(ctx, 3, utils.Fixed(2*time.Second), func() error {
//	    return compareOnce(ctx)
//	})
func Retry(ctx context.Context, maxRetries int, backoff Backoff, fn func() error) error {
	if maxRetries < 1 {
		maxRetries = 1
	}

	var lastErr error
	for attempt := 1; attempt <= maxRetries; attempt++ {
		lastErr = fn()
		if lastErr == nil {
			return nil
		}

		if attempt < maxRetries {
			wait := backoff(attempt)
			Warn("Attempt %d/%d failed: %v, retrying in %v", attempt, maxRetries, lastErr, wait)
			timer := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
		}
	}

	return fmt.Errorf("all %d attempts failed, last error: %w", maxRetries, lastErr)
}
