// Package retry runs an operation with bounded attempts and exponential
// backoff. Hosted embedding and generation APIs rate-limit aggressively,
// so transient failures are the norm rather than the exception.
package retry

import (
	"context"
	"time"
)

const (
	baseDelay = 200 * time.Millisecond
	maxDelay  = 5 * time.Second
)

// Policy bounds the retry loop. A zero Policy performs a single attempt.
type Policy struct {
	// MaxAttempts is the total number of tries, including the first.
	MaxAttempts int
	// Retryable reports whether an error is worth another attempt.
	// A nil Retryable treats every error as transient.
	Retryable func(error) bool
}

// Do invokes fn up to p.MaxAttempts times, sleeping with exponential
// backoff between attempts. It returns nil as soon as fn succeeds, the
// last error once attempts are exhausted or the error is not retryable,
// and ctx.Err() if the context is done while waiting.
func (p Policy) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(delay(attempt - 1)):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		if err = fn(ctx); err == nil {
			return nil
		}
		if p.Retryable != nil && !p.Retryable(err) {
			return err
		}
	}
	return err
}

// delay is exponential in the attempt number, capped at maxDelay.
func delay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	d := baseDelay << attempt
	if d > maxDelay || d <= 0 {
		d = maxDelay
	}
	return d
}
