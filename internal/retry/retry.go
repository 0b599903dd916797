package retry

import (
	"context"
	"errors"
	"time"

	"wsb-sentiment/internal/types"
)

// Policy is a bounded retry policy for external calls. Retries are for
// transient network and rate-limit errors only, not throughput.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// DefaultPolicy matches the run-level defaults: up to 3 attempts with
// exponential backoff starting at 500ms.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: 3,
		BaseDelay:   500 * time.Millisecond,
		MaxDelay:    10 * time.Second,
	}
}

// Do runs fn until it succeeds, a non-retryable error occurs, attempts are
// exhausted, or the context is cancelled. The last error is returned.
func (p Policy) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	delay := p.BaseDelay
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if !Retryable(lastErr) {
			return lastErr
		}
		if attempt == attempts {
			break
		}

		wait := delay
		var rle *types.RateLimitError
		if errors.As(lastErr, &rle) && rle.RetryAfter > wait {
			wait = rle.RetryAfter
		}
		if p.MaxDelay > 0 && wait > p.MaxDelay {
			wait = p.MaxDelay
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}

		delay *= 2
		if p.MaxDelay > 0 && delay > p.MaxDelay {
			delay = p.MaxDelay
		}
	}
	return lastErr
}

// Retryable reports whether an error is worth another attempt.
// Authentication failures are fatal and item-level errors are skips;
// neither improves with retries.
func Retryable(err error) bool {
	var authErr *types.AuthError
	if errors.As(err, &authErr) {
		return false
	}
	var unavailable *types.DataUnavailableError
	if errors.As(err, &unavailable) {
		return false
	}
	var malformed *types.MalformedItemError
	if errors.As(err, &malformed) {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	return true
}
