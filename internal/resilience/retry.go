// Package resilience holds the two failure-handling strategies the agents
// share: exponential-backoff retry for uploads and a two-tier model fallback
// for generation calls.
package resilience

import (
	"context"
	"time"
)

// RetryOptions configures Retry.
type RetryOptions struct {
	MaxAttempts int
	BaseDelay   time.Duration
	// OnRetry runs after a failed attempt that will be retried, before the
	// backoff sleep. attempt is 1-based.
	OnRetry func(ctx context.Context, attempt int, err error)
	// Sleep waits for d or until ctx is done. Defaults to a timer-based wait.
	Sleep func(ctx context.Context, d time.Duration) error
}

// Backoff returns the delay after the given 1-based failed attempt:
// base * 2^(attempt-1).
func Backoff(base time.Duration, attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	return base << (attempt - 1)
}

// Retry runs op until it succeeds or MaxAttempts attempts have failed, in
// which case it returns *UploadExhaustedError. A cancelled context stops the
// loop with the context's error.
func Retry[T any](ctx context.Context, op func(ctx context.Context) (T, error), opts RetryOptions) (T, error) {
	var zero T
	attempts := opts.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	sleep := opts.Sleep
	if sleep == nil {
		sleep = sleepCtx
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		v, err := op(ctx)
		if err == nil {
			return v, nil
		}
		lastErr = err
		if attempt == attempts {
			break
		}
		if opts.OnRetry != nil {
			opts.OnRetry(ctx, attempt, err)
		}
		if err := sleep(ctx, Backoff(opts.BaseDelay, attempt)); err != nil {
			return zero, err
		}
	}
	return zero, &UploadExhaustedError{Attempts: attempts, LastMessage: lastErr.Error(), Last: lastErr}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
