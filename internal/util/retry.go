package util

import (
	"context"
	"errors"
	"time"
)

// RetryWithBackoff calls fn up to maxTries times (at least once) until it
// returns a nil error, pausing delay between attempts. It stops early when
// ctx is done or fn returns a context error, and otherwise returns the last
// error.
func RetryWithBackoff[T any](ctx context.Context, maxTries int, delay time.Duration, fn func(context.Context) (T, error)) (T, error) {
	if maxTries <= 0 {
		maxTries = 1
	}

	var zero T
	var lastErr error
	for i := range maxTries {
		if err := ctx.Err(); err != nil {
			return zero, err
		}
		if i > 0 && delay > 0 {
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return zero, ctx.Err()
			case <-timer.C:
			}
		}

		result, err := fn(ctx)
		if err == nil {
			return result, nil
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return zero, err
		}
		lastErr = err
	}
	return zero, lastErr
}

// WaitFor polls check until it succeeds, waiting delay between attempts.
func WaitFor(ctx context.Context, maxTries int, delay time.Duration, check func(context.Context) error) error {
	_, err := RetryWithBackoff(ctx, maxTries, delay, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, check(ctx)
	})
	return err
}
