package usecase

import (
	"context"
	"fmt"
	"time"
)

// RetryPolicy is an exponential backoff: the wait after the nth failed attempt is
// Multiplier*2^(n-1) clamped to [Min, Max].
type RetryPolicy struct {
	MaxAttempts int
	Multiplier  time.Duration
	Min         time.Duration
	Max         time.Duration
}

// DefaultRetryPolicy returns 3 attempts with waits between 4s and 10s
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		Multiplier:  time.Second,
		Min:         4 * time.Second,
		Max:         10 * time.Second,
	}
}

// Delay returns the wait after the given failed attempt (1-based)
func (p RetryPolicy) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}

	delay := p.Max
	// Larger shifts overflow; they are capped at Max anyway
	if attempt <= 32 {
		if d := p.Multiplier * time.Duration(uint64(1)<<(attempt-1)); d > 0 && d < p.Max {
			delay = d
		}
	}
	if delay < p.Min {
		delay = p.Min
	}
	return delay
}

// Do calls fn until it succeeds or MaxAttempts is reached. onRetry runs after
// every failed attempt that will be retried. The final error wraps ErrPersistExhausted.
func (p RetryPolicy) Do(
	ctx context.Context,
	sleep func(ctx context.Context, d time.Duration) error,
	onRetry func(attempt int, delay time.Duration, err error),
	fn func(ctx context.Context) error,
) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if lastErr = fn(ctx); lastErr == nil {
			return nil
		}
		if attempt == attempts {
			break
		}

		delay := p.Delay(attempt)
		if onRetry != nil {
			onRetry(attempt, delay, lastErr)
		}
		if err := sleep(ctx, delay); err != nil {
			return fmt.Errorf("retry interrupted after %d attempts: %w", attempt, lastErr)
		}
	}

	return fmt.Errorf("%w after %d attempts: %w", ErrPersistExhausted, attempts, lastErr)
}

// sleepContext waits for d or until ctx is done
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
