package rpc

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strconv"
	"time"
)

// errRetryable marks transient transport failures.
var errRetryable = errors.New("retryable")

// RetryConfig bounds retries of transient failures.
type RetryConfig struct {
	MaxAttempts int           // including the first
	BaseDelay   time.Duration // doubled per attempt
	MaxDelay    time.Duration
}

// DefaultRetryConfig makes 3 attempts with delays of roughly 250ms and 500ms.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts: 3,
		BaseDelay:   250 * time.Millisecond,
		MaxDelay:    2 * time.Second,
	}
}

// retry runs op until it succeeds, fails permanently or attempts run out.
// A server-provided Retry-After overrides the computed backoff.
func retry[T any](ctx context.Context, cfg RetryConfig, op func() (T, time.Duration, error)) (T, error) {
	var (
		result T
		err    error
		after  time.Duration
	)
	attempts := max(cfg.MaxAttempts, 1)

	for attempt := range attempts {
		result, after, err = op()
		if err == nil || !isRetryable(err) {
			return result, err
		}
		if attempt == attempts-1 {
			break
		}

		delay := after
		if delay <= 0 {
			delay = backoff(attempt, cfg.BaseDelay, cfg.MaxDelay)
		}
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return result, ctx.Err()
		case <-timer.C:
		}
	}

	return result, fmt.Errorf("request failed after %d attempts: %w", attempts, err)
}

// backoff returns a jittered delay in [d/2, d) where d = base * 2^attempt.
func backoff(attempt int, base, limit time.Duration) time.Duration {
	if base <= 0 {
		return 0
	}
	d := base << attempt
	if limit > 0 && d > limit {
		d = limit
	}
	half := d / 2
	if half <= 0 {
		return d
	}
	return half + rand.N(half) //nolint:gosec // G404: jitter does not need crypto randomness
}

func isRetryable(err error) bool {
	return errors.Is(err, errRetryable)
}

func markRetryable(err error) error {
	return fmt.Errorf("%w: %w", errRetryable, err)
}

// parseRetryAfter reads a Retry-After header given in seconds.
func parseRetryAfter(header string) time.Duration {
	seconds, err := strconv.Atoi(header)
	if err != nil || seconds < 0 {
		return 0
	}
	return time.Duration(seconds) * time.Second
}
