package rpc

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetry_PermanentErrorNotRetried(t *testing.T) {
	t.Parallel()
	permanent := errors.New("bad request")
	calls := 0
	_, err := retry(context.Background(), fastRetry(), func() (int, time.Duration, error) {
		calls++
		return 0, 0, permanent
	})
	require.ErrorIs(t, err, permanent)
	assert.Equal(t, 1, calls)
}

func TestRetry_EventualSuccess(t *testing.T) {
	t.Parallel()
	calls := 0
	got, err := retry(context.Background(), fastRetry(), func() (string, time.Duration, error) {
		calls++
		if calls < 3 {
			return "", 0, markRetryable(errors.New("flaky"))
		}
		return "ok", 0, nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", got)
	assert.Equal(t, 3, calls)
}

func TestRetry_ContextCanceledDuringBackoff(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	cfg := RetryConfig{MaxAttempts: 5, BaseDelay: time.Hour, MaxDelay: time.Hour}
	_, err := retry(ctx, cfg, func() (int, time.Duration, error) {
		cancel()
		return 0, 0, markRetryable(errors.New("flaky"))
	})
	require.ErrorIs(t, err, context.Canceled)
}

func TestRetry_ZeroAttemptsRunsOnce(t *testing.T) {
	t.Parallel()
	calls := 0
	_, _ = retry(context.Background(), RetryConfig{}, func() (int, time.Duration, error) {
		calls++
		return 0, 0, markRetryable(errors.New("flaky"))
	})
	assert.Equal(t, 1, calls)
}

func TestBackoff(t *testing.T) {
	t.Parallel()
	for attempt := range 6 {
		d := backoff(attempt, 100*time.Millisecond, time.Second)
		full := min(100*time.Millisecond<<attempt, time.Second)
		assert.GreaterOrEqual(t, d, full/2)
		assert.Less(t, d, full)
	}
	assert.Equal(t, time.Duration(0), backoff(3, 0, time.Second))
}

func TestParseRetryAfter(t *testing.T) {
	t.Parallel()
	assert.Equal(t, 2*time.Second, parseRetryAfter("2"))
	assert.Equal(t, time.Duration(0), parseRetryAfter(""))
	assert.Equal(t, time.Duration(0), parseRetryAfter("Wed, 21 Oct 2015 07:28:00 GMT"))
	assert.Equal(t, time.Duration(0), parseRetryAfter("-1"))
}

func TestRateLimiter(t *testing.T) {
	t.Parallel()
	rl := NewRateLimiter(1, 2)
	assert.True(t, rl.Allow("a"))
	assert.True(t, rl.Allow("a"))
	assert.False(t, rl.Allow("a"), "burst exhausted")
	assert.True(t, rl.Allow("b"), "endpoints have separate buckets")

	unlimited := NewRateLimiter(0, 0)
	for range 100 {
		require.True(t, unlimited.Allow("a"))
	}
	require.NoError(t, DefaultRateLimiter().Wait(context.Background(), "a"))
}
