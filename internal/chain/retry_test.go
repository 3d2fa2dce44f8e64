package chain_test

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/rpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/coinfund/internal/chain"
)

var errNonRetryable = errors.New("execution reverted")

func fastRetry() chain.RetryConfig {
	return chain.RetryConfig{MaxAttempts: 3, BaseDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond}
}

func TestRetry_SuccessFirstAttempt(t *testing.T) {
	t.Parallel()

	attempts := 0
	result, err := chain.RetryWithConfig(context.Background(), fastRetry(), func(context.Context) (string, error) {
		attempts++
		return "ok", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "ok", result)
	assert.Equal(t, 1, attempts)
}

func TestRetry_SuccessAfterTransientFailures(t *testing.T) {
	t.Parallel()

	attempts := 0
	result, err := chain.RetryWithConfig(context.Background(), fastRetry(), func(context.Context) (int, error) {
		attempts++
		if attempts < 3 {
			return 0, chain.ErrRateLimited
		}
		return 7, nil
	})

	require.NoError(t, err)
	assert.Equal(t, 7, result)
	assert.Equal(t, 3, attempts)
}

func TestRetry_NonRetryableStopsImmediately(t *testing.T) {
	t.Parallel()

	attempts := 0
	_, err := chain.RetryWithConfig(context.Background(), fastRetry(), func(context.Context) (string, error) {
		attempts++
		return "", errNonRetryable
	})

	require.ErrorIs(t, err, errNonRetryable)
	assert.Equal(t, 1, attempts)
}

func TestRetry_ExhaustsAttempts(t *testing.T) {
	t.Parallel()

	attempts := 0
	_, err := chain.RetryWithConfig(context.Background(), fastRetry(), func(context.Context) (string, error) {
		attempts++
		return "", chain.WrapRetryable(errNonRetryable)
	})

	require.Error(t, err)
	require.ErrorIs(t, err, errNonRetryable)
	assert.Contains(t, err.Error(), "after 3 attempts")
	assert.Equal(t, 3, attempts)
}

func TestRetry_ContextCanceled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cfg := chain.RetryConfig{MaxAttempts: 5, BaseDelay: time.Hour, MaxDelay: time.Hour}

	attempts := 0
	_, err := chain.RetryWithConfig(ctx, cfg, func(context.Context) (string, error) {
		attempts++
		cancel()
		return "", chain.ErrRetryable
	})

	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, attempts)
}

func TestIsRetryable(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"plain", errNonRetryable, false},
		{"marked retryable", chain.WrapRetryable(errNonRetryable), true},
		{"rate limited", chain.ErrRateLimited, true},
		{"deadline", context.DeadlineExceeded, true},
		{"http 429", rpc.HTTPError{StatusCode: http.StatusTooManyRequests}, true},
		{"http 502", rpc.HTTPError{StatusCode: http.StatusBadGateway}, true},
		{"http 400", rpc.HTTPError{StatusCode: http.StatusBadRequest}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, chain.IsRetryable(tt.err))
		})
	}
}
