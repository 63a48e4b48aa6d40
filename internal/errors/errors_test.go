package errors

import (
	"context"
	stdErrors "errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppErrorUnwrap(t *testing.T) {
	cause := stdErrors.New("connection refused")
	err := NewExternalAPIError("getAvailableGifts", cause, true)

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, CodeExternalAPI, err.Code)
	assert.Contains(t, err.Error(), "getAvailableGifts")
	assert.True(t, IsRetryable(err))
	assert.False(t, IsRetryable(NewExternalAPIError("sendGift", cause, false)))
	assert.False(t, IsRetryable(cause))
	assert.False(t, IsRetryable(nil))
}

func TestHandlerReturnsUserKey(t *testing.T) {
	h := NewHandler(slog.New(slog.NewTextHandler(io.Discard, nil)), false)
	ctx := context.Background()

	key, retry := h.Handle(ctx, NewRateLimitError(3))
	assert.Equal(t, "errors.rate_limited", key)
	assert.False(t, retry)

	key, retry = h.Handle(ctx, NewDatabaseError(stdErrors.New("timeout")))
	assert.Equal(t, "errors.temporary", key)
	assert.True(t, retry)

	key, _ = h.Handle(ctx, stdErrors.New("plain"))
	assert.Equal(t, GenericUserKey, key)

	key, _ = h.Handle(ctx, nil)
	assert.Empty(t, key)
}

func TestWithRetry(t *testing.T) {
	t.Run("retryable then success", func(t *testing.T) {
		var calls int
		err := WithRetry(context.Background(), func() error {
			calls++
			if calls < 2 {
				return NewExternalAPIError("x", nil, true)
			}
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, 2, calls)
	})

	t.Run("non retryable stops", func(t *testing.T) {
		var calls int
		err := WithRetry(context.Background(), func() error {
			calls++
			return NewValidationError("bad")
		})
		assert.Error(t, err)
		assert.Equal(t, 1, calls)
	})

	t.Run("cancelled context stops waiting", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		var calls int
		err := WithRetry(ctx, func() error {
			calls++
			cancel()
			return NewExternalAPIError("x", nil, true)
		})
		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, 1, calls)
	})
}

func TestCircuitBreaker(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cb := NewCircuitBreakerWithConfig(CircuitBreakerConfig{MinRequests: 4, Timeout: time.Minute, HalfOpenMaxRequests: 2})
	cb.now = func() time.Time { return now }

	failure := stdErrors.New("down")
	for i := 0; i < 4; i++ {
		_ = cb.Call(func() error { return failure })
	}
	require.Equal(t, StateOpen, cb.State())

	called := false
	err := cb.Call(func() error { called = true; return nil })
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.False(t, called)

	now = now.Add(time.Minute)
	require.NoError(t, cb.Call(func() error { return nil }))
	assert.Equal(t, StateHalfOpen, cb.State())
	require.NoError(t, cb.Call(func() error { return nil }))
	assert.Equal(t, StateClosed, cb.State())
	assert.Equal(t, "closed", cb.State().String())
}
