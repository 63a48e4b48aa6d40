package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Proton-105/giftshop-bot/pkg/config"
)

func TestMemoryLimiter(t *testing.T) {
	c := &clock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	limiter := NewMemoryLimiter()
	limiter.now = c.Now
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		result, err := limiter.Check(ctx, "k", 2, time.Minute)
		require.NoError(t, err)
		assert.True(t, result.Allowed)
	}

	result, err := limiter.Check(ctx, "k", 2, time.Minute)
	assert.ErrorIs(t, err, ErrLimitExceeded)
	assert.False(t, result.Allowed)
	assert.Equal(t, 0, result.Remaining)

	c.Advance(time.Minute + time.Millisecond)
	result, err = limiter.Check(ctx, "k", 2, time.Minute)
	require.NoError(t, err)
	assert.True(t, result.Allowed)
}

func TestMemoryLimiterCleanup(t *testing.T) {
	c := &clock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	limiter := NewMemoryLimiter()
	limiter.now = c.Now

	_, _ = limiter.Check(context.Background(), "old", 5, time.Minute)
	c.Advance(10 * time.Minute)
	_, _ = limiter.Check(context.Background(), "new", 5, time.Minute)

	assert.Equal(t, 1, limiter.Cleanup(5*time.Minute))
	assert.Equal(t, 0, limiter.Cleanup(5*time.Minute))
}

type failingLimiter struct{}

func (failingLimiter) Check(context.Context, string, int, time.Duration) (*Result, error) {
	return nil, assert.AnError
}

func TestAdaptiveLimiterFallsBackAtHalfBudget(t *testing.T) {
	limiter := NewAdaptiveLimiter(failingLimiter{}, NewMemoryLimiter(), testLogger())
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := limiter.Check(ctx, "k", 4, time.Minute)
		require.NoError(t, err)
	}

	result, err := limiter.Check(ctx, "k", 4, time.Minute)
	assert.ErrorIs(t, err, ErrLimitExceeded)
	assert.False(t, result.Allowed)
}

func TestAdaptiveLimiterPrimary(t *testing.T) {
	client, _ := setupTestRedis(t)
	limiter := NewAdaptiveLimiter(NewRedisLimiter(client, testLogger()), NewMemoryLimiter(), testLogger())
	ctx := context.Background()

	_, err := limiter.Check(ctx, "k", 1, time.Minute)
	require.NoError(t, err)

	result, err := limiter.Check(ctx, "k", 1, time.Minute)
	assert.ErrorIs(t, err, ErrLimitExceeded)
	assert.False(t, result.Allowed)
}

func TestAdaptiveLimiterWithoutPrimary(t *testing.T) {
	limiter := NewAdaptiveLimiter(nil, NewMemoryLimiter(), testLogger())

	for i := 0; i < 3; i++ {
		_, err := limiter.Check(context.Background(), "k", 3, time.Minute)
		require.NoError(t, err)
	}
}

func TestRules(t *testing.T) {
	rules := NewRules(config.RateLimitConfig{
		Enabled:   true,
		Requests:  20,
		Window:    time.Minute,
		Whitelist: []int64{7},
	})

	assert.True(t, rules.Enabled())
	assert.True(t, rules.IsWhitelisted(7))
	assert.False(t, rules.IsWhitelisted(8))

	limit, window := rules.PerUser()
	assert.Equal(t, 20, limit)
	assert.Equal(t, time.Minute, window)

	assert.False(t, NewRules(config.RateLimitConfig{Requests: 20, Window: time.Minute}).Enabled())
	assert.False(t, (*Rules)(nil).Enabled())
}

func TestCleanerRemovesIdleRedisKeys(t *testing.T) {
	client, mr := setupTestRedis(t)
	c := &clock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}

	limiter := NewRedisLimiter(client, testLogger())
	limiter.now = c.Now
	_, err := limiter.Check(context.Background(), "user:9", 5, time.Minute)
	require.NoError(t, err)

	c.Advance(10 * time.Minute)
	cleaner := NewCleaner(client, nil, testLogger(), time.Minute, 5*time.Minute)
	cleaner.now = c.Now

	assert.Equal(t, 1, cleaner.Cleanup(context.Background()))
	assert.False(t, mr.Exists(KeyPrefix+"user:9"))
}
