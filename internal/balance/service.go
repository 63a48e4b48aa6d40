// Package balance keeps the bot's star balance cached for menu rendering.
package balance

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/Proton-105/giftshop-bot/internal/cache"
	apperrors "github.com/Proton-105/giftshop-bot/internal/errors"
)

const (
	cacheKey   = "stars"
	DefaultTTL = 10 * time.Minute
)

// Reader fetches the live balance.
type Reader interface {
	StarBalance(ctx context.Context) (int64, error)
}

// Service refreshes the balance through a circuit breaker and serves the last known value.
type Service struct {
	reader  Reader
	cache   *cache.Cache
	breaker *apperrors.CircuitBreaker
	log     *slog.Logger
	ttl     time.Duration

	last  atomic.Int64
	known atomic.Bool
}

// NewService builds a Service. A nil cache keeps the balance in memory only.
func NewService(reader Reader, c *cache.Cache, breaker *apperrors.CircuitBreaker, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	if breaker == nil {
		breaker = apperrors.NewCircuitBreaker()
	}

	return &Service{
		reader:  reader,
		cache:   c,
		breaker: breaker,
		log:     log.With(slog.String("component", "balance")),
		ttl:     DefaultTTL,
	}
}

// Refresh reloads the balance. While the breaker is open it fails fast with ErrCircuitOpen.
func (s *Service) Refresh(ctx context.Context) error {
	var value int64
	err := s.breaker.Call(func() error {
		v, err := s.reader.StarBalance(ctx)
		if err != nil {
			return err
		}
		value = v
		return nil
	})
	if err != nil {
		return err
	}

	s.last.Store(value)
	s.known.Store(true)

	if err := s.cache.SetInt64(ctx, cacheKey, value, s.ttl); err != nil {
		s.log.Warn("failed to cache balance", slog.Any("error", err))
	}

	s.log.Debug("balance refreshed", slog.Int64("balance", value))
	return nil
}

// Current returns the last known balance, or nil when it was never fetched.
func (s *Service) Current(ctx context.Context) *int64 {
	value, ok, err := s.cache.GetInt64(ctx, cacheKey)
	if err != nil {
		s.log.Warn("failed to read cached balance", slog.Any("error", err))
	}
	if ok {
		return &value
	}

	if s.known.Load() {
		v := s.last.Load()
		return &v
	}

	return nil
}
