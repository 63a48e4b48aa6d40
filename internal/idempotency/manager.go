// Package idempotency runs an operation at most once per key.
package idempotency

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// ErrRequestInProgress is returned while another caller holds the key.
var ErrRequestInProgress = errors.New("request with this key is already in progress")

// DefaultLockTTL bounds how long a crashed executor can hold a key.
const DefaultLockTTL = 5 * time.Minute

// Operation is the guarded unit of work.
type Operation func(ctx context.Context) error

// Result reports whether the operation ran or was already completed earlier.
type Result struct {
	Duplicate bool
}

type Manager interface {
	Execute(ctx context.Context, key string, ttl time.Duration, fn Operation) (*Result, error)
}

type manager struct {
	store   Store
	log     *slog.Logger
	lockTTL time.Duration
}

func NewManager(store Store, log *slog.Logger) Manager {
	if log == nil {
		log = slog.Default()
	}

	return &manager{
		store:   store,
		log:     log,
		lockTTL: DefaultLockTTL,
	}
}

// Execute runs fn unless key is already completed or locked. A failed fn
// releases the key so the update can be retried.
func (m *manager) Execute(ctx context.Context, key string, ttl time.Duration, fn Operation) (*Result, error) {
	if fn == nil {
		return nil, errors.New("operation fn cannot be nil")
	}

	record, err := m.store.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if record != nil && record.Status == StatusCompleted {
		return &Result{Duplicate: true}, nil
	}

	locked, err := m.store.Lock(ctx, key, m.lockTTL)
	if err != nil {
		return nil, err
	}
	if !locked {
		return nil, ErrRequestInProgress
	}

	releaseCtx := context.WithoutCancel(ctx)
	defer func() {
		if err := m.store.ReleaseLock(releaseCtx, key); err != nil {
			m.log.Warn("failed to release idempotency lock", slog.String("key", key), slog.Any("error", err))
		}
	}()

	if err := fn(ctx); err != nil {
		return nil, err
	}

	if err := m.store.Set(releaseCtx, key, &Record{
		Status:      StatusCompleted,
		CompletedAt: time.Now().UTC(),
	}, ttl); err != nil {
		return nil, err
	}

	return &Result{}, nil
}
