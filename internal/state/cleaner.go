package state

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// Sweeper lists sessions and expires one of them under its lock. StateMachine satisfies it.
type Sweeper interface {
	GetAllSessions(ctx context.Context) ([]*Session, error)
	ExpireSession(ctx context.Context, userID int64, idleSince time.Time) (bool, error)
}

// Cleaner removes sessions idle for longer than ttl on a schedule.
type Cleaner struct {
	sessions Sweeper
	log      *slog.Logger
	ttl      time.Duration
	interval time.Duration
	now      func() time.Time
}

// NewCleaner constructs a Cleaner instance.
func NewCleaner(sessions Sweeper, log *slog.Logger, ttl, interval time.Duration) *Cleaner {
	if log == nil {
		log = slog.Default()
	}
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	if interval <= 0 {
		interval = time.Minute
	}

	return &Cleaner{
		sessions: sessions,
		log:      log,
		ttl:      ttl,
		interval: interval,
		now:      time.Now,
	}
}

// Run starts the cleanup loop until the context is cancelled.
func (c *Cleaner) Run(ctx context.Context) {
	if c == nil || c.sessions == nil {
		return
	}

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.log.Info("session cleaner stopped", slog.Any("reason", ctx.Err()))
			return
		case <-ticker.C:
			c.Cleanup(ctx)
		}
	}
}

// Cleanup performs a single sweep and returns the number of removed sessions.
func (c *Cleaner) Cleanup(ctx context.Context) int {
	if ctx.Err() != nil {
		return 0
	}

	sessions, err := c.sessions.GetAllSessions(ctx)
	if err != nil {
		c.log.Error("session cleaner failed to list sessions", slog.Any("error", err))
		return 0
	}

	idleSince := c.now().Add(-c.ttl)

	var removed int
	for _, session := range sessions {
		if session == nil || !session.UpdatedAt.Before(idleSince) {
			continue
		}

		expired, err := c.sessions.ExpireSession(ctx, session.UserID, idleSince)
		switch {
		case errors.Is(err, ErrStateLocked):
			// in use right now, so not idle
			continue
		case err != nil:
			c.log.Error("session cleaner failed to clear session", slog.Int64("user_id", session.UserID), slog.Any("error", err))
			continue
		case !expired:
			continue
		}

		removed++
		c.log.Info("expired session cleared", slog.Int64("user_id", session.UserID), slog.String("state", string(session.State)))
	}

	return removed
}
