package state

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleaner_Cleanup(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	storage := NewMemoryStorage()
	require.NoError(t, storage.SetSession(ctx, &Session{UserID: 1, State: StateSelectingQuantity, UpdatedAt: now.Add(-2 * time.Hour)}))
	require.NoError(t, storage.SetSession(ctx, &Session{UserID: 2, State: StateEnteringRecipient, UpdatedAt: now.Add(-10 * time.Minute)}))
	require.NoError(t, storage.SetSession(ctx, &Session{UserID: 3, State: StateAwaitingConfirmation, UpdatedAt: now.Add(-61 * time.Minute)}))

	cleaner := NewCleaner(NewStateMachine(storage, testLogger(), nil), testLogger(), time.Hour, time.Minute)
	cleaner.now = fixedClock(now)

	assert.Equal(t, 2, cleaner.Cleanup(ctx))

	sessions, err := storage.GetAllSessions(ctx)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, int64(2), sessions[0].UserID)
}

// staleListing returns a listing taken before the sessions were touched again.
type staleListing struct {
	StateMachine
	snapshot []*Session
}

func (s staleListing) GetAllSessions(context.Context) ([]*Session, error) {
	return s.snapshot, nil
}

func TestCleaner_KeepsSessionUpdatedAfterListing(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	storage := NewMemoryStorage()
	stale := &Session{UserID: 1, State: StateSelectingQuantity, UpdatedAt: now.Add(-2 * time.Hour)}
	require.NoError(t, storage.SetSession(ctx, stale))

	fsm := NewStateMachine(storage, testLogger(), nil)
	snapshot, err := fsm.GetAllSessions(ctx)
	require.NoError(t, err)

	// the user acts between the listing and the sweep
	require.NoError(t, storage.SetSession(ctx, &Session{UserID: 1, State: StateEnteringRecipient, UpdatedAt: now}))

	cleaner := NewCleaner(staleListing{StateMachine: fsm, snapshot: snapshot}, testLogger(), time.Hour, time.Minute)
	cleaner.now = fixedClock(now)

	assert.Zero(t, cleaner.Cleanup(ctx))

	session, err := fsm.Current(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, StateEnteringRecipient, session.State)
}

func TestCleaner_SkipsLockedSession(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	storage := NewMemoryStorage()
	require.NoError(t, storage.SetSession(ctx, &Session{UserID: 1, State: StateSelectingQuantity, UpdatedAt: now.Add(-2 * time.Hour)}))

	m := NewStateMachine(storage, testLogger(), nil).(*machine)
	token, err := m.lock(ctx, 1)
	require.NoError(t, err)

	cleaner := NewCleaner(m, testLogger(), time.Hour, time.Minute)
	cleaner.now = fixedClock(now)
	assert.Zero(t, cleaner.Cleanup(ctx))

	m.unlock(ctx, 1, token)
	assert.Equal(t, 1, cleaner.Cleanup(ctx))
}

func TestCleaner_CleanupCancelledContext(t *testing.T) {
	storage := NewMemoryStorage()
	require.NoError(t, storage.SetSession(context.Background(), &Session{UserID: 1, State: StateSelectingQuantity}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	cleaner := NewCleaner(NewStateMachine(storage, testLogger(), nil), testLogger(), time.Nanosecond, time.Minute)
	assert.Zero(t, cleaner.Cleanup(ctx))
}

func TestCleaner_RunStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	cleaner := NewCleaner(NewStateMachine(NewMemoryStorage(), testLogger(), nil), testLogger(), time.Hour, time.Millisecond)
	go func() {
		cleaner.Run(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("cleaner did not stop after cancellation")
	}
}
