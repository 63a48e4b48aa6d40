package state

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Proton-105/giftshop-bot/internal/domain"
)

var errStorageFailure = errors.New("storage error")

type mockStorage struct {
	mock.Mock
}

func (m *mockStorage) GetSession(ctx context.Context, userID int64) (*Session, error) {
	args := m.Called(ctx, userID)
	session, _ := args.Get(0).(*Session)
	return session, args.Error(1)
}

func (m *mockStorage) SetSession(ctx context.Context, session *Session) error {
	args := m.Called(ctx, session)
	return args.Error(0)
}

func (m *mockStorage) ClearSession(ctx context.Context, userID int64) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

func (m *mockStorage) GetAllSessions(ctx context.Context) ([]*Session, error) {
	args := m.Called(ctx)
	sessions, _ := args.Get(0).([]*Session)
	return sessions, args.Error(1)
}

func TestStateMachine_Update(t *testing.T) {
	ctx := context.Background()
	userID := int64(42)

	catalog := []domain.CatalogItem{{ID: "1", Emoji: "💝", Price: 15}}

	testCases := []struct {
		name        string
		setupMocks  func(ms *mockStorage)
		next        func(current *Session) (*Session, error)
		expectedErr error
	}{
		{
			name: "new user opens catalog",
			setupMocks: func(ms *mockStorage) {
				ms.On("GetSession", mock.Anything, userID).
					Return((*Session)(nil), ErrSessionNotFound).Once()
				ms.On("SetSession", mock.Anything, mock.MatchedBy(func(s *Session) bool {
					return s.UserID == userID && s.State == StateSelectingQuantity && len(s.Catalog) == 1 && !s.UpdatedAt.IsZero()
				})).Return(nil).Once()
			},
			next: func(current *Session) (*Session, error) {
				current.State = StateSelectingQuantity
				current.Catalog = catalog
				return current, nil
			},
		},
		{
			name: "invalid transition",
			setupMocks: func(ms *mockStorage) {
				ms.On("GetSession", mock.Anything, userID).
					Return(&Session{UserID: userID, State: StateIdle}, nil).Once()
			},
			next: func(current *Session) (*Session, error) {
				current.State = StateAwaitingConfirmation
				return current, nil
			},
			expectedErr: ErrInvalidTransition,
		},
		{
			name: "idle result clears session",
			setupMocks: func(ms *mockStorage) {
				ms.On("GetSession", mock.Anything, userID).
					Return(&Session{UserID: userID, State: StateAwaitingConfirmation, Catalog: catalog}, nil).Once()
				ms.On("ClearSession", mock.Anything, userID).Return(nil).Once()
			},
			next: func(*Session) (*Session, error) {
				return nil, nil
			},
		},
		{
			name: "update func error is returned unchanged",
			setupMocks: func(ms *mockStorage) {
				ms.On("GetSession", mock.Anything, userID).
					Return(&Session{UserID: userID, State: StateIdle}, nil).Once()
			},
			next: func(*Session) (*Session, error) {
				return nil, errStorageFailure
			},
			expectedErr: errStorageFailure,
		},
		{
			name: "storage read failure",
			setupMocks: func(ms *mockStorage) {
				ms.On("GetSession", mock.Anything, userID).
					Return((*Session)(nil), errStorageFailure).Once()
			},
			next: func(current *Session) (*Session, error) {
				t.Fatal("update func must not run when the session cannot be loaded")
				return current, nil
			},
			expectedErr: errStorageFailure,
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			ms := &mockStorage{}
			tc.setupMocks(ms)

			fsm := NewStateMachine(ms, testLogger(), nil)
			err := fsm.Update(ctx, userID, tc.next)

			if tc.expectedErr != nil {
				assert.ErrorIs(t, err, tc.expectedErr)
			} else {
				assert.NoError(t, err)
			}

			ms.AssertExpectations(t)
		})
	}
}

func TestStateMachine_UpdateWorksOnCopy(t *testing.T) {
	ctx := context.Background()
	storage := NewMemoryStorage()
	require.NoError(t, storage.SetSession(ctx, &Session{
		UserID:  5,
		State:   StateSelectingQuantity,
		Catalog: []domain.CatalogItem{{ID: "1", Price: 10}},
	}))

	fsm := NewStateMachine(storage, testLogger(), nil)
	err := fsm.Update(ctx, 5, func(current *Session) (*Session, error) {
		current.Catalog[0].Price = 999
		return nil, errStorageFailure
	})
	require.ErrorIs(t, err, errStorageFailure)

	stored, err := storage.GetSession(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, int64(10), stored.Catalog[0].Price)
}

func TestStateMachine_Current(t *testing.T) {
	ctx := context.Background()
	userID := int64(7)

	t.Run("stored session", func(t *testing.T) {
		ms := &mockStorage{}
		ms.On("GetSession", mock.Anything, userID).
			Return(&Session{UserID: userID, State: StateEnteringRecipient}, nil).Once()

		session, err := NewStateMachine(ms, testLogger(), nil).Current(ctx, userID)
		require.NoError(t, err)
		assert.Equal(t, StateEnteringRecipient, session.State)
		ms.AssertExpectations(t)
	})

	t.Run("missing session is idle", func(t *testing.T) {
		ms := &mockStorage{}
		ms.On("GetSession", mock.Anything, userID).
			Return((*Session)(nil), ErrSessionNotFound).Once()

		session, err := NewStateMachine(ms, testLogger(), nil).Current(ctx, userID)
		require.NoError(t, err)
		assert.Equal(t, StateIdle, session.State)
		assert.Equal(t, userID, session.UserID)
		assert.False(t, session.HasCatalog())
	})
}

func TestStateMachine_ClearSession(t *testing.T) {
	ctx := context.Background()
	userID := int64(13)

	testCases := []struct {
		name      string
		result    error
		expectErr error
	}{
		{name: "clear session success"},
		{name: "clear session error", result: errStorageFailure, expectErr: errStorageFailure},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			ms := &mockStorage{}
			ms.On("ClearSession", mock.Anything, userID).Return(tc.result).Once()

			err := NewStateMachine(ms, testLogger(), nil).ClearSession(ctx, userID)
			if tc.expectErr != nil {
				assert.ErrorIs(t, err, tc.expectErr)
			} else {
				assert.NoError(t, err)
			}

			ms.AssertExpectations(t)
		})
	}
}

func TestStateMachine_RecordsTransitions(t *testing.T) {
	var mu sync.Mutex
	var recorded []string
	RegisterTransitionRecorder(func(from, to string) {
		mu.Lock()
		defer mu.Unlock()
		recorded = append(recorded, from+">"+to)
	})
	t.Cleanup(func() { RegisterTransitionRecorder(nil) })

	ctx := context.Background()
	fsm := NewStateMachine(NewMemoryStorage(), testLogger(), nil)

	steps := []State{StateSelectingQuantity, StateSelectingQuantity, StateEnteringRecipient, StateIdle}
	for _, next := range steps {
		next := next
		require.NoError(t, fsm.Update(ctx, 1, func(current *Session) (*Session, error) {
			current.State = next
			return current, nil
		}))
	}

	assert.Equal(t, []string{
		"idle>selecting_quantity",
		"selecting_quantity>entering_recipient",
		"entering_recipient>idle",
	}, recorded)
}

func TestStateMachine_Lock(t *testing.T) {
	testCases := map[string]func(t *testing.T) *redis.Client{
		"redis": func(t *testing.T) *redis.Client {
			client, cleanup := setupTestRedis(t)
			t.Cleanup(cleanup)
			return client
		},
		"local": func(t *testing.T) *redis.Client { return nil },
	}

	for name, client := range testCases {
		t.Run(name, func(t *testing.T) {
			fsm := NewStateMachine(NewMemoryStorage(), testLogger(), client(t))

			ctx := context.Background()
			userID := int64(77)

			release := make(chan struct{})
			entered := make(chan struct{})
			firstErr := make(chan error, 1)

			go func() {
				firstErr <- fsm.Update(ctx, userID, func(current *Session) (*Session, error) {
					close(entered)
					<-release
					current.State = StateSelectingQuantity
					return current, nil
				})
			}()

			<-entered
			err := fsm.Update(ctx, userID, func(current *Session) (*Session, error) {
				return current, nil
			})
			assert.ErrorIs(t, err, ErrStateLocked)

			// other users are not blocked
			require.NoError(t, fsm.Update(ctx, userID+1, func(current *Session) (*Session, error) {
				return current, nil
			}))

			close(release)
			require.NoError(t, <-firstErr)

			// lock is released once the first update finishes
			require.NoError(t, fsm.Update(ctx, userID, func(current *Session) (*Session, error) {
				current.State = StateEnteringRecipient
				return current, nil
			}))
		})
	}
}

func TestStateMachine_UnlockKeepsForeignLock(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	t.Cleanup(cleanup)

	m := NewStateMachine(NewMemoryStorage(), testLogger(), client).(*machine)
	ctx := context.Background()

	token, err := m.lock(ctx, 9)
	require.NoError(t, err)

	m.unlock(ctx, 9, "someone-else")
	_, err = m.lock(ctx, 9)
	assert.ErrorIs(t, err, ErrStateLocked)

	m.unlock(ctx, 9, token)
	_, err = m.lock(ctx, 9)
	assert.NoError(t, err)
}

func setupTestRedis(t *testing.T) (*redis.Client, func()) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})

	cleanup := func() {
		_ = client.Close()
		mr.Close()
	}

	return client, cleanup
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func fixedClock(at time.Time) func() time.Time {
	return func() time.Time { return at }
}
