package state

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	sessionLockKeyPattern = "wizard:lock:%d"
	lockTTL               = 5 * time.Second
	localLockToken        = "local"
)

var (
	// ErrInvalidTransition indicates that a requested FSM transition is not allowed.
	ErrInvalidTransition = errors.New("invalid state transition")
	// ErrSessionNotFound indicates that no session is stored for the user.
	ErrSessionNotFound = errors.New("wizard session not found")
	// ErrStateLocked indicates that a concurrent operation already holds the lock.
	ErrStateLocked = errors.New("state is locked, try again later")
)

// unlockScript releases the lock only when it is still owned by the caller.
var unlockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

var transitionRecorder = func(from, to string) {}

// RegisterTransitionRecorder allows external packages to observe FSM transitions.
func RegisterTransitionRecorder(recorder func(from, to string)) {
	if recorder == nil {
		transitionRecorder = func(string, string) {}
		return
	}

	transitionRecorder = recorder
}

// UpdateFunc receives a copy of the current session and returns the next one.
// Returning nil or an idle session clears the stored record.
type UpdateFunc func(current *Session) (*Session, error)

// StateMachine describes the operations supported by the FSM controller.
type StateMachine interface {
	// Current returns the stored session or a fresh idle one.
	Current(ctx context.Context, userID int64) (*Session, error)
	// Update runs fn under the per-user lock and persists its result.
	Update(ctx context.Context, userID int64, fn UpdateFunc) error
	ClearSession(ctx context.Context, userID int64) error
	// ExpireSession clears the session under the lock if it was last updated
	// before idleSince. It reports whether a session was removed.
	ExpireSession(ctx context.Context, userID int64, idleSince time.Time) (bool, error)
	GetAllSessions(ctx context.Context) ([]*Session, error)
}

// machine is a concrete implementation of StateMachine backed by Storage and Redis locking.
type machine struct {
	storage     Storage
	log         *slog.Logger
	redisClient *redis.Client
	local       sync.Map // int64 -> *sync.Mutex, used without redis
	now         func() time.Time
}

// NewStateMachine creates a FSM controller using the provided storage backend.
// A nil redis client replaces the distributed lock with a per-process one.
func NewStateMachine(storage Storage, log *slog.Logger, redisClient *redis.Client) StateMachine {
	if log == nil {
		log = slog.Default()
	}

	return &machine{
		storage:     storage,
		log:         log,
		redisClient: redisClient,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

func (m *machine) Current(ctx context.Context, userID int64) (*Session, error) {
	session, err := m.storage.GetSession(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return NewSession(userID), nil
		}
		return nil, err
	}

	if session == nil {
		return NewSession(userID), nil
	}

	return session, nil
}

// GetAllSessions returns every persisted session.
func (m *machine) GetAllSessions(ctx context.Context) ([]*Session, error) {
	return m.storage.GetAllSessions(ctx)
}

func (m *machine) Update(ctx context.Context, userID int64, fn UpdateFunc) error {
	token, err := m.lock(ctx, userID)
	if err != nil {
		return err
	}
	defer m.unlock(ctx, userID, token)

	current, err := m.Current(ctx, userID)
	if err != nil {
		return err
	}

	next, err := fn(current.Clone())
	if err != nil {
		return err
	}

	if next == nil || next.State == StateIdle {
		if current.State != StateIdle {
			transitionRecorder(string(current.State), string(StateIdle))
		}
		return m.storage.ClearSession(ctx, userID)
	}

	if !IsTransitionAllowed(current.State, next.State) {
		m.log.Warn("invalid state transition", "user_id", userID, "from", current.State, "to", next.State)
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current.State, next.State)
	}

	if current.State != next.State {
		transitionRecorder(string(current.State), string(next.State))
	}

	next.UserID = userID
	next.UpdatedAt = m.now()

	return m.storage.SetSession(ctx, next)
}

// ClearSession removes the stored session via the backing storage while holding the lock.
func (m *machine) ClearSession(ctx context.Context, userID int64) error {
	token, err := m.lock(ctx, userID)
	if err != nil {
		return err
	}
	defer m.unlock(ctx, userID, token)

	return m.storage.ClearSession(ctx, userID)
}

func (m *machine) ExpireSession(ctx context.Context, userID int64, idleSince time.Time) (bool, error) {
	token, err := m.lock(ctx, userID)
	if err != nil {
		return false, err
	}
	defer m.unlock(ctx, userID, token)

	session, err := m.storage.GetSession(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return false, nil
		}
		return false, err
	}
	if session == nil || !session.UpdatedAt.Before(idleSince) {
		return false, nil
	}

	if err := m.storage.ClearSession(ctx, userID); err != nil {
		return false, err
	}
	if session.State != StateIdle {
		transitionRecorder(string(session.State), string(StateIdle))
	}

	return true, nil
}

func (m *machine) lock(ctx context.Context, userID int64) (string, error) {
	if m.redisClient == nil {
		mu, _ := m.local.LoadOrStore(userID, &sync.Mutex{})
		if !mu.(*sync.Mutex).TryLock() {
			return "", ErrStateLocked
		}
		return localLockToken, nil
	}

	token := uuid.NewString()
	key := fmt.Sprintf(sessionLockKeyPattern, userID)
	acquired, err := m.redisClient.SetNX(ctx, key, token, lockTTL).Result()
	if err != nil {
		m.log.Error("failed to acquire session lock", "user_id", userID, "error", err)
		return "", err
	}

	if !acquired {
		m.log.Warn("session lock already held", "user_id", userID)
		return "", ErrStateLocked
	}

	return token, nil
}

func (m *machine) unlock(ctx context.Context, userID int64, token string) {
	if token == "" {
		return
	}
	if m.redisClient == nil {
		if mu, ok := m.local.Load(userID); ok {
			mu.(*sync.Mutex).Unlock()
		}
		return
	}

	key := fmt.Sprintf(sessionLockKeyPattern, userID)
	if err := unlockScript.Run(context.WithoutCancel(ctx), m.redisClient, []string{key}, token).Err(); err != nil {
		m.log.Error("failed to release session lock", "user_id", userID, "error", err)
	}
}
