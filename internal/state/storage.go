// Package state manages per-user wizard sessions and their state transitions.
package state

import "context"

// Storage defines the persistence contract for wizard sessions.
type Storage interface {
	// GetSession returns the session for the user or ErrSessionNotFound.
	GetSession(ctx context.Context, userID int64) (*Session, error)
	// SetSession saves the session for session.UserID.
	SetSession(ctx context.Context, session *Session) error
	// ClearSession removes the session for the user. Clearing a missing session is not an error.
	ClearSession(ctx context.Context, userID int64) error
	// GetAllSessions returns every stored session.
	GetAllSessions(ctx context.Context) ([]*Session, error)
}
