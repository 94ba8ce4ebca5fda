package session

import "context"

// Store persists sessions by token.
type Store interface {
	// Create stores a new session.
	Create(ctx context.Context, s *Session) error
	// Get returns a copy of the session for token.
	Get(ctx context.Context, token string) (*Session, error)
	// Update replaces an existing session. Missing sessions yield ErrSessionNotFound.
	Update(ctx context.Context, s *Session) error
	// Delete removes a session. Deleting a missing token is not an error.
	Delete(ctx context.Context, token string) error
}
