// Package session provides the opaque per-browser key/value store that
// carries the OAuth token and user id between requests.
package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/justestif/daily-song/internal/shared"
)

var (
	// ErrKeyNotFound is returned when a session has no value for a key.
	ErrKeyNotFound = errors.New("session key not found")

	// ErrNoSession is returned when a request carries no session.
	ErrNoSession = fmt.Errorf("%w: no session", shared.ErrAuth)
)

// Backend stores session values keyed by session id.
// Implementations must be safe for concurrent use.
type Backend interface {
	Get(ctx context.Context, sessionID, key string) ([]byte, error)
	Set(ctx context.Context, sessionID, key string, value []byte) error
	Delete(ctx context.Context, sessionID string) error
}

// Session is a handle on one browser's values in a Backend.
type Session struct {
	id      string
	backend Backend
}

// New returns a handle for sessionID.
func New(sessionID string, backend Backend) *Session {
	return &Session{id: sessionID, backend: backend}
}

// ID returns the session id.
func (s *Session) ID() string {
	return s.id
}

// Get returns the value stored under key, or ErrKeyNotFound.
func (s *Session) Get(ctx context.Context, key string) ([]byte, error) {
	return s.backend.Get(ctx, s.id, key)
}

// Set stores value under key, replacing any previous value.
func (s *Session) Set(ctx context.Context, key string, value []byte) error {
	return s.backend.Set(ctx, s.id, key, value)
}

// Clear removes every value in the session.
func (s *Session) Clear(ctx context.Context) error {
	return s.backend.Delete(ctx, s.id)
}
