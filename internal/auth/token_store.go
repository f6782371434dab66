// Package auth manages the Spotify OAuth token lifecycle for browser sessions.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/justestif/daily-song/internal/session"
	"github.com/justestif/daily-song/internal/shared"
)

const (
	tokenKey  = "access_token"
	userIDKey = "user_id"
)

var (
	// ErrTokenNotFound is returned when the session holds no token.
	ErrTokenNotFound = fmt.Errorf("%w: no token in session", shared.ErrAuth)

	// ErrTokenEncode is returned when a token cannot be serialized.
	ErrTokenEncode = fmt.Errorf("%w: encoding token", shared.ErrAuth)

	// ErrTokenDecode is returned when the stored token bytes are corrupt.
	ErrTokenDecode = fmt.Errorf("%w: decoding token", shared.ErrAuth)

	// ErrNotAuthenticated is returned when the session has no user id.
	ErrNotAuthenticated = fmt.Errorf("%w: no user in session", shared.ErrAuth)
)

// Session is the subset of a browser session the token store needs.
type Session interface {
	ID() string
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
}

// WriteToken stores token in the session, replacing any previous token.
func WriteToken(ctx context.Context, s Session, token *Token) error {
	if token == nil {
		return fmt.Errorf("%w: nil token", ErrTokenEncode)
	}
	data, err := json.Marshal(token)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrTokenEncode, err)
	}
	if err := s.Set(ctx, tokenKey, data); err != nil {
		return fmt.Errorf("writing token to session: %w", err)
	}
	return nil
}

// ReadToken loads the session's token.
func ReadToken(ctx context.Context, s Session) (*Token, error) {
	data, err := s.Get(ctx, tokenKey)
	if errors.Is(err, session.ErrKeyNotFound) || (err == nil && len(data) == 0) {
		return nil, ErrTokenNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reading token from session: %w", err)
	}

	var token Token
	if err := json.Unmarshal(data, &token); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTokenDecode, err)
	}
	if token.AccessToken == "" {
		return nil, fmt.Errorf("%w: empty access token", ErrTokenDecode)
	}
	return &token, nil
}

// WriteUserID records which user the session belongs to.
func WriteUserID(ctx context.Context, s Session, userID int64) error {
	if err := s.Set(ctx, userIDKey, []byte(strconv.FormatInt(userID, 10))); err != nil {
		return fmt.Errorf("writing user id to session: %w", err)
	}
	return nil
}

// ReadUserID returns the session's user id or ErrNotAuthenticated.
func ReadUserID(ctx context.Context, s Session) (int64, error) {
	data, err := s.Get(ctx, userIDKey)
	if errors.Is(err, session.ErrKeyNotFound) {
		return 0, ErrNotAuthenticated
	}
	if err != nil {
		return 0, fmt.Errorf("reading user id from session: %w", err)
	}
	id, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: malformed user id", ErrNotAuthenticated)
	}
	return id, nil
}
