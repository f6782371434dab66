package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"

	"github.com/justestif/daily-song/internal/db"
	"github.com/justestif/daily-song/internal/shared"
)

const (
	defaultHTTPTimeout = 10 * time.Second

	// defaultRefreshTimeout bounds a shared refresh, which outlives the
	// request that started it.
	defaultRefreshTimeout = 15 * time.Second
)

var (
	// ErrMissingCredentials is returned when the client id or secret is empty.
	ErrMissingCredentials = errors.New("missing Spotify client id or secret")

	// ErrExchange is returned when the authorization code is rejected.
	ErrExchange = fmt.Errorf("%w: exchanging authorization code", shared.ErrAuth)

	// ErrRefresh is returned when an expired token cannot be refreshed.
	ErrRefresh = fmt.Errorf("%w: refreshing token", shared.ErrAuth)
)

// Config holds Spotify OAuth settings. AuthURL and TokenURL default to
// Spotify's accounts service.
type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	AuthURL      string
	TokenURL     string
	HTTPClient   *http.Client
}

// Manager exchanges authorization codes and keeps session tokens fresh.
type Manager struct {
	oauth      *oauth2.Config
	httpClient *http.Client
	users      db.UserStore
	refreshes      singleflight.Group
	refreshTimeout time.Duration
	now            func() time.Time
}

// NewManager creates a Manager that records tokens in users.
func NewManager(cfg Config, users db.UserStore) (*Manager, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, ErrMissingCredentials
	}
	if cfg.AuthURL == "" {
		cfg.AuthURL = spotifyauth.AuthURL
	}
	if cfg.TokenURL == "" {
		cfg.TokenURL = spotifyauth.TokenURL
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultHTTPTimeout}
	}

	return &Manager{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes: []string{
				spotifyauth.ScopeUserReadPrivate,
				spotifyauth.ScopePlaylistModifyPublic,
				spotifyauth.ScopePlaylistModifyPrivate,
			},
			Endpoint: oauth2.Endpoint{
				AuthURL:   cfg.AuthURL,
				TokenURL:  cfg.TokenURL,
				AuthStyle: oauth2.AuthStyleInHeader,
			},
		},
		httpClient:     httpClient,
		users:          users,
		refreshTimeout: defaultRefreshTimeout,
		now:            time.Now,
	}, nil
}

// AuthURL returns the Spotify authorize URL for state.
func (m *Manager) AuthURL(state string) string {
	return m.oauth.AuthCodeURL(state)
}

func (m *Manager) clientContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, m.httpClient)
}

// Login exchanges code for a token, stores it in the session, and records
// the user. A session that already names a user updates that user instead
// of creating a new one.
func (m *Manager) Login(ctx context.Context, s Session, code string) (*db.User, error) {
	raw, err := m.oauth.Exchange(m.clientContext(ctx), code)
	if err != nil {
		loginsTotal.WithLabelValues("exchange_failed").Inc()
		return nil, fmt.Errorf("%w: %w", ErrExchange, err)
	}
	token := FromOAuth2(raw, m.now())

	if err := WriteToken(ctx, s, token); err != nil {
		return nil, err
	}

	if id, err := ReadUserID(ctx, s); err == nil {
		existing, err := m.users.Get(ctx, id)
		switch {
		case err == nil:
			user := token.userRow(existing.ID)
			user.CreatedAt = existing.CreatedAt
			if err := m.users.UpdateToken(ctx, user); err != nil {
				return nil, err
			}
			loginsTotal.WithLabelValues("success").Inc()
			return user, nil
		case !errors.Is(err, db.ErrNotFound):
			return nil, err
		}
		log.Debug().Int64("user_id", id).Msg("session names a missing user, creating a new one")
	}

	user := token.userRow(0)
	if err := m.users.Create(ctx, user); err != nil {
		return nil, err
	}
	if err := WriteUserID(ctx, s, user.ID); err != nil {
		return nil, err
	}

	loginsTotal.WithLabelValues("success").Inc()
	log.Info().Int64("user_id", user.ID).Object("token", token).Msg("user logged in")
	return user, nil
}

// ValidToken returns the session's token, refreshing it first when it has
// expired. Concurrent callers on the same session share one refresh, which
// keeps running if the caller that started it goes away.
func (m *Manager) ValidToken(ctx context.Context, s Session) (*Token, error) {
	token, err := ReadToken(ctx, s)
	if err != nil {
		return nil, err
	}
	if !token.Expired(m.now()) {
		return token, nil
	}

	v, err, _ := m.refreshes.Do(s.ID(), func() (any, error) {
		flightCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.refreshTimeout)
		defer cancel()

		// A flight that finished just before this one may already have
		// stored a fresh token.
		current, err := ReadToken(flightCtx, s)
		if err != nil {
			return nil, err
		}
		if !current.Expired(m.now()) {
			return current, nil
		}
		return m.refresh(flightCtx, s, current)
	})
	if err != nil {
		return nil, err
	}
	return v.(*Token), nil
}

func (m *Manager) refresh(ctx context.Context, s Session, expired *Token) (*Token, error) {
	if expired.RefreshToken == "" {
		refreshesTotal.WithLabelValues("no_refresh_token").Inc()
		return nil, fmt.Errorf("%w: no refresh token", ErrRefresh)
	}

	src := m.oauth.TokenSource(m.clientContext(ctx), &oauth2.Token{RefreshToken: expired.RefreshToken})
	raw, err := src.Token()
	if err != nil {
		refreshesTotal.WithLabelValues("failed").Inc()
		return nil, fmt.Errorf("%w: %w", ErrRefresh, err)
	}

	token := FromOAuth2(raw, m.now())
	if token.RefreshToken == "" {
		token.RefreshToken = expired.RefreshToken
	}
	if len(token.Scopes) == 0 {
		token.Scopes = expired.Scopes
	}

	if err := WriteToken(ctx, s, token); err != nil {
		return nil, err
	}

	if userID, err := ReadUserID(ctx, s); err == nil {
		if err := m.users.UpdateToken(ctx, token.userRow(userID)); err != nil {
			// The session already holds the new token, so the request can proceed.
			log.Error().Err(err).Int64("user_id", userID).Msg("recording refreshed token")
		}
	}

	refreshesTotal.WithLabelValues("success").Inc()
	log.Debug().Str("session_id", s.ID()).Object("token", token).Msg("token refreshed")
	return token, nil
}

// NewState creates a random state string for OAuth.
func NewState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
