package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/justestif/daily-song/internal/db/dbtest"
	"github.com/justestif/daily-song/internal/session"
	"github.com/justestif/daily-song/internal/shared"
)

func newSession(id string) *session.Session {
	return session.New(id, session.NewMemoryBackend(time.Hour))
}

func TestTokenStore_WriteAndRead(t *testing.T) {
	expiresAt := time.Date(2024, 1, 1, 13, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		token *Token
	}{
		{
			name: "all fields",
			token: &Token{
				AccessToken:  "test-access-token",
				TokenType:    "Bearer",
				ExpiresIn:    time.Hour,
				ExpiresAt:    &expiresAt,
				RefreshToken: "test-refresh-token",
				Scopes:       []string{"user-read-private", "playlist-modify-public"},
			},
		},
		{
			name: "optional fields absent",
			token: &Token{
				AccessToken: "access-only",
				TokenType:   "Bearer",
				ExpiresIn:   30 * time.Minute,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			s := newSession("s1")

			require.NoError(t, WriteToken(ctx, s, tt.token))

			loaded, err := ReadToken(ctx, s)
			require.NoError(t, err)
			assert.Equal(t, tt.token, loaded)
		})
	}
}

func TestTokenStore_Overwrites(t *testing.T) {
	ctx := context.Background()
	s := newSession("s1")

	require.NoError(t, WriteToken(ctx, s, &Token{AccessToken: "old"}))
	require.NoError(t, WriteToken(ctx, s, &Token{AccessToken: "new"}))

	loaded, err := ReadToken(ctx, s)
	require.NoError(t, err)
	assert.Equal(t, "new", loaded.AccessToken)
}

func TestTokenStore_Errors(t *testing.T) {
	ctx := context.Background()

	t.Run("missing", func(t *testing.T) {
		_, err := ReadToken(ctx, newSession("empty"))
		assert.ErrorIs(t, err, ErrTokenNotFound)
		assert.ErrorIs(t, err, shared.ErrAuth)
	})

	t.Run("corrupt", func(t *testing.T) {
		s := newSession("corrupt")
		require.NoError(t, s.Set(ctx, tokenKey, []byte("{not json")))

		_, err := ReadToken(ctx, s)
		assert.ErrorIs(t, err, ErrTokenDecode)
		assert.ErrorIs(t, err, shared.ErrAuth)
	})

	t.Run("nil token", func(t *testing.T) {
		err := WriteToken(ctx, newSession("nil"), nil)
		assert.ErrorIs(t, err, ErrTokenEncode)
	})

	t.Run("missing user id", func(t *testing.T) {
		_, err := ReadUserID(ctx, newSession("anon"))
		assert.ErrorIs(t, err, ErrNotAuthenticated)
	})
}

func TestUserIDRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newSession("s1")

	require.NoError(t, WriteUserID(ctx, s, 42))
	id, err := ReadUserID(ctx, s)
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)
}

func TestTokenNeverPrintsSecrets(t *testing.T) {
	tok := &Token{AccessToken: "super-secret", RefreshToken: "also-secret", TokenType: "Bearer"}

	for _, out := range []string{tok.String(), fmt.Sprintf("%v", tok), fmt.Sprintf("%#v", tok)} {
		assert.NotContains(t, out, "super-secret")
		assert.NotContains(t, out, "also-secret")
	}
}

func TestTokenExpired(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Second)
	future := now.Add(time.Second)

	assert.True(t, (&Token{ExpiresAt: &past}).Expired(now))
	assert.True(t, (&Token{ExpiresAt: &now}).Expired(now))
	assert.False(t, (&Token{ExpiresAt: &future}).Expired(now))
	assert.False(t, (&Token{}).Expired(now))
}

// tokenServer fakes Spotify's token endpoint.
type tokenServer struct {
	*httptest.Server
	refreshes atomic.Int32
	delay     time.Duration
	fail      bool
}

func newTokenServer(t *testing.T) *tokenServer {
	t.Helper()
	ts := &tokenServer{}
	ts.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if user, pass, ok := r.BasicAuth(); !ok || user != "client-id" || pass != "client-secret" {
			http.Error(w, "bad client", http.StatusUnauthorized)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		var body map[string]any

		switch r.Form.Get("grant_type") {
		case "authorization_code":
			if r.Form.Get("code") != "good-code" {
				w.WriteHeader(http.StatusBadRequest)
				_ = json.NewEncoder(w).Encode(map[string]string{"error": "invalid_grant"})
				return
			}
			body = map[string]any{
				"access_token":  "exchanged-access",
				"token_type":    "Bearer",
				"expires_in":    3600,
				"refresh_token": "exchanged-refresh",
				"scope":         "user-read-private playlist-modify-public",
			}
		case "refresh_token":
			n := ts.refreshes.Add(1)
			time.Sleep(ts.delay)
			if ts.fail {
				w.WriteHeader(http.StatusBadRequest)
				_ = json.NewEncoder(w).Encode(map[string]string{"error": "invalid_grant"})
				return
			}
			body = map[string]any{
				"access_token": fmt.Sprintf("refreshed-%d", n),
				"token_type":   "Bearer",
				"expires_in":   3600,
			}
		default:
			http.Error(w, "unsupported grant", http.StatusBadRequest)
			return
		}
		_ = json.NewEncoder(w).Encode(body)
	}))
	t.Cleanup(ts.Close)
	return ts
}

func newTestManager(t *testing.T, ts *tokenServer, store *dbtest.Store) *Manager {
	t.Helper()
	m, err := NewManager(Config{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		RedirectURL:  "http://127.0.0.1:8080/callback",
		AuthURL:      ts.URL + "/authorize",
		TokenURL:     ts.URL + "/api/token",
		HTTPClient:   ts.Client(),
	}, store.Users())
	require.NoError(t, err)
	return m
}

func TestNewManagerRequiresCredentials(t *testing.T) {
	_, err := NewManager(Config{ClientID: "id"}, dbtest.New().Users())
	assert.ErrorIs(t, err, ErrMissingCredentials)
}

func TestLogin(t *testing.T) {
	ctx := context.Background()
	ts := newTokenServer(t)
	store := dbtest.New()
	m := newTestManager(t, ts, store)
	s := newSession("s1")

	user, err := m.Login(ctx, s, "good-code")
	require.NoError(t, err)
	assert.NotZero(t, user.ID)

	tok, err := ReadToken(ctx, s)
	require.NoError(t, err)
	assert.Equal(t, "exchanged-access", tok.AccessToken)
	assert.Equal(t, "exchanged-refresh", tok.RefreshToken)
	assert.Equal(t, time.Hour, tok.ExpiresIn)
	assert.Equal(t, []string{"user-read-private", "playlist-modify-public"}, tok.Scopes)
	require.NotNil(t, tok.ExpiresAt)

	id, err := ReadUserID(ctx, s)
	require.NoError(t, err)
	assert.Equal(t, user.ID, id)

	stored, err := store.Users().Get(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "exchanged-access", stored.AccessToken)
	assert.Equal(t, 3600, stored.ExpiresIn)

	again, err := m.Login(ctx, s, "good-code")
	require.NoError(t, err)
	assert.Equal(t, user.ID, again.ID, "logging in again on the same session reuses the user")
}

func TestLoginWithMissingUserCreatesOne(t *testing.T) {
	ctx := context.Background()
	ts := newTokenServer(t)
	store := dbtest.New()
	m := newTestManager(t, ts, store)
	s := newSession("s1")
	require.NoError(t, WriteUserID(ctx, s, 999))

	user, err := m.Login(ctx, s, "good-code")
	require.NoError(t, err)
	assert.NotEqual(t, int64(999), user.ID)

	id, err := ReadUserID(ctx, s)
	require.NoError(t, err)
	assert.Equal(t, user.ID, id)

	_, err = store.Users().Get(ctx, user.ID)
	assert.NoError(t, err)
}

func TestLoginRejectedCode(t *testing.T) {
	ts := newTokenServer(t)
	m := newTestManager(t, ts, dbtest.New())
	s := newSession("s1")

	_, err := m.Login(context.Background(), s, "bad-code")
	assert.ErrorIs(t, err, ErrExchange)
	assert.ErrorIs(t, err, shared.ErrAuth)

	_, err = ReadToken(context.Background(), s)
	assert.ErrorIs(t, err, ErrTokenNotFound)
}

func TestValidToken(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Minute)
	future := now.Add(time.Minute)

	t.Run("fresh token is returned as is", func(t *testing.T) {
		ts := newTokenServer(t)
		m := newTestManager(t, ts, dbtest.New())
		m.now = func() time.Time { return now }
		s := newSession("s1")
		require.NoError(t, WriteToken(ctx, s, &Token{AccessToken: "fresh", ExpiresAt: &future, RefreshToken: "r"}))

		tok, err := m.ValidToken(ctx, s)
		require.NoError(t, err)
		assert.Equal(t, "fresh", tok.AccessToken)
		assert.Equal(t, int32(0), ts.refreshes.Load())
	})

	t.Run("expired token is refreshed and written back", func(t *testing.T) {
		ts := newTokenServer(t)
		store := dbtest.New()
		m := newTestManager(t, ts, store)
		m.now = func() time.Time { return now }

		user, err := m.Login(ctx, newSession("setup"), "good-code")
		require.NoError(t, err)

		s := newSession("s1")
		require.NoError(t, WriteUserID(ctx, s, user.ID))
		require.NoError(t, WriteToken(ctx, s, &Token{
			AccessToken:  "stale",
			ExpiresAt:    &past,
			RefreshToken: "keep-me",
			Scopes:       []string{"user-read-private"},
		}))

		tok, err := m.ValidToken(ctx, s)
		require.NoError(t, err)
		assert.Equal(t, "refreshed-1", tok.AccessToken)
		assert.Equal(t, "keep-me", tok.RefreshToken)
		assert.Equal(t, []string{"user-read-private"}, tok.Scopes)
		assert.Equal(t, int32(1), ts.refreshes.Load())

		stored, err := ReadToken(ctx, s)
		require.NoError(t, err)
		assert.Equal(t, "refreshed-1", stored.AccessToken)

		row, err := store.Users().Get(ctx, user.ID)
		require.NoError(t, err)
		assert.Equal(t, "refreshed-1", row.AccessToken)
	})

	t.Run("missing refresh token", func(t *testing.T) {
		ts := newTokenServer(t)
		m := newTestManager(t, ts, dbtest.New())
		m.now = func() time.Time { return now }
		s := newSession("s1")
		require.NoError(t, WriteToken(ctx, s, &Token{AccessToken: "stale", ExpiresAt: &past}))

		_, err := m.ValidToken(ctx, s)
		assert.ErrorIs(t, err, ErrRefresh)
		assert.Equal(t, int32(0), ts.refreshes.Load())
	})

	t.Run("refresh rejected", func(t *testing.T) {
		ts := newTokenServer(t)
		ts.fail = true
		m := newTestManager(t, ts, dbtest.New())
		m.now = func() time.Time { return now }
		s := newSession("s1")
		require.NoError(t, WriteToken(ctx, s, &Token{AccessToken: "stale", ExpiresAt: &past, RefreshToken: "r"}))

		_, err := m.ValidToken(ctx, s)
		assert.ErrorIs(t, err, ErrRefresh)
		assert.True(t, errors.Is(err, shared.ErrAuth))
	})

	t.Run("no token", func(t *testing.T) {
		ts := newTokenServer(t)
		m := newTestManager(t, ts, dbtest.New())
		_, err := m.ValidToken(ctx, newSession("s1"))
		assert.ErrorIs(t, err, ErrTokenNotFound)
	})
}

func TestValidTokenConcurrentRefreshIsShared(t *testing.T) {
	ctx := context.Background()
	ts := newTokenServer(t)
	ts.delay = 50 * time.Millisecond
	m := newTestManager(t, ts, dbtest.New())

	past := time.Now().Add(-time.Minute)
	s := newSession("shared")
	require.NoError(t, WriteToken(ctx, s, &Token{AccessToken: "stale", ExpiresAt: &past, RefreshToken: "r"}))

	const callers = 20
	var wg sync.WaitGroup
	results := make([]string, callers)
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tok, err := m.ValidToken(ctx, s)
			errs[i] = err
			if err == nil {
				results[i] = tok.AccessToken
			}
		}(i)
	}
	wg.Wait()

	for i := range results {
		require.NoError(t, errs[i])
		assert.Equal(t, "refreshed-1", results[i])
	}
	assert.Equal(t, int32(1), ts.refreshes.Load())
}

func TestValidTokenRefreshSurvivesCancelledStarter(t *testing.T) {
	ts := newTokenServer(t)
	ts.delay = 100 * time.Millisecond
	m := newTestManager(t, ts, dbtest.New())

	past := time.Now().Add(-time.Minute)
	s := newSession("shared")
	require.NoError(t, WriteToken(context.Background(), s, &Token{AccessToken: "stale", ExpiresAt: &past, RefreshToken: "r"}))

	starterCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	started := make(chan struct{})
	go func() {
		close(started)
		_, _ = m.ValidToken(starterCtx, s)
	}()
	<-started
	time.Sleep(10 * time.Millisecond)

	var (
		tok *Token
		err error
	)
	done := make(chan struct{})
	go func() {
		defer close(done)
		tok, err = m.ValidToken(context.Background(), s)
	}()

	time.Sleep(10 * time.Millisecond)
	cancel()
	<-done

	require.NoError(t, err)
	assert.Equal(t, "refreshed-1", tok.AccessToken)
	assert.Equal(t, int32(1), ts.refreshes.Load())
}
