package session

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const cookieName = "session_id"

type contextKey struct{}

// Manager binds a Backend to browser cookies.
type Manager struct {
	backend Backend
	ttl     time.Duration
	secure  bool
}

// NewManager creates a cookie-based session manager.
func NewManager(backend Backend, ttl time.Duration, secure bool) *Manager {
	return &Manager{backend: backend, ttl: ttl, secure: secure}
}

// Middleware attaches a Session to every request, issuing a new session
// cookie when the browser does not present one.
func (m *Manager) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var id string
		if cookie, err := r.Cookie(cookieName); err == nil && cookie.Value != "" {
			id = cookie.Value
		} else {
			id = uuid.NewString()
			m.setCookie(w, id)
		}

		ctx := context.WithValue(r.Context(), contextKey{}, New(id, m.backend))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Destroy clears the session values and expires the cookie.
func (m *Manager) Destroy(ctx context.Context, w http.ResponseWriter, s *Session) error {
	m.clearCookie(w)
	if err := s.Clear(ctx); err != nil {
		log.Error().Err(err).Str("session_id", s.ID()).Msg("clearing session")
		return err
	}
	return nil
}

// FromContext returns the request's session, or ErrNoSession.
func FromContext(ctx context.Context) (*Session, error) {
	s, ok := ctx.Value(contextKey{}).(*Session)
	if !ok || s == nil {
		return nil, ErrNoSession
	}
	return s, nil
}

func (m *Manager) setCookie(w http.ResponseWriter, id string) {
	http.SetCookie(w, &http.Cookie{
		Name:     cookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(m.ttl.Seconds()),
	})
}

func (m *Manager) clearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     cookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})
}
