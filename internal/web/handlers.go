package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/justestif/daily-song/internal/auth"
	"github.com/justestif/daily-song/internal/db"
	"github.com/justestif/daily-song/internal/genre"
	"github.com/justestif/daily-song/internal/session"
	"github.com/justestif/daily-song/internal/shared"
)

const (
	stateCookie = "oauth_state"
	dayLayout   = "2006-01-02"

	// defaultStoreTimeout bounds store reads made directly by handlers.
	defaultStoreTimeout = 5 * time.Second
)

var errBadState = fmt.Errorf("%w: oauth state mismatch", shared.ErrInvalidInput)

// Handlers contains HTTP handlers for the API.
type Handlers struct {
	deps         Deps
	location     *time.Location
	secure       bool
	storeTimeout time.Duration
	now          func() time.Time
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(deps Deps, location *time.Location, secure bool) *Handlers {
	return &Handlers{
		deps:         deps,
		location:     location,
		secure:       secure,
		storeTimeout: defaultStoreTimeout,
		now:          time.Now,
	}
}

// Health pings the store (GET /healthz).
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.deps.Store.Ping(ctx); err != nil {
		log.Error().Err(err).Msg("health check failed")
		respondError(w, r, http.StatusServiceUnavailable, "database unavailable")
		return
	}
	respondSuccess(w, r, map[string]string{"status": "ok"}, "")
}

// Login initiates the Spotify OAuth flow (GET /auth/login).
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	state, err := auth.NewState()
	if err != nil {
		respondErr(w, r, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     stateCookie,
		Value:    state,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   300,
	})

	http.Redirect(w, r, h.deps.Auth.AuthURL(state), http.StatusTemporaryRedirect)
}

// Callback completes the OAuth flow when Spotify redirects the browser
// back (GET /callback).
func (h *Handlers) Callback(w http.ResponseWriter, r *http.Request) {
	if errMsg := r.URL.Query().Get("error"); errMsg != "" {
		respondError(w, r, http.StatusBadRequest, "spotify authorization failed: "+errMsg)
		return
	}

	q := r.URL.Query()
	if _, err := h.login(w, r, q.Get("code"), q.Get("state")); err != nil {
		respondErr(w, r, err)
		return
	}
	http.Redirect(w, r, "/", http.StatusTemporaryRedirect)
}

type exchangeRequest struct {
	Code  string `json:"code"`
	State string `json:"state"`
}

// Exchange trades an authorization code for tokens (POST /spotify/exchange).
func (h *Handlers) Exchange(w http.ResponseWriter, r *http.Request) {
	var req exchangeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := h.login(w, r, req.Code, req.State)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	respondSuccess(w, r, map[string]int64{"user_id": user.ID}, "success")
}

// login checks state against the state cookie, when the browser has one,
// and exchanges code.
func (h *Handlers) login(w http.ResponseWriter, r *http.Request, code, state string) (*db.User, error) {
	if code == "" {
		return nil, fmt.Errorf("%w: missing authorization code", shared.ErrInvalidInput)
	}
	if cookie, err := r.Cookie(stateCookie); err == nil {
		if state != cookie.Value {
			return nil, errBadState
		}
		http.SetCookie(w, &http.Cookie{Name: stateCookie, Value: "", Path: "/", HttpOnly: true, MaxAge: -1})
	}

	sess, err := session.FromContext(r.Context())
	if err != nil {
		return nil, err
	}
	return h.deps.Auth.Login(r.Context(), sess, code)
}

// Logout destroys the session (POST /auth/logout).
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	sess, err := session.FromContext(r.Context())
	if err != nil {
		respondErr(w, r, err)
		return
	}
	if err := h.deps.Sessions.Destroy(r.Context(), w, sess); err != nil {
		respondErr(w, r, fmt.Errorf("%w: %w", shared.ErrStorage, err))
		return
	}
	respondSuccess(w, r, nil, "logged out")
}

// CreateSongs generates today's songs for the session's user (POST /songs).
func (h *Handlers) CreateSongs(w http.ResponseWriter, r *http.Request) {
	sess, userID, err := currentUser(r)
	if err != nil {
		respondErr(w, r, err)
		return
	}

	created, err := h.deps.Songs.Generate(r.Context(), sess, userID)
	if err != nil {
		log.Warn().Int64("user_id", userID).Int("created", len(created)).Msg("song batch stopped early")
		respondErr(w, r, err)
		return
	}
	if len(created) == 0 {
		respondSuccess(w, r, []db.Song{}, "no new songs for today")
		return
	}
	respondSuccess(w, r, created, fmt.Sprintf("%d songs created", len(created)))
}

// ListSongs returns the songs created on a day (GET /songs?day=YYYY-MM-DD).
// Logged in users only see their own songs.
func (h *Handlers) ListSongs(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("day")
	if raw == "" {
		respondError(w, r, http.StatusBadRequest, "missing day parameter")
		return
	}
	day, err := time.ParseInLocation(dayLayout, raw, h.location)
	if err != nil {
		respondError(w, r, http.StatusBadRequest, "day must look like 2006-01-02")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.storeTimeout)
	defer cancel()

	var list []db.Song
	if _, userID, err := currentUser(r); err == nil {
		list, err = h.deps.Store.Songs().ListForUserAndDay(ctx, userID, day)
		if err != nil {
			respondErr(w, r, err)
			return
		}
	} else {
		list, err = h.deps.Store.Songs().ListForDay(ctx, day)
		if err != nil {
			respondErr(w, r, err)
			return
		}
	}

	if len(list) == 0 {
		respondSuccess(w, r, []db.Song{}, "no songs found")
		return
	}
	respondSuccess(w, r, list, "")
}

type genresRequest struct {
	Genres []string `json:"genres"`
}

type genresResponse struct {
	Added  []genre.Genre `json:"added"`
	Genres []genre.Genre `json:"genres"`
}

// SaveGenres stores genre preferences (POST /genres).
func (h *Handlers) SaveGenres(w http.ResponseWriter, r *http.Request) {
	_, userID, err := currentUser(r)
	if err != nil {
		respondErr(w, r, err)
		return
	}

	var req genresRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Genres) == 0 {
		respondError(w, r, http.StatusBadRequest, "genres must not be empty")
		return
	}

	added, err := h.deps.Songs.SaveGenres(r.Context(), userID, req.Genres)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	all, err := h.deps.Songs.Genres(r.Context(), userID)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	respondSuccess(w, r, genresResponse{Added: added, Genres: all}, "success")
}

// ListGenres lists genre preferences (GET /genres).
func (h *Handlers) ListGenres(w http.ResponseWriter, r *http.Request) {
	_, userID, err := currentUser(r)
	if err != nil {
		respondErr(w, r, err)
		return
	}

	all, err := h.deps.Songs.Genres(r.Context(), userID)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	if all == nil {
		all = []genre.Genre{}
	}
	respondSuccess(w, r, all, "")
}

// Playlist builds a playlist from today's songs (GET /playlist).
func (h *Handlers) Playlist(w http.ResponseWriter, r *http.Request) {
	sess, userID, err := currentUser(r)
	if err != nil {
		respondErr(w, r, err)
		return
	}

	res, err := h.deps.Playlists.Assemble(r.Context(), sess, userID, h.now().In(h.location))
	if err != nil {
		respondErr(w, r, err)
		return
	}
	respondSuccess(w, r, res, "playlist created")
}

func currentUser(r *http.Request) (*session.Session, int64, error) {
	sess, err := session.FromContext(r.Context())
	if err != nil {
		return nil, 0, err
	}
	userID, err := auth.ReadUserID(r.Context(), sess)
	if err != nil {
		if errors.Is(err, shared.ErrAuth) {
			return nil, 0, err
		}
		return nil, 0, fmt.Errorf("%w: %w", shared.ErrStorage, err)
	}
	return sess, userID, nil
}
