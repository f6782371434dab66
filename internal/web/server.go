// Package web serves the daily-song HTTP API.
package web

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/justestif/daily-song/internal/auth"
	"github.com/justestif/daily-song/internal/db"
	"github.com/justestif/daily-song/internal/genre"
	"github.com/justestif/daily-song/internal/playlist"
	"github.com/justestif/daily-song/internal/session"
)

// DefaultAddr is the default server address.
const DefaultAddr = "127.0.0.1:8080"

// Authenticator runs the Spotify authorization code flow.
type Authenticator interface {
	AuthURL(state string) string
	Login(ctx context.Context, s auth.Session, code string) (*db.User, error)
}

// SongService generates songs and manages genre preferences.
type SongService interface {
	Generate(ctx context.Context, s auth.Session, userID int64) ([]db.Song, error)
	SaveGenres(ctx context.Context, userID int64, names []string) ([]genre.Genre, error)
	Genres(ctx context.Context, userID int64) ([]genre.Genre, error)
}

// PlaylistService builds a playlist from a day's songs.
type PlaylistService interface {
	Assemble(ctx context.Context, s auth.Session, userID int64, day time.Time) (*playlist.Result, error)
}

// ServerConfig holds server configuration.
type ServerConfig struct {
	Addr           string
	AllowedOrigins []string
	SecureCookies  bool

	// Location decides where a calendar day starts and ends.
	Location *time.Location
}

// Deps are the services the handlers call.
type Deps struct {
	Auth      Authenticator
	Songs     SongService
	Playlists PlaylistService
	Store     db.Store
	Sessions  *session.Manager
}

// Server is the HTTP server for the API.
type Server struct {
	router   chi.Router
	server   *http.Server
	handlers *Handlers
}

// NewServer creates a new web server.
func NewServer(cfg ServerConfig, deps Deps) *Server {
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}

	router := chi.NewRouter()
	s := &Server{
		router:   router,
		handlers: NewHandlers(deps, cfg.Location, cfg.SecureCookies),
	}

	s.setupMiddleware(cfg, deps.Sessions)
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         cfg.Addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 2 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// setupMiddleware configures middleware for the router.
func (s *Server) setupMiddleware(cfg ServerConfig, sessions *session.Manager) {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(requestLogger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(metrics)
	if len(cfg.AllowedOrigins) > 0 {
		s.router.Use(corsHandler(cfg.AllowedOrigins))
	}
	s.router.Use(sessions.Middleware)
}

// setupRoutes configures routes for the application.
func (s *Server) setupRoutes() {
	h := s.handlers

	s.router.Get("/healthz", h.Health)
	s.router.Handle("/metrics", promhttp.Handler())

	s.router.Get("/auth/login", h.Login)
	s.router.Get("/callback", h.Callback)
	s.router.Post("/auth/logout", h.Logout)
	s.router.Post("/spotify/exchange", h.Exchange)

	s.router.Post("/songs", h.CreateSongs)
	s.router.Get("/songs", h.ListSongs)
	s.router.Post("/genres", h.SaveGenres)
	s.router.Get("/genres", h.ListGenres)
	s.router.Get("/playlist", h.Playlist)
}

// Handler returns the router, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	log.Info().Str("addr", s.server.Addr).Msg("starting server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// Run starts the server and shuts it down gracefully when ctx is done or an
// interrupt signal arrives.
func (s *Server) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		if err := s.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		log.Info().Msg("shutting down server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	log.Info().Msg("server stopped")
	return nil
}
