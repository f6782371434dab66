// Package playlist turns a day's generated songs into a Spotify playlist.
package playlist

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"

	"github.com/justestif/daily-song/internal/auth"
	"github.com/justestif/daily-song/internal/db"
	"github.com/justestif/daily-song/internal/shared"
	"github.com/justestif/daily-song/internal/spotify"
)

// ErrNoSongs is returned when the user has no songs for the requested day.
var ErrNoSongs = fmt.Errorf("%w: no songs for day", shared.ErrNotFound)

const (
	dayLayout = "2006-01-02"

	// DefaultCallTimeout bounds each store and Spotify call.
	DefaultCallTimeout = 15 * time.Second
)

// TokenProvider hands out a usable access token for a session.
type TokenProvider interface {
	ValidToken(ctx context.Context, s auth.Session) (*auth.Token, error)
}

// Writer creates playlists and fills them.
type Writer interface {
	CreatePlaylist(ctx context.Context, name, description string, public bool) (string, error)
	AddTracksToPlaylist(ctx context.Context, playlistID string, trackIDs []string) error
}

// WriterFactory builds a Writer bound to one token.
type WriterFactory func(token *oauth2.Token) Writer

// SpotifyWriters adapts a spotify.Factory.
func SpotifyWriters(f *spotify.Factory) WriterFactory {
	return func(token *oauth2.Token) Writer {
		return f.ForToken(token)
	}
}

// Result describes a created playlist.
type Result struct {
	PlaylistID string   `json:"playlist_id"`
	Name       string   `json:"name"`
	TrackIDs   []string `json:"track_ids"`
}

// Service assembles playlists.
type Service struct {
	songs       db.SongStore
	tokens      TokenProvider
	writers     WriterFactory
	callTimeout time.Duration
}

// Option configures a Service.
type Option func(*Service)

// WithCallTimeout sets the deadline applied to each call.
func WithCallTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.callTimeout = d
		}
	}
}

// New creates a new playlist service.
func New(songs db.SongStore, tokens TokenProvider, writers WriterFactory, opts ...Option) *Service {
	s := &Service{songs: songs, tokens: tokens, writers: writers, callTimeout: DefaultCallTimeout}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name returns the playlist name used for day.
func Name(day time.Time) string {
	return "Daily Songs " + day.Format(dayLayout)
}

// Assemble creates a private playlist holding the user's songs for day.
// If adding tracks fails the empty playlist is left in place.
func (s *Service) Assemble(ctx context.Context, sess auth.Session, userID int64, day time.Time) (*Result, error) {
	songs, err := s.daySongs(ctx, userID, day)
	if err != nil {
		return nil, fmt.Errorf("loading songs: %w", err)
	}
	if len(songs) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoSongs, day.Format(dayLayout))
	}

	trackIDs := make([]string, 0, len(songs))
	for _, song := range songs {
		id, err := spotify.TrackIDFromLink(song.Link)
		if err != nil {
			return nil, fmt.Errorf("song %d: %w", song.ID, err)
		}
		trackIDs = append(trackIDs, id)
	}

	token, err := s.tokens.ValidToken(ctx, sess)
	if err != nil {
		return nil, err
	}
	writer := s.writers(token.OAuth2())

	name := Name(day)
	description := fmt.Sprintf("%d songs generated on %s", len(trackIDs), day.Format(dayLayout))
	playlistID, err := s.create(ctx, writer, name, description)
	if err != nil {
		return nil, err
	}

	if err := s.addTracks(ctx, writer, playlistID, trackIDs); err != nil {
		log.Error().Err(err).Str("playlist_id", playlistID).Msg("playlist created but tracks could not be added")
		return nil, err
	}

	log.Info().Int64("user_id", userID).Str("playlist_id", playlistID).Int("tracks", len(trackIDs)).Msg("playlist assembled")
	return &Result{PlaylistID: playlistID, Name: name, TrackIDs: trackIDs}, nil
}

func (s *Service) daySongs(ctx context.Context, userID int64, day time.Time) ([]db.Song, error) {
	callCtx, cancel := context.WithTimeout(ctx, s.callTimeout)
	defer cancel()
	return s.songs.ListForUserAndDay(callCtx, userID, day)
}

func (s *Service) create(ctx context.Context, w Writer, name, description string) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, s.callTimeout)
	defer cancel()
	return w.CreatePlaylist(callCtx, name, description, false)
}

func (s *Service) addTracks(ctx context.Context, w Writer, playlistID string, trackIDs []string) error {
	callCtx, cancel := context.WithTimeout(ctx, s.callTimeout)
	defer cancel()
	return w.AddTracksToPlaylist(callCtx, playlistID, trackIDs)
}
