// Package songs generates each user's songs of the day: one recommendation
// per configured genre, never repeating a song the user already has,
// decorated with album art and Last.fm details before it is stored.
package songs

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"

	"github.com/justestif/daily-song/internal/auth"
	"github.com/justestif/daily-song/internal/db"
	"github.com/justestif/daily-song/internal/genre"
	"github.com/justestif/daily-song/internal/lastfm"
	"github.com/justestif/daily-song/internal/spotify"
)

const (
	// DefaultMaxCandidateAttempts bounds recommendation requests per genre.
	DefaultMaxCandidateAttempts = 10

	// DefaultCallTimeout bounds each outbound call.
	DefaultCallTimeout = 15 * time.Second

	// DefaultHistoryTimeout bounds reading a user's full song history.
	DefaultHistoryTimeout = time.Minute
)

// TokenProvider hands out a usable access token for a session.
type TokenProvider interface {
	ValidToken(ctx context.Context, s auth.Session) (*auth.Token, error)
}

// Recommender suggests tracks and finds their album covers.
type Recommender interface {
	Recommend(ctx context.Context, genre string, limit int) ([]spotify.Track, error)
	SearchAlbumArt(ctx context.Context, artist, title string) *spotify.AlbumArt
}

// RecommenderFactory builds a Recommender bound to one token.
type RecommenderFactory func(token *oauth2.Token) Recommender

// SpotifyRecommenders adapts a spotify.Factory.
func SpotifyRecommenders(f *spotify.Factory) RecommenderFactory {
	return func(token *oauth2.Token) Recommender {
		return f.ForToken(token)
	}
}

// DetailsFetcher returns descriptive metadata for a track.
type DetailsFetcher interface {
	FetchDetails(ctx context.Context, artist, title string) (lastfm.TrackDetails, error)
}

// Service runs the per-genre generation pipeline.
type Service struct {
	store        db.Store
	tokens       TokenProvider
	recommenders RecommenderFactory
	details      DetailsFetcher

	maxAttempts    int
	callTimeout    time.Duration
	historyTimeout time.Duration
	location       *time.Location
	now            func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithMaxCandidateAttempts sets how many recommendations are requested per
// genre before giving up on finding an unseen one.
func WithMaxCandidateAttempts(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxAttempts = n
		}
	}
}

// WithCallTimeout sets the deadline applied to each outbound call.
func WithCallTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.callTimeout = d
		}
	}
}

// WithHistoryTimeout sets the deadline for streaming a user's history,
// which can be much larger than any single query.
func WithHistoryTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.historyTimeout = d
		}
	}
}

// WithLocation sets the timezone that decides which calendar day "today" is.
func WithLocation(loc *time.Location) Option {
	return func(s *Service) {
		if loc != nil {
			s.location = loc
		}
	}
}

// New creates a new songs service.
func New(store db.Store, tokens TokenProvider, recommenders RecommenderFactory, details DetailsFetcher, opts ...Option) *Service {
	s := &Service{
		store:        store,
		tokens:       tokens,
		recommenders: recommenders,
		details:      details,
		maxAttempts:    DefaultMaxCandidateAttempts,
		callTimeout:    DefaultCallTimeout,
		historyTimeout: DefaultHistoryTimeout,
		location:       time.Local,
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// songKey identifies a song for de-duplication.
type songKey struct {
	title  string
	artist string
}

func keyOf(title, artist string) songKey {
	return songKey{
		title:  strings.ToLower(strings.TrimSpace(title)),
		artist: strings.ToLower(strings.TrimSpace(artist)),
	}
}

// Generate creates one song per genre the user has configured, in the
// order the store returns them. Genres that already have a song today are
// skipped. The first genre that fails stops the batch: the songs created
// before it are returned along with a *GenreError. Songs already stored are
// not rolled back.
func (s *Service) Generate(ctx context.Context, sess auth.Session, userID int64) ([]db.Song, error) {
	genres, err := s.listGenres(ctx, userID)
	if err != nil {
		return nil, err
	}
	for _, g := range genres {
		if !g.Valid() {
			return nil, fmt.Errorf("%w: stored genre %d for user %d", genre.ErrUnknown, int(g), userID)
		}
	}

	filled, err := s.filledToday(ctx, userID)
	if err != nil {
		return nil, err
	}
	seen, err := s.history(ctx, userID)
	if err != nil {
		return nil, err
	}

	logger := log.With().Int64("user_id", userID).Logger()
	logger.Info().Int("genres", len(genres)).Int("history", len(seen)).Msg("generating songs")

	created := make([]db.Song, 0, len(genres))
	for _, g := range genres {
		if err := ctx.Err(); err != nil {
			return created, err
		}
		if filled[g] {
			logger.Debug().Str("genre", g.String()).Msg("genre already has a song today")
			continue
		}

		song, stage, err := s.generateOne(ctx, sess, userID, g, seen)
		if err != nil {
			failuresTotal.WithLabelValues(string(stage)).Inc()
			logger.Error().Err(err).Str("genre", g.String()).Str("stage", string(stage)).Msg("genre failed, stopping batch")
			return created, &GenreError{Genre: g, Stage: stage, Err: err}
		}

		filled[g] = true
		seen[keyOf(song.Title, song.Artist)] = struct{}{}
		created = append(created, *song)
		generatedTotal.WithLabelValues(g.String()).Inc()
		logger.Info().Int64("song_id", song.ID).Str("genre", g.String()).Str("title", song.Title).Msg("song created")
	}

	return created, nil
}

func (s *Service) listGenres(ctx context.Context, userID int64) ([]genre.Genre, error) {
	callCtx, cancel := context.WithTimeout(ctx, s.callTimeout)
	defer cancel()

	genres, err := s.store.Genres().ListForUser(callCtx, userID)
	if err != nil {
		return nil, fmt.Errorf("loading genres: %w", err)
	}
	return genres, nil
}

// filledToday reports which genres already have a song for the user today.
func (s *Service) filledToday(ctx context.Context, userID int64) (map[genre.Genre]bool, error) {
	callCtx, cancel := context.WithTimeout(ctx, s.callTimeout)
	defer cancel()

	today, err := s.store.Songs().ListForUserAndDay(callCtx, userID, s.now().In(s.location))
	if err != nil {
		return nil, fmt.Errorf("loading today's songs: %w", err)
	}
	filled := make(map[genre.Genre]bool, len(today))
	for _, song := range today {
		filled[song.Genre] = true
	}
	return filled, nil
}

func (s *Service) history(ctx context.Context, userID int64) (map[songKey]struct{}, error) {
	streamCtx, cancel := context.WithTimeout(ctx, s.historyTimeout)
	defer cancel()

	seen := make(map[songKey]struct{})
	err := s.store.Songs().StreamForUser(streamCtx, userID, func(song db.Song) error {
		seen[keyOf(song.Title, song.Artist)] = struct{}{}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("loading song history: %w", err)
	}
	return seen, nil
}

func (s *Service) generateOne(ctx context.Context, sess auth.Session, userID int64, g genre.Genre, seen map[songKey]struct{}) (*db.Song, Stage, error) {
	token, err := s.tokens.ValidToken(ctx, sess)
	if err != nil {
		return nil, StageAuthorizing, err
	}
	rec := s.recommenders(token.OAuth2())

	track, stage, err := s.pickCandidate(ctx, rec, g, seen)
	if err != nil {
		return nil, stage, err
	}

	artist, ok := track.FirstArtist()
	if !ok {
		return nil, StageRequesting, fmt.Errorf("%w: track %q", ErrNoArtist, track.Name)
	}
	link, ok := track.Link()
	if !ok {
		return nil, StageRequesting, fmt.Errorf("%w: track %q", ErrNoLink, track.Name)
	}

	art := s.albumArt(ctx, rec, artist.Name, track.Name)
	if art == nil {
		return nil, StageEnrichingArt, fmt.Errorf("%w: %s - %s", ErrNoAlbum, artist.Name, track.Name)
	}

	details, err := s.fetchDetails(ctx, artist.Name, track.Name)
	if err != nil {
		return nil, StageEnrichingMetadata, err
	}

	song := &db.Song{
		UserID:      userID,
		Title:       track.Name,
		Artist:      artist.Name,
		Link:        link,
		Genre:       g,
		Description: details.Description,
		Summary:     details.Summary,
		AlbumCover:  art.URL,
	}
	if err := s.persist(ctx, song); err != nil {
		return nil, StagePersisting, err
	}
	return song, "", nil
}

// pickCandidate requests one track at a time until it finds one the user
// has not had yet, up to maxAttempts requests.
func (s *Service) pickCandidate(ctx context.Context, rec Recommender, g genre.Genre, seen map[songKey]struct{}) (spotify.Track, Stage, error) {
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		callCtx, cancel := context.WithTimeout(ctx, s.callTimeout)
		tracks, err := rec.Recommend(callCtx, g.String(), 1)
		cancel()
		if err != nil {
			return spotify.Track{}, StageRequesting, err
		}
		if len(tracks) == 0 {
			return spotify.Track{}, StageRequesting, fmt.Errorf("%w: genre %s", ErrNoTrack, g)
		}

		track := tracks[0]
		artist, _ := track.FirstArtist()
		if _, dup := seen[keyOf(track.Name, artist.Name)]; !dup {
			return track, "", nil
		}

		duplicatesTotal.Inc()
		log.Debug().
			Str("genre", g.String()).
			Int("attempt", attempt).
			Str("title", track.Name).
			Str("artist", artist.Name).
			Msg("candidate already generated")
	}

	return spotify.Track{}, StageDeduplicating, fmt.Errorf("%w: genre %s after %d attempts", ErrExhaustedCandidates, g, s.maxAttempts)
}

func (s *Service) albumArt(ctx context.Context, rec Recommender, artist, title string) *spotify.AlbumArt {
	callCtx, cancel := context.WithTimeout(ctx, s.callTimeout)
	defer cancel()
	return rec.SearchAlbumArt(callCtx, artist, title)
}

func (s *Service) fetchDetails(ctx context.Context, artist, title string) (lastfm.TrackDetails, error) {
	callCtx, cancel := context.WithTimeout(ctx, s.callTimeout)
	defer cancel()
	return s.details.FetchDetails(callCtx, artist, title)
}

func (s *Service) persist(ctx context.Context, song *db.Song) error {
	callCtx, cancel := context.WithTimeout(ctx, s.callTimeout)
	defer cancel()
	return s.store.Songs().Create(callCtx, song)
}
