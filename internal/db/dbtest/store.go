// Package dbtest provides an in-memory db.Store for service and handler tests.
package dbtest

import (
	"context"
	"sync"
	"time"

	"github.com/justestif/daily-song/internal/db"
	"github.com/justestif/daily-song/internal/genre"
)

// Store is a goroutine-safe in-memory db.Store. Set the Fail* fields to
// inject errors.
type Store struct {
	mu         sync.Mutex
	users      map[int64]*db.User
	userGenres map[int64][]genre.Genre
	songs      []db.Song
	nextID     int64

	Now      func() time.Time
	Location *time.Location

	FailSongCreate error
	FailGenres     error
	FailUsers      error
}

// New returns an empty store using UTC and the wall clock.
func New() *Store {
	return &Store{
		users:      make(map[int64]*db.User),
		userGenres: make(map[int64][]genre.Genre),
		Now:        time.Now,
		Location:   time.UTC,
	}
}

func (s *Store) Users() db.UserStore { return userStore{s} }
func (s *Store) Genres() db.GenreStore { return genreStore{s} }
func (s *Store) Songs() db.SongStore { return songStore{s} }
func (s *Store) Migrate(context.Context) error { return nil }
func (s *Store) Ping(context.Context) error { return nil }
func (s *Store) Close() {}

func (s *Store) id() int64 {
	s.nextID++
	return s.nextID
}

// AllSongs returns a copy of every stored song.
func (s *Store) AllSongs() []db.Song {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]db.Song(nil), s.songs...)
}

// AddSong stores a song directly, bypassing validation.
func (s *Store) AddSong(song db.Song) db.Song {
	s.mu.Lock()
	defer s.mu.Unlock()
	song.ID = s.id()
	if song.CreatedAt.IsZero() {
		song.CreatedAt = s.Now()
	}
	s.songs = append(s.songs, song)
	return song
}

// SetGenres replaces a user's genres without validation.
func (s *Store) SetGenres(userID int64, genres ...genre.Genre) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.userGenres[userID] = genres
}

type userStore struct{ s *Store }

func (u userStore) Create(_ context.Context, user *db.User) error {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()
	if u.s.FailUsers != nil {
		return u.s.FailUsers
	}
	user.ID = u.s.id()
	user.CreatedAt = u.s.Now()
	user.UpdatedAt = user.CreatedAt
	stored := *user
	u.s.users[user.ID] = &stored
	return nil
}

func (u userStore) Get(_ context.Context, id int64) (*db.User, error) {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()
	user, ok := u.s.users[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	out := *user
	return &out, nil
}

func (u userStore) UpdateToken(_ context.Context, user *db.User) error {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()
	if u.s.FailUsers != nil {
		return u.s.FailUsers
	}
	existing, ok := u.s.users[user.ID]
	if !ok {
		return db.ErrNotFound
	}
	existing.AccessToken = user.AccessToken
	existing.ExpiresIn = user.ExpiresIn
	existing.ExpiresAt = user.ExpiresAt
	existing.RefreshToken = user.RefreshToken
	existing.UpdatedAt = u.s.Now()
	user.UpdatedAt = existing.UpdatedAt
	return nil
}

type genreStore struct{ s *Store }

func (g genreStore) AddForUser(_ context.Context, userID int64, genres []genre.Genre) error {
	g.s.mu.Lock()
	defer g.s.mu.Unlock()
	if g.s.FailGenres != nil {
		return g.s.FailGenres
	}
	for _, gn := range genres {
		if !gn.Valid() {
			return genre.ErrUnknown
		}
	}
	g.s.userGenres[userID] = append(g.s.userGenres[userID], genres...)
	return nil
}

func (g genreStore) ListForUser(_ context.Context, userID int64) ([]genre.Genre, error) {
	g.s.mu.Lock()
	defer g.s.mu.Unlock()
	if g.s.FailGenres != nil {
		return nil, g.s.FailGenres
	}
	return append([]genre.Genre(nil), g.s.userGenres[userID]...), nil
}

type songStore struct{ s *Store }

func (st songStore) Create(_ context.Context, song *db.Song) error {
	if err := db.ValidateSong(song); err != nil {
		return err
	}
	st.s.mu.Lock()
	defer st.s.mu.Unlock()
	if st.s.FailSongCreate != nil {
		return st.s.FailSongCreate
	}
	song.ID = st.s.id()
	song.CreatedAt = st.s.Now().In(st.s.Location)
	st.s.songs = append(st.s.songs, *song)
	return nil
}

func (st songStore) filter(keep func(db.Song) bool) []db.Song {
	st.s.mu.Lock()
	defer st.s.mu.Unlock()
	out := []db.Song{}
	for _, song := range st.s.songs {
		if keep(song) {
			out = append(out, song)
		}
	}
	return out
}

func (st songStore) ListForDay(_ context.Context, day time.Time) ([]db.Song, error) {
	start, end := db.DayBounds(day, st.s.Location)
	return st.filter(func(s db.Song) bool {
		return !s.CreatedAt.Before(start) && s.CreatedAt.Before(end)
	}), nil
}

func (st songStore) ListForUserAndDay(_ context.Context, userID int64, day time.Time) ([]db.Song, error) {
	start, end := db.DayBounds(day, st.s.Location)
	return st.filter(func(s db.Song) bool {
		return s.UserID == userID && !s.CreatedAt.Before(start) && s.CreatedAt.Before(end)
	}), nil
}

func (st songStore) StreamForUser(_ context.Context, userID int64, fn func(db.Song) error) error {
	songs := st.filter(func(s db.Song) bool { return s.UserID == userID })
	for _, song := range songs {
		if err := fn(song); err != nil {
			return err
		}
	}
	return nil
}

var _ db.Store = (*Store)(nil)
