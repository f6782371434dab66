package db

import (
	"context"
	"fmt"
	"time"

	"github.com/justestif/daily-song/internal/genre"
	"github.com/justestif/daily-song/internal/shared"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = fmt.Errorf("record %w", shared.ErrNotFound)

// UserStore persists users and their latest token.
type UserStore interface {
	Create(ctx context.Context, user *User) error
	Get(ctx context.Context, id int64) (*User, error)
	UpdateToken(ctx context.Context, user *User) error
}

// GenreStore persists per-user genre preferences. AddForUser appends one row
// per genre without checking for existing rows.
type GenreStore interface {
	AddForUser(ctx context.Context, userID int64, genres []genre.Genre) error
	ListForUser(ctx context.Context, userID int64) ([]genre.Genre, error)
}

// SongStore persists generated songs. Day queries cover [00:00, next 00:00)
// in the store's location.
type SongStore interface {
	Create(ctx context.Context, song *Song) error
	ListForDay(ctx context.Context, day time.Time) ([]Song, error)
	ListForUserAndDay(ctx context.Context, userID int64, day time.Time) ([]Song, error)
	// StreamForUser calls fn for each of the user's songs without buffering
	// them all. A non-nil error from fn stops iteration and is returned.
	StreamForUser(ctx context.Context, userID int64, fn func(Song) error) error
}

// Store is the persistence surface used by the services.
type Store interface {
	Users() UserStore
	Genres() GenreStore
	Songs() SongStore
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close()
}

// DayBounds returns the half-open interval [start, end) covering the
// calendar date of day in loc.
func DayBounds(day time.Time, loc *time.Location) (time.Time, time.Time) {
	if loc == nil {
		loc = time.Local
	}
	y, m, d := day.Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, loc)
	return start, start.AddDate(0, 0, 1)
}

// ValidateSong rejects songs that may not be written.
func ValidateSong(song *Song) error {
	if !song.Genre.Valid() {
		return fmt.Errorf("%w: song %q", genre.ErrUnknown, song.Title)
	}
	return nil
}

// StorageError wraps err as a storage failure for op.
func StorageError(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", shared.ErrStorage, op, err)
}
