package db

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/justestif/daily-song/internal/genre"
	"github.com/justestif/daily-song/internal/shared"
)

func TestDayBounds(t *testing.T) {
	berlin, err := time.LoadLocation("Europe/Berlin")
	require.NoError(t, err)

	tests := []struct {
		name      string
		day       time.Time
		loc       *time.Location
		wantStart time.Time
		wantEnd   time.Time
	}{
		{
			name:      "midday utc",
			day:       time.Date(2024, 1, 1, 13, 45, 0, 0, time.UTC),
			loc:       time.UTC,
			wantStart: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
			wantEnd:   time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
		},
		{
			name:      "month rollover",
			day:       time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC),
			loc:       time.UTC,
			wantStart: time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC),
			wantEnd:   time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			name:      "dst change keeps calendar day",
			day:       time.Date(2024, 3, 31, 0, 0, 0, 0, berlin),
			loc:       berlin,
			wantStart: time.Date(2024, 3, 31, 0, 0, 0, 0, berlin),
			wantEnd:   time.Date(2024, 4, 1, 0, 0, 0, 0, berlin),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start, end := DayBounds(tt.day, tt.loc)
			assert.True(t, start.Equal(tt.wantStart), "start = %v", start)
			assert.True(t, end.Equal(tt.wantEnd), "end = %v", end)
		})
	}
}

func TestValidateSong(t *testing.T) {
	assert.NoError(t, ValidateSong(&Song{Title: "A", Genre: genre.Rock}))
	assert.ErrorIs(t, ValidateSong(&Song{Title: "A", Genre: genre.Unknown}), genre.ErrUnknown)
}

func TestErrNotFoundCategory(t *testing.T) {
	assert.True(t, errors.Is(ErrNotFound, shared.ErrNotFound))
	assert.True(t, errors.Is(StorageError("op", errors.New("boom")), shared.ErrStorage))
}

// TestPostgres runs against a real server when TEST_DATABASE_URL is set.
func TestPostgres(t *testing.T) {
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	now := time.Date(2024, 1, 1, 23, 59, 59, 999_000_000, time.UTC)
	db, err := New(ctx, url, WithLocation(time.UTC), WithClock(func() time.Time { return now }))
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, db.Migrate(ctx))
	require.NoError(t, db.Migrate(ctx), "migrations must be idempotent")

	user := &User{AccessToken: "a", ExpiresIn: 3600}
	require.NoError(t, db.Users().Create(ctx, user))

	require.NoError(t, db.Genres().AddForUser(ctx, user.ID, []genre.Genre{genre.Pop, genre.Rock}))
	genres, err := db.Genres().ListForUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, []genre.Genre{genre.Pop, genre.Rock}, genres)

	song := &Song{UserID: user.ID, Title: "A", Artist: "X", Link: "l", Genre: genre.Pop}
	require.NoError(t, db.Songs().Create(ctx, song))

	now = time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	require.NoError(t, db.Songs().Create(ctx, &Song{UserID: user.ID, Title: "B", Artist: "Y", Link: "l", Genre: genre.Rock}))

	day := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	songs, err := db.Songs().ListForUserAndDay(ctx, user.ID, day)
	require.NoError(t, err)
	require.Len(t, songs, 1)
	assert.Equal(t, "A", songs[0].Title)
}
