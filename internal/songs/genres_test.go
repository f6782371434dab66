package songs

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/justestif/daily-song/internal/genre"
	"github.com/justestif/daily-song/internal/shared"
)

func TestSaveGenres(t *testing.T) {
	tests := []struct {
		name      string
		existing  []genre.Genre
		names     []string
		wantAdded []genre.Genre
		wantAll   []genre.Genre
		wantErr   error
	}{
		{
			name:      "new user",
			names:     []string{"Pop", " rock "},
			wantAdded: []genre.Genre{genre.Pop, genre.Rock},
			wantAll:   []genre.Genre{genre.Pop, genre.Rock},
		},
		{
			name:      "skips stored and repeated",
			existing:  []genre.Genre{genre.Pop},
			names:     []string{"pop", "metal", "METAL"},
			wantAdded: []genre.Genre{genre.Metal},
			wantAll:   []genre.Genre{genre.Pop, genre.Metal},
		},
		{
			name:      "nothing new",
			existing:  []genre.Genre{genre.Rock},
			names:     []string{"rock"},
			wantAdded: []genre.Genre{},
			wantAll:   []genre.Genre{genre.Rock},
		},
		{
			name:     "unknown name stores nothing",
			existing: []genre.Genre{genre.Rock},
			names:    []string{"pop", "polka"},
			wantErr:  genre.ErrUnknown,
			wantAll:  []genre.Genre{genre.Rock},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(nil, tt.existing...)
			svc := f.service()
			ctx := context.Background()

			added, err := svc.SaveGenres(ctx, userID, tt.names)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.ErrorIs(t, err, shared.ErrInvalidInput)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.wantAdded, added)
			}

			all, err := svc.Genres(ctx, userID)
			require.NoError(t, err)
			assert.Equal(t, tt.wantAll, all)
		})
	}
}

func TestGenresStoreFailure(t *testing.T) {
	f := newFixture(nil)
	f.store.FailGenres = shared.ErrStorage

	_, err := f.service().Genres(context.Background(), userID)
	assert.ErrorIs(t, err, shared.ErrStorage)

	_, err = f.service().SaveGenres(context.Background(), userID, []string{"pop"})
	assert.ErrorIs(t, err, shared.ErrStorage)
}
