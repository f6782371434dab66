package songs

import (
	"errors"
	"fmt"

	"github.com/justestif/daily-song/internal/genre"
	"github.com/justestif/daily-song/internal/shared"
)

// Stage names the step of a genre's pipeline that was running when it failed.
type Stage string

const (
	StageAuthorizing       Stage = "authorizing"
	StageRequesting        Stage = "requesting"
	StageDeduplicating     Stage = "deduplicating"
	StageEnrichingArt      Stage = "enriching_art"
	StageEnrichingMetadata Stage = "enriching_metadata"
	StagePersisting        Stage = "persisting"
)

// Terminal outcomes for a single genre.
var (
	// ErrNoTrack is returned when the provider has no recommendation at all.
	ErrNoTrack = fmt.Errorf("%w: no recommended track", shared.ErrNotFound)

	// ErrNoArtist is returned when a track credits no artist.
	ErrNoArtist = fmt.Errorf("%w: track has no artist", shared.ErrNotFound)

	// ErrNoLink is returned when a track has no Spotify link.
	ErrNoLink = fmt.Errorf("%w: track has no spotify link", shared.ErrNotFound)

	// ErrNoAlbum is returned when no album cover could be found for a track.
	ErrNoAlbum = fmt.Errorf("%w: no album found for track", shared.ErrNotFound)

	// ErrExhaustedCandidates is returned when every candidate within the
	// attempt limit was already generated for the user.
	ErrExhaustedCandidates = fmt.Errorf("%w: no unseen candidate", shared.ErrNotFound)
)

// GenreError reports which genre failed, and where.
type GenreError struct {
	Genre genre.Genre
	Stage Stage
	Err   error
}

func (e *GenreError) Error() string {
	return fmt.Sprintf("genre %s: %s: %v", e.Genre, e.Stage, e.Err)
}

func (e *GenreError) Unwrap() error {
	return e.Err
}

// AsGenreError returns the GenreError in err's chain, if any.
func AsGenreError(err error) (*GenreError, bool) {
	var ge *GenreError
	if errors.As(err, &ge) {
		return ge, true
	}
	return nil, false
}
