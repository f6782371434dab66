package songs

import (
	"context"
	"fmt"

	"github.com/justestif/daily-song/internal/genre"
)

// SaveGenres records the named genres for a user. Every name must parse or
// nothing is stored. Genres the user already has, and repeats within names,
// are skipped. It returns the genres that were added.
func (s *Service) SaveGenres(ctx context.Context, userID int64, names []string) ([]genre.Genre, error) {
	parsed := make([]genre.Genre, 0, len(names))
	for _, name := range names {
		g, err := genre.Parse(name)
		if err != nil {
			return nil, err
		}
		parsed = append(parsed, g)
	}

	existing, err := s.listGenres(ctx, userID)
	if err != nil {
		return nil, err
	}
	have := make(map[genre.Genre]bool, len(existing))
	for _, g := range existing {
		have[g] = true
	}

	added := []genre.Genre{}
	for _, g := range parsed {
		if have[g] {
			continue
		}
		have[g] = true
		added = append(added, g)
	}
	if len(added) == 0 {
		return added, nil
	}

	callCtx, cancel := context.WithTimeout(ctx, s.callTimeout)
	defer cancel()
	if err := s.store.Genres().AddForUser(callCtx, userID, added); err != nil {
		return nil, fmt.Errorf("saving genres: %w", err)
	}
	return added, nil
}

// Genres lists a user's genres in stored order.
func (s *Service) Genres(ctx context.Context, userID int64) ([]genre.Genre, error) {
	return s.listGenres(ctx, userID)
}
