package spotify

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/zmb3/spotify/v2"
)

const (
	minEnergy     = 0.4
	minPopularity = 50
)

// Recommend asks for up to limit tracks seeded by genre, filtered to
// reasonably energetic and popular tracks. Provider order is preserved.
func (c *Client) Recommend(ctx context.Context, genre string, limit int) ([]Track, error) {
	seeds := spotify.Seeds{Genres: []string{genre}}
	attrs := spotify.NewTrackAttributes().
		MinEnergy(minEnergy).
		MinPopularity(minPopularity)

	recs, err := c.api.GetRecommendations(ctx, seeds, attrs, spotify.Limit(limit))
	if err != nil {
		return nil, upstream(fmt.Sprintf("recommendations for %q", genre), err)
	}

	tracks := make([]Track, 0, len(recs.Tracks))
	for _, t := range recs.Tracks {
		tracks = append(tracks, convertTrack(t))
	}
	if len(tracks) > limit {
		tracks = tracks[:limit]
	}
	return tracks, nil
}

// SearchAlbumArt looks up the album for "<artist> <title>" and returns its
// first cover image. It returns nil when nothing usable is found or the
// lookup fails; callers decide whether that is fatal.
func (c *Client) SearchAlbumArt(ctx context.Context, artist, title string) *AlbumArt {
	query := artist + " " + title
	logger := log.With().Str("artist", artist).Str("title", title).Logger()

	result, err := c.api.Search(ctx, query, spotify.SearchTypeAlbum, spotify.Limit(1))
	if err != nil {
		logger.Warn().Err(err).Str("soft_failure", "album_lookup_failed").Msg("album search failed")
		return nil
	}
	if result.Albums == nil || len(result.Albums.Albums) == 0 {
		logger.Warn().Str("soft_failure", "album_not_found").Msg("no album matched")
		return nil
	}

	album := result.Albums.Albums[0]
	if len(album.Images) == 0 || album.Images[0].URL == "" {
		logger.Warn().Str("soft_failure", "album_has_no_image").Str("album", album.Name).Msg("album has no cover image")
		return nil
	}

	return &AlbumArt{
		AlbumID:   album.ID.String(),
		AlbumName: album.Name,
		URL:       album.Images[0].URL,
	}
}

// convertTrack converts a Spotify SimpleTrack to a Track.
func convertTrack(t spotify.SimpleTrack) Track {
	artists := make([]Artist, len(t.Artists))
	for i, a := range t.Artists {
		artists[i] = Artist{ID: a.ID.String(), Name: a.Name}
	}
	return Track{
		ID:           t.ID.String(),
		Name:         t.Name,
		Artists:      artists,
		ExternalURLs: t.ExternalURLs,
	}
}
