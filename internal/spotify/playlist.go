package spotify

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/zmb3/spotify/v2"

	"github.com/justestif/daily-song/internal/shared"
)

const maxTracksPerRequest = 100

// ErrBadTrackLink is returned when a link does not name a Spotify track.
var ErrBadTrackLink = errors.New("not a spotify track link")

// CreatePlaylist creates a new playlist for the current user.
// Returns the playlist ID.
func (c *Client) CreatePlaylist(ctx context.Context, name, description string, public bool) (string, error) {
	userID, err := c.UserID(ctx)
	if err != nil {
		return "", err
	}

	playlist, err := c.api.CreatePlaylistForUser(ctx, userID, name, description, public, false)
	if err != nil {
		return "", upstream("creating playlist", err)
	}

	return playlist.ID.String(), nil
}

// AddTracksToPlaylist adds tracks to a playlist in as few requests as
// Spotify allows (100 tracks per request).
func (c *Client) AddTracksToPlaylist(ctx context.Context, playlistID string, trackIDs []string) error {
	if len(trackIDs) == 0 {
		return nil
	}

	ids := make([]spotify.ID, len(trackIDs))
	for i, id := range trackIDs {
		ids[i] = spotify.ID(id)
	}

	for i := 0; i < len(ids); i += maxTracksPerRequest {
		end := min(i+maxTracksPerRequest, len(ids))
		batch := ids[i:end]

		_, err := c.api.AddTracksToPlaylist(ctx, spotify.ID(playlistID), batch...)
		if err != nil {
			return upstream(fmt.Sprintf("adding tracks (batch %d-%d)", i+1, end), err)
		}
	}

	return nil
}

// TrackIDFromLink extracts the track ID from an open.spotify.com track URL
// or a spotify:track: URI.
func TrackIDFromLink(link string) (string, error) {
	if id, ok := strings.CutPrefix(link, "spotify:track:"); ok && id != "" {
		return id, nil
	}

	u, err := url.Parse(link)
	if err != nil || u.Host != "open.spotify.com" {
		return "", fmt.Errorf("%w: %w: %q", shared.ErrInvalidInput, ErrBadTrackLink, link)
	}

	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	// Localized links look like /intl-de/track/<id>.
	for i := 0; i+1 < len(parts); i++ {
		if parts[i] == "track" && parts[i+1] != "" {
			return parts[i+1], nil
		}
	}
	return "", fmt.Errorf("%w: %w: %q", shared.ErrInvalidInput, ErrBadTrackLink, link)
}
