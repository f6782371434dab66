package spotify

// Track is a recommended track.
type Track struct {
	ID           string
	Name         string
	Artists      []Artist
	ExternalURLs map[string]string
}

// Artist is a credited artist on a track.
type Artist struct {
	ID   string
	Name string
}

// AlbumArt is the cover image of the best album match for a search.
type AlbumArt struct {
	AlbumID   string
	AlbumName string
	URL       string
}

// FirstArtist returns the first credited artist.
func (t Track) FirstArtist() (Artist, bool) {
	if len(t.Artists) == 0 || t.Artists[0].Name == "" {
		return Artist{}, false
	}
	return t.Artists[0], true
}

// Link returns the track's open.spotify.com URL.
func (t Track) Link() (string, bool) {
	link, ok := t.ExternalURLs["spotify"]
	return link, ok && link != ""
}
