package lastfm

// TrackDetails is the descriptive metadata attached to a generated song.
type TrackDetails struct {
	Name        string
	Summary     string
	Description string
}

// trackInfoResponse is the JSON response for track.getInfo.
type trackInfoResponse struct {
	Track *struct {
		Name   string `json:"name"`
		URL    string `json:"url"`
		Artist struct {
			Name string `json:"name"`
		} `json:"artist"`
		Wiki *struct {
			Published string `json:"published"`
			Summary   string `json:"summary"`
			Content   string `json:"content"`
		} `json:"wiki"`
	} `json:"track"`
}

// apiError represents a Last.fm API error response.
type apiError struct {
	Error   int    `json:"error"`
	Message string `json:"message"`
}
