package db

import (
	"time"

	"github.com/justestif/daily-song/internal/genre"
)

// User is an authenticated end user and the last token issued to them.
type User struct {
	ID           int64
	AccessToken  string
	ExpiresIn    int        // seconds
	ExpiresAt    *time.Time // nullable
	RefreshToken *string    // nullable
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Song is one generated song of the day. Rows are never updated.
type Song struct {
	ID          int64       `json:"id"`
	UserID      int64       `json:"user_id"`
	Title       string      `json:"title"`
	Artist      string      `json:"artist"`
	Link        string      `json:"link"`
	Genre       genre.Genre `json:"genre"`
	Description string      `json:"description"`
	Summary     string      `json:"summary"` // stored in the overview column
	AlbumCover  string      `json:"album_cover"`
	CreatedAt   time.Time   `json:"created_at"`
}
