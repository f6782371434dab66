// Package lastfm provides Last.fm API integration for fetching track details.
package lastfm

import (
	"errors"
	"fmt"
	"time"

	"github.com/justestif/daily-song/internal/shared"
)

// DefaultBaseURL is the public Last.fm API root.
const DefaultBaseURL = "http://ws.audioscrobbler.com/2.0"

// ErrMissingAPIKey is returned when no API key is configured.
var ErrMissingAPIKey = fmt.Errorf("%w: missing Last.fm API key", shared.ErrInvalidInput)

// Config holds Last.fm API configuration.
type Config struct {
	APIKey  string
	BaseURL string

	// RequestsPerSecond throttles outbound calls. Zero or less disables the throttle.
	RequestsPerSecond float64
	Timeout           time.Duration
}

// Validate reports whether the configuration can build a client.
func (c Config) Validate() error {
	if c.APIKey == "" {
		return ErrMissingAPIKey
	}
	if c.Timeout < 0 {
		return errors.New("lastfm: timeout must not be negative")
	}
	return nil
}
