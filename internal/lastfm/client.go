package lastfm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/justestif/daily-song/internal/shared"
)

const (
	userAgent      = "daily-song/1.0"
	defaultTimeout = 10 * time.Second
)

// Placeholders used when Last.fm has nothing for a field.
const (
	TrackNotFound       = "Track not found."
	SummaryNotFound     = "Summary not found."
	DescriptionNotFound = "Description not found."
)

// Last.fm API error codes.
const (
	errCodeInvalidParams = 6
	errCodeInvalidAPIKey = 10
	errCodeRateLimited   = 29
)

// Sentinel errors.
var (
	// ErrRateLimited is returned when Last.fm reports the rate limit was exceeded.
	ErrRateLimited = errors.New("rate limit exceeded")

	// ErrInvalidAPIKey is returned when the API key is invalid.
	ErrInvalidAPIKey = errors.New("invalid API key")

	errTrackUnknown = errors.New("track not found")
)

// Client is a throttled Last.fm API client.
type Client struct {
	apiKey  string
	http    *resty.Client
	limiter *rate.Limiter
}

// NewClient creates a new Last.fm API client from the provided configuration.
func NewClient(cfg Config) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}

	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}

	return &Client{
		apiKey: cfg.APIKey,
		http: resty.New().
			SetBaseURL(baseURL).
			SetTimeout(timeout).
			SetHeader("User-Agent", userAgent),
		limiter: rate.NewLimiter(limit, 1),
	}
}

// FetchDetails looks up a track with track.getInfo. Missing fields, and
// tracks Last.fm does not know, come back as placeholder text rather than
// an error. Only failures to talk to Last.fm are errors.
func (c *Client) FetchDetails(ctx context.Context, artist, title string) (TrackDetails, error) {
	logger := log.With().Str("artist", artist).Str("title", title).Logger()

	body, err := c.doRequest(ctx, map[string]string{
		"method":  "track.getInfo",
		"artist":  artist,
		"track":   title,
		"format":  "json",
		"api_key": c.apiKey,
	})
	if errors.Is(err, errTrackUnknown) {
		logger.Warn().Str("soft_failure", "track_not_found").Msg("last.fm does not know this track")
		return placeholderDetails(), nil
	}
	if err != nil {
		return TrackDetails{}, fmt.Errorf("%w: lastfm: fetching track info: %w", shared.ErrUpstream, err)
	}

	var resp trackInfoResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return TrackDetails{}, fmt.Errorf("%w: lastfm: parsing track info: %w", shared.ErrUpstream, err)
	}

	details := placeholderDetails()
	if resp.Track == nil {
		logger.Warn().Str("soft_failure", "track_missing").Msg("track.getInfo returned no track")
		return details, nil
	}

	if resp.Track.Name != "" {
		details.Name = resp.Track.Name
	} else {
		logger.Warn().Str("soft_failure", "name_missing").Msg("track has no name")
	}

	if resp.Track.Wiki != nil && resp.Track.Wiki.Summary != "" {
		details.Summary = resp.Track.Wiki.Summary
	} else {
		logger.Warn().Str("soft_failure", "summary_missing").Msg("track has no summary")
	}

	if resp.Track.Wiki != nil && resp.Track.Wiki.Content != "" {
		details.Description = resp.Track.Wiki.Content
	} else {
		logger.Warn().Str("soft_failure", "description_missing").Msg("track has no description")
	}

	return details, nil
}

// doRequest performs a single throttled GET against the API root.
func (c *Client) doRequest(ctx context.Context, params map[string]string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("waiting for rate limiter: %w", err)
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(params).
		Get("/")
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}

	body := resp.Body()

	// Last.fm reports failures in the body, sometimes with a 200.
	var apiErr apiError
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Error != 0 {
		switch apiErr.Error {
		case errCodeInvalidParams:
			return nil, errTrackUnknown
		case errCodeRateLimited:
			return nil, ErrRateLimited
		case errCodeInvalidAPIKey:
			return nil, ErrInvalidAPIKey
		default:
			return nil, fmt.Errorf("API error %d: %s", apiErr.Error, apiErr.Message)
		}
	}

	if resp.StatusCode() >= http.StatusBadRequest {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode())
	}

	return body, nil
}

func placeholderDetails() TrackDetails {
	return TrackDetails{
		Name:        TrackNotFound,
		Summary:     SummaryNotFound,
		Description: DescriptionNotFound,
	}
}
