// Package spotify provides a wrapper around the Spotify Web API.
package spotify

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/zmb3/spotify/v2"
	"golang.org/x/oauth2"

	"github.com/justestif/daily-song/internal/shared"
)

const defaultTimeout = 10 * time.Second

// Client wraps the Spotify API client with convenience methods.
type Client struct {
	api *spotify.Client
}

// New creates a new Spotify client wrapper.
// The underlying client should already be authenticated.
func New(api *spotify.Client) *Client {
	return &Client{api: api}
}

// Factory builds a Client per request from that request's token. Clients are
// never shared between sessions.
type Factory struct {
	baseURL   string
	timeout   time.Duration
	transport http.RoundTripper
}

// FactoryOption configures a Factory.
type FactoryOption func(*Factory)

// WithBaseURL points clients at an alternative API root, such as a test server.
func WithBaseURL(url string) FactoryOption {
	return func(f *Factory) { f.baseURL = url }
}

// WithTimeout bounds every HTTP request a client makes.
func WithTimeout(d time.Duration) FactoryOption {
	return func(f *Factory) { f.timeout = d }
}

// WithTransport sets the base round tripper.
func WithTransport(rt http.RoundTripper) FactoryOption {
	return func(f *Factory) { f.transport = rt }
}

// NewFactory creates a Factory.
func NewFactory(opts ...FactoryOption) *Factory {
	f := &Factory{timeout: defaultTimeout, transport: http.DefaultTransport}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// ForToken returns a client that authenticates with token. The token is used
// as is; refreshing is the caller's job.
func (f *Factory) ForToken(token *oauth2.Token) *Client {
	httpClient := &http.Client{
		Timeout: f.timeout,
		Transport: &oauth2.Transport{
			Source: oauth2.StaticTokenSource(token),
			Base:   f.transport,
		},
	}

	var opts []spotify.ClientOption
	if f.baseURL != "" {
		opts = append(opts, spotify.WithBaseURL(f.baseURL))
	}
	return New(spotify.New(httpClient, opts...))
}

// UserID returns the current user's Spotify ID.
func (c *Client) UserID(ctx context.Context) (string, error) {
	user, err := c.api.CurrentUser(ctx)
	if err != nil {
		return "", upstream("getting current user", err)
	}
	return user.ID, nil
}

func upstream(op string, err error) error {
	return fmt.Errorf("%w: spotify: %s: %w", shared.ErrUpstream, op, err)
}
