package spotify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zmb3/spotify/v2"
	"golang.org/x/oauth2"

	"github.com/justestif/daily-song/internal/shared"
)

// fakeAPI is a minimal stand-in for the Spotify Web API.
type fakeAPI struct {
	mu       sync.Mutex
	requests []*http.Request
	added    [][]string

	recommendations string
	search          string
	status          int
}

func (f *fakeAPI) handler(t *testing.T) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.requests = append(f.requests, r)
		f.mu.Unlock()

		if got := r.Header.Get("Authorization"); got != "Bearer tok" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":{"status":401,"message":"Invalid access token"}}`))
			return
		}
		if f.status != 0 {
			w.WriteHeader(f.status)
			_, _ = w.Write([]byte(`{"error":{"status":503,"message":"unavailable"}}`))
			return
		}

		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.URL.Path == "/recommendations":
			_, _ = w.Write([]byte(f.recommendations))
		case r.URL.Path == "/search":
			_, _ = w.Write([]byte(f.search))
		case r.URL.Path == "/me":
			_, _ = w.Write([]byte(`{"id":"user-1","display_name":"Test"}`))
		case r.URL.Path == "/users/user-1/playlists" && r.Method == http.MethodPost:
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(`{"id":"playlist-1","name":"Daily"}`))
		case strings.HasPrefix(r.URL.Path, "/playlists/playlist-1/tracks"):
			var body struct {
				URIs []string `json:"uris"`
			}
			_ = json.NewDecoder(r.Body).Decode(&body)
			f.mu.Lock()
			f.added = append(f.added, body.URIs)
			f.mu.Unlock()
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(`{"snapshot_id":"snap"}`))
		default:
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	})
}

func newTestClient(t *testing.T, api *fakeAPI) *Client {
	t.Helper()
	server := httptest.NewServer(api.handler(t))
	t.Cleanup(server.Close)

	factory := NewFactory(WithBaseURL(server.URL+"/"), WithTransport(server.Client().Transport))
	return factory.ForToken(&oauth2.Token{AccessToken: "tok", TokenType: "Bearer"})
}

const twoTracks = `{
	"tracks": [
		{
			"id": "t1",
			"name": "A",
			"artists": [{"id": "a1", "name": "X"}, {"id": "a2", "name": "Y"}],
			"external_urls": {"spotify": "https://open.spotify.com/track/t1"}
		},
		{
			"id": "t2",
			"name": "B",
			"artists": [{"id": "a3", "name": "Z"}],
			"external_urls": {"spotify": "https://open.spotify.com/track/t2"}
		}
	]
}`

func TestRecommend(t *testing.T) {
	api := &fakeAPI{recommendations: twoTracks}
	client := newTestClient(t, api)

	tracks, err := client.Recommend(context.Background(), "rock", 1)
	require.NoError(t, err)
	require.Len(t, tracks, 1, "never more than limit")
	assert.Equal(t, "A", tracks[0].Name)

	artist, ok := tracks[0].FirstArtist()
	require.True(t, ok)
	assert.Equal(t, "X", artist.Name)

	link, ok := tracks[0].Link()
	require.True(t, ok)
	assert.Equal(t, "https://open.spotify.com/track/t1", link)

	require.Len(t, api.requests, 1)
	q := api.requests[0].URL.Query()
	assert.Equal(t, "rock", q.Get("seed_genres"))
	assert.Equal(t, "1", q.Get("limit"))
	assert.Equal(t, "50", q.Get("min_popularity"))
	assert.Contains(t, q.Get("min_energy"), "0.4")
}

func TestRecommendEmpty(t *testing.T) {
	client := newTestClient(t, &fakeAPI{recommendations: `{"tracks": []}`})

	tracks, err := client.Recommend(context.Background(), "metal", 1)
	require.NoError(t, err)
	assert.Empty(t, tracks)
}

func TestRecommendUpstreamFailure(t *testing.T) {
	client := newTestClient(t, &fakeAPI{status: http.StatusServiceUnavailable})

	_, err := client.Recommend(context.Background(), "pop", 1)
	require.Error(t, err)
	assert.True(t, errors.Is(err, shared.ErrUpstream))
}

func TestSearchAlbumArt(t *testing.T) {
	tests := []struct {
		name    string
		search  string
		status  int
		wantURL string
	}{
		{
			name:    "album with image",
			search:  `{"albums":{"items":[{"id":"al1","name":"Alb","images":[{"url":"https://i.scdn.co/image/1","height":640,"width":640}]}]}}`,
			wantURL: "https://i.scdn.co/image/1",
		},
		{
			name:   "no album",
			search: `{"albums":{"items":[]}}`,
		},
		{
			name:   "album without images",
			search: `{"albums":{"items":[{"id":"al1","name":"Alb","images":[]}]}}`,
		},
		{
			name:   "lookup failure",
			status: http.StatusServiceUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := &fakeAPI{search: tt.search, status: tt.status}
			client := newTestClient(t, api)

			art := client.SearchAlbumArt(context.Background(), "X", "A")
			if tt.wantURL == "" {
				assert.Nil(t, art)
				return
			}
			require.NotNil(t, art)
			assert.Equal(t, tt.wantURL, art.URL)
			assert.Equal(t, "Alb", art.AlbumName)

			q := api.requests[0].URL.Query()
			assert.Equal(t, "X A", q.Get("q"))
			assert.Equal(t, "album", q.Get("type"))
			assert.Equal(t, "1", q.Get("limit"))
		})
	}
}

func TestCreatePlaylistAndAddTracks(t *testing.T) {
	api := &fakeAPI{}
	client := newTestClient(t, api)
	ctx := context.Background()

	id, err := client.CreatePlaylist(ctx, "Daily Songs 2024-01-01", "desc", false)
	require.NoError(t, err)
	assert.Equal(t, "playlist-1", id)

	require.NoError(t, client.AddTracksToPlaylist(ctx, id, []string{"t1", "t2"}))
	require.Len(t, api.added, 1)
	assert.Equal(t, []string{"spotify:track:t1", "spotify:track:t2"}, api.added[0])
}

func TestConvertTrack(t *testing.T) {
	tests := []struct {
		name       string
		track      spotify.SimpleTrack
		wantArtist string
		wantOK     bool
	}{
		{
			name: "single artist",
			track: spotify.SimpleTrack{
				ID:      "track123",
				Name:    "Test Song",
				Artists: []spotify.SimpleArtist{{Name: "Artist One", ID: "a1"}},
			},
			wantArtist: "Artist One",
			wantOK:     true,
		},
		{
			name: "multiple artists keeps first",
			track: spotify.SimpleTrack{
				ID:   "track456",
				Name: "Collab Track",
				Artists: []spotify.SimpleArtist{
					{Name: "Artist A"},
					{Name: "Artist B"},
				},
			},
			wantArtist: "Artist A",
			wantOK:     true,
		},
		{
			name: "no artists",
			track: spotify.SimpleTrack{
				ID:      "track000",
				Name:    "Unknown Track",
				Artists: []spotify.SimpleArtist{},
			},
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := convertTrack(tt.track)

			assert.Equal(t, tt.track.ID.String(), got.ID)
			assert.Equal(t, tt.track.Name, got.Name)

			artist, ok := got.FirstArtist()
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantArtist, artist.Name)
		})
	}
}

func TestTrackLinkMissing(t *testing.T) {
	_, ok := Track{}.Link()
	assert.False(t, ok)

	_, ok = Track{ExternalURLs: map[string]string{"spotify": ""}}.Link()
	assert.False(t, ok)
}

func TestTrackIDFromLink(t *testing.T) {
	tests := []struct {
		link    string
		want    string
		wantErr bool
	}{
		{"https://open.spotify.com/track/4uLU6hMCjMI75M1A2tKUQC", "4uLU6hMCjMI75M1A2tKUQC", false},
		{"https://open.spotify.com/track/4uLU6hMCjMI75M1A2tKUQC?si=abc", "4uLU6hMCjMI75M1A2tKUQC", false},
		{"https://open.spotify.com/intl-de/track/abc", "abc", false},
		{"spotify:track:xyz", "xyz", false},
		{"https://open.spotify.com/album/abc", "", true},
		{"https://example.com/track/abc", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.link, func(t *testing.T) {
			got, err := TrackIDFromLink(tt.link)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrBadTrackLink)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBatchChunking(t *testing.T) {
	tests := []struct {
		name          string
		totalTracks   int
		expectedBatch []struct{ start, end int }
	}{
		{
			name:          "less than 100",
			totalTracks:   50,
			expectedBatch: []struct{ start, end int }{{0, 50}},
		},
		{
			name:          "exactly 100",
			totalTracks:   100,
			expectedBatch: []struct{ start, end int }{{0, 100}},
		},
		{
			name:          "more than 100",
			totalTracks:   250,
			expectedBatch: []struct{ start, end int }{{0, 100}, {100, 200}, {200, 250}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var batches []struct{ start, end int }

			for i := 0; i < tt.totalTracks; i += maxTracksPerRequest {
				end := min(i+maxTracksPerRequest, tt.totalTracks)
				batches = append(batches, struct{ start, end int }{i, end})
			}

			assert.Equal(t, tt.expectedBatch, batches)
		})
	}
}
