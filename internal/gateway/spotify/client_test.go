package spotify

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/based-on-what/Zortify/internal/model"
	"github.com/based-on-what/Zortify/internal/ratelimit"
	"github.com/based-on-what/Zortify/internal/retry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zmb3/spotify/v2"
	"go.uber.org/zap"
)

type staticProvider struct {
	api API
}

func (p staticProvider) API(context.Context) (API, error) {
	return p.api, nil
}

type recordingSleeper struct {
	delays []time.Duration
}

func (r *recordingSleeper) sleep(_ context.Context, d time.Duration) error {
	r.delays = append(r.delays, d)
	return nil
}

func newTestClient(t *testing.T, handler http.HandlerFunc, backoff []time.Duration) (*Client, *recordingSleeper) {
	t.Helper()

	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)

	api := spotify.New(ts.Client(), spotify.WithBaseURL(ts.URL+"/"))

	rec := &recordingSleeper{}
	policy := retry.NewPolicy(backoff, zap.NewNop())
	policy.Sleep = rec.sleep

	client := NewClient(staticProvider{api: api}, ratelimit.New(0), policy, Options{Market: MarketFromToken}, zap.NewNop())
	return client, rec
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

func TestClient_FetchItems(t *testing.T) {
	var query atomic.Value
	client, rec := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.URL.Path, "/playlists/p1/") {
			http.NotFound(w, r)
			return
		}
		query.Store(r.URL.Query())
		writeJSON(w, http.StatusOK, `{
			"items": [
				{"track": {"type": "track", "duration_ms": 180000, "is_playable": true}},
				{"track": {"type": "episode", "duration_ms": 1000}},
				{"track": {"type": "track", "duration_ms": 5000, "is_playable": false}},
				{"added_at": "2024-01-01T00:00:00Z"}
			],
			"next": "",
			"total": 4
		}`)
	}, []time.Duration{time.Second})

	page, err := client.FetchItems(context.Background(), "p1", 50)
	require.NoError(t, err)
	assert.Empty(t, rec.delays)

	require.Len(t, page.Items, 4)
	assert.Equal(t, model.TrackItem{Type: model.ItemTypeTrack, Playable: true, DurationMs: 180000}, page.Items[0])
	assert.Equal(t, model.ItemTypeEpisode, page.Items[1].Type)
	assert.False(t, page.Items[2].Playable)
	assert.True(t, page.Items[3].Missing)
	assert.Equal(t, 4, page.Total)
	assert.False(t, page.HasNext())

	q := query.Load().(url.Values)
	assert.Equal(t, []string{itemFields}, q["fields"])
	assert.Equal(t, []string{"50"}, q["limit"])
	assert.Equal(t, []string{"50"}, q["offset"])
	assert.Equal(t, []string{MarketFromToken}, q["market"])
}

func TestClient_FetchItemsRetriesRateLimit(t *testing.T) {
	var calls atomic.Int32
	backoff := []time.Duration{time.Second, 2 * time.Second, 5 * time.Second}

	client, rec := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) <= 2 {
			writeJSON(w, http.StatusTooManyRequests, `{"error": {"status": 429, "message": "API rate limit exceeded"}}`)
			return
		}
		writeJSON(w, http.StatusOK, `{"items": [], "next": "", "total": 0}`)
	}, backoff)

	page, err := client.FetchItems(context.Background(), "p1", 0)
	require.NoError(t, err)
	assert.Empty(t, page.Items)
	assert.Equal(t, int32(3), calls.Load())
	assert.Equal(t, backoff[:2], rec.delays)
}

func TestClient_FetchItemsExhausted(t *testing.T) {
	var calls atomic.Int32
	backoff := []time.Duration{time.Millisecond, time.Millisecond}

	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		writeJSON(w, http.StatusNotFound, `{"error": {"status": 404, "message": "Not found."}}`)
	}, backoff)

	_, err := client.FetchItems(context.Background(), "missing", 0)
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	assert.Equal(t, retry.KindOther, apiErr.Kind)
	assert.Equal(t, int32(len(backoff)+1), calls.Load())
}

func TestClient_FetchItemsServerError(t *testing.T) {
	client, rec := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusBadGateway, `{"error": {"status": 502, "message": "Bad gateway."}}`)
	}, []time.Duration{time.Millisecond})

	_, err := client.FetchItems(context.Background(), "p1", 0)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, retry.KindServerError, apiErr.Kind)
	assert.Len(t, rec.delays, 1)
}

func TestClient_ListPlaylists(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/me/playlists" {
			http.NotFound(w, r)
			return
		}
		switch r.URL.Query().Get("offset") {
		case "0":
			writeJSON(w, http.StatusOK, `{
				"items": [{
					"id": "p1",
					"name": "Morning",
					"external_urls": {"spotify": "https://open.spotify.com/playlist/p1"},
					"images": [{"url": "https://i.scdn.co/image/p1"}],
					"tracks": {"total": 12}
				}],
				"next": "https://api.spotify.com/v1/me/playlists?offset=1&limit=50",
				"total": 2
			}`)
		default:
			writeJSON(w, http.StatusOK, `{
				"items": [{"id": "p2", "name": "Night", "external_urls": {}, "images": [], "tracks": {"total": 3}}],
				"next": null,
				"total": 2
			}`)
		}
	}, nil)

	playlists, err := client.ListPlaylists(context.Background())
	require.NoError(t, err)
	require.Len(t, playlists, 2)

	assert.Equal(t, "p1", playlists[0].ID)
	assert.Equal(t, "Morning", playlists[0].Name)
	assert.Equal(t, "https://open.spotify.com/playlist/p1", playlists[0].URL)
	require.NotNil(t, playlists[0].ImageURL)
	assert.Equal(t, "https://i.scdn.co/image/p1", *playlists[0].ImageURL)
	assert.Equal(t, 12, playlists[0].TotalTracks)

	assert.Equal(t, "p2", playlists[1].ID)
	assert.Nil(t, playlists[1].ImageURL)
}

func TestNewAPIError(t *testing.T) {
	assert.Nil(t, newAPIError("op", nil))

	err := newAPIError("op", spotify.Error{Message: "slow down", Status: http.StatusTooManyRequests})
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, retry.KindRateLimited, apiErr.Kind)
	assert.Equal(t, retry.KindRateLimited, retry.Classify(err))

	err = newAPIError("op", errors.New("spotify: HTTP 503: Service Unavailable (body empty)"))
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusServiceUnavailable, apiErr.StatusCode)

	wrapped := newAPIError("outer", err)
	assert.Same(t, err, wrapped)
}
