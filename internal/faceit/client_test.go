package faceit

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, h http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c := NewClient("secret")
	c.BaseURL = srv.URL
	c.DownloadsURL = srv.URL + "/download"
	return c
}

func TestGetPlayer(t *testing.T) {
	var gotQuery string
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		assert.Equal(t, "/players", r.URL.Path)
		gotQuery = r.URL.RawQuery
		json.NewEncoder(w).Encode(map[string]any{"player_id": "p-1", "nickname": "someone"})
	}))

	p, err := c.GetPlayer(context.Background(), "someone")
	require.NoError(t, err)
	assert.Equal(t, "p-1", p.PlayerID)
	assert.Equal(t, "nickname=someone", gotQuery)

	_, err = c.GetPlayer(context.Background(), "76561198000000001")
	require.NoError(t, err)
	assert.Equal(t, "game=cs2&game_player_id=76561198000000001", gotQuery)
}

func TestGetMatchHistoryAndMatch(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/players/p-1/history", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "20", r.URL.Query().Get("limit"))
		w.Write([]byte(`{"items":[{"match_id":"m-1","status":"FINISHED","started_at":100},{"match_id":"m-2","status":"CANCELLED"}]}`))
	})
	mux.HandleFunc("/matches/m-1", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"match_id":"m-1","started_at":1700000000,"demo_url":["https://x/m-1.dem.zst"],"voting":{"map":{"pick":["de_mirage"]}}}`))
	})
	c := newTestClient(t, mux)

	items, err := c.GetMatchHistory(context.Background(), "p-1", 20)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.True(t, items[0].Finished())
	assert.False(t, items[1].Finished())

	m, err := c.GetMatch(context.Background(), "m-1")
	require.NoError(t, err)
	assert.Equal(t, "de_mirage", m.MapName())
	assert.Equal(t, int64(1700000000), m.Started().Unix())
	assert.Equal(t, []string{"https://x/m-1.dem.zst"}, m.DemoURLs)
}

func TestGetNonOK(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	_, err := c.GetMatch(context.Background(), "m-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HTTP 403")
}

func TestResolveDemoURL(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer dl-key", r.Header.Get("Authorization"))
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "https://backblaze.faceit-cdn.net/x.dem.gz", body["resource_url"])
		w.Write([]byte(`{"payload":{"download_url":"https://signed/x.dem.gz"}}`))
	}))

	got, err := c.ResolveDemoURL(context.Background(), "https://backblaze.faceit-cdn.net/x.dem.gz", "dl-key")
	require.NoError(t, err)
	assert.Equal(t, "https://signed/x.dem.gz", got)
	assert.True(t, IsKnownBrokenCDN("https://backblaze.faceit-cdn.net/x.dem.gz"))
}

func TestDownloadDemo(t *testing.T) {
	payload := []byte("demo bytes")

	var zst bytes.Buffer
	zw, err := zstd.NewWriter(&zst)
	require.NoError(t, err)
	_, err = zw.Write(payload)
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	var gz bytes.Buffer
	gw := gzip.NewWriter(&gz)
	_, err = gw.Write(payload)
	require.NoError(t, err)
	require.NoError(t, gw.Close())

	mux := http.NewServeMux()
	mux.HandleFunc("/a.dem.zst", func(w http.ResponseWriter, r *http.Request) { w.Write(zst.Bytes()) })
	mux.HandleFunc("/b.dem.gz", func(w http.ResponseWriter, r *http.Request) { w.Write(gz.Bytes()) })
	mux.HandleFunc("/c.dem", func(w http.ResponseWriter, r *http.Request) { w.Write(payload) })
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	c := NewClient("")
	dir := t.TempDir()
	for _, name := range []string{"a.dem.zst", "b.dem.gz", "c.dem"} {
		path, err := c.DownloadDemo(context.Background(), srv.URL+"/"+name+"?sig=1", dir, name)
		require.NoError(t, err, name)
		got, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, payload, got, name)
	}

	_, err = c.DownloadDemo(context.Background(), srv.URL+"/missing", dir, "missing")
	assert.Error(t, err)
}

func TestLooksLikeSteamID(t *testing.T) {
	assert.True(t, LooksLikeSteamID("76561198000000001"))
	assert.False(t, LooksLikeSteamID("someone"))
	assert.False(t, LooksLikeSteamID("12345"))
}
