package fetcher

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mspro-labs/treedb/internal/config"
)

func TestHTTPFetcher_AppendsSuffixVerbatim(t *testing.T) {
	var gotPath, gotSpid string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotSpid = r.URL.Query().Get("Spid")
		w.Write([]byte("<html><body><h2>Acacia</h2></body></html>"))
	}))
	defer server.Close()

	f := NewHTTPFetcher(Options{BaseURL: server.URL + "/treedb2/speciesprofile.php"})
	body, err := f.Fetch(context.Background(), "?Spid=404")

	require.NoError(t, err)
	assert.Equal(t, "/treedb2/speciesprofile.php", gotPath)
	assert.Equal(t, "404", gotSpid)
	assert.Equal(t, "<html><body><h2>Acacia</h2></body></html>", body)
}

func TestHTTPFetcher_ReturnsBodyForErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte("<p>No such species</p>"))
	}))
	defer server.Close()

	f := NewHTTPFetcher(Options{BaseURL: server.URL})
	body, err := f.Fetch(context.Background(), "/missing")

	require.NoError(t, err)
	assert.Equal(t, "<p>No such species</p>", body)
}

func TestHTTPFetcher_PreservesWhitespace(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte("\n  <h2> Faidherbia albida </h2>\n"))
	}))
	defer server.Close()

	body, err := NewHTTPFetcher(Options{BaseURL: server.URL}).Fetch(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, "\n  <h2> Faidherbia albida </h2>\n", body)
}

func TestHTTPFetcher_DecodesLatin1(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=iso-8859-1")
		w.Write([]byte{'C', 0xF4, 't', 'e'})
	}))
	defer server.Close()

	body, err := NewHTTPFetcher(Options{BaseURL: server.URL}).Fetch(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, "Côte", body)
}

func TestHTTPFetcher_UndeclaredUTF8PastSniffWindow(t *testing.T) {
	page := strings.Repeat("a", 1100) + "Côte d'Ivoire"
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(page))
	}))
	defer server.Close()

	body, err := NewHTTPFetcher(Options{BaseURL: server.URL}).Fetch(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, page, body)
}

func TestHTTPFetcher_UndeclaredLatin1FallsBack(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte{'C', 0xF4, 't', 'e'})
	}))
	defer server.Close()

	body, err := NewHTTPFetcher(Options{BaseURL: server.URL}).Fetch(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, "Côte", body)
}

func TestHTTPFetcher_NetworkError(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	_, err := NewHTTPFetcher(Options{BaseURL: url}).Fetch(context.Background(), "?Spid=1")
	assert.Error(t, err)
}

func TestHTTPFetcher_DelaySpacesRequests(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}))
	defer server.Close()

	f := NewHTTPFetcher(Options{BaseURL: server.URL, Delay: 150 * time.Millisecond})
	ctx := context.Background()

	start := time.Now()
	_, err := f.Fetch(ctx, "")
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 150*time.Millisecond, "first request must not wait")

	_, err = f.Fetch(ctx, "")
	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 100*time.Millisecond)
}

func TestHTTPFetcher_CancelledWhileWaiting(t *testing.T) {
	f := NewHTTPFetcher(Options{BaseURL: "http://127.0.0.1:1", Delay: time.Hour})
	require.True(t, f.limiter.Allow())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := f.Fetch(ctx, "")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestThrottle_ZeroDelayNeverBlocks(t *testing.T) {
	l := newThrottle(0)
	for i := 0; i < 100; i++ {
		assert.True(t, l.Allow())
	}
}

func TestNew_SelectsHTTPFetcher(t *testing.T) {
	f, err := New(config.DefaultSiteConfig())
	require.NoError(t, err)
	defer f.Close()
	assert.IsType(t, &HTTPFetcher{}, f)

	cfg := config.DefaultSiteConfig()
	cfg.Fetcher = "ftp"
	_, err = New(cfg)
	assert.Error(t, err)
}
