package youtube

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClient(serverURL string) *Client {
	return &Client{
		http:         &http.Client{Timeout: 5 * time.Second},
		timedTextURL: serverURL,
		languages:    []string{"en"},
	}
}

func TestFetchTranscript(t *testing.T) {
	ctx := context.Background()

	t.Run("Available", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "abc123", r.URL.Query().Get("v"))
			assert.Equal(t, "en", r.URL.Query().Get("lang"))
			w.Write([]byte(`<?xml version="1.0" encoding="utf-8"?>
<transcript>
  <text start="0.0" dur="2.5">so today we&amp;#39;re talking about</text>
  <text start="2.5" dur="3.1">compound interest &amp;amp; savings</text>
</transcript>`))
		}))
		defer srv.Close()

		tr := testClient(srv.URL).FetchTranscript(ctx, "abc123")
		assert.Equal(t, StatusAvailable, tr.Status)
		assert.Equal(t, "en", tr.Language)
		assert.Contains(t, tr.Text, "compound interest & savings")
		assert.Contains(t, tr.Text, "we're talking about")
	})

	t.Run("Empty body means unavailable", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))
		defer srv.Close()

		tr := testClient(srv.URL).FetchTranscript(ctx, "abc123")
		assert.Equal(t, StatusUnavailable, tr.Status)
		assert.Empty(t, tr.Text)
	})

	t.Run("404 means unavailable", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		}))
		defer srv.Close()

		tr := testClient(srv.URL).FetchTranscript(ctx, "abc123")
		assert.Equal(t, StatusUnavailable, tr.Status)
	})

	t.Run("Server error means error status", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer srv.Close()

		tr := testClient(srv.URL).FetchTranscript(ctx, "abc123")
		assert.Equal(t, StatusError, tr.Status)
	})

	t.Run("Failing language falls through to the next track", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Query().Get("lang") == "en" {
				w.WriteHeader(http.StatusInternalServerError)
				return
			}
			w.Write([]byte(`<transcript><text start="0.0" dur="1.0">hello from the fallback track</text></transcript>`))
		}))
		defer srv.Close()

		c := testClient(srv.URL)
		c.languages = []string{"en", "en-US"}

		tr := c.FetchTranscript(ctx, "abc123")
		assert.Equal(t, StatusAvailable, tr.Status)
		assert.Equal(t, "en-US", tr.Language)
		assert.Contains(t, tr.Text, "fallback track")
	})

	t.Run("Transport failure with no usable track means error status", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Query().Get("lang") == "en" {
				w.WriteHeader(http.StatusInternalServerError)
				return
			}
			w.WriteHeader(http.StatusNotFound)
		}))
		defer srv.Close()

		c := testClient(srv.URL)
		c.languages = []string{"en", "en-US", "en-GB"}

		tr := c.FetchTranscript(ctx, "abc123")
		assert.Equal(t, StatusError, tr.Status)
	})

	t.Run("Malformed XML means error status", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`<transcript><text>unclosed`))
		}))
		defer srv.Close()

		tr := testClient(srv.URL).FetchTranscript(ctx, "abc123")
		assert.Equal(t, StatusError, tr.Status)
	})
}

func TestExtractPlaylistID(t *testing.T) {
	t.Run("Full URL", func(t *testing.T) {
		id, err := ExtractPlaylistID("https://www.youtube.com/playlist?list=PLgBzZN2MBL00NGEQqQ_ORvigykKJJCIBm")
		require.NoError(t, err)
		assert.Equal(t, "PLgBzZN2MBL00NGEQqQ_ORvigykKJJCIBm", id)
	})

	t.Run("Watch URL with extra params", func(t *testing.T) {
		id, err := ExtractPlaylistID("https://www.youtube.com/watch?v=abc&list=PL123&index=2")
		require.NoError(t, err)
		assert.Equal(t, "PL123", id)
	})

	t.Run("Bare ID passes through", func(t *testing.T) {
		id, err := ExtractPlaylistID("PL123")
		require.NoError(t, err)
		assert.Equal(t, "PL123", id)
	})

	t.Run("URL without list parameter errors", func(t *testing.T) {
		_, err := ExtractPlaylistID("https://www.youtube.com/watch?v=abc")
		assert.Error(t, err)
	})
}
