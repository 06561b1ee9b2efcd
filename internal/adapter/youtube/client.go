package youtube

import (
	"context"
	"encoding/xml"
	"fmt"
	"html"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	yt "google.golang.org/api/youtube/v3"
	"google.golang.org/api/option"
)

type TranscriptStatus string

const (
	StatusAvailable   TranscriptStatus = "available"
	StatusUnavailable TranscriptStatus = "unavailable"
	StatusError       TranscriptStatus = "error"
)

// Transcript is the raw caption text for one video. Immutable once fetched;
// the chunker consumes it read-only.
type Transcript struct {
	VideoID  string
	Text     string
	Language string
	Status   TranscriptStatus
}

// PlaylistItem is the metadata the pipeline records per playlist video.
type PlaylistItem struct {
	VideoID    string
	PlaylistID string
	Title      string
	URL        string
}

const defaultTimedTextURL = "https://video.google.com/timedtext"

type Client struct {
	svc          *yt.Service
	http         *http.Client
	timedTextURL string
	languages    []string
}

func NewClient(ctx context.Context, apiKey string) (*Client, error) {
	svc, err := yt.NewService(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("youtube service: %w", err)
	}
	return &Client{
		svc:          svc,
		http:         &http.Client{Timeout: 20 * time.Second},
		timedTextURL: defaultTimedTextURL,
		languages:    []string{"en", "en-US", "en-GB"},
	}, nil
}

// SetTimedTextURL overrides the caption endpoint, for tests.
func (c *Client) SetTimedTextURL(u string) {
	c.timedTextURL = u
}

// ListPlaylistItems pages through all items of a playlist, 50 per request.
func (c *Client) ListPlaylistItems(ctx context.Context, playlistID string) ([]PlaylistItem, error) {
	var items []PlaylistItem
	pageToken := ""

	for {
		call := c.svc.PlaylistItems.List([]string{"snippet", "contentDetails"}).
			PlaylistId(playlistID).
			MaxResults(50).
			Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}

		resp, err := call.Do()
		if err != nil {
			return nil, fmt.Errorf("list playlist %s: %w", playlistID, err)
		}

		for _, it := range resp.Items {
			if it.ContentDetails == nil {
				continue
			}
			videoID := it.ContentDetails.VideoId
			title := ""
			if it.Snippet != nil {
				title = it.Snippet.Title
			}
			items = append(items, PlaylistItem{
				VideoID:    videoID,
				PlaylistID: playlistID,
				Title:      title,
				URL:        "https://www.youtube.com/watch?v=" + videoID,
			})
		}

		pageToken = resp.NextPageToken
		if pageToken == "" {
			break
		}
		slog.DebugContext(ctx, "fetched playlist page", "playlist_id", playlistID, "videos_so_far", len(items))
	}

	slog.InfoContext(ctx, "listed playlist", "playlist_id", playlistID, "videos", len(items))
	return items, nil
}

// ExtractPlaylistID pulls the list parameter out of a playlist URL. A bare
// playlist ID passes through unchanged.
func ExtractPlaylistID(raw string) (string, error) {
	if !strings.Contains(raw, "://") {
		return raw, nil
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("invalid playlist URL %q: %w", raw, err)
	}
	id := u.Query().Get("list")
	if id == "" {
		return "", fmt.Errorf("invalid playlist URL %q: no list parameter", raw)
	}
	return id, nil
}

type timedText struct {
	XMLName xml.Name        `xml:"transcript"`
	Texts   []timedTextLine `xml:"text"`
}

type timedTextLine struct {
	Start string `xml:"start,attr"`
	Dur   string `xml:"dur,attr"`
	Body  string `xml:",chardata"`
}

// FetchTranscript retrieves captions via the timedtext endpoint, preferring
// English tracks. A failing language falls through to the next one; status
// error is returned only when no language produced a track and at least one
// failed. No track at all yields status unavailable. Neither is a Go error:
// the caller decides how to record the skip.
func (c *Client) FetchTranscript(ctx context.Context, videoID string) Transcript {
	failed := false
	for _, lang := range c.languages {
		tr, err := c.fetchLanguage(ctx, videoID, lang)
		if err != nil {
			slog.WarnContext(ctx, "transcript fetch failed", "video_id", videoID, "lang", lang, "error", err)
			failed = true
			continue
		}
		if tr != "" {
			slog.InfoContext(ctx, "fetched transcript", "video_id", videoID, "lang", lang, "chars", len(tr))
			return Transcript{VideoID: videoID, Text: tr, Language: lang, Status: StatusAvailable}
		}
	}

	if failed {
		return Transcript{VideoID: videoID, Status: StatusError}
	}
	slog.WarnContext(ctx, "no transcript available", "video_id", videoID)
	return Transcript{VideoID: videoID, Status: StatusUnavailable}
}

func (c *Client) fetchLanguage(ctx context.Context, videoID, lang string) (string, error) {
	q := url.Values{}
	q.Set("v", videoID)
	q.Set("lang", lang)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.timedTextURL+"?"+q.Encode(), nil)
	if err != nil {
		return "", err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return "", nil
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("timedtext status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return "", err
	}
	// An empty body means no caption track exists for this language.
	if len(strings.TrimSpace(string(body))) == 0 {
		return "", nil
	}

	return parseTimedText(body)
}

func parseTimedText(body []byte) (string, error) {
	var doc timedText
	if err := xml.Unmarshal(body, &doc); err != nil {
		return "", fmt.Errorf("parse timedtext: %w", err)
	}

	parts := make([]string, 0, len(doc.Texts))
	for _, line := range doc.Texts {
		t := strings.TrimSpace(html.UnescapeString(line.Body))
		if t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, " "), nil
}
