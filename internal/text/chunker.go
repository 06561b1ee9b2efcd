package text

import (
	"fmt"
	"regexp"
	"strings"

	"tubedigest/internal/config"
)

// Chunk is one bounded window of a transcript, sized for a single extraction
// call. Start and End are token offsets into the normalized transcript;
// consecutive chunks overlap by the configured token count so an idea spanning
// a window boundary is seen by at least one full window.
type Chunk struct {
	VideoID    string
	Index      int
	Text       string
	TokenCount int
	Start      int
	End        int
}

type Chunker struct {
	maxTokens     int
	overlapTokens int
}

// NewChunker validates the window parameters up front. An overlap that is not
// smaller than the window would make chunking oscillate or never advance, so
// it is a startup configuration error, never clamped.
func NewChunker(maxTokens, overlapTokens int) (*Chunker, error) {
	if maxTokens <= 0 {
		return nil, fmt.Errorf("%w: max tokens must be positive, got %d", config.ErrInvalidValue, maxTokens)
	}
	if overlapTokens < 0 {
		return nil, fmt.Errorf("%w: overlap tokens must not be negative, got %d", config.ErrInvalidValue, overlapTokens)
	}
	if overlapTokens >= maxTokens {
		return nil, fmt.Errorf("%w: overlap tokens (%d) must be smaller than max tokens (%d)",
			config.ErrInvalidValue, overlapTokens, maxTokens)
	}
	return &Chunker{maxTokens: maxTokens, overlapTokens: overlapTokens}, nil
}

var cueRe = regexp.MustCompile(`\[[^\]\n]{1,40}\]|\([^)\n]{1,40}\)`)

// NormalizeTranscript strips caption cues like "[Music]" or "(applause)" and
// collapses whitespace. Auto-generated transcripts are full of these markers
// and they carry no extractable content.
func NormalizeTranscript(text string) string {
	text = cueRe.ReplaceAllStringFunc(text, func(m string) string {
		inner := strings.TrimSpace(m[1 : len(m)-1])
		if isCue(inner) {
			return " "
		}
		return m
	})
	return strings.Join(strings.Fields(text), " ")
}

func isCue(s string) bool {
	if s == "" {
		return true
	}
	switch strings.ToLower(s) {
	case "music", "applause", "laughter", "laughs", "cheering", "inaudible", "silence", "crosstalk":
		return true
	}
	return strings.HasPrefix(s, "__") || strings.EqualFold(s, "foreign")
}

// Split cuts a transcript into overlapping token windows. Tokens are
// whitespace-delimited words; the same unit counts both the window size and
// the overlap. The output is deterministic for a given input and covers every
// token: window k spans [k*(max-overlap), min(k*(max-overlap)+max, n)).
// Text shorter than one window yields exactly one chunk; empty text yields
// none.
func (c *Chunker) Split(videoID, transcript string) []Chunk {
	tokens := strings.Fields(NormalizeTranscript(transcript))
	n := len(tokens)
	if n == 0 {
		return nil
	}

	stride := c.maxTokens - c.overlapTokens
	var chunks []Chunk
	for start := 0; ; start += stride {
		end := start + c.maxTokens
		if end > n {
			end = n
		}
		chunks = append(chunks, Chunk{
			VideoID:    videoID,
			Index:      len(chunks),
			Text:       strings.Join(tokens[start:end], " "),
			TokenCount: end - start,
			Start:      start,
			End:        end,
		})
		if end == n {
			return chunks
		}
	}
}

// CountTokens reports the token count Split would see for a transcript.
func CountTokens(transcript string) int {
	return len(strings.Fields(NormalizeTranscript(transcript)))
}
