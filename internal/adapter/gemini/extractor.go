package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"tubedigest/features/idea"
	"tubedigest/internal/extract"
	"tubedigest/internal/text"
)

const PromptVersion = "v1.0"

// Extractor asks Gemini for key ideas in one transcript chunk, constrained to
// a JSON response schema so the output is machine-checkable. A response that
// still fails validation counts as a transient failure and is retried
// upstream, never coerced.
type Extractor struct {
	client        *genai.Client
	model         string
	ideasPerVideo int
}

func NewExtractor(ctx context.Context, apiKey, model string, ideasPerVideo int) (*Extractor, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}
	return &Extractor{client: client, model: model, ideasPerVideo: ideasPerVideo}, nil
}

var responseSchema = &genai.Schema{
	Type: genai.TypeArray,
	Items: &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"title":            {Type: genai.TypeString},
			"summary":          {Type: genai.TypeString},
			"keywords":         {Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeString}},
			"confidence_score": {Type: genai.TypeNumber},
		},
		Required: []string{"title", "summary"},
	},
}

func (e *Extractor) ExtractIdeas(ctx context.Context, chunk text.Chunk) ([]idea.Idea, error) {
	model := e.client.GenerativeModel(e.model)
	model.ResponseMIMEType = "application/json"
	model.ResponseSchema = responseSchema
	model.SetTemperature(0.2)

	slog.DebugContext(ctx, "extracting ideas", "model", e.model,
		"video_id", chunk.VideoID, "chunk_index", chunk.Index, "tokens", chunk.TokenCount)

	resp, err := model.GenerateContent(ctx, genai.Text(e.prompt(chunk)))
	if err != nil {
		return nil, classifyAPIError(err)
	}

	ideas, err := parseIdeas(responseText(resp))
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	for i := range ideas {
		ideas[i].VideoID = chunk.VideoID
		ideas[i].ChunkIndex = chunk.Index
		ideas[i].ModelUsed = e.model
		ideas[i].PromptVersion = PromptVersion
		ideas[i].ExtractedAt = now
	}
	return ideas, nil
}

func (e *Extractor) prompt(chunk text.Chunk) string {
	return fmt.Sprintf(`You are extracting the key ideas from a segment of a YouTube video transcript.

Return at most %d ideas that are genuinely present in this segment. Fewer is fine when the segment is sparse. For each idea give:
- "title": a short, specific headline for the idea
- "summary": two or three sentences explaining it in the speaker's terms
- "keywords": up to five topical keywords (optional)
- "confidence_score": how clearly the segment supports the idea, 0.0 to 1.0 (optional)

Transcript segment:
%s`, e.ideasPerVideo, chunk.Text)
}

func responseText(resp *genai.GenerateContentResponse) string {
	var b strings.Builder
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if t, ok := part.(genai.Text); ok {
				b.WriteString(string(t))
			}
		}
	}
	return b.String()
}

type ideaPayload struct {
	Title      string   `json:"title"`
	Summary    string   `json:"summary"`
	Keywords   []string `json:"keywords"`
	Confidence *float64 `json:"confidence_score"`
}

// parseIdeas validates the structured response. Anything off-schema is a
// transient failure so the retrier gets another shot at a clean generation.
func parseIdeas(raw string) ([]idea.Idea, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, extract.Transient("empty model response", nil)
	}

	var payloads []ideaPayload
	if err := json.Unmarshal([]byte(trimmed), &payloads); err != nil {
		return nil, extract.Transient("malformed model output", err)
	}

	ideas := make([]idea.Idea, 0, len(payloads))
	for n, p := range payloads {
		if strings.TrimSpace(p.Title) == "" {
			return nil, extract.Transient("malformed model output", fmt.Errorf("idea %d: missing title", n))
		}
		if strings.TrimSpace(p.Summary) == "" {
			return nil, extract.Transient("malformed model output", fmt.Errorf("idea %d: missing summary", n))
		}
		if p.Confidence != nil && (*p.Confidence < 0 || *p.Confidence > 1) {
			return nil, extract.Transient("malformed model output",
				fmt.Errorf("idea %d: confidence_score %v out of [0,1]", n, *p.Confidence))
		}
		ideas = append(ideas, idea.Idea{
			Title:      strings.TrimSpace(p.Title),
			Summary:    strings.TrimSpace(p.Summary),
			Keywords:   dedupeKeywords(p.Keywords),
			Confidence: p.Confidence,
		})
	}
	return ideas, nil
}

func dedupeKeywords(keywords []string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, k := range keywords {
		k = strings.ToLower(strings.TrimSpace(k))
		if k == "" || seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, k)
	}
	return out
}

// classifyAPIError maps API failures onto the retry taxonomy. Bad requests
// and auth problems will not improve on retry; rate limits, server errors
// and network timeouts will.
func classifyAPIError(err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case 400, 401, 403:
			return extract.Fatal(fmt.Sprintf("api rejected request (%d)", apiErr.Code), err)
		case 429:
			return extract.Transient("rate limited", err)
		}
		if apiErr.Code >= 500 {
			return extract.Transient(fmt.Sprintf("server error (%d)", apiErr.Code), err)
		}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return extract.Transient("timeout", err)
	}
	return extract.Transient("request failed", err)
}
