package idea

import (
	"time"
)

// Idea is one validated unit of extracted content. It is the record persisted
// downstream and the unit the deduplicator reasons about.
type Idea struct {
	ID            string    `json:"id,omitempty"`
	VideoID       string    `json:"video_id"`
	Title         string    `json:"title"`
	Summary       string    `json:"summary"`
	Keywords      []string  `json:"keywords,omitempty"`
	Confidence    *float64  `json:"confidence_score,omitempty"`
	ModelUsed     string    `json:"llm_model_used,omitempty"`
	PromptVersion string    `json:"llm_prompt_version,omitempty"`
	ExtractedAt   time.Time `json:"extracted_at"`

	// ChunkIndex records which transcript window produced the idea. It is
	// provenance for merge tie-breaks only and is not persisted.
	ChunkIndex int `json:"-"`
}

// Text is the surface the similarity scorers compare.
func (i Idea) Text() string {
	return i.Title + ". " + i.Summary
}

// ConfidenceRank orders ideas by confidence with an absent score ranking
// below any present one.
func (i Idea) ConfidenceRank() float64 {
	if i.Confidence == nil {
		return -1
	}
	return *i.Confidence
}
