package video

import (
	"time"
)

// State is the processing lifecycle of one video. Records are created on
// first sight and never deleted; the history of attempts is the audit trail.
type State string

const (
	StateUnprocessed State = "unprocessed"
	StateProcessing  State = "processing"
	StateProcessed   State = "processed"
	StateFailed      State = "failed"
)

// FailureReason values recorded on the processing record.
const (
	ReasonTranscriptUnavailable = "transcript_unavailable"
)

type Video struct {
	ID              string     `json:"id"`
	PlaylistID      string     `json:"playlist_id"`
	Title           string     `json:"title"`
	URL             string     `json:"url"`
	State           State      `json:"state"`
	AttemptCount    int        `json:"attempt_count"`
	LastError       string     `json:"last_error,omitempty"`
	LastProcessedAt *time.Time `json:"last_processed_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}
