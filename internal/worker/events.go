package worker

// VideoTaskPayload is the body of one pipeline.video.process message.
type VideoTaskPayload struct {
	VideoID       string `json:"video_id"`
	CorrelationID string `json:"correlation_id,omitempty"`
}
