package config

const (
	// TopicVideoProcess is the NSQ topic carrying one extraction task per video.
	TopicVideoProcess = "pipeline.video.process"
)
