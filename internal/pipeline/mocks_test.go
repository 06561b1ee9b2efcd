package pipeline_test

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"
	"tubedigest/features/idea"
	"tubedigest/features/video"
	"tubedigest/internal/adapter/youtube"
	"tubedigest/internal/text"
)

// Mocks

type MockTracker struct{ mock.Mock }

func (m *MockTracker) GetUnprocessed(ctx context.Context, threshold time.Duration) ([]video.Video, error) {
	args := m.Called(ctx, threshold)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]video.Video), args.Error(1)
}

func (m *MockTracker) MarkProcessing(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockTracker) MarkProcessed(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockTracker) MarkFailed(ctx context.Context, id, reason string) error {
	args := m.Called(ctx, id, reason)
	return args.Error(0)
}

type MockFetcher struct{ mock.Mock }

func (m *MockFetcher) FetchTranscript(ctx context.Context, videoID string) youtube.Transcript {
	args := m.Called(ctx, videoID)
	return args.Get(0).(youtube.Transcript)
}

type MockExtractor struct{ mock.Mock }

func (m *MockExtractor) ExtractIdeas(ctx context.Context, chunk text.Chunk) ([]idea.Idea, error) {
	args := m.Called(ctx, chunk)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]idea.Idea), args.Error(1)
}

type MockDeduper struct{ mock.Mock }

func (m *MockDeduper) MergeAndDedup(ctx context.Context, ideas []idea.Idea) ([]idea.Idea, error) {
	args := m.Called(ctx, ideas)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]idea.Idea), args.Error(1)
}

type MockIdeaStore struct{ mock.Mock }

func (m *MockIdeaStore) ReplaceForVideo(ctx context.Context, videoID string, ideas []idea.Idea) error {
	args := m.Called(ctx, videoID, ideas)
	return args.Error(0)
}

type MockIndexer struct{ mock.Mock }

func (m *MockIndexer) IndexIdeas(ctx context.Context, ideas []idea.Idea) error {
	args := m.Called(ctx, ideas)
	return args.Error(0)
}
