package worker_test

import (
	"context"
	"errors"
	"testing"

	"github.com/nsqio/go-nsq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"tubedigest/internal/middleware"
	"tubedigest/internal/worker"
)

type MockProcessor struct{ mock.Mock }

func (m *MockProcessor) ProcessVideo(ctx context.Context, videoID string) error {
	args := m.Called(ctx, videoID)
	return args.Error(0)
}

func TestHandleMessageProcessesVideo(t *testing.T) {
	processor := new(MockProcessor)
	processor.On("ProcessVideo", mock.Anything, "vid1").Return(nil)

	consumer := worker.NewVideoConsumer(processor)
	msg := nsq.NewMessage(nsq.MessageID{}, []byte(`{"video_id":"vid1","correlation_id":"corr-7"}`))

	err := consumer.HandleMessage(msg)

	require.NoError(t, err)
	processor.AssertExpectations(t)
}

func TestHandleMessagePropagatesCorrelationID(t *testing.T) {
	processor := new(MockProcessor)
	var gotCorrelation string
	processor.On("ProcessVideo", mock.Anything, "vid1").
		Run(func(args mock.Arguments) {
			gotCorrelation = middleware.GetCorrelationID(args.Get(0).(context.Context))
		}).Return(nil)

	consumer := worker.NewVideoConsumer(processor)
	msg := nsq.NewMessage(nsq.MessageID{}, []byte(`{"video_id":"vid1","correlation_id":"corr-7"}`))

	require.NoError(t, consumer.HandleMessage(msg))
	assert.Equal(t, "corr-7", gotCorrelation)
}

func TestHandleMessagePoisonPill(t *testing.T) {
	processor := new(MockProcessor)
	consumer := worker.NewVideoConsumer(processor)

	for _, body := range [][]byte{
		nil,
		[]byte("not json"),
		[]byte(`{"correlation_id":"no-video"}`),
	} {
		msg := nsq.NewMessage(nsq.MessageID{}, body)
		assert.NoError(t, consumer.HandleMessage(msg))
	}
	processor.AssertNotCalled(t, "ProcessVideo", mock.Anything, mock.Anything)
}

func TestHandleMessageSwallowsProcessingError(t *testing.T) {
	processor := new(MockProcessor)
	processor.On("ProcessVideo", mock.Anything, "vid1").Return(errors.New("transcript_unavailable"))

	consumer := worker.NewVideoConsumer(processor)
	msg := nsq.NewMessage(nsq.MessageID{}, []byte(`{"video_id":"vid1"}`))

	// The video record carries the failure; the message must not requeue.
	assert.NoError(t, consumer.HandleMessage(msg))
}
