package digest_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"tubedigest/features/digest"
	"tubedigest/features/idea"
	"tubedigest/features/video"
)

type MockMailer struct{ mock.Mock }

func (m *MockMailer) Send(ctx context.Context, from string, to []string, subject, htmlBody string) error {
	args := m.Called(ctx, from, to, subject, htmlBody)
	return args.Error(0)
}

type MockIdeaSource struct{ mock.Mock }

func (m *MockIdeaSource) GetRecent(ctx context.Context, window time.Duration) ([]idea.Idea, error) {
	args := m.Called(ctx, window)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]idea.Idea), args.Error(1)
}

type MockVideoSource struct{ mock.Mock }

func (m *MockVideoSource) Get(ctx context.Context, id string) (*video.Video, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*video.Video), args.Error(1)
}

func TestRenderGroupsAndEscapes(t *testing.T) {
	html, err := digest.Render(digest.Email{
		GeneratedAt: "August 24, 2026",
		WindowDays:  7,
		Sections: []digest.Section{
			{
				VideoTitle: "Bonds <explained>",
				VideoURL:   "https://www.youtube.com/watch?v=abc",
				Ideas: []idea.Idea{
					{Title: "Duration risk", Summary: "Longer bonds move more.", Keywords: []string{"bonds", "rates"}},
				},
			},
		},
	})

	require.NoError(t, err)
	assert.Contains(t, html, "Bonds &lt;explained&gt;")
	assert.Contains(t, html, "Duration risk")
	assert.Contains(t, html, "bonds, rates")
	assert.Contains(t, html, `href="https://www.youtube.com/watch?v=abc"`)
}

func TestRenderEmptyWindow(t *testing.T) {
	html, err := digest.Render(digest.Email{GeneratedAt: "August 24, 2026", WindowDays: 7})

	require.NoError(t, err)
	assert.Contains(t, html, "No new ideas were extracted this week.")
}

func TestSendDigest(t *testing.T) {
	ideas := new(MockIdeaSource)
	videos := new(MockVideoSource)
	mailer := new(MockMailer)

	recent := []idea.Idea{
		{VideoID: "vid1", Title: "Compounding", Summary: "Start early."},
		{VideoID: "vid2", Title: "Index funds", Summary: "Buy the market."},
		{VideoID: "vid1", Title: "Fees matter", Summary: "Costs compound too."},
	}
	ideas.On("GetRecent", mock.Anything, 7*24*time.Hour).Return(recent, nil)
	videos.On("Get", mock.Anything, "vid1").Return(&video.Video{ID: "vid1", Title: "Investing 101", URL: "https://youtu.be/vid1"}, nil)
	videos.On("Get", mock.Anything, "vid2").Return(&video.Video{ID: "vid2", Title: "Passive income", URL: "https://youtu.be/vid2"}, nil)

	var gotBody, gotSubject string
	mailer.On("Send", mock.Anything, "digest@mg.example.com", []string{"me@example.com"}, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			gotSubject = args.String(3)
			gotBody = args.String(4)
		}).Return(nil)

	svc := digest.NewService(ideas, videos, mailer, "digest@mg.example.com", []string{"me@example.com"}, 7)
	sent, err := svc.SendDigest(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 3, sent)
	assert.Contains(t, gotSubject, "3 new")
	assert.Contains(t, gotBody, "Investing 101")
	assert.Contains(t, gotBody, "Passive income")
	// Both vid1 ideas sit under one section.
	assert.Equal(t, 1, strings.Count(gotBody, "Investing 101"))
	mailer.AssertExpectations(t)
}

func TestSendDigestUnknownVideoFallsBackToID(t *testing.T) {
	ideas := new(MockIdeaSource)
	videos := new(MockVideoSource)
	mailer := new(MockMailer)

	ideas.On("GetRecent", mock.Anything, mock.Anything).
		Return([]idea.Idea{{VideoID: "ghost", Title: "Orphan idea", Summary: "s"}}, nil)
	videos.On("Get", mock.Anything, "ghost").Return(nil, assert.AnError)

	var gotBody string
	mailer.On("Send", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { gotBody = args.String(4) }).Return(nil)

	svc := digest.NewService(ideas, videos, mailer, "from@x", []string{"to@x"}, 7)
	_, err := svc.SendDigest(context.Background())

	require.NoError(t, err)
	assert.Contains(t, gotBody, "ghost")
}

func TestSendDigestNoRecipients(t *testing.T) {
	svc := digest.NewService(new(MockIdeaSource), new(MockVideoSource), new(MockMailer), "from@x", nil, 7)

	_, err := svc.SendDigest(context.Background())

	require.Error(t, err)
}
