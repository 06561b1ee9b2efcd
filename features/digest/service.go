package digest

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"tubedigest/features/idea"
	"tubedigest/features/video"
)

type Mailer interface {
	Send(ctx context.Context, from string, to []string, subject, htmlBody string) error
}

type IdeaSource interface {
	GetRecent(ctx context.Context, window time.Duration) ([]idea.Idea, error)
}

type VideoSource interface {
	Get(ctx context.Context, id string) (*video.Video, error)
}

type Service struct {
	ideas      IdeaSource
	videos     VideoSource
	mailer     Mailer
	from       string
	recipients []string
	windowDays int
}

func NewService(ideas IdeaSource, videos VideoSource, mailer Mailer, from string, recipients []string, windowDays int) *Service {
	if windowDays < 1 {
		windowDays = 7
	}
	return &Service{
		ideas:      ideas,
		videos:     videos,
		mailer:     mailer,
		from:       from,
		recipients: recipients,
		windowDays: windowDays,
	}
}

// SendDigest mails every idea extracted inside the window and returns how
// many were included. An empty window still sends, so recipients can tell a
// quiet week from a broken pipeline.
func (s *Service) SendDigest(ctx context.Context) (int, error) {
	if len(s.recipients) == 0 {
		return 0, fmt.Errorf("no digest recipients configured")
	}

	window := time.Duration(s.windowDays) * 24 * time.Hour
	ideas, err := s.ideas.GetRecent(ctx, window)
	if err != nil {
		return 0, fmt.Errorf("load recent ideas: %w", err)
	}

	email := Email{
		GeneratedAt: time.Now().UTC().Format("January 2, 2006"),
		WindowDays:  s.windowDays,
		Sections:    s.buildSections(ctx, ideas),
	}

	body, err := Render(email)
	if err != nil {
		return 0, fmt.Errorf("render digest: %w", err)
	}

	subject := fmt.Sprintf("Key ideas digest: %d new this week", len(ideas))
	if err := s.mailer.Send(ctx, s.from, s.recipients, subject, body); err != nil {
		return 0, fmt.Errorf("send digest: %w", err)
	}

	slog.InfoContext(ctx, "digest sent", "ideas", len(ideas), "recipients", len(s.recipients))
	return len(ideas), nil
}

// buildSections groups ideas by video in first-seen order. A missing video
// record degrades to the raw ID rather than dropping the ideas.
func (s *Service) buildSections(ctx context.Context, ideas []idea.Idea) []Section {
	var order []string
	byVideo := make(map[string][]idea.Idea)
	for _, i := range ideas {
		if _, seen := byVideo[i.VideoID]; !seen {
			order = append(order, i.VideoID)
		}
		byVideo[i.VideoID] = append(byVideo[i.VideoID], i)
	}

	sections := make([]Section, 0, len(order))
	for _, videoID := range order {
		section := Section{VideoTitle: videoID, Ideas: byVideo[videoID]}
		if v, err := s.videos.Get(ctx, videoID); err == nil && v != nil {
			if v.Title != "" {
				section.VideoTitle = v.Title
			}
			section.VideoURL = v.URL
		}
		sections = append(sections, section)
	}
	return sections
}
