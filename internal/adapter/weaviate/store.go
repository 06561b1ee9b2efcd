// Package weaviate persists extracted ideas into the vector index used by
// the embedding-based cross-video dedup backend.
package weaviate

import (
	"context"
	"fmt"
	"time"

	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/filters"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/graphql"
	"tubedigest/features/idea"
	"tubedigest/internal/dedup"
	"tubedigest/internal/similarity"
	"tubedigest/internal/vector"
)

type Store struct {
	client   *weaviate.Client
	embedder similarity.Embedder
}

func NewStore(client *weaviate.Client, embedder similarity.Embedder) *Store {
	return &Store{client: client, embedder: embedder}
}

// IndexIdeas embeds and stores each idea. Previously indexed objects for the
// same videos are removed first so reprocessing never accumulates stale
// vectors, mirroring the relational delete-then-insert.
func (s *Store) IndexIdeas(ctx context.Context, ideas []idea.Idea) error {
	seen := make(map[string]bool)
	for _, i := range ideas {
		if !seen[i.VideoID] {
			if err := s.DeleteByVideo(ctx, i.VideoID); err != nil {
				return fmt.Errorf("delete stale vectors for video %s: %w", i.VideoID, err)
			}
			seen[i.VideoID] = true
		}
	}

	for _, i := range ideas {
		vec, err := s.embedder.Embed(ctx, i.Text())
		if err != nil {
			return fmt.Errorf("embed idea %q: %w", i.Title, err)
		}
		if err := s.putIdea(ctx, i, vec); err != nil {
			return fmt.Errorf("index idea %q: %w", i.Title, err)
		}
	}
	return nil
}

func (s *Store) putIdea(ctx context.Context, i idea.Idea, vec []float32) error {
	extractedAt := i.ExtractedAt
	if extractedAt.IsZero() {
		extractedAt = time.Now().UTC()
	}
	_, err := s.client.Data().Creator().
		WithClassName(vector.ClassName).
		WithProperties(map[string]interface{}{
			"title":       i.Title,
			"summary":     i.Summary,
			"videoId":     i.VideoID,
			"extractedAt": extractedAt.Format(time.RFC3339),
		}).
		WithVector(vec).
		Do(ctx)
	return err
}

func (s *Store) DeleteByVideo(ctx context.Context, videoID string) error {
	_, err := s.client.Batch().ObjectsBatchDeleter().
		WithClassName(vector.ClassName).
		WithOutput("minimal").
		WithWhere(filters.Where().
			WithPath([]string{"videoId"}).
			WithOperator(filters.Equal).
			WithValueString(videoID)).
		Do(ctx)
	return err
}

// SearchSimilar returns the nearest indexed ideas newer than since.
func (s *Store) SearchSimilar(ctx context.Context, vec []float32, limit int, since time.Time) ([]dedup.VectorMatch, error) {
	nearVector := s.client.GraphQL().NearVectorArgBuilder().WithVector(vec)

	where := filters.Where().
		WithPath([]string{"extractedAt"}).
		WithOperator(filters.GreaterThanEqual).
		WithValueDate(since)

	fields := []graphql.Field{
		{Name: "title"},
		{Name: "videoId"},
		{Name: "_additional", Fields: []graphql.Field{{Name: "certainty"}}},
	}

	res, err := s.client.GraphQL().Get().
		WithClassName(vector.ClassName).
		WithNearVector(nearVector).
		WithWhere(where).
		WithLimit(limit).
		WithFields(fields...).
		Do(ctx)
	if err != nil {
		return nil, err
	}
	if len(res.Errors) > 0 {
		return nil, fmt.Errorf("graphql error: %v", res.Errors)
	}

	var matches []dedup.VectorMatch
	if data, ok := res.Data["Get"].(map[string]interface{}); ok {
		if objects, ok := data[vector.ClassName].([]interface{}); ok {
			for _, o := range objects {
				props, ok := o.(map[string]interface{})
				if !ok {
					continue
				}
				var m dedup.VectorMatch
				if title, ok := props["title"].(string); ok {
					m.Title = title
				}
				if videoID, ok := props["videoId"].(string); ok {
					m.VideoID = videoID
				}
				if additional, ok := props["_additional"].(map[string]interface{}); ok {
					if certainty, ok := additional["certainty"].(float64); ok {
						m.Certainty = certainty
					}
				}
				matches = append(matches, m)
			}
		}
	}
	return matches, nil
}

// CountIdeas reports how many idea objects the index currently holds.
func (s *Store) CountIdeas(ctx context.Context) (int, error) {
	res, err := s.client.GraphQL().Aggregate().
		WithClassName(vector.ClassName).
		WithFields(graphql.Field{Name: "meta", Fields: []graphql.Field{{Name: "count"}}}).
		Do(ctx)
	if err != nil {
		return 0, err
	}
	if len(res.Errors) > 0 {
		return 0, fmt.Errorf("graphql error: %v", res.Errors)
	}

	if data, ok := res.Data["Aggregate"].(map[string]interface{}); ok {
		if objects, ok := data[vector.ClassName].([]interface{}); ok && len(objects) > 0 {
			if props, ok := objects[0].(map[string]interface{}); ok {
				if meta, ok := props["meta"].(map[string]interface{}); ok {
					if count, ok := meta["count"].(float64); ok {
						return int(count), nil
					}
				}
			}
		}
	}
	return 0, nil
}
