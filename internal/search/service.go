package search

import (
	"context"
	"log"
)

// Service is the facade that tries Meilisearch first and falls back to
// counting in PostgreSQL.
type Service struct {
	meili *Meili
	pg    *PgCount
}

// NewService creates a search service. meili may be nil if Meilisearch is not
// configured.
func NewService(meili *Meili, pg *PgCount) *Service {
	return &Service{meili: meili, pg: pg}
}

// Count answers a tag query count, preferring Meilisearch when healthy.
func (s *Service) Count(ctx context.Context, query string) (int64, error) {
	if s.meili != nil && s.meili.Healthy() {
		count, err := s.meili.Count(ctx, query)
		if err == nil {
			return count, nil
		}
		if ctx.Err() != nil {
			return 0, ctx.Err()
		}
		log.Printf("search: meilisearch count error, falling back to pg: %v", err)
	}
	return s.pg.Count(ctx, query)
}

// IndexPost pushes a post into the search index (fire-and-forget).
func (s *Service) IndexPost(record PostRecord) {
	if s.meili == nil || !s.meili.Healthy() {
		return
	}
	go func() {
		if err := s.meili.IndexPost(record); err != nil {
			log.Printf("search: index post %d: %v", record.ID, err)
		}
	}()
}

// DeletePost removes a post from the search index (fire-and-forget).
func (s *Service) DeletePost(postID int64) {
	if s.meili == nil || !s.meili.Healthy() {
		return
	}
	go func() {
		if err := s.meili.DeletePost(postID); err != nil {
			log.Printf("search: delete post %d: %v", postID, err)
		}
	}()
}
