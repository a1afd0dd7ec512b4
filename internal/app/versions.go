package app

import (
	"context"

	"booru/api/internal/store"
)

// ListVersions returns a post's edit history, oldest first.
func (s *Service) ListVersions(ctx context.Context, viewer Viewer, postID int64) ([]store.PostVersion, error) {
	if _, err := s.GetPost(ctx, viewer, postID); err != nil {
		return nil, err
	}
	return s.store.ListPostVersions(ctx, postID)
}

// Revert replays an old version through the regular edit pipeline, so the
// revert itself shows up in the history and tag counters stay consistent.
func (s *Service) Revert(ctx context.Context, viewer Viewer, postID, versionID int64) (store.Post, error) {
	post, err := s.GetPost(ctx, viewer, postID)
	if err != nil {
		return store.Post{}, err
	}
	version, err := s.store.GetPostVersion(ctx, postID, versionID)
	if err != nil {
		return store.Post{}, err
	}

	source := version.Source
	return s.applyEdit(ctx, viewer, post, UpdatePostInput{
		TagString:   version.Tags,
		Rating:      version.Rating,
		Source:      &source,
		ParentID:    version.ParentID,
		ClearParent: version.ParentID == nil,
	})
}
