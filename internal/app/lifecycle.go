package app

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"

	"booru/api/internal/search"
	"booru/api/internal/store"
	"booru/api/internal/util"
)

// Flag reports a post for moderator review. A post carries at most one
// unresolved flag at a time.
func (s *Service) Flag(ctx context.Context, viewer Viewer, postID int64, reason string) error {
	if viewer.Anonymous() {
		return domainError(http.StatusUnauthorized, "UNAUTHORIZED", "Sign in to flag posts", nil)
	}
	if strings.TrimSpace(reason) == "" {
		return domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "reason is required", nil)
	}

	post, err := s.GetPost(ctx, viewer, postID)
	if err != nil {
		return err
	}
	if post.IsStatusLocked {
		return domainError(http.StatusConflict, "LOCKED", "Post status is locked", nil)
	}
	if post.IsDeleted {
		return domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "deleted posts cannot be flagged", nil)
	}
	if flagged, err := s.store.HasUnresolvedFlag(ctx, postID); err != nil {
		return err
	} else if flagged {
		return domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "post already has an unresolved flag", nil)
	}

	if err := s.store.FlagPost(ctx, store.PostFlag{
		ID:        util.NewID("flag"),
		PostID:    postID,
		CreatorID: viewer.ID,
		Reason:    reason,
	}); err != nil {
		return s.mapStatusLocked(err)
	}
	return s.refreshAfterTransition(ctx, postID)
}

// Appeal asks for a deleted post to be restored.
func (s *Service) Appeal(ctx context.Context, viewer Viewer, postID int64, reason string) error {
	if viewer.Anonymous() {
		return domainError(http.StatusUnauthorized, "UNAUTHORIZED", "Sign in to appeal posts", nil)
	}
	post, err := s.store.GetPost(ctx, postID)
	if err != nil {
		return err
	}
	if post.IsStatusLocked {
		return domainError(http.StatusConflict, "LOCKED", "Post status is locked", nil)
	}
	if !post.IsDeleted {
		return domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "only deleted posts can be appealed", nil)
	}
	return s.mapStatusLocked(s.store.InsertAppeal(ctx, store.PostAppeal{
		ID:        util.NewID("appeal"),
		PostID:    postID,
		CreatorID: viewer.ID,
		Reason:    reason,
	}))
}

// Approve clears pending and flagged state. Uploaders cannot approve their
// own posts, and an approver cannot approve the same post twice.
func (s *Service) Approve(ctx context.Context, viewer Viewer, postID int64) error {
	if !viewer.IsModerator {
		return domainError(http.StatusForbidden, "FORBIDDEN", "Forbidden", nil)
	}
	post, err := s.store.GetPost(ctx, postID)
	if err != nil {
		return err
	}
	if post.IsStatusLocked {
		return domainError(http.StatusConflict, "LOCKED", "Post status is locked", nil)
	}
	if !post.IsPending && !post.IsFlagged && !post.IsDeleted {
		return domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "post is not awaiting approval", nil)
	}
	if post.UploaderID == viewer.ID {
		return domainError(http.StatusConflict, "APPROVAL_CONFLICT", "You cannot approve your own uploads", nil)
	}
	if post.ApproverID != nil && *post.ApproverID == viewer.ID {
		return domainError(http.StatusConflict, "APPROVAL_CONFLICT", "You have already approved this post", nil)
	}

	if err := s.store.ApprovePost(ctx, postID, viewer.ID); err != nil {
		return s.mapStatusLocked(err)
	}
	return s.refreshAfterTransition(ctx, postID)
}

// Disapprove records that the viewer looked at a queued post and passed on
// it, hiding it from their moderation queue.
func (s *Service) Disapprove(ctx context.Context, viewer Viewer, postID int64) error {
	if !viewer.IsModerator {
		return domainError(http.StatusForbidden, "FORBIDDEN", "Forbidden", nil)
	}
	if exists, err := s.store.PostExists(ctx, postID); err != nil {
		return err
	} else if !exists {
		return domainError(http.StatusNotFound, "NOT_FOUND", "Not found", nil)
	}
	return s.store.InsertDisapproval(ctx, postID, viewer.ID)
}

type DeleteInput struct {
	Reason        string
	Ban           bool
	MoveFavorites bool
}

// Delete soft-deletes a post. The record and its history stay around and the
// post can be undeleted later.
func (s *Service) Delete(ctx context.Context, viewer Viewer, postID int64, in DeleteInput) error {
	if !viewer.IsModerator {
		return domainError(http.StatusForbidden, "FORBIDDEN", "Forbidden", nil)
	}
	post, err := s.store.GetPost(ctx, postID)
	if err != nil {
		return err
	}
	if post.IsStatusLocked {
		return domainError(http.StatusConflict, "LOCKED", "Post status is locked", nil)
	}

	// deleting work by a banned artist always bans the post
	ban := in.Ban
	if !ban {
		for _, name := range strings.Fields(post.TagString) {
			if name == "banned_artist" {
				ban = true
				break
			}
		}
	}

	if err := s.store.DeletePost(ctx, store.DeletePostParams{
		PostID:        postID,
		Ban:           ban,
		MoveFavorites: in.MoveFavorites,
		ModActionID:   util.NewID("ma"),
		ActorID:       viewer.ID,
		Reason:        in.Reason,
	}); err != nil {
		return s.mapStatusLocked(err)
	}
	return s.refreshAfterTransition(ctx, postID)
}

// Undelete restores a soft-deleted post and credits the actor as approver.
func (s *Service) Undelete(ctx context.Context, viewer Viewer, postID int64) error {
	if !viewer.IsModerator {
		return domainError(http.StatusForbidden, "FORBIDDEN", "Forbidden", nil)
	}
	if err := s.store.UndeletePost(ctx, postID, viewer.ID, util.NewID("ma")); err != nil {
		return s.mapStatusLocked(err)
	}
	return s.refreshAfterTransition(ctx, postID)
}

// Expunge permanently destroys a post, its dependent records, its stored
// files, and its index entries. There is no undo.
func (s *Service) Expunge(ctx context.Context, viewer Viewer, postID int64) error {
	if !viewer.IsAdmin {
		return domainError(http.StatusForbidden, "FORBIDDEN", "Forbidden", nil)
	}
	post, err := s.store.GetPost(ctx, postID)
	if err != nil {
		return err
	}
	if post.IsStatusLocked {
		return domainError(http.StatusConflict, "LOCKED", "Post status is locked", nil)
	}

	tagNames := strings.Fields(post.TagString)
	if err := s.store.ExpungePost(ctx, store.ExpungePostParams{
		PostID:      postID,
		ActorID:     viewer.ID,
		ModActionID: util.NewID("ma"),
		TagNames:    tagNames,
		ParentID:    post.ParentID,
	}); err != nil {
		return s.mapStatusLocked(err)
	}

	if err := s.counts.ExpireForPost(ctx, postID, tagNames); err != nil {
		log.Printf("post %d: expire counts: %v", postID, err)
	}
	s.search.DeletePost(postID)
	if s.files != nil {
		if err := s.files.Remove(ctx, post.MD5, post.FileExt); err != nil {
			log.Printf("post %d: remove files: %v", postID, err)
		}
	}
	if s.revindex != nil {
		go func(id int64) {
			if err := s.revindex.Remove(context.Background(), id); err != nil {
				log.Printf("post %d: reverse index remove: %v", id, err)
			}
		}(postID)
	}
	return nil
}

// Ban hides a post from anonymous viewers without deleting it.
func (s *Service) Ban(ctx context.Context, viewer Viewer, postID int64) error {
	if !viewer.IsModerator {
		return domainError(http.StatusForbidden, "FORBIDDEN", "Forbidden", nil)
	}
	if err := s.store.BanPost(ctx, postID, viewer.ID, util.NewID("ma")); err != nil {
		return err
	}
	return s.refreshAfterTransition(ctx, postID)
}

func (s *Service) Unban(ctx context.Context, viewer Viewer, postID int64) error {
	if !viewer.IsModerator {
		return domainError(http.StatusForbidden, "FORBIDDEN", "Forbidden", nil)
	}
	if err := s.store.UnbanPost(ctx, postID, viewer.ID, util.NewID("ma")); err != nil {
		return err
	}
	return s.refreshAfterTransition(ctx, postID)
}

// Vote casts an up or down vote. One vote per viewer per post.
func (s *Service) Vote(ctx context.Context, viewer Viewer, postID int64, direction string) error {
	if viewer.Anonymous() {
		return domainError(http.StatusUnauthorized, "UNAUTHORIZED", "Sign in to vote", nil)
	}
	var score int
	switch direction {
	case "up":
		score = 1
	case "down":
		score = -1
	default:
		return domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "direction must be up or down", nil)
	}
	if exists, err := s.store.PostExists(ctx, postID); err != nil {
		return err
	} else if !exists {
		return domainError(http.StatusNotFound, "NOT_FOUND", "Not found", nil)
	}

	err := s.store.VotePost(ctx, postID, viewer.ID, score)
	if errors.Is(err, store.ErrVoteExists) {
		return domainError(http.StatusUnprocessableEntity, "ALREADY_VOTED", "You have already voted on this post", nil)
	}
	return err
}

// Unvote removes the viewer's vote.
func (s *Service) Unvote(ctx context.Context, viewer Viewer, postID int64) error {
	if viewer.Anonymous() {
		return domainError(http.StatusUnauthorized, "UNAUTHORIZED", "Sign in to vote", nil)
	}
	err := s.store.UnvotePost(ctx, postID, viewer.ID)
	if errors.Is(err, store.ErrVoteMissing) {
		return domainError(http.StatusUnprocessableEntity, "NOT_VOTED", "You have not voted on this post", nil)
	}
	return err
}

func (s *Service) mapStatusLocked(err error) error {
	if errors.Is(err, store.ErrStatusLocked) {
		return domainError(http.StatusConflict, "LOCKED", "Post status is locked", nil)
	}
	return err
}

// refreshAfterTransition reloads the post, pushes the new status to the
// search index, and invalidates cached counts that include status filters.
func (s *Service) refreshAfterTransition(ctx context.Context, postID int64) error {
	post, err := s.store.GetPost(ctx, postID)
	if err != nil {
		return err
	}
	s.search.IndexPost(search.RecordFor(post))
	if err := s.counts.ExpireForPost(ctx, postID, strings.Fields(post.TagString)); err != nil {
		log.Printf("post %d: expire counts: %v", postID, err)
	}
	return nil
}
