package app

import (
	"context"
	"log"
	"net/http"
	"regexp"
	"strings"

	"booru/api/internal/counts"
	"booru/api/internal/search"
	"booru/api/internal/store"
	"booru/api/internal/tags"
)

type CreatePostInput struct {
	MD5       string
	FileExt   string
	Width     int
	Height    int
	FileSize  int64
	TagString string
	Rating    string
	Source    string
	ParentID  *int64
}

// UpdatePostInput carries a post edit. The Old* fields are the values the
// editor based the edit on; when present they drive the concurrent-edit
// merge, when absent the edit applies as-is.
type UpdatePostInput struct {
	TagString    string
	OldTagString string
	Rating       string
	OldRating    string
	Source       *string
	OldSource    *string
	ParentID     *int64
	OldParentID  *int64
	ClearParent  bool
}

// CreatePost runs the upload pipeline: duplicate check, tag normalization,
// parent validation, counter seeding, and registration with the search and
// reverse-image indexes.
func (s *Service) CreatePost(ctx context.Context, viewer Viewer, in CreatePostInput) (store.Post, error) {
	if viewer.Anonymous() {
		return store.Post{}, domainError(http.StatusUnauthorized, "UNAUTHORIZED", "Sign in to upload", nil)
	}
	if in.MD5 == "" {
		return store.Post{}, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "md5 is required", nil)
	}
	if exists, err := s.store.MD5Exists(ctx, in.MD5); err != nil {
		return store.Post{}, err
	} else if exists {
		return store.Post{}, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "duplicate: a post with this md5 already exists", nil)
	}

	meta := tags.FileMeta{Width: in.Width, Height: in.Height, FileSize: in.FileSize}
	norm, err := s.normalizer.Normalize(ctx, in.TagString, meta)
	if err != nil {
		return store.Post{}, err
	}

	rating := norm.Directives.Rating
	if rating == "" {
		rating = in.Rating
	}
	if rating == "" {
		rating = "q"
	}
	if _, ok := validRatings[rating]; !ok {
		return store.Post{}, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "rating must be s, q or e", nil)
	}

	parentID := in.ParentID
	if norm.Directives.SetParent != nil {
		parentID = norm.Directives.SetParent
	}
	if norm.Directives.ClearParent {
		parentID = nil
	}
	parentID, err = s.repairParent(ctx, 0, parentID)
	if err != nil {
		return store.Post{}, err
	}

	categories, err := s.store.CategoriesFor(ctx, norm.Tags)
	if err != nil {
		return store.Post{}, err
	}
	totals := counts.Tally(norm.Tags, categories)

	post := store.Post{
		MD5:               in.MD5,
		FileExt:           in.FileExt,
		ImageWidth:        in.Width,
		ImageHeight:       in.Height,
		FileSize:          in.FileSize,
		TagString:         strings.Join(norm.Tags, " "),
		TagCount:          totals.Total,
		TagCountGeneral:   totals.General,
		TagCountArtist:    totals.Artist,
		TagCountCopyright: totals.Copyright,
		TagCountCharacter: totals.Character,
		Rating:            rating,
		Source:            normalizeSource(in.Source),
		ParentID:          parentID,
		IsPending:         !viewer.IsModerator,
		UploaderID:        viewer.ID,
	}

	created, err := s.store.CreatePost(ctx, post, norm.Tags)
	if err != nil {
		return store.Post{}, err
	}

	if parentID != nil {
		if err := s.store.UpdateHasChildrenFlag(ctx, *parentID); err != nil {
			return store.Post{}, err
		}
	}

	if err := s.counts.ExpireForPost(ctx, created.ID, norm.Tags); err != nil {
		log.Printf("post %d: expire counts: %v", created.ID, err)
	}
	// a brand new post changes the full-corpus count regardless of its id
	if err := s.counts.ExpireBlank(ctx); err != nil {
		log.Printf("post %d: expire blank count: %v", created.ID, err)
	}
	s.search.IndexPost(search.RecordFor(created))
	if s.revindex != nil {
		go func(id int64, md5 string) {
			if err := s.revindex.Add(context.Background(), id, md5); err != nil {
				log.Printf("post %d: reverse index add: %v", id, err)
			}
		}(created.ID, created.MD5)
	}

	if err := s.applyPostDirectives(ctx, viewer, created.ID, norm.Directives); err != nil {
		return store.Post{}, err
	}
	return s.store.GetPost(ctx, created.ID)
}

// UpdatePost runs the edit pipeline over an existing post.
func (s *Service) UpdatePost(ctx context.Context, viewer Viewer, postID int64, in UpdatePostInput) (store.Post, error) {
	post, err := s.GetPost(ctx, viewer, postID)
	if err != nil {
		return store.Post{}, err
	}
	return s.applyEdit(ctx, viewer, post, in)
}

func (s *Service) applyEdit(ctx context.Context, viewer Viewer, post store.Post, in UpdatePostInput) (store.Post, error) {
	currentTags := strings.Fields(post.TagString)

	// the merge runs over raw word lists so directive words submitted by the
	// editor survive into normalization
	submitted := strings.Fields(in.TagString)
	merged := submitted
	switch {
	case in.OldTagString != "":
		merged = tags.MergeTagLists(currentTags, strings.Fields(in.OldTagString), submitted)
	case len(submitted) == 0:
		// an omitted tag string means the edit touches other fields only;
		// clearing all tags requires submitting the prior string as the base
		merged = currentTags
	}

	meta := tags.FileMeta{Width: post.ImageWidth, Height: post.ImageHeight, FileSize: post.FileSize}
	norm, err := s.normalizer.Normalize(ctx, strings.Join(merged, " "), meta)
	if err != nil {
		return store.Post{}, err
	}

	rating, err := s.resolveRating(post, in, norm.Directives)
	if err != nil {
		return store.Post{}, err
	}

	source := post.Source
	if in.Source != nil {
		next := normalizeSource(*in.Source)
		if in.OldSource != nil {
			source = tags.MergeScalar(post.Source, normalizeSource(*in.OldSource), next)
		} else {
			source = next
		}
	}

	parentID, err := s.resolveParent(ctx, post, in, norm.Directives)
	if err != nil {
		return store.Post{}, err
	}

	categories, err := s.store.CategoriesFor(ctx, norm.Tags)
	if err != nil {
		return store.Post{}, err
	}
	totals := counts.Tally(norm.Tags, categories)
	added, removed := counts.Diff(currentTags, norm.Tags)

	changed := len(added) > 0 || len(removed) > 0 ||
		rating != post.Rating || source != post.Source ||
		!parentIDEqual(parentID, post.ParentID)

	oldParent := post.ParentID

	post.TagString = strings.Join(norm.Tags, " ")
	post.TagCount = totals.Total
	post.TagCountGeneral = totals.General
	post.TagCountArtist = totals.Artist
	post.TagCountCopyright = totals.Copyright
	post.TagCountCharacter = totals.Character
	post.Rating = rating
	post.Source = source
	post.ParentID = parentID

	if changed {
		if err := s.store.SaveEdit(ctx, store.SaveEditParams{
			Post:          post,
			UpdaterID:     viewer.ID,
			MergeWindow:   s.cfg.VersionMergeWindow,
			CreateVersion: true,
		}); err != nil {
			return store.Post{}, err
		}

		if len(added) > 0 || len(removed) > 0 {
			if err := s.counts.ExpireForPost(ctx, post.ID, append(append([]string{}, added...), removed...)); err != nil {
				log.Printf("post %d: expire counts: %v", post.ID, err)
			}
		}

		if !parentIDEqual(parentID, oldParent) {
			for _, pid := range []*int64{oldParent, parentID} {
				if pid != nil {
					if err := s.store.UpdateHasChildrenFlag(ctx, *pid); err != nil {
						return store.Post{}, err
					}
				}
			}
		}
	}

	if err := s.applyPostDirectives(ctx, viewer, post.ID, norm.Directives); err != nil {
		return store.Post{}, err
	}

	updated, err := s.store.GetPost(ctx, post.ID)
	if err != nil {
		return store.Post{}, err
	}
	s.search.IndexPost(search.RecordFor(updated))
	return updated, nil
}

func (s *Service) resolveRating(post store.Post, in UpdatePostInput, d tags.Directives) (string, error) {
	next := d.Rating
	if next == "" {
		next = in.Rating
	}
	if next == "" || next == post.Rating {
		return post.Rating, nil
	}
	if _, ok := validRatings[next]; !ok {
		return "", domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "rating must be s, q or e", nil)
	}
	if post.IsRatingLocked {
		return "", domainError(http.StatusConflict, "LOCKED", "Rating is locked on this post", nil)
	}
	if in.OldRating != "" {
		return tags.MergeScalar(post.Rating, in.OldRating, next), nil
	}
	return next, nil
}

func (s *Service) resolveParent(ctx context.Context, post store.Post, in UpdatePostInput, d tags.Directives) (*int64, error) {
	next := post.ParentID
	explicit := false

	if in.ParentID != nil || in.ClearParent {
		next = in.ParentID
		explicit = true
	}
	if d.SetParent != nil {
		next = d.SetParent
		explicit = true
	}
	if d.UnsetParent != nil && parentIDEqual(next, d.UnsetParent) {
		next = nil
		explicit = true
	}
	if d.ClearParent {
		next = nil
		explicit = true
	}
	if !explicit {
		return post.ParentID, nil
	}

	if in.OldParentID != nil {
		next = tags.MergeParent(post.ParentID, in.OldParentID, next)
	}
	return s.repairParent(ctx, post.ID, next)
}

// repairParent validates a desired parent reference. Self references are an
// error; references to posts that no longer exist are silently cleared. When
// the chosen parent already points back at this post, that older relationship
// is severed in favor of this one.
func (s *Service) repairParent(ctx context.Context, postID int64, parentID *int64) (*int64, error) {
	if parentID == nil {
		return nil, nil
	}
	if *parentID == postID {
		return nil, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "post cannot be its own parent", nil)
	}
	parent, err := s.store.GetPost(ctx, *parentID)
	if isNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if postID != 0 && parent.ParentID != nil && *parent.ParentID == postID {
		if err := s.store.ClearParentID(ctx, parent.ID); err != nil {
			return nil, err
		}
		if err := s.store.UpdateHasChildrenFlag(ctx, postID); err != nil {
			return nil, err
		}
	}
	return parentID, nil
}

// applyPostDirectives handles the directives that touch records other than
// the post row: pools, favorites, and child adoption.
func (s *Service) applyPostDirectives(ctx context.Context, viewer Viewer, postID int64, d tags.Directives) error {
	for _, ref := range d.AddPools {
		pool, ok, err := s.lookupPool(ctx, ref)
		if err != nil {
			return err
		}
		if ok {
			if err := s.store.AddPostToPool(ctx, pool.ID, postID); err != nil {
				return err
			}
		}
	}
	for _, ref := range d.RemovePools {
		pool, ok, err := s.lookupPool(ctx, ref)
		if err != nil {
			return err
		}
		if ok {
			if err := s.store.RemovePostFromPool(ctx, pool.ID, postID); err != nil {
				return err
			}
		}
	}
	for _, name := range d.NewPools {
		pool, ok, err := s.lookupPool(ctx, tags.PoolRef{Name: name})
		if err != nil {
			return err
		}
		if !ok {
			pool, err = s.store.CreatePool(ctx, name)
			if err != nil {
				return err
			}
		}
		if err := s.store.AddPostToPool(ctx, pool.ID, postID); err != nil {
			return err
		}
	}

	if d.Favorite && !viewer.Anonymous() {
		if err := s.store.AddFavorite(ctx, postID, viewer.ID); err != nil {
			return err
		}
	}

	adopted := false
	for _, childID := range d.Children {
		if childID == postID {
			continue
		}
		exists, err := s.store.PostExists(ctx, childID)
		if err != nil {
			return err
		}
		if !exists {
			continue
		}
		id := postID
		if err := s.store.SetParentID(ctx, childID, &id); err != nil {
			return err
		}
		adopted = true
	}
	if adopted {
		if err := s.store.UpdateHasChildrenFlag(ctx, postID); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) lookupPool(ctx context.Context, ref tags.PoolRef) (store.Pool, bool, error) {
	var (
		pool store.Pool
		err  error
	)
	if ref.ID > 0 {
		pool, err = s.store.GetPoolByID(ctx, ref.ID)
	} else {
		pool, err = s.store.GetPoolByName(ctx, ref.Name)
	}
	if err != nil {
		if isNoRows(err) {
			return store.Pool{}, false, nil
		}
		return store.Pool{}, false, err
	}
	return pool, true, nil
}

func parentIDEqual(a, b *int64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

var pixivSourcePattern = regexp.MustCompile(`^https?://(?:[^./]+\.)*pixiv\.net/img/.*?(\d+)(?:_[^/]*)?\.(?:jpg|jpeg|png|gif)$`)

// normalizeSource rewrites raw pixiv image URLs to the canonical artwork
// page so the same work always carries the same source.
func normalizeSource(source string) string {
	source = strings.TrimSpace(source)
	if m := pixivSourcePattern.FindStringSubmatch(source); m != nil {
		return "http://www.pixiv.net/member_illust.php?mode=medium&illust_id=" + m[1]
	}
	return source
}
