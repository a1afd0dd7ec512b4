package app

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"time"

	"booru/api/internal/config"
	"booru/api/internal/countcache"
	"booru/api/internal/filestore"
	"booru/api/internal/revindex"
	"booru/api/internal/search"
	"booru/api/internal/store"
	"booru/api/internal/tags"
)

var validRatings = map[string]struct{}{
	"s": {},
	"q": {},
	"e": {},
}

type dataStore interface {
	GetPost(context.Context, int64) (store.Post, error)
	PostExists(context.Context, int64) (bool, error)
	MD5Exists(context.Context, string) (bool, error)
	CreatePost(context.Context, store.Post, []string) (store.Post, error)
	SaveEdit(context.Context, store.SaveEditParams) error
	ClearParentID(context.Context, int64) error
	SetParentID(context.Context, int64, *int64) error
	UpdateHasChildrenFlag(context.Context, int64) error
	Children(context.Context, int64) ([]store.Post, error)
	DeletePost(context.Context, store.DeletePostParams) error
	UndeletePost(context.Context, int64, int64, string) error
	ApprovePost(context.Context, int64, int64) error
	BanPost(context.Context, int64, int64, string) error
	UnbanPost(context.Context, int64, int64, string) error
	ExpungePost(context.Context, store.ExpungePostParams) error
	AddFavorite(context.Context, int64, int64) error
	RemoveFavorite(context.Context, int64, int64) error
	CategoriesFor(context.Context, []string) (map[string]store.TagCategory, error)
	FlagPost(context.Context, store.PostFlag) error
	HasUnresolvedFlag(context.Context, int64) (bool, error)
	InsertAppeal(context.Context, store.PostAppeal) error
	InsertDisapproval(context.Context, int64, int64) error
	ListModerationQueue(context.Context, int64, time.Duration, int) ([]store.Post, error)
	VotePost(context.Context, int64, int64, int) error
	UnvotePost(context.Context, int64, int64) error
	ListPostVersions(context.Context, int64) ([]store.PostVersion, error)
	GetPostVersion(context.Context, int64, int64) (store.PostVersion, error)
	GetPoolByID(context.Context, int64) (store.Pool, error)
	GetPoolByName(context.Context, string) (store.Pool, error)
	CreatePool(context.Context, string) (store.Pool, error)
	AddPostToPool(context.Context, int64, int64) error
	RemovePostFromPool(context.Context, int64, int64) error
	SetTagCategory(context.Context, string, store.TagCategory) error
	CreateTagAlias(context.Context, store.TagAlias) (store.TagAlias, error)
	CreateTagImplication(context.Context, store.TagImplication) (store.TagImplication, error)
	Ping(ctx context.Context) error
}

type tagNormalizer interface {
	Normalize(ctx context.Context, tagString string, meta tags.FileMeta) (tags.Result, error)
}

type countCache interface {
	FastCount(ctx context.Context, query string, opts countcache.QueryOptions) (int64, error)
	ExpireForPost(ctx context.Context, postID int64, tagNames []string) error
	ExpireBlank(ctx context.Context) error
}

type searchIndex interface {
	IndexPost(record search.PostRecord)
	DeletePost(postID int64)
}

type reverseIndex interface {
	Add(ctx context.Context, postID int64, md5 string) error
	Remove(ctx context.Context, postID int64) error
}

type fileStore interface {
	Remove(ctx context.Context, md5, fileExt string) error
}

type Service struct {
	cfg        config.Config
	store      dataStore
	normalizer tagNormalizer
	counts     countCache
	search     searchIndex
	revindex   reverseIndex
	files      fileStore
}

// New wires the service. revClient and files may be nil when the reverse
// index or object storage is not configured.
func New(cfg config.Config, dataStore *store.PostgresStore, counts *countcache.Cache, searchSvc *search.Service, revClient *revindex.Client, files *filestore.Store) *Service {
	s := &Service{
		cfg:        cfg,
		store:      dataStore,
		normalizer: tags.NewNormalizer(dataStore, cfg.DimensionAutoTagging),
		counts:     counts,
		search:     searchSvc,
	}
	if revClient != nil {
		s.revindex = revClient
	}
	if files != nil {
		s.files = files
	}
	return s
}

func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

// GetPost returns a post if the viewer may see it. Invisible posts are
// indistinguishable from missing ones.
func (s *Service) GetPost(ctx context.Context, viewer Viewer, postID int64) (store.Post, error) {
	post, err := s.store.GetPost(ctx, postID)
	if err != nil {
		return store.Post{}, err
	}
	if !viewer.canSee(post) {
		return store.Post{}, domainError(http.StatusNotFound, "NOT_FOUND", "Not found", nil)
	}
	return post, nil
}

// CountPosts answers an approximate count for a tag query under the viewer's
// display context.
func (s *Service) CountPosts(ctx context.Context, viewer Viewer, query string) (int64, error) {
	opts := countcache.QueryOptions{
		SafeMode:    viewer.SafeMode,
		HideDeleted: viewer.HideDeleted,
	}
	count, err := s.counts.FastCount(ctx, query, opts)
	if errors.Is(err, countcache.ErrSearchTimeout) {
		return 0, domainError(http.StatusServiceUnavailable, "SEARCH_TIMEOUT", "Count timed out, try a narrower query", nil)
	}
	if err != nil {
		return 0, err
	}
	return count, nil
}

// ModerationQueue lists posts awaiting review, skipping ones the viewer has
// already disapproved.
func (s *Service) ModerationQueue(ctx context.Context, viewer Viewer, limit int) ([]store.Post, error) {
	if !viewer.IsModerator {
		return nil, domainError(http.StatusForbidden, "FORBIDDEN", "Forbidden", nil)
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return s.store.ListModerationQueue(ctx, viewer.ID, s.cfg.FlagLookback, limit)
}

func (s *Service) AddFavorite(ctx context.Context, viewer Viewer, postID int64) error {
	if viewer.Anonymous() {
		return domainError(http.StatusUnauthorized, "UNAUTHORIZED", "Sign in to favorite posts", nil)
	}
	if _, err := s.GetPost(ctx, viewer, postID); err != nil {
		return err
	}
	return s.store.AddFavorite(ctx, postID, viewer.ID)
}

func (s *Service) RemoveFavorite(ctx context.Context, viewer Viewer, postID int64) error {
	if viewer.Anonymous() {
		return domainError(http.StatusUnauthorized, "UNAUTHORIZED", "Sign in to favorite posts", nil)
	}
	return s.store.RemoveFavorite(ctx, postID, viewer.ID)
}
