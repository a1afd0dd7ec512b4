package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrStatusLocked is returned by transitions attempted on a status-locked post.
// The guard is re-checked inside the owning transaction so a concurrent lock
// cannot race past a stale service-side read.
var ErrStatusLocked = errors.New("post is status locked")

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) DB() *sql.DB {
	return s.db
}

const postColumns = `
	id, md5, file_ext, image_width, image_height, file_size,
	tag_string, tag_count, tag_count_general, tag_count_artist, tag_count_copyright, tag_count_character,
	rating, source, parent_id, has_children,
	is_pending, is_flagged, is_deleted, is_banned,
	is_rating_locked, is_note_locked, is_status_locked,
	uploader_id, approver_id, score, up_score, down_score, fav_count,
	created_at, updated_at
`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPost(row rowScanner) (Post, error) {
	var item Post
	err := row.Scan(
		&item.ID, &item.MD5, &item.FileExt, &item.ImageWidth, &item.ImageHeight, &item.FileSize,
		&item.TagString, &item.TagCount, &item.TagCountGeneral, &item.TagCountArtist, &item.TagCountCopyright, &item.TagCountCharacter,
		&item.Rating, &item.Source, &item.ParentID, &item.HasChildren,
		&item.IsPending, &item.IsFlagged, &item.IsDeleted, &item.IsBanned,
		&item.IsRatingLocked, &item.IsNoteLocked, &item.IsStatusLocked,
		&item.UploaderID, &item.ApproverID, &item.Score, &item.UpScore, &item.DownScore, &item.FavCount,
		&item.CreatedAt, &item.UpdatedAt,
	)
	return item, err
}

func (s *PostgresStore) GetPost(ctx context.Context, postID int64) (Post, error) {
	item, err := scanPost(s.db.QueryRowContext(ctx, `SELECT`+postColumns+`FROM posts WHERE id=$1`, postID))
	if err != nil {
		return Post{}, err
	}
	return item, nil
}

func (s *PostgresStore) PostExists(ctx context.Context, postID int64) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM posts WHERE id=$1)`, postID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check post exists: %w", err)
	}
	return exists, nil
}

func (s *PostgresStore) MD5Exists(ctx context.Context, md5 string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM posts WHERE md5=$1)`, md5).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check md5 exists: %w", err)
	}
	return exists, nil
}

// CreatePost inserts the post, bumps the usage counter of every tag it
// carries, and records the initial version, all in one transaction.
func (s *PostgresStore) CreatePost(ctx context.Context, item Post, tagNames []string) (Post, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Post{}, fmt.Errorf("begin create post: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	row := tx.QueryRowContext(ctx, `
		INSERT INTO posts (
			md5, file_ext, image_width, image_height, file_size,
			tag_string, tag_count, tag_count_general, tag_count_artist, tag_count_copyright, tag_count_character,
			rating, source, parent_id, is_pending, uploader_id
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		RETURNING`+postColumns,
		item.MD5, item.FileExt, item.ImageWidth, item.ImageHeight, item.FileSize,
		item.TagString, item.TagCount, item.TagCountGeneral, item.TagCountArtist, item.TagCountCopyright, item.TagCountCharacter,
		item.Rating, item.Source, item.ParentID, item.IsPending, item.UploaderID,
	)
	created, err := scanPost(row)
	if err != nil {
		return Post{}, fmt.Errorf("insert post: %w", err)
	}

	if err := adjustTagPostCounts(ctx, tx, tagNames, +1); err != nil {
		return Post{}, err
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO post_versions (post_id, tags, rating, source, parent_id, updater_id)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, created.ID, created.TagString, created.Rating, created.Source, created.ParentID, created.UploaderID); err != nil {
		return Post{}, fmt.Errorf("insert initial version: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return Post{}, fmt.Errorf("commit create post: %w", err)
	}
	return created, nil
}

type SaveEditParams struct {
	Post          Post
	UpdaterID     int64
	MergeWindow   time.Duration
	CreateVersion bool
}

// SaveEdit persists the outcome of a save pipeline run: the updated row, the
// tag usage counter diffs, and the version record (merged into the latest
// version when it belongs to the same updater inside the merge window). The
// counter diffs derive from the locked row, not the caller's earlier read, so
// concurrent edits to the same post cannot double-count a tag.
func (s *PostgresStore) SaveEdit(ctx context.Context, params SaveEditParams) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save edit: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	p := params.Post

	var storedTags string
	if err := tx.QueryRowContext(ctx, `
		SELECT tag_string FROM posts WHERE id=$1 FOR UPDATE
	`, p.ID).Scan(&storedTags); err != nil {
		return fmt.Errorf("lock post for edit: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE posts
		SET tag_string=$2, tag_count=$3, tag_count_general=$4, tag_count_artist=$5,
			tag_count_copyright=$6, tag_count_character=$7,
			rating=$8, source=$9, parent_id=$10, updated_at=NOW()
		WHERE id=$1
	`, p.ID, p.TagString, p.TagCount, p.TagCountGeneral, p.TagCountArtist,
		p.TagCountCopyright, p.TagCountCharacter, p.Rating, p.Source, p.ParentID); err != nil {
		return fmt.Errorf("update post: %w", err)
	}

	added, removed := diffTagStrings(storedTags, p.TagString)
	if err := adjustTagPostCounts(ctx, tx, added, +1); err != nil {
		return err
	}
	if err := adjustTagPostCounts(ctx, tx, removed, -1); err != nil {
		return err
	}

	if params.CreateVersion {
		if err := upsertVersion(ctx, tx, p, params.UpdaterID, params.MergeWindow); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit save edit: %w", err)
	}
	return nil
}

func upsertVersion(ctx context.Context, tx *sql.Tx, p Post, updaterID int64, mergeWindow time.Duration) error {
	var (
		versionID int64
		prevBy    int64
		prevAt    time.Time
	)
	err := tx.QueryRowContext(ctx, `
		SELECT id, updater_id, updated_at
		FROM post_versions
		WHERE post_id=$1
		ORDER BY updated_at DESC, id DESC
		LIMIT 1
		FOR UPDATE
	`, p.ID).Scan(&versionID, &prevBy, &prevAt)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("lookup latest version: %w", err)
	}

	if err == nil && shouldMergeVersion(prevBy, updaterID, prevAt, time.Now(), mergeWindow) {
		if _, err := tx.ExecContext(ctx, `
			UPDATE post_versions
			SET tags=$2, rating=$3, source=$4, parent_id=$5, updated_at=NOW()
			WHERE id=$1
		`, versionID, p.TagString, p.Rating, p.Source, p.ParentID); err != nil {
			return fmt.Errorf("merge version: %w", err)
		}
		return nil
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO post_versions (post_id, tags, rating, source, parent_id, updater_id)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, p.ID, p.TagString, p.Rating, p.Source, p.ParentID, updaterID); err != nil {
		return fmt.Errorf("insert version: %w", err)
	}
	return nil
}

// shouldMergeVersion reports whether a new snapshot collapses into the latest
// version instead of appending one: same updater, still inside the window.
func shouldMergeVersion(prevUpdater, updater int64, prevAt, now time.Time, window time.Duration) bool {
	return prevUpdater == updater && now.Sub(prevAt) < window
}

// diffTagStrings compares the stored tag string against the one about to be
// written and returns the names whose usage counters move.
func diffTagStrings(stored, next string) (added, removed []string) {
	prev := strings.Fields(stored)
	curr := strings.Fields(next)
	prevSet := make(map[string]bool, len(prev))
	for _, name := range prev {
		prevSet[name] = true
	}
	currSet := make(map[string]bool, len(curr))
	for _, name := range curr {
		currSet[name] = true
	}
	for _, name := range curr {
		if !prevSet[name] {
			added = append(added, name)
			prevSet[name] = true
		}
	}
	for _, name := range prev {
		if !currSet[name] {
			removed = append(removed, name)
			currSet[name] = true
		}
	}
	return added, removed
}

func adjustTagPostCounts(ctx context.Context, tx *sql.Tx, names []string, delta int) error {
	if len(names) == 0 {
		return nil
	}
	_, err := tx.ExecContext(ctx, `
		UPDATE tags SET post_count = post_count + $2, updated_at=NOW() WHERE name = ANY($1)
	`, names, delta)
	if err != nil {
		return fmt.Errorf("adjust tag post counts: %w", err)
	}
	return nil
}

func (s *PostgresStore) ClearParentID(ctx context.Context, postID int64) error {
	_, err := s.db.ExecContext(ctx, `UPDATE posts SET parent_id=NULL, updated_at=NOW() WHERE id=$1`, postID)
	if err != nil {
		return fmt.Errorf("clear parent id: %w", err)
	}
	return nil
}

func (s *PostgresStore) SetParentID(ctx context.Context, postID int64, parentID *int64) error {
	_, err := s.db.ExecContext(ctx, `UPDATE posts SET parent_id=$2, updated_at=NOW() WHERE id=$1`, postID, parentID)
	if err != nil {
		return fmt.Errorf("set parent id: %w", err)
	}
	return nil
}

// UpdateHasChildrenFlag recomputes has_children from the children table; the
// flag is derived state and must never drift from it.
func (s *PostgresStore) UpdateHasChildrenFlag(ctx context.Context, postID int64) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE posts
		SET has_children = EXISTS(SELECT 1 FROM posts c WHERE c.parent_id = posts.id)
		WHERE id=$1
	`, postID)
	if err != nil {
		return fmt.Errorf("update has_children flag: %w", err)
	}
	return nil
}

func (s *PostgresStore) Children(ctx context.Context, parentID int64) ([]Post, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT`+postColumns+`FROM posts WHERE parent_id=$1 ORDER BY id ASC`, parentID)
	if err != nil {
		return nil, fmt.Errorf("list children: %w", err)
	}
	defer rows.Close()

	items := make([]Post, 0)
	for rows.Next() {
		item, err := scanPost(rows)
		if err != nil {
			return nil, fmt.Errorf("scan child: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate children: %w", err)
	}
	return items, nil
}

type DeletePostParams struct {
	PostID           int64
	Ban              bool
	MoveFavorites    bool
	WithoutModAction bool
	ModActionID      string
	ActorID          int64
	Reason           string
}

// DeletePost performs the soft-delete transition: flag clearing, optional ban,
// optional favorites transfer, and the moderation record form one transaction.
func (s *PostgresStore) DeletePost(ctx context.Context, params DeletePostParams) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete post: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	locked, parentID, err := lockPostRow(ctx, tx, params.PostID)
	if err != nil {
		return err
	}
	if locked {
		return ErrStatusLocked
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE posts
		SET is_deleted=TRUE, is_pending=FALSE, is_flagged=FALSE,
			is_banned = is_banned OR $2, updated_at=NOW()
		WHERE id=$1
	`, params.PostID, params.Ban); err != nil {
		return fmt.Errorf("mark post deleted: %w", err)
	}

	if params.MoveFavorites && parentID != nil {
		if err := transferFavorites(ctx, tx, params.PostID, *parentID); err != nil {
			return err
		}
	}

	if !params.WithoutModAction {
		description := fmt.Sprintf("deleted post #%d", params.PostID)
		if params.Reason != "" {
			description = fmt.Sprintf("deleted post #%d, reason: %s", params.PostID, params.Reason)
		}
		if err := insertModAction(ctx, tx, ModAction{ID: params.ModActionID, CreatorID: params.ActorID, Description: description}); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete post: %w", err)
	}
	return nil
}

// UndeletePost clears the deleted flag and credits the actor as approver.
func (s *PostgresStore) UndeletePost(ctx context.Context, postID, actorID int64, modActionID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin undelete post: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	locked, _, err := lockPostRow(ctx, tx, postID)
	if err != nil {
		return err
	}
	if locked {
		return ErrStatusLocked
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE posts SET is_deleted=FALSE, approver_id=$2, updated_at=NOW() WHERE id=$1
	`, postID, actorID); err != nil {
		return fmt.Errorf("mark post undeleted: %w", err)
	}
	if err := insertModAction(ctx, tx, ModAction{ID: modActionID, CreatorID: actorID, Description: fmt.Sprintf("undeleted post #%d", postID)}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit undelete post: %w", err)
	}
	return nil
}

// ApprovePost resolves all open flags and clears pending/flagged/deleted.
// Approval conflicts (self-upload, repeat approval) are the caller's guard.
func (s *PostgresStore) ApprovePost(ctx context.Context, postID, approverID int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin approve post: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	locked, _, err := lockPostRow(ctx, tx, postID)
	if err != nil {
		return err
	}
	if locked {
		return ErrStatusLocked
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE post_flags SET is_resolved=TRUE WHERE post_id=$1 AND is_resolved=FALSE
	`, postID); err != nil {
		return fmt.Errorf("resolve flags: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
		UPDATE posts
		SET is_flagged=FALSE, is_pending=FALSE, is_deleted=FALSE, approver_id=$2, updated_at=NOW()
		WHERE id=$1
	`, postID, approverID); err != nil {
		return fmt.Errorf("mark post approved: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit approve post: %w", err)
	}
	return nil
}

func (s *PostgresStore) BanPost(ctx context.Context, postID, actorID int64, modActionID string) error {
	return s.setBanned(ctx, postID, actorID, modActionID, true)
}

func (s *PostgresStore) UnbanPost(ctx context.Context, postID, actorID int64, modActionID string) error {
	return s.setBanned(ctx, postID, actorID, modActionID, false)
}

func (s *PostgresStore) setBanned(ctx context.Context, postID, actorID int64, modActionID string, banned bool) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin set banned: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `UPDATE posts SET is_banned=$2, updated_at=NOW() WHERE id=$1`, postID, banned); err != nil {
		return fmt.Errorf("set banned: %w", err)
	}
	verb := "banned"
	if !banned {
		verb = "unbanned"
	}
	if err := insertModAction(ctx, tx, ModAction{ID: modActionID, CreatorID: actorID, Description: fmt.Sprintf("%s post #%d", verb, postID)}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit set banned: %w", err)
	}
	return nil
}

type ExpungePostParams struct {
	PostID      int64
	ActorID     int64
	ModActionID string
	TagNames    []string
	ParentID    *int64
}

// ExpungePost is the irreversible hard delete: moderation record, favorites
// transfer, children reparenting, tag decrements, pool removal, dependent-row
// cleanup, and row destruction, atomically. Former-parent flag fixup included.
func (s *PostgresStore) ExpungePost(ctx context.Context, params ExpungePostParams) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin expunge post: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	locked, parentID, err := lockPostRow(ctx, tx, params.PostID)
	if err != nil {
		return err
	}
	if locked {
		return ErrStatusLocked
	}

	if err := insertModAction(ctx, tx, ModAction{
		ID:          params.ModActionID,
		CreatorID:   params.ActorID,
		Description: fmt.Sprintf("permanently deleted post #%d", params.PostID),
	}); err != nil {
		return err
	}

	if parentID != nil {
		if err := transferFavorites(ctx, tx, params.PostID, *parentID); err != nil {
			return err
		}
	}

	if err := reparentChildren(ctx, tx, params.PostID); err != nil {
		return err
	}

	if err := adjustTagPostCounts(ctx, tx, params.TagNames, -1); err != nil {
		return err
	}

	for _, table := range []string{"pool_posts", "favorites", "post_votes", "post_flags", "post_appeals", "post_disapprovals", "post_versions"} {
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE post_id=$1`, params.PostID); err != nil {
			return fmt.Errorf("delete %s rows: %w", table, err)
		}
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM posts WHERE id=$1`, params.PostID); err != nil {
		return fmt.Errorf("delete post row: %w", err)
	}

	if parentID != nil {
		if _, err := tx.ExecContext(ctx, `
			UPDATE posts
			SET has_children = EXISTS(SELECT 1 FROM posts c WHERE c.parent_id = posts.id)
			WHERE id=$1
		`, *parentID); err != nil {
			return fmt.Errorf("fix former parent flag: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit expunge post: %w", err)
	}
	return nil
}

// reparentChildren orphans the eldest child (children are ordered by id) and
// moves the remaining siblings under it.
func reparentChildren(ctx context.Context, tx *sql.Tx, postID int64) error {
	rows, err := tx.QueryContext(ctx, `SELECT id FROM posts WHERE parent_id=$1 ORDER BY id ASC FOR UPDATE`, postID)
	if err != nil {
		return fmt.Errorf("list children for reparent: %w", err)
	}
	defer rows.Close()

	var childIDs []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return fmt.Errorf("scan child id: %w", err)
		}
		childIDs = append(childIDs, id)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate child ids: %w", err)
	}

	orphan, adopted := reparentPlan(childIDs)
	if orphan == 0 {
		return nil
	}
	if _, err := tx.ExecContext(ctx, `UPDATE posts SET parent_id=NULL WHERE id=$1`, orphan); err != nil {
		return fmt.Errorf("orphan eldest child: %w", err)
	}
	if len(adopted) > 0 {
		if _, err := tx.ExecContext(ctx, `
			UPDATE posts SET parent_id=$1 WHERE parent_id=$2 AND id<>$1
		`, orphan, postID); err != nil {
			return fmt.Errorf("reparent siblings: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `UPDATE posts SET has_children=TRUE WHERE id=$1`, orphan); err != nil {
			return fmt.Errorf("mark eldest has_children: %w", err)
		}
	}
	return nil
}

// reparentPlan picks the child that goes free and the siblings it adopts when
// their parent is destroyed. childIDs must already be ordered by id, eldest
// first. A zero orphan means there was nothing to do.
func reparentPlan(childIDs []int64) (orphan int64, adopted []int64) {
	if len(childIDs) == 0 {
		return 0, nil
	}
	return childIDs[0], childIDs[1:]
}

func lockPostRow(ctx context.Context, tx *sql.Tx, postID int64) (locked bool, parentID *int64, err error) {
	err = tx.QueryRowContext(ctx, `
		SELECT is_status_locked, parent_id FROM posts WHERE id=$1 FOR UPDATE
	`, postID).Scan(&locked, &parentID)
	if err != nil {
		return false, nil, fmt.Errorf("lock post row: %w", err)
	}
	return locked, parentID, nil
}

func transferFavorites(ctx context.Context, tx *sql.Tx, fromID, toID int64) error {
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO favorites (post_id, user_id)
		SELECT $2, user_id FROM favorites WHERE post_id=$1
		ON CONFLICT (post_id, user_id) DO NOTHING
	`, fromID, toID); err != nil {
		return fmt.Errorf("copy favorites: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM favorites WHERE post_id=$1`, fromID); err != nil {
		return fmt.Errorf("clear favorites: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
		UPDATE posts
		SET fav_count=(SELECT COUNT(*) FROM favorites WHERE post_id=posts.id)
		WHERE id=$1 OR id=$2
	`, fromID, toID); err != nil {
		return fmt.Errorf("recount favorites: %w", err)
	}
	return nil
}

func (s *PostgresStore) AddFavorite(ctx context.Context, postID, userID int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin add favorite: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	result, err := tx.ExecContext(ctx, `
		INSERT INTO favorites (post_id, user_id) VALUES ($1, $2)
		ON CONFLICT (post_id, user_id) DO NOTHING
	`, postID, userID)
	if err != nil {
		return fmt.Errorf("insert favorite: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("insert favorite rows: %w", err)
	}
	if affected > 0 {
		if _, err := tx.ExecContext(ctx, `UPDATE posts SET fav_count=fav_count+1 WHERE id=$1`, postID); err != nil {
			return fmt.Errorf("bump fav count: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit add favorite: %w", err)
	}
	return nil
}

func (s *PostgresStore) RemoveFavorite(ctx context.Context, postID, userID int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin remove favorite: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	result, err := tx.ExecContext(ctx, `DELETE FROM favorites WHERE post_id=$1 AND user_id=$2`, postID, userID)
	if err != nil {
		return fmt.Errorf("delete favorite: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete favorite rows: %w", err)
	}
	if affected > 0 {
		if _, err := tx.ExecContext(ctx, `UPDATE posts SET fav_count=fav_count-1 WHERE id=$1`, postID); err != nil {
			return fmt.Errorf("drop fav count: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit remove favorite: %w", err)
	}
	return nil
}

func (s *PostgresStore) FavoriteUserIDs(ctx context.Context, postID int64) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT user_id FROM favorites WHERE post_id=$1 ORDER BY user_id ASC`, postID)
	if err != nil {
		return nil, fmt.Errorf("list favorites: %w", err)
	}
	defer rows.Close()

	ids := make([]int64, 0)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan favorite: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate favorites: %w", err)
	}
	return ids, nil
}

func insertModAction(ctx context.Context, tx *sql.Tx, action ModAction) error {
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO mod_actions (id, creator_id, description) VALUES ($1, $2, $3)
	`, action.ID, action.CreatorID, action.Description); err != nil {
		return fmt.Errorf("insert mod action: %w", err)
	}
	return nil
}

// Ping verifies the database connection is alive
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
