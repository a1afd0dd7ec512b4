package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ErrVoteExists and ErrVoteMissing report vote-state conflicts to the caller,
// which maps them to its own error vocabulary.
var (
	ErrVoteExists  = errors.New("vote already exists")
	ErrVoteMissing = errors.New("vote does not exist")
)

// FlagPost records the flag and raises is_flagged in one transaction.
func (s *PostgresStore) FlagPost(ctx context.Context, flag PostFlag) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin flag post: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	locked, _, err := lockPostRow(ctx, tx, flag.PostID)
	if err != nil {
		return err
	}
	if locked {
		return ErrStatusLocked
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO post_flags (id, post_id, creator_id, reason) VALUES ($1, $2, $3, $4)
	`, flag.ID, flag.PostID, flag.CreatorID, flag.Reason); err != nil {
		return fmt.Errorf("insert flag: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
		UPDATE posts SET is_flagged=TRUE, updated_at=NOW() WHERE id=$1
	`, flag.PostID); err != nil {
		return fmt.Errorf("mark post flagged: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit flag post: %w", err)
	}
	return nil
}

func (s *PostgresStore) HasUnresolvedFlag(ctx context.Context, postID int64) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS(SELECT 1 FROM post_flags WHERE post_id=$1 AND is_resolved=FALSE)
	`, postID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check unresolved flag: %w", err)
	}
	return exists, nil
}

func (s *PostgresStore) InsertAppeal(ctx context.Context, appeal PostAppeal) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin appeal: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	locked, _, err := lockPostRow(ctx, tx, appeal.PostID)
	if err != nil {
		return err
	}
	if locked {
		return ErrStatusLocked
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO post_appeals (id, post_id, creator_id, reason) VALUES ($1, $2, $3, $4)
	`, appeal.ID, appeal.PostID, appeal.CreatorID, appeal.Reason); err != nil {
		return fmt.Errorf("insert appeal: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit appeal: %w", err)
	}
	return nil
}

func (s *PostgresStore) InsertDisapproval(ctx context.Context, postID, userID int64) error {
	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO post_disapprovals (post_id, user_id) VALUES ($1, $2)
		ON CONFLICT (post_id, user_id) DO NOTHING
	`, postID, userID); err != nil {
		return fmt.Errorf("insert disapproval: %w", err)
	}
	return nil
}

func (s *PostgresStore) HasDisapproved(ctx context.Context, postID, userID int64) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS(SELECT 1 FROM post_disapprovals WHERE post_id=$1 AND user_id=$2)
	`, postID, userID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check disapproval: %w", err)
	}
	return exists, nil
}

// ListModerationQueue returns posts awaiting review for the given viewer:
// pending posts plus posts whose latest flag is younger than lookback.
// Posts the viewer already disapproved are excluded.
func (s *PostgresStore) ListModerationQueue(ctx context.Context, viewerID int64, lookback time.Duration, limit int) ([]Post, error) {
	cutoff := time.Now().Add(-lookback)
	rows, err := s.db.QueryContext(ctx, `
		SELECT`+postColumns+`
		FROM posts
		WHERE is_deleted=FALSE
		  AND (is_pending=TRUE
			OR (is_flagged=TRUE AND EXISTS(
				SELECT 1 FROM post_flags f
				WHERE f.post_id=posts.id AND f.is_resolved=FALSE AND f.created_at >= $2)))
		  AND NOT EXISTS(
			SELECT 1 FROM post_disapprovals d WHERE d.post_id=posts.id AND d.user_id=$1)
		ORDER BY id ASC
		LIMIT $3
	`, viewerID, cutoff, limit)
	if err != nil {
		return nil, fmt.Errorf("list moderation queue: %w", err)
	}
	defer rows.Close()

	items := make([]Post, 0)
	for rows.Next() {
		item, err := scanPost(rows)
		if err != nil {
			return nil, fmt.Errorf("scan queue post: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate moderation queue: %w", err)
	}
	return items, nil
}

// VotePost records a vote and applies it to the score columns atomically.
func (s *PostgresStore) VotePost(ctx context.Context, postID, userID int64, score int) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin vote: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	result, err := tx.ExecContext(ctx, `
		INSERT INTO post_votes (post_id, user_id, score) VALUES ($1, $2, $3)
		ON CONFLICT (post_id, user_id) DO NOTHING
	`, postID, userID, score)
	if err != nil {
		return fmt.Errorf("insert vote: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("insert vote rows: %w", err)
	}
	if affected == 0 {
		return ErrVoteExists
	}

	if err := applyVote(ctx, tx, postID, score, +1); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit vote: %w", err)
	}
	return nil
}

// UnvotePost removes the viewer's vote and reverses its effect on the score.
func (s *PostgresStore) UnvotePost(ctx context.Context, postID, userID int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin unvote: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var score int
	err = tx.QueryRowContext(ctx, `
		SELECT score FROM post_votes WHERE post_id=$1 AND user_id=$2 FOR UPDATE
	`, postID, userID).Scan(&score)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrVoteMissing
	}
	if err != nil {
		return fmt.Errorf("lookup vote: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		DELETE FROM post_votes WHERE post_id=$1 AND user_id=$2
	`, postID, userID); err != nil {
		return fmt.Errorf("delete vote: %w", err)
	}
	if err := applyVote(ctx, tx, postID, score, -1); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit unvote: %w", err)
	}
	return nil
}

// applyVote shifts score and the directional counter matching the vote sign.
// direction is +1 when casting the vote and -1 when reversing it.
func applyVote(ctx context.Context, tx *sql.Tx, postID int64, voteScore, direction int) error {
	delta := voteScore * direction
	var query string
	if voteScore > 0 {
		query = `UPDATE posts SET score=score+$2, up_score=up_score+$2 WHERE id=$1`
	} else {
		query = `UPDATE posts SET score=score+$2, down_score=down_score+$2 WHERE id=$1`
	}
	if _, err := tx.ExecContext(ctx, query, postID, delta); err != nil {
		return fmt.Errorf("apply vote: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetVote(ctx context.Context, postID, userID int64) (PostVote, error) {
	var item PostVote
	err := s.db.QueryRowContext(ctx, `
		SELECT post_id, user_id, score, created_at FROM post_votes WHERE post_id=$1 AND user_id=$2
	`, postID, userID).Scan(&item.PostID, &item.UserID, &item.Score, &item.CreatedAt)
	if err != nil {
		return PostVote{}, err
	}
	return item, nil
}

func (s *PostgresStore) ListPostVersions(ctx context.Context, postID int64) ([]PostVersion, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, post_id, tags, rating, source, parent_id, updater_id, updated_at
		FROM post_versions
		WHERE post_id=$1
		ORDER BY updated_at ASC, id ASC
	`, postID)
	if err != nil {
		return nil, fmt.Errorf("list versions: %w", err)
	}
	defer rows.Close()

	items := make([]PostVersion, 0)
	for rows.Next() {
		var item PostVersion
		if err := rows.Scan(&item.ID, &item.PostID, &item.Tags, &item.Rating, &item.Source,
			&item.ParentID, &item.UpdaterID, &item.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan version: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate versions: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) GetPostVersion(ctx context.Context, postID, versionID int64) (PostVersion, error) {
	var item PostVersion
	err := s.db.QueryRowContext(ctx, `
		SELECT id, post_id, tags, rating, source, parent_id, updater_id, updated_at
		FROM post_versions
		WHERE id=$1 AND post_id=$2
	`, versionID, postID).Scan(&item.ID, &item.PostID, &item.Tags, &item.Rating, &item.Source,
		&item.ParentID, &item.UpdaterID, &item.UpdatedAt)
	if err != nil {
		return PostVersion{}, err
	}
	return item, nil
}
