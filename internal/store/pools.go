package store

import (
	"context"
	"fmt"
)

func (s *PostgresStore) GetPoolByID(ctx context.Context, poolID int64) (Pool, error) {
	var item Pool
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, description, is_deleted, created_at FROM pools WHERE id=$1
	`, poolID).Scan(&item.ID, &item.Name, &item.Description, &item.IsDeleted, &item.CreatedAt)
	if err != nil {
		return Pool{}, err
	}
	return item, nil
}

func (s *PostgresStore) GetPoolByName(ctx context.Context, name string) (Pool, error) {
	var item Pool
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, description, is_deleted, created_at FROM pools WHERE name=$1
	`, name).Scan(&item.ID, &item.Name, &item.Description, &item.IsDeleted, &item.CreatedAt)
	if err != nil {
		return Pool{}, err
	}
	return item, nil
}

func (s *PostgresStore) CreatePool(ctx context.Context, name string) (Pool, error) {
	var item Pool
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO pools (name) VALUES ($1)
		RETURNING id, name, description, is_deleted, created_at
	`, name).Scan(&item.ID, &item.Name, &item.Description, &item.IsDeleted, &item.CreatedAt)
	if err != nil {
		return Pool{}, fmt.Errorf("insert pool: %w", err)
	}
	return item, nil
}

func (s *PostgresStore) AddPostToPool(ctx context.Context, poolID, postID int64) error {
	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO pool_posts (pool_id, post_id) VALUES ($1, $2)
		ON CONFLICT (pool_id, post_id) DO NOTHING
	`, poolID, postID); err != nil {
		return fmt.Errorf("add post to pool: %w", err)
	}
	return nil
}

func (s *PostgresStore) RemovePostFromPool(ctx context.Context, poolID, postID int64) error {
	if _, err := s.db.ExecContext(ctx, `
		DELETE FROM pool_posts WHERE pool_id=$1 AND post_id=$2
	`, poolID, postID); err != nil {
		return fmt.Errorf("remove post from pool: %w", err)
	}
	return nil
}

func (s *PostgresStore) PoolIDsForPost(ctx context.Context, postID int64) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT pool_id FROM pool_posts WHERE post_id=$1 ORDER BY pool_id ASC
	`, postID)
	if err != nil {
		return nil, fmt.Errorf("list pools for post: %w", err)
	}
	defer rows.Close()

	ids := make([]int64, 0)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan pool id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pools for post: %w", err)
	}
	return ids, nil
}
