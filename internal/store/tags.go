package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// EnsureTag returns the tag named name, creating it as a general tag when it
// does not exist yet. Races with concurrent creates resolve via the unique
// constraint and a reselect.
func (s *PostgresStore) EnsureTag(ctx context.Context, name string) (Tag, error) {
	item, err := s.getTagByName(ctx, name)
	if err == nil {
		return item, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return Tag{}, fmt.Errorf("lookup tag: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO tags (name) VALUES ($1) ON CONFLICT (name) DO NOTHING
	`, name); err != nil {
		return Tag{}, fmt.Errorf("insert tag: %w", err)
	}

	item, err = s.getTagByName(ctx, name)
	if err != nil {
		return Tag{}, fmt.Errorf("reselect tag: %w", err)
	}
	return item, nil
}

func (s *PostgresStore) getTagByName(ctx context.Context, name string) (Tag, error) {
	var item Tag
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, category, post_count, created_at, updated_at FROM tags WHERE name=$1
	`, name).Scan(&item.ID, &item.Name, &item.Category, &item.PostCount, &item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		return Tag{}, err
	}
	return item, nil
}

// CategoriesFor maps tag names to their categories. Unknown names are absent
// from the result and count as general.
func (s *PostgresStore) CategoriesFor(ctx context.Context, names []string) (map[string]TagCategory, error) {
	categories := make(map[string]TagCategory, len(names))
	if len(names) == 0 {
		return categories, nil
	}

	rows, err := s.db.QueryContext(ctx, `SELECT name, category FROM tags WHERE name = ANY($1)`, names)
	if err != nil {
		return nil, fmt.Errorf("lookup tag categories: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			name     string
			category TagCategory
		)
		if err := rows.Scan(&name, &category); err != nil {
			return nil, fmt.Errorf("scan tag category: %w", err)
		}
		categories[name] = category
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tag categories: %w", err)
	}
	return categories, nil
}

// ResolveAliases maps antecedent names to their consequents. Names with no
// active alias are absent from the result.
func (s *PostgresStore) ResolveAliases(ctx context.Context, names []string) (map[string]string, error) {
	aliases := make(map[string]string)
	if len(names) == 0 {
		return aliases, nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT antecedent_name, consequent_name FROM tag_aliases WHERE antecedent_name = ANY($1)
	`, names)
	if err != nil {
		return nil, fmt.Errorf("lookup aliases: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var antecedent, consequent string
		if err := rows.Scan(&antecedent, &consequent); err != nil {
			return nil, fmt.Errorf("scan alias: %w", err)
		}
		aliases[antecedent] = consequent
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate aliases: %w", err)
	}
	return aliases, nil
}

// ImplicationsFor returns the direct consequents of each named tag. Transitive
// closure is the normalizer's job.
func (s *PostgresStore) ImplicationsFor(ctx context.Context, names []string) (map[string][]string, error) {
	implications := make(map[string][]string)
	if len(names) == 0 {
		return implications, nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT antecedent_name, consequent_name FROM tag_implications WHERE antecedent_name = ANY($1)
		ORDER BY consequent_name ASC
	`, names)
	if err != nil {
		return nil, fmt.Errorf("lookup implications: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var antecedent, consequent string
		if err := rows.Scan(&antecedent, &consequent); err != nil {
			return nil, fmt.Errorf("scan implication: %w", err)
		}
		implications[antecedent] = append(implications[antecedent], consequent)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate implications: %w", err)
	}
	return implications, nil
}

func (s *PostgresStore) TagPostCount(ctx context.Context, name string) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT post_count FROM tags WHERE name=$1`, name).Scan(&count)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("lookup tag post count: %w", err)
	}
	return count, nil
}

func (s *PostgresStore) SetTagCategory(ctx context.Context, name string, category TagCategory) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE tags SET category=$2, updated_at=NOW() WHERE name=$1
	`, name, category)
	if err != nil {
		return fmt.Errorf("set tag category: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("set tag category rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// CreateTagAlias upserts the alias row. Re-aliasing an antecedent keeps its
// row and swaps the consequent.
func (s *PostgresStore) CreateTagAlias(ctx context.Context, alias TagAlias) (TagAlias, error) {
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO tag_aliases (antecedent_name, consequent_name) VALUES ($1, $2)
		ON CONFLICT (antecedent_name) DO UPDATE SET consequent_name=EXCLUDED.consequent_name
		RETURNING id
	`, alias.AntecedentName, alias.ConsequentName).Scan(&alias.ID)
	if err != nil {
		return TagAlias{}, fmt.Errorf("create tag alias: %w", err)
	}
	return alias, nil
}

// CreateTagImplication inserts the implication if it is new. The no-op update
// on conflict keeps RETURNING populated for the existing row.
func (s *PostgresStore) CreateTagImplication(ctx context.Context, imp TagImplication) (TagImplication, error) {
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO tag_implications (antecedent_name, consequent_name) VALUES ($1, $2)
		ON CONFLICT (antecedent_name, consequent_name) DO UPDATE SET antecedent_name=EXCLUDED.antecedent_name
		RETURNING id
	`, imp.AntecedentName, imp.ConsequentName).Scan(&imp.ID)
	if err != nil {
		return TagImplication{}, fmt.Errorf("create tag implication: %w", err)
	}
	return imp, nil
}
