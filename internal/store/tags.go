package store

import (
	"context"
	"fmt"
)

func scanTag(row rowScanner) (Tag, error) {
	var tag Tag
	err := row.Scan(&tag.ID, &tag.UserID, &tag.Name, &tag.Color, &tag.CreatedAt)
	return tag, err
}

func (s *PostgresStore) CreateTag(ctx context.Context, tag Tag) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tags (id, user_id, name, color) VALUES ($1, $2, $3, $4)
	`, tag.ID, tag.UserID, tag.Name, tag.Color)
	if err != nil {
		return fmt.Errorf("insert tag: %w", translateWriteError(err))
	}
	return nil
}

func (s *PostgresStore) GetTag(ctx context.Context, tagID string) (Tag, error) {
	return scanTag(s.db.QueryRowContext(ctx, `SELECT id, user_id, name, color, created_at FROM tags WHERE id=$1`, tagID))
}

func (s *PostgresStore) ListTags(ctx context.Context, userID string) ([]Tag, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, name, color, created_at FROM tags WHERE user_id=$1 ORDER BY name
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	return collectTags(rows)
}

func (s *PostgresStore) UpdateTag(ctx context.Context, tag Tag) error {
	_, err := s.db.ExecContext(ctx, `UPDATE tags SET name=$2, color=$3 WHERE id=$1`, tag.ID, tag.Name, tag.Color)
	if err != nil {
		return fmt.Errorf("update tag: %w", translateWriteError(err))
	}
	return nil
}

func (s *PostgresStore) DeleteTag(ctx context.Context, tagID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM tags WHERE id=$1`, tagID)
	if err != nil {
		return fmt.Errorf("delete tag: %w", err)
	}
	return nil
}

// AddPageTag is idempotent: tagging a page twice keeps the first timestamp.
func (s *PostgresStore) AddPageTag(ctx context.Context, pageID, tagID string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO page_tags (page_id, tag_id) VALUES ($1, $2)
		ON CONFLICT (page_id, tag_id) DO NOTHING
	`, pageID, tagID)
	if err != nil {
		return fmt.Errorf("add page tag: %w", err)
	}
	return nil
}

func (s *PostgresStore) RemovePageTag(ctx context.Context, pageID, tagID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM page_tags WHERE page_id=$1 AND tag_id=$2`, pageID, tagID)
	if err != nil {
		return fmt.Errorf("remove page tag: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListPageTags(ctx context.Context, pageID string) ([]Tag, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT t.id, t.user_id, t.name, t.color, t.created_at
		FROM tags t
		JOIN page_tags pt ON pt.tag_id = t.id
		WHERE pt.page_id = $1
		ORDER BY pt.tagged_at
	`, pageID)
	if err != nil {
		return nil, fmt.Errorf("list page tags: %w", err)
	}
	return collectTags(rows)
}

// ListPagesForTag returns tagged pages that userID can read.
func (s *PostgresStore) ListPagesForTag(ctx context.Context, tagID, userID string) ([]Page, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+pageColumns+`
		FROM pages p
		JOIN page_tags pt ON pt.page_id = p.id
		WHERE pt.tag_id = $2 AND `+readablePage+`
		ORDER BY pt.tagged_at DESC
	`, userID, tagID)
	if err != nil {
		return nil, fmt.Errorf("list pages for tag: %w", err)
	}
	return collectPages(rows)
}

func collectTags(rows interface {
	rowScanner
	Next() bool
	Err() error
	Close() error
}) ([]Tag, error) {
	defer rows.Close()
	items := make([]Tag, 0)
	for rows.Next() {
		tag, err := scanTag(rows)
		if err != nil {
			return nil, fmt.Errorf("scan tag: %w", err)
		}
		items = append(items, tag)
	}
	return items, rows.Err()
}
