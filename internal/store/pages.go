package store

import (
	"context"
	"fmt"
)

const pageColumns = `p.id, p.workspace_id, p.created_by, p.title, p.content, p.icon, p.cover_image, p.is_favorite, p.is_archived, p.created_at, p.updated_at`

// readablePage is true when $1 created the page, holds a share on it, or is
// a member of its workspace.
const readablePage = `(p.created_by = $1
	OR EXISTS (SELECT 1 FROM page_shares ps WHERE ps.page_id = p.id AND ps.shared_with = $1)
	OR EXISTS (SELECT 1 FROM workspace_members wm WHERE wm.workspace_id = p.workspace_id AND wm.user_id = $1))`

func scanPage(row rowScanner) (Page, error) {
	var page Page
	err := row.Scan(
		&page.ID,
		&page.WorkspaceID,
		&page.CreatedBy,
		&page.Title,
		&page.Content,
		&page.Icon,
		&page.CoverImage,
		&page.IsFavorite,
		&page.IsArchived,
		&page.CreatedAt,
		&page.UpdatedAt,
	)
	return page, err
}

func collectPages(rows interface {
	rowScanner
	Next() bool
	Err() error
	Close() error
}) ([]Page, error) {
	defer rows.Close()
	items := make([]Page, 0)
	for rows.Next() {
		page, err := scanPage(rows)
		if err != nil {
			return nil, fmt.Errorf("scan page: %w", err)
		}
		items = append(items, page)
	}
	return items, rows.Err()
}

func (s *PostgresStore) CreatePage(ctx context.Context, page Page) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO pages (id, workspace_id, created_by, title, content, icon, cover_image, is_favorite, is_archived)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, page.ID, page.WorkspaceID, page.CreatedBy, page.Title, page.Content, page.Icon, page.CoverImage, page.IsFavorite, page.IsArchived)
	if err != nil {
		return fmt.Errorf("insert page: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetPage(ctx context.Context, pageID string) (Page, error) {
	return scanPage(s.db.QueryRowContext(ctx, `SELECT `+pageColumns+` FROM pages p WHERE p.id=$1`, pageID))
}

func (s *PostgresStore) ListPagesByWorkspace(ctx context.Context, workspaceID string, filter PageFilter) ([]Page, error) {
	query := `SELECT ` + pageColumns + ` FROM pages p WHERE p.workspace_id = $1`
	args := []any{workspaceID}
	if filter.Favorite != nil {
		args = append(args, *filter.Favorite)
		query += fmt.Sprintf(" AND p.is_favorite = $%d", len(args))
	}
	if filter.Archived != nil {
		args = append(args, *filter.Archived)
		query += fmt.Sprintf(" AND p.is_archived = $%d", len(args))
	}
	query += " ORDER BY p.updated_at DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list pages: %w", err)
	}
	return collectPages(rows)
}

// ListSharedPages returns pages other users shared with userID.
func (s *PostgresStore) ListSharedPages(ctx context.Context, userID string) ([]Page, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+pageColumns+`
		FROM pages p
		JOIN page_shares ps ON ps.page_id = p.id
		WHERE ps.shared_with = $1
		ORDER BY ps.created_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list shared pages: %w", err)
	}
	return collectPages(rows)
}

// ListFavoritePages returns favourite, non-archived pages readable by userID.
func (s *PostgresStore) ListFavoritePages(ctx context.Context, userID string) ([]Page, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+pageColumns+`
		FROM pages p
		WHERE p.is_favorite AND NOT p.is_archived AND `+readablePage+`
		ORDER BY p.updated_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list favorite pages: %w", err)
	}
	return collectPages(rows)
}

func (s *PostgresStore) UpdatePage(ctx context.Context, page Page) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE pages SET title=$2, content=$3, icon=$4, cover_image=$5, updated_at=NOW() WHERE id=$1
	`, page.ID, page.Title, page.Content, page.Icon, page.CoverImage)
	if err != nil {
		return fmt.Errorf("update page: %w", err)
	}
	return nil
}

func (s *PostgresStore) MovePage(ctx context.Context, pageID, workspaceID string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE pages SET workspace_id=$2, updated_at=NOW() WHERE id=$1`, pageID, workspaceID)
	if err != nil {
		return fmt.Errorf("move page: %w", err)
	}
	return nil
}

func (s *PostgresStore) SetPageFavorite(ctx context.Context, pageID string, favorite bool) error {
	_, err := s.db.ExecContext(ctx, `UPDATE pages SET is_favorite=$2, updated_at=NOW() WHERE id=$1`, pageID, favorite)
	if err != nil {
		return fmt.Errorf("set page favorite: %w", err)
	}
	return nil
}

func (s *PostgresStore) SetPageArchived(ctx context.Context, pageID string, archived bool) error {
	_, err := s.db.ExecContext(ctx, `UPDATE pages SET is_archived=$2, updated_at=NOW() WHERE id=$1`, pageID, archived)
	if err != nil {
		return fmt.Errorf("set page archived: %w", err)
	}
	return nil
}

func (s *PostgresStore) DeletePage(ctx context.Context, pageID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM pages WHERE id=$1`, pageID)
	if err != nil {
		return fmt.Errorf("delete page: %w", err)
	}
	return nil
}
