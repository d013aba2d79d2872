package store

import (
	"context"
	"fmt"
)

const shareDetailQuery = `
	SELECT ps.id, ps.page_id, ps.shared_by, ps.shared_with, ps.permission, ps.created_at,
		p.title, sb.display_name, sb.email, sw.display_name, sw.email
	FROM page_shares ps
	JOIN pages p ON p.id = ps.page_id
	JOIN users sb ON sb.id = ps.shared_by
	JOIN users sw ON sw.id = ps.shared_with
`

func scanShare(row rowScanner) (PageShare, error) {
	var share PageShare
	err := row.Scan(&share.ID, &share.PageID, &share.SharedBy, &share.SharedWith, &share.Permission, &share.CreatedAt)
	return share, err
}

// CreateShareWithNotification persists the share and the recipient's
// notification in one transaction.
func (s *PostgresStore) CreateShareWithNotification(ctx context.Context, share PageShare, notification Notification) error {
	return WithTx(ctx, s.db, nil, func(ctx context.Context, tx DBTX) error {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO page_shares (id, page_id, shared_by, shared_with, permission)
			VALUES ($1, $2, $3, $4, $5)
		`, share.ID, share.PageID, share.SharedBy, share.SharedWith, share.Permission); err != nil {
			return fmt.Errorf("insert share: %w", translateWriteError(err))
		}
		return insertNotification(ctx, tx, notification)
	})
}

// GetPageShare returns the share of pageID granted to userID.
func (s *PostgresStore) GetPageShare(ctx context.Context, pageID, userID string) (PageShare, error) {
	return scanShare(s.db.QueryRowContext(ctx, `
		SELECT id, page_id, shared_by, shared_with, permission, created_at
		FROM page_shares
		WHERE page_id=$1 AND shared_with=$2
	`, pageID, userID))
}

func (s *PostgresStore) GetShare(ctx context.Context, shareID string) (PageShare, error) {
	return scanShare(s.db.QueryRowContext(ctx, `
		SELECT id, page_id, shared_by, shared_with, permission, created_at
		FROM page_shares
		WHERE id=$1
	`, shareID))
}

func (s *PostgresStore) UpdateSharePermission(ctx context.Context, shareID, permission string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE page_shares SET permission=$2 WHERE id=$1`, shareID, permission)
	if err != nil {
		return fmt.Errorf("update share permission: %w", err)
	}
	return nil
}

func (s *PostgresStore) DeleteShare(ctx context.Context, shareID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM page_shares WHERE id=$1`, shareID)
	if err != nil {
		return fmt.Errorf("delete share: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListSharesForPage(ctx context.Context, pageID string) ([]ShareDetail, error) {
	return s.listShareDetails(ctx, shareDetailQuery+` WHERE ps.page_id = $1 ORDER BY ps.created_at`, pageID)
}

func (s *PostgresStore) ListSharesReceived(ctx context.Context, userID string) ([]ShareDetail, error) {
	return s.listShareDetails(ctx, shareDetailQuery+` WHERE ps.shared_with = $1 ORDER BY ps.created_at DESC`, userID)
}

func (s *PostgresStore) listShareDetails(ctx context.Context, query string, arg string) ([]ShareDetail, error) {
	rows, err := s.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("list shares: %w", err)
	}
	defer rows.Close()

	items := make([]ShareDetail, 0)
	for rows.Next() {
		var d ShareDetail
		if err := rows.Scan(
			&d.ID, &d.PageID, &d.SharedBy, &d.SharedWith, &d.Permission, &d.CreatedAt,
			&d.PageTitle, &d.SharedByName, &d.SharedByEmail, &d.SharedWithName, &d.SharedWithEmail,
		); err != nil {
			return nil, fmt.Errorf("scan share: %w", err)
		}
		items = append(items, d)
	}
	return items, rows.Err()
}
