package store

import (
	"context"
	"fmt"
)

const attachmentColumns = `id, page_id, uploaded_by, original_name, stored_name, content_type, size_bytes, created_at`

func scanAttachment(row rowScanner) (Attachment, error) {
	var a Attachment
	err := row.Scan(&a.ID, &a.PageID, &a.UploadedBy, &a.OriginalName, &a.StoredName, &a.ContentType, &a.SizeBytes, &a.CreatedAt)
	return a, err
}

func (s *PostgresStore) CreateAttachment(ctx context.Context, a Attachment) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO attachments (id, page_id, uploaded_by, original_name, stored_name, content_type, size_bytes)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, a.ID, a.PageID, a.UploadedBy, a.OriginalName, a.StoredName, a.ContentType, a.SizeBytes)
	if err != nil {
		return fmt.Errorf("insert attachment: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetAttachment(ctx context.Context, attachmentID string) (Attachment, error) {
	return scanAttachment(s.db.QueryRowContext(ctx, `SELECT `+attachmentColumns+` FROM attachments WHERE id=$1`, attachmentID))
}

func (s *PostgresStore) ListAttachments(ctx context.Context, pageID string) ([]Attachment, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+attachmentColumns+` FROM attachments WHERE page_id=$1 ORDER BY created_at
	`, pageID)
	if err != nil {
		return nil, fmt.Errorf("list attachments: %w", err)
	}
	defer rows.Close()

	items := make([]Attachment, 0)
	for rows.Next() {
		a, err := scanAttachment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan attachment: %w", err)
		}
		items = append(items, a)
	}
	return items, rows.Err()
}

func (s *PostgresStore) DeleteAttachment(ctx context.Context, attachmentID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM attachments WHERE id=$1`, attachmentID)
	if err != nil {
		return fmt.Errorf("delete attachment: %w", err)
	}
	return nil
}
