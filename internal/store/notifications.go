package store

import (
	"context"
	"fmt"
)

const notificationColumns = `id, user_id, title, message, type, is_read, metadata, status, created_at`

func scanNotification(row rowScanner) (Notification, error) {
	var n Notification
	err := row.Scan(&n.ID, &n.UserID, &n.Title, &n.Message, &n.Type, &n.IsRead, &n.Metadata, &n.Status, &n.CreatedAt)
	return n, err
}

func insertNotification(ctx context.Context, tx DBTX, n Notification) error {
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO notifications (id, user_id, title, message, type, is_read, metadata, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, n.ID, n.UserID, n.Title, n.Message, n.Type, n.IsRead, n.Metadata, n.Status); err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

func (s *PostgresStore) CreateNotification(ctx context.Context, n Notification) error {
	return insertNotification(ctx, s.db, n)
}

func (s *PostgresStore) GetNotification(ctx context.Context, notificationID string) (Notification, error) {
	return scanNotification(s.db.QueryRowContext(ctx, `SELECT `+notificationColumns+` FROM notifications WHERE id=$1`, notificationID))
}

func (s *PostgresStore) ListNotifications(ctx context.Context, userID string, unreadOnly bool) ([]Notification, error) {
	query := `SELECT ` + notificationColumns + ` FROM notifications WHERE user_id=$1`
	if unreadOnly {
		query += ` AND NOT is_read`
	}
	query += ` ORDER BY created_at DESC`
	return s.listNotifications(ctx, query, userID)
}

// ListInvitations returns WORKSPACE_INVITE notifications of the user.
func (s *PostgresStore) ListInvitations(ctx context.Context, userID string, pendingOnly bool) ([]Notification, error) {
	query := `SELECT ` + notificationColumns + ` FROM notifications WHERE user_id=$1 AND type='WORKSPACE_INVITE'`
	if pendingOnly {
		query += ` AND status='PENDING'`
	}
	query += ` ORDER BY created_at DESC`
	return s.listNotifications(ctx, query, userID)
}

func (s *PostgresStore) listNotifications(ctx context.Context, query string, args ...any) ([]Notification, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	items := make([]Notification, 0)
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		items = append(items, n)
	}
	return items, rows.Err()
}

func (s *PostgresStore) CountUnreadNotifications(ctx context.Context, userID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM notifications WHERE user_id=$1 AND NOT is_read`, userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count unread notifications: %w", err)
	}
	return count, nil
}

func (s *PostgresStore) SetNotificationRead(ctx context.Context, notificationID string, read bool) error {
	_, err := s.db.ExecContext(ctx, `UPDATE notifications SET is_read=$2 WHERE id=$1`, notificationID, read)
	if err != nil {
		return fmt.Errorf("set notification read: %w", err)
	}
	return nil
}

func (s *PostgresStore) MarkAllNotificationsRead(ctx context.Context, userID string) (int64, error) {
	result, err := s.db.ExecContext(ctx, `UPDATE notifications SET is_read=TRUE WHERE user_id=$1 AND NOT is_read`, userID)
	if err != nil {
		return 0, fmt.Errorf("mark all notifications read: %w", err)
	}
	return result.RowsAffected()
}

func (s *PostgresStore) DeleteNotification(ctx context.Context, notificationID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM notifications WHERE id=$1`, notificationID)
	if err != nil {
		return fmt.Errorf("delete notification: %w", err)
	}
	return nil
}

// HasPendingInvitation reports whether userID already holds a PENDING
// invitation to workspaceID.
func (s *PostgresStore) HasPendingInvitation(ctx context.Context, userID, workspaceID string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM notifications
			WHERE user_id = $1
				AND type = 'WORKSPACE_INVITE'
				AND status = 'PENDING'
				AND (CASE WHEN metadata = '' THEN NULL ELSE metadata::jsonb->>'workspaceId' END) = $2
		)
	`, userID, workspaceID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check pending invitation: %w", err)
	}
	return exists, nil
}

// ResolveInvitation moves a PENDING invitation to status and marks it read.
// When member is set the membership is written in the same transaction;
// followUp, when set, is delivered to the inviter. ErrStateChanged means
// the invitation was no longer PENDING; ErrMissingReference means the
// workspace or a recipient was deleted underneath it.
func (s *PostgresStore) ResolveInvitation(ctx context.Context, notificationID, status string, member *WorkspaceMember, followUp *Notification) error {
	return WithTx(ctx, s.db, nil, func(ctx context.Context, tx DBTX) error {
		result, err := tx.ExecContext(ctx, `
			UPDATE notifications SET status=$2, is_read=TRUE WHERE id=$1 AND status='PENDING'
		`, notificationID, status)
		if err != nil {
			return fmt.Errorf("resolve invitation: %w", err)
		}
		if err := requireAffected(result); err != nil {
			return err
		}
		if member != nil {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO workspace_members (workspace_id, user_id, role)
				VALUES ($1, $2, $3)
				ON CONFLICT (workspace_id, user_id) DO NOTHING
			`, member.WorkspaceID, member.UserID, member.Role); err != nil {
				return fmt.Errorf("insert member: %w", translateWriteError(err))
			}
		}
		if followUp != nil {
			if err := insertNotification(ctx, tx, *followUp); err != nil {
				return translateWriteError(err)
			}
		}
		return nil
	})
}
