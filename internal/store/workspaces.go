package store

import (
	"context"
	"fmt"
)

const workspaceColumns = `w.id, w.owner_id, w.name, w.description, w.icon, w.is_default, w.created_at, w.updated_at`

func scanWorkspace(row rowScanner, extra ...any) (Workspace, error) {
	var ws Workspace
	dest := []any{&ws.ID, &ws.OwnerID, &ws.Name, &ws.Description, &ws.Icon, &ws.IsDefault, &ws.CreatedAt, &ws.UpdatedAt}
	err := row.Scan(append(dest, extra...)...)
	return ws, err
}

func insertWorkspaceWithOwner(ctx context.Context, tx DBTX, ws Workspace) error {
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO workspaces (id, owner_id, name, description, icon, is_default)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, ws.ID, ws.OwnerID, ws.Name, ws.Description, ws.Icon, ws.IsDefault); err != nil {
		return fmt.Errorf("insert workspace: %w", translateWriteError(err))
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO workspace_members (workspace_id, user_id, role)
		VALUES ($1, $2, 'OWNER')
	`, ws.ID, ws.OwnerID); err != nil {
		return fmt.Errorf("insert owner membership: %w", translateWriteError(err))
	}
	return nil
}

// CreateWorkspace writes the workspace and its OWNER membership atomically.
func (s *PostgresStore) CreateWorkspace(ctx context.Context, ws Workspace) error {
	return WithTx(ctx, s.db, nil, func(ctx context.Context, tx DBTX) error {
		return insertWorkspaceWithOwner(ctx, tx, ws)
	})
}

func (s *PostgresStore) GetWorkspace(ctx context.Context, workspaceID string) (Workspace, error) {
	return scanWorkspace(s.db.QueryRowContext(ctx, `SELECT `+workspaceColumns+` FROM workspaces w WHERE w.id=$1`, workspaceID))
}

func (s *PostgresStore) ListWorkspacesForUser(ctx context.Context, userID string) ([]WorkspaceWithRole, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+workspaceColumns+`, wm.role,
			(SELECT count(*) FROM workspace_members m WHERE m.workspace_id = w.id),
			(SELECT count(*) FROM pages p WHERE p.workspace_id = w.id)
		FROM workspaces w
		JOIN workspace_members wm ON wm.workspace_id = w.id
		WHERE wm.user_id = $1
		ORDER BY w.is_default DESC, w.name ASC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list workspaces: %w", err)
	}
	defer rows.Close()

	items := make([]WorkspaceWithRole, 0)
	for rows.Next() {
		var item WorkspaceWithRole
		ws, err := scanWorkspace(rows, &item.Role, &item.MemberCount, &item.PageCount)
		if err != nil {
			return nil, fmt.Errorf("scan workspace: %w", err)
		}
		item.Workspace = ws
		items = append(items, item)
	}
	return items, rows.Err()
}

func (s *PostgresStore) UpdateWorkspace(ctx context.Context, ws Workspace) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE workspaces SET name=$2, description=$3, icon=$4, updated_at=NOW() WHERE id=$1
	`, ws.ID, ws.Name, ws.Description, ws.Icon)
	if err != nil {
		return fmt.Errorf("update workspace: %w", translateWriteError(err))
	}
	return nil
}

// DeleteWorkspace removes the workspace and closes any invitation to it
// that is still PENDING, so invitees are not left holding a dead offer.
func (s *PostgresStore) DeleteWorkspace(ctx context.Context, workspaceID string) error {
	return WithTx(ctx, s.db, nil, func(ctx context.Context, tx DBTX) error {
		if _, err := tx.ExecContext(ctx, `
			UPDATE notifications SET status='DECLINED', is_read=TRUE
			WHERE type = 'WORKSPACE_INVITE'
				AND status = 'PENDING'
				AND (CASE WHEN metadata = '' THEN NULL ELSE metadata::jsonb->>'workspaceId' END) = $1
		`, workspaceID); err != nil {
			return fmt.Errorf("close invitations: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM workspaces WHERE id=$1`, workspaceID); err != nil {
			return fmt.Errorf("delete workspace: %w", err)
		}
		return nil
	})
}

func (s *PostgresStore) GetWorkspaceMember(ctx context.Context, workspaceID, userID string) (WorkspaceMember, error) {
	var member WorkspaceMember
	err := s.db.QueryRowContext(ctx, `
		SELECT workspace_id, user_id, role, joined_at
		FROM workspace_members
		WHERE workspace_id=$1 AND user_id=$2
	`, workspaceID, userID).Scan(&member.WorkspaceID, &member.UserID, &member.Role, &member.JoinedAt)
	return member, err
}

func (s *PostgresStore) ListWorkspaceMembers(ctx context.Context, workspaceID string) ([]MemberDetail, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT wm.workspace_id, wm.user_id, wm.role, wm.joined_at, u.username, u.email, u.display_name
		FROM workspace_members wm
		JOIN users u ON u.id = wm.user_id
		WHERE wm.workspace_id = $1
		ORDER BY CASE wm.role WHEN 'OWNER' THEN 0 WHEN 'EDITOR' THEN 1 ELSE 2 END, u.display_name
	`, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	defer rows.Close()

	items := make([]MemberDetail, 0)
	for rows.Next() {
		var m MemberDetail
		if err := rows.Scan(&m.WorkspaceID, &m.UserID, &m.Role, &m.JoinedAt, &m.Username, &m.Email, &m.DisplayName); err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		items = append(items, m)
	}
	return items, rows.Err()
}

func (s *PostgresStore) UpdateMemberRole(ctx context.Context, workspaceID, userID, role string) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE workspace_members SET role=$3 WHERE workspace_id=$1 AND user_id=$2 AND role <> 'OWNER'
	`, workspaceID, userID, role)
	if err != nil {
		return fmt.Errorf("update member role: %w", err)
	}
	return requireAffected(result)
}

func (s *PostgresStore) RemoveWorkspaceMember(ctx context.Context, workspaceID, userID string) error {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM workspace_members WHERE workspace_id=$1 AND user_id=$2 AND role <> 'OWNER'
	`, workspaceID, userID)
	if err != nil {
		return fmt.Errorf("remove member: %w", err)
	}
	return requireAffected(result)
}
