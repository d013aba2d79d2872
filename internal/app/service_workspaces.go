package app

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"notespace/api/internal/rbac"
	"notespace/api/internal/store"
	"notespace/api/internal/util"
)

type WorkspaceInput struct {
	Name        *string
	Description *string
	Icon        *string
}

func (s *Service) CreateWorkspace(ctx context.Context, actorID string, input WorkspaceInput) (store.WorkspaceWithRole, error) {
	name := ""
	if input.Name != nil {
		name = strings.TrimSpace(*input.Name)
	}
	if name == "" {
		return store.WorkspaceWithRole{}, badRequest("VALIDATION_ERROR", "name is required")
	}
	ws := store.Workspace{
		ID:      util.NewUUID(),
		OwnerID: actorID,
		Name:    name,
	}
	if input.Description != nil {
		ws.Description = strings.TrimSpace(*input.Description)
	}
	if input.Icon != nil {
		ws.Icon = strings.TrimSpace(*input.Icon)
	}
	if err := s.store.CreateWorkspace(ctx, ws); err != nil {
		return store.WorkspaceWithRole{}, workspaceNameConflict(err)
	}
	created, err := s.store.GetWorkspace(ctx, ws.ID)
	if err != nil {
		return store.WorkspaceWithRole{}, err
	}
	return store.WorkspaceWithRole{Workspace: created, Role: string(rbac.RoleOwner), MemberCount: 1}, nil
}

func (s *Service) ListWorkspaces(ctx context.Context, actorID string) ([]store.WorkspaceWithRole, error) {
	return s.store.ListWorkspacesForUser(ctx, actorID)
}

func (s *Service) GetWorkspace(ctx context.Context, actorID, workspaceID string) (store.WorkspaceWithRole, error) {
	member, err := s.workspaceAccess(ctx, workspaceID, actorID, rbac.RoleViewer)
	if err != nil {
		return store.WorkspaceWithRole{}, err
	}
	workspaces, err := s.store.ListWorkspacesForUser(ctx, actorID)
	if err != nil {
		return store.WorkspaceWithRole{}, err
	}
	for _, ws := range workspaces {
		if ws.ID == workspaceID {
			return ws, nil
		}
	}
	ws, err := s.store.GetWorkspace(ctx, workspaceID)
	if err != nil {
		return store.WorkspaceWithRole{}, missing(err, "workspace not found")
	}
	return store.WorkspaceWithRole{Workspace: ws, Role: member.Role}, nil
}

func (s *Service) UpdateWorkspace(ctx context.Context, actorID, workspaceID string, input WorkspaceInput) (store.WorkspaceWithRole, error) {
	if _, err := s.workspaceAccess(ctx, workspaceID, actorID, rbac.RoleEditor); err != nil {
		return store.WorkspaceWithRole{}, err
	}
	ws, err := s.store.GetWorkspace(ctx, workspaceID)
	if err != nil {
		return store.WorkspaceWithRole{}, missing(err, "workspace not found")
	}
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return store.WorkspaceWithRole{}, badRequest("VALIDATION_ERROR", "name cannot be empty")
		}
		ws.Name = name
	}
	if input.Description != nil {
		ws.Description = strings.TrimSpace(*input.Description)
	}
	if input.Icon != nil {
		ws.Icon = strings.TrimSpace(*input.Icon)
	}
	if err := s.store.UpdateWorkspace(ctx, ws); err != nil {
		return store.WorkspaceWithRole{}, workspaceNameConflict(err)
	}
	return s.GetWorkspace(ctx, actorID, workspaceID)
}

func (s *Service) DeleteWorkspace(ctx context.Context, actorID, workspaceID string) error {
	if _, err := s.workspaceAccess(ctx, workspaceID, actorID, rbac.RoleOwner); err != nil {
		return err
	}
	ws, err := s.store.GetWorkspace(ctx, workspaceID)
	if err != nil {
		return missing(err, "workspace not found")
	}
	if ws.IsDefault {
		return badRequest("DEFAULT_WORKSPACE", "the default workspace cannot be deleted")
	}
	pages, err := s.store.ListPagesByWorkspace(ctx, workspaceID, store.PageFilter{})
	if err != nil {
		return err
	}
	if err := s.store.DeleteWorkspace(ctx, workspaceID); err != nil {
		return err
	}
	ids := make([]string, 0, len(pages))
	for _, page := range pages {
		ids = append(ids, page.ID)
	}
	s.forgetPages(ids)
	return nil
}

func (s *Service) ListMembers(ctx context.Context, actorID, workspaceID string) ([]store.MemberDetail, error) {
	if _, err := s.workspaceAccess(ctx, workspaceID, actorID, rbac.RoleViewer); err != nil {
		return nil, err
	}
	return s.store.ListWorkspaceMembers(ctx, workspaceID)
}

func (s *Service) UpdateMemberRole(ctx context.Context, actorID, workspaceID, userID, roleValue string) error {
	if _, err := s.workspaceAccess(ctx, workspaceID, actorID, rbac.RoleOwner); err != nil {
		return err
	}
	role, err := rbac.ParseRole(roleValue)
	if err != nil {
		return err
	}
	if !rbac.InvitableRole(role) {
		return badRequest("INVALID_ROLE", "role must be EDITOR or VIEWER")
	}
	target, err := s.store.GetWorkspaceMember(ctx, workspaceID, userID)
	if err != nil {
		return missing(err, "member not found")
	}
	if rbac.Role(target.Role) == rbac.RoleOwner {
		return badRequest("OWNER_ROLE", "the owner's role cannot be changed")
	}
	if err := s.store.UpdateMemberRole(ctx, workspaceID, userID, string(role)); err != nil {
		if errors.Is(err, store.ErrStateChanged) {
			return badRequest("OWNER_ROLE", "the owner's role cannot be changed")
		}
		return err
	}
	return nil
}

// RemoveMember removes userID from the workspace. Owners may remove any
// non-owner; every other member may only leave.
func (s *Service) RemoveMember(ctx context.Context, actorID, workspaceID, userID string) error {
	selfLeave := actorID == userID
	required := rbac.RoleOwner
	if selfLeave {
		required = rbac.RoleViewer
	}
	if _, err := s.workspaceAccess(ctx, workspaceID, actorID, required); err != nil {
		return err
	}
	target, err := s.store.GetWorkspaceMember(ctx, workspaceID, userID)
	if err != nil {
		return missing(err, "member not found")
	}
	if rbac.Role(target.Role) == rbac.RoleOwner {
		return badRequest("OWNER_MEMBERSHIP", "the workspace owner cannot be removed")
	}
	if err := s.store.RemoveWorkspaceMember(ctx, workspaceID, userID); err != nil {
		if errors.Is(err, store.ErrStateChanged) {
			return badRequest("OWNER_MEMBERSHIP", "the workspace owner cannot be removed")
		}
		return err
	}
	if selfLeave {
		return nil
	}

	ws, err := s.store.GetWorkspace(ctx, workspaceID)
	if err != nil {
		return err
	}
	return s.store.CreateNotification(ctx, store.Notification{
		ID:      util.NewUUID(),
		UserID:  userID,
		Title:   "Removed from workspace",
		Message: "You were removed from " + ws.Name,
		Type:    NotificationMemberRemoved,
	})
}

func (s *Service) workspaceAccess(ctx context.Context, workspaceID, actorID string, required rbac.Role) (store.WorkspaceMember, error) {
	if _, err := s.store.GetWorkspace(ctx, workspaceID); err != nil {
		return store.WorkspaceMember{}, missing(err, "workspace not found")
	}
	return s.access.CheckWorkspaceAccess(ctx, workspaceID, actorID, required)
}

func workspaceNameConflict(err error) error {
	if errors.Is(err, store.ErrDuplicate) {
		return domainError(http.StatusConflict, "WORKSPACE_EXISTS", "a workspace with this name already exists", nil)
	}
	return err
}
