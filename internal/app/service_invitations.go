package app

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"notespace/api/internal/obs"
	"notespace/api/internal/rbac"
	"notespace/api/internal/store"
	"notespace/api/internal/util"
)

const (
	InvitationPending  = "PENDING"
	InvitationAccepted = "ACCEPTED"
	InvitationDeclined = "DECLINED"
)

// invitationMetadata is stored as the metadata of a WORKSPACE_INVITE
// notification.
type invitationMetadata struct {
	WorkspaceID   string `json:"workspaceId"`
	WorkspaceName string `json:"workspaceName"`
	Role          string `json:"role"`
	InviterID     string `json:"inviterId"`
	InviterName   string `json:"inviterName"`
}

type InviteInput struct {
	WorkspaceID string
	Email       string
	Role        string
}

// Invite offers membership of a workspace to the user registered under
// input.Email. Only the owner can invite.
func (s *Service) Invite(ctx context.Context, actorID string, input InviteInput) (store.Notification, error) {
	if strings.TrimSpace(input.WorkspaceID) == "" || strings.TrimSpace(input.Email) == "" {
		return store.Notification{}, badRequest("VALIDATION_ERROR", "workspaceId and email are required")
	}
	if _, err := s.workspaceAccess(ctx, input.WorkspaceID, actorID, rbac.RoleOwner); err != nil {
		return store.Notification{}, err
	}
	role, err := rbac.ParseRole(input.Role)
	if err != nil {
		return store.Notification{}, err
	}
	if !rbac.InvitableRole(role) {
		return store.Notification{}, badRequest("INVALID_ROLE", "role must be EDITOR or VIEWER")
	}

	invitee, err := s.store.GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(input.Email)))
	if err != nil {
		return store.Notification{}, missing(err, "user not found")
	}
	if _, err := s.store.GetWorkspaceMember(ctx, input.WorkspaceID, invitee.ID); err == nil {
		return store.Notification{}, badRequest("ALREADY_MEMBER", "user is already a member")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return store.Notification{}, err
	}
	pending, err := s.store.HasPendingInvitation(ctx, invitee.ID, input.WorkspaceID)
	if err != nil {
		return store.Notification{}, err
	}
	if pending {
		return store.Notification{}, badRequest("INVITATION_PENDING", "invitation already pending")
	}

	ws, err := s.store.GetWorkspace(ctx, input.WorkspaceID)
	if err != nil {
		return store.Notification{}, err
	}
	inviter, err := s.store.GetUserByID(ctx, actorID)
	if err != nil {
		return store.Notification{}, err
	}
	metadata, err := json.Marshal(invitationMetadata{
		WorkspaceID:   ws.ID,
		WorkspaceName: ws.Name,
		Role:          string(role),
		InviterID:     inviter.ID,
		InviterName:   inviter.DisplayName,
	})
	if err != nil {
		return store.Notification{}, err
	}
	invitation := store.Notification{
		ID:       util.NewUUID(),
		UserID:   invitee.ID,
		Title:    "Workspace invitation",
		Message:  fmt.Sprintf("%s invited you to join %s as %s", inviter.DisplayName, ws.Name, role),
		Type:     NotificationWorkspaceInvite,
		Metadata: string(metadata),
		Status:   InvitationPending,
	}
	if err := s.store.CreateNotification(ctx, invitation); err != nil {
		return store.Notification{}, err
	}
	obs.RecordEvent("invitation_sent")

	if s.emailEnabled() {
		s.background("email_invitation", func() error {
			return s.mail.SendInvitationEmail(invitee.Email, inviter.DisplayName, ws.Name, string(role))
		})
	}
	return s.store.GetNotification(ctx, invitation.ID)
}

func (s *Service) ListInvitations(ctx context.Context, actorID string, pendingOnly bool) ([]store.Notification, error) {
	return s.store.ListInvitations(ctx, actorID, pendingOnly)
}

// AcceptInvitation joins the workspace with the offered role.
func (s *Service) AcceptInvitation(ctx context.Context, actorID, notificationID string) error {
	return s.resolveInvitation(ctx, actorID, notificationID, InvitationAccepted)
}

func (s *Service) DeclineInvitation(ctx context.Context, actorID, notificationID string) error {
	return s.resolveInvitation(ctx, actorID, notificationID, InvitationDeclined)
}

func (s *Service) resolveInvitation(ctx context.Context, actorID, notificationID, outcome string) error {
	invitation, err := s.store.GetNotification(ctx, notificationID)
	if err != nil {
		return missing(err, "invitation not found")
	}
	if invitation.UserID != actorID || invitation.Type != NotificationWorkspaceInvite {
		return notFound("invitation not found")
	}
	if invitation.Status != InvitationPending {
		return invitationResolved(invitation.Status)
	}

	var meta invitationMetadata
	if err := json.Unmarshal([]byte(invitation.Metadata), &meta); err != nil || meta.WorkspaceID == "" {
		return badRequest("INVALID_INVITATION", "invitation metadata is invalid")
	}
	if _, err := s.store.GetWorkspace(ctx, meta.WorkspaceID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return s.closeStaleInvitation(ctx, notificationID, outcome)
		}
		return err
	}
	invitee, err := s.store.GetUserByID(ctx, actorID)
	if err != nil {
		return err
	}

	var (
		member   *store.WorkspaceMember
		followUp = store.Notification{ID: util.NewUUID(), UserID: meta.InviterID}
	)
	if outcome == InvitationAccepted {
		role, err := rbac.ParseRole(meta.Role)
		if err != nil || !rbac.InvitableRole(role) {
			return badRequest("INVALID_INVITATION", "invitation metadata is invalid")
		}
		member = &store.WorkspaceMember{WorkspaceID: meta.WorkspaceID, UserID: actorID, Role: string(role)}
		followUp.Title = "Invitation accepted"
		followUp.Message = fmt.Sprintf("%s joined %s", invitee.DisplayName, meta.WorkspaceName)
		followUp.Type = NotificationInviteAccepted
	} else {
		followUp.Title = "Invitation declined"
		followUp.Message = fmt.Sprintf("%s declined the invitation to %s", invitee.DisplayName, meta.WorkspaceName)
		followUp.Type = NotificationInviteDeclined
	}

	var notifyInviter *store.Notification
	if meta.InviterID != "" {
		switch _, err := s.store.GetUserByID(ctx, meta.InviterID); {
		case err == nil:
			notifyInviter = &followUp
		case !errors.Is(err, sql.ErrNoRows):
			return err
		}
	}
	err = s.store.ResolveInvitation(ctx, notificationID, outcome, member, notifyInviter)
	if errors.Is(err, store.ErrMissingReference) {
		// workspace or inviter deleted since the checks above
		if _, wsErr := s.store.GetWorkspace(ctx, meta.WorkspaceID); errors.Is(wsErr, sql.ErrNoRows) {
			return s.closeStaleInvitation(ctx, notificationID, outcome)
		}
		err = s.store.ResolveInvitation(ctx, notificationID, outcome, member, nil)
	}
	if err != nil {
		if errors.Is(err, store.ErrStateChanged) {
			return s.invitationStatus(ctx, notificationID)
		}
		return err
	}
	obs.RecordEvent("invitation_" + strings.ToLower(outcome))
	return nil
}

// closeStaleInvitation retires an invitation whose workspace is gone.
// Declining it still succeeds; accepting it reports INVITATION_STALE.
func (s *Service) closeStaleInvitation(ctx context.Context, notificationID, outcome string) error {
	if err := s.store.ResolveInvitation(ctx, notificationID, InvitationDeclined, nil, nil); err != nil {
		if errors.Is(err, store.ErrStateChanged) {
			return s.invitationStatus(ctx, notificationID)
		}
		return err
	}
	obs.RecordEvent("invitation_stale")
	if outcome == InvitationAccepted {
		return badRequest("INVITATION_STALE", "workspace no longer exists")
	}
	return nil
}

func (s *Service) invitationStatus(ctx context.Context, notificationID string) error {
	current, err := s.store.GetNotification(ctx, notificationID)
	if err != nil {
		return err
	}
	return invitationResolved(current.Status)
}

func invitationResolved(status string) error {
	return badRequest("INVITATION_RESOLVED", "invitation already "+strings.ToLower(status))
}
