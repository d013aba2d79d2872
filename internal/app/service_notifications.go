package app

import (
	"context"

	"notespace/api/internal/store"
)

const (
	NotificationGeneral         = "GENERAL"
	NotificationPageShared      = "PAGE_SHARED"
	NotificationShareUpdated    = "SHARE_UPDATED"
	NotificationWorkspaceInvite = "WORKSPACE_INVITE"
	NotificationInviteAccepted  = "INVITE_ACCEPTED"
	NotificationInviteDeclined  = "INVITE_DECLINED"
	NotificationMemberRemoved   = "MEMBER_REMOVED"
	NotificationSystem          = "SYSTEM"
)

func (s *Service) ListNotifications(ctx context.Context, actorID string, unreadOnly bool) ([]store.Notification, error) {
	return s.store.ListNotifications(ctx, actorID, unreadOnly)
}

func (s *Service) UnreadCount(ctx context.Context, actorID string) (int, error) {
	return s.store.CountUnreadNotifications(ctx, actorID)
}

func (s *Service) MarkNotification(ctx context.Context, actorID, notificationID string, read bool) error {
	if _, err := s.ownNotification(ctx, actorID, notificationID); err != nil {
		return err
	}
	return s.store.SetNotificationRead(ctx, notificationID, read)
}

func (s *Service) MarkAllNotificationsRead(ctx context.Context, actorID string) (int64, error) {
	return s.store.MarkAllNotificationsRead(ctx, actorID)
}

func (s *Service) DeleteNotification(ctx context.Context, actorID, notificationID string) error {
	if _, err := s.ownNotification(ctx, actorID, notificationID); err != nil {
		return err
	}
	return s.store.DeleteNotification(ctx, notificationID)
}

// ownNotification hides notifications of other users behind NotFound.
func (s *Service) ownNotification(ctx context.Context, actorID, notificationID string) (store.Notification, error) {
	n, err := s.store.GetNotification(ctx, notificationID)
	if err != nil {
		return store.Notification{}, missing(err, "notification not found")
	}
	if n.UserID != actorID {
		return store.Notification{}, notFound("notification not found")
	}
	return n, nil
}
