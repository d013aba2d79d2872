package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"notespace/api/internal/access"
	"notespace/api/internal/obs"
	"notespace/api/internal/rbac"
	"notespace/api/internal/store"
	"notespace/api/internal/util"
)

type ShareInput struct {
	PageID     string
	Email      string
	Permission string
}

// SharePage grants the user registered under input.Email access to a page.
// The share and the recipient's notification are stored together; the
// email is best effort.
func (s *Service) SharePage(ctx context.Context, actor Session, input ShareInput) (store.PageShare, error) {
	if strings.TrimSpace(input.PageID) == "" || strings.TrimSpace(input.Email) == "" {
		return store.PageShare{}, badRequest("VALIDATION_ERROR", "pageId and email are required")
	}
	page, err := s.pageAccess(ctx, input.PageID, actor.UserID, rbac.AccessEdit)
	if err != nil {
		return store.PageShare{}, err
	}
	recipient, err := s.store.GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(input.Email)))
	if err != nil {
		return store.PageShare{}, missing(err, "user not found")
	}
	if recipient.ID == actor.UserID {
		return store.PageShare{}, badRequest("SELF_SHARE", "cannot share with yourself")
	}
	if _, err := s.store.GetPageShare(ctx, page.ID, recipient.ID); err == nil {
		return store.PageShare{}, alreadyShared()
	} else if !errors.Is(err, sql.ErrNoRows) {
		return store.PageShare{}, err
	}
	permission, err := rbac.ParseSharePermission(input.Permission)
	if err != nil {
		return store.PageShare{}, err
	}

	share := store.PageShare{
		ID:         util.NewUUID(),
		PageID:     page.ID,
		SharedBy:   actor.UserID,
		SharedWith: recipient.ID,
		Permission: string(permission),
	}
	notification := store.Notification{
		ID:      util.NewUUID(),
		UserID:  recipient.ID,
		Title:   "Page shared with you",
		Message: fmt.Sprintf("%s shared \"%s\" with you (%s)", actor.UserName, page.Title, permission),
		Type:    NotificationPageShared,
	}
	if err := s.store.CreateShareWithNotification(ctx, share, notification); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return store.PageShare{}, alreadyShared()
		}
		return store.PageShare{}, err
	}
	obs.RecordEvent("page_shared")
	s.reindexPage(ctx, page.ID)

	if s.emailEnabled() {
		s.background("email_page_shared", func() error {
			return s.mail.SendPageSharedEmail(recipient.Email, actor.UserName, page.Title, string(permission), page.ID)
		})
	}
	return s.store.GetShare(ctx, share.ID)
}

// UpdateSharePermission is allowed to the page creator and the original
// sharer. The recipient is notified.
func (s *Service) UpdateSharePermission(ctx context.Context, actor Session, shareID, permissionValue string) (store.PageShare, error) {
	permission, err := rbac.ParseSharePermission(permissionValue)
	if err != nil {
		return store.PageShare{}, err
	}
	share, page, err := s.loadShare(ctx, shareID)
	if err != nil {
		return store.PageShare{}, err
	}
	if actor.UserID != page.CreatedBy && actor.UserID != share.SharedBy {
		return store.PageShare{}, access.ErrInsufficientPermission
	}
	if err := s.store.UpdateSharePermission(ctx, shareID, string(permission)); err != nil {
		return store.PageShare{}, err
	}
	if err := s.store.CreateNotification(ctx, store.Notification{
		ID:      util.NewUUID(),
		UserID:  share.SharedWith,
		Title:   "Share updated",
		Message: fmt.Sprintf("%s changed your access to \"%s\" to %s", actor.UserName, page.Title, permission),
		Type:    NotificationShareUpdated,
	}); err != nil {
		return store.PageShare{}, err
	}
	return s.store.GetShare(ctx, shareID)
}

// RemoveShare is allowed to the page creator, the sharer and the recipient.
func (s *Service) RemoveShare(ctx context.Context, actorID, shareID string) error {
	share, page, err := s.loadShare(ctx, shareID)
	if err != nil {
		return err
	}
	if actorID != page.CreatedBy && actorID != share.SharedBy && actorID != share.SharedWith {
		return access.ErrInsufficientPermission
	}
	if err := s.store.DeleteShare(ctx, shareID); err != nil {
		return err
	}
	s.reindexPage(ctx, page.ID)
	return nil
}

func (s *Service) ListPageShares(ctx context.Context, actorID, pageID string) ([]store.ShareDetail, error) {
	if _, err := s.pageAccess(ctx, pageID, actorID, rbac.AccessEdit); err != nil {
		return nil, err
	}
	return s.store.ListSharesForPage(ctx, pageID)
}

func (s *Service) ListReceivedShares(ctx context.Context, actorID string) ([]store.ShareDetail, error) {
	return s.store.ListSharesReceived(ctx, actorID)
}

func (s *Service) loadShare(ctx context.Context, shareID string) (store.PageShare, store.Page, error) {
	share, err := s.store.GetShare(ctx, shareID)
	if err != nil {
		return store.PageShare{}, store.Page{}, missing(err, "share not found")
	}
	page, err := s.store.GetPage(ctx, share.PageID)
	if err != nil {
		return store.PageShare{}, store.Page{}, missing(err, "page not found")
	}
	return share, page, nil
}

func alreadyShared() error {
	return badRequest("ALREADY_SHARED", "already shared")
}
