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

const defaultTagColor = "#6b7280"

type TagInput struct {
	Name  *string
	Color *string
}

func (s *Service) CreateTag(ctx context.Context, actorID string, input TagInput) (store.Tag, error) {
	name := ""
	if input.Name != nil {
		name = strings.TrimSpace(*input.Name)
	}
	if name == "" {
		return store.Tag{}, badRequest("VALIDATION_ERROR", "name is required")
	}
	tag := store.Tag{ID: util.NewUUID(), UserID: actorID, Name: name, Color: defaultTagColor}
	if input.Color != nil && strings.TrimSpace(*input.Color) != "" {
		tag.Color = strings.TrimSpace(*input.Color)
	}
	if err := s.store.CreateTag(ctx, tag); err != nil {
		return store.Tag{}, tagConflict(err)
	}
	return s.store.GetTag(ctx, tag.ID)
}

func (s *Service) ListTags(ctx context.Context, actorID string) ([]store.Tag, error) {
	return s.store.ListTags(ctx, actorID)
}

func (s *Service) UpdateTag(ctx context.Context, actorID, tagID string, input TagInput) (store.Tag, error) {
	tag, err := s.ownTag(ctx, actorID, tagID)
	if err != nil {
		return store.Tag{}, err
	}
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return store.Tag{}, badRequest("VALIDATION_ERROR", "name cannot be empty")
		}
		tag.Name = name
	}
	if input.Color != nil {
		tag.Color = strings.TrimSpace(*input.Color)
	}
	if err := s.store.UpdateTag(ctx, tag); err != nil {
		return store.Tag{}, tagConflict(err)
	}
	return tag, nil
}

func (s *Service) DeleteTag(ctx context.Context, actorID, tagID string) error {
	if _, err := s.ownTag(ctx, actorID, tagID); err != nil {
		return err
	}
	return s.store.DeleteTag(ctx, tagID)
}

// TagPage attaches one of the caller's tags to a page the caller can edit.
// Tagging twice is a no-op.
func (s *Service) TagPage(ctx context.Context, actorID, pageID, tagID string) error {
	if _, err := s.pageAccess(ctx, pageID, actorID, rbac.AccessEdit); err != nil {
		return err
	}
	if _, err := s.ownTag(ctx, actorID, tagID); err != nil {
		return err
	}
	return s.store.AddPageTag(ctx, pageID, tagID)
}

func (s *Service) UntagPage(ctx context.Context, actorID, pageID, tagID string) error {
	if _, err := s.pageAccess(ctx, pageID, actorID, rbac.AccessEdit); err != nil {
		return err
	}
	if _, err := s.ownTag(ctx, actorID, tagID); err != nil {
		return err
	}
	return s.store.RemovePageTag(ctx, pageID, tagID)
}

func (s *Service) ListPageTags(ctx context.Context, actorID, pageID string) ([]store.Tag, error) {
	if _, err := s.pageAccess(ctx, pageID, actorID, rbac.AccessRead); err != nil {
		return nil, err
	}
	return s.store.ListPageTags(ctx, pageID)
}

func (s *Service) ListTaggedPages(ctx context.Context, actorID, tagID string) ([]store.Page, error) {
	if _, err := s.ownTag(ctx, actorID, tagID); err != nil {
		return nil, err
	}
	return s.store.ListPagesForTag(ctx, tagID, actorID)
}

func (s *Service) ownTag(ctx context.Context, actorID, tagID string) (store.Tag, error) {
	tag, err := s.store.GetTag(ctx, tagID)
	if err != nil {
		return store.Tag{}, missing(err, "tag not found")
	}
	if tag.UserID != actorID {
		return store.Tag{}, notFound("tag not found")
	}
	return tag, nil
}

func tagConflict(err error) error {
	if errors.Is(err, store.ErrDuplicate) {
		return domainError(http.StatusConflict, "TAG_EXISTS", "a tag with this name already exists", nil)
	}
	return err
}
