package app

import (
	"context"
	"errors"
	"strings"

	"notespace/api/internal/access"
	"notespace/api/internal/export"
	"notespace/api/internal/history"
	"notespace/api/internal/obs"
	"notespace/api/internal/rbac"
	"notespace/api/internal/search"
	"notespace/api/internal/store"
	"notespace/api/internal/util"
)

const (
	untitledPage       = "Untitled"
	defaultHistorySize = 50
)

type PageInput struct {
	WorkspaceID string
	Title       *string
	Content     *string
	Icon        *string
	CoverImage  *string
}

// RevisionView is one stored revision of a page with its content.
type RevisionView struct {
	Revision history.Revision
	Content  history.Content
}

type SearchInput struct {
	Text        string
	WorkspaceID string
	Limit       int
	Offset      int
}

// CreatePage creates a page in input.WorkspaceID, or in the caller's
// default workspace when none is given.
func (s *Service) CreatePage(ctx context.Context, actor Session, input PageInput) (store.Page, error) {
	workspaceID := strings.TrimSpace(input.WorkspaceID)
	if workspaceID == "" {
		inbox, err := s.defaultWorkspace(ctx, actor.UserID)
		if err != nil {
			return store.Page{}, err
		}
		workspaceID = inbox
	}
	if _, err := s.workspaceAccess(ctx, workspaceID, actor.UserID, rbac.RoleEditor); err != nil {
		return store.Page{}, err
	}

	page := store.Page{
		ID:          util.NewUUID(),
		WorkspaceID: workspaceID,
		CreatedBy:   actor.UserID,
		Title:       untitledPage,
	}
	applyPageInput(&page, input)
	if err := s.store.CreatePage(ctx, page); err != nil {
		return store.Page{}, err
	}
	created, err := s.store.GetPage(ctx, page.ID)
	if err != nil {
		return store.Page{}, err
	}
	s.recordRevision(created, actor, "Create page")
	s.indexPage(ctx, created)
	obs.RecordEvent("page_created")
	return created, nil
}

// ListPages lists a workspace's pages, defaulting to the caller's default
// workspace.
func (s *Service) ListPages(ctx context.Context, actorID, workspaceID string, filter store.PageFilter) ([]store.Page, error) {
	if strings.TrimSpace(workspaceID) == "" {
		id, err := s.defaultWorkspace(ctx, actorID)
		if err != nil {
			return nil, err
		}
		workspaceID = id
	}
	if _, err := s.workspaceAccess(ctx, workspaceID, actorID, rbac.RoleViewer); err != nil {
		return nil, err
	}
	return s.store.ListPagesByWorkspace(ctx, workspaceID, filter)
}

func (s *Service) ListSharedPages(ctx context.Context, actorID string) ([]store.Page, error) {
	return s.store.ListSharedPages(ctx, actorID)
}

func (s *Service) ListFavoritePages(ctx context.Context, actorID string) ([]store.Page, error) {
	return s.store.ListFavoritePages(ctx, actorID)
}

func (s *Service) GetPage(ctx context.Context, actorID, pageID string) (store.Page, error) {
	return s.pageAccess(ctx, pageID, actorID, rbac.AccessRead)
}

func (s *Service) UpdatePage(ctx context.Context, actor Session, pageID string, input PageInput) (store.Page, error) {
	page, err := s.pageAccess(ctx, pageID, actor.UserID, rbac.AccessEdit)
	if err != nil {
		return store.Page{}, err
	}
	applyPageInput(&page, input)
	if err := s.store.UpdatePage(ctx, page); err != nil {
		return store.Page{}, err
	}
	updated, err := s.store.GetPage(ctx, pageID)
	if err != nil {
		return store.Page{}, err
	}
	s.recordRevision(updated, actor, "Update page")
	s.indexPage(ctx, updated)
	return updated, nil
}

// DeletePage is reserved to the page creator.
func (s *Service) DeletePage(ctx context.Context, actorID, pageID string) error {
	page, err := s.pageAccess(ctx, pageID, actorID, rbac.AccessRead)
	if err != nil {
		return err
	}
	if page.CreatedBy != actorID {
		return access.ErrInsufficientPermission
	}
	attachments, err := s.store.ListAttachments(ctx, pageID)
	if err != nil {
		return err
	}
	if err := s.store.DeletePage(ctx, pageID); err != nil {
		return err
	}
	s.removeObjects(attachments)
	s.forgetPages([]string{pageID})
	return nil
}

// MovePage needs EDIT on the page and EDITOR rank in the target workspace.
func (s *Service) MovePage(ctx context.Context, actorID, pageID, workspaceID string) (store.Page, error) {
	if strings.TrimSpace(workspaceID) == "" {
		return store.Page{}, badRequest("VALIDATION_ERROR", "workspaceId is required")
	}
	if _, err := s.pageAccess(ctx, pageID, actorID, rbac.AccessEdit); err != nil {
		return store.Page{}, err
	}
	if _, err := s.workspaceAccess(ctx, workspaceID, actorID, rbac.RoleEditor); err != nil {
		return store.Page{}, err
	}
	if err := s.store.MovePage(ctx, pageID, workspaceID); err != nil {
		return store.Page{}, err
	}
	moved, err := s.store.GetPage(ctx, pageID)
	if err != nil {
		return store.Page{}, err
	}
	s.indexPage(ctx, moved)
	return moved, nil
}

// SetFavorite sets the favorite flag, or flips it when favorite is nil.
func (s *Service) SetFavorite(ctx context.Context, actorID, pageID string, favorite *bool) (store.Page, error) {
	page, err := s.pageAccess(ctx, pageID, actorID, rbac.AccessEdit)
	if err != nil {
		return store.Page{}, err
	}
	if err := s.store.SetPageFavorite(ctx, pageID, toggle(favorite, page.IsFavorite)); err != nil {
		return store.Page{}, err
	}
	return s.store.GetPage(ctx, pageID)
}

// SetArchived sets the archived flag, or flips it when archived is nil.
func (s *Service) SetArchived(ctx context.Context, actorID, pageID string, archived *bool) (store.Page, error) {
	page, err := s.pageAccess(ctx, pageID, actorID, rbac.AccessEdit)
	if err != nil {
		return store.Page{}, err
	}
	if err := s.store.SetPageArchived(ctx, pageID, toggle(archived, page.IsArchived)); err != nil {
		return store.Page{}, err
	}
	page, err = s.store.GetPage(ctx, pageID)
	if err != nil {
		return store.Page{}, err
	}
	s.indexPage(ctx, page)
	return page, nil
}

func (s *Service) PageHistory(ctx context.Context, actorID, pageID string, limit int) ([]history.Revision, error) {
	if _, err := s.pageAccess(ctx, pageID, actorID, rbac.AccessRead); err != nil {
		return nil, err
	}
	if s.history == nil {
		return []history.Revision{}, nil
	}
	if limit <= 0 || limit > 200 {
		limit = defaultHistorySize
	}
	revisions, err := s.history.History(pageID, limit)
	if errors.Is(err, history.ErrNoHistory) {
		return []history.Revision{}, nil
	}
	return revisions, err
}

func (s *Service) PageRevision(ctx context.Context, actorID, pageID, hash string) (RevisionView, error) {
	if _, err := s.pageAccess(ctx, pageID, actorID, rbac.AccessRead); err != nil {
		return RevisionView{}, err
	}
	if s.history == nil {
		return RevisionView{}, history.ErrNoHistory
	}
	content, revision, err := s.history.ContentAt(pageID, hash)
	if err != nil {
		return RevisionView{}, err
	}
	return RevisionView{Revision: revision, Content: content}, nil
}

// ExportPage renders the page, or one of its revisions, in format.
func (s *Service) ExportPage(ctx context.Context, actorID, pageID, formatValue, revision string) (*export.Result, error) {
	page, err := s.pageAccess(ctx, pageID, actorID, rbac.AccessRead)
	if err != nil {
		return nil, err
	}
	format, err := export.ParseFormat(formatValue)
	if err != nil {
		return nil, err
	}

	doc := export.Page{
		ID:        page.ID,
		Title:     page.Title,
		Icon:      page.Icon,
		Content:   page.Content,
		UpdatedAt: page.UpdatedAt,
	}
	if revision != "" {
		view, err := s.PageRevision(ctx, actorID, pageID, revision)
		if err != nil {
			return nil, err
		}
		doc.Title = view.Content.Title
		doc.Icon = view.Content.Icon
		doc.Content = view.Content.Content
		doc.UpdatedAt = view.Revision.CreatedAt
		doc.Revision = view.Revision.Hash
	}
	if author, err := s.store.GetUserByID(ctx, page.CreatedBy); err == nil {
		doc.Author = author.DisplayName
	}
	if ws, err := s.store.GetWorkspace(ctx, page.WorkspaceID); err == nil {
		doc.WorkspaceName = ws.Name
	}
	tags, err := s.store.ListPageTags(ctx, pageID)
	if err != nil {
		return nil, err
	}
	for _, tag := range tags {
		doc.Tags = append(doc.Tags, tag.Name)
	}

	result, err := s.exporter.Export(ctx, doc, format)
	if err != nil {
		return nil, err
	}
	obs.RecordEvent("page_exported_" + string(format))
	return result, nil
}

// SearchPages runs a full-text search over the pages the caller can read.
func (s *Service) SearchPages(ctx context.Context, actorID string, input SearchInput) (search.Response, error) {
	text := strings.TrimSpace(input.Text)
	if text == "" {
		return search.Response{}, badRequest("VALIDATION_ERROR", "q is required")
	}
	if s.search == nil {
		return search.Response{Results: []search.Result{}, Query: text}, nil
	}
	workspaces, err := s.store.ListWorkspacesForUser(ctx, actorID)
	if err != nil {
		return search.Response{}, err
	}
	ids := make([]string, 0, len(workspaces))
	for _, ws := range workspaces {
		ids = append(ids, ws.ID)
	}
	return s.search.Search(search.Query{
		Text:              text,
		UserID:            actorID,
		WorkspaceIDs:      ids,
		FilterWorkspaceID: strings.TrimSpace(input.WorkspaceID),
		Limit:             input.Limit,
		Offset:            input.Offset,
	}), nil
}

// pageAccess reports a missing page as NotFound.
func (s *Service) pageAccess(ctx context.Context, pageID, actorID string, level rbac.AccessLevel) (store.Page, error) {
	page, err := s.access.CheckPageAccess(ctx, pageID, actorID, level)
	if err != nil {
		return store.Page{}, missing(err, "page not found")
	}
	return page, nil
}

func (s *Service) defaultWorkspace(ctx context.Context, userID string) (string, error) {
	workspaces, err := s.store.ListWorkspacesForUser(ctx, userID)
	if err != nil {
		return "", err
	}
	for _, ws := range workspaces {
		if ws.IsDefault && ws.OwnerID == userID {
			return ws.ID, nil
		}
	}
	return "", badRequest("VALIDATION_ERROR", "workspaceId is required")
}

func applyPageInput(page *store.Page, input PageInput) {
	if input.Title != nil {
		title := strings.TrimSpace(*input.Title)
		if title == "" {
			title = untitledPage
		}
		page.Title = title
	}
	if input.Content != nil {
		page.Content = *input.Content
	}
	if input.Icon != nil {
		page.Icon = strings.TrimSpace(*input.Icon)
	}
	if input.CoverImage != nil {
		page.CoverImage = strings.TrimSpace(*input.CoverImage)
	}
}

// recordRevision commits the page content. A failed commit is logged and
// does not fail the write that triggered it.
func (s *Service) recordRevision(page store.Page, actor Session, message string) {
	if s.history == nil {
		return
	}
	author := actor.UserName
	if author == "" {
		author = actor.UserID
	}
	_, err := s.history.Record(page.ID, history.Content{
		Title:      page.Title,
		Content:    page.Content,
		Icon:       page.Icon,
		CoverImage: page.CoverImage,
	}, author, message)
	if err != nil {
		obs.RecordBackgroundFailure("history_commit")
		s.logger.Warn().Err(err).Str("page_id", page.ID).Msg("record page revision failed")
	}
}

func (s *Service) indexPage(ctx context.Context, page store.Page) {
	if s.search == nil {
		return
	}
	shares, err := s.store.ListSharesForPage(ctx, page.ID)
	if err != nil {
		s.logger.Warn().Err(err).Str("page_id", page.ID).Msg("load shares for indexing failed")
		return
	}
	sharedWith := make([]string, 0, len(shares))
	for _, share := range shares {
		sharedWith = append(sharedWith, share.SharedWith)
	}
	s.search.IndexPage(search.PageRecord{
		ID:          page.ID,
		Title:       page.Title,
		Content:     page.Content,
		WorkspaceID: page.WorkspaceID,
		CreatedBy:   page.CreatedBy,
		SharedWith:  sharedWith,
		IsArchived:  page.IsArchived,
	})
}

// reindexPage refreshes the index entry of pageID after its shares changed.
func (s *Service) reindexPage(ctx context.Context, pageID string) {
	if s.search == nil {
		return
	}
	page, err := s.store.GetPage(ctx, pageID)
	if err != nil {
		return
	}
	s.indexPage(ctx, page)
}

// forgetPages drops index entries and revision repositories of deleted
// pages.
func (s *Service) forgetPages(pageIDs []string) {
	if len(pageIDs) == 0 {
		return
	}
	for _, id := range pageIDs {
		if s.search != nil {
			s.search.DeletePage(id)
		}
	}
	if s.history == nil {
		return
	}
	s.background("history_remove", func() error {
		var errs []error
		for _, id := range pageIDs {
			errs = append(errs, s.history.Remove(id))
		}
		return errors.Join(errs...)
	})
}

func toggle(value *bool, current bool) bool {
	if value != nil {
		return *value
	}
	return !current
}
