package app

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"notespace/api/internal/store"
)

func (s *HTTPServer) pageRoutes(r chi.Router) {
	r.Route("/pages", func(r chi.Router) {
		r.Get("/", s.handleListPages)
		r.Post("/", s.handleCreatePage)
		r.Get("/shared", s.handleListSharedPages)
		r.Get("/favorites", s.handleListFavoritePages)
		r.Get("/search", s.handleSearchPages)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.handleGetPage)
			r.Put("/", s.handleUpdatePage)
			r.Delete("/", s.handleDeletePage)
			r.Put("/move", s.handleMovePage)
			r.Put("/favorite", s.handleFavoritePage)
			r.Put("/archive", s.handleArchivePage)
			r.Get("/history", s.handlePageHistory)
			r.Get("/history/{revision}", s.handlePageRevision)
			r.Get("/export", s.handleExportPage)
			r.Get("/tags", s.handleListPageTags)
			r.Put("/tags/{tagId}", s.handleTagPage)
			r.Delete("/tags/{tagId}", s.handleUntagPage)
		})
	})
}

type pageBody struct {
	WorkspaceID string  `json:"workspaceId"`
	Title       *string `json:"title"`
	Content     *string `json:"content"`
	Icon        *string `json:"icon"`
	CoverImage  *string `json:"coverImage"`
}

func (b pageBody) input() PageInput {
	return PageInput{
		WorkspaceID: b.WorkspaceID,
		Title:       b.Title,
		Content:     b.Content,
		Icon:        b.Icon,
		CoverImage:  b.CoverImage,
	}
}

func (s *HTTPServer) handleListPages(w http.ResponseWriter, r *http.Request) {
	pages, err := s.service.ListPages(r.Context(), sessionFrom(r).UserID, r.URL.Query().Get("workspaceId"), store.PageFilter{
		Favorite: queryBool(r, "favorite"),
		Archived: queryBool(r, "archived"),
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": listPayload(pages, pagePayload)})
}

func (s *HTTPServer) handleCreatePage(w http.ResponseWriter, r *http.Request) {
	var body pageBody
	if !s.decode(w, r, &body) {
		return
	}
	page, err := s.service.CreatePage(r.Context(), sessionFrom(r), body.input())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, pagePayload(page))
}

func (s *HTTPServer) handleListSharedPages(w http.ResponseWriter, r *http.Request) {
	pages, err := s.service.ListSharedPages(r.Context(), sessionFrom(r).UserID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": listPayload(pages, pagePayload)})
}

func (s *HTTPServer) handleListFavoritePages(w http.ResponseWriter, r *http.Request) {
	pages, err := s.service.ListFavoritePages(r.Context(), sessionFrom(r).UserID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": listPayload(pages, pagePayload)})
}

func (s *HTTPServer) handleSearchPages(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	response, err := s.service.SearchPages(r.Context(), sessionFrom(r).UserID, SearchInput{
		Text:        query.Get("q"),
		WorkspaceID: query.Get("workspaceId"),
		Limit:       queryInt(r, "limit"),
		Offset:      queryInt(r, "offset"),
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, response)
}

func (s *HTTPServer) handleGetPage(w http.ResponseWriter, r *http.Request) {
	page, err := s.service.GetPage(r.Context(), sessionFrom(r).UserID, chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, pagePayload(page))
}

func (s *HTTPServer) handleUpdatePage(w http.ResponseWriter, r *http.Request) {
	var body pageBody
	if !s.decode(w, r, &body) {
		return
	}
	page, err := s.service.UpdatePage(r.Context(), sessionFrom(r), chi.URLParam(r, "id"), body.input())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, pagePayload(page))
}

func (s *HTTPServer) handleDeletePage(w http.ResponseWriter, r *http.Request) {
	if err := s.service.DeletePage(r.Context(), sessionFrom(r).UserID, chi.URLParam(r, "id")); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *HTTPServer) handleMovePage(w http.ResponseWriter, r *http.Request) {
	var body struct {
		WorkspaceID string `json:"workspaceId"`
	}
	if !s.decode(w, r, &body) {
		return
	}
	page, err := s.service.MovePage(r.Context(), sessionFrom(r).UserID, chi.URLParam(r, "id"), body.WorkspaceID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, pagePayload(page))
}

// handleFavoritePage sets isFavorite from the body, or flips it when the
// body is empty.
func (s *HTTPServer) handleFavoritePage(w http.ResponseWriter, r *http.Request) {
	var body struct {
		IsFavorite *bool `json:"isFavorite"`
	}
	if !s.decode(w, r, &body) {
		return
	}
	page, err := s.service.SetFavorite(r.Context(), sessionFrom(r).UserID, chi.URLParam(r, "id"), body.IsFavorite)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, pagePayload(page))
}

func (s *HTTPServer) handleArchivePage(w http.ResponseWriter, r *http.Request) {
	var body struct {
		IsArchived *bool `json:"isArchived"`
	}
	if !s.decode(w, r, &body) {
		return
	}
	page, err := s.service.SetArchived(r.Context(), sessionFrom(r).UserID, chi.URLParam(r, "id"), body.IsArchived)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, pagePayload(page))
}

func (s *HTTPServer) handlePageHistory(w http.ResponseWriter, r *http.Request) {
	revisions, err := s.service.PageHistory(r.Context(), sessionFrom(r).UserID, chi.URLParam(r, "id"), queryInt(r, "limit"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": listPayload(revisions, revisionPayload)})
}

func (s *HTTPServer) handlePageRevision(w http.ResponseWriter, r *http.Request) {
	view, err := s.service.PageRevision(r.Context(), sessionFrom(r).UserID, chi.URLParam(r, "id"), chi.URLParam(r, "revision"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	payload := revisionPayload(view.Revision)
	payload["title"] = view.Content.Title
	payload["content"] = view.Content.Content
	payload["icon"] = view.Content.Icon
	payload["coverImage"] = view.Content.CoverImage
	writeJSON(w, http.StatusOK, payload)
}

func (s *HTTPServer) handleExportPage(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	result, err := s.service.ExportPage(r.Context(), sessionFrom(r).UserID, chi.URLParam(r, "id"), query.Get("format"), query.Get("revision"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", result.MimeType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", result.Filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(result.Data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(result.Data)
}

func (s *HTTPServer) handleListPageTags(w http.ResponseWriter, r *http.Request) {
	tags, err := s.service.ListPageTags(r.Context(), sessionFrom(r).UserID, chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": listPayload(tags, tagPayload)})
}

func (s *HTTPServer) handleTagPage(w http.ResponseWriter, r *http.Request) {
	if err := s.service.TagPage(r.Context(), sessionFrom(r).UserID, chi.URLParam(r, "id"), chi.URLParam(r, "tagId")); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *HTTPServer) handleUntagPage(w http.ResponseWriter, r *http.Request) {
	if err := s.service.UntagPage(r.Context(), sessionFrom(r).UserID, chi.URLParam(r, "id"), chi.URLParam(r, "tagId")); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
