package app

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

func (s *HTTPServer) tagRoutes(r chi.Router) {
	r.Route("/tags", func(r chi.Router) {
		r.Get("/", s.handleListTags)
		r.Post("/", s.handleCreateTag)
		r.Put("/{id}", s.handleUpdateTag)
		r.Delete("/{id}", s.handleDeleteTag)
		r.Get("/{id}/pages", s.handleListTaggedPages)
	})
}

type tagBody struct {
	Name  *string `json:"name"`
	Color *string `json:"color"`
}

func (s *HTTPServer) handleListTags(w http.ResponseWriter, r *http.Request) {
	tags, err := s.service.ListTags(r.Context(), sessionFrom(r).UserID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": listPayload(tags, tagPayload)})
}

func (s *HTTPServer) handleCreateTag(w http.ResponseWriter, r *http.Request) {
	var body tagBody
	if !s.decode(w, r, &body) {
		return
	}
	tag, err := s.service.CreateTag(r.Context(), sessionFrom(r).UserID, TagInput{Name: body.Name, Color: body.Color})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, tagPayload(tag))
}

func (s *HTTPServer) handleUpdateTag(w http.ResponseWriter, r *http.Request) {
	var body tagBody
	if !s.decode(w, r, &body) {
		return
	}
	tag, err := s.service.UpdateTag(r.Context(), sessionFrom(r).UserID, chi.URLParam(r, "id"), TagInput{Name: body.Name, Color: body.Color})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tagPayload(tag))
}

func (s *HTTPServer) handleDeleteTag(w http.ResponseWriter, r *http.Request) {
	if err := s.service.DeleteTag(r.Context(), sessionFrom(r).UserID, chi.URLParam(r, "id")); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *HTTPServer) handleListTaggedPages(w http.ResponseWriter, r *http.Request) {
	pages, err := s.service.ListTaggedPages(r.Context(), sessionFrom(r).UserID, chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": listPayload(pages, pagePayload)})
}
