package app

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

func (s *HTTPServer) shareRoutes(r chi.Router) {
	r.Route("/shares", func(r chi.Router) {
		r.Post("/", s.handleSharePage)
		r.Get("/received", s.handleListReceivedShares)
		r.Get("/page/{pageId}", s.handleListPageShares)
		r.Put("/{id}", s.handleUpdateShare)
		r.Delete("/{id}", s.handleRemoveShare)
	})
}

func (s *HTTPServer) handleSharePage(w http.ResponseWriter, r *http.Request) {
	var body struct {
		PageID     string `json:"pageId"`
		Email      string `json:"email"`
		Permission string `json:"permission"`
	}
	if !s.decode(w, r, &body) {
		return
	}
	share, err := s.service.SharePage(r.Context(), sessionFrom(r), ShareInput{
		PageID:     body.PageID,
		Email:      body.Email,
		Permission: body.Permission,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, sharePayload(share))
}

func (s *HTTPServer) handleListReceivedShares(w http.ResponseWriter, r *http.Request) {
	shares, err := s.service.ListReceivedShares(r.Context(), sessionFrom(r).UserID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": listPayload(shares, shareDetailPayload)})
}

func (s *HTTPServer) handleListPageShares(w http.ResponseWriter, r *http.Request) {
	shares, err := s.service.ListPageShares(r.Context(), sessionFrom(r).UserID, chi.URLParam(r, "pageId"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": listPayload(shares, shareDetailPayload)})
}

func (s *HTTPServer) handleUpdateShare(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Permission string `json:"permission"`
	}
	if !s.decode(w, r, &body) {
		return
	}
	share, err := s.service.UpdateSharePermission(r.Context(), sessionFrom(r), chi.URLParam(r, "id"), body.Permission)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sharePayload(share))
}

func (s *HTTPServer) handleRemoveShare(w http.ResponseWriter, r *http.Request) {
	if err := s.service.RemoveShare(r.Context(), sessionFrom(r).UserID, chi.URLParam(r, "id")); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
