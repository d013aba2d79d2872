package app

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

func (s *HTTPServer) workspaceRoutes(r chi.Router) {
	r.Route("/workspaces", func(r chi.Router) {
		r.Get("/", s.handleListWorkspaces)
		r.Post("/", s.handleCreateWorkspace)
		r.Get("/{id}", s.handleGetWorkspace)
		r.Put("/{id}", s.handleUpdateWorkspace)
		r.Delete("/{id}", s.handleDeleteWorkspace)
		r.Get("/{id}/members", s.handleListMembers)
		r.Put("/{id}/members/{userId}", s.handleUpdateMember)
		r.Delete("/{id}/members/{userId}", s.handleRemoveMember)
	})
}

type workspaceBody struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Icon        *string `json:"icon"`
}

func (b workspaceBody) input() WorkspaceInput {
	return WorkspaceInput{Name: b.Name, Description: b.Description, Icon: b.Icon}
}

func (s *HTTPServer) handleListWorkspaces(w http.ResponseWriter, r *http.Request) {
	workspaces, err := s.service.ListWorkspaces(r.Context(), sessionFrom(r).UserID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": listPayload(workspaces, workspacePayload)})
}

func (s *HTTPServer) handleCreateWorkspace(w http.ResponseWriter, r *http.Request) {
	var body workspaceBody
	if !s.decode(w, r, &body) {
		return
	}
	ws, err := s.service.CreateWorkspace(r.Context(), sessionFrom(r).UserID, body.input())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, workspacePayload(ws))
}

func (s *HTTPServer) handleGetWorkspace(w http.ResponseWriter, r *http.Request) {
	ws, err := s.service.GetWorkspace(r.Context(), sessionFrom(r).UserID, chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, workspacePayload(ws))
}

func (s *HTTPServer) handleUpdateWorkspace(w http.ResponseWriter, r *http.Request) {
	var body workspaceBody
	if !s.decode(w, r, &body) {
		return
	}
	ws, err := s.service.UpdateWorkspace(r.Context(), sessionFrom(r).UserID, chi.URLParam(r, "id"), body.input())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, workspacePayload(ws))
}

func (s *HTTPServer) handleDeleteWorkspace(w http.ResponseWriter, r *http.Request) {
	if err := s.service.DeleteWorkspace(r.Context(), sessionFrom(r).UserID, chi.URLParam(r, "id")); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *HTTPServer) handleListMembers(w http.ResponseWriter, r *http.Request) {
	members, err := s.service.ListMembers(r.Context(), sessionFrom(r).UserID, chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": listPayload(members, memberPayload)})
}

func (s *HTTPServer) handleUpdateMember(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Role string `json:"role"`
	}
	if !s.decode(w, r, &body) {
		return
	}
	err := s.service.UpdateMemberRole(r.Context(), sessionFrom(r).UserID, chi.URLParam(r, "id"), chi.URLParam(r, "userId"), body.Role)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"userId": chi.URLParam(r, "userId"), "role": body.Role})
}

func (s *HTTPServer) handleRemoveMember(w http.ResponseWriter, r *http.Request) {
	err := s.service.RemoveMember(r.Context(), sessionFrom(r).UserID, chi.URLParam(r, "id"), chi.URLParam(r, "userId"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
