package app

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

func (s *HTTPServer) invitationRoutes(r chi.Router) {
	r.Route("/invitations", func(r chi.Router) {
		r.Get("/", s.handleListInvitations)
		r.Post("/", s.handleInvite)
		r.Post("/{id}/accept", s.handleAcceptInvitation)
		r.Post("/{id}/decline", s.handleDeclineInvitation)
	})
}

func (s *HTTPServer) handleListInvitations(w http.ResponseWriter, r *http.Request) {
	pending := queryBool(r, "pending")
	items, err := s.service.ListInvitations(r.Context(), sessionFrom(r).UserID, pending != nil && *pending)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": listPayload(items, notificationPayload)})
}

func (s *HTTPServer) handleInvite(w http.ResponseWriter, r *http.Request) {
	var body struct {
		WorkspaceID string `json:"workspaceId"`
		Email       string `json:"email"`
		Role        string `json:"role"`
	}
	if !s.decode(w, r, &body) {
		return
	}
	invitation, err := s.service.Invite(r.Context(), sessionFrom(r).UserID, InviteInput{
		WorkspaceID: body.WorkspaceID,
		Email:       body.Email,
		Role:        body.Role,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, notificationPayload(invitation))
}

func (s *HTTPServer) handleAcceptInvitation(w http.ResponseWriter, r *http.Request) {
	if err := s.service.AcceptInvitation(r.Context(), sessionFrom(r).UserID, chi.URLParam(r, "id")); err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": chi.URLParam(r, "id"), "status": InvitationAccepted})
}

func (s *HTTPServer) handleDeclineInvitation(w http.ResponseWriter, r *http.Request) {
	if err := s.service.DeclineInvitation(r.Context(), sessionFrom(r).UserID, chi.URLParam(r, "id")); err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": chi.URLParam(r, "id"), "status": InvitationDeclined})
}
