package app

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

func (s *HTTPServer) notificationRoutes(r chi.Router) {
	r.Route("/notifications", func(r chi.Router) {
		r.Get("/", s.handleListNotifications)
		r.Get("/unread-count", s.handleUnreadCount)
		r.Put("/read-all", s.handleMarkAllRead)
		r.Put("/{id}/read", s.handleMarkNotification(true))
		r.Put("/{id}/unread", s.handleMarkNotification(false))
		r.Delete("/{id}", s.handleDeleteNotification)
	})
}

func (s *HTTPServer) handleListNotifications(w http.ResponseWriter, r *http.Request) {
	unread := queryBool(r, "unread")
	items, err := s.service.ListNotifications(r.Context(), sessionFrom(r).UserID, unread != nil && *unread)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": listPayload(items, notificationPayload)})
}

func (s *HTTPServer) handleUnreadCount(w http.ResponseWriter, r *http.Request) {
	count, err := s.service.UnreadCount(r.Context(), sessionFrom(r).UserID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"count": count})
}

func (s *HTTPServer) handleMarkAllRead(w http.ResponseWriter, r *http.Request) {
	updated, err := s.service.MarkAllNotificationsRead(r.Context(), sessionFrom(r).UserID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"updated": updated})
}

func (s *HTTPServer) handleMarkNotification(read bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := s.service.MarkNotification(r.Context(), sessionFrom(r).UserID, chi.URLParam(r, "id"), read); err != nil {
			s.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"id": chi.URLParam(r, "id"), "isRead": read})
	}
}

func (s *HTTPServer) handleDeleteNotification(w http.ResponseWriter, r *http.Request) {
	if err := s.service.DeleteNotification(r.Context(), sessionFrom(r).UserID, chi.URLParam(r, "id")); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
