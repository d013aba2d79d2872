package app

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

func (s *HTTPServer) userRoutes(r chi.Router) {
	r.Route("/users", func(r chi.Router) {
		r.Get("/me", s.handleMe)
		r.Put("/me", s.handleUpdateMe)
		r.Delete("/me", s.handleDeleteMe)
		r.Put("/me/profile", s.handleUpdateProfile)
		r.Put("/me/password", s.handleChangePassword)
		r.Put("/me/two-factor", s.handleSetTwoFactor)
		r.Get("/{id}", s.handleGetUser)
	})
}

func (s *HTTPServer) handleUpdateMe(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Username     *string `json:"username"`
		DisplayName  *string `json:"displayName"`
		LocationCode *string `json:"locationCode"`
	}
	if !s.decode(w, r, &body) {
		return
	}
	view, err := s.service.UpdateMe(r.Context(), sessionFrom(r).UserID, UpdateUserInput{
		Username:     body.Username,
		DisplayName:  body.DisplayName,
		LocationCode: body.LocationCode,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, userPayload(view))
}

func (s *HTTPServer) handleDeleteMe(w http.ResponseWriter, r *http.Request) {
	if err := s.service.DeleteMe(r.Context(), sessionFrom(r)); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *HTTPServer) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Bio       *string `json:"bio"`
		AvatarURL *string `json:"avatarUrl"`
		Phone     *string `json:"phone"`
	}
	if !s.decode(w, r, &body) {
		return
	}
	profile, err := s.service.UpdateProfile(r.Context(), sessionFrom(r).UserID, UpdateProfileInput{
		Bio:       body.Bio,
		AvatarURL: body.AvatarURL,
		Phone:     body.Phone,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, profilePayload(profile))
}

func (s *HTTPServer) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	var body struct {
		CurrentPassword string `json:"currentPassword"`
		NewPassword     string `json:"newPassword"`
	}
	if !s.decode(w, r, &body) {
		return
	}
	if err := s.service.ChangePassword(r.Context(), sessionFrom(r).UserID, body.CurrentPassword, body.NewPassword); err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Password changed successfully"})
}

func (s *HTTPServer) handleSetTwoFactor(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Enabled *bool `json:"enabled"`
	}
	if !s.decode(w, r, &body) {
		return
	}
	if body.Enabled == nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "enabled is required", nil)
		return
	}
	if err := s.service.SetTwoFactor(r.Context(), sessionFrom(r).UserID, *body.Enabled); err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"twoFactorEnabled": *body.Enabled})
}

func (s *HTTPServer) handleGetUser(w http.ResponseWriter, r *http.Request) {
	view, err := s.service.GetUser(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, userPayload(view))
}
