package app

import (
	"net/http"
	"net/url"
	"strconv"
	"time"

	"notespace/api/internal/authpw"
	"notespace/api/internal/util"
)

const oauthStateCookie = "notespace_oauth_state"

func (s *HTTPServer) handleRegister(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Username    string `json:"username"`
		Email       string `json:"email"`
		Password    string `json:"password"`
		DisplayName string `json:"displayName"`
	}
	if !s.decode(w, r, &body) {
		return
	}

	user, current, err := s.service.Register(r.Context(), authpw.SignUpRequest{
		Username:    body.Username,
		Email:       body.Email,
		Password:    body.Password,
		DisplayName: body.DisplayName,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}

	response := sessionPayload(current)
	response["user"] = userPayload(UserView{User: user})
	writeJSON(w, http.StatusCreated, response)
}

func (s *HTTPServer) handleLogin(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Login    string `json:"login"`
		Email    string `json:"email"`
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if !s.decode(w, r, &body) {
		return
	}
	login := body.Login
	if login == "" {
		login = body.Email
	}
	if login == "" {
		login = body.Username
	}

	result, err := s.service.Login(r.Context(), login, body.Password)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if result.RequiresTwoFactor {
		response := map[string]any{
			"requiresTwoFactor": true,
			"challenge":         result.Challenge,
			"expiresInMinutes":  int(authpw.TwoFactorTTL.Minutes()),
			"message":           "A verification code has been sent to your email",
		}
		if result.DevCode != "" {
			response["devCode"] = result.DevCode
		}
		writeJSON(w, http.StatusOK, response)
		return
	}

	response := sessionPayload(*result.Session)
	response["requiresTwoFactor"] = false
	writeJSON(w, http.StatusOK, response)
}

func (s *HTTPServer) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var body struct {
		RefreshToken string `json:"refreshToken"`
	}
	if !s.decode(w, r, &body) {
		return
	}
	current, err := s.service.Refresh(r.Context(), body.RefreshToken)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionPayload(current))
}

func (s *HTTPServer) handleLogout(w http.ResponseWriter, r *http.Request) {
	var body struct {
		RefreshToken string `json:"refreshToken"`
	}
	if !s.decode(w, r, &body) {
		return
	}
	if err := s.service.Logout(r.Context(), sessionFrom(r), body.RefreshToken); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleVerifyToken checks a token from the body, or the bearer token.
func (s *HTTPServer) handleVerifyToken(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Token string `json:"token"`
	}
	if !s.decode(w, r, &body) {
		return
	}
	token := body.Token
	if token == "" {
		token = bearerToken(r)
	}
	if token == "" {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized", nil)
		return
	}
	current, err := s.service.SessionFromToken(r.Context(), token)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"valid":     true,
		"userId":    current.UserID,
		"userName":  current.UserName,
		"email":     current.Email,
		"role":      current.Role,
		"expiresAt": current.ExpiresAt.Unix(),
	})
}

func (s *HTTPServer) handleMe(w http.ResponseWriter, r *http.Request) {
	view, err := s.service.Me(r.Context(), sessionFrom(r).UserID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, userPayload(view))
}

func (s *HTTPServer) handleSendTwoFactor(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Challenge string `json:"challenge"`
	}
	if !s.decode(w, r, &body) {
		return
	}
	code, err := s.service.SendTwoFactorCode(r.Context(), body.Challenge)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	response := map[string]any{
		"message":          "A verification code has been sent to your email",
		"expiresInMinutes": int(authpw.TwoFactorTTL.Minutes()),
	}
	if code != "" {
		response["devCode"] = code
	}
	writeJSON(w, http.StatusOK, response)
}

func (s *HTTPServer) handleVerifyTwoFactor(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Challenge string `json:"challenge"`
		Code      string `json:"code"`
	}
	if !s.decode(w, r, &body) {
		return
	}
	current, err := s.service.VerifyTwoFactor(r.Context(), body.Challenge, body.Code)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionPayload(current))
}

func (s *HTTPServer) handleForgotPassword(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email string `json:"email"`
	}
	if !s.decode(w, r, &body) {
		return
	}
	token, err := s.service.ForgotPassword(r.Context(), body.Email)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	response := map[string]any{
		"message": "If an account exists, a reset email has been sent",
	}
	if token != "" {
		response["devResetToken"] = token
	}
	writeJSON(w, http.StatusOK, response)
}

func (s *HTTPServer) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Token       string `json:"token"`
		NewPassword string `json:"newPassword"`
	}
	if !s.decode(w, r, &body) {
		return
	}
	if err := s.service.ResetPassword(r.Context(), body.Token, body.NewPassword); err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "Password reset successfully",
	})
}

// handleGoogleLogin redirects to the Google consent screen. The state is
// echoed back by Google and checked against an HttpOnly cookie.
func (s *HTTPServer) handleGoogleLogin(w http.ResponseWriter, r *http.Request) {
	state := util.NewToken(16)
	target, err := s.service.GoogleAuthURL(state)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    state,
		Path:     "/api/auth/google",
		MaxAge:   int((10 * time.Minute).Seconds()),
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, target, http.StatusFound)
}

func (s *HTTPServer) handleGoogleCallback(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(oauthStateCookie)
	state := r.URL.Query().Get("state")
	if err != nil || state == "" || cookie.Value != state {
		writeError(w, http.StatusBadRequest, "INVALID_STATE", "OAuth state mismatch", nil)
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    "",
		Path:     "/api/auth/google",
		MaxAge:   -1,
		HttpOnly: true,
	})

	code := r.URL.Query().Get("code")
	if code == "" {
		writeError(w, http.StatusBadRequest, "INVALID_CODE", "authorization code is required", nil)
		return
	}
	current, created, err := s.service.GoogleLogin(r.Context(), code)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	fragment := url.Values{}
	fragment.Set("accessToken", current.Token)
	fragment.Set("refreshToken", current.RefreshToken)
	fragment.Set("expiresAt", strconv.FormatInt(current.ExpiresAt.Unix(), 10))
	fragment.Set("newUser", strconv.FormatBool(created))
	http.Redirect(w, r, s.service.cfg.AppBaseURL+"/auth/callback#"+fragment.Encode(), http.StatusFound)
}
