package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"notespace/api/internal/auth"
	"notespace/api/internal/authpw"
	"notespace/api/internal/oauth"
	"notespace/api/internal/obs"
	"notespace/api/internal/store"
	"notespace/api/internal/util"
)

// LoginResult is the outcome of a password login. Session is nil while a
// two-factor code is outstanding; Challenge then binds the second step to
// this login.
type LoginResult struct {
	Session           *Session
	RequiresTwoFactor bool
	UserID            string
	Challenge         string
	// DevCode carries the two-factor code when it could not be mailed and
	// code exposure is enabled.
	DevCode string
}

func (s *Service) Register(ctx context.Context, req authpw.SignUpRequest) (store.User, Session, error) {
	user, err := s.passwords.SignUp(ctx, req)
	if err != nil {
		return store.User{}, Session{}, err
	}
	obs.RecordEvent("user_registered")
	current, err := s.issueSession(ctx, user)
	if err != nil {
		return store.User{}, Session{}, err
	}
	return user, current, nil
}

func (s *Service) Login(ctx context.Context, login, password string) (LoginResult, error) {
	resp, err := s.passwords.SignIn(ctx, authpw.SignInRequest{Login: login, Password: password})
	if err != nil {
		return LoginResult{}, err
	}
	if resp.RequiresTwoFactor {
		challenge, err := s.issueChallenge(resp.User.ID)
		if err != nil {
			return LoginResult{}, err
		}
		return LoginResult{
			RequiresTwoFactor: true,
			UserID:            resp.User.ID,
			Challenge:         challenge,
			DevCode:           s.exposeCode(s.deliverTwoFactorCode(resp.User, resp.Code), resp.Code),
		}, nil
	}
	current, err := s.issueSession(ctx, resp.User)
	if err != nil {
		return LoginResult{}, err
	}
	return LoginResult{Session: &current, UserID: resp.User.ID}, nil
}

func (s *Service) issueChallenge(userID string) (string, error) {
	claims := auth.NewChallengeClaims(userID, util.NewID("chl"), authpw.TwoFactorTTL)
	return auth.IssueToken([]byte(s.cfg.JWTSecret), claims)
}

// openChallenge validates a login challenge and loads its user. A challenge
// that already completed a login is rejected.
func (s *Service) openChallenge(ctx context.Context, challenge string) (auth.Claims, store.User, error) {
	if strings.TrimSpace(challenge) == "" {
		return auth.Claims{}, store.User{}, badRequest("VALIDATION_ERROR", "challenge is required")
	}
	claims, err := auth.ParseChallenge([]byte(s.cfg.JWTSecret), challenge)
	if err != nil {
		return auth.Claims{}, store.User{}, err
	}
	used, err := s.sessions.IsAccessTokenRevoked(ctx, claims.ID)
	if err != nil {
		return auth.Claims{}, store.User{}, err
	}
	if used {
		return auth.Claims{}, store.User{}, auth.ErrInvalidToken
	}
	user, err := s.store.GetUserByID(ctx, claims.Subject)
	if errors.Is(err, sql.ErrNoRows) {
		return auth.Claims{}, store.User{}, auth.ErrInvalidToken
	}
	if err != nil {
		return auth.Claims{}, store.User{}, err
	}
	return claims, user, nil
}

// SendTwoFactorCode re-issues the code of an open login challenge. The
// returned dev code is empty unless code exposure is enabled and the code
// could not be mailed.
func (s *Service) SendTwoFactorCode(ctx context.Context, challenge string) (string, error) {
	_, user, err := s.openChallenge(ctx, challenge)
	if err != nil {
		return "", err
	}
	code, err := s.passwords.IssueTwoFactorCode(ctx, user.ID)
	if err != nil {
		return "", err
	}
	return s.exposeCode(s.deliverTwoFactorCode(user, code), code), nil
}

// VerifyTwoFactor consumes a code for the user of the challenge and
// completes the login. The challenge cannot be used again.
func (s *Service) VerifyTwoFactor(ctx context.Context, challenge, code string) (Session, error) {
	if strings.TrimSpace(code) == "" {
		return Session{}, badRequest("VALIDATION_ERROR", "challenge and code are required")
	}
	claims, user, err := s.openChallenge(ctx, challenge)
	if err != nil {
		return Session{}, err
	}
	if err := s.passwords.VerifyTwoFactorCode(ctx, user.ID, strings.TrimSpace(code)); err != nil {
		return Session{}, err
	}
	if err := s.sessions.RevokeAccessToken(ctx, claims.ID, claims.Expiry()); err != nil {
		return Session{}, err
	}
	return s.issueSession(ctx, user)
}

// exposeCode returns secret only when it was not mailed and the deployment
// opted into exposing codes.
func (s *Service) exposeCode(mailed bool, secret string) string {
	if mailed || !s.cfg.DevExposeCodes {
		return ""
	}
	return secret
}

func (s *Service) deliverTwoFactorCode(user store.User, code string) bool {
	if !s.emailEnabled() {
		return false
	}
	minutes := int(authpw.TwoFactorTTL.Minutes())
	s.background("email_two_factor", func() error {
		return s.mail.SendTwoFactorCode(user.Email, user.DisplayName, code, minutes)
	})
	return true
}

// ForgotPassword issues a reset token. Unknown emails succeed silently.
// The token is returned only when it could not be mailed and code exposure
// is enabled.
func (s *Service) ForgotPassword(ctx context.Context, email string) (string, error) {
	token, user, err := s.passwords.RequestPasswordReset(ctx, email)
	if err != nil || token == "" {
		return "", err
	}
	if !s.emailEnabled() {
		if !s.cfg.DevExposeCodes {
			s.logger.Warn().Str("user_id", user.ID).Msg("password reset requested but email is not configured")
		}
		return s.exposeCode(false, token), nil
	}
	s.background("email_password_reset", func() error {
		return s.mail.SendPasswordResetEmail(user.Email, user.DisplayName, token)
	})
	return "", nil
}

func (s *Service) ResetPassword(ctx context.Context, token, newPassword string) error {
	return s.passwords.ResetPassword(ctx, authpw.ResetPasswordRequest{Token: token, NewPassword: newPassword})
}

func (s *Service) GoogleAuthURL(state string) (string, error) {
	if s.google == nil || !s.google.Enabled() {
		return "", oauth.ErrDisabled
	}
	return s.google.AuthCodeURL(state)
}

// GoogleLogin exchanges an authorization code and signs the Google account
// in, creating the user with its profile and Inbox on first login.
func (s *Service) GoogleLogin(ctx context.Context, code string) (Session, bool, error) {
	if s.google == nil || !s.google.Enabled() {
		return Session{}, false, oauth.ErrDisabled
	}
	identity, err := s.google.Exchange(ctx, code)
	if err != nil {
		return Session{}, false, err
	}

	email := strings.ToLower(strings.TrimSpace(identity.Email))
	localPart, _, _ := strings.Cut(email, "@")
	displayName := strings.TrimSpace(identity.Name)
	if displayName == "" {
		displayName = localPart
	}
	subject := identity.Subject
	candidate := store.User{
		ID:            util.NewUUID(),
		Username:      oauthUsername(localPart),
		Email:         email,
		DisplayName:   displayName,
		Role:          "USER",
		GoogleSubject: &subject,
	}
	profile := store.Profile{UserID: candidate.ID, AvatarURL: identity.Picture}

	user, created, err := s.store.UpsertOAuthUser(ctx, candidate, profile, s.passwords.NewInbox(candidate.ID))
	if err != nil {
		return Session{}, false, fmt.Errorf("upsert google user: %w", err)
	}
	if created {
		obs.RecordEvent("user_registered")
	}
	current, err := s.issueSession(ctx, user)
	if err != nil {
		return Session{}, false, err
	}
	return current, created, nil
}

func oauthUsername(localPart string) string {
	base := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_', r == '.':
			return r
		default:
			return -1
		}
	}, localPart)
	if base == "" {
		base = "user"
	}
	return base + "_" + util.NewToken(3)
}
