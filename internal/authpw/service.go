// Package authpw provides email/password authentication, two-factor codes
// and password reset tokens.
package authpw

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"notespace/api/internal/auth"
	"notespace/api/internal/store"
	"notespace/api/internal/util"
)

const (
	PasswordResetTTL  = time.Hour
	minPasswordLength = 8
	inboxName         = "Inbox"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUsernameTaken      = errors.New("username already exists")
	ErrEmailTaken         = errors.New("email already exists")
)

// ValidationError describes rejected input.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func invalid(format string, args ...any) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// Service provides email/password authentication
type Service struct {
	store UserStore
	now   func() time.Time
	newID func() string
}

// UserStore defines the storage interface for auth
type UserStore interface {
	GetUserByEmail(ctx context.Context, email string) (store.User, error)
	GetUserByUsername(ctx context.Context, username string) (store.User, error)
	GetUserByID(ctx context.Context, id string) (store.User, error)
	CreateUserWithInbox(ctx context.Context, user store.User, profile store.Profile, inbox store.Workspace) error
	UpdateUserPassword(ctx context.Context, userID, passwordHash string) error

	CreateTwoFactorCode(ctx context.Context, code store.TwoFactorCode) error
	LatestTwoFactorCode(ctx context.Context, userID string) (store.TwoFactorCode, error)
	MarkTwoFactorCodeUsed(ctx context.Context, codeID string) error
	RecordTwoFactorFailure(ctx context.Context, codeID string, maxAttempts int) (int, error)

	CreatePasswordReset(ctx context.Context, token store.PasswordResetToken) error
	GetPasswordReset(ctx context.Context, tokenHash string) (store.PasswordResetToken, error)
	ConsumePasswordReset(ctx context.Context, tokenID, userID, passwordHash string) error
}

// NewService creates a new auth service
func NewService(s UserStore) *Service {
	return &Service{
		store: s,
		now:   time.Now,
		newID: util.NewUUID,
	}
}

// SignUpRequest contains sign-up parameters
type SignUpRequest struct {
	Username    string
	Email       string
	Password    string
	DisplayName string
}

// SignUp registers a user together with its profile and default Inbox
// workspace in one transaction.
func (s *Service) SignUp(ctx context.Context, req SignUpRequest) (store.User, error) {
	username := strings.TrimSpace(req.Username)
	email := normalizeEmail(req.Email)
	displayName := strings.TrimSpace(req.DisplayName)

	if username == "" || email == "" || req.Password == "" {
		return store.User{}, invalid("username, email, and password are required")
	}
	if !validEmail(email) {
		return store.User{}, invalid("invalid email address")
	}
	if len(req.Password) < minPasswordLength {
		return store.User{}, invalid("password must be at least %d characters", minPasswordLength)
	}
	if displayName == "" {
		displayName = username
	}

	if _, err := s.store.GetUserByUsername(ctx, username); err == nil {
		return store.User{}, ErrUsernameTaken
	} else if !errors.Is(err, sql.ErrNoRows) {
		return store.User{}, fmt.Errorf("check username: %w", err)
	}
	if _, err := s.store.GetUserByEmail(ctx, email); err == nil {
		return store.User{}, ErrEmailTaken
	} else if !errors.Is(err, sql.ErrNoRows) {
		return store.User{}, fmt.Errorf("check email: %w", err)
	}

	hash, err := HashPassword(req.Password)
	if err != nil {
		return store.User{}, fmt.Errorf("hash password: %w", err)
	}

	user := store.User{
		ID:           s.newID(),
		Username:     username,
		Email:        email,
		DisplayName:  displayName,
		PasswordHash: hash,
		Role:         "USER",
	}
	if err := s.store.CreateUserWithInbox(ctx, user, store.Profile{UserID: user.ID}, s.NewInbox(user.ID)); err != nil {
		return store.User{}, translateDuplicate(err)
	}
	return user, nil
}

// NewInbox builds the default workspace every user owns.
func (s *Service) NewInbox(ownerID string) store.Workspace {
	return store.Workspace{
		ID:          s.newID(),
		OwnerID:     ownerID,
		Name:        inboxName,
		Description: "Your default workspace",
		IsDefault:   true,
	}
}

func translateDuplicate(err error) error {
	var dup *store.DuplicateError
	if errors.As(err, &dup) {
		switch dup.Constraint {
		case "users_username_key":
			return ErrUsernameTaken
		case "users_email_key":
			return ErrEmailTaken
		}
	}
	return fmt.Errorf("create user: %w", err)
}

// SignInRequest contains sign-in parameters. Login is an email or a
// username.
type SignInRequest struct {
	Login    string
	Password string
}

// SignInResponse contains sign-in result. When RequiresTwoFactor is set,
// Code holds the freshly issued code for delivery and no session may be
// issued yet.
type SignInResponse struct {
	User              store.User
	RequiresTwoFactor bool
	Code              string
}

// SignIn authenticates a user
func (s *Service) SignIn(ctx context.Context, req SignInRequest) (*SignInResponse, error) {
	login := strings.TrimSpace(req.Login)
	if login == "" || req.Password == "" {
		return nil, invalid("login and password are required")
	}

	var (
		user store.User
		err  error
	)
	if strings.Contains(login, "@") {
		user, err = s.store.GetUserByEmail(ctx, login)
	} else {
		user, err = s.store.GetUserByUsername(ctx, login)
	}
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}

	if !VerifyPassword(user.PasswordHash, req.Password) {
		return nil, ErrInvalidCredentials
	}

	if !user.TwoFactorEnabled {
		return &SignInResponse{User: user}, nil
	}
	code, err := s.IssueTwoFactorCode(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	return &SignInResponse{User: user, RequiresTwoFactor: true, Code: code}, nil
}

// ChangePassword replaces the password of userID after checking current.
func (s *Service) ChangePassword(ctx context.Context, userID, current, next string) error {
	if len(next) < minPasswordLength {
		return invalid("password must be at least %d characters", minPasswordLength)
	}
	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("load user: %w", err)
	}
	if !VerifyPassword(user.PasswordHash, current) {
		return invalid("current password is incorrect")
	}
	hash, err := HashPassword(next)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	return s.store.UpdateUserPassword(ctx, userID, hash)
}

// RequestPasswordReset issues a reset token for email, replacing any
// earlier token of the user. Unknown emails yield an empty token and no
// error.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) (string, store.User, error) {
	user, err := s.store.GetUserByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, sql.ErrNoRows) {
		return "", store.User{}, nil
	}
	if err != nil {
		return "", store.User{}, fmt.Errorf("load user: %w", err)
	}

	token := util.NewToken(32)
	record := store.PasswordResetToken{
		ID:        s.newID(),
		UserID:    user.ID,
		TokenHash: auth.HashToken(token),
		ExpiresAt: s.now().Add(PasswordResetTTL),
	}
	if err := s.store.CreatePasswordReset(ctx, record); err != nil {
		return "", store.User{}, fmt.Errorf("store reset token: %w", err)
	}
	return token, user, nil
}

// ResetPasswordRequest contains password reset parameters
type ResetPasswordRequest struct {
	Token       string
	NewPassword string
}

// ResetPassword consumes a reset token and stores the new password.
func (s *Service) ResetPassword(ctx context.Context, req ResetPasswordRequest) error {
	if req.Token == "" || req.NewPassword == "" {
		return invalid("token and new password are required")
	}
	if len(req.NewPassword) < minPasswordLength {
		return invalid("password must be at least %d characters", minPasswordLength)
	}

	digest := auth.HashToken(req.Token)
	record, err := s.store.GetPasswordReset(ctx, digest)
	var stored *Credential
	switch {
	case err == nil:
		stored = &Credential{Value: record.TokenHash, ExpiresAt: record.ExpiresAt, Used: record.Used}
	case !errors.Is(err, sql.ErrNoRows):
		return fmt.Errorf("load reset token: %w", err)
	}
	if err := Verify(digest, stored, s.now()); err != nil {
		return err
	}

	hash, err := HashPassword(req.NewPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.store.ConsumePasswordReset(ctx, record.ID, record.UserID, hash); err != nil {
		if errors.Is(err, store.ErrStateChanged) {
			return ErrCodeUsed
		}
		return err
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validEmail(email string) bool {
	addr, err := mail.ParseAddress(email)
	return err == nil && addr.Address == email && strings.Contains(email, ".")
}
