package app

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"notespace/api/internal/authpw"
	"notespace/api/internal/store"
)

// UserView is a user as returned to its owner. Profile is nil on public
// views.
type UserView struct {
	User    store.User
	Profile *store.Profile
}

// UpdateUserInput changes the signed-in user. Nil fields stay unchanged; an
// empty LocationCode clears the location.
type UpdateUserInput struct {
	Username     *string
	DisplayName  *string
	LocationCode *string
}

type UpdateProfileInput struct {
	Bio       *string
	AvatarURL *string
	Phone     *string
}

// Me returns the signed-in user with its profile.
func (s *Service) Me(ctx context.Context, userID string) (UserView, error) {
	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return UserView{}, missing(err, "user not found")
	}
	profile, err := s.store.GetProfile(ctx, userID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return UserView{}, err
	}
	profile.UserID = userID
	return UserView{User: user, Profile: &profile}, nil
}

// GetUser returns the public view of another user.
func (s *Service) GetUser(ctx context.Context, userID string) (UserView, error) {
	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return UserView{}, missing(err, "user not found")
	}
	return UserView{User: user}, nil
}

func (s *Service) UpdateMe(ctx context.Context, userID string, input UpdateUserInput) (UserView, error) {
	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return UserView{}, missing(err, "user not found")
	}
	if input.Username != nil {
		username := strings.TrimSpace(*input.Username)
		if username == "" {
			return UserView{}, badRequest("VALIDATION_ERROR", "username cannot be empty")
		}
		user.Username = username
	}
	if input.DisplayName != nil {
		displayName := strings.TrimSpace(*input.DisplayName)
		if displayName == "" {
			return UserView{}, badRequest("VALIDATION_ERROR", "displayName cannot be empty")
		}
		user.DisplayName = displayName
	}
	if input.LocationCode != nil {
		code := strings.TrimSpace(*input.LocationCode)
		switch {
		case code == "":
			user.LocationCode = nil
		case !s.locations.Exists(code):
			return UserView{}, badRequest("INVALID_LOCATION", "unknown location code")
		default:
			user.LocationCode = &code
		}
	}
	if err := s.store.UpdateUser(ctx, user); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return UserView{}, authpw.ErrUsernameTaken
		}
		return UserView{}, err
	}
	return s.Me(ctx, userID)
}

func (s *Service) UpdateProfile(ctx context.Context, userID string, input UpdateProfileInput) (store.Profile, error) {
	profile, err := s.store.GetProfile(ctx, userID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return store.Profile{}, err
	}
	profile.UserID = userID
	if input.Bio != nil {
		profile.Bio = strings.TrimSpace(*input.Bio)
	}
	if input.AvatarURL != nil {
		profile.AvatarURL = strings.TrimSpace(*input.AvatarURL)
	}
	if input.Phone != nil {
		profile.Phone = strings.TrimSpace(*input.Phone)
	}
	if err := s.store.UpdateProfile(ctx, profile); err != nil {
		return store.Profile{}, err
	}
	return s.store.GetProfile(ctx, userID)
}

func (s *Service) ChangePassword(ctx context.Context, userID, current, next string) error {
	return s.passwords.ChangePassword(ctx, userID, current, next)
}

func (s *Service) SetTwoFactor(ctx context.Context, userID string, enabled bool) error {
	return s.store.SetTwoFactorEnabled(ctx, userID, enabled)
}

// DeleteMe removes the account and ends the current session. Revision
// repositories and index entries of the user's pages are dropped in the
// background.
func (s *Service) DeleteMe(ctx context.Context, current Session) error {
	pages, err := s.ownedPages(ctx, current.UserID)
	if err != nil {
		return err
	}
	if err := s.store.DeleteUser(ctx, current.UserID); err != nil {
		return err
	}
	s.forgetPages(pages)
	return s.Logout(ctx, current, "")
}

// ownedPages lists the pages in workspaces owned by userID.
func (s *Service) ownedPages(ctx context.Context, userID string) ([]string, error) {
	workspaces, err := s.store.ListWorkspacesForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	var ids []string
	for _, ws := range workspaces {
		if ws.OwnerID != userID {
			continue
		}
		pages, err := s.store.ListPagesByWorkspace(ctx, ws.ID, store.PageFilter{})
		if err != nil {
			return nil, err
		}
		for _, page := range pages {
			ids = append(ids, page.ID)
		}
	}
	return ids, nil
}
