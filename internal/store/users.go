package store

import (
	"context"
	"fmt"
	"strings"
)

const userColumns = `id, username, email, display_name, password_hash, role, location_code, two_factor_enabled, google_subject, created_at, updated_at`

func scanUser(row rowScanner) (User, error) {
	var user User
	err := row.Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.DisplayName,
		&user.PasswordHash,
		&user.Role,
		&user.LocationCode,
		&user.TwoFactorEnabled,
		&user.GoogleSubject,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	return user, err
}

// CreateUserWithInbox registers a user together with its profile, its
// default workspace and the OWNER membership of that workspace. Either all
// four rows are written or none is.
func (s *PostgresStore) CreateUserWithInbox(ctx context.Context, user User, profile Profile, inbox Workspace) error {
	return WithTx(ctx, s.db, nil, func(ctx context.Context, tx DBTX) error {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO users (id, username, email, display_name, password_hash, role, location_code, two_factor_enabled, google_subject)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		`, user.ID, user.Username, user.Email, user.DisplayName, user.PasswordHash, user.Role, user.LocationCode, user.TwoFactorEnabled, user.GoogleSubject); err != nil {
			return fmt.Errorf("insert user: %w", translateWriteError(err))
		}
		return insertProfileAndInbox(ctx, tx, user.ID, profile, inbox)
	})
}

// UpsertOAuthUser inserts the user or returns the existing row with the same
// email. created reports whether a new user (and its profile and inbox) was
// written.
func (s *PostgresStore) UpsertOAuthUser(ctx context.Context, user User, profile Profile, inbox Workspace) (User, bool, error) {
	var (
		saved   User
		created bool
	)
	err := WithTx(ctx, s.db, nil, func(ctx context.Context, tx DBTX) error {
		row := tx.QueryRowContext(ctx, `
			INSERT INTO users (id, username, email, display_name, password_hash, role, google_subject)
			VALUES ($1, $2, $3, $4, '', $5, $6)
			ON CONFLICT (email) DO UPDATE
				SET google_subject = COALESCE(users.google_subject, EXCLUDED.google_subject)
			RETURNING `+userColumns+`, (xmax = 0) AS inserted
		`, user.ID, user.Username, user.Email, user.DisplayName, user.Role, user.GoogleSubject)
		if err := row.Scan(
			&saved.ID,
			&saved.Username,
			&saved.Email,
			&saved.DisplayName,
			&saved.PasswordHash,
			&saved.Role,
			&saved.LocationCode,
			&saved.TwoFactorEnabled,
			&saved.GoogleSubject,
			&saved.CreatedAt,
			&saved.UpdatedAt,
			&created,
		); err != nil {
			return fmt.Errorf("upsert oauth user: %w", translateWriteError(err))
		}
		if !created {
			return nil
		}
		return insertProfileAndInbox(ctx, tx, saved.ID, profile, inbox)
	})
	if err != nil {
		return User{}, false, err
	}
	return saved, created, nil
}

func insertProfileAndInbox(ctx context.Context, tx DBTX, userID string, profile Profile, inbox Workspace) error {
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO profiles (user_id, bio, avatar_url, phone)
		VALUES ($1, $2, $3, $4)
	`, userID, profile.Bio, profile.AvatarURL, profile.Phone); err != nil {
		return fmt.Errorf("insert profile: %w", translateWriteError(err))
	}
	inbox.OwnerID = userID
	return insertWorkspaceWithOwner(ctx, tx, inbox)
}

func (s *PostgresStore) GetUserByID(ctx context.Context, userID string) (User, error) {
	return scanUser(s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id=$1`, userID))
}

func (s *PostgresStore) GetUserByEmail(ctx context.Context, email string) (User, error) {
	return scanUser(s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email=$1`, strings.ToLower(strings.TrimSpace(email))))
}

func (s *PostgresStore) GetUserByUsername(ctx context.Context, username string) (User, error) {
	return scanUser(s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE username=$1`, strings.TrimSpace(username)))
}

func (s *PostgresStore) UpdateUser(ctx context.Context, user User) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE users
		SET username=$2, display_name=$3, location_code=$4, updated_at=NOW()
		WHERE id=$1
	`, user.ID, user.Username, user.DisplayName, user.LocationCode)
	if err != nil {
		return fmt.Errorf("update user: %w", translateWriteError(err))
	}
	return nil
}

func (s *PostgresStore) UpdateUserPassword(ctx context.Context, userID, passwordHash string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE users SET password_hash=$2, updated_at=NOW() WHERE id=$1`, userID, passwordHash)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return nil
}

func (s *PostgresStore) SetTwoFactorEnabled(ctx context.Context, userID string, enabled bool) error {
	_, err := s.db.ExecContext(ctx, `UPDATE users SET two_factor_enabled=$2, updated_at=NOW() WHERE id=$1`, userID, enabled)
	if err != nil {
		return fmt.Errorf("update two factor flag: %w", err)
	}
	return nil
}

// DeleteUser removes the user; owned workspaces, pages, shares, tokens and
// notifications go with it through ON DELETE CASCADE.
func (s *PostgresStore) DeleteUser(ctx context.Context, userID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE id=$1`, userID)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetProfile(ctx context.Context, userID string) (Profile, error) {
	var profile Profile
	err := s.db.QueryRowContext(ctx, `
		SELECT user_id, bio, avatar_url, phone, updated_at FROM profiles WHERE user_id=$1
	`, userID).Scan(&profile.UserID, &profile.Bio, &profile.AvatarURL, &profile.Phone, &profile.UpdatedAt)
	return profile, err
}

func (s *PostgresStore) UpdateProfile(ctx context.Context, profile Profile) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO profiles (user_id, bio, avatar_url, phone)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id) DO UPDATE
			SET bio=EXCLUDED.bio, avatar_url=EXCLUDED.avatar_url, phone=EXCLUDED.phone, updated_at=NOW()
	`, profile.UserID, profile.Bio, profile.AvatarURL, profile.Phone)
	if err != nil {
		return fmt.Errorf("update profile: %w", err)
	}
	return nil
}
