package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// CreateTwoFactorCode stores a new code after invalidating every unused
// code the user still holds.
func (s *PostgresStore) CreateTwoFactorCode(ctx context.Context, code TwoFactorCode) error {
	return WithTx(ctx, s.db, nil, func(ctx context.Context, tx DBTX) error {
		if _, err := tx.ExecContext(ctx, `
			UPDATE two_factor_codes SET used=TRUE WHERE user_id=$1 AND used=FALSE
		`, code.UserID); err != nil {
			return fmt.Errorf("invalidate two factor codes: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO two_factor_codes (id, user_id, code, expires_at, used)
			VALUES ($1, $2, $3, $4, FALSE)
		`, code.ID, code.UserID, code.Code, code.ExpiresAt); err != nil {
			return fmt.Errorf("insert two factor code: %w", err)
		}
		return nil
	})
}

// LatestTwoFactorCode returns the most recently issued code of the user.
func (s *PostgresStore) LatestTwoFactorCode(ctx context.Context, userID string) (TwoFactorCode, error) {
	var code TwoFactorCode
	err := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, code, expires_at, used, attempts, created_at
		FROM two_factor_codes
		WHERE user_id=$1
		ORDER BY created_at DESC, expires_at DESC
		LIMIT 1
	`, userID).Scan(&code.ID, &code.UserID, &code.Code, &code.ExpiresAt, &code.Used, &code.Attempts, &code.CreatedAt)
	return code, err
}

// RecordTwoFactorFailure counts a wrong guess against the code and burns it
// once maxAttempts is reached. It returns the attempts recorded so far.
func (s *PostgresStore) RecordTwoFactorFailure(ctx context.Context, codeID string, maxAttempts int) (int, error) {
	var attempts int
	err := s.db.QueryRowContext(ctx, `
		UPDATE two_factor_codes
		SET attempts = attempts + 1, used = (attempts + 1 >= $2)
		WHERE id=$1 AND used=FALSE
		RETURNING attempts
	`, codeID, maxAttempts).Scan(&attempts)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrStateChanged
	}
	if err != nil {
		return 0, fmt.Errorf("record two factor failure: %w", err)
	}
	return attempts, nil
}

// MarkTwoFactorCodeUsed flips the used flag. It returns ErrStateChanged when
// the code was consumed concurrently.
func (s *PostgresStore) MarkTwoFactorCodeUsed(ctx context.Context, codeID string) error {
	result, err := s.db.ExecContext(ctx, `UPDATE two_factor_codes SET used=TRUE WHERE id=$1 AND used=FALSE`, codeID)
	if err != nil {
		return fmt.Errorf("mark two factor code used: %w", err)
	}
	return requireAffected(result)
}

// CreatePasswordReset replaces every reset token of the user with the new one.
func (s *PostgresStore) CreatePasswordReset(ctx context.Context, token PasswordResetToken) error {
	return WithTx(ctx, s.db, nil, func(ctx context.Context, tx DBTX) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM password_reset_tokens WHERE user_id=$1`, token.UserID); err != nil {
			return fmt.Errorf("delete previous reset tokens: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO password_reset_tokens (id, user_id, token_hash, expires_at, used)
			VALUES ($1, $2, $3, $4, FALSE)
		`, token.ID, token.UserID, token.TokenHash, token.ExpiresAt); err != nil {
			return fmt.Errorf("insert reset token: %w", err)
		}
		return nil
	})
}

func (s *PostgresStore) GetPasswordReset(ctx context.Context, tokenHash string) (PasswordResetToken, error) {
	var token PasswordResetToken
	err := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, token_hash, expires_at, used, created_at
		FROM password_reset_tokens
		WHERE token_hash=$1
	`, tokenHash).Scan(&token.ID, &token.UserID, &token.TokenHash, &token.ExpiresAt, &token.Used, &token.CreatedAt)
	return token, err
}

// ConsumePasswordReset marks the token used and stores the new password hash
// in one transaction.
func (s *PostgresStore) ConsumePasswordReset(ctx context.Context, tokenID, userID, passwordHash string) error {
	return WithTx(ctx, s.db, nil, func(ctx context.Context, tx DBTX) error {
		result, err := tx.ExecContext(ctx, `UPDATE password_reset_tokens SET used=TRUE WHERE id=$1 AND used=FALSE`, tokenID)
		if err != nil {
			return fmt.Errorf("mark reset token used: %w", err)
		}
		if err := requireAffected(result); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `UPDATE users SET password_hash=$2, updated_at=NOW() WHERE id=$1`, userID, passwordHash); err != nil {
			return fmt.Errorf("update password: %w", err)
		}
		return nil
	})
}

func requireAffected(result interface{ RowsAffected() (int64, error) }) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return ErrStateChanged
	}
	return nil
}
