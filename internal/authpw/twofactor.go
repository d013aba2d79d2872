package authpw

import (
	"context"
	"crypto/rand"
	"database/sql"
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"time"

	"notespace/api/internal/store"
)

const (
	TwoFactorTTL = 5 * time.Minute
	// MaxTwoFactorAttempts wrong guesses burn a code.
	MaxTwoFactorAttempts = 5
	codeMin      = 100000
	codeMax      = 999999
)

// NewTwoFactorCode draws a code uniformly from [100000, 999999].
func NewTwoFactorCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(codeMax-codeMin+1))
	if err != nil {
		return "", fmt.Errorf("generate code: %w", err)
	}
	return strconv.FormatInt(n.Int64()+codeMin, 10), nil
}

// IssueTwoFactorCode stores a fresh code for userID, invalidating every
// unused code issued before it, and returns the code for delivery.
func (s *Service) IssueTwoFactorCode(ctx context.Context, userID string) (string, error) {
	code, err := NewTwoFactorCode()
	if err != nil {
		return "", err
	}
	record := store.TwoFactorCode{
		ID:        s.newID(),
		UserID:    userID,
		Code:      code,
		ExpiresAt: s.now().Add(TwoFactorTTL),
	}
	if err := s.store.CreateTwoFactorCode(ctx, record); err != nil {
		return "", fmt.Errorf("store two factor code: %w", err)
	}
	return code, nil
}

// VerifyTwoFactorCode checks code against the most recently issued code of
// the user and consumes it on success. A mismatch against a live code is
// counted; the code is burned after MaxTwoFactorAttempts mismatches.
func (s *Service) VerifyTwoFactorCode(ctx context.Context, userID, code string) error {
	latest, err := s.store.LatestTwoFactorCode(ctx, userID)
	var stored *Credential
	switch {
	case err == nil:
		stored = &Credential{Value: latest.Code, ExpiresAt: latest.ExpiresAt, Used: latest.Used}
	case !errors.Is(err, sql.ErrNoRows):
		return fmt.Errorf("load two factor code: %w", err)
	}

	if err := Verify(code, stored, s.now()); err != nil {
		if errors.Is(err, ErrCodeMismatch) && !latest.Used && !s.now().After(latest.ExpiresAt) {
			if _, recordErr := s.store.RecordTwoFactorFailure(ctx, latest.ID, MaxTwoFactorAttempts); recordErr != nil && !errors.Is(recordErr, store.ErrStateChanged) {
				return fmt.Errorf("record two factor failure: %w", recordErr)
			}
		}
		return err
	}
	if err := s.store.MarkTwoFactorCodeUsed(ctx, latest.ID); err != nil {
		if errors.Is(err, store.ErrStateChanged) {
			return ErrCodeUsed
		}
		return err
	}
	return nil
}
