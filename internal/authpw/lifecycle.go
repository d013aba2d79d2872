package authpw

import (
	"crypto/subtle"
	"errors"
	"time"
)

// Verification failures, in the order they are checked.
var (
	ErrCodeNotFound = errors.New("code not found")
	ErrCodeMismatch = errors.New("code mismatch")
	ErrCodeExpired  = errors.New("code expired")
	ErrCodeUsed     = errors.New("code already used")
)

// Credential is a stored single-use secret: a two-factor code or the hash
// of a password reset token.
type Credential struct {
	Value     string
	ExpiresAt time.Time
	Used      bool
}

// Verify checks presented against stored. A nil stored credential is
// ErrCodeNotFound. Expiry is strict: a credential is still valid at exactly
// ExpiresAt. Verify does not mark the credential used; callers do that
// atomically in the store.
func Verify(presented string, stored *Credential, now time.Time) error {
	if stored == nil {
		return ErrCodeNotFound
	}
	if subtle.ConstantTimeCompare([]byte(presented), []byte(stored.Value)) != 1 {
		return ErrCodeMismatch
	}
	if now.After(stored.ExpiresAt) {
		return ErrCodeExpired
	}
	if stored.Used {
		return ErrCodeUsed
	}
	return nil
}
