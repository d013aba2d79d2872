package auth

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// PurposeTwoFactor marks a login challenge: proof that the password step
// passed for a user who still owes a two-factor code.
const PurposeTwoFactor = "two_factor"

// Claims are carried by an access token. Subject, ID (jti), IssuedAt and
// ExpiresAt come from the registered claims. Purpose is empty for access
// tokens.
type Claims struct {
	jwt.RegisteredClaims
	Name    string `json:"name"`
	Email   string `json:"email"`
	Role    string `json:"role"`
	Purpose string `json:"purpose,omitempty"`
}

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("expired token")
)

// IssueToken signs claims with HS256. IssuedAt defaults to now.
func IssueToken(secret []byte, claims Claims) (string, error) {
	if claims.IssuedAt == nil {
		claims.IssuedAt = jwt.NewNumericDate(time.Now())
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// NewClaims builds claims for userID valid for ttl.
func NewClaims(userID, jti, name, email, role string, ttl time.Duration) Claims {
	now := time.Now()
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ID:        jti,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Name:  name,
		Email: email,
		Role:  role,
	}
}

// NewChallengeClaims builds a login challenge for userID valid for ttl.
func NewChallengeClaims(userID, jti string, ttl time.Duration) Claims {
	claims := NewClaims(userID, jti, "", "", "", ttl)
	claims.Purpose = PurposeTwoFactor
	return claims
}

// ParseToken validates an access token. Login challenges are rejected.
func ParseToken(secret []byte, token string) (Claims, error) {
	claims, err := parse(secret, token)
	if err != nil {
		return Claims{}, err
	}
	if claims.Purpose != "" {
		return Claims{}, ErrInvalidToken
	}
	return claims, nil
}

// ParseChallenge validates a login challenge issued by NewChallengeClaims.
func ParseChallenge(secret []byte, token string) (Claims, error) {
	claims, err := parse(secret, token)
	if err != nil {
		return Claims{}, err
	}
	if claims.Purpose != PurposeTwoFactor {
		return Claims{}, ErrInvalidToken
	}
	return claims, nil
}

func parse(secret []byte, token string) (Claims, error) {
	var claims Claims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Claims{}, ErrExpiredToken
		}
		return Claims{}, ErrInvalidToken
	}
	if !parsed.Valid || claims.Subject == "" || claims.ID == "" {
		return Claims{}, ErrInvalidToken
	}
	return claims, nil
}

// Expiry returns the expiry of claims, or the zero time.
func (c Claims) Expiry() time.Time {
	if c.ExpiresAt == nil {
		return time.Time{}
	}
	return c.ExpiresAt.Time
}

func HashToken(value string) string {
	sum := sha256.Sum256([]byte(value))
	return fmt.Sprintf("%x", sum)
}
