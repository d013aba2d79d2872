package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestIssueAndParseToken(t *testing.T) {
	secret := []byte("secret")
	issued, err := IssueToken(secret, NewClaims("user-1", "jti-1", "Avery", "avery@example.com", "USER", time.Hour))
	if err != nil {
		t.Fatalf("IssueToken() error = %v", err)
	}
	claims, err := ParseToken(secret, issued)
	if err != nil {
		t.Fatalf("ParseToken() error = %v", err)
	}
	if claims.Subject != "user-1" || claims.Name != "Avery" || claims.Email != "avery@example.com" || claims.ID != "jti-1" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
	if claims.Expiry().Before(time.Now()) {
		t.Fatalf("expiry should be in the future: %v", claims.Expiry())
	}
}

func TestParseTokenRejectsExpired(t *testing.T) {
	secret := []byte("secret")
	issued, err := IssueToken(secret, NewClaims("user-1", "jti-1", "Avery", "", "USER", -time.Minute))
	if err != nil {
		t.Fatalf("IssueToken() error = %v", err)
	}
	if _, err := ParseToken(secret, issued); err != ErrExpiredToken {
		t.Fatalf("expected ErrExpiredToken, got %v", err)
	}
}

func TestParseTokenRejectsForeignSignature(t *testing.T) {
	issued, err := IssueToken([]byte("secret"), NewClaims("user-1", "jti-1", "Avery", "", "USER", time.Hour))
	if err != nil {
		t.Fatalf("IssueToken() error = %v", err)
	}
	if _, err := ParseToken([]byte("other"), issued); err != ErrInvalidToken {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestParseTokenRejectsMalformedAndOpaque(t *testing.T) {
	for _, raw := range []string{"", "token_abcdef", "a.b.c", strings.Repeat("x", 40)} {
		if _, err := ParseToken([]byte("secret"), raw); err != ErrInvalidToken {
			t.Fatalf("ParseToken(%q) = %v, want ErrInvalidToken", raw, err)
		}
	}
}

func TestParseTokenRejectsNoneAlgorithm(t *testing.T) {
	claims := NewClaims("user-1", "jti-1", "Avery", "", "USER", time.Hour)
	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign none: %v", err)
	}
	if _, err := ParseToken([]byte("secret"), unsigned); err != ErrInvalidToken {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestParseTokenRequiresJTI(t *testing.T) {
	issued, err := IssueToken([]byte("secret"), NewClaims("user-1", "", "Avery", "", "USER", time.Hour))
	if err != nil {
		t.Fatalf("IssueToken() error = %v", err)
	}
	if _, err := ParseToken([]byte("secret"), issued); err != ErrInvalidToken {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestHashTokenIsStableHex(t *testing.T) {
	a := HashToken("value")
	if a != HashToken("value") || len(a) != 64 {
		t.Fatalf("unexpected hash %q", a)
	}
	if a == HashToken("other") {
		t.Fatal("different inputs must hash differently")
	}
}

func TestChallengeIsNotAnAccessToken(t *testing.T) {
	secret := []byte("secret")
	challenge, err := IssueToken(secret, NewChallengeClaims("user-1", "chl-1", time.Minute))
	if err != nil {
		t.Fatalf("IssueToken() error = %v", err)
	}
	if _, err := ParseToken(secret, challenge); err != ErrInvalidToken {
		t.Fatalf("ParseToken(challenge) error = %v, want ErrInvalidToken", err)
	}
	claims, err := ParseChallenge(secret, challenge)
	if err != nil {
		t.Fatalf("ParseChallenge() error = %v", err)
	}
	if claims.Subject != "user-1" || claims.ID != "chl-1" {
		t.Fatalf("unexpected claims: %+v", claims)
	}

	access, err := IssueToken(secret, NewClaims("user-1", "jti-1", "Avery", "", "USER", time.Minute))
	if err != nil {
		t.Fatalf("IssueToken() error = %v", err)
	}
	if _, err := ParseChallenge(secret, access); err != ErrInvalidToken {
		t.Fatalf("ParseChallenge(access) error = %v, want ErrInvalidToken", err)
	}
}
