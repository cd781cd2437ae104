package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var testSecret = []byte("test-secret")

func TestIssueAndVerifyToken_Roundtrip(t *testing.T) {
	raw, err := issueToken(testSecret, "u1", "a@b.c", time.Hour)
	if err != nil {
		t.Fatalf("issueToken: %v", err)
	}

	claims, err := verifyToken(testSecret, raw)
	if err != nil {
		t.Fatalf("verifyToken: %v", err)
	}
	if claims.UserID != "u1" || claims.Email != "a@b.c" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
	if claims.ExpiresAt == nil || time.Until(claims.ExpiresAt.Time) <= 0 {
		t.Fatalf("expiry not set in the future: %+v", claims.ExpiresAt)
	}
}

func TestVerifyToken_Expired(t *testing.T) {
	raw, err := issueToken(testSecret, "u1", "a@b.c", -time.Minute)
	if err != nil {
		t.Fatalf("issueToken: %v", err)
	}
	if _, err := verifyToken(testSecret, raw); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}
}

func TestVerifyToken_WrongSecret(t *testing.T) {
	raw, err := issueToken(testSecret, "u1", "a@b.c", time.Hour)
	if err != nil {
		t.Fatalf("issueToken: %v", err)
	}
	if _, err := verifyToken([]byte("other"), raw); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid, got %v", err)
	}
}

func TestVerifyToken_Malformed(t *testing.T) {
	if _, err := verifyToken(testSecret, "not-a-token"); !errors.Is(err, ErrTokenMalformed) {
		t.Fatalf("expected ErrTokenMalformed, got %v", err)
	}
}

func TestVerifyToken_RejectsNonHS256(t *testing.T) {
	// alg=none must never be accepted.
	tok := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{UserID: "u1"})
	raw, err := tok.SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign none: %v", err)
	}
	if _, err := verifyToken(testSecret, raw); err == nil {
		t.Fatalf("unsigned token must be rejected")
	}
}

func TestVerifyToken_EmptyUserID(t *testing.T) {
	raw, err := issueToken(testSecret, "", "a@b.c", time.Hour)
	if err != nil {
		t.Fatalf("issueToken: %v", err)
	}
	if _, err := verifyToken(testSecret, raw); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("claims without uid must be invalid, got %v", err)
	}
}
