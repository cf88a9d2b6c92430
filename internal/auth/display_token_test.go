package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestDisplayTokenRoundTrip(t *testing.T) {
	d := NewDisplayTokens("0123456789abcdef0123456789abcdef")

	tok, expires, err := d.Issue(time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if time.Until(expires) < 59*time.Minute {
		t.Errorf("expires = %v, want about an hour from now", expires)
	}
	if err := d.Verify(tok); err != nil {
		t.Errorf("verify: %v", err)
	}
}

func TestDisplayTokenWrongSecret(t *testing.T) {
	tok, _, _ := NewDisplayTokens("0123456789abcdef0123456789abcdef").Issue(time.Hour)

	err := NewDisplayTokens("another-secret-another-secret!!").Verify(tok)
	if !errors.Is(err, ErrInvalidToken) {
		t.Errorf("err = %v, want ErrInvalidToken", err)
	}
}

func TestDisplayTokenExpired(t *testing.T) {
	d := NewDisplayTokens("0123456789abcdef0123456789abcdef")

	tok, _, _ := d.Issue(-time.Minute)
	if err := d.Verify(tok); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("err = %v, want ErrInvalidToken", err)
	}
}

func TestDisplayTokenWrongAudience(t *testing.T) {
	secret := "0123456789abcdef0123456789abcdef"
	claims := jwt.RegisteredClaims{
		Audience:  jwt.ClaimStrings{"admin"},
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	if err := NewDisplayTokens(secret).Verify(tok); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("err = %v, want ErrInvalidToken", err)
	}
}

func TestDisplayTokensDisabled(t *testing.T) {
	d := NewDisplayTokens("")
	if d.Enabled() {
		t.Error("expected disabled")
	}
	if _, _, err := d.Issue(time.Hour); !errors.Is(err, ErrDisplayTokensDisabled) {
		t.Errorf("issue err = %v", err)
	}
	if err := d.Verify("x"); !errors.Is(err, ErrDisplayTokensDisabled) {
		t.Errorf("verify err = %v", err)
	}
}
