package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const displayAudience = "display"

var (
	ErrInvalidToken          = errors.New("invalid or expired token")
	ErrDisplayTokensDisabled = errors.New("display tokens are not configured")
)

// DisplayTokens issues short-lived tokens that let a projector subscribe to
// the live slide feed without an admin session.
type DisplayTokens struct {
	secret []byte
}

// NewDisplayTokens returns an issuer. An empty secret disables issuing and
// rejects every token.
func NewDisplayTokens(secret string) *DisplayTokens {
	return &DisplayTokens{secret: []byte(secret)}
}

func (d *DisplayTokens) Enabled() bool {
	return len(d.secret) > 0
}

func (d *DisplayTokens) Issue(ttl time.Duration) (string, time.Time, error) {
	if !d.Enabled() {
		return "", time.Time{}, ErrDisplayTokensDisabled
	}
	now := time.Now()
	expires := now.Add(ttl)
	claims := jwt.RegisteredClaims{
		Audience:  jwt.ClaimStrings{displayAudience},
		ExpiresAt: jwt.NewNumericDate(expires),
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(d.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign display token: %w", err)
	}
	return signed, expires, nil
}

func (d *DisplayTokens) Verify(tokenString string) error {
	if !d.Enabled() {
		return ErrDisplayTokensDisabled
	}
	_, err := jwt.ParseWithClaims(
		tokenString,
		&jwt.RegisteredClaims{},
		func(token *jwt.Token) (any, error) {
			return d.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithAudience(displayAudience),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return nil
}
