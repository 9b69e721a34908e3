// Package auth validates session tokens minted by the identity provider
// and exposes the resulting identity to the delivery service.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/tunaaoguzhann/secure-delivery/core"
)

var ErrInvalidSession = errors.New("invalid session token")

// Claims carries the subject in the registered "sub" claim and the
// verified email alongside it.
type Claims struct {
	jwt.RegisteredClaims
	Email         string `json:"email,omitempty"`
	EmailVerified bool   `json:"email_verified,omitempty"`
}

// GenerateToken signs a session for sub. It backs the development CLI and
// tests; production sessions come from the identity provider.
func GenerateToken(sub, email string, secret []byte, validity time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sub,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(validity)),
		},
		Email:         email,
		EmailVerified: email != "",
	})
	return token.SignedString(secret)
}

// ParseToken validates signature and expiry and returns the identity.
func ParseToken(raw string, secret []byte) (core.Identity, error) {
	claims := &Claims{}
	tok, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return secret, nil
	}, jwt.WithExpirationRequired())
	if err != nil || !tok.Valid {
		return core.Identity{}, ErrInvalidSession
	}
	if claims.Subject == "" {
		return core.Identity{}, ErrInvalidSession
	}
	id := core.Identity{UserID: claims.Subject}
	if claims.EmailVerified {
		id.Email = claims.Email
	}
	return id, nil
}
