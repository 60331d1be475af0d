// Package auth issues and verifies admin bearer tokens and manages admin
// accounts.
package auth

import (
	"errors"
	"strings"
	"time"

	"github.com/Affo25/Ecoomerce-apis/apperrors"
	"github.com/golang-jwt/jwt/v4"
)

// Identity is what a verified token says about its bearer.
type Identity struct {
	AdminID  string `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

type claims struct {
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// Gateway signs HS256 tokens with a shared secret.
type Gateway struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewGateway(secret string, ttl time.Duration) *Gateway {
	return &Gateway{secret: []byte(secret), ttl: ttl, now: time.Now}
}

func (g *Gateway) Issue(id Identity) (string, error) {
	now := g.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Username: id.Username,
		Role:     id.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.AdminID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(g.ttl)),
		},
	})
	signed, err := token.SignedString(g.secret)
	if err != nil {
		return "", apperrors.Internal(err)
	}
	return signed, nil
}

// Verify checks the signature and expiry of token. Failures carry the
// reason missing, invalid or expired.
func (g *Gateway) Verify(token string) (Identity, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Identity{}, apperrors.Unauthorized(apperrors.ReasonMissing, "No auth token, access denied")
	}

	var c claims
	parsed, err := jwt.ParseWithClaims(token, &c, func(*jwt.Token) (interface{}, error) {
		return g.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return Identity{}, apperrors.Unauthorized(apperrors.ReasonExpired, "Token has expired")
	case err != nil || !parsed.Valid:
		return Identity{}, apperrors.Unauthorized(apperrors.ReasonInvalid, "Token verification failed, access denied")
	case c.Subject == "":
		return Identity{}, apperrors.Unauthorized(apperrors.ReasonInvalid, "Admin ID not found in token")
	}

	return Identity{AdminID: c.Subject, Username: c.Username, Role: c.Role}, nil
}

// BearerToken extracts the token from an Authorization header value.
// A malformed header yields a non-empty value that fails verification.
func BearerToken(header string) string {
	header = strings.TrimSpace(header)
	if header == "" || strings.EqualFold(header, "Bearer") {
		return ""
	}
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return header
	}
	return strings.TrimSpace(token)
}
