// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package token issues and verifies signed bearer tokens.
package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const issuer = "reflections-api"

// ErrInvalidToken is returned for every verification failure. Callers
// cannot tell a bad signature from a malformed or expired token.
var ErrInvalidToken = errors.New("invalid or expired token")

// Claims are the JWT claims carried by a session credential.
type Claims struct {
	jwt.RegisteredClaims
}

// Service issues and verifies HS256-signed tokens. The secret and expiry
// are fixed at startup; rotating the secret invalidates all issued tokens.
type Service struct {
	secret []byte
	expiry time.Duration
}

// NewService creates a token service from the process configuration.
func NewService(secret string, expiry time.Duration) *Service {
	return &Service{secret: []byte(secret), expiry: expiry}
}

// Issue produces a signed token embedding the subject and an expiry.
func (s *Service) Issue(subjectID string) (string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   subjectID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.expiry)),
		},
	}

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(s.secret)
}

// Verify parses and validates a token and returns its subject.
func (s *Service) Verify(tokenString string) (string, error) {
	t, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return s.secret, nil
	}, jwt.WithIssuer(issuer))
	if err != nil {
		return "", ErrInvalidToken
	}

	claims, ok := t.Claims.(*Claims)
	if !ok || !t.Valid || claims.Subject == "" {
		return "", ErrInvalidToken
	}

	return claims.Subject, nil
}
