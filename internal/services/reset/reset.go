// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package reset manages the password-reset token lifecycle.
//
// Only the SHA256 digest of a reset token is ever persisted; the raw
// token travels out-of-band to the account holder and back. A pending
// reset is encoded entirely in the two nullable columns of the account
// row: no reset pending (both null), reset pending (both set), and back
// to none once the token is consumed, cleared, or left to expire.
package reset

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"codeberg.org/oliverandrich/reflections-api/internal/models"
	"codeberg.org/oliverandrich/reflections-api/internal/repository"
	"codeberg.org/oliverandrich/reflections-api/internal/services/password"
)

const (
	// TokenLength is the number of random bytes in a raw reset token.
	TokenLength = 32
	// DefaultExpiry is how long reset tokens are valid.
	DefaultExpiry = 10 * time.Minute
)

// ErrInvalidOrExpired is returned for every failed consume attempt,
// whether the token is unknown, already consumed, or expired.
var ErrInvalidOrExpired = errors.New("invalid or expired reset token")

// Manager generates, validates, and consumes password-reset tokens.
type Manager struct {
	repo      *repository.Repository
	passwords *password.Codec
	expiry    time.Duration
}

// NewManager creates a reset-token manager. A non-positive expiry falls
// back to DefaultExpiry.
func NewManager(repo *repository.Repository, passwords *password.Codec, expiry time.Duration) *Manager {
	if expiry <= 0 {
		expiry = DefaultExpiry
	}
	return &Manager{repo: repo, passwords: passwords, expiry: expiry}
}

// HashToken computes the SHA256 hex digest of a raw token. Reset tokens
// are high-entropy and single-use, so a fast deterministic hash is
// sufficient here, unlike password digests.
func HashToken(token string) string {
	digest := sha256.Sum256([]byte(token))
	return hex.EncodeToString(digest[:])
}

// GenerateToken generates a new raw reset token.
// Returns (plaintext token, SHA256 hash for storage, expiry time, error).
func (m *Manager) GenerateToken() (string, string, time.Time, error) {
	bytes := make([]byte, TokenLength)
	if _, err := rand.Read(bytes); err != nil {
		return "", "", time.Time{}, fmt.Errorf("failed to generate random bytes: %w", err)
	}

	plaintext := hex.EncodeToString(bytes)
	hash := HashToken(plaintext)
	expiresAt := time.Now().UTC().Add(m.expiry)

	return plaintext, hash, expiresAt, nil
}

// Request starts a password reset for the account with the given
// normalized email. It persists the token digest and expiry and returns
// the raw token for out-of-band delivery, together with the account.
// Returns repository.ErrNotFound when no account has that email.
func (m *Manager) Request(ctx context.Context, email string) (string, *models.Account, error) {
	rawToken, tokenHash, expiresAt, err := m.GenerateToken()
	if err != nil {
		return "", nil, err
	}

	account, err := m.repo.SetResetToken(ctx, email, tokenHash, expiresAt)
	if err != nil {
		return "", nil, err
	}

	return rawToken, account, nil
}

// Consume exchanges a raw reset token for a password change. The new
// password digest is stored and the reset columns are cleared in a
// single atomic write, so a token can be consumed at most once.
func (m *Manager) Consume(ctx context.Context, rawToken, newPassword string) (*models.Account, error) {
	passwordHash, err := m.passwords.Hash(newPassword)
	if err != nil {
		return nil, err
	}

	account, err := m.repo.ConsumeResetToken(ctx, HashToken(rawToken), passwordHash)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidOrExpired
		}
		return nil, err
	}

	return account, nil
}

// Clear rolls back a pending reset, e.g. when delivery of the raw token
// failed. A stale token that was never delivered must not stay guessable.
func (m *Manager) Clear(ctx context.Context, accountID string) error {
	return m.repo.ClearResetToken(ctx, accountID)
}
