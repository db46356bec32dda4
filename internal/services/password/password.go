// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package password hashes and verifies account passwords.
package password

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// MinCost is the lowest bcrypt cost the codec accepts.
const MinCost = 10

// Codec hashes and verifies passwords with bcrypt. Plaintext passwords
// never leave this package.
type Codec struct {
	cost int
}

// NewCodec creates a Codec with the given bcrypt cost. Costs below
// MinCost are raised to MinCost.
func NewCodec(cost int) *Codec {
	if cost < MinCost {
		cost = MinCost
	}
	return &Codec{cost: cost}
}

// Hash produces a salted one-way digest of the plaintext. The salt is
// random per call, so two hashes of the same input differ.
func (c *Codec) Hash(plaintext string) (string, error) {
	digest, err := bcrypt.GenerateFromPassword([]byte(plaintext), c.cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(digest), nil
}

// Verify reports whether the plaintext matches the digest. Malformed
// digests verify as false, never as an error.
func (c *Codec) Verify(plaintext, digest string) bool {
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(plaintext)) == nil
}
