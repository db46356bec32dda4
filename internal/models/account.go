// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package models

import "time"

// Account roles.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// Account represents a registered user. Email is stored normalized
// (trimmed, lowercased) and is unique case-insensitively.
type Account struct { //nolint:govet // fieldalignment: readability over optimization
	ID                   string     `db:"id" json:"id"`
	Name                 string     `db:"name" json:"name"`
	Email                string     `db:"email" json:"email"`
	PasswordHash         string     `db:"password_hash" json:"-"`
	Role                 string     `db:"role" json:"role"`
	PasswordResetToken   *string    `db:"password_reset_token" json:"-"` // SHA256 hex digest
	PasswordResetExpires *time.Time `db:"password_reset_expires" json:"-"`
	CreatedAt            time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt            time.Time  `db:"updated_at" json:"updated_at"`
}

// HasPendingReset reports whether a password reset is in flight.
// Both reset columns are set together and cleared together.
func (a *Account) HasPendingReset() bool {
	return a.PasswordResetToken != nil && a.PasswordResetExpires != nil
}
