// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package auth

import (
	"net/mail"
	"strings"
)

// MinPasswordLength is the minimum accepted password length.
const MinPasswordLength = 8

// MinNameLength is the minimum accepted display-name length.
const MinNameLength = 2

// ValidationError reports malformed or missing input.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// NormalizeEmail trims and lowercases an email address and validates its
// syntax.
func NormalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if _, err := mail.ParseAddress(email); err != nil {
		return "", &ValidationError{Message: "Please enter a valid email address"}
	}
	return email, nil
}

// NormalizeName trims a display name and checks its minimum length.
func NormalizeName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if len(name) < MinNameLength {
		return "", &ValidationError{Message: "Please enter a valid name"}
	}
	return name, nil
}

// ValidatePassword enforces the password strength policy.
func ValidatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return &ValidationError{Message: "Please enter at least 8 characters of password"}
	}
	return nil
}
