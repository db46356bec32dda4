// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package auth provides authentication context helpers.
package auth

import (
	"context"

	"codeberg.org/oliverandrich/reflections-api/internal/ctxkeys"
)

// Identity is the resolved identity of an authenticated request. It never
// carries the password digest.
type Identity struct {
	ID    string
	Email string
	Role  string
}

// SetIdentity returns a context carrying the authenticated identity.
func SetIdentity(ctx context.Context, identity *Identity) context.Context {
	return context.WithValue(ctx, ctxkeys.Identity{}, identity)
}

// GetIdentity returns the authenticated identity from the context, or nil
// if not authenticated.
func GetIdentity(ctx context.Context) *Identity {
	if identity, ok := ctx.Value(ctxkeys.Identity{}).(*Identity); ok {
		return identity
	}
	return nil
}

// IsAuthenticated returns true if the context has an authenticated identity.
func IsAuthenticated(ctx context.Context) bool {
	return GetIdentity(ctx) != nil
}
