// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package middleware provides echo middleware for the API.
package middleware

import (
	"context"
	"net/http"
	"slices"
	"strings"

	"codeberg.org/oliverandrich/reflections-api/internal/auth"
	"codeberg.org/oliverandrich/reflections-api/internal/models"
	"github.com/labstack/echo/v4"
)

// LoggedOutSentinel is the cookie value written on logout. It is never a
// valid token and is ignored during extraction.
const LoggedOutSentinel = "loggedout"

// AccountLoader is an interface for loading full account data.
type AccountLoader interface {
	GetAccountByID(ctx context.Context, id string) (*models.Account, error)
}

// TokenVerifier verifies a bearer token and returns its subject.
type TokenVerifier interface {
	Verify(tokenString string) (string, error)
}

// Authenticate resolves the bearer credential of a request into an
// authenticated identity or rejects the request with 401. The account is
// re-fetched so tokens of deleted accounts stop working and the current
// role is used.
func Authenticate(tokens TokenVerifier, accounts AccountLoader, cookieName string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			tokenString := extractToken(c, cookieName)
			if tokenString == "" {
				return unauthenticated()
			}

			subjectID, err := tokens.Verify(tokenString)
			if err != nil {
				return unauthenticated()
			}

			account, err := accounts.GetAccountByID(c.Request().Context(), subjectID)
			if err != nil {
				return unauthenticated()
			}

			identity := &auth.Identity{
				ID:    account.ID,
				Email: account.Email,
				Role:  account.Role,
			}
			ctx := auth.SetIdentity(c.Request().Context(), identity)
			c.SetRequest(c.Request().WithContext(ctx))

			return next(c)
		}
	}
}

// RequireRoles ensures the resolved identity has one of the given roles.
func RequireRoles(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			identity := auth.GetIdentity(c.Request().Context())
			if identity == nil {
				return unauthenticated()
			}
			if !slices.Contains(roles, identity.Role) {
				return echo.NewHTTPError(http.StatusForbidden, "You are not authorized to access this route")
			}
			return next(c)
		}
	}
}

// extractToken pulls the bearer token from the Authorization header or,
// failing that, from the auth cookie. The header wins if both are present.
func extractToken(c echo.Context, cookieName string) string {
	header := c.Request().Header.Get(echo.HeaderAuthorization)
	if token, found := strings.CutPrefix(header, "Bearer "); found && token != "" {
		return token
	}

	cookie, err := c.Cookie(cookieName)
	if err != nil {
		return ""
	}
	if cookie.Value == LoggedOutSentinel {
		return ""
	}
	return cookie.Value
}

// unauthenticated returns the uniform 401 error. Missing, malformed,
// expired, and forged credentials are indistinguishable to the caller.
func unauthenticated() error {
	return echo.NewHTTPError(http.StatusUnauthorized, "Not authorized to access this route")
}
