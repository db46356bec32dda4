// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	authsvc "codeberg.org/oliverandrich/reflections-api/internal/services/auth"
	"codeberg.org/oliverandrich/reflections-api/internal/services/reset"
	"github.com/labstack/echo/v4"
)

// errorResponse converts a service error into a JSON error body with the
// matching status code. Unexpected errors surface as a generic 500.
func errorResponse(c echo.Context, err error) error {
	var validationErr *authsvc.ValidationError
	if errors.As(err, &validationErr) {
		return c.JSON(http.StatusBadRequest, errorBody(validationErr.Message))
	}

	switch {
	case errors.Is(err, authsvc.ErrEmailTaken):
		return c.JSON(http.StatusConflict, errorBody("Cannot register with this email"))
	case errors.Is(err, authsvc.ErrInvalidCredentials):
		return c.JSON(http.StatusUnauthorized, errorBody("The credentials you provided are incorrect"))
	case errors.Is(err, reset.ErrInvalidOrExpired):
		return c.JSON(http.StatusBadRequest, errorBody("Invalid or expired token"))
	case errors.Is(err, authsvc.ErrEmailNotFound):
		return c.JSON(http.StatusNotFound, errorBody("There is no account with this email address"))
	case errors.Is(err, authsvc.ErrNotFound):
		return c.JSON(http.StatusNotFound, errorBody("Account not found"))
	case errors.Is(err, authsvc.ErrDeliveryFailed):
		return c.JSON(http.StatusInternalServerError, errorBody("Email could not be sent"))
	default:
		slog.Error("request_failed", "method", c.Request().Method, "uri", c.Request().RequestURI, "error", err)
		return c.JSON(http.StatusInternalServerError, errorBody("Internal server error"))
	}
}

func errorBody(message string) map[string]any {
	return map[string]any{
		"success": false,
		"error":   message,
	}
}
