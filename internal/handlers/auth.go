// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers

import (
	"net/http"
	"time"

	"codeberg.org/oliverandrich/reflections-api/internal/auth"
	"codeberg.org/oliverandrich/reflections-api/internal/config"
	"codeberg.org/oliverandrich/reflections-api/internal/middleware"
	"codeberg.org/oliverandrich/reflections-api/internal/models"
	authsvc "codeberg.org/oliverandrich/reflections-api/internal/services/auth"
	"github.com/labstack/echo/v4"
)

// AuthHandlers contains handlers for authentication.
type AuthHandlers struct {
	service *authsvc.Service
	cfg     *config.AuthConfig
}

// NewAuth creates a new AuthHandlers instance.
func NewAuth(service *authsvc.Service, cfg *config.AuthConfig) *AuthHandlers {
	return &AuthHandlers{service: service, cfg: cfg}
}

// RegisterRequest is the request body for registration.
type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Register creates a new account and issues a session credential.
func (h *AuthHandlers) Register(c echo.Context) error {
	var req RegisterRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorBody("Invalid request body"))
	}

	account, err := h.service.Register(c.Request().Context(), authsvc.RegisterParams{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		return errorResponse(c, err)
	}

	return h.tokenResponse(c, http.StatusCreated, account)
}

// LoginRequest is the request body for login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login authenticates an account and issues a session credential.
func (h *AuthHandlers) Login(c echo.Context) error {
	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorBody("Invalid request body"))
	}

	account, err := h.service.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return errorResponse(c, err)
	}

	return h.tokenResponse(c, http.StatusOK, account)
}

// Logout instructs the client to discard its credential. Sessions are
// stateless, so the server keeps no revocation list; the cookie is
// overwritten with a short-lived sentinel value.
func (h *AuthHandlers) Logout(c echo.Context) error {
	c.SetCookie(&http.Cookie{
		Name:     h.cfg.CookieName,
		Value:    middleware.LoggedOutSentinel,
		Path:     "/",
		Expires:  time.Now().Add(10 * time.Second),
		HttpOnly: true,
		Secure:   h.cfg.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	return c.JSON(http.StatusOK, map[string]any{
		"success": true,
		"user":    map[string]any{},
	})
}

// Me returns the profile of the resolved identity.
func (h *AuthHandlers) Me(c echo.Context) error {
	identity := auth.GetIdentity(c.Request().Context())

	account, err := h.service.GetProfile(c.Request().Context(), identity.ID)
	if err != nil {
		return errorResponse(c, err)
	}

	return c.JSON(http.StatusOK, map[string]any{
		"success": true,
		"user":    account,
	})
}

// UpdateDetailsRequest is the request body for profile updates.
type UpdateDetailsRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// UpdateDetails updates name and email and re-issues the credential.
func (h *AuthHandlers) UpdateDetails(c echo.Context) error {
	var req UpdateDetailsRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorBody("Invalid request body"))
	}

	identity := auth.GetIdentity(c.Request().Context())

	account, err := h.service.UpdateDetails(c.Request().Context(), identity.ID, req.Name, req.Email)
	if err != nil {
		return errorResponse(c, err)
	}

	return h.tokenResponse(c, http.StatusOK, account)
}

// UpdatePasswordRequest is the request body for password changes.
type UpdatePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

// UpdatePassword changes the password and re-issues the credential.
func (h *AuthHandlers) UpdatePassword(c echo.Context) error {
	var req UpdatePasswordRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorBody("Invalid request body"))
	}

	identity := auth.GetIdentity(c.Request().Context())

	account, err := h.service.UpdatePassword(c.Request().Context(), identity.ID, req.CurrentPassword, req.NewPassword)
	if err != nil {
		return errorResponse(c, err)
	}

	return h.tokenResponse(c, http.StatusOK, account)
}

// ForgotPasswordRequest is the request body for reset requests.
type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

// ForgotPassword starts a password reset and mails the raw token.
func (h *AuthHandlers) ForgotPassword(c echo.Context) error {
	var req ForgotPasswordRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorBody("Invalid request body"))
	}

	if err := h.service.ForgotPassword(c.Request().Context(), req.Email); err != nil {
		return errorResponse(c, err)
	}

	return c.JSON(http.StatusOK, map[string]any{
		"success": true,
		"msg":     "Email sent",
	})
}

// ResetPasswordRequest is the request body for consuming a reset token.
type ResetPasswordRequest struct {
	NewPassword string `json:"newPassword"`
}

// ResetPassword consumes the reset token from the URL and issues a fresh
// credential for the account.
func (h *AuthHandlers) ResetPassword(c echo.Context) error {
	var req ResetPasswordRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorBody("Invalid request body"))
	}

	account, err := h.service.ResetPassword(c.Request().Context(), c.Param("resettoken"), req.NewPassword)
	if err != nil {
		return errorResponse(c, err)
	}

	return h.tokenResponse(c, http.StatusOK, account)
}

// Delete removes the account of the resolved identity.
func (h *AuthHandlers) Delete(c echo.Context) error {
	identity := auth.GetIdentity(c.Request().Context())

	if err := h.service.Delete(c.Request().Context(), identity.ID); err != nil {
		return errorResponse(c, err)
	}

	return c.NoContent(http.StatusNoContent)
}

// tokenResponse issues a fresh session credential, sets the auth cookie,
// and returns the sanitized account.
func (h *AuthHandlers) tokenResponse(c echo.Context, statusCode int, account *models.Account) error {
	token, err := h.service.IssueToken(account)
	if err != nil {
		return errorResponse(c, err)
	}

	c.SetCookie(&http.Cookie{
		Name:     h.cfg.CookieName,
		Value:    token,
		Path:     "/",
		Expires:  time.Now().Add(h.cfg.TokenExpiry),
		HttpOnly: true,
		Secure:   h.cfg.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	return c.JSON(statusCode, map[string]any{
		"success": true,
		"token":   token,
		"user":    account,
	})
}
