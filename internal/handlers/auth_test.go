// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"codeberg.org/oliverandrich/reflections-api/internal/auth"
	"codeberg.org/oliverandrich/reflections-api/internal/config"
	"codeberg.org/oliverandrich/reflections-api/internal/handlers"
	"codeberg.org/oliverandrich/reflections-api/internal/models"
	"codeberg.org/oliverandrich/reflections-api/internal/repository"
	authsvc "codeberg.org/oliverandrich/reflections-api/internal/services/auth"
	"codeberg.org/oliverandrich/reflections-api/internal/services/password"
	"codeberg.org/oliverandrich/reflections-api/internal/services/reset"
	"codeberg.org/oliverandrich/reflections-api/internal/services/token"
	"codeberg.org/oliverandrich/reflections-api/internal/testutil"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMailer struct {
	rawToken string
	err      error
}

func (m *fakeMailer) SendPasswordReset(_ context.Context, _, rawToken string) error {
	if m.err != nil {
		return m.err
	}
	m.rawToken = rawToken
	return nil
}

func newTestAuthHandlers(t *testing.T) (*handlers.AuthHandlers, *authsvc.Service, *repository.Repository, *fakeMailer) {
	t.Helper()
	_, repo := testutil.NewTestDB(t)
	codec := password.NewCodec(password.MinCost)
	tokens := token.NewService("test-secret", time.Hour)
	resets := reset.NewManager(repo, codec, time.Minute)
	mailer := &fakeMailer{}
	service := authsvc.NewService(repo, codec, tokens, resets, mailer)

	cfg := &config.AuthConfig{
		JWTSecret:   "test-secret",
		TokenExpiry: time.Hour,
		BcryptCost:  password.MinCost,
		CookieName:  "auth_token",
	}
	return handlers.NewAuth(service, cfg), service, repo, mailer
}

func registerAccount(t *testing.T, service *authsvc.Service, email string) *models.Account {
	t.Helper()
	account, err := service.Register(context.Background(), authsvc.RegisterParams{
		Name:     "Jane Doe",
		Email:    email,
		Password: "password123",
	})
	require.NoError(t, err)
	return account
}

// withIdentity injects a resolved identity the way the auth middleware does.
func withIdentity(c echo.Context, account *models.Account) {
	identity := &auth.Identity{ID: account.ID, Email: account.Email, Role: account.Role}
	c.SetRequest(c.Request().WithContext(auth.SetIdentity(c.Request().Context(), identity)))
}

func authCookie(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, cookie := range rec.Result().Cookies() {
		if cookie.Name == name {
			return cookie
		}
	}
	return nil
}

func TestRegister(t *testing.T) {
	h, _, _, _ := newTestAuthHandlers(t)

	e := echo.New()
	body := strings.NewReader(`{"name":"Jane Doe","email":"Jane@Example.com","password":"password123"}`)
	c, rec := testutil.NewEchoContext(e, http.MethodPost, "/api/v1/auth/register", body)

	require.NoError(t, h.Register(c))

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), `"token"`)
	assert.Contains(t, rec.Body.String(), `"jane@example.com"`)
	assert.NotContains(t, rec.Body.String(), "password_hash")

	cookie := authCookie(rec, "auth_token")
	require.NotNil(t, cookie)
	assert.True(t, cookie.HttpOnly)
	assert.NotEmpty(t, cookie.Value)
}

func TestRegisterEmailTaken(t *testing.T) {
	h, service, _, _ := newTestAuthHandlers(t)
	registerAccount(t, service, "jane@example.com")

	e := echo.New()
	body := strings.NewReader(`{"name":"Other","email":"JANE@example.com","password":"password123"}`)
	c, rec := testutil.NewEchoContext(e, http.MethodPost, "/api/v1/auth/register", body)

	require.NoError(t, h.Register(c))

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestRegisterWeakPassword(t *testing.T) {
	h, _, _, _ := newTestAuthHandlers(t)

	e := echo.New()
	body := strings.NewReader(`{"name":"Jane Doe","email":"jane@example.com","password":"seven77"}`)
	c, rec := testutil.NewEchoContext(e, http.MethodPost, "/api/v1/auth/register", body)

	require.NoError(t, h.Register(c))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLogin(t *testing.T) {
	h, service, _, _ := newTestAuthHandlers(t)
	registerAccount(t, service, "jane@example.com")

	e := echo.New()
	body := strings.NewReader(`{"email":"jane@example.com","password":"password123"}`)
	c, rec := testutil.NewEchoContext(e, http.MethodPost, "/api/v1/auth/login", body)

	require.NoError(t, h.Login(c))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"token"`)
}

// Wrong password and unknown email produce the same status and body.
func TestLoginFailsUniformly(t *testing.T) {
	h, service, _, _ := newTestAuthHandlers(t)
	registerAccount(t, service, "jane@example.com")

	e := echo.New()

	body := strings.NewReader(`{"email":"jane@example.com","password":"wrong password"}`)
	c, wrongPassword := testutil.NewEchoContext(e, http.MethodPost, "/api/v1/auth/login", body)
	require.NoError(t, h.Login(c))

	body = strings.NewReader(`{"email":"nobody@example.com","password":"password123"}`)
	c, unknownEmail := testutil.NewEchoContext(e, http.MethodPost, "/api/v1/auth/login", body)
	require.NoError(t, h.Login(c))

	assert.Equal(t, http.StatusUnauthorized, wrongPassword.Code)
	assert.Equal(t, wrongPassword.Code, unknownEmail.Code)
	assert.Equal(t, wrongPassword.Body.String(), unknownEmail.Body.String())
}

func TestLogout(t *testing.T) {
	h, service, _, _ := newTestAuthHandlers(t)
	account := registerAccount(t, service, "jane@example.com")

	e := echo.New()
	c, rec := testutil.NewEchoContext(e, http.MethodGet, "/api/v1/auth/logout", nil)
	withIdentity(c, account)

	require.NoError(t, h.Logout(c))

	assert.Equal(t, http.StatusOK, rec.Code)
	cookie := authCookie(rec, "auth_token")
	require.NotNil(t, cookie)
	assert.Equal(t, "loggedout", cookie.Value)
	assert.True(t, cookie.Expires.Before(time.Now().Add(time.Minute)))
}

func TestMe(t *testing.T) {
	h, service, _, _ := newTestAuthHandlers(t)
	account := registerAccount(t, service, "jane@example.com")

	e := echo.New()
	c, rec := testutil.NewEchoContext(e, http.MethodGet, "/api/v1/auth/me", nil)
	withIdentity(c, account)

	require.NoError(t, h.Me(c))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"jane@example.com"`)
	assert.NotContains(t, rec.Body.String(), "password_hash")
}

func TestUpdateDetails(t *testing.T) {
	h, service, _, _ := newTestAuthHandlers(t)
	account := registerAccount(t, service, "jane@example.com")

	e := echo.New()
	body := strings.NewReader(`{"email":"new@example.com"}`)
	c, rec := testutil.NewEchoContext(e, http.MethodPut, "/api/v1/auth/updatedetails", body)
	withIdentity(c, account)

	require.NoError(t, h.UpdateDetails(c))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"new@example.com"`)
	// Identity claims may have changed, so a fresh credential is issued.
	assert.Contains(t, rec.Body.String(), `"token"`)
}

func TestUpdateDetailsInvalidEmail(t *testing.T) {
	h, service, _, _ := newTestAuthHandlers(t)
	account := registerAccount(t, service, "jane@example.com")

	e := echo.New()
	body := strings.NewReader(`{"email":"not-an-email"}`)
	c, rec := testutil.NewEchoContext(e, http.MethodPut, "/api/v1/auth/updatedetails", body)
	withIdentity(c, account)

	require.NoError(t, h.UpdateDetails(c))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdatePassword(t *testing.T) {
	h, service, _, _ := newTestAuthHandlers(t)
	account := registerAccount(t, service, "jane@example.com")

	e := echo.New()
	body := strings.NewReader(`{"currentPassword":"wrong","newPassword":"new password 1"}`)
	c, rec := testutil.NewEchoContext(e, http.MethodPut, "/api/v1/auth/updatepassword", body)
	withIdentity(c, account)
	require.NoError(t, h.UpdatePassword(c))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	body = strings.NewReader(`{"currentPassword":"password123","newPassword":"new password 1"}`)
	c, rec = testutil.NewEchoContext(e, http.MethodPut, "/api/v1/auth/updatepassword", body)
	withIdentity(c, account)
	require.NoError(t, h.UpdatePassword(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"token"`)
}

func TestForgotPassword(t *testing.T) {
	h, service, _, mailer := newTestAuthHandlers(t)
	registerAccount(t, service, "jane@example.com")

	e := echo.New()
	body := strings.NewReader(`{"email":"jane@example.com"}`)
	c, rec := testutil.NewEchoContext(e, http.MethodPost, "/api/v1/auth/forgotpassword", body)

	require.NoError(t, h.ForgotPassword(c))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Email sent")
	assert.NotEmpty(t, mailer.rawToken)
}

func TestForgotPasswordUnknownEmail(t *testing.T) {
	h, _, _, _ := newTestAuthHandlers(t)

	e := echo.New()
	body := strings.NewReader(`{"email":"nobody@example.com"}`)
	c, rec := testutil.NewEchoContext(e, http.MethodPost, "/api/v1/auth/forgotpassword", body)

	require.NoError(t, h.ForgotPassword(c))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestForgotPasswordDeliveryFailure(t *testing.T) {
	h, service, _, mailer := newTestAuthHandlers(t)
	registerAccount(t, service, "jane@example.com")
	mailer.err = errors.New("smtp is down")

	e := echo.New()
	body := strings.NewReader(`{"email":"jane@example.com"}`)
	c, rec := testutil.NewEchoContext(e, http.MethodPost, "/api/v1/auth/forgotpassword", body)

	require.NoError(t, h.ForgotPassword(c))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestResetPassword(t *testing.T) {
	h, service, _, mailer := newTestAuthHandlers(t)
	registerAccount(t, service, "jane@example.com")
	require.NoError(t, service.ForgotPassword(context.Background(), "jane@example.com"))

	e := echo.New()
	body := strings.NewReader(`{"newPassword":"reset password 1"}`)
	c, rec := testutil.NewEchoContext(e, http.MethodPut, "/api/v1/auth/resetpassword/"+mailer.rawToken, body)
	c.SetParamNames("resettoken")
	c.SetParamValues(mailer.rawToken)

	require.NoError(t, h.ResetPassword(c))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"token"`)

	_, err := service.Login(context.Background(), "jane@example.com", "reset password 1")
	assert.NoError(t, err)
}

func TestResetPasswordInvalidToken(t *testing.T) {
	h, _, _, _ := newTestAuthHandlers(t)

	e := echo.New()
	body := strings.NewReader(`{"newPassword":"reset password 1"}`)
	c, rec := testutil.NewEchoContext(e, http.MethodPut, "/api/v1/auth/resetpassword/bogus", body)
	c.SetParamNames("resettoken")
	c.SetParamValues("bogus")

	require.NoError(t, h.ResetPassword(c))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDelete(t *testing.T) {
	h, service, repo, _ := newTestAuthHandlers(t)
	account := registerAccount(t, service, "jane@example.com")

	e := echo.New()
	c, rec := testutil.NewEchoContext(e, http.MethodDelete, "/api/v1/auth/me", nil)
	withIdentity(c, account)

	require.NoError(t, h.Delete(c))

	assert.Equal(t, http.StatusNoContent, rec.Code)
	_, err := repo.GetAccountByID(context.Background(), account.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestHealth(t *testing.T) {
	e := echo.New()
	c, rec := testutil.NewEchoContext(e, http.MethodGet, "/health", nil)

	require.NoError(t, handlers.Health(c))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ok")
}
