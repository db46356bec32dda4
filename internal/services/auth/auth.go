// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package auth orchestrates registration, login, and the password flows.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"codeberg.org/oliverandrich/reflections-api/internal/models"
	"codeberg.org/oliverandrich/reflections-api/internal/repository"
	"codeberg.org/oliverandrich/reflections-api/internal/services/password"
	"codeberg.org/oliverandrich/reflections-api/internal/services/reset"
	"codeberg.org/oliverandrich/reflections-api/internal/services/token"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrEmailTaken         = errors.New("email already taken")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrEmailNotFound      = errors.New("no account with this email")
	ErrDeliveryFailed     = errors.New("email could not be sent")
	ErrNotFound           = errors.New("account not found")
)

// dummyHash is used for constant-time login to prevent timing attacks
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("dummy-password-for-timing"), bcrypt.DefaultCost)

// Mailer delivers the raw reset token out-of-band.
type Mailer interface {
	SendPasswordReset(ctx context.Context, toEmail, rawToken string) error
}

// Service orchestrates the authentication flows.
type Service struct {
	repo      *repository.Repository
	passwords *password.Codec
	tokens    *token.Service
	resets    *reset.Manager
	mailer    Mailer
}

// NewService creates a new auth service.
func NewService(repo *repository.Repository, passwords *password.Codec, tokens *token.Service, resets *reset.Manager, mailer Mailer) *Service {
	return &Service{
		repo:      repo,
		passwords: passwords,
		tokens:    tokens,
		resets:    resets,
		mailer:    mailer,
	}
}

// IssueToken produces a fresh session credential for the account.
func (s *Service) IssueToken(account *models.Account) (string, error) {
	return s.tokens.Issue(account.ID)
}

// RegisterParams holds the parameters for account registration.
type RegisterParams struct {
	Name     string
	Email    string
	Password string
}

// Register creates a new account and returns it. Duplicate emails are
// detected via the conflict-tolerant insert, not a constraint violation.
func (s *Service) Register(ctx context.Context, params RegisterParams) (*models.Account, error) {
	if params.Name == "" || params.Email == "" || params.Password == "" {
		return nil, &ValidationError{Message: "Some values are missing"}
	}

	name, err := NormalizeName(params.Name)
	if err != nil {
		return nil, err
	}
	email, err := NormalizeEmail(params.Email)
	if err != nil {
		return nil, err
	}
	if err := ValidatePassword(params.Password); err != nil {
		return nil, err
	}

	passwordHash, err := s.passwords.Hash(params.Password)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	account := &models.Account{
		ID:           uuid.NewString(),
		Name:         name,
		Email:        email,
		PasswordHash: passwordHash,
		Role:         models.RoleUser,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	created, err := s.repo.CreateAccount(ctx, account)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			slog.Warn("register_failed", "email", email, "reason", "email_taken")
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("failed to create account: %w", err)
	}

	slog.Info("register_success", "account_id", created.ID, "email", email)
	return created, nil
}

// Login authenticates an account by email and password. Unknown email and
// wrong password fail identically.
func (s *Service) Login(ctx context.Context, email, password string) (*models.Account, error) {
	if email == "" || password == "" {
		return nil, &ValidationError{Message: "Please provide email and password"}
	}

	email, err := NormalizeEmail(email)
	if err != nil {
		return nil, err
	}

	account, err := s.repo.GetAccountByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// Constant-time: always perform bcrypt comparison to prevent timing attacks
			_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
			slog.Warn("login_failed", "email", email, "reason", "account_not_found")
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to get account: %w", err)
	}

	if !s.passwords.Verify(password, account.PasswordHash) {
		slog.Warn("login_failed", "email", email, "reason", "invalid_password")
		return nil, ErrInvalidCredentials
	}

	slog.Info("login_success", "account_id", account.ID, "email", email)
	return account, nil
}

// GetProfile returns the account for a resolved identity.
func (s *Service) GetProfile(ctx context.Context, accountID string) (*models.Account, error) {
	account, err := s.repo.GetAccountByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return account, nil
}

// UpdateDetails updates name and email. Empty values keep the current
// ones. The caller re-issues the session credential afterwards since the
// identity claims may have changed.
func (s *Service) UpdateDetails(ctx context.Context, accountID, name, email string) (*models.Account, error) {
	account, err := s.GetProfile(ctx, accountID)
	if err != nil {
		return nil, err
	}

	if name == "" {
		name = account.Name
	}
	if email == "" {
		email = account.Email
	}

	name, err = NormalizeName(name)
	if err != nil {
		return nil, err
	}
	email, err = NormalizeEmail(email)
	if err != nil {
		return nil, err
	}

	updated, err := s.repo.UpdateAccountDetails(ctx, accountID, name, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to update account: %w", err)
	}

	slog.Info("details_updated", "account_id", accountID)
	return updated, nil
}

// UpdatePassword changes the password of an account that knows its
// current password.
func (s *Service) UpdatePassword(ctx context.Context, accountID, currentPassword, newPassword string) (*models.Account, error) {
	account, err := s.GetProfile(ctx, accountID)
	if err != nil {
		return nil, err
	}

	if !s.passwords.Verify(currentPassword, account.PasswordHash) {
		slog.Warn("password_update_failed", "account_id", accountID, "reason", "invalid_password")
		return nil, ErrInvalidCredentials
	}

	if err := ValidatePassword(newPassword); err != nil {
		return nil, err
	}

	passwordHash, err := s.passwords.Hash(newPassword)
	if err != nil {
		return nil, err
	}

	updated, err := s.repo.UpdateAccountPassword(ctx, accountID, passwordHash)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to update password: %w", err)
	}

	slog.Info("password_updated", "account_id", accountID)
	return updated, nil
}

// ForgotPassword starts a password reset and mails the raw token. When
// delivery fails the pending reset is rolled back so an undeliverable
// token cannot later be used.
func (s *Service) ForgotPassword(ctx context.Context, email string) error {
	email, err := NormalizeEmail(email)
	if err != nil {
		return err
	}

	rawToken, account, err := s.resets.Request(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			slog.Warn("password_reset_requested", "email", email, "reason", "account_not_found")
			return ErrEmailNotFound
		}
		return fmt.Errorf("failed to request reset: %w", err)
	}

	if err := s.mailer.SendPasswordReset(ctx, account.Email, rawToken); err != nil {
		slog.Error("password_reset_mail_failed", "account_id", account.ID, "error", err)
		if clearErr := s.resets.Clear(ctx, account.ID); clearErr != nil {
			slog.Error("password_reset_rollback_failed", "account_id", account.ID, "error", clearErr)
		}
		return ErrDeliveryFailed
	}

	slog.Info("password_reset_requested", "account_id", account.ID)
	return nil
}

// ResetPassword consumes a reset token and stores the new password.
func (s *Service) ResetPassword(ctx context.Context, rawToken, newPassword string) (*models.Account, error) {
	if err := ValidatePassword(newPassword); err != nil {
		return nil, err
	}

	account, err := s.resets.Consume(ctx, rawToken, newPassword)
	if err != nil {
		if errors.Is(err, reset.ErrInvalidOrExpired) {
			slog.Warn("password_reset_failed", "reason", "invalid_or_expired")
			return nil, err
		}
		return nil, fmt.Errorf("failed to consume reset token: %w", err)
	}

	slog.Info("password_reset_success", "account_id", account.ID)
	return account, nil
}

// Delete removes an account.
func (s *Service) Delete(ctx context.Context, accountID string) error {
	if err := s.repo.DeleteAccount(ctx, accountID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to delete account: %w", err)
	}

	slog.Info("account_deleted", "account_id", accountID)
	return nil
}
