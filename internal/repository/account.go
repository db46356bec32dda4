// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"codeberg.org/oliverandrich/reflections-api/internal/models"
)

// ErrDuplicateEmail is returned when an insert finds the email already taken.
var ErrDuplicateEmail = errors.New("email already taken")

// CreateAccount inserts a new account. The insert is conflict-tolerant:
// a taken email yields no row instead of a constraint violation, and is
// reported as ErrDuplicateEmail.
func (r *Repository) CreateAccount(ctx context.Context, account *models.Account) (*models.Account, error) {
	var created models.Account
	err := r.db.GetContext(ctx, &created,
		`INSERT INTO accounts (id, name, email, password_hash, role, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (email) DO NOTHING
		 RETURNING *`,
		account.ID, account.Name, account.Email, account.PasswordHash, account.Role,
		account.CreatedAt, account.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrDuplicateEmail
		}
		return nil, err
	}
	return &created, nil
}

// GetAccountByID retrieves an account by its ID.
func (r *Repository) GetAccountByID(ctx context.Context, id string) (*models.Account, error) {
	var account models.Account
	err := r.db.GetContext(ctx, &account, `SELECT * FROM accounts WHERE id = ?`, id)
	if err != nil {
		return nil, wrapError(err)
	}
	return &account, nil
}

// GetAccountByEmail retrieves an account by its normalized email address.
func (r *Repository) GetAccountByEmail(ctx context.Context, email string) (*models.Account, error) {
	var account models.Account
	err := r.db.GetContext(ctx, &account, `SELECT * FROM accounts WHERE email = ?`, email)
	if err != nil {
		return nil, wrapError(err)
	}
	return &account, nil
}

// UpdateAccountDetails updates name and email and returns the updated row.
func (r *Repository) UpdateAccountDetails(ctx context.Context, id, name, email string) (*models.Account, error) {
	var account models.Account
	err := r.db.GetContext(ctx, &account,
		`UPDATE accounts SET name = ?, email = ?, updated_at = ? WHERE id = ? RETURNING *`,
		name, email, time.Now().UTC(), id)
	if err != nil {
		return nil, wrapError(err)
	}
	return &account, nil
}

// UpdateAccountPassword replaces the stored password digest.
func (r *Repository) UpdateAccountPassword(ctx context.Context, id, passwordHash string) (*models.Account, error) {
	var account models.Account
	err := r.db.GetContext(ctx, &account,
		`UPDATE accounts SET password_hash = ?, updated_at = ? WHERE id = ? RETURNING *`,
		passwordHash, time.Now().UTC(), id)
	if err != nil {
		return nil, wrapError(err)
	}
	return &account, nil
}

// SetResetToken stores a reset-token digest and its expiry against the
// account with the given email. Both columns are set together.
func (r *Repository) SetResetToken(ctx context.Context, email, tokenHash string, expiresAt time.Time) (*models.Account, error) {
	var account models.Account
	err := r.db.GetContext(ctx, &account,
		`UPDATE accounts SET password_reset_token = ?, password_reset_expires = ?, updated_at = ?
		 WHERE email = ? RETURNING *`,
		tokenHash, expiresAt, time.Now().UTC(), email)
	if err != nil {
		return nil, wrapError(err)
	}
	return &account, nil
}

// ClearResetToken clears a pending reset. Both columns are cleared together.
func (r *Repository) ClearResetToken(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE accounts SET password_reset_token = NULL, password_reset_expires = NULL, updated_at = ?
		 WHERE id = ?`,
		time.Now().UTC(), id)
	return err
}

// ConsumeResetToken atomically stores the new password digest and clears
// the reset columns for the account whose stored digest matches and whose
// expiry is still in the future. Returns ErrNotFound when no such account
// exists, whether the digest is unknown, already consumed, or expired.
func (r *Repository) ConsumeResetToken(ctx context.Context, tokenHash, passwordHash string) (*models.Account, error) {
	var account models.Account
	err := r.db.GetContext(ctx, &account,
		`UPDATE accounts
		 SET password_hash = ?, password_reset_token = NULL, password_reset_expires = NULL, updated_at = ?
		 WHERE password_reset_token = ? AND password_reset_expires > ?
		 RETURNING *`,
		passwordHash, time.Now().UTC(), tokenHash, time.Now().UTC())
	if err != nil {
		return nil, wrapError(err)
	}
	return &account, nil
}

// DeleteAccount deletes an account by ID.
func (r *Repository) DeleteAccount(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM accounts WHERE id = ?`, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
