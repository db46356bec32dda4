// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package repository_test

import (
	"context"
	"testing"
	"time"

	"codeberg.org/oliverandrich/reflections-api/internal/models"
	"codeberg.org/oliverandrich/reflections-api/internal/repository"
	"codeberg.org/oliverandrich/reflections-api/internal/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	_, repo := testutil.NewTestDB(t)

	assert.NotNil(t, repo)
}

func TestCreateAccount(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	now := time.Now().UTC()
	created, err := repo.CreateAccount(ctx, &models.Account{
		ID:           uuid.NewString(),
		Name:         "Jane Doe",
		Email:        "jane@example.com",
		PasswordHash: "digest",
		Role:         models.RoleUser,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	require.NoError(t, err)
	assert.Equal(t, "jane@example.com", created.Email)
	assert.Equal(t, models.RoleUser, created.Role)
	assert.Nil(t, created.PasswordResetToken)
}

func TestCreateAccountDuplicateEmail(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()
	testutil.NewTestAccount(t, repo, "jane@example.com", "password123")

	now := time.Now().UTC()
	_, err := repo.CreateAccount(ctx, &models.Account{
		ID:           uuid.NewString(),
		Name:         "Impostor",
		Email:        "jane@example.com",
		PasswordHash: "digest",
		Role:         models.RoleUser,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	assert.ErrorIs(t, err, repository.ErrDuplicateEmail)
}

func TestGetAccountByEmail(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()
	created := testutil.NewTestAccount(t, repo, "jane@example.com", "password123")

	account, err := repo.GetAccountByEmail(ctx, "jane@example.com")
	require.NoError(t, err)
	assert.Equal(t, created.ID, account.ID)

	_, err = repo.GetAccountByEmail(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestUpdateAccountDetails(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()
	created := testutil.NewTestAccount(t, repo, "jane@example.com", "password123")

	updated, err := repo.UpdateAccountDetails(ctx, created.ID, "New Name", "new@example.com")
	require.NoError(t, err)
	assert.Equal(t, "New Name", updated.Name)
	assert.Equal(t, "new@example.com", updated.Email)

	_, err = repo.UpdateAccountDetails(ctx, "missing-id", "Name", "a@b.com")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestSetAndClearResetToken(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()
	created := testutil.NewTestAccount(t, repo, "jane@example.com", "password123")

	expiresAt := time.Now().UTC().Add(10 * time.Minute)
	account, err := repo.SetResetToken(ctx, "jane@example.com", "digest123", expiresAt)
	require.NoError(t, err)
	require.True(t, account.HasPendingReset())
	assert.Equal(t, "digest123", *account.PasswordResetToken)

	require.NoError(t, repo.ClearResetToken(ctx, created.ID))

	stored, err := repo.GetAccountByID(ctx, created.ID)
	require.NoError(t, err)
	assert.False(t, stored.HasPendingReset())
}

func TestSetResetTokenUnknownEmail(t *testing.T) {
	_, repo := testutil.NewTestDB(t)

	_, err := repo.SetResetToken(context.Background(), "nobody@example.com", "digest123", time.Now().UTC())
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestConsumeResetToken(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()
	created := testutil.NewTestAccount(t, repo, "jane@example.com", "password123")

	expiresAt := time.Now().UTC().Add(10 * time.Minute)
	_, err := repo.SetResetToken(ctx, "jane@example.com", "digest123", expiresAt)
	require.NoError(t, err)

	account, err := repo.ConsumeResetToken(ctx, "digest123", "new-password-digest")
	require.NoError(t, err)
	assert.Equal(t, created.ID, account.ID)
	assert.Equal(t, "new-password-digest", account.PasswordHash)
	assert.False(t, account.HasPendingReset())

	// Consumed in the same statement that stored the password, so a
	// second attempt finds nothing.
	_, err = repo.ConsumeResetToken(ctx, "digest123", "other-digest")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestConsumeResetTokenExpired(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()
	testutil.NewTestAccount(t, repo, "jane@example.com", "password123")

	expiresAt := time.Now().UTC().Add(-time.Minute)
	_, err := repo.SetResetToken(ctx, "jane@example.com", "digest123", expiresAt)
	require.NoError(t, err)

	_, err = repo.ConsumeResetToken(ctx, "digest123", "new-password-digest")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestDeleteAccount(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()
	created := testutil.NewTestAccount(t, repo, "jane@example.com", "password123")

	require.NoError(t, repo.DeleteAccount(ctx, created.ID))

	_, err := repo.GetAccountByID(ctx, created.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	assert.ErrorIs(t, repo.DeleteAccount(ctx, created.ID), repository.ErrNotFound)
}
