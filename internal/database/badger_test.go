package database

import (
	"context"
	"testing"

	"github.com/idlink/idlink/internal/config"
	"github.com/idlink/idlink/internal/mock"
	"github.com/idlink/idlink/pkg/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupBadger(t *testing.T) *BadgerDB {
	config.LoadConfig()
	db, err := NewBadgerDB(true)
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, db.Close())
	})
	return db
}

func newAccount(provider model.Provider, providerID, userID string) *model.OAuthAccount {
	return &model.OAuthAccount{
		ID:         providerID + "-account",
		Provider:   provider,
		ProviderID: providerID,
		UserID:     userID,
	}
}

func TestCreateAndGetUser(t *testing.T) {
	db := setupBadger(t)
	ctx := context.Background()

	user := mock.NewUser("someone@example.com", "hash")
	require.NoError(t, db.CreateUser(ctx, user))

	byID, err := db.GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, user.Email, byID.Email)

	byEmail, err := db.GetUserByEmail(ctx, "someone@example.com")
	require.NoError(t, err)
	assert.Equal(t, user.ID, byEmail.ID)
}

func TestGetUserNotFound(t *testing.T) {
	db := setupBadger(t)
	ctx := context.Background()

	_, err := db.GetUserByID(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = db.GetUserByEmail(ctx, "missing@example.com")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCreateUserDuplicateEmail(t *testing.T) {
	db := setupBadger(t)
	ctx := context.Background()

	require.NoError(t, db.CreateUser(ctx, mock.NewUser("dup@example.com", "hash")))

	err := db.CreateUser(ctx, mock.NewUser("dup@example.com", "otherhash"))
	assert.ErrorIs(t, err, ErrConflict)
}

func TestUpdateUser(t *testing.T) {
	db := setupBadger(t)
	ctx := context.Background()

	user := mock.NewUser("update@example.com", "hash")
	require.NoError(t, db.CreateUser(ctx, user))

	user.FirstName = "Renamed"
	require.NoError(t, db.UpdateUser(ctx, user))

	updated, err := db.GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.FirstName)
}

func TestUpdateUserReindexesEmail(t *testing.T) {
	db := setupBadger(t)
	ctx := context.Background()

	user := mock.NewUser("old@example.com", "hash")
	require.NoError(t, db.CreateUser(ctx, user))

	user.Email = "new@example.com"
	require.NoError(t, db.UpdateUser(ctx, user))

	_, err := db.GetUserByEmail(ctx, "old@example.com")
	assert.ErrorIs(t, err, ErrNotFound)

	byEmail, err := db.GetUserByEmail(ctx, "new@example.com")
	require.NoError(t, err)
	assert.Equal(t, user.ID, byEmail.ID)
}

func TestUpdateUserEmailConflict(t *testing.T) {
	db := setupBadger(t)
	ctx := context.Background()

	require.NoError(t, db.CreateUser(ctx, mock.NewUser("taken@example.com", "hash")))
	user := mock.NewUser("mine@example.com", "hash")
	require.NoError(t, db.CreateUser(ctx, user))

	user.Email = "taken@example.com"
	err := db.UpdateUser(ctx, user)
	assert.ErrorIs(t, err, ErrConflict)
}

func TestCreateOAuthAccountDuplicate(t *testing.T) {
	db := setupBadger(t)
	ctx := context.Background()

	account := newAccount(model.ProviderGoogle, "google-1", "user-1")
	require.NoError(t, db.CreateOAuthAccount(ctx, account))

	// Same pair, different user: rejected by the uniqueness constraint.
	err := db.CreateOAuthAccount(ctx, newAccount(model.ProviderGoogle, "google-1", "user-2"))
	assert.ErrorIs(t, err, ErrConflict)

	// Same subject id under another provider is a different pair.
	require.NoError(t, db.CreateOAuthAccount(ctx, newAccount(model.ProviderFacebook, "google-1", "user-2")))
}

func TestListAndCountOAuthAccounts(t *testing.T) {
	db := setupBadger(t)
	ctx := context.Background()

	require.NoError(t, db.CreateOAuthAccount(ctx, newAccount(model.ProviderGoogle, "g-1", "user-1")))
	require.NoError(t, db.CreateOAuthAccount(ctx, newAccount(model.ProviderFacebook, "f-1", "user-1")))
	require.NoError(t, db.CreateOAuthAccount(ctx, newAccount(model.ProviderGoogle, "g-2", "user-2")))

	accounts, err := db.ListOAuthAccountsForUser(ctx, "user-1")
	require.NoError(t, err)
	assert.Len(t, accounts, 2)

	count, err := db.CountOAuthAccountsForUser(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	account, err := db.GetOAuthAccountForUser(ctx, "user-1", model.ProviderFacebook)
	require.NoError(t, err)
	assert.Equal(t, "f-1", account.ProviderID)
}

func TestDeleteOAuthAccount(t *testing.T) {
	db := setupBadger(t)
	ctx := context.Background()

	account := newAccount(model.ProviderGoogle, "g-1", "user-1")
	require.NoError(t, db.CreateOAuthAccount(ctx, account))
	require.NoError(t, db.DeleteOAuthAccount(ctx, account))

	_, err := db.GetOAuthAccount(ctx, model.ProviderGoogle, "g-1")
	assert.ErrorIs(t, err, ErrNotFound)

	count, err := db.CountOAuthAccountsForUser(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	err = db.DeleteOAuthAccount(ctx, account)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteUserCascades(t *testing.T) {
	db := setupBadger(t)
	ctx := context.Background()

	user := mock.NewUser("cascade@example.com", "hash")
	require.NoError(t, db.CreateUser(ctx, user))
	require.NoError(t, db.CreateOAuthAccount(ctx, newAccount(model.ProviderGoogle, "g-1", user.ID)))
	require.NoError(t, db.CreateOAuthAccount(ctx, newAccount(model.ProviderFacebook, "f-1", user.ID)))

	require.NoError(t, db.DeleteUser(ctx, user.ID))

	_, err := db.GetUserByID(ctx, user.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = db.GetUserByEmail(ctx, "cascade@example.com")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = db.GetOAuthAccount(ctx, model.ProviderGoogle, "g-1")
	assert.ErrorIs(t, err, ErrNotFound)

	count, err := db.CountOAuthAccountsForUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	// The email is free for registration again.
	require.NoError(t, db.CreateUser(ctx, mock.NewUser("cascade@example.com", "hash")))
}
