// Package identity maps verified third-party identities to local users.
//
// It is the only place where identity-to-user decisions live: the
// find-or-create resolution used by OAuth login, explicit provider
// linking, and guarded unlinking. Credential verification happens
// upstream (internal/auth/provider) and persistence lives behind
// database.Database; the resolver trusts the former and propagates
// failures of the latter unchanged.
package identity

import (
	"context"
	"errors"
	"time"

	"github.com/gofrs/uuid"
	"github.com/idlink/idlink/internal/database"
	"github.com/idlink/idlink/pkg/model"
)

// Resolver resolves verified identity payloads to local user records
// and manages provider links.
type Resolver struct {
	db database.Database
}

// NewResolver creates a resolver backed by the given database.
func NewResolver(db database.Database) *Resolver {
	return &Resolver{db: db}
}

// ResolveOrCreate resolves a verified identity to a local user,
// creating the user and/or the provider link as needed.
//
// Resolution is ordered and short-circuits on the first match:
//
//  1. An existing link for (provider, providerID) wins outright. The
//     linked identity is authoritative: the email on file is NOT
//     re-read, even if the provider reports a different one now.
//  2. An existing user with the same normalized email gets a new link.
//     This implicitly merges the OAuth identity into a pre-existing
//     local account on the strength of the provider-verified email.
//  3. Otherwise a new verified user is created, then linked.
//
// The lookup-then-create steps are not atomic. When a concurrent
// resolution wins the race, the store reports the duplicate as
// database.ErrConflict and the whole resolution is retried once as a
// lookup before the conflict is surfaced.
func (r *Resolver) ResolveOrCreate(ctx context.Context, identity *model.Identity) (*model.User, error) {
	if err := identity.Valid(); err != nil {
		return nil, err
	}

	user, err := r.resolveOrCreate(ctx, identity)
	if errors.Is(err, database.ErrConflict) {
		user, err = r.resolveOrCreate(ctx, identity)
	}
	return user, err
}

func (r *Resolver) resolveOrCreate(ctx context.Context, identity *model.Identity) (*model.User, error) {
	account, err := r.db.GetOAuthAccount(ctx, identity.Provider, identity.ProviderID)
	if err == nil {
		return r.db.GetUserByID(ctx, account.UserID)
	}
	if !errors.Is(err, database.ErrNotFound) {
		return nil, err
	}

	email := model.NormalizeEmail(identity.Email)
	user, err := r.db.GetUserByEmail(ctx, email)
	if errors.Is(err, database.ErrNotFound) {
		user, err = r.createUser(ctx, identity, email)
	}
	if err != nil {
		return nil, err
	}

	if _, err := r.createLink(ctx, identity, user.ID); err != nil {
		return nil, err
	}
	return user, nil
}

func (r *Resolver) createUser(ctx context.Context, identity *model.Identity, email string) (*model.User, error) {
	id, err := uuid.NewV4()
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	user := &model.User{
		ID:         id.String(),
		Email:      email,
		FirstName:  identity.FirstName,
		LastName:   identity.LastName,
		Image:      identity.Image,
		IsVerified: true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := r.db.CreateUser(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (r *Resolver) createLink(ctx context.Context, identity *model.Identity, userID string) (*model.OAuthAccount, error) {
	id, err := uuid.NewV4()
	if err != nil {
		return nil, err
	}
	account := &model.OAuthAccount{
		ID:         id.String(),
		Provider:   identity.Provider,
		ProviderID: identity.ProviderID,
		UserID:     userID,
		CreatedAt:  time.Now().UTC(),
	}
	if err := r.db.CreateOAuthAccount(ctx, account); err != nil {
		return nil, err
	}
	return account, nil
}

// LinkProvider binds a verified identity to an existing user. It fails
// with model.ErrAlreadyLinked when the (provider, providerID) pair is
// linked anywhere already, including to the same user, and with
// model.ErrUserNotFound when the user does not exist. User fields are
// never touched.
func (r *Resolver) LinkProvider(ctx context.Context, userID string, identity *model.Identity) (*model.OAuthAccount, error) {
	if err := identity.Valid(); err != nil {
		return nil, err
	}

	_, err := r.db.GetOAuthAccount(ctx, identity.Provider, identity.ProviderID)
	if err == nil {
		return nil, model.ErrAlreadyLinked
	}
	if !errors.Is(err, database.ErrNotFound) {
		return nil, err
	}

	if _, err := r.db.GetUserByID(ctx, userID); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, model.ErrUserNotFound
		}
		return nil, err
	}

	account, err := r.createLink(ctx, identity, userID)
	if err != nil {
		// A concurrent link won the race; the outcome is the same
		// conflict the lookup above would have reported.
		if errors.Is(err, database.ErrConflict) {
			return nil, model.ErrAlreadyLinked
		}
		return nil, err
	}
	return account, nil
}

// UnlinkProvider removes the user's link for the given provider. It
// fails with model.ErrProviderNotLinked when no such link exists and
// with model.ErrLastLoginMethod when removal would leave the user with
// no password credential and no remaining provider link.
func (r *Resolver) UnlinkProvider(ctx context.Context, userID string, provider model.Provider) error {
	account, err := r.db.GetOAuthAccountForUser(ctx, userID, provider)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return model.ErrProviderNotLinked
		}
		return err
	}

	count, err := r.db.CountOAuthAccountsForUser(ctx, userID)
	if err != nil {
		return err
	}

	user, err := r.db.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return model.ErrUserNotFound
		}
		return err
	}

	if count == 1 && !user.HasPassword() {
		return model.ErrLastLoginMethod
	}

	return r.db.DeleteOAuthAccount(ctx, account)
}
