package database

import (
	"context"
	"errors"
	"time"

	"github.com/idlink/idlink/pkg/model"
)

// DefaultTimeout is the default length of time to wait
// for a database operation to complete.
const DefaultTimeout = time.Second * 3

var (
	// ErrNotFound means no record exists for the given key.
	ErrNotFound = errors.New("record not found")

	// ErrConflict means a write violated a uniqueness constraint, e.g.
	// a duplicate email or a duplicate (provider, providerID) pair.
	// Callers racing on first creation receive this from the store and
	// may retry their lookup path.
	ErrConflict = errors.New("unique constraint violation")
)

// Database handles all interactions with the data backend.
type Database interface {
	UserDB
	OAuthAccountDB
	Close() error
}

// UserDB handles persistence of user records. Emails passed in are
// expected to be normalized (model.NormalizeEmail).
type UserDB interface {
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	UpdateUser(ctx context.Context, user *model.User) error
	DeleteUser(ctx context.Context, id string) error
}

// OAuthAccountDB handles persistence of provider-link records.
type OAuthAccountDB interface {
	CreateOAuthAccount(ctx context.Context, account *model.OAuthAccount) error
	GetOAuthAccount(ctx context.Context, provider model.Provider, providerID string) (*model.OAuthAccount, error)
	GetOAuthAccountForUser(ctx context.Context, userID string, provider model.Provider) (*model.OAuthAccount, error)
	ListOAuthAccountsForUser(ctx context.Context, userID string) ([]*model.OAuthAccount, error)
	CountOAuthAccountsForUser(ctx context.Context, userID string) (int, error)
	DeleteOAuthAccount(ctx context.Context, account *model.OAuthAccount) error
}
