package database

import (
	"context"
	"encoding/json"
	"fmt"

	badger "github.com/dgraph-io/badger/v3"
	"github.com/idlink/idlink/internal/config"
	"github.com/idlink/idlink/pkg/model"
	"github.com/pkg/errors"
)

// BadgerDB holds a connection to a Badger backend.
//
// Records are stored as JSON values under prefixed keys. Uniqueness of
// emails and of (provider, providerID) pairs is enforced inside Badger's
// serializable update transactions: a create that finds its key already
// present fails with ErrConflict, which makes the store the source of
// truth for the lookup-then-create races in the resolver.
type BadgerDB struct {
	InMemory bool
	DB       *badger.DB
}

const (
	prefixUser     = "user"
	prefixEmail    = "email"
	prefixOAuth    = "oauth"
	prefixUserLink = "userlink"
)

func makeUserKey(id string) []byte {
	return makeKey(prefixUser, id)
}

func makeEmailKey(email string) []byte {
	return makeKey(prefixEmail, email)
}

func makeOAuthKey(provider model.Provider, providerID string) []byte {
	return makeKey(prefixOAuth, fmt.Sprintf("%s_%s", provider, providerID))
}

func makeUserLinkKey(userID string, provider model.Provider) []byte {
	return makeKey(prefixUserLink, fmt.Sprintf("%s_%s", userID, provider))
}

func makeUserLinkPrefix(userID string) []byte {
	return makeKey(prefixUserLink, userID+"_")
}

func makeKey(prefix, id string) []byte {
	return []byte(fmt.Sprintf("%s_%s", prefix, id))
}

// NewBadgerDB creates a new database with a Badger backend.
// Pass `true` to create an in-memory database (useful in tests, for example).
func NewBadgerDB(inMemory bool) (*BadgerDB, error) {
	path := config.Current.Database.Dir
	if inMemory {
		path = ""
	}
	db, err := badger.Open(badger.DefaultOptions(path).WithInMemory(inMemory))
	if err != nil {
		return nil, errors.Wrap(err, "badger open")
	}
	return &BadgerDB{DB: db, InMemory: inMemory}, nil
}

// Close handles closing all connections to the database.
func (db *BadgerDB) Close() error {
	return db.DB.Close()
}

func getJSON(txn *badger.Txn, key []byte, dest interface{}) error {
	item, err := txn.Get(key)
	if err != nil {
		return err
	}
	return item.Value(func(b []byte) error {
		return json.Unmarshal(b, dest)
	})
}

func setJSON(txn *badger.Txn, key []byte, v interface{}) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return txn.Set(key, b)
}

// CreateUser stores a new user, failing with ErrConflict if another
// user already owns the email.
func (db *BadgerDB) CreateUser(ctx context.Context, user *model.User) error {
	userKey := makeUserKey(user.ID)
	emailKey := makeEmailKey(user.Email)
	err := db.DB.Update(func(txn *badger.Txn) error {
		_, err := txn.Get(emailKey)
		if err == nil {
			return ErrConflict
		}
		if err != badger.ErrKeyNotFound {
			return err
		}
		if err := txn.Set(emailKey, []byte(user.ID)); err != nil {
			return err
		}
		return setJSON(txn, userKey, user)
	})
	return errors.Wrap(err, "create user")
}

// GetUserByID returns the user with the given id.
func (db *BadgerDB) GetUserByID(ctx context.Context, id string) (user *model.User, err error) {
	err = db.DB.View(func(txn *badger.Txn) error {
		return getJSON(txn, makeUserKey(id), &user)
	})
	if err == badger.ErrKeyNotFound {
		return nil, ErrNotFound
	}
	return
}

// GetUserByEmail returns the user owning the given normalized email.
func (db *BadgerDB) GetUserByEmail(ctx context.Context, email string) (user *model.User, err error) {
	err = db.DB.View(func(txn *badger.Txn) error {
		item, err := txn.Get(makeEmailKey(email))
		if err != nil {
			return err
		}
		var id []byte
		id, err = item.ValueCopy(nil)
		if err != nil {
			return err
		}
		return getJSON(txn, makeUserKey(string(id)), &user)
	})
	if err == badger.ErrKeyNotFound {
		return nil, ErrNotFound
	}
	return
}

// UpdateUser overwrites the stored user record. If the email changed,
// the email index moves with it, failing with ErrConflict when the new
// email is already taken.
func (db *BadgerDB) UpdateUser(ctx context.Context, user *model.User) error {
	userKey := makeUserKey(user.ID)
	err := db.DB.Update(func(txn *badger.Txn) error {
		var existing model.User
		if err := getJSON(txn, userKey, &existing); err != nil {
			return err
		}
		if existing.Email != user.Email {
			emailKey := makeEmailKey(user.Email)
			if _, err := txn.Get(emailKey); err == nil {
				return ErrConflict
			} else if err != badger.ErrKeyNotFound {
				return err
			}
			if err := txn.Delete(makeEmailKey(existing.Email)); err != nil {
				return err
			}
			if err := txn.Set(emailKey, []byte(user.ID)); err != nil {
				return err
			}
		}
		return setJSON(txn, userKey, user)
	})
	if errors.Cause(err) == badger.ErrKeyNotFound {
		return ErrNotFound
	}
	return errors.Wrap(err, "update user")
}

// DeleteUser removes the user along with its email index and all of its
// OAuth accounts.
func (db *BadgerDB) DeleteUser(ctx context.Context, id string) error {
	err := db.DB.Update(func(txn *badger.Txn) error {
		var user model.User
		if err := getJSON(txn, makeUserKey(id), &user); err != nil {
			return err
		}

		accounts, err := listUserLinks(txn, id)
		if err != nil {
			return err
		}
		for _, account := range accounts {
			if err := txn.Delete(makeOAuthKey(account.Provider, account.ProviderID)); err != nil {
				return err
			}
			if err := txn.Delete(makeUserLinkKey(account.UserID, account.Provider)); err != nil {
				return err
			}
		}

		if err := txn.Delete(makeEmailKey(user.Email)); err != nil {
			return err
		}
		return txn.Delete(makeUserKey(id))
	})
	if err == badger.ErrKeyNotFound {
		return ErrNotFound
	}
	return errors.Wrap(err, "delete user")
}

// CreateOAuthAccount stores a new provider link, failing with
// ErrConflict if the (provider, providerID) pair is already linked.
func (db *BadgerDB) CreateOAuthAccount(ctx context.Context, account *model.OAuthAccount) error {
	oauthKey := makeOAuthKey(account.Provider, account.ProviderID)
	linkKey := makeUserLinkKey(account.UserID, account.Provider)
	err := db.DB.Update(func(txn *badger.Txn) error {
		_, err := txn.Get(oauthKey)
		if err == nil {
			return ErrConflict
		}
		if err != badger.ErrKeyNotFound {
			return err
		}
		if err := setJSON(txn, oauthKey, account); err != nil {
			return err
		}
		return setJSON(txn, linkKey, account)
	})
	return errors.Wrap(err, "create oauth account")
}

// GetOAuthAccount returns the link for the (provider, providerID) pair.
func (db *BadgerDB) GetOAuthAccount(ctx context.Context, provider model.Provider, providerID string) (account *model.OAuthAccount, err error) {
	err = db.DB.View(func(txn *badger.Txn) error {
		return getJSON(txn, makeOAuthKey(provider, providerID), &account)
	})
	if err == badger.ErrKeyNotFound {
		return nil, ErrNotFound
	}
	return
}

// GetOAuthAccountForUser returns the user's link for the given provider.
func (db *BadgerDB) GetOAuthAccountForUser(ctx context.Context, userID string, provider model.Provider) (account *model.OAuthAccount, err error) {
	err = db.DB.View(func(txn *badger.Txn) error {
		return getJSON(txn, makeUserLinkKey(userID, provider), &account)
	})
	if err == badger.ErrKeyNotFound {
		return nil, ErrNotFound
	}
	return
}

// ListOAuthAccountsForUser returns all links held by the user.
func (db *BadgerDB) ListOAuthAccountsForUser(ctx context.Context, userID string) (accounts []*model.OAuthAccount, err error) {
	err = db.DB.View(func(txn *badger.Txn) error {
		accounts, err = listUserLinks(txn, userID)
		return err
	})
	return
}

// CountOAuthAccountsForUser returns the number of links held by the user.
func (db *BadgerDB) CountOAuthAccountsForUser(ctx context.Context, userID string) (int, error) {
	accounts, err := db.ListOAuthAccountsForUser(ctx, userID)
	if err != nil {
		return 0, err
	}
	return len(accounts), nil
}

// DeleteOAuthAccount removes a provider link and its per-user index.
func (db *BadgerDB) DeleteOAuthAccount(ctx context.Context, account *model.OAuthAccount) error {
	oauthKey := makeOAuthKey(account.Provider, account.ProviderID)
	linkKey := makeUserLinkKey(account.UserID, account.Provider)
	err := db.DB.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(oauthKey); err != nil {
			return err
		}
		if err := txn.Delete(oauthKey); err != nil {
			return err
		}
		return txn.Delete(linkKey)
	})
	if err == badger.ErrKeyNotFound {
		return ErrNotFound
	}
	return errors.Wrap(err, "delete oauth account")
}

func listUserLinks(txn *badger.Txn, userID string) ([]*model.OAuthAccount, error) {
	accounts := make([]*model.OAuthAccount, 0)
	opts := badger.DefaultIteratorOptions
	it := txn.NewIterator(opts)
	defer it.Close()

	prefix := makeUserLinkPrefix(userID)
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		var account model.OAuthAccount
		err := it.Item().Value(func(v []byte) error {
			return json.Unmarshal(v, &account)
		})
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, &account)
	}
	return accounts, nil
}
