package model

import (
	"fmt"
	"strings"
	"time"
)

// Provider identifies a supported third-party identity provider.
//
// The set is closed: resolution and linking reason about providers
// exhaustively, so new providers must be added here first.
type Provider string

// Supported identity providers
const (
	ProviderGoogle   Provider = "GOOGLE"
	ProviderFacebook Provider = "FACEBOOK"
)

// ParseProvider parses a provider name case-insensitively.
func ParseProvider(s string) (Provider, error) {
	switch Provider(strings.ToUpper(s)) {
	case ProviderGoogle:
		return ProviderGoogle, nil
	case ProviderFacebook:
		return ProviderFacebook, nil
	}
	return "", fmt.Errorf("unknown provider: %s", s)
}

// Valid reports whether the provider is one of the supported values.
func (p Provider) Valid() bool {
	switch p {
	case ProviderGoogle, ProviderFacebook:
		return true
	}
	return false
}

// OAuthAccount binds one external (provider, provider-scoped subject id)
// pair to exactly one local user. The pair is globally unique. Accounts
// are created during resolution or explicit linking and destroyed during
// unlinking, never updated in place.
type OAuthAccount struct {
	ID         string    `json:"id"` // uuid
	Provider   Provider  `json:"provider"`
	ProviderID string    `json:"provider_id"`
	UserID     string    `json:"user_id"`
	CreatedAt  time.Time `json:"created_at"`
}

// Identity is a verified identity payload returned by a credential
// verifier. By the time an Identity exists it has already been
// cryptographically verified upstream; consumers trust it as-is and
// must not re-verify or sanitize it.
type Identity struct {
	Provider   Provider `json:"provider"`
	ProviderID string   `json:"provider_id"`
	Email      string   `json:"email"`
	FirstName  string   `json:"first_name"`
	LastName   string   `json:"last_name"`
	Image      string   `json:"image,omitempty"`
}

// Valid checks the structural requirements of the payload: a supported
// provider and a provider-scoped subject id. It makes no judgement about
// the identity's authenticity.
func (id *Identity) Valid() error {
	if id == nil {
		return ErrMissingIdentity
	}
	if !id.Provider.Valid() {
		return ErrMissingIdentity
	}
	if id.ProviderID == "" {
		return ErrMissingIdentity
	}
	return nil
}
