// Package provider implements credential verifiers for the supported
// identity providers. A verifier exchanges an opaque provider credential
// (an ID token or access token) for a verified, normalized identity
// payload. Verifiers return identity facts only; user creation and
// linking decisions belong to the identity resolver.
package provider

import (
	"context"
	"fmt"

	"github.com/idlink/idlink/pkg/model"
)

// Verifier verifies a provider credential and returns the identity it
// asserts. Verification failures surface as model.ErrInvalidProviderToken;
// a payload lacking a subject id is always a failure.
type Verifier interface {
	// Provider returns the provider this verifier handles.
	Provider() model.Provider

	// Verify validates the opaque credential with the provider and
	// returns the normalized identity payload.
	Verify(ctx context.Context, token string) (*model.Identity, error)

	// AuthCodeURL returns the provider's authorization URL for the
	// given state, for clients using the authorization-code flow.
	AuthCodeURL(state string) string

	// Exchange trades an authorization code for provider credentials
	// and verifies the identity they assert.
	Exchange(ctx context.Context, code string) (*model.Identity, error)
}

// Registry holds the configured verifiers and allows lookup by
// provider. It performs no verification itself.
type Registry struct {
	verifiers map[model.Provider]Verifier
}

// NewRegistry registers the given verifiers by provider.
func NewRegistry(list ...Verifier) *Registry {
	m := make(map[model.Provider]Verifier)
	for _, v := range list {
		m[v.Provider()] = v
	}
	return &Registry{verifiers: m}
}

// Get returns the verifier for the provider, or an error if none is
// registered.
func (r *Registry) Get(p model.Provider) (Verifier, error) {
	v, ok := r.verifiers[p]
	if !ok {
		return nil, fmt.Errorf("no verifier registered for provider: %s", p)
	}
	return v, nil
}
