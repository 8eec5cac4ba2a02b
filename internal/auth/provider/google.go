package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/idlink/idlink/internal/config"
	"github.com/idlink/idlink/pkg/model"
	"github.com/pkg/errors"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const googleTokenInfoURL = "https://oauth2.googleapis.com/tokeninfo"

// GoogleVerifier verifies Google ID tokens against the tokeninfo
// endpoint and supports the authorization-code flow for web clients.
type GoogleVerifier struct {
	oauth        *oauth2.Config
	client       *http.Client
	tokenInfoURL string
}

// NewGoogleVerifier creates a verifier with the given client
// credentials.
func NewGoogleVerifier(cfg config.ProviderConfig) *GoogleVerifier {
	return &GoogleVerifier{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Endpoint:     google.Endpoint,
			Scopes:       []string{"openid", "email", "profile"},
		},
		client:       http.DefaultClient,
		tokenInfoURL: googleTokenInfoURL,
	}
}

// Provider returns model.ProviderGoogle.
func (g *GoogleVerifier) Provider() model.Provider {
	return model.ProviderGoogle
}

// AuthCodeURL returns the Google authorization URL for the given state.
func (g *GoogleVerifier) AuthCodeURL(state string) string {
	return g.oauth.AuthCodeURL(state)
}

// Exchange trades an authorization code for tokens and verifies the
// returned ID token.
func (g *GoogleVerifier) Exchange(ctx context.Context, code string) (*model.Identity, error) {
	token, err := g.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, model.ErrInvalidProviderToken
	}
	idToken, ok := token.Extra("id_token").(string)
	if !ok || idToken == "" {
		return nil, model.ErrInvalidProviderToken
	}
	return g.Verify(ctx, idToken)
}

type googleClaims struct {
	Aud        string `json:"aud"`
	Sub        string `json:"sub"`
	Email      string `json:"email"`
	GivenName  string `json:"given_name"`
	FamilyName string `json:"family_name"`
	Picture    string `json:"picture"`
}

// Verify validates an ID token with Google and returns the identity it
// asserts.
func (g *GoogleVerifier) Verify(ctx context.Context, idToken string) (*model.Identity, error) {
	uri := g.tokenInfoURL + "?id_token=" + url.QueryEscape(idToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return nil, err
	}
	resp, err := g.client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "google tokeninfo request")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, model.ErrInvalidProviderToken
	}

	var claims googleClaims
	if err := json.NewDecoder(resp.Body).Decode(&claims); err != nil {
		return nil, errors.Wrap(err, "google tokeninfo decode")
	}
	if claims.Sub == "" {
		return nil, model.ErrInvalidProviderToken
	}
	// Tokens minted for another application are not ours to accept.
	if g.oauth.ClientID != "" && claims.Aud != g.oauth.ClientID {
		return nil, model.ErrInvalidProviderToken
	}

	return &model.Identity{
		Provider:   model.ProviderGoogle,
		ProviderID: claims.Sub,
		Email:      claims.Email,
		FirstName:  claims.GivenName,
		LastName:   claims.FamilyName,
		Image:      claims.Picture,
	}, nil
}
