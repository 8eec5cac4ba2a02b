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
	"golang.org/x/oauth2/facebook"
)

const facebookGraphURL = "https://graph.facebook.com/me"

// FacebookVerifier verifies Facebook access tokens against the Graph
// API and supports the authorization-code flow for web clients.
type FacebookVerifier struct {
	oauth    *oauth2.Config
	client   *http.Client
	graphURL string
}

// NewFacebookVerifier creates a verifier with the given client
// credentials.
func NewFacebookVerifier(cfg config.ProviderConfig) *FacebookVerifier {
	return &FacebookVerifier{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Endpoint:     facebook.Endpoint,
			Scopes:       []string{"email", "public_profile"},
		},
		client:   http.DefaultClient,
		graphURL: facebookGraphURL,
	}
}

// Provider returns model.ProviderFacebook.
func (f *FacebookVerifier) Provider() model.Provider {
	return model.ProviderFacebook
}

// AuthCodeURL returns the Facebook authorization URL for the given state.
func (f *FacebookVerifier) AuthCodeURL(state string) string {
	return f.oauth.AuthCodeURL(state)
}

// Exchange trades an authorization code for an access token and
// verifies it.
func (f *FacebookVerifier) Exchange(ctx context.Context, code string) (*model.Identity, error) {
	token, err := f.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, model.ErrInvalidProviderToken
	}
	return f.Verify(ctx, token.AccessToken)
}

type facebookProfile struct {
	ID        string `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Picture   struct {
		Data struct {
			URL string `json:"url"`
		} `json:"data"`
	} `json:"picture"`
}

// Verify validates an access token with the Graph API and returns the
// identity it asserts.
func (f *FacebookVerifier) Verify(ctx context.Context, accessToken string) (*model.Identity, error) {
	query := url.Values{
		"access_token": {accessToken},
		"fields":       {"id,first_name,last_name,email,picture"},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.graphURL+"?"+query.Encode(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "facebook graph request")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, model.ErrInvalidProviderToken
	}

	var profile facebookProfile
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return nil, errors.Wrap(err, "facebook graph decode")
	}
	if profile.ID == "" {
		return nil, model.ErrInvalidProviderToken
	}

	return &model.Identity{
		Provider:   model.ProviderFacebook,
		ProviderID: profile.ID,
		Email:      profile.Email,
		FirstName:  profile.FirstName,
		LastName:   profile.LastName,
		Image:      profile.Picture.Data.URL,
	}, nil
}
