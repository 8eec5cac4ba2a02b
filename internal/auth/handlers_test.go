package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/idlink/idlink/internal/auth/provider"
	"github.com/idlink/idlink/internal/config"
	"github.com/idlink/idlink/internal/database"
	"github.com/idlink/idlink/internal/mock"
	"github.com/idlink/idlink/pkg/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubVerifier accepts exactly one well-known token per provider,
// standing in for the real network-bound verifiers.
type stubVerifier struct {
	provider model.Provider
	identity model.Identity
}

func (s stubVerifier) Provider() model.Provider {
	return s.provider
}

func (s stubVerifier) Verify(ctx context.Context, token string) (*model.Identity, error) {
	want := fmt.Sprintf("valid-%s-token", strings.ToLower(string(s.provider)))
	if token != want {
		return nil, model.ErrInvalidProviderToken
	}
	identity := s.identity
	return &identity, nil
}

func (s stubVerifier) AuthCodeURL(state string) string {
	return "https://provider.example.com/authorize?state=" + state
}

func (s stubVerifier) Exchange(ctx context.Context, code string) (*model.Identity, error) {
	want := fmt.Sprintf("valid-%s-code", strings.ToLower(string(s.provider)))
	if code != want {
		return nil, model.ErrInvalidProviderToken
	}
	identity := s.identity
	return &identity, nil
}

func setupRouter(t *testing.T) *mux.Router {
	config.LoadConfig()

	db, err := database.NewBadgerDB(true)
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, db.Close())
	})

	registry := provider.NewRegistry(
		stubVerifier{model.ProviderGoogle, mock.GoogleIdentity},
		stubVerifier{model.ProviderFacebook, mock.FacebookIdentity},
	)

	r := mux.NewRouter()
	SetupRoutes(r, db, registry)
	return r
}

func doJSON(t *testing.T, r *mux.Router, method, path, bearer string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	request := httptest.NewRequest(method, path, &buf)
	request.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		request.Header.Set("Authorization", "Bearer "+bearer)
	}
	response := httptest.NewRecorder()
	r.ServeHTTP(response, request)
	return response
}

type authResponse struct {
	Message   string         `json:"message"`
	Token     string         `json:"token"`
	TokenType string         `json:"token_type"`
	User      model.UserData `json:"user"`
}

func decodeAuthResponse(t *testing.T, response *httptest.ResponseRecorder) authResponse {
	var body authResponse
	require.NoError(t, json.NewDecoder(response.Body).Decode(&body))
	return body
}

func TestOAuthLoginMissingToken(t *testing.T) {
	r := setupRouter(t)

	response := doJSON(t, r, http.MethodPost, GoogleLoginEndpoint, "", map[string]string{})
	require.Equal(t, http.StatusBadRequest, response.Code)
	assert.Contains(t, response.Body.String(), "Token is required")
}

func TestOAuthLoginInvalidToken(t *testing.T) {
	r := setupRouter(t)

	response := doJSON(t, r, http.MethodPost, GoogleLoginEndpoint, "", map[string]string{
		"token": "spoofed",
	})
	require.Equal(t, http.StatusUnauthorized, response.Code)
}

func TestOAuthLoginSuccess(t *testing.T) {
	r := setupRouter(t)

	response := doJSON(t, r, http.MethodPost, GoogleLoginEndpoint, "", map[string]string{
		"token": "valid-google-token",
	})
	require.Equal(t, http.StatusOK, response.Code)

	body := decodeAuthResponse(t, response)
	assert.Equal(t, "Login successful", body.Message)
	assert.NotEmpty(t, body.Token)
	assert.Equal(t, "bearer", body.TokenType)
	assert.Equal(t, "google.user@example.com", body.User.Email)
	assert.True(t, body.User.IsVerified)

	// A second login resolves to the same account.
	again := doJSON(t, r, http.MethodPost, GoogleLoginEndpoint, "", map[string]string{
		"token": "valid-google-token",
	})
	require.Equal(t, http.StatusOK, again.Code)
	assert.Equal(t, body.User.ID, decodeAuthResponse(t, again).User.ID)
}

func TestOAuthCallback(t *testing.T) {
	r := setupRouter(t)

	missing := doJSON(t, r, http.MethodGet, "/auth/google/callback", "", nil)
	require.Equal(t, http.StatusBadRequest, missing.Code)
	assert.Contains(t, missing.Body.String(), "Authorization code is required")

	unknown := doJSON(t, r, http.MethodGet, "/auth/twitter/callback?code=whatever", "", nil)
	require.Equal(t, http.StatusBadRequest, unknown.Code)

	rejected := doJSON(t, r, http.MethodGet, "/auth/google/callback?code=spoofed", "", nil)
	require.Equal(t, http.StatusUnauthorized, rejected.Code)

	response := doJSON(t, r, http.MethodGet, "/auth/google/callback?code=valid-google-code", "", nil)
	require.Equal(t, http.StatusOK, response.Code)

	body := decodeAuthResponse(t, response)
	assert.Equal(t, "Login successful", body.Message)
	assert.NotEmpty(t, body.Token)
	assert.Equal(t, "bearer", body.TokenType)
	assert.Equal(t, "google.user@example.com", body.User.Email)

	// The code flow and the token flow resolve to the same account.
	tokenLogin := doJSON(t, r, http.MethodPost, GoogleLoginEndpoint, "", map[string]string{
		"token": "valid-google-token",
	})
	require.Equal(t, http.StatusOK, tokenLogin.Code)
	assert.Equal(t, body.User.ID, decodeAuthResponse(t, tokenLogin).User.ID)
}

func TestRegisterAndLogin(t *testing.T) {
	r := setupRouter(t)

	register := map[string]string{
		"first_name": "Reg",
		"last_name":  "User",
		"email":      "Reg.User@Example.com",
		"password":   "longenough",
	}

	response := doJSON(t, r, http.MethodPost, RegisterEndpoint, "", register)
	require.Equal(t, http.StatusCreated, response.Code)
	body := decodeAuthResponse(t, response)
	assert.NotEmpty(t, body.Token)
	assert.Equal(t, "bearer", body.TokenType)
	assert.Equal(t, "reg.user@example.com", body.User.Email)

	duplicate := doJSON(t, r, http.MethodPost, RegisterEndpoint, "", register)
	require.Equal(t, http.StatusConflict, duplicate.Code)

	badLogin := doJSON(t, r, http.MethodPost, LoginEndpoint, "", map[string]string{
		"email":    "reg.user@example.com",
		"password": "wrongpassword",
	})
	require.Equal(t, http.StatusUnauthorized, badLogin.Code)

	login := doJSON(t, r, http.MethodPost, LoginEndpoint, "", map[string]string{
		"email":    "reg.user@example.com",
		"password": "longenough",
	})
	require.Equal(t, http.StatusOK, login.Code)
	assert.Equal(t, body.User.ID, decodeAuthResponse(t, login).User.ID)
}

func TestRegisterValidation(t *testing.T) {
	r := setupRouter(t)

	tt := []struct {
		name string
		body map[string]string
	}{
		{
			name: "missing fields",
			body: map[string]string{"email": "a@b.com", "password": "longenough"},
		},
		{
			name: "short password",
			body: map[string]string{
				"first_name": "A", "last_name": "B",
				"email": "a@b.com", "password": "short",
			},
		},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			response := doJSON(t, r, http.MethodPost, RegisterEndpoint, "", tc.body)
			require.Equal(t, http.StatusBadRequest, response.Code)
		})
	}
}

func TestLinkAndUnlinkFlow(t *testing.T) {
	r := setupRouter(t)

	register := doJSON(t, r, http.MethodPost, RegisterEndpoint, "", map[string]string{
		"first_name": "Link",
		"last_name":  "User",
		"email":      "link.user@example.com",
		"password":   "longenough",
	})
	require.Equal(t, http.StatusCreated, register.Code)
	bearer := decodeAuthResponse(t, register).Token

	unauthenticated := doJSON(t, r, http.MethodPost, "/auth/link/facebook", "", map[string]string{
		"token": "valid-facebook-token",
	})
	require.Equal(t, http.StatusUnauthorized, unauthenticated.Code)

	unknown := doJSON(t, r, http.MethodPost, "/auth/link/twitter", bearer, map[string]string{
		"token": "whatever",
	})
	require.Equal(t, http.StatusBadRequest, unknown.Code)

	link := doJSON(t, r, http.MethodPost, "/auth/link/facebook", bearer, map[string]string{
		"token": "valid-facebook-token",
	})
	require.Equal(t, http.StatusOK, link.Code)

	relink := doJSON(t, r, http.MethodPost, "/auth/link/facebook", bearer, map[string]string{
		"token": "valid-facebook-token",
	})
	require.Equal(t, http.StatusConflict, relink.Code)

	// Password credential remains, so unlinking is allowed.
	unlink := doJSON(t, r, http.MethodDelete, "/auth/link/facebook", bearer, nil)
	require.Equal(t, http.StatusOK, unlink.Code)

	again := doJSON(t, r, http.MethodDelete, "/auth/link/facebook", bearer, nil)
	require.Equal(t, http.StatusNotFound, again.Code)
}

func TestUnlinkLastLoginMethodOverHTTP(t *testing.T) {
	r := setupRouter(t)

	login := doJSON(t, r, http.MethodPost, GoogleLoginEndpoint, "", map[string]string{
		"token": "valid-google-token",
	})
	require.Equal(t, http.StatusOK, login.Code)
	bearer := decodeAuthResponse(t, login).Token

	// OAuth-only account: its sole provider link cannot be removed.
	unlink := doJSON(t, r, http.MethodDelete, "/auth/link/google", bearer, nil)
	require.Equal(t, http.StatusBadRequest, unlink.Code)
	assert.Contains(t, unlink.Body.String(), "last login method")
}
