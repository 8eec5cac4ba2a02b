package auth

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gofrs/uuid"
	"github.com/gorilla/mux"
	"github.com/idlink/idlink/internal/auth/provider"
	"github.com/idlink/idlink/internal/database"
	"github.com/idlink/idlink/internal/identity"
	"github.com/idlink/idlink/internal/token"
	"github.com/idlink/idlink/pkg/model"
	"github.com/idlink/idlink/util/passwordutil"
)

const (
	// RegisterEndpoint is the endpoint for registering new users
	// with email/password credentials.
	RegisterEndpoint = "/auth/register"

	// LoginEndpoint is the endpoint for email/password login.
	LoginEndpoint = "/auth/login"

	// GoogleLoginEndpoint accepts a Google ID token and logs the
	// resolved user in.
	GoogleLoginEndpoint = "/auth/google"

	// FacebookLoginEndpoint accepts a Facebook access token and logs
	// the resolved user in.
	FacebookLoginEndpoint = "/auth/facebook"

	// OAuthCallbackEndpoint completes the authorization-code flow for
	// web clients: the provider redirects here with a code, which is
	// exchanged and the resolved user logged in.
	OAuthCallbackEndpoint = "/auth/{provider}/callback"

	// LinkEndpoint links (POST) or unlinks (DELETE) a provider
	// identity for the authenticated user.
	LinkEndpoint = "/auth/link/{provider}"
)

// SetupRoutes configures routing for the given mux.
func SetupRoutes(r *mux.Router, db database.Database, registry *provider.Registry) {
	resolver := identity.NewResolver(db)
	r.Handle(RegisterEndpoint, registerHandler{db}).Methods(http.MethodPost)
	r.Handle(LoginEndpoint, loginHandler{db}).Methods(http.MethodPost)
	r.Handle(GoogleLoginEndpoint, oauthLoginHandler{resolver, registry, model.ProviderGoogle}).Methods(http.MethodPost)
	r.Handle(FacebookLoginEndpoint, oauthLoginHandler{resolver, registry, model.ProviderFacebook}).Methods(http.MethodPost)
	r.Handle(OAuthCallbackEndpoint, oauthCallbackHandler{resolver, registry}).Methods(http.MethodGet)
	r.Handle(LinkEndpoint, BearerAuthenticated(linkHandler{resolver, registry})).Methods(http.MethodPost)
	r.Handle(LinkEndpoint, BearerAuthenticated(unlinkHandler{resolver})).Methods(http.MethodDelete)
}

func contextWithTimeout(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), database.DefaultTimeout)
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("Error encoding response: %v", err)
	}
}

func loginResponse(message, sessionToken string, user *model.User) map[string]interface{} {
	return map[string]interface{}{
		"message":    message,
		"token":      sessionToken,
		"token_type": token.TypeBearer,
		"user":       user.ToUserData(),
	}
}

func writeError(w http.ResponseWriter, err error) {
	var domainErr *model.Error
	if errors.As(err, &domainErr) {
		writeJSON(w, domainErr.Status, map[string]string{"message": domainErr.Message})
		return
	}
	log.Printf("Internal error: %v", err)
	writeJSON(w, http.StatusInternalServerError, map[string]string{"message": "Internal Server Error"})
}

type registerRequest struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Password  string `json:"password"`
}

type registerHandler struct {
	db database.Database
}

func (h registerHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, model.ValidationError("invalid request body"))
		return
	}
	if req.FirstName == "" || req.LastName == "" || req.Email == "" || req.Password == "" {
		writeError(w, model.ValidationError("All fields are required"))
		return
	}
	if err := passwordutil.ValidatePassword(req.Password); err != nil {
		writeError(w, err)
		return
	}

	ctx, cancel := contextWithTimeout(r)
	defer cancel()

	email := model.NormalizeEmail(req.Email)
	if _, err := h.db.GetUserByEmail(ctx, email); err == nil {
		writeError(w, model.ErrUserExists)
		return
	} else if !errors.Is(err, database.ErrNotFound) {
		writeError(w, err)
		return
	}

	hash, err := passwordutil.GeneratePasswordHash(req.Password)
	if err != nil {
		writeError(w, err)
		return
	}
	id, err := uuid.NewV4()
	if err != nil {
		writeError(w, err)
		return
	}
	now := time.Now().UTC()
	user := &model.User{
		ID:           id.String(),
		Email:        email,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := h.db.CreateUser(ctx, user); err != nil {
		if errors.Is(err, database.ErrConflict) {
			writeError(w, model.ErrUserExists)
			return
		}
		writeError(w, err)
		return
	}

	sessionToken, err := token.IssueSessionToken(user.ID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, loginResponse("User registered", sessionToken, user))
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginHandler struct {
	db database.Database
}

func (h loginHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, model.ValidationError("invalid request body"))
		return
	}
	if req.Email == "" || req.Password == "" {
		writeError(w, model.ValidationError("All fields are required"))
		return
	}

	ctx, cancel := contextWithTimeout(r)
	defer cancel()

	user, err := h.db.GetUserByEmail(ctx, model.NormalizeEmail(req.Email))
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			writeError(w, model.ErrInvalidCredentials)
			return
		}
		writeError(w, err)
		return
	}
	if !user.HasPassword() || !passwordutil.CheckPasswordHash(req.Password, user.PasswordHash) {
		writeError(w, model.ErrInvalidCredentials)
		return
	}

	sessionToken, err := token.IssueSessionToken(user.ID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, loginResponse("Login successful", sessionToken, user))
}

type providerTokenRequest struct {
	Token string `json:"token"`
}

type oauthLoginHandler struct {
	resolver *identity.Resolver
	registry *provider.Registry
	provider model.Provider
}

func (h oauthLoginHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req providerTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Token == "" {
		writeError(w, model.ErrTokenRequired)
		return
	}

	verifier, err := h.registry.Get(h.provider)
	if err != nil {
		writeError(w, err)
		return
	}

	ctx, cancel := contextWithTimeout(r)
	defer cancel()

	ident, err := verifier.Verify(ctx, req.Token)
	if err != nil {
		writeError(w, err)
		return
	}

	user, err := h.resolver.ResolveOrCreate(ctx, ident)
	if err != nil {
		writeError(w, err)
		return
	}

	sessionToken, err := token.IssueSessionToken(user.ID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, loginResponse("Login successful", sessionToken, user))
}

type oauthCallbackHandler struct {
	resolver *identity.Resolver
	registry *provider.Registry
}

func (h oauthCallbackHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	prov, err := model.ParseProvider(mux.Vars(r)["provider"])
	if err != nil {
		writeError(w, model.ValidationError(err.Error()))
		return
	}
	code := r.URL.Query().Get("code")
	if code == "" {
		writeError(w, model.ValidationError("Authorization code is required"))
		return
	}

	verifier, err := h.registry.Get(prov)
	if err != nil {
		writeError(w, err)
		return
	}

	ctx, cancel := contextWithTimeout(r)
	defer cancel()

	ident, err := verifier.Exchange(ctx, code)
	if err != nil {
		writeError(w, err)
		return
	}

	user, err := h.resolver.ResolveOrCreate(ctx, ident)
	if err != nil {
		writeError(w, err)
		return
	}

	sessionToken, err := token.IssueSessionToken(user.ID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, loginResponse("Login successful", sessionToken, user))
}

type linkHandler struct {
	resolver *identity.Resolver
	registry *provider.Registry
}

func (h linkHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserIDFromContext(r.Context())
	if !ok {
		writeError(w, model.AuthError("Unauthorized"))
		return
	}

	prov, err := model.ParseProvider(mux.Vars(r)["provider"])
	if err != nil {
		writeError(w, model.ValidationError(err.Error()))
		return
	}

	var req providerTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Token == "" {
		writeError(w, model.ErrTokenRequired)
		return
	}

	verifier, err := h.registry.Get(prov)
	if err != nil {
		writeError(w, err)
		return
	}

	ctx, cancel := contextWithTimeout(r)
	defer cancel()

	ident, err := verifier.Verify(ctx, req.Token)
	if err != nil {
		writeError(w, err)
		return
	}

	account, err := h.resolver.LinkProvider(ctx, userID, ident)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Provider linked",
		"account": account,
	})
}

type unlinkHandler struct {
	resolver *identity.Resolver
}

func (h unlinkHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserIDFromContext(r.Context())
	if !ok {
		writeError(w, model.AuthError("Unauthorized"))
		return
	}

	prov, err := model.ParseProvider(mux.Vars(r)["provider"])
	if err != nil {
		writeError(w, model.ValidationError(err.Error()))
		return
	}

	ctx, cancel := contextWithTimeout(r)
	defer cancel()

	if err := h.resolver.UnlinkProvider(ctx, userID, prov); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"message": "Provider unlinked",
	})
}
