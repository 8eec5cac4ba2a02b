// Package user exposes the profile endpoints for the authenticated
// user: profile read, profile update, password change, and account
// deletion.
package user

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/idlink/idlink/internal/auth"
	"github.com/idlink/idlink/internal/database"
	"github.com/idlink/idlink/pkg/model"
	"github.com/idlink/idlink/util/passwordutil"
)

// UserEndpoint serves the authenticated user's profile.
const UserEndpoint = "/user"

// PasswordEndpoint sets or changes the user's password credential.
const PasswordEndpoint = "/user/password"

// SetupRoutes initializes user routes.
func SetupRoutes(r *mux.Router, db database.Database) {
	r.Handle(UserEndpoint, auth.BearerAuthenticated(getHandler{db})).Methods(http.MethodGet)
	r.Handle(UserEndpoint, auth.BearerAuthenticated(updateHandler{db})).Methods(http.MethodPut)
	r.Handle(UserEndpoint, auth.BearerAuthenticated(deleteHandler{db})).Methods(http.MethodDelete)
	r.Handle(PasswordEndpoint, auth.BearerAuthenticated(passwordHandler{db})).Methods(http.MethodPut)
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("Error encoding response: %v", err)
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

func requestUser(r *http.Request, db database.Database) (*model.User, context.Context, context.CancelFunc, error) {
	ctx, cancel := context.WithTimeout(r.Context(), database.DefaultTimeout)
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		return nil, ctx, cancel, model.AuthError("Unauthorized")
	}
	user, err := db.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, ctx, cancel, model.ErrUserNotFound
		}
		return nil, ctx, cancel, err
	}
	return user, ctx, cancel, nil
}

type getHandler struct {
	db database.Database
}

func (h getHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	user, ctx, cancel, err := requestUser(r, h.db)
	defer cancel()
	if err != nil {
		writeError(w, err)
		return
	}

	accounts, err := h.db.ListOAuthAccountsForUser(ctx, user.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	providers := make([]model.Provider, 0, len(accounts))
	for _, account := range accounts {
		providers = append(providers, account.Provider)
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"user":             user.ToUserData(),
		"linked_providers": providers,
	})
}

type updateRequest struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Image     string `json:"image"`
}

type updateHandler struct {
	db database.Database
}

func (h updateHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	user, ctx, cancel, err := requestUser(r, h.db)
	defer cancel()
	if err != nil {
		writeError(w, err)
		return
	}

	var req updateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, model.ValidationError("invalid request body"))
		return
	}

	if req.FirstName != "" {
		user.FirstName = req.FirstName
	}
	if req.LastName != "" {
		user.LastName = req.LastName
	}
	if req.Image != "" {
		user.Image = req.Image
	}
	user.UpdatedAt = time.Now().UTC()

	if err := h.db.UpdateUser(ctx, user); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "User profile updated successfully",
		"user":    user.ToUserData(),
	})
}

type deleteHandler struct {
	db database.Database
}

func (h deleteHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	user, ctx, cancel, err := requestUser(r, h.db)
	defer cancel()
	if err != nil {
		writeError(w, err)
		return
	}

	if err := h.db.DeleteUser(ctx, user.ID); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"message": "User account deleted successfully",
	})
}

type passwordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

type passwordHandler struct {
	db database.Database
}

// ServeHTTP sets or changes the user's password credential. Setting a
// password on an OAuth-only account is what later allows the user to
// unlink their sole provider identity.
func (h passwordHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	user, ctx, cancel, err := requestUser(r, h.db)
	defer cancel()
	if err != nil {
		writeError(w, err)
		return
	}

	var req passwordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, model.ValidationError("invalid request body"))
		return
	}
	if err := passwordutil.ValidatePassword(req.NewPassword); err != nil {
		writeError(w, err)
		return
	}
	if user.HasPassword() && !passwordutil.CheckPasswordHash(req.CurrentPassword, user.PasswordHash) {
		writeError(w, model.ErrInvalidCredentials)
		return
	}

	hash, err := passwordutil.GeneratePasswordHash(req.NewPassword)
	if err != nil {
		writeError(w, err)
		return
	}
	user.PasswordHash = hash
	user.UpdatedAt = time.Now().UTC()

	if err := h.db.UpdateUser(ctx, user); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"message": "Password updated successfully",
	})
}
