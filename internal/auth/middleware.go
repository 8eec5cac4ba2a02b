package auth

import (
	"context"
	"net/http"

	"github.com/idlink/idlink/internal/token"
	"github.com/idlink/idlink/pkg/model"
)

type userIDKey string

const userIDContextKey userIDKey = "userID"

// BearerAuthenticated protects an endpoint behind session token
// verification, injecting the authenticated user id into the request
// context.
func BearerAuthenticated(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, err := ParseBearerAuthorizationHeader(r.Header.Get("Authorization"))
		if err != nil {
			writeError(w, model.AuthError("Authorization header missing or malformed"))
			return
		}

		userID, err := token.VerifySessionToken(raw)
		if err != nil {
			writeError(w, err)
			return
		}

		ctx := context.WithValue(r.Context(), userIDContextKey, userID)
		h.ServeHTTP(w, r.WithContext(ctx))
	})
}

// UserIDFromContext retrieves the authenticated user id placed in the
// context by BearerAuthenticated.
func UserIDFromContext(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(userIDContextKey).(string)
	return userID, ok
}
