// Package token issues and verifies the bearer session tokens handed
// to clients after a successful authentication.
package token

import (
	"time"

	"github.com/gofrs/uuid"
	"github.com/golang-jwt/jwt/v5"
	"github.com/idlink/idlink/internal/config"
	"github.com/idlink/idlink/pkg/model"
)

// Type identifies the format of the token.
type Type string

// Supported token types
const (
	TypeBearer Type = "bearer"
)

type sessionClaims struct {
	jwt.RegisteredClaims
	UserID string `json:"userId"`
}

// IssueSessionToken provisions and signs a new session JWT for the user.
func IssueSessionToken(userID string) (string, error) {
	now := time.Now().UTC()
	id, err := uuid.NewV4()
	if err != nil {
		return "", err
	}
	claims := sessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    config.Current.Tokens.Issuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(config.Current.Tokens.Lifetime)),
			ID:        id.String(),
		},
		UserID: userID,
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString([]byte(config.Current.Tokens.Secret))
}

// VerifySessionToken verifies a session JWT and returns the user id it
// was issued for. Any failure maps to model.ErrInvalidSessionToken.
func VerifySessionToken(raw string) (string, error) {
	var claims sessionClaims
	t, err := jwt.ParseWithClaims(
		raw,
		&claims,
		func(t *jwt.Token) (interface{}, error) {
			return []byte(config.Current.Tokens.Secret), nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	)
	if err != nil || !t.Valid || claims.UserID == "" {
		return "", model.ErrInvalidSessionToken
	}
	return claims.UserID, nil
}
