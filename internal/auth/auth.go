package auth

import (
	"errors"
	"regexp"
	"strings"
)

var (
	// ErrEmptyHeader represents an empty header.
	ErrEmptyHeader = errors.New("empty header")

	// ErrIncorrectHeaderFormat means the formatting of the header was incorrect.
	ErrIncorrectHeaderFormat = errors.New("incorrect header format")

	// ErrInvalidToken means an invalid character was present in the auth token.
	// Only base64 digits are allowed.
	ErrInvalidToken = errors.New("invalid token")
)

// ValidTokenRegex matches only valid token characters (i.e. base64 characters).
var ValidTokenRegex = regexp.MustCompile(`^[a-zA-Z0-9-._~+/]+=*$`)

// ParseBearerAuthorizationHeader parses the Authorization header field
// and returns the authorization token, if present and valid.
//
// The Authorization header should be in the form (RFC6750 2.1)
// b64token    = 1*( ALPHA / DIGIT /
//
//	"-" / "." / "_" / "~" / "+" / "/" ) *"="
//
// credentials = "Bearer" 1*SP b64token
func ParseBearerAuthorizationHeader(authHeader string) (string, error) {
	if authHeader == "" {
		return "", ErrEmptyHeader
	}
	fields := strings.Fields(authHeader)
	if len(fields) != 2 {
		return "", ErrIncorrectHeaderFormat
	}
	if fields[0] != "Bearer" {
		return "", ErrIncorrectHeaderFormat
	}

	token := fields[1]
	if !ValidTokenRegex.MatchString(token) {
		return "", ErrInvalidToken
	}

	return token, nil
}
