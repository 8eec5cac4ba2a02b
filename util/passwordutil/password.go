// Package passwordutil wraps bcrypt hashing and the password policy
// applied at registration and password change.
package passwordutil

import (
	"golang.org/x/crypto/bcrypt"

	"github.com/idlink/idlink/pkg/model"
)

// MinLength is the minimum accepted password length.
const MinLength = 8

// ValidatePassword applies the password policy.
func ValidatePassword(password string) error {
	if len(password) < MinLength {
		return model.ValidationError("Password must be at least 8 characters")
	}
	return nil
}

// GeneratePasswordHash generates a hash from a password.
func GeneratePasswordHash(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes), err
}

// CheckPasswordHash compares a hash and the provided password.
func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}
