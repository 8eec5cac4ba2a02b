package model

import (
	"strings"
	"time"
)

// User is a local account. It is created either by direct registration
// (with a password credential) or by a first successful OAuth resolution
// (no password credential, verified).
type User struct {
	ID           string    `json:"id"` // uuid
	Email        string    `json:"email"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	PasswordHash string    `json:"password_hash,omitempty"`
	Image        string    `json:"image,omitempty"`
	IsVerified   bool      `json:"is_verified"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// HasPassword reports whether the user holds a password credential,
// i.e. whether password login is a usable login method for them.
func (u *User) HasPassword() bool {
	return u.PasswordHash != ""
}

// ToUserData converts a user object to a user data object for sharing.
func (u *User) ToUserData() *UserData {
	return &UserData{
		ID:         u.ID,
		Email:      u.Email,
		FirstName:  u.FirstName,
		LastName:   u.LastName,
		Image:      u.Image,
		IsVerified: u.IsVerified,
		CreatedAt:  u.CreatedAt,
	}
}

// UserData holds the key user data for sharing externally.
// It never carries the password hash.
type UserData struct {
	ID         string    `json:"id"`
	Email      string    `json:"email"`
	FirstName  string    `json:"first_name"`
	LastName   string    `json:"last_name"`
	Image      string    `json:"image,omitempty"`
	IsVerified bool      `json:"is_verified"`
	CreatedAt  time.Time `json:"created_at"`
}

// NormalizeEmail lower-cases and trims an email address. Every email
// stored or looked up goes through this, keeping the unique-email
// constraint case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
