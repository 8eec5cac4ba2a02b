package mock

import (
	"time"

	"github.com/gofrs/uuid"
	"github.com/idlink/idlink/pkg/model"
)

func createUUID() string {
	id, _ := uuid.NewV4()
	return id.String()
}

// GoogleIdentity represents a verified Google identity payload.
var GoogleIdentity = model.Identity{
	Provider:   model.ProviderGoogle,
	ProviderID: "google-123",
	Email:      "google.user@example.com",
	FirstName:  "Google",
	LastName:   "User",
	Image:      "https://example.com/google.png",
}

// FacebookIdentity represents a verified Facebook identity payload.
var FacebookIdentity = model.Identity{
	Provider:   model.ProviderFacebook,
	ProviderID: "facebook-123",
	Email:      "facebook.user@example.com",
	FirstName:  "Facebook",
	LastName:   "User",
	Image:      "https://example.com/facebook.png",
}

// NewUser returns a fresh password-credentialed user fixture.
func NewUser(email, passwordHash string) *model.User {
	now := time.Now().UTC()
	return &model.User{
		ID:           createUUID(),
		Email:        model.NormalizeEmail(email),
		FirstName:    "Test",
		LastName:     "User",
		PasswordHash: passwordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}
