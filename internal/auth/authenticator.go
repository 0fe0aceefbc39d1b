package auth

import (
	"context"

	"github.com/mmynk/splitplus/internal/models"
)

// Authenticator defines the interface for authentication implementations.
// The RPC layer only needs a user back; how the credential is checked is up
// to the implementation.
type Authenticator interface {
	// Register creates a new user account with the given username and credential.
	// Returns the created user or an error if registration fails.
	Register(ctx context.Context, username, credential string) (*models.User, error)

	// Authenticate verifies the user's credentials and returns the user if successful.
	Authenticate(ctx context.Context, username, credential string) (*models.User, error)

	// ValidateCredential checks if the credential meets the implementation's requirements.
	ValidateCredential(credential string) error
}
