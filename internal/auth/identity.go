package auth

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrEmailTaken         = errors.New("email already registered")
	// ErrUnsupported is returned by backends where the client signs in directly
	// against the identity provider.
	ErrUnsupported = errors.New("operation not supported by identity backend")
)

// Identity is what a verified session token says about its holder. It carries
// no profile data beyond what the identity backend knows.
type Identity struct {
	Subject   string
	Email     string
	Name      string
	SessionID string
}

// UserID parses Subject as a profile id.
func (i Identity) UserID() (uuid.UUID, error) {
	return uuid.Parse(i.Subject)
}

// Verifier turns a bearer token into an Identity.
type Verifier interface {
	Verify(ctx context.Context, raw string) (*Identity, error)
}
