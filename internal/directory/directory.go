// Package directory resolves admin identities. Two implementations
// live behind one lookup: table-backed users and the virtual
// super-admin whose credentials come from the environment.
package directory

import (
	"context"
	"errors"
	"time"

	"repeater-directory/internal/models"
)

var (
	ErrNotFound           = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrDisabled           = errors.New("user disabled")
)

// Identity is the live view of an admin: the fields the trust layer
// needs, detached from how they are stored.
type Identity struct {
	Username     string
	Enabled      bool
	TokenVersion int64
	// Virtual marks the super-admin, which has no directory row.
	Virtual bool
	// User is the backing row; nil for the virtual identity.
	User *models.User
}

// Directory is the identity collaborator of the trust layer.
type Directory interface {
	// Lookup returns the identity with its current token version.
	Lookup(ctx context.Context, username string) (*Identity, error)
	// Authenticate verifies a password and returns the identity.
	// Returns ErrInvalidCredentials on mismatch and ErrDisabled for a
	// valid password on a disabled account.
	Authenticate(ctx context.Context, username, password string) (*Identity, error)
	// RecordLogin stores login metadata. No-op for identities without
	// a row.
	RecordLogin(ctx context.Context, username, device, uaHash string, at time.Time) error
	// BumpTokenVersion increments the revocation counter and returns
	// the updated identity. This is the only revocation mechanism.
	BumpTokenVersion(ctx context.Context, username string) (*Identity, error)
}
