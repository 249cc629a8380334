package store

import (
	"context"
	"errors"

	"github.com/carbonatlas/geoauth/internal/identity"
)

var ErrNotFound = errors.New("store: not found")

// Store is the root data access interface. Concrete drivers (sqlite for
// now) implement this. The SSO core only needs identity lookup; the rest
// of the issuer application's schema lives elsewhere.
type Store interface {
	Identities() Identities

	ApplyMigrations() error

	// Close releases any underlying resources.
	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

type Identities interface {
	// GetBySubject returns an identity by its stable subject identifier.
	// This is the lookup the refresh coordinator runs on every rotation,
	// so role and verification changes take effect without a re-login.
	GetBySubject(ctx context.Context, subjectID string) (identity.Identity, error)

	// GetByEmail returns an identity by email. Used by the issuer's
	// session layer after the credential collaborator has authenticated
	// a user; email is never a token-level key.
	GetByEmail(ctx context.Context, email string) (identity.Identity, error)

	// Create inserts a new identity (subject id provided by app via ULID).
	Create(ctx context.Context, id identity.Identity) error

	// SetEmailVerified flips the verification flag and bumps updated_at.
	SetEmailVerified(ctx context.Context, subjectID string, verified bool) error
}
