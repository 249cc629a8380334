// Package identity holds the verified identity record the SSO core
// consumes. Registration, password hashing and OAuth handshakes live in a
// separate credential-management service; by the time a record lands
// here it is already verified.
package identity

import (
	"time"

	"github.com/carbonatlas/geoauth/pkg/ssotoken"
)

// Identity is the record the issuer embeds into tokens. SubjectID is the
// stable opaque key, never reused across users. Email is informational.
type Identity struct {
	SubjectID     string
	Email         string
	DisplayName   string
	EmailVerified bool
	Role          ssotoken.Role
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
