package ssotoken

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/carbonatlas/geoauth/pkg/idx"
)

// Default token TTL constants for the cross-app SSO flow.
// These provide sensible security defaults but can be overridden per-service.
const (
	// DefaultAccessTokenTTL is the default lifetime for access tokens.
	// Short-lived so a leaked token has a bounded window of use.
	DefaultAccessTokenTTL = time.Hour

	// DefaultRefreshTokenTTL is the default lifetime for refresh tokens.
	// Longer-lived for user convenience. Must always exceed the access TTL.
	DefaultRefreshTokenTTL = 7 * 24 * time.Hour
)

// Default issuer/audience constants. The issuer app mints tokens for the
// resource app; both sides can override these via configuration.
const (
	DefaultIssuer   = "onboarding-app"
	DefaultAudience = "geomap-app"
)

// TokenType distinguishes access tokens from refresh tokens. A refresh
// token must never be accepted where an access token is expected, and
// vice versa.
type TokenType string

const (
	TypeAccess  TokenType = "access"
	TypeRefresh TokenType = "refresh"
)

// Permission is a closed set known at compile time. Route rules reference
// these constants instead of arbitrary strings.
type Permission string

const (
	PermissionRead Permission = "read"
	PermissionEdit Permission = "edit"
)

// Role is the coarse role attached to an identity.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Claims are the identity claims embedded in every token. We keep changes
// additive so older tokens stay decodable across deploys.
type Claims struct {
	jwt.RegisteredClaims

	// Email for the authenticated user. Informational only, never a key.
	Email string `json:"email,omitempty"`

	// Name is the display name, may be empty.
	Name string `json:"name,omitempty"`

	// Verified reports whether the email address has been confirmed.
	// It gates whether Permissions includes edit access.
	Verified bool `json:"verified"`

	// Permissions derived from Verified at mint time.
	Permissions []Permission `json:"permissions,omitempty"`

	// Role defaults to "user".
	Role Role `json:"role,omitempty"`

	// Type marks the token as access or refresh.
	Type TokenType `json:"type,omitempty"`
}

// PermissionsFor derives the permission set from the email-verified flag.
// Unverified identities are read-only.
func PermissionsFor(verified bool) []Permission {
	if verified {
		return []Permission{PermissionRead, PermissionEdit}
	}
	return []Permission{PermissionRead}
}

// HasPermission reports whether the claim set carries the permission.
func (c *Claims) HasPermission(p Permission) bool {
	for _, have := range c.Permissions {
		if have == p {
			return true
		}
	}
	return false
}

// NewClaims builds minimally-correct claims for the given token type.
func NewClaims(
	subject, email, name string,
	verified bool,
	role Role,
	typ TokenType,
	ttl time.Duration,
	issuer, audience string,
	now time.Time,
) Claims {
	if role == "" {
		role = RoleUser
	}
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        idx.New().String(),
			Issuer:    issuer,
			Subject:   subject,
			Audience:  jwt.ClaimStrings{audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Email:       email,
		Name:        name,
		Verified:    verified,
		Permissions: PermissionsFor(verified),
		Role:        role,
		Type:        typ,
	}
}
