package service

import (
	"context"
	"errors"
	"time"

	"github.com/carbonatlas/geoauth/internal/identity"
	"github.com/carbonatlas/geoauth/internal/store"
	"github.com/carbonatlas/geoauth/pkg/slogx"
	"github.com/carbonatlas/geoauth/pkg/ssotoken"
)

var (
	ErrInvalidRefresh   = errors.New("invalid_refresh_token")
	ErrMissingRefresh   = errors.New("missing_refresh_token")
	ErrIdentityNotFound = errors.New("identity_not_found")
)

// TokenService mints and rotates the token pairs that bridge the issuer
// and resource apps. It is intentionally stateless: no session rows are
// written, expiry is the only invalidation mechanism.
type TokenService struct {
	Secret     []byte
	Store      store.Store
	Issuer     string
	Audience   string
	AccessTTL  time.Duration
	RefreshTTL time.Duration

	// Now overrides the clock in tests.
	Now func() time.Time
}

// TokenPair is what the issuer hands to the browser: a short-lived
// access token and a long-lived refresh token, both signed with the
// shared secret and distinguished by the type claim.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    int    `json:"expiresIn"` // seconds until the access token expires
}

func (s *TokenService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

// IssuePair mints a fresh access/refresh pair for the identity.
// Permissions are derived from the email-verified flag at mint time, so
// an unverified identity can never carry edit access.
func (s *TokenService) IssuePair(id identity.Identity) (TokenPair, error) {
	now := s.now()
	signer := &ssotoken.Signer{Secret: s.Secret}

	access, err := signer.Sign(s.claims(id, ssotoken.TypeAccess, s.AccessTTL, now))
	if err != nil {
		return TokenPair{}, err
	}

	refresh, err := signer.Sign(s.claims(id, ssotoken.TypeRefresh, s.RefreshTTL, now))
	if err != nil {
		return TokenPair{}, err
	}

	return TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int(s.AccessTTL.Seconds()),
	}, nil
}

// Refresh exchanges a valid refresh token for a brand-new pair. The
// identity is re-fetched so role and verification changes since the last
// login take effect now rather than at the next full login. The old pair
// is simply abandoned; there is no sliding expiry and no revocation list.
func (s *TokenService) Refresh(ctx context.Context, refreshToken string) (TokenPair, error) {
	l := slogx.FromContext(ctx)

	if refreshToken == "" {
		return TokenPair{}, ErrMissingRefresh
	}

	claims, err := ssotoken.Verify(refreshToken, s.Secret, ssotoken.VerifyOptions{
		Issuer:    s.Issuer,
		Audience:  s.Audience,
		TokenType: ssotoken.TypeRefresh,
		Now:       s.Now,
	})
	if err != nil {
		l.Info("refresh token rejected", "err", err)
		return TokenPair{}, ErrInvalidRefresh
	}

	// Do not trust the stale permission fields in the old token.
	id, err := s.Store.Identities().GetBySubject(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return TokenPair{}, ErrIdentityNotFound
		}
		return TokenPair{}, err
	}

	return s.IssuePair(id)
}

func (s *TokenService) claims(
	id identity.Identity,
	typ ssotoken.TokenType,
	ttl time.Duration,
	now time.Time,
) ssotoken.Claims {
	return ssotoken.NewClaims(
		id.SubjectID,
		id.Email,
		id.DisplayName,
		id.EmailVerified,
		id.Role,
		typ,
		ttl,
		s.Issuer,
		s.Audience,
		now,
	)
}
