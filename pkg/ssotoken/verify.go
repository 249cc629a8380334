package ssotoken

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"slices"
	"strings"
	"time"
)

var (
	ErrMalformed        = errors.New("ssotoken: malformed token")
	ErrAlgMismatch      = errors.New("ssotoken: algorithm mismatch")
	ErrInvalidSignature = errors.New("ssotoken: invalid signature")
	ErrExpired          = errors.New("ssotoken: token expired")
	ErrNotYetValid      = errors.New("ssotoken: token not yet valid")
	ErrIssuer           = errors.New("ssotoken: issuer mismatch")
	ErrAudience         = errors.New("ssotoken: audience mismatch")
	ErrTokenType        = errors.New("ssotoken: wrong token type")
)

// VerifyOptions captures the expectations a verifier enforces.
type VerifyOptions struct {
	// Issuer the token must have (iss). Empty means "don't care".
	Issuer string

	// Audience the token must contain (aud). Empty means "don't care".
	Audience string

	// TokenType the caller expects. Empty means "don't care".
	TokenType TokenType

	// Leeway allows small clock skew when validating exp.
	Leeway time.Duration

	// Now overrides the clock, mainly for boundary tests.
	Now func() time.Time
}

func (o VerifyOptions) now() time.Time {
	if o.Now != nil {
		return o.Now()
	}
	return time.Now().UTC()
}

// header is the decoded first segment. Only alg matters to us.
type header struct {
	Alg string `json:"alg"`
	Typ string `json:"typ"`
}

// Verify checks a compact token against the shared secret and the given
// expectations, returning the embedded claims on success.
//
// This path deliberately avoids the full JWT library machinery: the
// gatekeeper runs on every inbound request and in restricted execution
// contexts, so verification is HMAC-SHA256 over the first two segments
// with a constant-time comparison, plus plain JSON decoding. It stays
// wire-compatible with tokens produced by Signer.
func Verify(token string, secret []byte, opts VerifyOptions) (Claims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Claims{}, ErrMalformed
	}

	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return Claims{}, ErrMalformed
	}

	headerRaw, err := base64.RawURLEncoding.DecodeString(parts[0])
	if err != nil {
		return Claims{}, ErrMalformed
	}
	var h header
	if err := json.Unmarshal(headerRaw, &h); err != nil {
		return Claims{}, ErrMalformed
	}
	if h.Alg != "HS256" {
		return Claims{}, ErrAlgMismatch
	}

	sig, err := base64.RawURLEncoding.DecodeString(parts[2])
	if err != nil {
		return Claims{}, ErrMalformed
	}

	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(parts[0]))
	mac.Write([]byte("."))
	mac.Write([]byte(parts[1]))
	if !hmac.Equal(sig, mac.Sum(nil)) {
		return Claims{}, ErrInvalidSignature
	}

	claims, err := decodePayload(parts[1])
	if err != nil {
		return Claims{}, err
	}

	now := opts.now()
	if claims.ExpiresAt != nil && now.After(claims.ExpiresAt.Add(opts.Leeway)) {
		return Claims{}, ErrExpired
	}
	if claims.NotBefore != nil && now.Before(claims.NotBefore.Add(-opts.Leeway)) {
		return Claims{}, ErrNotYetValid
	}

	if opts.Issuer != "" && claims.Issuer != opts.Issuer {
		return Claims{}, ErrIssuer
	}
	if opts.Audience != "" && !slices.Contains(claims.Audience, opts.Audience) {
		return Claims{}, ErrAudience
	}
	if opts.TokenType != "" && claims.Type != opts.TokenType {
		return Claims{}, ErrTokenType
	}

	return claims, nil
}

// DecodeUnverified extracts claims without checking the signature. The
// client-side refresh scheduler uses this to read exp ahead of time; the
// server remains the verifying authority, never trust these claims for
// authorization.
func DecodeUnverified(token string) (Claims, error) {
	parts := strings.Split(strings.TrimSpace(token), ".")
	if len(parts) != 3 {
		return Claims{}, ErrMalformed
	}
	return decodePayload(parts[1])
}

// WellFormed reports whether the token has the compact three-segment
// shape. Used for cheap validation before storing a token client-side.
func WellFormed(token string) bool {
	token = strings.TrimSpace(token)
	if token == "" {
		return false
	}
	return strings.Count(token, ".") == 2
}

func decodePayload(segment string) (Claims, error) {
	payload, err := base64.RawURLEncoding.DecodeString(segment)
	if err != nil {
		return Claims{}, ErrMalformed
	}
	var claims Claims
	if err := json.Unmarshal(payload, &claims); err != nil {
		return Claims{}, ErrMalformed
	}
	return claims, nil
}
