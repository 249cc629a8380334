package ssotoken

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// Signer mints HS256-signed tokens with a symmetric secret shared
// out-of-band between the issuer and resource apps.
type Signer struct {
	Secret []byte
}

// Sign produces the compact three-segment form (header.payload.signature).
func (s *Signer) Sign(claims Claims) (string, error) {
	if len(s.Secret) == 0 {
		return "", fmt.Errorf("ssotoken: signing secret is empty")
	}

	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := tok.SignedString(s.Secret)
	if err != nil {
		return "", fmt.Errorf("ssotoken: sign: %w", err)
	}
	return signed, nil
}
