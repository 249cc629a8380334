// Package ssoclient is the resource app's client side of the SSO
// bridge: a two-slot token cache with an explicit lifecycle, a
// proactive refresh scheduler, and an HTTP wrapper that transparently
// retries once after a 401 by rotating the pair. All refresh paths
// share a single-flight guard so concurrent callers never race each
// other into invalidating a pair mid-use.
package ssoclient

import (
	"sync"
)

// TokenPair mirrors the issuer's refresh response.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    int    `json:"expiresIn"`
}

// Session is the browser-storage analogue: two slots holding the
// current pair. Lifecycle: Store on hand-off, overwrite on every
// refresh, Clear on any failure that is not a simple expiry or on
// logout. Pass it by reference to the scheduler and the fetch wrapper
// rather than reaching for ambient storage.
type Session struct {
	mu           sync.RWMutex
	accessToken  string
	refreshToken string
}

// NewSession creates an empty session. Store the hand-off pair into it.
func NewSession() *Session {
	return &Session{}
}

// Store overwrites both slots with a new pair.
func (s *Session) Store(pair TokenPair) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accessToken = pair.AccessToken
	s.refreshToken = pair.RefreshToken
}

// Clear wipes both slots. Called on hard verification failure or logout.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accessToken = ""
	s.refreshToken = ""
}

// AccessToken returns the current access token, empty when logged out.
func (s *Session) AccessToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.accessToken
}

// RefreshToken returns the current refresh token.
func (s *Session) RefreshToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.refreshToken
}

// Authenticated reports whether both slots are populated.
func (s *Session) Authenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.accessToken != "" && s.refreshToken != ""
}
