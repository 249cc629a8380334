package http

import (
	"net/http"
	"time"

	"github.com/carbonatlas/geoauth/pkg/ssotoken"
)

// SessionCookie names the issuer's own login cookie. It is scoped to
// the issuer origin and never leaves it.
const SessionCookie = "onboarding-session"

// sessionManager mints and reads the issuer's session cookie. The
// cookie value is a signed token whose audience is the issuer itself,
// so a stolen session cookie can never pass the resource gatekeeper.
type sessionManager struct {
	secret []byte
	issuer string
	ttl    time.Duration

	now func() time.Time
}

func (s *sessionManager) clock() time.Time {
	if s.now != nil {
		return s.now()
	}
	return time.Now()
}

// Establish signs a session token for the subject and sets the cookie.
func (s *sessionManager) Establish(w http.ResponseWriter, subjectID string) error {
	claims := ssotoken.NewClaims(subjectID, "", "", false, ssotoken.RoleUser,
		ssotoken.TypeAccess, s.ttl, s.issuer, s.issuer, s.clock())

	signer := &ssotoken.Signer{Secret: s.secret}
	signed, err := signer.Sign(claims)
	if err != nil {
		return err
	}

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    signed,
		Path:     "/",
		MaxAge:   int(s.ttl / time.Second),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// Subject returns the logged-in subject ID, or "" when the request
// carries no valid session.
func (s *sessionManager) Subject(r *http.Request) string {
	cookie, err := r.Cookie(SessionCookie)
	if err != nil || cookie.Value == "" {
		return ""
	}

	claims, err := ssotoken.Verify(cookie.Value, s.secret, ssotoken.VerifyOptions{
		Issuer:    s.issuer,
		Audience:  s.issuer,
		TokenType: ssotoken.TypeAccess,
		Now:       s.clock,
	})
	if err != nil {
		return ""
	}
	return claims.Subject
}

// Clear expires the session cookie.
func (s *sessionManager) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}
