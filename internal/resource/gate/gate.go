// Package gate is the resource app's request gatekeeper. It runs on
// every inbound request: extracts a bearer token, verifies it against
// the shared secret without contacting the issuer, maps the verified
// claims onto per-route rules, and either forwards the request with
// identity attached or denies it.
package gate

import (
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/carbonatlas/geoauth/pkg/httpx"
	"github.com/carbonatlas/geoauth/pkg/slogx"
	"github.com/carbonatlas/geoauth/pkg/ssotoken"
)

// CookieName is the same-origin cookie slot the resource app reads
// tokens from when no Authorization header is present.
const CookieName = "geomap-auth-token"

// Reason codes attached to login redirects so the issuer (and the
// client's silent-refresh path) can distinguish an expired token from a
// tampered or misconfigured one.
const (
	ReasonTokenExpired = "token_expired"
	ReasonInvalidToken = "invalid_token"
)

// Config wires the gatekeeper. Secret, Issuer and Audience must match
// what the issuer app signs with.
type Config struct {
	Secret   []byte
	Issuer   string
	Audience string

	// IssuerBaseURL is where browser navigations are sent to
	// re-authenticate.
	IssuerBaseURL string

	// ResourceBaseURL is used to rebuild the originally requested URL
	// for the redirect's return parameter.
	ResourceBaseURL string

	// Rules is the ordered route-rule list, first match decides.
	Rules []Rule

	// Now overrides the clock in tests.
	Now func() time.Time
}

// Gatekeeper is the middleware instance.
type Gatekeeper struct {
	cfg Config
}

func New(cfg Config) *Gatekeeper {
	return &Gatekeeper{cfg: cfg}
}

// Middleware wraps next with the per-request state machine:
// extract, verify, authorize, forward or deny.
func (g *Gatekeeper) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log := slogx.FromContext(r.Context())

		// One-hop trust for requests arriving straight from the issuer's
		// own origin, used immediately after the bridge hand-off before
		// the browser has attached a token. Only the configured issuer
		// origin qualifies.
		if g.refererTrusted(r) {
			next.ServeHTTP(w, r)
			return
		}

		rule := match(g.cfg.Rules, r.URL.Path)
		token := extractToken(r)

		if rule == nil {
			// Public route. Attach identity opportunistically so
			// downstream handlers can personalize, but never deny.
			if token != "" {
				if claims, err := g.verify(token); err == nil {
					r = forwardIdentity(r, claims)
				}
			}
			next.ServeHTTP(w, r)
			return
		}

		if token == "" {
			g.deny(w, r, http.StatusUnauthorized, "Authentication required", "")
			return
		}

		claims, err := g.verify(token)
		if err != nil {
			if errors.Is(err, ssotoken.ErrExpired) {
				log.Info("access token expired", "path", r.URL.Path)
				g.denyExpired(w, r)
				return
			}
			log.Warn("access token rejected", "path", r.URL.Path, "err", err)
			g.deny(w, r, http.StatusUnauthorized, "Invalid token", ReasonInvalidToken)
			return
		}

		if !rule.allows(&claims) {
			g.denyForbidden(w, r)
			return
		}

		next.ServeHTTP(w, forwardIdentity(r, claims))
	})
}

func (g *Gatekeeper) verify(token string) (ssotoken.Claims, error) {
	return ssotoken.Verify(token, g.cfg.Secret, ssotoken.VerifyOptions{
		Issuer:    g.cfg.Issuer,
		Audience:  g.cfg.Audience,
		TokenType: ssotoken.TypeAccess,
		Now:       g.cfg.Now,
	})
}

func (g *Gatekeeper) refererTrusted(r *http.Request) bool {
	referer := r.Header.Get("Referer")
	return g.cfg.IssuerBaseURL != "" && referer != "" &&
		strings.HasPrefix(referer, g.cfg.IssuerBaseURL)
}

// extractToken looks for a token in priority order: Authorization
// header, same-origin cookie, URL query parameter. The query parameter
// exists only for the initial bridge hand-off. Browsers that stored the
// strings "null" or "undefined" are treated as having no token.
func extractToken(r *http.Request) string {
	if authz := r.Header.Get("Authorization"); strings.HasPrefix(authz, "Bearer ") {
		if t := sanitizeToken(strings.TrimPrefix(authz, "Bearer ")); t != "" {
			return t
		}
	}

	if c, err := r.Cookie(CookieName); err == nil {
		if t := sanitizeToken(c.Value); t != "" {
			return t
		}
	}

	return sanitizeToken(r.URL.Query().Get("token"))
}

func sanitizeToken(t string) string {
	t = strings.TrimSpace(t)
	if t == "null" || t == "undefined" {
		return ""
	}
	return t
}

func forwardIdentity(r *http.Request, claims ssotoken.Claims) *http.Request {
	r = r.WithContext(contextWithIdentity(r.Context(), claims))
	r.Header.Set("x-user-id", claims.Subject)
	r.Header.Set("x-user-email", claims.Email)
	r.Header.Set("x-user-name", claims.Name)
	return r
}

// isAPIRequest decides whether the caller wants a structured error or a
// redirect. API paths and JSON-accepting clients get JSON.
func isAPIRequest(r *http.Request) bool {
	if strings.HasPrefix(r.URL.Path, "/api/") {
		return true
	}
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}

func (g *Gatekeeper) deny(w http.ResponseWriter, r *http.Request, status int, msg, reason string) {
	if isAPIRequest(r) {
		httpx.WriteError(w, status, msg)
		return
	}
	g.redirectToLogin(w, r, reason)
}

// denyExpired distinguishes expiry from every other failure: it is the
// only silently recoverable outcome, so API callers get the
// TOKEN_EXPIRED code and browser redirects carry the token_expired
// reason for the client's silent refresh attempt.
func (g *Gatekeeper) denyExpired(w http.ResponseWriter, r *http.Request) {
	if isAPIRequest(r) {
		httpx.WriteErrorCode(w, http.StatusUnauthorized, "Token expired", "TOKEN_EXPIRED")
		return
	}
	g.redirectToLogin(w, r, ReasonTokenExpired)
}

func (g *Gatekeeper) denyForbidden(w http.ResponseWriter, r *http.Request) {
	if isAPIRequest(r) {
		httpx.WriteError(w, http.StatusForbidden, "Insufficient permissions")
		return
	}
	http.Redirect(w, r, "/unauthorized", http.StatusFound)
}

func (g *Gatekeeper) redirectToLogin(w http.ResponseWriter, r *http.Request, reason string) {
	authURL, err := url.Parse(g.cfg.IssuerBaseURL + "/auth/authenticate")
	if err != nil {
		httpx.WriteError(w, http.StatusInternalServerError, "issuer URL misconfigured")
		return
	}

	q := authURL.Query()
	q.Set("redirect", g.cfg.ResourceBaseURL+r.URL.RequestURI())
	if reason != "" {
		q.Set("reason", reason)
	}
	authURL.RawQuery = q.Encode()

	http.Redirect(w, r, authURL.String(), http.StatusFound)
}
