package http

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/carbonatlas/geoauth/internal/issuer/service"
	"github.com/carbonatlas/geoauth/internal/store"
	"github.com/carbonatlas/geoauth/pkg/slogx"
)

// BridgeHandler hands a signed-in browser over to the map app. It
// mints a fresh token pair and sends the browser to the map app with
// the pair in query parameters, which the landing page moves into
// local storage and strips from the address bar.
type BridgeHandler struct {
	Sessions        *sessionManager
	Store           store.Store
	TokenService    *service.TokenService
	ResourceBaseURL string
}

func (h *BridgeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	log := slogx.FromContext(r.Context())

	subject := h.Sessions.Subject(r)
	if subject == "" {
		http.Redirect(w, r, loginURL(r.URL.Query().Get("redirect"), ""), http.StatusFound)
		return
	}

	ident, err := h.Store.Identities().GetBySubject(r.Context(), subject)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// Session outlived the account. Force a fresh login.
			h.Sessions.Clear(w)
			http.Redirect(w, r, loginURL(r.URL.Query().Get("redirect"), "invalid_token"), http.StatusFound)
			return
		}
		log.Error("identity lookup failed", "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	if !ident.EmailVerified {
		http.Redirect(w, r, "/auth/verify", http.StatusFound)
		return
	}

	pair, err := h.TokenService.IssuePair(ident)
	if err != nil {
		log.Error("token issue failed", "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	target := handoffURL(h.ResourceBaseURL, r.URL.Query().Get("redirect"), pair)
	log.Info("bridging to map app", "subject_id", ident.SubjectID)
	http.Redirect(w, r, target, http.StatusFound)
}

// handoffURL builds the map-app landing URL carrying the token pair.
// The redirect parameter is treated as a path within the map app, so a
// crafted absolute URL cannot send tokens to a third party.
func handoffURL(base, redirect string, pair service.TokenPair) string {
	path := "/"
	if strings.HasPrefix(redirect, "/") && !strings.HasPrefix(redirect, "//") {
		path = redirect
	}

	q := url.Values{}
	q.Set("token", pair.AccessToken)
	q.Set("refresh_token", pair.RefreshToken)

	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return strings.TrimSuffix(base, "/") + path + sep + q.Encode()
}

func loginURL(redirect, reason string) string {
	q := url.Values{}
	if redirect != "" {
		q.Set("redirect", redirect)
	}
	if reason != "" {
		q.Set("reason", reason)
	}
	if len(q) == 0 {
		return "/auth/authenticate"
	}
	return "/auth/authenticate?" + q.Encode()
}
