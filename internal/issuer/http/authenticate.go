package http

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/carbonatlas/geoauth/internal/store"
	"github.com/carbonatlas/geoauth/pkg/slogx"
)

// AuthenticateHandler serves the login page and establishes the
// issuer session. A signed-in browser is then sent through the bridge
// to pick up map tokens.
type AuthenticateHandler struct {
	Sessions *sessionManager
	Store    store.Store
}

func (h *AuthenticateHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	// Already signed in: skip the form and go straight to the bridge.
	if h.Sessions.Subject(r) != "" {
		http.Redirect(w, r, bridgeURL(r.URL.Query().Get("redirect")), http.StatusFound)
		return
	}

	renderPage(w, "login.html.tmpl", loginPageData{
		Redirect: r.URL.Query().Get("redirect"),
		Reason:   r.URL.Query().Get("reason"),
	})
}

func (h *AuthenticateHandler) HandlePost(w http.ResponseWriter, r *http.Request) {
	log := slogx.FromContext(r.Context())

	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	email := r.PostFormValue("email")
	redirect := r.PostFormValue("redirect")

	ident, err := h.Store.Identities().GetByEmail(r.Context(), email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			renderPage(w, "login.html.tmpl", loginPageData{
				Redirect: redirect,
				Error:    "No account found for that email.",
			})
			return
		}
		log.Error("identity lookup failed", "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	if err := h.Sessions.Establish(w, ident.SubjectID); err != nil {
		log.Error("session establish failed", "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	log.Info("session established", "subject_id", ident.SubjectID)
	http.Redirect(w, r, bridgeURL(redirect), http.StatusFound)
}

func bridgeURL(redirect string) string {
	if redirect == "" {
		return "/auth/bridge"
	}
	return "/auth/bridge?redirect=" + url.QueryEscape(redirect)
}
