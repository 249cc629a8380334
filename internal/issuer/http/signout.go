package http

import (
	"net/http"
	"strings"
)

// SignoutHandler clears the issuer session and bounces the browser to
// the callback URL. Only paths within the issuer are honoured.
type SignoutHandler struct {
	Sessions      *sessionManager
	IssuerBaseURL string
}

func (h *SignoutHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.Sessions.Clear(w)

	callback := r.URL.Query().Get("callbackUrl")
	if !strings.HasPrefix(callback, "/") || strings.HasPrefix(callback, "//") {
		callback = "/auth/authenticate"
	}
	http.Redirect(w, r, callback, http.StatusFound)
}
