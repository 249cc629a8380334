package http

import (
	"errors"
	"net/http"

	"github.com/carbonatlas/geoauth/internal/issuer/service"
	"github.com/carbonatlas/geoauth/internal/store"
	"github.com/carbonatlas/geoauth/pkg/httpx"
	"github.com/carbonatlas/geoauth/pkg/slogx"
	"github.com/carbonatlas/geoauth/pkg/ssotoken"
)

// TokenHandler mints a map-app token pair for the signed-in user, for
// clients that fetch tokens over XHR instead of riding the bridge
// redirect.
type TokenHandler struct {
	Sessions        *sessionManager
	Store           store.Store
	TokenService    *service.TokenService
	ResourceBaseURL string
}

type tokenResponse struct {
	AccessToken  string            `json:"accessToken"`
	RefreshToken string            `json:"refreshToken"`
	ExpiresIn    int               `json:"expiresIn"`
	RedirectURL  string            `json:"redirectUrl"`
	User         tokenResponseUser `json:"user"`
}

type tokenResponseUser struct {
	ID          string                `json:"id"`
	Email       string                `json:"email"`
	Name        string                `json:"name"`
	Verified    bool                  `json:"verified"`
	Permissions []ssotoken.Permission `json:"permissions"`
}

func (h *TokenHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	log := slogx.FromContext(r.Context())

	subject := h.Sessions.Subject(r)
	if subject == "" {
		httpx.WriteError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	ident, err := h.Store.Identities().GetBySubject(r.Context(), subject)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			httpx.WriteError(w, http.StatusUnauthorized, "not authenticated")
			return
		}
		log.Error("identity lookup failed", "error", err)
		httpx.WriteError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	pair, err := h.TokenService.IssuePair(ident)
	if err != nil {
		log.Error("token issue failed", "error", err)
		httpx.WriteError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, tokenResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		ExpiresIn:    pair.ExpiresIn,
		RedirectURL:  handoffURL(h.ResourceBaseURL, r.URL.Query().Get("redirect"), pair),
		User: tokenResponseUser{
			ID:          ident.SubjectID,
			Email:       ident.Email,
			Name:        ident.DisplayName,
			Verified:    ident.EmailVerified,
			Permissions: ssotoken.PermissionsFor(ident.EmailVerified),
		},
	})
}
