package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/carbonatlas/geoauth/pkg/httpx"
	"github.com/carbonatlas/geoauth/pkg/ssotoken"
)

// VerifyHandler checks a presented access token and reports the
// identity it carries. Clients call it once on boot to validate a
// stored token before trusting it.
type VerifyHandler struct {
	Secret   []byte
	Issuer   string
	Audience string
}

type verifyRequest struct {
	Token string `json:"token"`
}

type verifyResponse struct {
	Valid bool       `json:"valid"`
	User  verifyUser `json:"user"`
}

type verifyUser struct {
	ID          string                `json:"id"`
	Email       string                `json:"email"`
	Name        string                `json:"name"`
	Verified    bool                  `json:"verified"`
	Permissions []ssotoken.Permission `json:"permissions"`
}

func (h *VerifyHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	token := bearerToken(r)
	if token == "" && r.Method == http.MethodPost {
		var req verifyRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err == nil {
			token = req.Token
		}
	}
	if token == "" {
		httpx.WriteError(w, http.StatusBadRequest, "token is required")
		return
	}

	claims, err := ssotoken.Verify(token, h.Secret, ssotoken.VerifyOptions{
		Issuer:    h.Issuer,
		Audience:  h.Audience,
		TokenType: ssotoken.TypeAccess,
	})
	if err != nil {
		if errors.Is(err, ssotoken.ErrExpired) {
			httpx.WriteErrorCode(w, http.StatusUnauthorized, "token expired", "TOKEN_EXPIRED")
			return
		}
		httpx.WriteError(w, http.StatusUnauthorized, "invalid token")
		return
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, verifyResponse{
		Valid: true,
		User: verifyUser{
			ID:          claims.Subject,
			Email:       claims.Email,
			Name:        claims.Name,
			Verified:    claims.Verified,
			Permissions: claims.Permissions,
		},
	})
}

func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if len(auth) > 7 && strings.EqualFold(auth[:7], "Bearer ") {
		return strings.TrimSpace(auth[7:])
	}
	return ""
}
