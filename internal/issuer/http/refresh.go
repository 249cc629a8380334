package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/carbonatlas/geoauth/internal/issuer/service"
	"github.com/carbonatlas/geoauth/pkg/httpx"
	"github.com/carbonatlas/geoauth/pkg/slogx"
)

// RefreshHandler rotates a token pair from a valid refresh token.
type RefreshHandler struct {
	TokenService *service.TokenService
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

func (h *RefreshHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	log := slogx.FromContext(r.Context())

	var req refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	pair, err := h.TokenService.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrMissingRefresh):
			httpx.WriteError(w, http.StatusBadRequest, "refresh token is required")
		case errors.Is(err, service.ErrInvalidRefresh):
			httpx.WriteError(w, http.StatusUnauthorized, "invalid or expired refresh token")
		case errors.Is(err, service.ErrIdentityNotFound):
			httpx.WriteError(w, http.StatusNotFound, "user not found")
		default:
			log.Error("token refresh failed", "error", err)
			httpx.WriteError(w, http.StatusInternalServerError, "internal server error")
		}
		return
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, pair)
}
