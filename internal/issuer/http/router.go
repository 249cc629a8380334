// Package http carries the issuer app's HTTP surface: the login entry,
// the cross-app bridge redirect, the token endpoints and sign-out.
package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/carbonatlas/geoauth/internal/issuer/service"
	"github.com/carbonatlas/geoauth/internal/store"
	"github.com/carbonatlas/geoauth/pkg/httpx"
	"github.com/carbonatlas/geoauth/pkg/slogx"
)

// RouterConfig is the static wiring the handlers share.
type RouterConfig struct {
	Secret          []byte
	Issuer          string
	IssuerBaseURL   string
	ResourceBaseURL string
	SessionTTL      time.Duration
}

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	cfg      RouterConfig
	sessions *sessionManager
	store    store.Store
	logger   *slog.Logger

	TokenService *service.TokenService
}

func NewRouter(cfg RouterConfig, st store.Store, logger *slog.Logger) *Router {
	r := &Router{
		Mux: http.NewServeMux(),
		cfg: cfg,
		sessions: &sessionManager{
			secret: cfg.Secret,
			issuer: cfg.Issuer,
			ttl:    cfg.SessionTTL,
		},
		store:  st,
		logger: logger,
	}

	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	authenticate := &AuthenticateHandler{
		Sessions: r.sessions,
		Store:    r.store,
	}
	r.Mux.Handle("GET /auth/authenticate", http.HandlerFunc(authenticate.HandleGet))
	r.Mux.Handle("POST /auth/authenticate",
		httpx.Chain(http.HandlerFunc(authenticate.HandlePost),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)

	bridge := &BridgeHandler{
		Sessions:        r.sessions,
		Store:           r.store,
		TokenService:    r.TokenService,
		ResourceBaseURL: r.cfg.ResourceBaseURL,
	}
	r.Mux.Handle("GET /auth/bridge", bridge)
	r.Mux.Handle("GET /auth/verify", http.HandlerFunc(handleVerifyPage))

	token := &TokenHandler{
		Sessions:        r.sessions,
		Store:           r.store,
		TokenService:    r.TokenService,
		ResourceBaseURL: r.cfg.ResourceBaseURL,
	}
	r.Mux.Handle("POST /api/auth/geomap-token",
		httpx.Chain(token, httpx.RateLimitByIP(httpx.ModerateLimit)),
	)
	r.Mux.Handle("GET /api/auth/geomap-token",
		httpx.Chain(token, httpx.RateLimitByIP(httpx.ModerateLimit)),
	)

	refresh := &RefreshHandler{TokenService: r.TokenService}
	r.Mux.Handle("POST /api/auth/refresh-token",
		httpx.Chain(refresh, httpx.RateLimitByIP(httpx.StrictLimit)),
	)

	signout := &SignoutHandler{
		Sessions:      r.sessions,
		IssuerBaseURL: r.cfg.IssuerBaseURL,
	}
	r.Mux.Handle("GET /api/auth/signout", signout)
}

// ServeHTTP applies the global middleware chain around the mux.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}
