// Package http carries the map app's HTTP surface: the gated pages,
// the token verification endpoint and the refresh proxy.
package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/carbonatlas/geoauth/internal/resource/gate"
	"github.com/carbonatlas/geoauth/pkg/httpx"
	"github.com/carbonatlas/geoauth/pkg/slogx"
)

// RouterConfig is the static wiring the handlers share.
type RouterConfig struct {
	Secret          []byte
	Issuer          string
	Audience        string
	IssuerBaseURL   string
	ResourceBaseURL string
	UpstreamTimeout time.Duration
}

// Router holds shared dependencies for HTTP handlers. Every route goes
// through the gatekeeper; per-path rules decide what each route
// requires.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	cfg    RouterConfig
	logger *slog.Logger
}

func NewRouter(cfg RouterConfig, logger *slog.Logger) *Router {
	r := &Router{
		Mux:    http.NewServeMux(),
		cfg:    cfg,
		logger: logger,
	}

	keeper := gate.New(gate.Config{
		Secret:          cfg.Secret,
		Issuer:          cfg.Issuer,
		Audience:        cfg.Audience,
		IssuerBaseURL:   cfg.IssuerBaseURL,
		ResourceBaseURL: cfg.ResourceBaseURL,
		Rules:           gate.DefaultRules(),
	})

	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
		keeper.Middleware,
	}

	return r
}

func (r *Router) ApplyRoutes() {
	verify := &VerifyHandler{
		Secret:   r.cfg.Secret,
		Issuer:   r.cfg.Issuer,
		Audience: r.cfg.Audience,
	}
	r.Mux.Handle("POST /api/verify-token", verify)
	r.Mux.Handle("GET /api/verify-token", verify)

	refresh := &RefreshProxyHandler{
		Upstream: r.cfg.IssuerBaseURL + "/api/auth/refresh-token",
		Client:   &http.Client{Timeout: r.cfg.UpstreamTimeout},
	}
	r.Mux.Handle("POST /api/refresh-token",
		httpx.Chain(refresh, httpx.RateLimitByIP(httpx.StrictLimit)),
	)

	pages := &PageHandler{IssuerBaseURL: r.cfg.IssuerBaseURL}
	r.Mux.Handle("GET /{$}", http.HandlerFunc(pages.HandleHome))
	r.Mux.Handle("GET /dashboard", http.HandlerFunc(pages.HandleDashboard))
	r.Mux.Handle("GET /unauthorized", http.HandlerFunc(pages.HandleUnauthorized))
}

// ServeHTTP applies the global middleware chain around the mux.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}
