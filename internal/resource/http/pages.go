package http

import (
	"embed"
	"html/template"
	"net/http"

	"github.com/carbonatlas/geoauth/internal/resource/gate"
)

//go:embed templates/*.html.tmpl
var templateFS embed.FS

// Each page clones the base layout so their "content" blocks do not
// collide in a single template set. The base layout carries the
// hand-off script that moves bridged tokens into local storage, so
// tokens never appear in server-rendered markup.
var (
	baseTemplate = template.Must(template.ParseFS(templateFS, "templates/base.html.tmpl"))

	homeTemplate         = pageTemplate("templates/home.html.tmpl")
	dashboardTemplate    = pageTemplate("templates/dashboard.html.tmpl")
	unauthorizedTemplate = pageTemplate("templates/unauthorized.html.tmpl")
)

func pageTemplate(name string) *template.Template {
	return template.Must(template.Must(baseTemplate.Clone()).ParseFS(templateFS, name))
}

// PageHandler serves the server-rendered pages. Permission checks are
// done upstream by the gatekeeper; handlers only read the identity the
// gatekeeper attached, if any.
type PageHandler struct {
	IssuerBaseURL string
}

type pageData struct {
	IssuerBaseURL string
	User          pageUser
}

type pageUser struct {
	Name  string
	Email string
}

func (h *PageHandler) data(r *http.Request) pageData {
	d := pageData{IssuerBaseURL: h.IssuerBaseURL}
	if claims, ok := gate.IdentityFromContext(r.Context()); ok {
		d.User = pageUser{Name: claims.Name, Email: claims.Email}
	}
	return d
}

func (h *PageHandler) render(w http.ResponseWriter, t *template.Template, d pageData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := t.ExecuteTemplate(w, "base", d); err != nil {
		http.Error(w, "internal server error", http.StatusInternalServerError)
	}
}

func (h *PageHandler) HandleHome(w http.ResponseWriter, r *http.Request) {
	h.render(w, homeTemplate, h.data(r))
}

func (h *PageHandler) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	h.render(w, dashboardTemplate, h.data(r))
}

func (h *PageHandler) HandleUnauthorized(w http.ResponseWriter, r *http.Request) {
	h.render(w, unauthorizedTemplate, h.data(r))
}
