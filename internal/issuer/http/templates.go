package http

import (
	"embed"
	"html/template"
	"net/http"
)

//go:embed templates/*.html.tmpl
var templateFS embed.FS

var pageTemplates = template.Must(template.ParseFS(templateFS, "templates/*.html.tmpl"))

type loginPageData struct {
	Redirect string
	Reason   string
	Error    string
}

func renderPage(w http.ResponseWriter, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := pageTemplates.ExecuteTemplate(w, name, data); err != nil {
		http.Error(w, "internal server error", http.StatusInternalServerError)
	}
}

func handleVerifyPage(w http.ResponseWriter, r *http.Request) {
	renderPage(w, "verify.html.tmpl", nil)
}
