package handler

import (
	"bytes"
	"embed"
	"html/template"
	"log/slog"
	"net/http"
	"strconv"

	"shopping-portal/internal/observability"
	"shopping-portal/internal/security"
	"shopping-portal/internal/state"
)

//go:embed templates/*.html
var templateFS embed.FS

var pageTemplates = template.Must(
	template.New("pages").
		Funcs(template.FuncMap{
			"price": func(p float64) string { return strconv.FormatFloat(p, 'f', 2, 64) },
		}).
		ParseFS(templateFS, "templates/*.html"),
)

// pageData is what the page templates render
type pageData struct {
	Title     string
	CSRFToken string
	State     state.State
}

// PageHandler renders the current view as HTML
type PageHandler struct {
	ctrl   *state.Controller
	tokens *security.TokenManager
}

// NewPageHandler creates a new page handler
func NewPageHandler(ctrl *state.Controller, tokens *security.TokenManager) *PageHandler {
	return &PageHandler{
		ctrl:   ctrl,
		tokens: tokens,
	}
}

// Index renders the login form without a session and the catalog with one
func (h *PageHandler) Index(w http.ResponseWriter, r *http.Request) {
	s := h.ctrl.Snapshot()

	name, title := "login.html", "Shopping Cart Login"
	if s.View() == state.ViewCatalog {
		name, title = "catalog.html", "Shopping Portal"
	}

	var buf bytes.Buffer
	err := pageTemplates.ExecuteTemplate(&buf, name, pageData{
		Title:     title,
		CSRFToken: h.tokens.Token(),
		State:     s,
	})
	if err != nil {
		observability.FromContext(r.Context()).Error("failed to render page",
			slog.String("template", name),
			slog.String("error", err.Error()))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = buf.WriteTo(w)
}
