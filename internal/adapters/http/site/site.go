// Package site serves the HTML feature page and the configure redirect.
package site

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"html/template"
	"io/fs"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/okian/evfeat/internal/adapters/http/middleware"
	service "github.com/okian/evfeat/internal/app"
	"github.com/okian/evfeat/internal/domain/feature"
	"github.com/okian/evfeat/pkg/logger"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static/*
var staticFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

// Dependencies required by the site handlers.
type Dependencies interface {
	Page(ctx context.Context, eventID int64) service.Page
	ConfigureURL(eventID int64, key string) (string, feature.Definition, error)
}

// Handler renders the feature pages.
type Handler struct {
	deps   Dependencies
	logger logger.Logger
}

// NewHandler creates a site handler.
func NewHandler(deps Dependencies) *Handler {
	return &Handler{deps: deps, logger: logger.Named("site")}
}

// Register attaches the page, configure redirect and static asset routes to mux.
func Register(_ context.Context, mux *http.ServeMux, deps Dependencies) {
	if mux == nil {
		panic("mux is nil")
	}
	h := NewHandler(deps)
	mux.HandleFunc("GET /{$}", middleware.Metrics("page", h.HandlePage))
	mux.HandleFunc("GET /configure", middleware.Metrics("configure", h.HandleConfigure))
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(StaticFS())))
}

// StaticFS returns the embedded stylesheet directory.
func StaticFS() http.FileSystem {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		return http.FS(staticFS)
	}
	return http.FS(sub)
}

type pageData struct {
	Page       service.Page
	RefreshURL string
}

// HandlePage handles GET /?event_id=N. Every request, including the
// refresh link, fetches the event's rows again.
func (h *Handler) HandlePage(w http.ResponseWriter, r *http.Request) {
	eventID := feature.ParseEventID(r.URL.Query().Get("event_id"))
	data := pageData{
		Page:       h.deps.Page(r.Context(), eventID),
		RefreshURL: pageURL(eventID),
	}
	h.render(w, r, http.StatusOK, "page", data)
}

type configureData struct {
	Name    string
	URL     string
	BackURL string
}

// HandleConfigure handles GET /configure?event_id=N&feature=K and shows the
// redirect panel to the external configuration tool.
func (h *Handler) HandleConfigure(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	eventID := feature.ParseEventID(q.Get("event_id"))
	key := strings.TrimSpace(q.Get("feature"))
	if key == "" {
		http.Error(w, "feature parametresi eksik", http.StatusBadRequest)
		return
	}

	u, d, err := h.deps.ConfigureURL(eventID, key)
	switch {
	case errors.Is(err, feature.ErrUnknownFeature):
		http.Error(w, "bilinmeyen özellik: "+key, http.StatusNotFound)
		return
	case err != nil:
		h.logger.Error(r.Context(), "failed to build configure url", logger.String("feature", key), logger.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	h.logger.Info(r.Context(), "redirecting to configuration tool",
		logger.Int64("event_id", eventID),
		logger.String("feature", key))
	h.render(w, r, http.StatusOK, "configure", configureData{Name: d.Name, URL: u, BackURL: pageURL(eventID)})
}

// render executes into a buffer so a template failure never leaves a
// half-written page.
func (h *Handler) render(w http.ResponseWriter, r *http.Request, status int, name string, data any) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		h.logger.Error(r.Context(), "failed to render template", logger.String("template", name), logger.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func pageURL(eventID int64) string {
	return "/?" + url.Values{"event_id": {strconv.FormatInt(eventID, 10)}}.Encode()
}
