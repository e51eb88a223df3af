// Package api declares the JSON contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/okian/evfeat/internal/adapters/http/middleware"
	service "github.com/okian/evfeat/internal/app"
	"github.com/okian/evfeat/internal/domain/feature"
)

// Dependencies required by HTTP handlers.
type Dependencies interface {
	// Page builds the feature page of one event.
	Page(ctx context.Context, eventID int64) service.Page

	// ConfigureURL returns the external configuration link of a catalog feature.
	ConfigureURL(eventID int64, key string) (string, feature.Definition, error)
}

// Server wires HTTP routes for the JSON API.
type Server struct {
	healthHandler   *HealthHandler
	featuresHandler *FeaturesHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies) *Server {
	return &Server{
		healthHandler:   NewHealthHandler(),
		featuresHandler: NewFeaturesHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	if mux == nil {
		panic("mux is nil")
	}
	mux.HandleFunc("GET /healthz", middleware.Metrics("healthz", s.healthHandler.HandleHealth))
	mux.HandleFunc("GET /api/features", middleware.Metrics("api_features", s.featuresHandler.HandleGetFeatures))
	mux.HandleFunc("GET /api/configure-url", middleware.Metrics("api_configure_url", s.featuresHandler.HandleGetConfigureURL))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, feature.ErrUnknownFeature):
		return http.StatusNotFound, "unknown_feature"
	case errors.Is(err, ErrBadRequest):
		return http.StatusBadRequest, "bad_request"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

// queryFeature reads the required feature query parameter.
func queryFeature(r *http.Request) (string, error) {
	key := strings.TrimSpace(r.URL.Query().Get("feature"))
	if key == "" {
		return "", errors.Join(ErrBadRequest, errors.New("missing feature"))
	}
	return key, nil
}
