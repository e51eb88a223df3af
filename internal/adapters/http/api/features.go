package api

import (
	"net/http"

	"github.com/okian/evfeat/internal/domain/feature"
)

// FeaturesHandler serves the feature page as JSON.
type FeaturesHandler struct {
	deps Dependencies
}

// NewFeaturesHandler creates a new features handler.
func NewFeaturesHandler(deps Dependencies) *FeaturesHandler {
	return &FeaturesHandler{deps: deps}
}

// HandleGetFeatures handles GET /api/features?event_id=N.
// A store failure still answers 200; the page carries an error notice.
func (h *FeaturesHandler) HandleGetFeatures(w http.ResponseWriter, r *http.Request) {
	eventID := feature.ParseEventID(r.URL.Query().Get("event_id"))
	writeJSON(w, http.StatusOK, h.deps.Page(r.Context(), eventID))
}

type configureURLResponse struct {
	EventID int64  `json:"event_id"`
	Feature string `json:"feature"`
	Name    string `json:"name"`
	URL     string `json:"url"`
}

// HandleGetConfigureURL handles GET /api/configure-url?event_id=N&feature=K.
func (h *FeaturesHandler) HandleGetConfigureURL(w http.ResponseWriter, r *http.Request) {
	key, err := queryFeature(r)
	if err != nil {
		status, code := statusFor(err)
		writeError(w, status, code, err)
		return
	}
	eventID := feature.ParseEventID(r.URL.Query().Get("event_id"))

	u, d, err := h.deps.ConfigureURL(eventID, key)
	if err != nil {
		status, code := statusFor(err)
		writeError(w, status, code, err)
		return
	}
	writeJSON(w, http.StatusOK, configureURLResponse{EventID: eventID, Feature: key, Name: d.Name, URL: u})
}
