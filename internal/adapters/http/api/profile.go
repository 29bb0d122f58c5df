// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/pulsehq/pulse/internal/domain/model"
)

// ProfileDependencies defines the interface for learning profile dependencies.
type ProfileDependencies interface {
	Profile(ctx context.Context, venueID string) (model.VenueLearningProfile, error)
}

// ProfileHandler handles learning profile requests.
type ProfileHandler struct {
	deps ProfileDependencies
}

// NewProfileHandler creates a new profile handler.
func NewProfileHandler(deps ProfileDependencies) *ProfileHandler {
	return &ProfileHandler{deps: deps}
}

// HandleGetProfile handles GET /api/venues/{venueID}/profile requests.
func (h *ProfileHandler) HandleGetProfile(w http.ResponseWriter, r *http.Request) {
	venueID := mux.Vars(r)["venueID"]
	profile, err := h.deps.Profile(r.Context(), venueID)
	if err != nil {
		if isNotFound(err) {
			writeError(w, http.StatusNotFound, "not_found", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "internal", err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}
