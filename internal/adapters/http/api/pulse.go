// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/pulsehq/pulse/internal/domain/model"
)

// PulseDependencies defines the interface for pulse score dependencies.
type PulseDependencies interface {
	PulseScore(ctx context.Context, venueID string) (model.PulseScoreResult, error)
}

// PulseHandler handles pulse score requests.
type PulseHandler struct {
	deps PulseDependencies
}

// NewPulseHandler creates a new pulse handler.
func NewPulseHandler(deps PulseDependencies) *PulseHandler {
	return &PulseHandler{deps: deps}
}

// HandleGetPulse handles GET /api/venues/{venueID}/pulse requests.
func (h *PulseHandler) HandleGetPulse(w http.ResponseWriter, r *http.Request) {
	venueID := mux.Vars(r)["venueID"]
	result, err := h.deps.PulseScore(r.Context(), venueID)
	if err != nil {
		if isNotFound(err) {
			writeError(w, http.StatusNotFound, "not_found", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "internal", err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
