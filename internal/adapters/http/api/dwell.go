// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/pulsehq/pulse/internal/domain/model"
)

// DwellDependencies defines the interface for dwell time dependencies.
type DwellDependencies interface {
	DwellEstimate(ctx context.Context, venueID string) (model.DwellEstimate, error)
}

// DwellHandler handles dwell time requests.
type DwellHandler struct {
	deps DwellDependencies
}

// NewDwellHandler creates a new dwell handler.
func NewDwellHandler(deps DwellDependencies) *DwellHandler {
	return &DwellHandler{deps: deps}
}

// HandleGetDwell handles GET /api/venues/{venueID}/dwell requests.
func (h *DwellHandler) HandleGetDwell(w http.ResponseWriter, r *http.Request) {
	venueID := mux.Vars(r)["venueID"]
	estimate, err := h.deps.DwellEstimate(r.Context(), venueID)
	if err != nil {
		if isNotFound(err) {
			writeError(w, http.StatusNotFound, "not_found", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "internal", err)
		return
	}
	writeJSON(w, http.StatusOK, estimate)
}
