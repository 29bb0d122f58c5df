// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/pulsehq/pulse/internal/domain/model"
)

// RetentionDependencies defines the interface for retention dependencies.
type RetentionDependencies interface {
	Retention(ctx context.Context, venueID string) (model.RetentionMetrics, error)
}

// RetentionHandler handles crowd retention requests.
type RetentionHandler struct {
	deps RetentionDependencies
}

// NewRetentionHandler creates a new retention handler.
func NewRetentionHandler(deps RetentionDependencies) *RetentionHandler {
	return &RetentionHandler{deps: deps}
}

// HandleGetRetention handles GET /api/venues/{venueID}/retention requests.
func (h *RetentionHandler) HandleGetRetention(w http.ResponseWriter, r *http.Request) {
	venueID := mux.Vars(r)["venueID"]
	result, err := h.deps.Retention(r.Context(), venueID)
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
