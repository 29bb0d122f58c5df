// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"net/http"
)

// VenueDependencies defines the interface for venue listing dependencies.
type VenueDependencies interface {
	Venues(ctx context.Context) ([]string, error)
}

// VenuesHandler handles venue listing requests.
type VenuesHandler struct {
	deps VenueDependencies
}

// NewVenuesHandler creates a new venues handler.
func NewVenuesHandler(deps VenueDependencies) *VenuesHandler {
	return &VenuesHandler{deps: deps}
}

type venuesResponse struct {
	Venues []string `json:"venues"`
}

// HandleListVenues handles GET /api/venues requests.
func (h *VenuesHandler) HandleListVenues(w http.ResponseWriter, r *http.Request) {
	venues, err := h.deps.Venues(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal", err)
		return
	}
	if venues == nil {
		venues = []string{}
	}
	writeJSON(w, http.StatusOK, venuesResponse{Venues: venues})
}
