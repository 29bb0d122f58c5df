// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/pulsehq/pulse/internal/domain/model"
)

const defaultHistoryDays = 7

// HistoryDependencies defines the interface for history dependencies.
type HistoryDependencies interface {
	History(ctx context.Context, venueID string, days int) (model.HistorySummary, error)
}

// HistoryHandler handles history summary requests.
type HistoryHandler struct {
	deps    HistoryDependencies
	maxDays int
}

// NewHistoryHandler creates a new history handler.
func NewHistoryHandler(deps HistoryDependencies, maxDays int) *HistoryHandler {
	if maxDays <= 0 {
		maxDays = defaultMaxHistoryDays
	}
	return &HistoryHandler{deps: deps, maxDays: maxDays}
}

// HandleGetHistory handles GET /api/venues/{venueID}/history requests.
// The days query parameter selects the window, capped at the configured maximum.
func (h *HistoryHandler) HandleGetHistory(w http.ResponseWriter, r *http.Request) {
	venueID := mux.Vars(r)["venueID"]

	days := defaultHistoryDays
	if raw := r.URL.Query().Get("days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			writeError(w, http.StatusBadRequest, "bad_request",
				fmt.Errorf("%w: days must be a positive integer", ErrBadRequest))
			return
		}
		days = parsed
	}
	if days > h.maxDays {
		days = h.maxDays
	}

	summary, err := h.deps.History(r.Context(), venueID, days)
	if err != nil {
		if isNotFound(err) {
			writeError(w, http.StatusNotFound, "not_found", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "internal", err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}
