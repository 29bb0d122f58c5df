// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/pulsehq/pulse/internal/domain/dedupe"
	"github.com/pulsehq/pulse/internal/domain/model"
	"github.com/pulsehq/pulse/pkg/metrics"
)

// ReadingDependencies defines the interface for reading ingestion dependencies.
type ReadingDependencies interface {
	dedupe.Deduper
	Enqueue(ctx context.Context, r model.SensorReading) bool
}

// ReadingsHandler handles reading submissions.
type ReadingsHandler struct {
	deps ReadingDependencies
}

// NewReadingsHandler creates a new readings handler.
func NewReadingsHandler(deps ReadingDependencies) *ReadingsHandler {
	return &ReadingsHandler{deps: deps}
}

// HandlePostReading handles POST /api/readings requests.
func (h *ReadingsHandler) HandlePostReading(w http.ResponseWriter, r *http.Request) {
	var req readingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		metrics.RecordReadingRejected("malformed")
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: %w", ErrBadRequest, err))
		return
	}
	if err := req.validate(); err != nil {
		metrics.RecordReadingRejected("invalid")
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: %w", ErrBadRequest, err))
		return
	}

	reading := req.toReading()

	// Idempotency check, mark as seen first.
	if h.deps.SeenAndRecord(r.Context(), reading.ID) {
		metrics.RecordReadingDuplicate()
		writeJSON(w, http.StatusOK, ackResponse{Status: "duplicate", Duplicate: true})
		return
	}

	if ok := h.deps.Enqueue(r.Context(), reading); !ok {
		// Roll back the seen status since enqueue failed.
		h.deps.Unrecord(r.Context(), reading.ID)
		metrics.RecordReadingRejected("backpressure")
		writeError(w, http.StatusTooManyRequests, "backpressure", ErrBackpressure)
		return
	}
	metrics.RecordReadingIngested("http")
	writeJSON(w, http.StatusAccepted, ackResponse{Status: "accepted", Duplicate: false})
}
