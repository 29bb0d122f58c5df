package api

import (
	"errors"

	"github.com/pulsehq/pulse/internal/adapters/repository"
)

// Sentinel kinds for API errors.
var (
	ErrBadRequest   = errors.New("bad request")
	ErrBackpressure = errors.New("backpressure")

	// ErrNotFound is the sentinel Dependencies implementations wrap to
	// signal an unknown venue or missing data; handlers translate it to
	// a 404. Re-exported so callers of this package need not import the
	// storage layer.
	ErrNotFound = repository.ErrNotFound
)
