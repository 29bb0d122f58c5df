// Package repository defines the persistence interfaces for readings
// and learned profiles, and their sqlite implementation.
package repository

import (
	"context"
	"time"

	"github.com/pulsehq/pulse/internal/domain/model"
)

// ReadingStore provides access to the raw reading history. Listings are
// returned in ascending timestamp order.
type ReadingStore interface {
	// InsertReading stores a reading idempotently.
	// Returns false when the reading ID was already present.
	InsertReading(ctx context.Context, r model.SensorReading) (bool, error)

	// ListReadings returns a venue's readings with from <= ts < to.
	ListReadings(ctx context.Context, venueID string, from, to time.Time) ([]model.SensorReading, error)

	// LatestReading returns the venue's most recent reading.
	// Returns ErrNotFound when the venue has no readings.
	LatestReading(ctx context.Context, venueID string) (model.SensorReading, error)

	// ListVenues returns every venue with at least one reading.
	ListVenues(ctx context.Context) ([]string, error)

	// PruneBefore deletes readings older than cutoff, returning how
	// many rows were removed.
	PruneBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// ProfileStore holds the latest learned profile per venue.
type ProfileStore interface {
	// SaveProfile upserts the venue's learned profile.
	SaveProfile(ctx context.Context, p model.VenueLearningProfile) error

	// LatestProfile returns the venue's learned profile.
	// Returns ErrNotFound when the venue has never been learned.
	LatestProfile(ctx context.Context, venueID string) (model.VenueLearningProfile, error)
}

// Store bundles both persistence concerns behind one handle.
type Store interface {
	ReadingStore
	ProfileStore
	Close() error
}
