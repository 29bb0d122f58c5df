// Package simulator generates realistic venue sensor traffic for local
// development and load testing.
package simulator

import "time"

// Defaults mirror a single mid-sized venue publishing every 15 seconds.
const (
	DefaultVenueID  = "venue-001"
	DefaultDeviceID = "pi-sim-01"
	DefaultCapacity = 400
	DefaultInterval = 15 * time.Second
)

// Config controls a simulation run.
type Config struct {
	VenueID  string
	DeviceID string
	Capacity int

	// Interval between published readings.
	Interval time.Duration

	// Duration bounds the run; zero means run until the context ends.
	Duration time.Duration

	// Seed makes runs reproducible; zero picks a time-based seed.
	Seed int64
}

// withDefaults fills unset fields.
func (c Config) withDefaults() Config {
	if c.VenueID == "" {
		c.VenueID = DefaultVenueID
	}
	if c.DeviceID == "" {
		c.DeviceID = DefaultDeviceID
	}
	if c.Capacity <= 0 {
		c.Capacity = DefaultCapacity
	}
	if c.Interval <= 0 {
		c.Interval = DefaultInterval
	}
	if c.Seed == 0 {
		c.Seed = time.Now().UnixNano()
	}
	return c
}
