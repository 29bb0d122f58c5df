// Package model contains domain models passed between layers.
package model

import (
	"fmt"
	"time"
)

// Factor identifies one environmental factor scored by the engine.
type Factor int

// Scored environmental factors.
const (
	FactorSound Factor = iota
	FactorLight
	FactorTemperature
	FactorHumidity
)

// AllFactors lists every scored factor; iteration order is stable.
func AllFactors() [4]Factor {
	return [4]Factor{FactorSound, FactorLight, FactorTemperature, FactorHumidity}
}

// String returns the wire name of the factor.
func (f Factor) String() string {
	switch f {
	case FactorSound:
		return "sound"
	case FactorLight:
		return "light"
	case FactorTemperature:
		return "temperature"
	case FactorHumidity:
		return "humidity"
	default:
		return fmt.Sprintf("factor(%d)", int(f))
	}
}

// Occupancy carries the people-counter state attached to a reading.
// Entries and Exits are cumulative counters since device boot, never
// per-interval deltas.
type Occupancy struct {
	Current  int `json:"current"`
	Entries  int `json:"entries"`
	Exits    int `json:"exits"`
	Capacity int `json:"capacity,omitempty"` // 0 = unknown
}

// SensorReading is one timestamped observation from a venue device.
// Missing sensor channels are nil, never zero-filled.
type SensorReading struct {
	ID          string     `json:"id"` // deviceID@timestamp, idempotency key
	DeviceID    string     `json:"device_id"`
	VenueID     string     `json:"venue_id"`
	Timestamp   time.Time  `json:"timestamp"`
	Decibels    *float64   `json:"decibels,omitempty"`
	Light       *float64   `json:"light,omitempty"` // lux
	IndoorTemp  *float64   `json:"indoor_temp,omitempty"`
	OutdoorTemp *float64   `json:"outdoor_temp,omitempty"`
	Humidity    *float64   `json:"humidity,omitempty"`
	Pressure    *float64   `json:"pressure,omitempty"` // hPa
	CurrentSong string     `json:"current_song,omitempty"`
	Artist      string     `json:"artist,omitempty"`
	Occupancy   *Occupancy `json:"occupancy,omitempty"`
}

// FactorValue returns the reading's value for a factor, or nil when the
// channel is absent. Temperature scoring uses the indoor sensor.
func (r SensorReading) FactorValue(f Factor) *float64 {
	switch f {
	case FactorSound:
		return r.Decibels
	case FactorLight:
		return r.Light
	case FactorTemperature:
		return r.IndoorTemp
	case FactorHumidity:
		return r.Humidity
	default:
		return nil
	}
}

// ReadingID builds the canonical idempotency key for a device observation.
func ReadingID(deviceID string, ts time.Time) string {
	return deviceID + "@" + ts.UTC().Format(time.RFC3339)
}
