// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() defaults and Load(ctx) for layered loading.
// - External errors must be wrapped via this package's error helpers.
package config

import "runtime"

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":8090".
	Addr string `koanf:"addr"`

	// StorePath is the sqlite database file for readings and profiles.
	StorePath string `koanf:"store_path"`

	// VenueCapacity is the configured capacity used for occupancy
	// utilization when a device reports none.
	VenueCapacity int `koanf:"venue_capacity"`

	// MQTT ingestion. When disabled only HTTP ingestion is active.
	MQTTEnabled  bool   `koanf:"mqtt_enabled"`
	MQTTBroker   string `koanf:"mqtt_broker"`
	MQTTClientID string `koanf:"mqtt_client_id"`
	MQTTTopic    string `koanf:"mqtt_topic"`
	MQTTUsername string `koanf:"mqtt_username"`
	MQTTPassword string `koanf:"mqtt_password"`

	// QueueSize bounds the in-memory reading queue.
	QueueSize int `koanf:"queue_size"`

	// WorkerCount sets the number of ingest workers.
	WorkerCount int `koanf:"worker_count"`

	// DedupeSize bounds the idempotency cache.
	DedupeSize int `koanf:"dedupe_size"`

	// LearnerWindowDays is the trailing history window fed to the
	// range learner.
	LearnerWindowDays int `koanf:"learner_window_days"`

	// LearnerRefreshHours is the cadence of learner recomputation.
	LearnerRefreshHours int `koanf:"learner_refresh_hours"`

	// HistoryRetentionDays is how long raw readings are kept.
	HistoryRetentionDays int `koanf:"history_retention_days"`

	// MaxHistoryDays caps GET /history?days.
	MaxHistoryDays int `koanf:"max_history_days"`
}

// New returns the configuration defaults.
func New() *Config {
	return &Config{
		LogLevel:             "info",
		Addr:                 ":8090",
		StorePath:            "pulse.db",
		VenueCapacity:        400,
		MQTTEnabled:          false,
		MQTTBroker:           "tcp://localhost:1883",
		MQTTClientID:         "pulse-ingest",
		MQTTTopic:            "venue/+/sensors",
		QueueSize:            10_000,
		WorkerCount:          runtime.NumCPU() * 2,
		DedupeSize:           100_000,
		LearnerWindowDays:    30,
		LearnerRefreshHours:  24,
		HistoryRetentionDays: 90,
		MaxHistoryDays:       90,
	}
}
