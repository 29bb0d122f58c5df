// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/pulsehq/pulse/internal/domain/dedupe"
	"github.com/pulsehq/pulse/internal/domain/model"
)

// Default cap on the history window when the server is built without
// an explicit limit.
const defaultMaxHistoryDays = 90

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	dedupe.Deduper

	// Enqueue pushes a reading for async processing. Returns false on backpressure.
	Enqueue(ctx context.Context, r model.SensorReading) bool

	// Read operations expose per-venue analytics. Implementations
	// report an unknown venue or missing data by wrapping ErrNotFound.
	PulseScore(ctx context.Context, venueID string) (model.PulseScoreResult, error)
	DwellEstimate(ctx context.Context, venueID string) (model.DwellEstimate, error)
	Retention(ctx context.Context, venueID string) (model.RetentionMetrics, error)
	History(ctx context.Context, venueID string, days int) (model.HistorySummary, error)
	Profile(ctx context.Context, venueID string) (model.VenueLearningProfile, error)
	Venues(ctx context.Context) ([]string, error)
}

// Server wires HTTP routes for the business API.
type Server struct {
	readingsHandler  *ReadingsHandler
	pulseHandler     *PulseHandler
	dwellHandler     *DwellHandler
	retentionHandler *RetentionHandler
	historyHandler   *HistoryHandler
	profileHandler   *ProfileHandler
	venuesHandler    *VenuesHandler
	healthHandler    *HealthHandler
	statsHandler     *StatsHandler
}

// Option configures the server.
type Option func(*serverOptions)

type serverOptions struct {
	maxHistoryDays int
}

// WithMaxHistoryDays caps the days parameter accepted by the history endpoint.
func WithMaxHistoryDays(days int) Option {
	return func(o *serverOptions) {
		if days > 0 {
			o.maxHistoryDays = days
		}
	}
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, opts ...Option) *Server {
	options := serverOptions{maxHistoryDays: defaultMaxHistoryDays}
	for _, opt := range opts {
		opt(&options)
	}
	return &Server{
		readingsHandler:  NewReadingsHandler(deps),
		pulseHandler:     NewPulseHandler(deps),
		dwellHandler:     NewDwellHandler(deps),
		retentionHandler: NewRetentionHandler(deps),
		historyHandler:   NewHistoryHandler(deps, options.maxHistoryDays),
		profileHandler:   NewProfileHandler(deps),
		venuesHandler:    NewVenuesHandler(deps),
		healthHandler:    NewHealthHandler(),
		statsHandler:     NewStatsHandler(statsProvider),
	}
}

// Register attaches all HTTP routes to the router.
func (s *Server) Register(router *mux.Router) {
	router.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	router.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats")).Methods(http.MethodGet)

	apiRouter := router.PathPrefix("/api").Subrouter()
	apiRouter.HandleFunc("/readings", MetricsMiddleware(s.readingsHandler.HandlePostReading, "readings")).Methods(http.MethodPost)
	apiRouter.HandleFunc("/venues", MetricsMiddleware(s.venuesHandler.HandleListVenues, "venues")).Methods(http.MethodGet)
	apiRouter.HandleFunc("/venues/{venueID}/pulse", MetricsMiddleware(s.pulseHandler.HandleGetPulse, "pulse")).Methods(http.MethodGet)
	apiRouter.HandleFunc("/venues/{venueID}/dwell", MetricsMiddleware(s.dwellHandler.HandleGetDwell, "dwell")).Methods(http.MethodGet)
	apiRouter.HandleFunc("/venues/{venueID}/retention", MetricsMiddleware(s.retentionHandler.HandleGetRetention, "retention")).Methods(http.MethodGet)
	apiRouter.HandleFunc("/venues/{venueID}/history", MetricsMiddleware(s.historyHandler.HandleGetHistory, "history")).Methods(http.MethodGet)
	apiRouter.HandleFunc("/venues/{venueID}/profile", MetricsMiddleware(s.profileHandler.HandleGetProfile, "profile")).Methods(http.MethodGet)
}

// readingRequest mirrors the JSON shape the device publishers send.
type readingRequest struct {
	DeviceID  string `json:"deviceId"`
	VenueID   string `json:"venueId"`
	Timestamp string `json:"timestamp"`
	Sensors   struct {
		SoundLevel         *float64 `json:"sound_level"`
		LightLevel         *float64 `json:"light_level"`
		IndoorTemperature  *float64 `json:"indoor_temperature"`
		OutdoorTemperature *float64 `json:"outdoor_temperature"`
		Humidity           *float64 `json:"humidity"`
		Pressure           *float64 `json:"pressure"`
	} `json:"sensors"`
	Occupancy *struct {
		Current  int `json:"current"`
		Entries  int `json:"entries"`
		Exits    int `json:"exits"`
		Capacity int `json:"capacity"`
	} `json:"occupancy"`
	Spotify *struct {
		CurrentSong string `json:"current_song"`
		Artist      string `json:"artist"`
	} `json:"spotify"`
}

func (r readingRequest) validate() error {
	switch {
	case strings.TrimSpace(r.DeviceID) == "":
		return errors.New("missing deviceId")
	case strings.TrimSpace(r.VenueID) == "":
		return errors.New("missing venueId")
	case strings.TrimSpace(r.Timestamp) == "":
		return errors.New("missing timestamp")
	}
	if _, err := time.Parse(time.RFC3339, r.Timestamp); err != nil {
		return errors.New("invalid timestamp; must be RFC3339")
	}
	return nil
}

// toReading converts the request into the domain reading shape.
func (r readingRequest) toReading() model.SensorReading {
	ts, _ := time.Parse(time.RFC3339, r.Timestamp)
	reading := model.SensorReading{
		ID:          model.ReadingID(r.DeviceID, ts),
		DeviceID:    r.DeviceID,
		VenueID:     r.VenueID,
		Timestamp:   ts.UTC(),
		Decibels:    r.Sensors.SoundLevel,
		Light:       r.Sensors.LightLevel,
		IndoorTemp:  r.Sensors.IndoorTemperature,
		OutdoorTemp: r.Sensors.OutdoorTemperature,
		Humidity:    r.Sensors.Humidity,
		Pressure:    r.Sensors.Pressure,
	}
	if r.Spotify != nil {
		reading.CurrentSong = r.Spotify.CurrentSong
		reading.Artist = r.Spotify.Artist
	}
	if r.Occupancy != nil {
		reading.Occupancy = &model.Occupancy{
			Current:  r.Occupancy.Current,
			Entries:  r.Occupancy.Entries,
			Exits:    r.Occupancy.Exits,
			Capacity: r.Occupancy.Capacity,
		}
	}
	return reading
}

type ackResponse struct {
	Status    string `json:"status"`
	Duplicate bool   `json:"duplicate"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// isNotFound translates upstream not-found errors to 404. Dependencies
// implementations wrap ErrNotFound when a venue or its data is missing.
func isNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
