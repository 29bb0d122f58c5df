// Package source subscribes to the venue sensor topics and feeds
// incoming readings into the ingest queue.
//
// Devices publish to venue/{venueId}/sensors at QoS 1 every ~15s.
// Malformed payloads are counted and dropped; a broken device must
// never take the ingest path down.
package source

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/pulsehq/pulse/internal/domain/dedupe"
	"github.com/pulsehq/pulse/internal/domain/model"
	"github.com/pulsehq/pulse/pkg/logger"
	"github.com/pulsehq/pulse/pkg/metrics"
)

// Connection constants.
const (
	defaultTopic      = "venue/+/sensors"
	defaultClientID   = "pulse-ingest"
	connectTimeout    = 10 * time.Second
	disconnectQuiesce = 250 // ms, passed to paho Disconnect
	subscribeQoS      = 1
)

// Queue is where parsed readings go.
type Queue interface {
	Enqueue(ctx context.Context, r model.SensorReading) bool
}

// Option applies a configuration option to the Source.
type Option func(*Source)

// WithTopic sets the subscription topic filter.
func WithTopic(topic string) Option {
	return func(s *Source) {
		if topic != "" {
			s.topic = topic
		}
	}
}

// WithClientID sets the MQTT client identifier.
func WithClientID(id string) Option {
	return func(s *Source) {
		if id != "" {
			s.clientID = id
		}
	}
}

// WithCredentials sets the broker username and password.
func WithCredentials(username, password string) Option {
	return func(s *Source) {
		s.username = username
		s.password = password
	}
}

// WithDeduper sets the idempotency guard applied before enqueue.
func WithDeduper(d dedupe.Deduper) Option {
	return func(s *Source) {
		s.deduper = d
	}
}

// Source is the MQTT ingestion adapter.
type Source struct {
	broker   string
	topic    string
	clientID string
	username string
	password string

	queue   Queue
	deduper dedupe.Deduper
	client  mqtt.Client

	logger logger.Logger
}

// New creates an MQTT source for the given broker and queue.
func New(broker string, queue Queue, opts ...Option) (*Source, error) {
	if broker == "" {
		return nil, ErrNoBroker
	}
	if queue == nil {
		return nil, ErrNoQueue
	}
	s := &Source{
		broker:   broker,
		topic:    defaultTopic,
		clientID: defaultClientID,
		queue:    queue,
		logger:   logger.Get().Named("mqtt"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Start connects to the broker and subscribes. The handler runs on
// paho's own goroutines; ctx bounds only the enqueue calls.
func (s *Source) Start(ctx context.Context) error {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(s.broker)
	opts.SetClientID(s.clientID)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectTimeout(connectTimeout)
	if s.username != "" {
		opts.SetUsername(s.username)
	}
	if s.password != "" {
		opts.SetPassword(s.password)
	}

	s.client = mqtt.NewClient(opts)
	if token := s.client.Connect(); token.Wait() && token.Error() != nil {
		return fmt.Errorf("connecting to MQTT broker: %w", token.Error())
	}

	handler := func(_ mqtt.Client, msg mqtt.Message) {
		s.handleMessage(ctx, msg.Topic(), msg.Payload())
	}
	if token := s.client.Subscribe(s.topic, subscribeQoS, handler); token.Wait() && token.Error() != nil {
		return fmt.Errorf("subscribing to %s: %w", s.topic, token.Error())
	}

	s.logger.Info(ctx, "subscribed to sensor topic",
		logger.String("broker", s.broker),
		logger.String("topic", s.topic),
	)
	return nil
}

// Close unsubscribes and disconnects from the broker.
func (s *Source) Close() {
	if s.client == nil || !s.client.IsConnected() {
		return
	}
	if token := s.client.Unsubscribe(s.topic); token.Wait() && token.Error() != nil {
		s.logger.Warn(context.Background(), "unsubscribe failed", logger.Error(token.Error()))
	}
	s.client.Disconnect(disconnectQuiesce)
}

func (s *Source) handleMessage(ctx context.Context, topic string, payload []byte) {
	reading, err := ParseReading(topic, payload)
	if err != nil {
		metrics.RecordReadingRejected("malformed")
		s.logger.Warn(ctx, "dropping malformed payload",
			logger.String("topic", topic),
			logger.Error(err),
		)
		return
	}

	if s.deduper != nil && s.deduper.SeenAndRecord(ctx, reading.ID) {
		metrics.RecordReadingDuplicate()
		return
	}
	if !s.queue.Enqueue(ctx, reading) {
		if s.deduper != nil {
			s.deduper.Unrecord(ctx, reading.ID)
		}
		metrics.RecordReadingRejected("backpressure")
		return
	}
	metrics.RecordReadingIngested("mqtt")
}

// VenueFromTopic extracts the venue segment of venue/{venueId}/sensors.
func VenueFromTopic(topic string) string {
	parts := strings.Split(topic, "/")
	if len(parts) == 3 && parts[0] == "venue" && parts[2] == "sensors" {
		return parts[1]
	}
	return ""
}

// devicePayload mirrors the JSON the Raspberry Pi publishers send.
type devicePayload struct {
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

// ParseReading converts a device payload into a SensorReading. The
// venue falls back to the topic segment when the payload omits it.
func ParseReading(topic string, payload []byte) (model.SensorReading, error) {
	var p devicePayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return model.SensorReading{}, fmt.Errorf("decoding payload: %w", err)
	}

	venueID := p.VenueID
	if venueID == "" {
		venueID = VenueFromTopic(topic)
	}
	if venueID == "" {
		return model.SensorReading{}, ErrNoVenue
	}
	if p.DeviceID == "" {
		return model.SensorReading{}, ErrNoDevice
	}
	ts, err := time.Parse(time.RFC3339, p.Timestamp)
	if err != nil {
		return model.SensorReading{}, fmt.Errorf("parsing timestamp: %w", err)
	}

	r := model.SensorReading{
		ID:          model.ReadingID(p.DeviceID, ts),
		DeviceID:    p.DeviceID,
		VenueID:     venueID,
		Timestamp:   ts.UTC(),
		Decibels:    p.Sensors.SoundLevel,
		Light:       p.Sensors.LightLevel,
		IndoorTemp:  p.Sensors.IndoorTemperature,
		OutdoorTemp: p.Sensors.OutdoorTemperature,
		Humidity:    p.Sensors.Humidity,
		Pressure:    p.Sensors.Pressure,
	}
	if p.Spotify != nil {
		r.CurrentSong = p.Spotify.CurrentSong
		r.Artist = p.Spotify.Artist
	}
	if p.Occupancy != nil {
		r.Occupancy = &model.Occupancy{
			Current:  p.Occupancy.Current,
			Entries:  p.Occupancy.Entries,
			Exits:    p.Occupancy.Exits,
			Capacity: p.Occupancy.Capacity,
		}
	}
	return r, nil
}
