package simulator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

const (
	httpTimeout     = 10 * time.Second
	mqttConnTimeout = 10 * time.Second
	mqttQoS         = 1
)

// Publisher delivers a payload to the ingest side.
type Publisher interface {
	Publish(ctx context.Context, p payload) error
	Close()
}

// HTTPPublisher posts payloads to the service's readings endpoint.
type HTTPPublisher struct {
	url    string
	client *http.Client
}

// NewHTTPPublisher targets a base URL like http://localhost:8090.
func NewHTTPPublisher(baseURL string) *HTTPPublisher {
	return &HTTPPublisher{
		url:    baseURL + "/api/readings",
		client: &http.Client{Timeout: httpTimeout},
	}
}

func (h *HTTPPublisher) Publish(ctx context.Context, p payload) error {
	body, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encoding payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.client.Do(req)
	if err != nil {
		return fmt.Errorf("posting reading: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return nil
}

func (h *HTTPPublisher) Close() {}

// MQTTPublisher publishes payloads the way the on-site devices do, at
// QoS 1 on venue/{venueId}/sensors.
type MQTTPublisher struct {
	client mqtt.Client
	topic  string
}

// NewMQTTPublisher connects to the broker and prepares the venue topic.
func NewMQTTPublisher(broker, clientID, venueID string) (*MQTTPublisher, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetConnectTimeout(mqttConnTimeout)

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(mqttConnTimeout) {
		return nil, fmt.Errorf("connecting to %s: timeout", broker)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connecting to %s: %w", broker, err)
	}
	return &MQTTPublisher{
		client: client,
		topic:  fmt.Sprintf("venue/%s/sensors", venueID),
	}, nil
}

func (m *MQTTPublisher) Publish(_ context.Context, p payload) error {
	body, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encoding payload: %w", err)
	}
	token := m.client.Publish(m.topic, mqttQoS, false, body)
	token.Wait()
	if err := token.Error(); err != nil {
		return fmt.Errorf("publishing to %s: %w", m.topic, err)
	}
	return nil
}

func (m *MQTTPublisher) Close() {
	m.client.Disconnect(250)
}
