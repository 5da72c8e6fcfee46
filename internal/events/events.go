// Package events publishes fleet change notifications.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// DefaultTopic is the MQTT topic vehicle-added events are published to.
const DefaultTopic = "fleet/vehicles/added"

// ErrPublishTimeout is returned when the broker does not acknowledge in time.
var ErrPublishTimeout = errors.New("publish timed out")

// VehicleAdded is emitted after a vehicle joins the fleet.
type VehicleAdded struct {
	ID          string    `json:"id"`
	Identifier  string    `json:"utts"`
	VehicleType string    `json:"vehicleType"`
	FuelType    string    `json:"fuelType"`
	Emissions   float64   `json:"emissions"`
	FleetSize   int       `json:"fleet_size"`
	At          time.Time `json:"at"`
}

// NewVehicleAdded builds an event with a fresh id and timestamp.
func NewVehicleAdded(identifier, vehicleType, fuelType string, emissions float64, fleetSize int) VehicleAdded {
	return VehicleAdded{
		ID:          uuid.NewString(),
		Identifier:  identifier,
		VehicleType: vehicleType,
		FuelType:    fuelType,
		Emissions:   emissions,
		FleetSize:   fleetSize,
		At:          time.Now().UTC(),
	}
}

// Publisher delivers fleet events.
type Publisher interface {
	PublishVehicleAdded(ctx context.Context, ev VehicleAdded) error
}

// Nop discards every event.
type Nop struct{}

// PublishVehicleAdded does nothing.
func (Nop) PublishVehicleAdded(context.Context, VehicleAdded) error { return nil }

// tokenPublisher is the part of mqtt.Client the publisher needs.
type tokenPublisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

// MQTTPublisher publishes events as JSON to an MQTT broker.
type MQTTPublisher struct {
	client  tokenPublisher
	topic   string
	timeout time.Duration
}

// NewMQTTPublisher wraps an already connected client.
func NewMQTTPublisher(client tokenPublisher, topic string) *MQTTPublisher {
	if topic == "" {
		topic = DefaultTopic
	}
	return &MQTTPublisher{client: client, topic: topic, timeout: 5 * time.Second}
}

// ConnectMQTT connects to broker and returns a publisher for topic.
func ConnectMQTT(broker, clientID, topic string) (*MQTTPublisher, mqtt.Client, error) {
	if clientID == "" {
		clientID = "fleet-carbon-" + uuid.NewString()[:8]
	}
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectTimeout(10 * time.Second)
	opts.OnConnectionLost = func(_ mqtt.Client, err error) {
		log.WithError(err).Warn("MQTT connection lost")
	}

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		return nil, nil, fmt.Errorf("mqtt connect to %s: %w", broker, ErrPublishTimeout)
	}
	if err := token.Error(); err != nil {
		return nil, nil, fmt.Errorf("mqtt connect to %s: %w", broker, err)
	}
	return NewMQTTPublisher(client, topic), client, nil
}

// PublishVehicleAdded publishes ev with QoS 1 and waits for the broker.
func (p *MQTTPublisher) PublishVehicleAdded(ctx context.Context, ev VehicleAdded) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	token := p.client.Publish(p.topic, 1, false, payload)
	timer := time.NewTimer(p.timeout)
	defer timer.Stop()

	select {
	case <-token.Done():
		if err := token.Error(); err != nil {
			return fmt.Errorf("failed to publish event: %w", err)
		}
		return nil
	case <-timer.C:
		return ErrPublishTimeout
	case <-ctx.Done():
		return ctx.Err()
	}
}
