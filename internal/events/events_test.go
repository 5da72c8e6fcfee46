package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeToken struct {
	done chan struct{}
	err  error
}

func newFakeToken(err error, completed bool) *fakeToken {
	t := &fakeToken{done: make(chan struct{}), err: err}
	if completed {
		close(t.done)
	}
	return t
}

func (t *fakeToken) Wait() bool                     { <-t.done; return true }
func (t *fakeToken) WaitTimeout(time.Duration) bool { return true }
func (t *fakeToken) Done() <-chan struct{}          { return t.done }
func (t *fakeToken) Error() error                   { return t.err }

type fakeClient struct {
	topic   string
	qos     byte
	payload []byte
	token   *fakeToken
}

func (c *fakeClient) Publish(topic string, qos byte, _ bool, payload interface{}) mqtt.Token {
	c.topic = topic
	c.qos = qos
	c.payload = payload.([]byte)
	return c.token
}

func TestMQTTPublisher_Publish(t *testing.T) {
	client := &fakeClient{token: newFakeToken(nil, true)}
	pub := NewMQTTPublisher(client, "")

	ev := NewVehicleAdded("UTTS-1", "Truck", "Diesel", 5.8, 3)
	require.NoError(t, pub.PublishVehicleAdded(context.Background(), ev))

	assert.Equal(t, DefaultTopic, client.topic)
	assert.Equal(t, byte(1), client.qos)

	var decoded VehicleAdded
	require.NoError(t, json.Unmarshal(client.payload, &decoded))
	assert.Equal(t, "UTTS-1", decoded.Identifier)
	assert.Equal(t, 5.8, decoded.Emissions)
	assert.Equal(t, 3, decoded.FleetSize)
	assert.NotEmpty(t, decoded.ID)
}

func TestMQTTPublisher_BrokerError(t *testing.T) {
	client := &fakeClient{token: newFakeToken(errors.New("not authorized"), true)}
	pub := NewMQTTPublisher(client, "custom/topic")

	err := pub.PublishVehicleAdded(context.Background(), NewVehicleAdded("A", "Van", "Diesel", 2.1, 1))
	assert.ErrorContains(t, err, "not authorized")
	assert.Equal(t, "custom/topic", client.topic)
}

func TestMQTTPublisher_Timeout(t *testing.T) {
	client := &fakeClient{token: newFakeToken(nil, false)}
	pub := NewMQTTPublisher(client, "")
	pub.timeout = 10 * time.Millisecond

	err := pub.PublishVehicleAdded(context.Background(), NewVehicleAdded("A", "Van", "Diesel", 2.1, 1))
	assert.ErrorIs(t, err, ErrPublishTimeout)
}

func TestMQTTPublisher_ContextCanceled(t *testing.T) {
	client := &fakeClient{token: newFakeToken(nil, false)}
	pub := NewMQTTPublisher(client, "")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := pub.PublishVehicleAdded(ctx, NewVehicleAdded("A", "Van", "Diesel", 2.1, 1))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNop(t *testing.T) {
	assert.NoError(t, Nop{}.PublishVehicleAdded(context.Background(), VehicleAdded{}))
}
