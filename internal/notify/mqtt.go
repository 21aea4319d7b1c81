// ABOUTME: MQTT notifier
// ABOUTME: Publishes the notification as a retained JSON message on a topic

package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// DefaultTopic is used when no topic is configured.
const DefaultTopic = "tracker/notification"

const (
	mqttConnectTimeout = 30 * time.Second
	mqttPublishTimeout = 10 * time.Second
	mqttQoS            = 1
)

// Publisher is the part of an MQTT client the notifier needs.
type Publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

// MQTT keeps the latest notification retained on a topic so dashboards
// see it on subscribe. Remove clears the retained message.
type MQTT struct {
	client Publisher
	topic  string
	closer func()
}

// NewMQTT publishes through an existing client.
func NewMQTT(client Publisher, topic string) *MQTT {
	if topic == "" {
		topic = DefaultTopic
	}
	return &MQTT{client: client, topic: topic}
}

// DialMQTT connects to broker (e.g. tcp://localhost:1883).
func DialMQTT(broker, clientID, topic string) (*MQTT, error) {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(broker)
	opts.SetClientID(clientID)
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(false)

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(mqttConnectTimeout) {
		return nil, fmt.Errorf("connect %s: timeout", broker)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect %s: %w", broker, err)
	}

	m := NewMQTT(client, topic)
	m.closer = func() { client.Disconnect(250) }
	return m, nil
}

// Topic returns the topic notifications are published on.
func (m *MQTT) Topic() string {
	return m.topic
}

func (m *MQTT) publish(ctx context.Context, payload []byte) error {
	token := m.client.Publish(m.topic, mqttQoS, true, payload)

	timer := time.NewTimer(mqttPublishTimeout)
	defer timer.Stop()
	select {
	case <-token.Done():
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return fmt.Errorf("publish %s: timeout", m.topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish %s: %w", m.topic, err)
	}
	return nil
}

// Show implements Notifier.
func (m *MQTT) Show(ctx context.Context, n Notification) error {
	data, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("encode notification: %w", err)
	}
	return m.publish(ctx, data)
}

// Update implements Notifier.
func (m *MQTT) Update(ctx context.Context, n Notification) error {
	return m.Show(ctx, n)
}

// Remove implements Notifier. An empty retained payload deletes the
// retained message on the broker.
func (m *MQTT) Remove(ctx context.Context) error {
	return m.publish(ctx, []byte{})
}

// Close disconnects a client opened by DialMQTT.
func (m *MQTT) Close() error {
	if m.closer != nil {
		m.closer()
	}
	return nil
}
