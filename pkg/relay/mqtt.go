// Package relay mirrors the snapshot stream to an MQTT broker so that
// spectators and tools can follow a game without a WebSocket connection.
package relay

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// ErrTimeout is returned when the broker does not acknowledge in time.
var ErrTimeout = errors.New("relay: broker timeout")

// Publisher sends one payload to a topic.
type Publisher interface {
	Publish(topic string, payload []byte) error
	Close()
}

// MQTT is a Publisher backed by a paho client.
type MQTT struct {
	client  mqtt.Client
	timeout time.Duration
}

// DialMQTT connects to broker, e.g. "tcp://localhost:1883".
func DialMQTT(broker, clientID string, timeout time.Duration) (*MQTT, error) {
	opt := mqtt.NewClientOptions()
	opt.AddBroker(broker)
	opt.SetClientID(clientID)
	opt.SetAutoReconnect(true)
	opt.SetConnectTimeout(timeout)

	client := mqtt.NewClient(opt)
	tok := client.Connect()
	if !tok.WaitTimeout(timeout) {
		return nil, fmt.Errorf("connect %s: %w", broker, ErrTimeout)
	}
	if err := tok.Error(); err != nil {
		return nil, fmt.Errorf("connect %s: %w", broker, err)
	}
	return &MQTT{client: client, timeout: timeout}, nil
}

// Publish sends payload with QoS 0 and waits for the client to hand it off.
func (m *MQTT) Publish(topic string, payload []byte) error {
	tok := m.client.Publish(topic, 0, false, payload)
	if !tok.WaitTimeout(m.timeout) {
		return ErrTimeout
	}
	return tok.Error()
}

// Close disconnects, giving in-flight work 250ms.
func (m *MQTT) Close() {
	m.client.Disconnect(250)
}

// Mirror forwards frames to a Publisher.
type Mirror struct {
	pub    Publisher
	topic  string
	every  int
	logger *log.Logger
}

// NewMirror publishes every n-th frame to topic; n < 1 is treated as 1.
func NewMirror(pub Publisher, topic string, every int, logger *log.Logger) *Mirror {
	if every < 1 {
		every = 1
	}
	return &Mirror{pub: pub, topic: topic, every: every, logger: logger}
}

// Run forwards frames until the channel closes or ctx is done and returns the
// number of frames published. Publish failures are logged and skipped.
func (m *Mirror) Run(ctx context.Context, frames <-chan []byte) int {
	seen, sent := 0, 0
	for {
		select {
		case <-ctx.Done():
			return sent
		case frame, ok := <-frames:
			if !ok {
				return sent
			}
			seen++
			if (seen-1)%m.every != 0 {
				continue
			}
			if err := m.pub.Publish(m.topic, frame); err != nil {
				if m.logger != nil {
					m.logger.Printf("[MQTT] publish to %s: %v", m.topic, err)
				}
				continue
			}
			sent++
		}
	}
}
