// Package mqtt publishes readings to an mqtt broker.
package mqtt

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	mqttlib "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"github.com/womat/debug"
)

const (
	// quiesce is the specified number of milliseconds to wait for existing work to be completed.
	quiesce = 250
	// connectTimeout limits the wait for the broker connection.
	connectTimeout = 10 * time.Second
)

// ErrQueueFull is returned by Send if the pending messages aren't published in time.
var ErrQueueFull = errors.New("mqtt queue full, message dropped")

// Handler contains the handler of the mqtt broker.
type Handler struct {
	handler mqttlib.Client
	// C is the channel to service the mqtt message
	// sending a message to channel C will send the message.
	C chan Message
	// done signals that Service is terminated
	done chan struct{}
}

// Message contains the properties of the mqtt message.
type Message struct {
	Topic    string
	Payload  []byte
	Qos      byte
	Retained bool
}

// New generate a new mqtt broker client.
func New() *Handler {
	return &Handler{
		C:    make(chan Message, 16),
		done: make(chan struct{}),
	}
}

// ClientID returns a unique client id for module.
func ClientID(module string) string {
	return module + "-" + strings.Split(uuid.NewString(), "-")[0]
}

// Connect connects to the mqtt broker.
// If no broker is defined, no mqtt message are send.
func (m *Handler) Connect(broker, clientID string) error {
	if broker == "" {
		return nil
	}

	opts := mqttlib.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectTimeout(connectTimeout)

	m.handler = mqttlib.NewClient(opts)
	return m.ReConnect()
}

// ReConnect reconnects to the defined mqtt broker.
func (m *Handler) ReConnect() error {
	t := m.handler.Connect()
	if !t.WaitTimeout(connectTimeout) {
		return fmt.Errorf("timeout connecting to mqtt broker")
	}
	return t.Error()
}

// Disconnect will end the connection to the broker.
func (m *Handler) Disconnect() error {
	if m.handler == nil {
		return nil
	}

	m.handler.Disconnect(quiesce)
	return nil
}

// Send marshals v to json and sends it to channel C.
// Send never blocks, if channel C is full the message is dropped (ErrQueueFull).
func (m *Handler) Send(topic string, v interface{}) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal mqtt message: %w", err)
	}

	select {
	case m.C <- Message{
		Qos:      0,
		Retained: true,
		Topic:    topic,
		Payload:  b,
	}:
		return nil
	default:
		return fmt.Errorf("%w: topic %v", ErrQueueFull, topic)
	}
}

// Close closes channel C and waits until Service has published the pending messages.
func (m *Handler) Close() error {
	close(m.C)

	select {
	case <-m.done:
	case <-time.After(quiesce * time.Millisecond):
		debug.ErrorLog.Print("mqtt service didn't terminate")
	}

	return m.Disconnect()
}

// Service listen to a message on the channel C and send the message to mqtt.
// If no handler or topic is defined, the message will be ignored.
func (m *Handler) Service() {
	defer close(m.done)

	for msg := range m.C {
		if m.handler == nil || msg.Topic == "" {
			continue
		}

		if !m.handler.IsConnected() {
			debug.DebugLog.Printf("mqtt broker isn't connected, reconnect it")

			if err := m.ReConnect(); err != nil {
				debug.ErrorLog.Printf("can't reconnect to mqtt broker %v", err)
				continue
			}
		}

		debug.DebugLog.Printf("publishing %v bytes to topic %v", len(msg.Payload), msg.Topic)
		t := m.handler.Publish(msg.Topic, msg.Qos, msg.Retained, msg.Payload)

		if !t.WaitTimeout(connectTimeout) {
			debug.ErrorLog.Printf("publishing topic %v: timeout", msg.Topic)
			continue
		}
		if err := t.Error(); err != nil {
			debug.ErrorLog.Printf("publishing topic %v: %v", msg.Topic, err)
		}
	}
}
