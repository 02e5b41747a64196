package mqtt

import (
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/sweeney/debounced-button/internal/logic"
)

const (
	bufferCapacity = 256
	publishTimeout = 5 * time.Second
	connectTimeout = 10 * time.Second
)

// RealPublisher publishes to an actual MQTT broker.
// Messages published while the connection is down are buffered and replayed
// once it comes back.
type RealPublisher struct {
	client      paho.Client
	log         zerolog.Logger
	topic       string
	systemTopic string
	now         func() time.Time

	// connected is set by onConnect and cleared by onConnectionLost.
	// publish reads it and buffers under the same lock.
	mu         sync.Mutex
	connected  bool
	buffer     *ringBuffer
	dropped    int
	connectedN int
}

func newPublisher(pin int, log zerolog.Logger) *RealPublisher {
	return &RealPublisher{
		log:         log,
		topic:       EventTopic(pin),
		systemTopic: SystemTopic(pin),
		now:         time.Now,
		buffer:      newRingBuffer(bufferCapacity),
	}
}

// NewRealPublisher creates a publisher connected to the given broker.
// If the broker is unreachable within the connect timeout the publisher is
// still returned; paho keeps retrying and messages are buffered meanwhile.
func NewRealPublisher(broker, clientID string, pin int, log zerolog.Logger) (*RealPublisher, error) {
	p := newPublisher(pin, log)

	will, err := FormatSystemPayload(SystemEvent{
		Timestamp: p.now(),
		Event:     "SHUTDOWN",
		Reason:    "MQTT_DISCONNECT",
	})
	if err != nil {
		return nil, errors.Wrap(err, "format will payload")
	}

	opts := paho.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5*time.Second).
		SetWill(p.systemTopic, string(will), 1, true).
		SetOnConnectHandler(p.onConnect).
		SetConnectionLostHandler(p.onConnectionLost)

	p.client = paho.NewClient(opts)
	token := p.client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		log.Warn().Str("broker", broker).Msg("mqtt broker not reachable yet, buffering")
		return p, nil
	}
	if err := token.Error(); err != nil {
		return nil, errors.Wrap(err, "connect to broker")
	}

	return p, nil
}

// Publish sends a button event to the MQTT broker.
func (p *RealPublisher) Publish(event logic.Event) error {
	payload, err := FormatPayload(event)
	if err != nil {
		return errors.Wrap(err, "format payload")
	}

	// QoS 1: edges are rare and each one matters
	return p.publish(bufferedMsg{topic: p.topic, payload: payload, qos: 1})
}

// PublishSystem sends a system lifecycle event to the MQTT broker.
func (p *RealPublisher) PublishSystem(event SystemEvent) error {
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return errors.Wrap(err, "format system payload")
	}

	return p.publish(bufferedMsg{topic: p.systemTopic, payload: payload, qos: 1, retained: event.Retained})
}

func (p *RealPublisher) publish(msg bufferedMsg) error {
	p.mu.Lock()
	if !p.connected {
		if p.buffer.push(msg) {
			if p.dropped == 0 {
				p.log.Warn().Int("capacity", bufferCapacity).Msg("mqtt buffer full, dropping oldest")
			}
			p.dropped++
		}
		p.mu.Unlock()
		return nil
	}
	p.mu.Unlock()

	token := p.client.Publish(msg.topic, msg.qos, msg.retained, msg.payload)
	if !token.WaitTimeout(publishTimeout) {
		return errors.Errorf("publish to %s timed out", msg.topic)
	}
	if err := token.Error(); err != nil {
		return errors.Wrapf(err, "publish to %s", msg.topic)
	}
	return nil
}

// onConnect replays buffered messages and announces reconnections.
func (p *RealPublisher) onConnect(client paho.Client) {
	p.mu.Lock()
	p.connected = true
	msgs := p.buffer.drainAll()
	dropped := p.dropped
	p.dropped = 0
	p.connectedN++
	reconnect := p.connectedN > 1
	p.mu.Unlock()

	p.log.Info().Int("buffered", len(msgs)).Int("dropped", dropped).Msg("mqtt connected")

	if reconnect {
		payload, err := FormatSystemPayload(SystemEvent{Timestamp: p.now(), Event: "RECONNECTED"})
		if err != nil {
			p.log.Warn().Err(err).Msg("failed to format reconnect event")
		} else {
			msgs = append(msgs, bufferedMsg{topic: p.systemTopic, payload: payload, qos: 1})
		}
	}

	for _, msg := range msgs {
		token := client.Publish(msg.topic, msg.qos, msg.retained, msg.payload)
		if !token.WaitTimeout(publishTimeout) {
			p.log.Warn().Str("topic", msg.topic).Msg("replay timed out")
			continue
		}
		if err := token.Error(); err != nil {
			p.log.Warn().Err(err).Str("topic", msg.topic).Msg("replay failed")
		}
	}
}

// onConnectionLost switches publish back to buffering.
func (p *RealPublisher) onConnectionLost(_ paho.Client, err error) {
	p.mu.Lock()
	p.connected = false
	p.mu.Unlock()
	p.log.Warn().Err(err).Msg("mqtt connection lost")
}

// IsConnected reports whether the broker connection is up.
func (p *RealPublisher) IsConnected() bool {
	return p.client.IsConnectionOpen()
}

// Buffered returns the number of messages waiting for a connection.
func (p *RealPublisher) Buffered() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.buffer.len()
}

// Close disconnects from the broker.
func (p *RealPublisher) Close() error {
	p.client.Disconnect(1000) // 1 second timeout
	return nil
}
