// Package mqtt talks to Tuya devices through a tuya-mqtt bridge.
package mqtt

import (
	"fmt"
	"sync"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog/log"
)

const (
	defaultConnectTimeout = 10 * time.Second
	defaultTimeout        = 5 * time.Second
	disconnectQuiesce     = 250 // milliseconds
	maxQoS                = 2
)

// Options configures the broker connection.
type Options struct {
	Broker   string // e.g. tcp://localhost:1883
	ClientID string
	Username string
	Password string
	QoS      byte
	Timeout  time.Duration // per publish/subscribe and per status read
}

// MessageHandler receives messages for a subscription.
type MessageHandler func(topic string, payload []byte)

// Broker is the slice of an MQTT client the device handles need.
type Broker interface {
	Publish(topic string, payload []byte) error
	Subscribe(topic string, handler MessageHandler) error
	Unsubscribe(topic string) error
}

// Client wraps a paho client.
type Client struct {
	client pahomqtt.Client
	opts   Options

	mu        sync.RWMutex
	connected bool
}

// Connect dials the broker and waits for the connection to be established.
func Connect(opts Options) (*Client, error) {
	if opts.Broker == "" {
		return nil, fmt.Errorf("%w: no broker configured", ErrConnectionFailed)
	}
	if opts.QoS > maxQoS {
		return nil, fmt.Errorf("%w: invalid qos %d", ErrConnectionFailed, opts.QoS)
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}

	po := pahomqtt.NewClientOptions().
		AddBroker(opts.Broker).
		SetClientID(opts.ClientID).
		SetCleanSession(true).
		SetAutoReconnect(true).
		SetConnectTimeout(defaultConnectTimeout)
	if opts.Username != "" {
		po.SetUsername(opts.Username)
		po.SetPassword(opts.Password)
	}

	c := &Client{opts: opts}
	po.SetConnectionLostHandler(func(_ pahomqtt.Client, err error) {
		c.setConnected(false)
		log.Warn().Err(err).Str("broker", opts.Broker).Msg("MQTT connection lost")
	})
	po.SetOnConnectHandler(func(_ pahomqtt.Client) {
		c.setConnected(true)
	})

	c.client = pahomqtt.NewClient(po)
	token := c.client.Connect()
	if !token.WaitTimeout(defaultConnectTimeout) {
		return nil, fmt.Errorf("%w: timeout after %v", ErrConnectionFailed, defaultConnectTimeout)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}
	c.setConnected(true)

	log.Debug().Str("broker", opts.Broker).Str("client_id", opts.ClientID).Msg("Connected to MQTT broker")
	return c, nil
}

// IsConnected reports whether the client currently holds a connection.
func (c *Client) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected && c.client.IsConnected()
}

func (c *Client) setConnected(v bool) {
	c.mu.Lock()
	c.connected = v
	c.mu.Unlock()
}

// Publish sends a non-retained message with the configured QoS.
func (c *Client) Publish(topic string, payload []byte) error {
	if !c.IsConnected() {
		return ErrNotConnected
	}
	token := c.client.Publish(topic, c.opts.QoS, false, payload)
	if !token.WaitTimeout(c.opts.Timeout) {
		return fmt.Errorf("%w: %s: timeout after %v", ErrPublishFailed, topic, c.opts.Timeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrPublishFailed, topic, err)
	}
	return nil
}

// Subscribe registers handler for topic. Handler panics are recovered.
func (c *Client) Subscribe(topic string, handler MessageHandler) error {
	if !c.IsConnected() {
		return ErrNotConnected
	}
	token := c.client.Subscribe(topic, c.opts.QoS, func(_ pahomqtt.Client, msg pahomqtt.Message) {
		defer func() {
			if r := recover(); r != nil {
				log.Error().Interface("panic", r).Str("topic", msg.Topic()).Msg("MQTT handler panicked")
			}
		}()
		handler(msg.Topic(), msg.Payload())
	})
	if !token.WaitTimeout(c.opts.Timeout) {
		return fmt.Errorf("%w: %s: timeout after %v", ErrSubscribeFailed, topic, c.opts.Timeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrSubscribeFailed, topic, err)
	}
	return nil
}

// Unsubscribe removes the subscription for topic.
func (c *Client) Unsubscribe(topic string) error {
	if !c.IsConnected() {
		return ErrNotConnected
	}
	token := c.client.Unsubscribe(topic)
	if !token.WaitTimeout(c.opts.Timeout) {
		return fmt.Errorf("%w: unsubscribe %s", ErrTimeout, topic)
	}
	return token.Error()
}

// Close disconnects from the broker.
func (c *Client) Close() error {
	if c.client == nil {
		return nil
	}
	c.client.Disconnect(disconnectQuiesce)
	c.setConnected(false)
	return nil
}
