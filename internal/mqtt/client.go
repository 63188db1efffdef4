// Package mqtt wraps the paho client with the options shared by the step
// sensor and the notification publisher.
package mqtt

import (
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/julianstephens/stepalarm/internal/constants"
	"github.com/julianstephens/stepalarm/internal/logger"
)

// MessageHandler processes one inbound message.
type MessageHandler func(topic string, payload []byte)

// Config holds broker connection settings.
type Config struct {
	Broker   string
	ClientID string
	Username string
	Password string
	// AutoReconnect keeps the session alive across broker restarts. The step
	// sensor leaves it off so a dropped connection surfaces as a failure.
	AutoReconnect bool
	// OnConnectionLost is invoked when an established connection drops.
	OnConnectionLost func(error)
}

// Conn is the subset of client behaviour used by adapters. Tests provide fakes.
type Conn interface {
	Subscribe(topic string, qos byte, handler MessageHandler) error
	Publish(topic string, qos byte, retained bool, payload []byte) error
	Unsubscribe(topics ...string) error
	Disconnect()
	IsConnected() bool
}

// Dialer opens a connection. Connect is the production implementation.
type Dialer func(cfg Config) (Conn, error)

// Client is a connected broker session.
type Client struct {
	client paho.Client
}

var _ Conn = (*Client)(nil)

// ClientID builds a per-process client ID so concurrent sessions don't evict each other.
func ClientID(role string) string {
	return fmt.Sprintf("%s-%s-%d-%d", constants.AppName, role, time.Now().UnixNano(), clientSeq.Add(1))
}

var clientSeq atomic.Uint64

// Topic joins the configured prefix with a suffix.
func Topic(prefix, suffix string) string {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return suffix
	}
	return prefix + "/" + suffix
}

// Connect dials the broker and waits for the CONNACK.
func Connect(cfg Config) (Conn, error) {
	if cfg.Broker == "" {
		return nil, errors.New("mqtt broker is not configured")
	}

	opts := paho.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
	}
	if cfg.Password != "" {
		opts.SetPassword(cfg.Password)
	}
	opts.SetAutoReconnect(cfg.AutoReconnect)
	opts.SetCleanSession(true)
	opts.SetConnectTimeout(constants.MQTTConnectTimeout)
	opts.SetConnectionLostHandler(func(_ paho.Client, err error) {
		logger.Warn("MQTT connection lost", "broker", cfg.Broker, "error", err)
		if cfg.OnConnectionLost != nil {
			cfg.OnConnectionLost(err)
		}
	})

	client := paho.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(constants.MQTTConnectTimeout) {
		return nil, fmt.Errorf("timed out connecting to MQTT broker %s", cfg.Broker)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("failed to connect to MQTT broker: %w", err)
	}

	logger.Debug("Connected to MQTT broker", "broker", cfg.Broker, "client_id", cfg.ClientID)
	return &Client{client: client}, nil
}

func (c *Client) Subscribe(topic string, qos byte, handler MessageHandler) error {
	token := c.client.Subscribe(topic, qos, func(_ paho.Client, msg paho.Message) {
		handler(msg.Topic(), msg.Payload())
	})
	if token.Wait() && token.Error() != nil {
		return fmt.Errorf("failed to subscribe to topic %s: %w", topic, token.Error())
	}
	return nil
}

func (c *Client) Publish(topic string, qos byte, retained bool, payload []byte) error {
	token := c.client.Publish(topic, qos, retained, payload)
	token.Wait()
	if err := token.Error(); err != nil {
		return fmt.Errorf("failed to publish to topic %s: %w", topic, err)
	}
	return nil
}

func (c *Client) Unsubscribe(topics ...string) error {
	token := c.client.Unsubscribe(topics...)
	token.Wait()
	if err := token.Error(); err != nil {
		return fmt.Errorf("failed to unsubscribe: %w", err)
	}
	return nil
}

func (c *Client) Disconnect() {
	c.client.Disconnect(constants.MQTTDisconnectQuiesce)
}

func (c *Client) IsConnected() bool {
	return c.client.IsConnected()
}
