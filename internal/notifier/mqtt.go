package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/julianstephens/stepalarm/internal/constants"
	"github.com/julianstephens/stepalarm/internal/models"
	"github.com/julianstephens/stepalarm/internal/mqtt"
)

// MQTTDeliverer publishes notifications for phones or home automation
// subscribed to <prefix>/notifications.
type MQTTDeliverer struct {
	cfg    mqtt.Config
	dial   mqtt.Dialer
	prefix string

	mu   sync.Mutex
	conn mqtt.Conn
}

var _ Deliverer = (*MQTTDeliverer)(nil)

// NewMQTTDeliverer connects lazily on the first delivery. dial defaults to mqtt.Connect.
func NewMQTTDeliverer(cfg mqtt.Config, prefix string, dial mqtt.Dialer) *MQTTDeliverer {
	if dial == nil {
		dial = mqtt.Connect
	}
	cfg.AutoReconnect = true
	if cfg.ClientID == "" {
		cfg.ClientID = mqtt.ClientID("notifier")
	}
	return &MQTTDeliverer{cfg: cfg, dial: dial, prefix: prefix}
}

func (m *MQTTDeliverer) Name() string { return constants.DeliveryMQTT }

func (m *MQTTDeliverer) Deliver(ctx context.Context, n models.Notification) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	payload, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("failed to encode notification: %w", err)
	}

	conn, err := m.connection()
	if err != nil {
		return err
	}
	return conn.Publish(mqtt.Topic(m.prefix, constants.MQTTNotificationsTopic), 1, false, payload)
}

func (m *MQTTDeliverer) connection() (mqtt.Conn, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.conn != nil {
		return m.conn, nil
	}
	conn, err := m.dial(m.cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mqtt broker: %w", err)
	}
	m.conn = conn
	return conn, nil
}

// Close disconnects from the broker if a connection was made.
func (m *MQTTDeliverer) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.conn != nil {
		m.conn.Disconnect()
		m.conn = nil
	}
}
