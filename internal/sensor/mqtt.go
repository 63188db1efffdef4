package sensor

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/julianstephens/stepalarm/internal/constants"
	"github.com/julianstephens/stepalarm/internal/logger"
	"github.com/julianstephens/stepalarm/internal/mqtt"
)

// MQTTConfig configures the broker-backed step feed.
type MQTTConfig struct {
	Broker      string
	TopicPrefix string
	Username    string
	Password    string
}

// MQTT reads cumulative step counts published by a phone or wearable on
// <prefix>/steps. At start it announces the session epoch on
// <prefix>/steps/session so the publisher can zero its counter.
type MQTT struct {
	cfg  MQTTConfig
	dial mqtt.Dialer

	mu   sync.Mutex
	conn mqtt.Conn
	feed *feed
}

var _ Sensor = (*MQTT)(nil)

// NewMQTT builds a sensor. A nil dialer uses mqtt.Connect.
func NewMQTT(cfg MQTTConfig, dial mqtt.Dialer) *MQTT {
	if dial == nil {
		dial = mqtt.Connect
	}
	return &MQTT{cfg: cfg, dial: dial}
}

func (m *MQTT) Available() bool {
	return strings.TrimSpace(m.cfg.Broker) != ""
}

type sessionAnnouncement struct {
	Start time.Time `json:"start"`
}

func (m *MQTT) Start(ctx context.Context, from time.Time) (<-chan Update, error) {
	if !m.Available() {
		return nil, ErrUnavailable
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.feed != nil {
		return nil, ErrAlreadyStarted
	}

	f := newFeed()
	conn, err := m.dial(mqtt.Config{
		Broker:   m.cfg.Broker,
		ClientID: mqtt.ClientID("sensor"),
		Username: m.cfg.Username,
		Password: m.cfg.Password,
		OnConnectionLost: func(err error) {
			f.send(Update{Err: fmt.Errorf("step feed disconnected: %w", err)})
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	topic := mqtt.Topic(m.cfg.TopicPrefix, constants.MQTTStepsTopic)
	err = conn.Subscribe(topic, 1, func(_ string, payload []byte) {
		steps, at, err := ParsePayload(payload)
		if err != nil {
			logger.Warn("Ignoring malformed step payload", "topic", topic, "error", err)
			return
		}
		if !at.IsZero() && at.Before(from) {
			logger.Debug("Ignoring step sample from before session start", "at", at, "start", from)
			return
		}
		f.send(Update{Steps: steps})
	})
	if err != nil {
		conn.Disconnect()
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	announce, _ := json.Marshal(sessionAnnouncement{Start: from.UTC()})
	if err := conn.Publish(mqtt.Topic(m.cfg.TopicPrefix, constants.MQTTSessionTopic), 1, false, announce); err != nil {
		logger.Warn("Failed to announce step session", "error", err)
	}

	m.conn = conn
	m.feed = f
	go func() {
		<-ctx.Done()
		m.stop(f)
	}()

	logger.Info("Step tracking started", "topic", topic, "from", from)
	return f.ch, nil
}

func (m *MQTT) Stop() {
	m.stop(nil)
}

// stop tears down the running session. A non-nil f limits it to that session.
func (m *MQTT) stop(f *feed) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if f != nil && m.feed != f {
		return
	}
	if m.feed != nil {
		m.feed.close()
		m.feed = nil
	}
	if m.conn != nil {
		topic := mqtt.Topic(m.cfg.TopicPrefix, constants.MQTTStepsTopic)
		if err := m.conn.Unsubscribe(topic); err != nil {
			logger.Debug("Unsubscribe failed", "error", err)
		}
		m.conn.Disconnect()
		m.conn = nil
	}
}

type stepPayload struct {
	Steps *int      `json:"steps"`
	At    time.Time `json:"at"`
}

// ParsePayload decodes either {"steps": N, "at": "<RFC3339>"} or a bare
// integer. The returned time is zero when the payload carries none.
func ParsePayload(payload []byte) (int, time.Time, error) {
	text := strings.TrimSpace(string(payload))
	if text == "" {
		return 0, time.Time{}, fmt.Errorf("empty payload")
	}

	if n, err := strconv.Atoi(text); err == nil {
		if n < 0 {
			return 0, time.Time{}, fmt.Errorf("negative step count %d", n)
		}
		return n, time.Time{}, nil
	}

	var p stepPayload
	if err := json.Unmarshal([]byte(text), &p); err != nil {
		return 0, time.Time{}, fmt.Errorf("invalid step payload: %w", err)
	}
	if p.Steps == nil {
		return 0, time.Time{}, fmt.Errorf("step payload missing steps")
	}
	if *p.Steps < 0 {
		return 0, time.Time{}, fmt.Errorf("negative step count %d", *p.Steps)
	}
	return *p.Steps, p.At, nil
}
