// Package mqtt publishes alerts to an MQTT broker.
package mqtt

import (
	"context"
	"errors"
	"fmt"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/oshokin/posture-alarm/internal/config"
	"github.com/oshokin/posture-alarm/internal/domain/posture"
	"github.com/oshokin/posture-alarm/internal/publish"
	"github.com/oshokin/posture-alarm/internal/service/common"
)

// disconnectQuiesce is how long Disconnect waits for in-flight work, in ms.
const disconnectQuiesce = 250

// client is the subset of paho.Client used by the publisher.
type client interface {
	Publish(topic string, qos byte, retained bool, payload any) paho.Token
	Disconnect(quiesce uint)
}

// Publisher sends alerts to a topic.
type Publisher struct {
	client  client
	topic   string
	qos     byte
	timeout time.Duration
	host    *common.Host
}

// errTimeout is returned when the broker does not acknowledge in time.
var errTimeout = errors.New("mqtt operation timed out")

// Connect dials the broker described by cfg.
func Connect(cfg *config.MQTT, timeout time.Duration, host *common.Host) (*Publisher, error) {
	opts := paho.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)
	opts.SetConnectTimeout(timeout)
	opts.SetAutoReconnect(true)
	opts.SetCleanSession(true)

	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
	}

	if cfg.Password != "" {
		opts.SetPassword(cfg.Password)
	}

	c := paho.NewClient(opts)

	token := c.Connect()
	if !token.WaitTimeout(timeout) {
		return nil, fmt.Errorf("connect to %s: %w", cfg.Broker, errTimeout)
	}

	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to %s: %w", cfg.Broker, err)
	}

	return New(c, cfg.Topic, cfg.QoS, timeout, host), nil
}

// New wraps an established client.
func New(c client, topic string, qos byte, timeout time.Duration, host *common.Host) *Publisher {
	return &Publisher{
		client:  c,
		topic:   topic,
		qos:     qos,
		timeout: timeout,
		host:    host,
	}
}

// Name implements publish.Publisher.
func (p *Publisher) Name() string {
	return "mqtt"
}

// Publish implements publish.Publisher.
func (p *Publisher) Publish(_ context.Context, alert *posture.Alert) error {
	payload, err := publish.Payload(alert, p.host)
	if err != nil {
		return err
	}

	token := p.client.Publish(p.topic, p.qos, false, payload)
	if !token.WaitTimeout(p.timeout) {
		return fmt.Errorf("publish to %s: %w", p.topic, errTimeout)
	}

	if err = token.Error(); err != nil {
		return fmt.Errorf("publish to %s: %w", p.topic, err)
	}

	return nil
}

// Close implements publish.Publisher.
func (p *Publisher) Close() error {
	p.client.Disconnect(disconnectQuiesce)

	return nil
}
