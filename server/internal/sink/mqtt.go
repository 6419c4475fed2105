package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/linewatch/linewatch/pkg/types"
	"github.com/linewatch/linewatch/server/internal/config"
)

const (
	mqttConnectTimeout = 10 * time.Second
	mqttQuiesceMillis  = 250
)

// mqttClient is the subset of mqtt.Client used by MQTTPublisher.
type mqttClient interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
	Disconnect(quiesce uint)
}

// MQTTPublisher publishes per-line topics under a common prefix:
//
//	<prefix>/lines/<id>/metrics        latest reading, every tick
//	<prefix>/lines/<id>/status         current status, retained
//	<prefix>/lines/<id>/notifications  one message per emitted notification
type MQTTPublisher struct {
	client mqttClient
	prefix string
	qos    byte
}

// NewMQTT connects to the broker in cfg and returns a publisher.
// The client reconnects on its own after the initial connection succeeds.
func NewMQTT(cfg config.MQTTConfig) (*MQTTPublisher, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectTimeout(mqttConnectTimeout)

	c := mqtt.NewClient(opts)
	tok := c.Connect()
	if !tok.WaitTimeout(mqttConnectTimeout) {
		return nil, fmt.Errorf("mqtt: connect to %s: timed out", cfg.Broker)
	}
	if err := tok.Error(); err != nil {
		return nil, fmt.Errorf("mqtt: connect to %s: %w", cfg.Broker, err)
	}
	return newMQTTPublisher(c, cfg), nil
}

func newMQTTPublisher(c mqttClient, cfg config.MQTTConfig) *MQTTPublisher {
	return &MQTTPublisher{client: c, prefix: cfg.TopicPrefix, qos: cfg.QoS}
}

// Publish sends this tick's reading, status and notifications for every line.
func (p *MQTTPublisher) Publish(ctx context.Context, lines []types.LineData) error {
	for _, ld := range lines {
		base := fmt.Sprintf("%s/lines/%d", p.prefix, ld.Line.ID)

		if mm, ok := metricMessage(ld); ok {
			if err := p.send(ctx, base+"/metrics", false, mm); err != nil {
				return err
			}
		}
		if err := p.send(ctx, base+"/status", true, ld.Line.Status); err != nil {
			return err
		}
		for _, n := range ld.Emitted() {
			if err := p.send(ctx, base+"/notifications", false, n); err != nil {
				return err
			}
		}
	}
	return nil
}

func (p *MQTTPublisher) send(ctx context.Context, topic string, retained bool, v interface{}) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("mqtt: encode %s: %w", topic, err)
	}
	tok := p.client.Publish(topic, p.qos, retained, b)
	select {
	case <-tok.Done():
	case <-ctx.Done():
		return fmt.Errorf("mqtt: publish %s: %w", topic, ctx.Err())
	}
	if err := tok.Error(); err != nil {
		return fmt.Errorf("mqtt: publish %s: %w", topic, err)
	}
	return nil
}

// Close disconnects from the broker.
func (p *MQTTPublisher) Close() error {
	p.client.Disconnect(mqttQuiesceMillis)
	return nil
}
