package collect

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/HerbHall/netcollect/pkg/collection"
)

// ErrBadMessage is returned for MQTT messages that cannot be turned into a
// collection cycle.
var ErrBadMessage = errors.New("malformed sample message")

// mqttConfig configures sample ingestion from an MQTT broker. Each message
// on Topic carries one resource's values as a JSON object of attribute name
// to raw value; the last topic level is the resource id.
type mqttConfig struct {
	Broker   string        `mapstructure:"broker"`
	Topic    string        `mapstructure:"topic"`
	ClientID string        `mapstructure:"client_id"`
	QoS      byte          `mapstructure:"qos"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

func defaultMQTTConfig() mqttConfig {
	return mqttConfig{
		Topic:   "netcollect/samples/+",
		QoS:     1,
		Timeout: 10 * time.Second,
	}
}

func (m *Module) startMQTT(ctx context.Context) error {
	cfg := m.mqttCfg
	clientID := cfg.ClientID
	if clientID == "" {
		clientID = "netcollect-" + uuid.NewString()[:8]
	}

	handler := m.onMessage(ctx)
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetOrderMatters(false).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			m.logger.Warn("mqtt connection lost", zap.String("broker", cfg.Broker), zap.Error(err))
		}).
		SetOnConnectHandler(func(c mqtt.Client) {
			// Clean sessions drop subscriptions; resubscribe on every connect.
			tok := c.Subscribe(cfg.Topic, cfg.QoS, handler)
			if tok.WaitTimeout(cfg.Timeout) && tok.Error() != nil {
				m.logger.Error("mqtt subscribe failed", zap.String("topic", cfg.Topic), zap.Error(tok.Error()))
				return
			}
			m.logger.Info("mqtt subscribed", zap.String("broker", cfg.Broker), zap.String("topic", cfg.Topic))
		})

	client := mqtt.NewClient(opts)
	tok := client.Connect()
	if !tok.WaitTimeout(cfg.Timeout) {
		return fmt.Errorf("mqtt connect %s: timed out after %v", cfg.Broker, cfg.Timeout)
	}
	if err := tok.Error(); err != nil {
		return fmt.Errorf("mqtt connect %s: %w", cfg.Broker, err)
	}
	m.broker = client
	return nil
}

func (m *Module) onMessage(ctx context.Context) mqtt.MessageHandler {
	return func(_ mqtt.Client, msg mqtt.Message) {
		c, err := m.ingest(ctx, msg.Topic(), msg.Payload())
		if err != nil {
			m.logger.Warn("mqtt sample rejected", zap.String("topic", msg.Topic()), zap.Error(err))
			return
		}
		m.logger.Debug("mqtt sample collected",
			zap.String("topic", msg.Topic()),
			zap.String("cycle", c.ID),
			zap.Int("samples", len(c.Samples)),
		)
	}
}

// ingest collects one MQTT message. JSON numbers keep their literal text so
// the normalizer sees exactly what the publisher sent; null becomes an empty
// raw value.
func (m *Module) ingest(ctx context.Context, topic string, payload []byte) (*Cycle, error) {
	id := topic[strings.LastIndex(topic, "/")+1:]
	if id == "" || id == "+" || id == "#" {
		return nil, fmt.Errorf("%w: no resource id in topic %q", ErrBadMessage, topic)
	}

	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.UseNumber()
	var fields map[string]any
	if err := dec.Decode(&fields); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadMessage, err)
	}

	values := make(map[string]string, len(fields))
	for name, v := range fields {
		switch v := v.(type) {
		case string:
			values[name] = v
		case json.Number:
			values[name] = v.String()
		case nil:
			values[name] = ""
		default:
			m.logger.Debug("ignoring non-scalar mqtt value", zap.String("attribute", name))
		}
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("%w: no values", ErrBadMessage)
	}
	return m.Collect(ctx, collection.Resource{ID: collection.ResourceID(id)}, values)
}
