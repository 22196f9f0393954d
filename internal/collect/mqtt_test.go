package collect

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMessage struct {
	topic   string
	payload []byte
}

func (m *fakeMessage) Duplicate() bool   { return false }
func (m *fakeMessage) Qos() byte         { return 1 }
func (m *fakeMessage) Retained() bool    { return false }
func (m *fakeMessage) Topic() string     { return m.topic }
func (m *fakeMessage) MessageID() uint16 { return 1 }
func (m *fakeMessage) Payload() []byte   { return m.payload }
func (m *fakeMessage) Ack()              {}

func TestModule_Ingest(t *testing.T) {
	m, _, clock := newTestModule(t, nil)
	ctx := context.Background()

	c, err := m.ingest(ctx, "netcollect/samples/web01",
		[]byte(`{"requests": 1.50e2, "activeConnections": "7 conns", "ifInErrors": null, "nested": {"a": 1}}`))
	require.NoError(t, err)

	assert.Equal(t, "web01", string(c.Resource.ID))
	require.Len(t, c.Samples, 3)
	byName := map[string]string{}
	for _, s := range c.Samples {
		byName[s.Name] = s.Value.String()
	}
	assert.Equal(t, map[string]string{
		"activeConnections": "7",
		"ifInErrors":        "U",
		"requests":          "150",
	}, byName)
	assert.Equal(t, 2, c.Persisted.Written)
	assert.Equal(t, 1, c.Persisted.Unknown)

	points, err := m.archive.Fetch(ctx, "web01", "requests", clock.Now(), clock.Now())
	require.NoError(t, err)
	require.Len(t, points, 1)
	assert.Equal(t, 150.0, *points[0].Value)
}

func TestModule_IngestRejects(t *testing.T) {
	m, _, _ := newTestModule(t, nil)

	tests := []struct {
		name    string
		topic   string
		payload string
	}{
		{"no resource level", "netcollect/samples/", `{"requests": 1}`},
		{"not json", "netcollect/samples/r1", `requests=1`},
		{"not an object", "netcollect/samples/r1", `[1, 2]`},
		{"only nested values", "netcollect/samples/r1", `{"a": {"b": 1}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := m.ingest(context.Background(), tt.topic, []byte(tt.payload))
			assert.ErrorIs(t, err, ErrBadMessage)
		})
	}

	_, err := m.ingest(context.Background(), "netcollect/samples/r1", []byte(`{"bogus": 1}`))
	assert.ErrorIs(t, err, ErrNoMatch)
}

func TestModule_OnMessage(t *testing.T) {
	m, _, _ := newTestModule(t, nil)
	handler := m.onMessage(context.Background())

	handler(nil, &fakeMessage{topic: "netcollect/samples/r9", payload: []byte(`{"requests": "10"}`)})
	handler(nil, &fakeMessage{topic: "netcollect/samples/r9", payload: []byte(`garbage`)})

	sources, err := m.archive.Sources(context.Background(), "r9")
	require.NoError(t, err)
	require.Len(t, sources, 1)
	assert.Equal(t, "requests", sources[0].Name)
}

func TestModule_MQTTConfig(t *testing.T) {
	m, _, _ := newTestModule(t, map[string]any{
		"mqtt.topic": "site1/+",
		"mqtt.qos":   0,
	})
	assert.Equal(t, "site1/+", m.mqttCfg.Topic)
	assert.Equal(t, byte(0), m.mqttCfg.QoS)
	assert.Empty(t, m.mqttCfg.Broker)
	assert.Nil(t, m.broker, "no broker configured, no client")
}
