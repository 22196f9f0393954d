// Package collect is the collection plugin. It resolves raw attribute values
// against the attribute type catalog, normalizes them and hands the samples
// to the round-robin archive.
package collect

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/HerbHall/netcollect/internal/config"
	"github.com/HerbHall/netcollect/internal/event"
	"github.com/HerbHall/netcollect/internal/metrics"
	"github.com/HerbHall/netcollect/internal/plugin"
	"github.com/HerbHall/netcollect/internal/rrd"
	"github.com/HerbHall/netcollect/internal/snmp"
	"github.com/HerbHall/netcollect/internal/store"
	"github.com/HerbHall/netcollect/internal/typeconf"
	"github.com/HerbHall/netcollect/pkg/collection"
)

// ErrNoMatch is returned when none of the submitted values name a known
// attribute type.
var ErrNoMatch = errors.New("no values match a known attribute type")

// TopicCycle is published on the event bus after every persisted cycle. The
// payload is a *Cycle.
const TopicCycle = "collect.cycle"

// Compile-time interface guards.
var (
	_ plugin.Plugin        = (*Module)(nil)
	_ plugin.HealthChecker = (*Module)(nil)
	_ plugin.Reloadable    = (*Module)(nil)
)

// agentSource fetches raw values from a remote agent.
type agentSource interface {
	Get(ctx context.Context, target string, oids map[string]string) (map[string]string, error)
}

// Module implements the collect plugin.
type Module struct {
	reg     prometheus.Registerer
	bus     *event.Bus
	logger  *zap.Logger
	types   *typeconf.Registry
	store   *store.SQLiteStore
	archive *rrd.Archive
	metrics *metrics.Metrics
	agents  agentSource
	params  collection.ServiceParameters
	source  string
	workers int
	now     func() time.Time

	mqttCfg mqttConfig
	broker  mqtt.Client
}

// New creates a collect plugin whose collectors are registered with reg.
// Persisted cycles are published on bus; a nil bus gets a private one.
func New(reg prometheus.Registerer, bus *event.Bus) *Module {
	return &Module{reg: reg, bus: bus, now: time.Now}
}

func (m *Module) Name() string    { return "collect" }
func (m *Module) Version() string { return "0.1.0" }

// Init loads the attribute types, prepares the SNMP source and opens the
// archive. Configuration is validated before the archive is opened or any
// collector is registered, so a failed Init leaves nothing behind.
func (m *Module) Init(cfg config.Config, logger *zap.Logger) error {
	m.logger = logger
	if m.bus == nil {
		m.bus = event.NewBus(logger)
	}

	types, err := typeconf.NewRegistry(cfg.GetString("types_file"), logger)
	if err != nil {
		return fmt.Errorf("collect: load attribute types: %w", err)
	}

	snmpCfg := snmp.DefaultConfig()
	if err := cfg.Sub("snmp").Unmarshal(&snmpCfg); err != nil {
		return fmt.Errorf("collect: snmp config: %w", err)
	}
	agents, err := snmp.NewSource(snmpCfg, logger.Named("snmp"))
	if err != nil {
		return fmt.Errorf("collect: %w", err)
	}

	mqttCfg := defaultMQTTConfig()
	if err := cfg.Sub("mqtt").Unmarshal(&mqttCfg); err != nil {
		return fmt.Errorf("collect: mqtt config: %w", err)
	}

	path := cfg.GetString("store.path")
	if path == "" {
		path = "netcollect.db"
	}
	archiveCfg := rrd.DefaultConfig()
	if d := cfg.GetDuration("store.step"); d > 0 {
		archiveCfg.Step = d
	}
	if n := cfg.GetInt("store.rows"); n > 0 {
		archiveCfg.Rows = n
	}

	db, err := store.New(path)
	if err != nil {
		return fmt.Errorf("collect: open store: %w", err)
	}
	archive, err := rrd.New(context.Background(), db, archiveCfg, logger.Named("rrd"))
	if err != nil {
		db.Close()
		return fmt.Errorf("collect: %w", err)
	}
	met, err := metrics.New(m.reg)
	if err != nil {
		db.Close()
		return fmt.Errorf("collect: register metrics: %w", err)
	}

	m.types = types
	m.agents = agents
	m.mqttCfg = mqttCfg
	m.store = db
	m.archive = archive
	m.metrics = met
	m.params = collection.ServiceParameters(cfg.GetStringMapString("params"))
	m.source = cfg.GetString("source")
	if m.source == "" {
		m.source = collection.DefaultSource
	}
	m.workers = cfg.GetInt("workers")

	m.logger.Info("collect module initialized",
		zap.Int("types", types.Current().Len()),
		zap.String("store", path),
		zap.Duration("step", archiveCfg.Step),
		zap.Int("rows", archiveCfg.Rows),
	)
	return nil
}

// Start connects to the MQTT broker when one is configured.
func (m *Module) Start(ctx context.Context) error {
	if m.mqttCfg.Broker != "" {
		if err := m.startMQTT(ctx); err != nil {
			return fmt.Errorf("collect: %w", err)
		}
	}
	m.logger.Info("collect module started")
	return nil
}

func (m *Module) Stop() error {
	m.logger.Info("collect module stopped")
	if m.broker != nil {
		m.broker.Disconnect(250)
	}
	if m.store != nil {
		return m.store.Close()
	}
	return nil
}

// Reload re-reads the attribute type definitions. Cycles already in flight
// keep the catalog they started with.
func (m *Module) Reload(_ context.Context) error {
	return m.types.Reload()
}

// Health reports the catalog size and whether the archive database responds.
func (m *Module) Health(ctx context.Context) plugin.HealthStatus {
	details := map[string]string{
		"types": fmt.Sprint(m.types.Current().Len()),
	}
	if err := m.store.DB().PingContext(ctx); err != nil {
		return plugin.HealthStatus{
			Status:  plugin.StatusUnhealthy,
			Message: "archive database unreachable: " + err.Error(),
			Details: details,
		}
	}
	if m.broker != nil && !m.broker.IsConnectionOpen() {
		return plugin.HealthStatus{
			Status:  plugin.StatusDegraded,
			Message: "mqtt broker connection lost",
			Details: details,
		}
	}
	if m.types.Current().Len() == 0 {
		return plugin.HealthStatus{
			Status:  plugin.StatusDegraded,
			Message: "no attribute types defined",
			Details: details,
		}
	}
	return plugin.HealthStatus{Status: plugin.StatusHealthy, Details: details}
}

// Cycle is the outcome of one collection cycle for one resource.
type Cycle struct {
	ID        string
	Resource  collection.Resource
	At        time.Time
	Samples   []collection.Sample
	Unmatched []string
	Persisted *rrd.Result
}

// Normalize resolves values (attribute name -> raw text) against the current
// catalog and normalizes them without storing anything.
func (m *Module) Normalize(ctx context.Context, resource collection.Resource, values map[string]string) (*Cycle, error) {
	cat := m.types.Current()
	set := collection.NewResourceSet(resource)

	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)

	c := &Cycle{
		ID:       uuid.New().String(),
		Resource: resource,
		At:       m.now(),
	}
	for _, name := range names {
		t, ok := cat.Lookup(name)
		if !ok {
			c.Unmatched = append(c.Unmatched, name)
			continue
		}
		if _, err := set.Add(t, values[name],
			collection.WithLogger(m.logger),
			collection.WithObserver(m.metrics.ObserveNormalize),
			collection.WithSource(m.source),
		); err != nil {
			return nil, err
		}
	}
	if len(c.Unmatched) > 0 {
		m.logger.Debug("values without attribute type",
			zap.String("resource", resource.String()),
			zap.Strings("names", c.Unmatched),
		)
	}
	if set.Len() == 0 {
		return nil, ErrNoMatch
	}

	samples, err := set.Normalize(ctx, m.params, m.workers)
	if err != nil {
		return nil, err
	}
	c.Samples = samples
	return c, nil
}

// Collect normalizes values and persists the resulting samples in the
// archive slot covering the cycle time.
func (m *Module) Collect(ctx context.Context, resource collection.Resource, values map[string]string) (*Cycle, error) {
	c, err := m.Normalize(ctx, resource, values)
	if err != nil {
		return nil, err
	}
	res, err := m.archive.Persist(ctx, c.Samples, c.At)
	if err != nil {
		return nil, err
	}
	m.metrics.ObservePersist(res)
	c.Persisted = &res
	_ = m.bus.Publish(ctx, event.Event{
		Topic:     TopicCycle,
		Source:    m.Name(),
		Timestamp: c.At,
		Payload:   c,
	})

	m.logger.Debug("cycle persisted",
		zap.String("cycle", c.ID),
		zap.String("resource", resource.String()),
		zap.Int("written", res.Written),
		zap.Int("unknown", res.Unknown),
		zap.Int("skipped", res.Skipped),
		zap.Int("rejected", res.Rejected),
	)
	return c, nil
}

// CollectSNMP queries target for every catalog type with an OID and collects
// the values it returns.
func (m *Module) CollectSNMP(ctx context.Context, resource collection.Resource, target string) (*Cycle, error) {
	oids := m.types.Current().OIDs()
	if len(oids) == 0 {
		return nil, ErrNoMatch
	}
	values, err := m.agents.Get(ctx, target, oids)
	if err != nil {
		return nil, &agentError{target: target, err: err}
	}
	return m.Collect(ctx, resource, values)
}

// agentError marks failures talking to a remote agent.
type agentError struct {
	target string
	err    error
}

func (e *agentError) Error() string { return fmt.Sprintf("agent %s: %v", e.target, e.err) }
func (e *agentError) Unwrap() error { return e.err }
