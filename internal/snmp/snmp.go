// Package snmp fetches raw attribute values from an SNMP agent. It performs a
// single GET per call: scheduling and retries belong to the caller.
package snmp

import (
	"context"
	"fmt"
	"math/big"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gosnmp/gosnmp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Config holds agent connection settings. RateLimit caps GET requests per
// second across all agents; zero disables the limit.
type Config struct {
	Community string        `mapstructure:"community"`
	Version   string        `mapstructure:"version"`
	Port      uint16        `mapstructure:"port"`
	Timeout   time.Duration `mapstructure:"timeout"`
	RateLimit float64       `mapstructure:"rate_limit"`
	Burst     int           `mapstructure:"burst"`
}

// DefaultConfig returns SNMPv2c settings for the "public" community.
func DefaultConfig() Config {
	return Config{
		Community: "public",
		Version:   "2c",
		Port:      161,
		Timeout:   2 * time.Second,
		Burst:     1,
	}
}

// client is the subset of *gosnmp.GoSNMP used by Source.
type client interface {
	Connect() error
	Get(oids []string) (*gosnmp.SnmpPacket, error)
	Close() error
	MaxOIDs() int
}

type gosnmpClient struct {
	*gosnmp.GoSNMP
}

func (c gosnmpClient) Close() error {
	if c.Conn == nil {
		return nil
	}
	return c.Conn.Close()
}

func (c gosnmpClient) MaxOIDs() int {
	if c.MaxOids <= 0 {
		return gosnmp.MaxOids
	}
	return c.MaxOids
}

// Source reads attribute values from SNMP agents.
type Source struct {
	cfg     Config
	logger  *zap.Logger
	limiter *rate.Limiter
	dial    func(ctx context.Context, target string) (client, error)
}

// NewSource creates a Source.
func NewSource(cfg Config, logger *zap.Logger) (*Source, error) {
	version, err := parseVersion(cfg.Version)
	if err != nil {
		return nil, err
	}
	s := &Source{cfg: cfg, logger: logger, limiter: rate.NewLimiter(rate.Inf, 0)}
	if cfg.RateLimit > 0 {
		s.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), max(cfg.Burst, 1))
	}
	s.dial = func(ctx context.Context, target string) (client, error) {
		g := &gosnmp.GoSNMP{
			Target:    target,
			Port:      cfg.Port,
			Community: cfg.Community,
			Version:   version,
			Timeout:   cfg.Timeout,
			Retries:   0,
			Context:   ctx,
			MaxOids:   gosnmp.MaxOids,
		}
		return gosnmpClient{g}, nil
	}
	return s, nil
}

// Get fetches the given attribute OIDs (attribute name -> OID) from target and
// returns the raw text of each value present on the agent. Attributes the
// agent does not expose are omitted.
func (s *Source) Get(ctx context.Context, target string, oids map[string]string) (map[string]string, error) {
	if len(oids) == 0 {
		return map[string]string{}, nil
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("snmp: rate limit: %w", err)
	}

	c, err := s.dial(ctx, target)
	if err != nil {
		return nil, fmt.Errorf("snmp: dial %s: %w", target, err)
	}
	if err := c.Connect(); err != nil {
		return nil, fmt.Errorf("snmp: connect %s: %w", target, err)
	}
	defer c.Close()

	byOID := make(map[string]string, len(oids))
	list := make([]string, 0, len(oids))
	for name, oid := range oids {
		oid = canonicalOID(oid)
		byOID[oid] = name
		list = append(list, oid)
	}
	sort.Strings(list)

	values := make(map[string]string, len(oids))
	for start := 0; start < len(list); start += c.MaxOIDs() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		end := min(start+c.MaxOIDs(), len(list))
		pkt, err := c.Get(list[start:end])
		if err != nil {
			return nil, fmt.Errorf("snmp: get %s: %w", target, err)
		}
		for _, pdu := range pkt.Variables {
			name, ok := byOID[canonicalOID(pdu.Name)]
			if !ok {
				continue
			}
			raw, present := FormatPDU(pdu)
			if !present {
				s.logger.Debug("oid not available on agent",
					zap.String("target", target),
					zap.String("attribute", name),
					zap.String("oid", pdu.Name),
				)
				continue
			}
			values[name] = raw
		}
	}
	return values, nil
}

// FormatPDU renders a varbind as the raw text handed to the normalizer.
// present is false for NoSuchObject, NoSuchInstance, EndOfMibView and Null.
func FormatPDU(pdu gosnmp.SnmpPDU) (raw string, present bool) {
	switch pdu.Type {
	case gosnmp.NoSuchObject, gosnmp.NoSuchInstance, gosnmp.EndOfMibView, gosnmp.Null:
		return "", false
	case gosnmp.Integer, gosnmp.Counter32, gosnmp.Gauge32, gosnmp.TimeTicks,
		gosnmp.Counter64, gosnmp.Uinteger32:
		return bigString(gosnmp.ToBigInt(pdu.Value)), true
	case gosnmp.OpaqueFloat:
		if f, ok := pdu.Value.(float32); ok {
			return strconv.FormatFloat(float64(f), 'g', -1, 32), true
		}
	case gosnmp.OpaqueDouble:
		if f, ok := pdu.Value.(float64); ok {
			return strconv.FormatFloat(f, 'g', -1, 64), true
		}
	case gosnmp.OctetString:
		if b, ok := pdu.Value.([]byte); ok {
			return strings.TrimRight(string(b), "\x00"), true
		}
	}
	return fmt.Sprint(pdu.Value), true
}

func bigString(b *big.Int) string {
	if b == nil {
		return ""
	}
	return b.String()
}

func canonicalOID(oid string) string {
	if strings.HasPrefix(oid, ".") {
		return oid
	}
	return "." + oid
}

func parseVersion(v string) (gosnmp.SnmpVersion, error) {
	switch strings.TrimPrefix(strings.ToLower(v), "v") {
	case "1":
		return gosnmp.Version1, nil
	case "2c", "2", "":
		return gosnmp.Version2c, nil
	default:
		return 0, fmt.Errorf("snmp: unsupported version %q (v3 requires security parameters)", v)
	}
}
