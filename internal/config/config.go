// Package config wraps Viper behind a small read-only interface so plugins do
// not depend on Viper directly.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is the prefix for environment variable overrides, e.g.
// NETCOLLECT_SERVER_PORT overrides server.port.
const EnvPrefix = "NETCOLLECT"

// Config provides read access to a configuration subtree.
type Config interface {
	GetString(key string) string
	GetInt(key string) int
	GetBool(key string) bool
	GetDuration(key string) time.Duration
	GetStringMapString(key string) map[string]string
	IsSet(key string) bool
	Sub(key string) Config
	Unmarshal(target any) error
}

type viperConfig struct {
	v *viper.Viper
}

// New wraps v. A nil Viper behaves as an empty configuration.
func New(v *viper.Viper) Config {
	if v == nil {
		v = viper.New()
	}
	return &viperConfig{v: v}
}

// Load reads the YAML file at path (optional) with defaults applied and
// environment overrides enabled.
func Load(path string) (Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %q: %w", path, err)
		}
	}
	return New(v), nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", "8080")
	v.SetDefault("plugins.collect.enabled", true)
	v.SetDefault("plugins.collect.source", "xml")
	v.SetDefault("plugins.collect.workers", 8)
	v.SetDefault("plugins.collect.store.path", "netcollect.db")
	v.SetDefault("plugins.collect.store.step", "5m")
	v.SetDefault("plugins.collect.store.rows", 2016)
	v.SetDefault("plugins.collect.snmp.community", "public")
	v.SetDefault("plugins.collect.snmp.version", "2c")
	v.SetDefault("plugins.collect.snmp.port", 161)
	v.SetDefault("plugins.collect.snmp.timeout", "2s")
	v.SetDefault("plugins.collect.snmp.rate_limit", 0)
	v.SetDefault("plugins.collect.snmp.burst", 1)
	v.SetDefault("plugins.collect.mqtt.topic", "netcollect/samples/+")
	v.SetDefault("plugins.collect.mqtt.qos", 1)
	v.SetDefault("plugins.collect.mqtt.timeout", "10s")
}

func (c *viperConfig) GetString(key string) string          { return c.v.GetString(key) }
func (c *viperConfig) GetInt(key string) int                { return c.v.GetInt(key) }
func (c *viperConfig) GetBool(key string) bool              { return c.v.GetBool(key) }
func (c *viperConfig) GetDuration(key string) time.Duration { return c.v.GetDuration(key) }
func (c *viperConfig) IsSet(key string) bool                { return c.v.IsSet(key) }
func (c *viperConfig) Unmarshal(target any) error           { return c.v.Unmarshal(target) }

func (c *viperConfig) GetStringMapString(key string) map[string]string {
	return c.v.GetStringMapString(key)
}

// Sub returns the subtree at key. A missing key yields an empty Config, never nil.
func (c *viperConfig) Sub(key string) Config {
	return New(c.v.Sub(key))
}
