// Package config loads the replica-set configuration and the ambient
// operational tunables (heartbeat interval, pump interval, rate limits,
// data directory, log level, metrics listen address) through viper, with
// GOCHAT_-prefixed environment variable overrides.
package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// Peer describes one member of the replica set as listed in the config
// file's "servers" array.
type Peer struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	ID   int    `mapstructure:"id"`
}

// Tunables are operational knobs the wire protocol leaves to the
// implementer. Defaults reproduce spec.md's named values exactly.
type Tunables struct {
	HeartbeatIntervalMS int    `mapstructure:"heartbeat_interval_ms"`
	PumpIntervalMS       int    `mapstructure:"pump_interval_ms"`
	RateLimitRPS         int    `mapstructure:"rate_limit_rps"`
	RateLimitBurst       int    `mapstructure:"rate_limit_burst"`
	DataDir              string `mapstructure:"data_dir"`
	LogLevel             string `mapstructure:"log_level"`
	MetricsAddr          string `mapstructure:"metrics_addr"`
	DialRetryMS          int    `mapstructure:"dial_retry_ms"`
}

// Config is the fully resolved configuration for one server or client
// process.
type Config struct {
	Servers  []Peer `mapstructure:"servers"`
	Tunables `mapstructure:",squash"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("heartbeat_interval_ms", 500)
	v.SetDefault("pump_interval_ms", 10)
	v.SetDefault("rate_limit_rps", 50)
	v.SetDefault("rate_limit_burst", 100)
	v.SetDefault("data_dir", "./data")
	v.SetDefault("log_level", "info")
	v.SetDefault("metrics_addr", ":9090")
	v.SetDefault("dial_retry_ms", 250)
}

// Load reads the JSON config file at path, applying GOCHAT_-prefixed
// environment overrides on top of it.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("json")
	v.SetEnvPrefix("GOCHAT")
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: decode %s: %w", path, err)
	}
	if len(cfg.Servers) == 0 {
		return nil, fmt.Errorf("config: %s declares no servers", path)
	}
	return &cfg, nil
}

// PeerByID returns the configured peer with the given id.
func (c *Config) PeerByID(id int) (Peer, bool) {
	for _, p := range c.Servers {
		if p.ID == id {
			return p, true
		}
	}
	return Peer{}, false
}

// OtherPeers returns every configured peer except the one with selfID.
func (c *Config) OtherPeers(selfID int) []Peer {
	var out []Peer
	for _, p := range c.Servers {
		if p.ID != selfID {
			out = append(out, p)
		}
	}
	return out
}

// IDs returns every configured server id.
func (c *Config) IDs() []int {
	ids := make([]int, len(c.Servers))
	for i, p := range c.Servers {
		ids[i] = p.ID
	}
	return ids
}
