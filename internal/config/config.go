// Package config provides YAML-based configuration loading for Dealscout.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level Dealscout configuration, loaded from dealscout.yaml.
type Config struct {
	DeviceID     string             `yaml:"device_id"`
	Tenant       string             `yaml:"tenant"`
	Storage      StorageConfig      `yaml:"storage"`
	Remote       RemoteConfig       `yaml:"remote"`
	Sync         SyncConfig         `yaml:"sync"`
	Connectivity ConnectivityConfig `yaml:"connectivity"`
	SkipTrace    SkipTraceConfig    `yaml:"skiptrace"`
	Notify       NotifyConfig       `yaml:"notify"`
	Dashboard    DashboardConfig    `yaml:"dashboard"`
}

// StorageConfig selects the durable local store. The default sqlite driver
// is the per-device store; mysql points several devices at a shared store.
type StorageConfig struct {
	Driver string      `yaml:"driver"` // sqlite or mysql
	Path   string      `yaml:"path"`   // sqlite file path
	MySQL  MySQLConfig `yaml:"mysql"`
}

// MySQLConfig holds connection settings for a shared MySQL-compatible store.
type MySQLConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
}

// RemoteConfig holds settings for the authoritative remote service.
type RemoteConfig struct {
	BaseURL    string `yaml:"base_url"`
	APIKey     string `yaml:"api_key"`
	TimeoutSec int    `yaml:"timeout_sec"`
}

// SyncConfig tunes the sync engine's retry/backoff policy and the
// safety-net drain schedule (5-field cron expression).
type SyncConfig struct {
	BackoffBaseMS int    `yaml:"backoff_base_ms"`
	BackoffCapMS  int    `yaml:"backoff_cap_ms"`
	MaxAttempts   int    `yaml:"max_attempts"`
	DrainSchedule string `yaml:"drain_schedule"`
}

// ConnectivityConfig tunes the online/offline probe.
type ConnectivityConfig struct {
	ProbeURL        string `yaml:"probe_url"`
	PollIntervalSec int    `yaml:"poll_interval_sec"`
	DwellSec        int    `yaml:"dwell_sec"`
}

// SkipTraceConfig tunes the skip-trace broker.
type SkipTraceConfig struct {
	QuoteTTLSec int `yaml:"quote_ttl_sec"`
}

// NotifyConfig configures operator notification adapters. Adapters with an
// empty token are disabled.
type NotifyConfig struct {
	Slack   SlackConfig   `yaml:"slack"`
	Discord DiscordConfig `yaml:"discord"`
}

// SlackConfig holds Slack adapter settings.
type SlackConfig struct {
	Token   string `yaml:"token"`
	Channel string `yaml:"channel"`
}

// DiscordConfig holds Discord adapter settings.
type DiscordConfig struct {
	Token     string `yaml:"token"`
	ChannelID string `yaml:"channel_id"`
}

// DashboardConfig configures the local status dashboard.
type DashboardConfig struct {
	Port int `yaml:"port"`
}

// Load reads a YAML config file from path and returns a validated Config.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse unmarshals YAML bytes into a validated Config.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyDefaults fills in derived and default values. The sync and skip-trace
// parameters deliberately live in config rather than as package constants,
// so operators can tune them without a rebuild.
func (c *Config) applyDefaults() {
	if c.Storage.Driver == "" {
		c.Storage.Driver = "sqlite"
	}
	if c.Storage.Path == "" {
		c.Storage.Path = "dealscout.db"
	}
	if c.Storage.MySQL.Host == "" {
		c.Storage.MySQL.Host = "127.0.0.1"
	}
	if c.Storage.MySQL.Port == 0 {
		c.Storage.MySQL.Port = 3306
	}
	if c.Storage.MySQL.Database == "" && c.Tenant != "" {
		c.Storage.MySQL.Database = "dealscout_" + c.Tenant
	}
	if c.Remote.TimeoutSec == 0 {
		c.Remote.TimeoutSec = 15
	}
	if c.Sync.BackoffBaseMS == 0 {
		c.Sync.BackoffBaseMS = 2000
	}
	if c.Sync.BackoffCapMS == 0 {
		c.Sync.BackoffCapMS = 300000
	}
	if c.Sync.MaxAttempts == 0 {
		c.Sync.MaxAttempts = 8
	}
	if c.Sync.DrainSchedule == "" {
		c.Sync.DrainSchedule = "*/5 * * * *"
	}
	if c.Connectivity.ProbeURL == "" {
		c.Connectivity.ProbeURL = c.Remote.BaseURL
	}
	if c.Connectivity.PollIntervalSec == 0 {
		c.Connectivity.PollIntervalSec = 5
	}
	if c.Connectivity.DwellSec == 0 {
		c.Connectivity.DwellSec = 2
	}
	if c.SkipTrace.QuoteTTLSec == 0 {
		c.SkipTrace.QuoteTTLSec = 300
	}
	if c.Dashboard.Port == 0 {
		c.Dashboard.Port = 8787
	}
}

// validate checks that all required fields are present and consistent.
func (c *Config) validate() error {
	var errs []string
	if c.DeviceID == "" {
		errs = append(errs, "device_id is required")
	}
	if c.Tenant == "" {
		errs = append(errs, "tenant is required")
	}
	if c.Remote.BaseURL == "" {
		errs = append(errs, "remote.base_url is required")
	}
	switch c.Storage.Driver {
	case "sqlite", "mysql":
	default:
		errs = append(errs, fmt.Sprintf("storage.driver %q is not supported (sqlite or mysql)", c.Storage.Driver))
	}
	if c.Sync.MaxAttempts < 1 {
		errs = append(errs, "sync.max_attempts must be at least 1")
	}
	if c.Sync.BackoffCapMS < c.Sync.BackoffBaseMS {
		errs = append(errs, "sync.backoff_cap_ms must be >= sync.backoff_base_ms")
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

// RemoteTimeout returns the remote call timeout as a duration.
func (c *Config) RemoteTimeout() time.Duration {
	return time.Duration(c.Remote.TimeoutSec) * time.Second
}

// BackoffBase returns the sync backoff base delay as a duration.
func (c *Config) BackoffBase() time.Duration {
	return time.Duration(c.Sync.BackoffBaseMS) * time.Millisecond
}

// BackoffCap returns the sync backoff cap as a duration.
func (c *Config) BackoffCap() time.Duration {
	return time.Duration(c.Sync.BackoffCapMS) * time.Millisecond
}

// QuoteTTL returns how long a skip-trace quote stays confirmable.
func (c *Config) QuoteTTL() time.Duration {
	return time.Duration(c.SkipTrace.QuoteTTLSec) * time.Second
}

// PollInterval returns the connectivity probe interval.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Connectivity.PollIntervalSec) * time.Second
}

// Dwell returns the connectivity debounce dwell window.
func (c *Config) Dwell() time.Duration {
	return time.Duration(c.Connectivity.DwellSec) * time.Second
}
