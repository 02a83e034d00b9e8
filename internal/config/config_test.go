package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const fullYAML = `
device_id: truck-7
tenant: acme

storage:
  driver: mysql
  mysql:
    host: 10.0.0.5
    port: 3307
    user: crew
    password: s3cret
    database: dealscout_acme

remote:
  base_url: https://api.dealscout.example
  api_key: key-123
  timeout_sec: 30

sync:
  backoff_base_ms: 1000
  backoff_cap_ms: 60000
  max_attempts: 5
  drain_schedule: "*/2 * * * *"

connectivity:
  probe_url: https://api.dealscout.example/healthz
  poll_interval_sec: 3
  dwell_sec: 1

skiptrace:
  quote_ttl_sec: 120

notify:
  slack:
    token: xoxb-test
    channel: C123

dashboard:
  port: 9000
`

const minimalYAML = `
device_id: phone-1
tenant: acme
remote:
  base_url: https://api.dealscout.example
`

func TestParse_FullConfig(t *testing.T) {
	cfg, err := Parse([]byte(fullYAML))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.DeviceID != "truck-7" {
		t.Errorf("DeviceID = %q, want %q", cfg.DeviceID, "truck-7")
	}
	if cfg.Storage.Driver != "mysql" {
		t.Errorf("Storage.Driver = %q, want mysql", cfg.Storage.Driver)
	}
	if cfg.Storage.MySQL.Host != "10.0.0.5" {
		t.Errorf("MySQL.Host = %q, want 10.0.0.5", cfg.Storage.MySQL.Host)
	}
	if cfg.Remote.TimeoutSec != 30 {
		t.Errorf("Remote.TimeoutSec = %d, want 30", cfg.Remote.TimeoutSec)
	}
	if cfg.Sync.MaxAttempts != 5 {
		t.Errorf("Sync.MaxAttempts = %d, want 5", cfg.Sync.MaxAttempts)
	}
	if cfg.Sync.DrainSchedule != "*/2 * * * *" {
		t.Errorf("Sync.DrainSchedule = %q", cfg.Sync.DrainSchedule)
	}
	if cfg.Connectivity.DwellSec != 1 {
		t.Errorf("Connectivity.DwellSec = %d, want 1", cfg.Connectivity.DwellSec)
	}
	if cfg.Notify.Slack.Token != "xoxb-test" {
		t.Errorf("Notify.Slack.Token = %q", cfg.Notify.Slack.Token)
	}
	if cfg.Dashboard.Port != 9000 {
		t.Errorf("Dashboard.Port = %d, want 9000", cfg.Dashboard.Port)
	}
}

func TestParse_MinimalDefaults(t *testing.T) {
	cfg, err := Parse([]byte(minimalYAML))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Storage.Driver != "sqlite" {
		t.Errorf("Storage.Driver = %q, want sqlite", cfg.Storage.Driver)
	}
	if cfg.Storage.Path != "dealscout.db" {
		t.Errorf("Storage.Path = %q, want dealscout.db", cfg.Storage.Path)
	}
	if cfg.Storage.MySQL.Database != "dealscout_acme" {
		t.Errorf("MySQL.Database = %q, want dealscout_acme", cfg.Storage.MySQL.Database)
	}
	if cfg.Sync.BackoffBaseMS != 2000 {
		t.Errorf("Sync.BackoffBaseMS = %d, want 2000", cfg.Sync.BackoffBaseMS)
	}
	if cfg.Sync.BackoffCapMS != 300000 {
		t.Errorf("Sync.BackoffCapMS = %d, want 300000", cfg.Sync.BackoffCapMS)
	}
	if cfg.Sync.MaxAttempts != 8 {
		t.Errorf("Sync.MaxAttempts = %d, want 8", cfg.Sync.MaxAttempts)
	}
	if cfg.Sync.DrainSchedule != "*/5 * * * *" {
		t.Errorf("Sync.DrainSchedule = %q", cfg.Sync.DrainSchedule)
	}
	if cfg.Connectivity.ProbeURL != "https://api.dealscout.example" {
		t.Errorf("Connectivity.ProbeURL = %q, want remote base URL", cfg.Connectivity.ProbeURL)
	}
	if cfg.SkipTrace.QuoteTTLSec != 300 {
		t.Errorf("SkipTrace.QuoteTTLSec = %d, want 300", cfg.SkipTrace.QuoteTTLSec)
	}
	if cfg.Dashboard.Port != 8787 {
		t.Errorf("Dashboard.Port = %d, want 8787", cfg.Dashboard.Port)
	}
}

func TestParse_MissingRequired(t *testing.T) {
	_, err := Parse([]byte("storage:\n  driver: sqlite\n"))
	if err == nil {
		t.Fatal("expected validation error")
	}
	msg := err.Error()
	for _, want := range []string{"device_id is required", "tenant is required", "remote.base_url is required"} {
		if !strings.Contains(msg, want) {
			t.Errorf("error %q missing %q", msg, want)
		}
	}
}

func TestParse_BadDriver(t *testing.T) {
	yaml := minimalYAML + "storage:\n  driver: leveldb\n"
	_, err := Parse([]byte(yaml))
	if err == nil {
		t.Fatal("expected validation error for unsupported driver")
	}
	if !strings.Contains(err.Error(), "leveldb") {
		t.Errorf("error %q should name the bad driver", err.Error())
	}
}

func TestParse_BackoffCapBelowBase(t *testing.T) {
	yaml := minimalYAML + "sync:\n  backoff_base_ms: 5000\n  backoff_cap_ms: 1000\n"
	_, err := Parse([]byte(yaml))
	if err == nil {
		t.Fatal("expected validation error for cap below base")
	}
}

func TestParse_InvalidYAML(t *testing.T) {
	_, err := Parse([]byte("device_id: [unclosed"))
	if err == nil {
		t.Fatal("expected parse error")
	}
}

func TestLoad_FileNotFound(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoad_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dealscout.yaml")
	if err := os.WriteFile(path, []byte(minimalYAML), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.DeviceID != "phone-1" {
		t.Errorf("DeviceID = %q, want phone-1", cfg.DeviceID)
	}
}

func TestDurationHelpers(t *testing.T) {
	cfg, err := Parse([]byte(minimalYAML))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.BackoffBase() != 2*time.Second {
		t.Errorf("BackoffBase() = %v, want 2s", cfg.BackoffBase())
	}
	if cfg.BackoffCap() != 5*time.Minute {
		t.Errorf("BackoffCap() = %v, want 5m", cfg.BackoffCap())
	}
	if cfg.QuoteTTL() != 5*time.Minute {
		t.Errorf("QuoteTTL() = %v, want 5m", cfg.QuoteTTL())
	}
	if cfg.Dwell() != 2*time.Second {
		t.Errorf("Dwell() = %v, want 2s", cfg.Dwell())
	}
}
