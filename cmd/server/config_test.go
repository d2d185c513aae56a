package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// TestDefaultConfig tests that the default configuration is valid.
func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config failed validation: %v", err)
	}
	if cfg.Server.HTTPAddress != ":8080" {
		t.Errorf("http_address = %s, want :8080", cfg.Server.HTTPAddress)
	}
	if cfg.Server.MetricsAddress != ":9090" {
		t.Errorf("metrics_address = %s, want :9090", cfg.Server.MetricsAddress)
	}
	if cfg.Auth.AccessTokenTTL != 15*time.Minute {
		t.Errorf("access_token_ttl = %s, want 15m", cfg.Auth.AccessTokenTTL)
	}
	if cfg.Auth.RefreshTokenTTL != 7*24*time.Hour {
		t.Errorf("refresh_token_ttl = %s, want 168h", cfg.Auth.RefreshTokenTTL)
	}
	if cfg.Hub.SendTimeout != 300*time.Millisecond {
		t.Errorf("send_timeout = %s, want 300ms", cfg.Hub.SendTimeout)
	}
}

// TestLoadConfig tests loading configuration from YAML files.
func TestLoadConfig(t *testing.T) {
	writeConfig := func(t *testing.T, content string) string {
		t.Helper()
		path := filepath.Join(t.TempDir(), "config.yaml")
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatalf("write config: %v", err)
		}
		return path
	}

	t.Run("full config", func(t *testing.T) {
		path := writeConfig(t, `
server:
  http_address: ":9000"
  metrics_address: ":9100"
database:
  path: /var/lib/fleetwatch/fleet.db
auth:
  access_token_ttl: 30m
  refresh_token_ttl: 720h
  login_rate_per_min: 20
  login_rate_burst: 10
alerting:
  rules_file: /etc/fleetwatch/rules.yaml
hub:
  send_timeout: 500ms
`)
		cfg, err := LoadConfig(path)
		if err != nil {
			t.Fatalf("LoadConfig failed: %v", err)
		}
		if cfg.Server.HTTPAddress != ":9000" {
			t.Errorf("http_address = %s, want :9000", cfg.Server.HTTPAddress)
		}
		if cfg.Database.Path != "/var/lib/fleetwatch/fleet.db" {
			t.Errorf("database path = %s", cfg.Database.Path)
		}
		if cfg.Auth.AccessTokenTTL != 30*time.Minute {
			t.Errorf("access_token_ttl = %s, want 30m", cfg.Auth.AccessTokenTTL)
		}
		if cfg.Auth.LoginRatePerMin != 20 {
			t.Errorf("login_rate_per_min = %d, want 20", cfg.Auth.LoginRatePerMin)
		}
		if cfg.Alerting.RulesFile != "/etc/fleetwatch/rules.yaml" {
			t.Errorf("rules_file = %s", cfg.Alerting.RulesFile)
		}
		if cfg.Hub.SendTimeout != 500*time.Millisecond {
			t.Errorf("send_timeout = %s, want 500ms", cfg.Hub.SendTimeout)
		}
	})

	t.Run("partial config gets defaults", func(t *testing.T) {
		path := writeConfig(t, `
database:
  path: test.db
`)
		cfg, err := LoadConfig(path)
		if err != nil {
			t.Fatalf("LoadConfig failed: %v", err)
		}
		if cfg.Server.HTTPAddress != ":8080" {
			t.Errorf("http_address = %s, want default :8080", cfg.Server.HTTPAddress)
		}
		if cfg.Auth.AccessTokenTTL != 15*time.Minute {
			t.Errorf("access_token_ttl = %s, want default 15m", cfg.Auth.AccessTokenTTL)
		}
	})

	t.Run("missing file", func(t *testing.T) {
		if _, err := LoadConfig("/nonexistent/config.yaml"); err == nil {
			t.Error("expected error for missing file")
		}
	})

	t.Run("invalid yaml", func(t *testing.T) {
		path := writeConfig(t, "server: [broken")
		if _, err := LoadConfig(path); err == nil {
			t.Error("expected error for invalid YAML")
		}
	})

	t.Run("access ttl too short", func(t *testing.T) {
		path := writeConfig(t, `
auth:
  access_token_ttl: 10s
`)
		if _, err := LoadConfig(path); err == nil {
			t.Error("expected error for sub-minute access token TTL")
		}
	})

	t.Run("refresh ttl shorter than access ttl", func(t *testing.T) {
		path := writeConfig(t, `
auth:
  access_token_ttl: 1h
  refresh_token_ttl: 30m
`)
		if _, err := LoadConfig(path); err == nil {
			t.Error("expected error for refresh TTL shorter than access TTL")
		}
	})
}
