// Package main provides the FleetWatch server CLI.
package main

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the server configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Auth     AuthConfig     `yaml:"auth"`
	Alerting AlertingConfig `yaml:"alerting"`
	Hub      HubConfig      `yaml:"hub"`
	Verbose  bool           `yaml:"-"` // set via CLI flag
}

// ServerConfig contains listen addresses.
type ServerConfig struct {
	HTTPAddress    string `yaml:"http_address"`    // API listen address (default: :8080)
	MetricsAddress string `yaml:"metrics_address"` // Prometheus listen address (default: :9090)
}

// DatabaseConfig contains storage settings.
type DatabaseConfig struct {
	Path string `yaml:"path"` // SQLite database file (default: data/fleetwatch.db)
}

// AuthConfig contains token lifetimes and login rate limiting. The JWT
// secret comes from the environment, never from this file.
type AuthConfig struct {
	AccessTokenTTL  time.Duration `yaml:"access_token_ttl"`
	RefreshTokenTTL time.Duration `yaml:"refresh_token_ttl"`
	LoginRatePerMin int           `yaml:"login_rate_per_min"`
	LoginRateBurst  int           `yaml:"login_rate_burst"`
}

// AlertingConfig points at the rule threshold file.
type AlertingConfig struct {
	RulesFile string `yaml:"rules_file"` // optional; defaults apply without it
}

// HubConfig contains notification fan-out settings.
type HubConfig struct {
	SendTimeout time.Duration `yaml:"send_timeout"` // per-connection broadcast bound
}

// LoadConfig loads configuration from a YAML file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.setDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

// DefaultConfig returns a configuration with default values.
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.setDefaults()
	return cfg
}

// setDefaults sets default values for missing config fields.
func (c *Config) setDefaults() {
	if c.Server.HTTPAddress == "" {
		c.Server.HTTPAddress = ":8080"
	}
	if c.Server.MetricsAddress == "" {
		c.Server.MetricsAddress = ":9090"
	}
	if c.Database.Path == "" {
		c.Database.Path = "data/fleetwatch.db"
	}
	if c.Auth.AccessTokenTTL == 0 {
		c.Auth.AccessTokenTTL = 15 * time.Minute
	}
	if c.Auth.RefreshTokenTTL == 0 {
		c.Auth.RefreshTokenTTL = 7 * 24 * time.Hour
	}
	if c.Auth.LoginRatePerMin == 0 {
		c.Auth.LoginRatePerMin = 10
	}
	if c.Auth.LoginRateBurst == 0 {
		c.Auth.LoginRateBurst = 5
	}
	if c.Hub.SendTimeout == 0 {
		c.Hub.SendTimeout = 300 * time.Millisecond
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Server.HTTPAddress == "" {
		return fmt.Errorf("server.http_address is required")
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	if c.Auth.AccessTokenTTL < time.Minute {
		return fmt.Errorf("auth.access_token_ttl must be at least 1m")
	}
	if c.Auth.RefreshTokenTTL < c.Auth.AccessTokenTTL {
		return fmt.Errorf("auth.refresh_token_ttl must not be shorter than the access token TTL")
	}
	if c.Hub.SendTimeout <= 0 {
		return fmt.Errorf("hub.send_timeout must be positive")
	}
	return nil
}
