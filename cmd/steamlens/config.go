package main

import (
	"fmt"
	"os"

	"github.com/kbukum/steamlens/caller"
	"github.com/kbukum/steamlens/config"
	"github.com/kbukum/steamlens/httpclient"
	"github.com/kbukum/steamlens/observability"
	"github.com/kbukum/steamlens/server"
	"github.com/kbukum/steamlens/steam"
	"github.com/kbukum/steamlens/validation"
	"github.com/kbukum/steamlens/version"
)

const serviceName = "steamlens"

// AppConfig is the full configuration of the steamlens binary.
type AppConfig struct {
	config.ServiceConfig `yaml:",inline" mapstructure:",squash"`

	Steam   steam.Config               `yaml:"steam" mapstructure:"steam"`
	HTTP    httpclient.Config          `yaml:"http" mapstructure:"http"`
	Caller  caller.Config              `yaml:"caller" mapstructure:"caller"`
	Server  server.Config              `yaml:"server" mapstructure:"server"`
	Tracing observability.TracerConfig `yaml:"tracing" mapstructure:"tracing"`
	Metrics MetricsConfig              `yaml:"metrics" mapstructure:"metrics"`
}

// MetricsConfig configures the Prometheus export.
type MetricsConfig struct {
	Namespace string `yaml:"namespace" mapstructure:"namespace"`
}

// defaults registers every key that environment variables may override.
func defaults() map[string]interface{} {
	return map[string]interface{}{
		"name":                       serviceName,
		"environment":                "development",
		"logging.level":              "",
		"logging.format":             "console",
		"steam.api_key":              "",
		"steam.steam_id":             "",
		"http.base_url":              "https://api.steampowered.com",
		"http.timeout":               "10s",
		"caller.retry.max_retries":   2,
		"caller.token_wait.max_wait": "2s",
		"server.host":                "127.0.0.1",
		"server.port":                8080,
		"server.admin":               false,
		"tracing.enabled":            false,
		"tracing.endpoint":           "localhost:4318",
		"tracing.insecure":           true,
		"tracing.sample_rate":        1.0,
		"metrics.namespace":          serviceName,
	}
}

// ApplyDefaults fills every section.
func (c *AppConfig) ApplyDefaults() {
	c.ServiceConfig.ApplyDefaults()
	if c.Name == "" {
		c.Name = serviceName
	}
	if c.Version == "" {
		c.Version = version.Get().Short()
	}
	c.Steam.ApplyDefaults()
	c.HTTP.ApplyDefaults()
	if c.HTTP.UserAgent == "" {
		c.HTTP.UserAgent = version.UserAgent()
	}
	c.Caller.ApplyDefaults()
	c.Server.ApplyDefaults()
	if c.Tracing.ServiceName == "" {
		c.Tracing.ServiceName = c.Name
	}
	if c.Tracing.ServiceVersion == "" {
		c.Tracing.ServiceVersion = c.Version
	}
	if c.Tracing.Environment == "" {
		c.Tracing.Environment = c.Environment
	}
	if c.Metrics.Namespace == "" {
		c.Metrics.Namespace = serviceName
	}
}

// Validate checks struct tags and the hand-written section rules.
func (c *AppConfig) Validate() error {
	if err := c.ServiceConfig.Validate(); err != nil {
		return err
	}
	if err := c.HTTP.Validate(); err != nil {
		return err
	}
	if err := c.Server.Validate(); err != nil {
		return err
	}
	return validation.Validate(c)
}

// loadConfig reads config.yml, .env and the environment. An explicit path
// replaces the file lookup.
func loadConfig(path string) (*AppConfig, error) {
	opts := []config.LoaderOption{config.WithDefaults(defaults())}
	if path != "" {
		opts = append(opts, config.WithConfigFile(path))
	}

	var cfg AppConfig
	if err := config.LoadConfig(serviceName, &cfg, opts...); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if cfg.Steam.SteamID == "" {
		cfg.Steam.SteamID = os.Getenv("STEAM_ID")
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}
