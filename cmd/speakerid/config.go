package main

import (
	"fmt"
	"os"
	"time"

	"github.com/kbukum/speakerid/config"
	"github.com/kbukum/speakerid/embedding"
	"github.com/kbukum/speakerid/enrollment"
	apperrors "github.com/kbukum/speakerid/errors"
	"github.com/kbukum/speakerid/matching"
	"github.com/kbukum/speakerid/media"
	"github.com/kbukum/speakerid/observability"
	"github.com/kbukum/speakerid/server"
	"github.com/kbukum/speakerid/unknown"
	"github.com/kbukum/speakerid/version"
)

const serviceName = "speakerid"

// OutputConfig controls where transcripts go and how speakers are named.
type OutputConfig struct {
	// Dir receives the transcript files. Empty means next to the recording.
	Dir           string `yaml:"dir" mapstructure:"dir"`
	UnknownPrefix string `yaml:"unknown_prefix" mapstructure:"unknown_prefix"`
	RosterCSV     string `yaml:"roster_csv" mapstructure:"roster_csv"`
	ProfilesJSON  string `yaml:"profiles_json" mapstructure:"profiles_json"`
}

// AttributionConfig bounds a single run.
type AttributionConfig struct {
	// Timeout cancels a run that takes longer. Zero disables it.
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// Config is the speakerid application config.
type Config struct {
	config.ServiceConfig `yaml:",inline" mapstructure:",squash"`

	Enrollment    enrollment.Config    `yaml:"enrollment" mapstructure:"enrollment"`
	Matching      matching.Config      `yaml:"matching" mapstructure:"matching"`
	Embedding     embedding.Config     `yaml:"embedding" mapstructure:"embedding"`
	Media         media.Config         `yaml:"media" mapstructure:"media"`
	Output        OutputConfig         `yaml:"output" mapstructure:"output"`
	Attribution   AttributionConfig    `yaml:"attribution" mapstructure:"attribution"`
	Server        server.Config        `yaml:"server" mapstructure:"server"`
	Observability observability.Config `yaml:"observability" mapstructure:"observability"`
}

// ApplyDefaults fills every section.
func (c *Config) ApplyDefaults() {
	if c.Name == "" {
		c.Name = serviceName
	}
	if c.Version == "" {
		c.Version = version.Get().Short()
	}
	c.ServiceConfig.ApplyDefaults()
	c.Enrollment.ApplyDefaults()
	c.Matching.ApplyDefaults()
	c.Embedding.ApplyDefaults()
	c.Media.ApplyDefaults()
	c.Server.ApplyDefaults()
	c.Observability.ApplyDefaults()
	if c.Output.UnknownPrefix == "" {
		c.Output.UnknownPrefix = unknown.DefaultPrefix
	}
}

// Validate checks every section.
func (c *Config) Validate() error {
	if err := c.ServiceConfig.Validate(); err != nil {
		return err
	}
	sections := []struct {
		name     string
		validate func() error
	}{
		{"enrollment", c.Enrollment.Validate},
		{"matching", c.Matching.Validate},
		{"embedding", c.Embedding.Validate},
		{"media", c.Media.Validate},
		{"server", c.Server.Validate},
		{"observability", c.Observability.Validate},
	}
	for _, s := range sections {
		if err := s.validate(); err != nil {
			return fmt.Errorf("%s: %w", s.name, err)
		}
	}
	if c.Attribution.Timeout < 0 {
		return fmt.Errorf("attribution.timeout must be non-negative (got: %s)", c.Attribution.Timeout)
	}
	return nil
}

// defaultConfig seeds the sections whose zero values are meaningful, so
// that a loaded 0 is kept rather than mistaken for "unset". Everything
// else is filled by ApplyDefaults after loading.
func defaultConfig() *Config {
	return &Config{Matching: matching.DefaultConfig()}
}

// loadConfig reads config.yml, .env and the environment over the
// defaults. path overrides the config file search when set.
func loadConfig(path string) (*Config, error) {
	cfg := defaultConfig()
	var opts []config.LoaderOption
	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return nil, apperrors.NotFound("config file", path)
		}
		opts = append(opts, config.WithConfigFile(path))
	}
	if err := config.LoadConfig(serviceName, cfg, opts...); err != nil {
		return nil, err
	}
	return cfg, nil
}
