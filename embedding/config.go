package embedding

import (
	"github.com/kbukum/speakerid/audio"
	"github.com/kbukum/speakerid/validation"
)

// Backend names accepted by Config.Provider and Config.Fallback.
const (
	BackendSpectral = "spectral"
	BackendSidecar  = "sidecar"
)

// Config selects and configures the embedding backends.
type Config struct {
	// Provider is the primary backend.
	Provider string `yaml:"provider" mapstructure:"provider" validate:"required,oneof=spectral sidecar"`
	// Fallback is used when the primary backend is unavailable. Optional.
	Fallback   string `yaml:"fallback" mapstructure:"fallback" validate:"omitempty,oneof=spectral sidecar"`
	SampleRate int    `yaml:"sample_rate" mapstructure:"sample_rate" validate:"min=8000"`
	// Workers bounds parallel extractions within one run.
	Workers int `yaml:"workers" mapstructure:"workers" validate:"min=1"`

	Spectral map[string]any `yaml:"spectral" mapstructure:"spectral"`
	Sidecar  map[string]any `yaml:"sidecar" mapstructure:"sidecar"`
}

// ApplyDefaults fills unset fields.
func (c *Config) ApplyDefaults() {
	if c.Provider == "" {
		c.Provider = BackendSpectral
	}
	if c.SampleRate == 0 {
		c.SampleRate = audio.DefaultSampleRate
	}
	if c.Workers == 0 {
		c.Workers = 4
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if err := validation.Validate(c); err != nil {
		return err
	}
	v := validation.New().
		Custom(c.Fallback == "" || c.Fallback != c.Provider, "fallback", "must differ from provider")
	if appErr := v.Validate(); appErr != nil {
		return appErr
	}
	return nil
}

// Chain returns the backend names in priority order.
func (c *Config) Chain() []string {
	if c.Fallback == "" {
		return []string{c.Provider}
	}
	return []string{c.Provider, c.Fallback}
}

// Options returns the factory options for a backend.
func (c *Config) Options(name string) map[string]any {
	var opts map[string]any
	switch name {
	case BackendSpectral:
		opts = c.Spectral
	case BackendSidecar:
		opts = c.Sidecar
	}
	out := make(map[string]any, len(opts)+1)
	for k, v := range opts {
		out[k] = v
	}
	out["sample_rate"] = c.SampleRate
	return out
}
