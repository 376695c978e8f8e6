package enrollment

import (
	"github.com/kbukum/speakerid/validation"
)

// DefaultMinClipSeconds is the shortest clip accepted for enrollment.
const DefaultMinClipSeconds = 30.0

// Config configures enrollment.
type Config struct {
	Dir            string  `yaml:"dir" mapstructure:"dir"`
	MinClipSeconds float64 `yaml:"min_clip_seconds" mapstructure:"min_clip_seconds" validate:"gte=0"`
	// Extensions overrides the loader's accepted extensions (".wav").
	Extensions []string `yaml:"extensions" mapstructure:"extensions"`
	// Participants restricts enrollment to these keys or usernames.
	Participants []string `yaml:"participants" mapstructure:"participants"`
}

// ApplyDefaults fills unset fields.
func (c *Config) ApplyDefaults() {
	if c.Dir == "" {
		c.Dir = "enroll"
	}
	if c.MinClipSeconds == 0 {
		c.MinClipSeconds = DefaultMinClipSeconds
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	return validation.Validate(c)
}
