package media

import (
	"fmt"
	"time"
)

// Config configures audio loading.
type Config struct {
	// FFmpeg enables the ffmpeg loader. When false only WAV input is accepted.
	FFmpeg     bool          `yaml:"ffmpeg" mapstructure:"ffmpeg"`
	FFmpegBin  string        `yaml:"ffmpeg_bin" mapstructure:"ffmpeg_bin"`
	FFprobeBin string        `yaml:"ffprobe_bin" mapstructure:"ffprobe_bin"`
	ScratchDir string        `yaml:"scratch_dir" mapstructure:"scratch_dir"`
	Timeout    time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// ApplyDefaults fills unset fields.
func (c *Config) ApplyDefaults() {
	if c.FFmpegBin == "" {
		c.FFmpegBin = "ffmpeg"
	}
	if c.FFprobeBin == "" {
		c.FFprobeBin = "ffprobe"
	}
	if c.Timeout == 0 {
		c.Timeout = 10 * time.Minute
	}
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	if c.Timeout < 0 {
		return fmt.Errorf("media.timeout must be non-negative (got: %s)", c.Timeout)
	}
	return nil
}
