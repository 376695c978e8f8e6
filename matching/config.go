package matching

import (
	"github.com/kbukum/speakerid/validation"
)

// Strategies for turning scores into labels.
const (
	// StrategySegment decides every segment independently.
	StrategySegment = "segment"
	// StrategyCluster decides once per diarization cluster.
	StrategyCluster = "cluster"
)

// Policies for the margin gate when only one identity is enrolled.
const (
	// WaiveMargin skips the margin check for a single candidate.
	WaiveMargin = "waive_margin"
	// StrictMargin keeps the check; the margin against itself is 0, so a
	// single identity is accepted only when MarginThreshold <= 0.
	StrictMargin = "strict"
)

// ClusterConfig tunes the cluster vote.
type ClusterConfig struct {
	// AggregateThreshold is the mean score accepted with a normal margin.
	AggregateThreshold float64 `yaml:"aggregate_threshold" mapstructure:"aggregate_threshold" validate:"gte=-1,lte=1"`
	// LowerThreshold is the mean score accepted with a LargeMargin lead.
	LowerThreshold float64 `yaml:"lower_threshold" mapstructure:"lower_threshold" validate:"gte=-1,lte=1"`
	LargeMargin    float64 `yaml:"large_margin" mapstructure:"large_margin" validate:"gte=0"`
}

// Config tunes the matcher.
type Config struct {
	Strategy            string  `yaml:"strategy" mapstructure:"strategy" validate:"oneof=segment cluster"`
	SimilarityThreshold float64 `yaml:"similarity_threshold" mapstructure:"similarity_threshold" validate:"gte=-1,lte=1"`
	MarginThreshold     float64 `yaml:"margin_threshold" mapstructure:"margin_threshold" validate:"gte=0"`
	SwitchPenalty       float64 `yaml:"switch_penalty" mapstructure:"switch_penalty" validate:"gte=0"`
	Smoothing           bool    `yaml:"smoothing" mapstructure:"smoothing"`
	// MinSegmentSeconds excludes segments too short to embed reliably.
	MinSegmentSeconds float64       `yaml:"min_segment_seconds" mapstructure:"min_segment_seconds" validate:"gte=0"`
	SingleIdentity    string        `yaml:"single_identity_policy" mapstructure:"single_identity_policy" validate:"oneof=waive_margin strict"`
	Cluster           ClusterConfig `yaml:"cluster" mapstructure:"cluster"`
}

// DefaultConfig returns the tuned defaults. Zero is a meaningful value
// for every threshold, so callers loading config from outside start from
// this and let the loaded values overwrite it.
func DefaultConfig() Config {
	return Config{
		Strategy:            StrategySegment,
		SimilarityThreshold: 0.50,
		MarginThreshold:     0.03,
		SwitchPenalty:       0.02,
		MinSegmentSeconds:   0.8,
		SingleIdentity:      WaiveMargin,
		Cluster: ClusterConfig{
			AggregateThreshold: 0.65,
			LowerThreshold:     0.50,
			LargeMargin:        0.20,
		},
	}
}

// ApplyDefaults fills the unset policy names. Numeric fields are left
// alone: a zero margin or penalty is a valid setting.
func (c *Config) ApplyDefaults() {
	if c.Strategy == "" {
		c.Strategy = StrategySegment
	}
	if c.SingleIdentity == "" {
		c.SingleIdentity = WaiveMargin
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if err := validation.Validate(c); err != nil {
		return err
	}
	v := validation.New().
		Custom(c.Cluster.LowerThreshold <= c.Cluster.AggregateThreshold,
			"cluster.lower_threshold", "must not exceed cluster.aggregate_threshold")
	if appErr := v.Validate(); appErr != nil {
		return appErr
	}
	return nil
}
