package main

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/kbukum/speakerid/attribution"
	"github.com/kbukum/speakerid/segment"
	"github.com/kbukum/speakerid/transcript"
)

// enrollFlags are shared by every command that builds an enrolled set.
type enrollFlags struct {
	dir          string
	participants []string
	minClip      float64
}

func (f *enrollFlags) bind(fs *pflag.FlagSet) {
	fs.StringVar(&f.dir, "enroll", "", "enrollment directory (overrides enrollment.dir)")
	fs.StringArrayVar(&f.participants, "participants", nil,
		"restrict to these identities; repeat the flag or separate with ';'")
	fs.Float64Var(&f.minClip, "min-clip", 0, "shortest enrollment clip in seconds (overrides enrollment.min_clip_seconds)")
}

func (f *enrollFlags) apply(fs *pflag.FlagSet, cfg *Config) {
	if fs.Changed("enroll") {
		cfg.Enrollment.Dir = f.dir
	}
	if fs.Changed("participants") {
		cfg.Enrollment.Participants = attribution.SplitParticipants(f.participants...)
	}
	if fs.Changed("min-clip") {
		cfg.Enrollment.MinClipSeconds = f.minClip
	}
}

type attributeFlags struct {
	enrollFlags
	out           string
	strategy      string
	smoothing     bool
	threshold     float64
	margin        float64
	switchPenalty float64
	minSegment    float64
}

func (f *attributeFlags) bind(fs *pflag.FlagSet) {
	f.enrollFlags.bind(fs)
	fs.StringVarP(&f.out, "out", "o", "", "output directory (default: next to the recording)")
	fs.StringVar(&f.strategy, "strategy", "", "matching strategy: segment or cluster")
	fs.BoolVar(&f.smoothing, "smoothing", false, "penalize switching away from the previous speaker")
	fs.Float64Var(&f.threshold, "threshold", 0, "minimum cosine similarity to accept a match")
	fs.Float64Var(&f.margin, "margin", 0, "minimum lead of the best match over the runner-up")
	fs.Float64Var(&f.switchPenalty, "switch-penalty", 0, "score penalty for a speaker change when smoothing")
	fs.Float64Var(&f.minSegment, "min-segment", 0, "shortest segment in seconds worth embedding")
}

func (f *attributeFlags) apply(fs *pflag.FlagSet, cfg *Config) {
	f.enrollFlags.apply(fs, cfg)
	if fs.Changed("out") {
		cfg.Output.Dir = f.out
	}
	if fs.Changed("strategy") {
		cfg.Matching.Strategy = f.strategy
	}
	if fs.Changed("smoothing") {
		cfg.Matching.Smoothing = f.smoothing
	}
	if fs.Changed("threshold") {
		cfg.Matching.SimilarityThreshold = f.threshold
	}
	if fs.Changed("margin") {
		cfg.Matching.MarginThreshold = f.margin
	}
	if fs.Changed("switch-penalty") {
		cfg.Matching.SwitchPenalty = f.switchPenalty
	}
	if fs.Changed("min-segment") {
		cfg.Matching.MinSegmentSeconds = f.minSegment
	}
}

func newAttributeCmd(configPath *string) *cobra.Command {
	var f attributeFlags
	cmd := &cobra.Command{
		Use:   "attribute <segments.json> <meeting-audio>",
		Short: "Name the speakers of a diarized recording",
		Long: `Embeds every transcript segment, matches it against the enrolled
speakers, and writes <audio>_named_script.txt and .json.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			f.apply(cmd.Flags(), cfg)
			return runAttribute(cmd.Context(), cmd.OutOrStdout(), cfg, args[0], args[1])
		},
	}

	f.bind(cmd.Flags())
	return cmd
}

func runAttribute(ctx context.Context, out io.Writer, cfg *Config, segmentsPath, audioPath string) error {
	// Reject a bad segment list before any model is loaded.
	segs, err := segment.Load(segmentsPath)
	if err != nil {
		return err
	}

	app, err := newApplication(cfg)
	if err != nil {
		return err
	}
	return app.RunTask(ctx, func(ctx context.Context) error {
		rec, err := app.Loader.Load(ctx, audioPath)
		if err != nil {
			return err
		}
		res, err := app.Service.Attribute(ctx, attribution.Request{Recording: rec, Segments: segs})
		if err != nil {
			return err
		}

		dir := cfg.Output.Dir
		if dir == "" {
			dir = filepath.Dir(audioPath)
		}
		paths, err := transcript.Write(dir, outputStem(audioPath), res.Turns, app.Directory)
		if err != nil {
			return err
		}
		printRun(out, res, paths)
		return nil
	})
}

func outputStem(audioPath string) string {
	base := filepath.Base(audioPath)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func printRun(w io.Writer, res *attribution.Result, paths transcript.Paths) {
	s := res.Stats
	fmt.Fprintf(w, "wrote %s\nwrote %s\n", paths.Text, paths.JSON)
	fmt.Fprintf(w, "segments: %d total, %d named, %d unknown, %d skipped (%d empty, %d short), %d failed\n",
		s.Total, s.Accepted, s.Unknown, s.SkippedEmpty+s.SkippedShort, s.SkippedEmpty, s.SkippedShort, s.Failed)
	fmt.Fprintf(w, "turns: %d, unknown speakers: %d, elapsed: %s\n", s.Turns, s.UnknownLabels, s.Elapsed.Round(time.Millisecond))
}
