package media

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/kbukum/speakerid/audio"
	apperrors "github.com/kbukum/speakerid/errors"
	"github.com/kbukum/speakerid/logger"
	"github.com/kbukum/speakerid/process"
	"github.com/kbukum/speakerid/provider"
)

// FFmpegExtensions are the containers accepted by the ffmpeg loader.
var FFmpegExtensions = []string{".wav", ".mp3", ".m4a", ".mp4", ".mov", ".aac", ".flac", ".ogg", ".webm"}

// FFmpeg normalizes any supported container to mono 16-bit PCM in the
// workspace and decodes it.
type FFmpeg struct {
	rate     int
	ws       *Workspace
	duration provider.RequestResponse[string, float64]
	convert  *process.Tool
	log      *logger.Logger
}

// NewFFmpeg creates an ffmpeg-backed loader writing scratch files to ws.
func NewFFmpeg(cfg Config, rate int, ws *Workspace) *FFmpeg {
	cfg.ApplyDefaults()
	if rate <= 0 {
		rate = audio.DefaultSampleRate
	}
	if ws == nil {
		ws = NewWorkspace(cfg.ScratchDir)
	}

	ffprobe := process.NewTool(process.ToolConfig{Binary: cfg.FFprobeBin, Timeout: cfg.Timeout})

	return &FFmpeg{
		rate:     rate,
		ws:       ws,
		duration: process.NewCall("ffprobe", ffprobe, durationCommand, parseDuration),
		convert:  process.NewTool(process.ToolConfig{Binary: cfg.FFmpegBin, Timeout: cfg.Timeout}),
		log:      logger.Get("media"),
	}
}

// IsAvailable reports whether both ffmpeg and ffprobe resolve on PATH.
func (f *FFmpeg) IsAvailable(ctx context.Context) bool {
	return f.convert.IsAvailable(ctx) && f.duration.IsAvailable(ctx)
}

// Check returns an error naming the missing tool.
func (f *FFmpeg) Check(ctx context.Context) error {
	if !f.convert.IsAvailable(ctx) {
		return apperrors.ServiceUnavailable(f.convert.Name())
	}
	if !f.duration.IsAvailable(ctx) {
		return apperrors.ServiceUnavailable(f.duration.Name())
	}
	return nil
}

func (f *FFmpeg) Duration(ctx context.Context, path string) (float64, error) {
	if err := statInput(path); err != nil {
		return 0, err
	}
	d, err := f.duration.Execute(ctx, path)
	if err != nil {
		return 0, apperrors.MediaFailed(path, err)
	}
	return d, nil
}

func (f *FFmpeg) Load(ctx context.Context, path string) (audio.Clip, error) {
	if err := statInput(path); err != nil {
		return audio.Clip{}, err
	}
	out, err := f.ws.Path(uuid.New().String() + ".wav")
	if err != nil {
		return audio.Clip{}, err
	}
	defer os.Remove(out)

	result, err := f.convert.Execute(ctx, process.Command{Args: convertArgs(path, out, f.rate)})
	if err != nil {
		cause := err
		if tail := result.StderrTail(3); tail != "" {
			cause = fmt.Errorf("%w: %s", err, tail)
		}
		return audio.Clip{}, apperrors.MediaFailed(path, cause)
	}
	f.log.Debug("normalized", logger.Fields(
		logger.FieldPath, path, logger.FieldDuration, result.Duration.Milliseconds()))

	clip, err := audio.ReadWAV(out)
	if err != nil {
		return audio.Clip{}, apperrors.MediaFailed(path, err)
	}
	return clip.Normalize(f.rate), nil
}

func (f *FFmpeg) Extensions() []string { return FFmpegExtensions }

func convertArgs(in, out string, rate int) []string {
	return []string{
		"-nostdin", "-hide_banner", "-loglevel", "error", "-y",
		"-i", in,
		"-vn", "-ac", "1", "-ar", strconv.Itoa(rate), "-c:a", "pcm_s16le",
		out,
	}
}

func durationCommand(path string) process.Command {
	return process.Command{Args: []string{
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	}}
}

func parseDuration(r *process.Result) (float64, error) {
	s := strings.TrimSpace(string(r.Stdout))
	if s == "" || s == "N/A" {
		return 0, fmt.Errorf("ffprobe reported no duration")
	}
	d, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("parse ffprobe duration %q: %w", s, err)
	}
	return d, nil
}
