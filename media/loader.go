package media

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/kbukum/speakerid/audio"
	apperrors "github.com/kbukum/speakerid/errors"
	"github.com/kbukum/speakerid/logger"
)

// Loader reads recordings as normalized mono clips.
type Loader interface {
	// Duration returns the length of the recording in seconds.
	Duration(ctx context.Context, path string) (float64, error)
	// Load returns the recording as mono audio at the loader's sample rate.
	Load(ctx context.Context, path string) (audio.Clip, error)
	// Extensions lists the lowercase file extensions the loader accepts.
	Extensions() []string
}

// NewLoader returns the loader selected by cfg.
func NewLoader(cfg Config, rate int, ws *Workspace) Loader {
	if cfg.FFmpeg {
		return NewFFmpeg(cfg, rate, ws)
	}
	return NewWAVLoader(rate)
}

// Supports reports whether path has one of the loader's extensions.
func Supports(l Loader, path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range l.Extensions() {
		if e == ext {
			return true
		}
	}
	return false
}

// WAVLoader reads PCM WAV files without external tools.
type WAVLoader struct {
	rate int
	log  *logger.Logger
}

// NewWAVLoader returns a loader that resamples to rate.
func NewWAVLoader(rate int) *WAVLoader {
	if rate <= 0 {
		rate = audio.DefaultSampleRate
	}
	return &WAVLoader{rate: rate, log: logger.Get("media")}
}

func (l *WAVLoader) Duration(_ context.Context, path string) (float64, error) {
	return audio.WAVDuration(path)
}

func (l *WAVLoader) Load(ctx context.Context, path string) (audio.Clip, error) {
	if err := ctx.Err(); err != nil {
		return audio.Clip{}, err
	}
	clip, err := audio.ReadWAV(path)
	if err != nil {
		return audio.Clip{}, err
	}
	if clip.SampleRate != l.rate || clip.Channels != 1 {
		l.log.Debug("normalizing wav", logger.Fields(
			logger.FieldPath, path, "rate", clip.SampleRate, "channels", clip.Channels))
	}
	return clip.Normalize(l.rate), nil
}

func (l *WAVLoader) Extensions() []string { return []string{".wav"} }

func statInput(path string) error {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return apperrors.NotFound("audio", path)
		}
		return apperrors.MediaFailed(path, err)
	}
	return nil
}
