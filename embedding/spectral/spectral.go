// Package spectral is a native, deterministic voiceprint backend built on
// log-mel filterbank statistics. It needs no model download, which makes it
// the default backend and the fallback when a model sidecar is down.
package spectral

import (
	"context"
	"fmt"
	"math"
	"sync"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/kbukum/speakerid/audio"
	"github.com/kbukum/speakerid/embedding"
	apperrors "github.com/kbukum/speakerid/errors"
	"github.com/kbukum/speakerid/provider"
)

// ProviderName is the registered name for the spectral backend.
const ProviderName = embedding.BackendSpectral

const logFloor = 1e-10

// Config configures feature extraction.
type Config struct {
	SampleRate  int
	Filters     int
	FrameMs     float64
	HopMs       float64
	PreEmphasis float64
	MinHz       float64
}

// DefaultConfig returns 40 mel filters over 25 ms Hann frames with a 10 ms hop.
func DefaultConfig() Config {
	return Config{
		SampleRate:  audio.DefaultSampleRate,
		Filters:     40,
		FrameMs:     25,
		HopMs:       10,
		PreEmphasis: 0.97,
		MinHz:       20,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	switch {
	case c.SampleRate < 8000:
		return fmt.Errorf("spectral: sample_rate must be at least 8000 (got: %d)", c.SampleRate)
	case c.Filters < 8 || c.Filters > 128:
		return fmt.Errorf("spectral: filters must be in [8, 128] (got: %d)", c.Filters)
	case c.HopMs <= 0 || c.FrameMs < c.HopMs:
		return fmt.Errorf("spectral: need 0 < hop_ms <= frame_ms (got: %v, %v)", c.HopMs, c.FrameMs)
	case c.PreEmphasis < 0 || c.PreEmphasis >= 1:
		return fmt.Errorf("spectral: pre_emphasis must be in [0, 1) (got: %v)", c.PreEmphasis)
	case c.MinHz < 0 || c.MinHz >= float64(c.SampleRate)/2:
		return fmt.Errorf("spectral: min_hz must be below Nyquist (got: %v)", c.MinHz)
	}
	return nil
}

var _ embedding.Extractor = (*Extractor)(nil)

// Extractor computes an L2-normalized vector of per-filter log-mel means
// and standard deviations, each centered across filters so the vector
// describes spectral shape rather than loudness.
type Extractor struct {
	cfg      Config
	frameLen int
	hop      int
	nfft     int
	window   []float64
	bank     [][]float64

	ffts sync.Pool
}

// New precomputes the window and filterbank for cfg.
func New(cfg Config) (*Extractor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	frameLen := int(math.Round(cfg.FrameMs * float64(cfg.SampleRate) / 1000))
	hop := int(math.Round(cfg.HopMs * float64(cfg.SampleRate) / 1000))
	nfft := 1
	for nfft < frameLen {
		nfft <<= 1
	}

	e := &Extractor{
		cfg:      cfg,
		frameLen: frameLen,
		hop:      hop,
		nfft:     nfft,
		window:   hann(frameLen),
		bank:     melBank(cfg.Filters, nfft, cfg.SampleRate, cfg.MinHz, float64(cfg.SampleRate)/2),
	}
	e.ffts.New = func() any { return fourier.NewFFT(nfft) }
	return e, nil
}

// Factory returns a provider.Factory reading "sample_rate", "filters",
// "frame_ms", "hop_ms", "pre_emphasis", and "min_hz".
func Factory() provider.Factory[embedding.Extractor] {
	return func(opts map[string]any) (embedding.Extractor, error) {
		d := DefaultConfig()
		e, err := New(Config{
			SampleRate:  embedding.OptInt(opts, "sample_rate", d.SampleRate),
			Filters:     embedding.OptInt(opts, "filters", d.Filters),
			FrameMs:     embedding.OptFloat(opts, "frame_ms", d.FrameMs),
			HopMs:       embedding.OptFloat(opts, "hop_ms", d.HopMs),
			PreEmphasis: embedding.OptFloat(opts, "pre_emphasis", d.PreEmphasis),
			MinHz:       embedding.OptFloat(opts, "min_hz", d.MinHz),
		})
		if err != nil {
			return nil, err
		}
		return e, nil
	}
}

func (e *Extractor) Name() string                       { return ProviderName }
func (e *Extractor) IsAvailable(_ context.Context) bool { return true }

// Dim is the length of the produced vectors.
func (e *Extractor) Dim() int { return 2 * e.cfg.Filters }

// Execute extracts the voiceprint of a clip already normalized to the
// configured rate.
func (e *Extractor) Execute(ctx context.Context, clip audio.Clip) (embedding.Vector, error) {
	if clip.SampleRate != e.cfg.SampleRate || clip.Channels > 1 {
		return nil, apperrors.InvalidInput("clip", fmt.Sprintf("expected mono %d Hz audio", e.cfg.SampleRate))
	}
	if len(clip.Samples) < e.frameLen {
		return nil, apperrors.EmptyAudio("clip shorter than one analysis frame")
	}

	signal := preEmphasize(clip.Samples, e.cfg.PreEmphasis)
	frames := 1 + (len(signal)-e.frameLen)/e.hop
	nf := e.cfg.Filters

	// feats[f] holds the log energies of filter f across all frames.
	feats := make([][]float64, nf)
	for f := range feats {
		feats[f] = make([]float64, frames)
	}

	fft := e.ffts.Get().(*fourier.FFT)
	defer e.ffts.Put(fft)
	buf := make([]float64, e.nfft)
	coeffs := make([]complex128, e.nfft/2+1)
	power := make([]float64, e.nfft/2+1)

	for i := 0; i < frames; i++ {
		if i%256 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		start := i * e.hop
		for j := range buf {
			buf[j] = 0
		}
		for j := 0; j < e.frameLen; j++ {
			buf[j] = signal[start+j] * e.window[j]
		}
		coeffs = fft.Coefficients(coeffs, buf)
		for k, c := range coeffs {
			re, im := real(c), imag(c)
			power[k] = (re*re + im*im) / float64(e.nfft)
		}
		for f, filter := range e.bank {
			feats[f][i] = math.Log(floats.Dot(filter, power) + logFloor)
		}
	}

	means := make([]float64, nf)
	stds := make([]float64, nf)
	for f := range feats {
		means[f], stds[f] = stat.MeanStdDev(feats[f], nil)
		if math.IsNaN(stds[f]) {
			stds[f] = 0
		}
	}
	center(means)
	center(stds)

	v := make(embedding.Vector, 0, 2*nf)
	v = append(v, means...)
	v = append(v, stds...)
	return embedding.Normalize(v), nil
}

func center(xs []float64) {
	floats.AddConst(-stat.Mean(xs, nil), xs)
}

func preEmphasize(samples []float32, coef float64) []float64 {
	out := make([]float64, len(samples))
	prev := 0.0
	for i, s := range samples {
		x := float64(s)
		out[i] = x - coef*prev
		prev = x
	}
	return out
}

func hann(n int) []float64 {
	w := make([]float64, n)
	if n == 1 {
		w[0] = 1
		return w
	}
	for i := range w {
		w[i] = 0.5 - 0.5*math.Cos(2*math.Pi*float64(i)/float64(n-1))
	}
	return w
}

func hzToMel(hz float64) float64  { return 2595 * math.Log10(1+hz/700) }
func melToHz(mel float64) float64 { return 700 * (math.Pow(10, mel/2595) - 1) }

// melBank returns triangular filters over the nfft/2+1 power bins.
func melBank(filters, nfft, rate int, lowHz, highHz float64) [][]float64 {
	bins := nfft/2 + 1
	lo, hi := hzToMel(lowHz), hzToMel(highHz)
	points := make([]int, filters+2)
	for i := range points {
		mel := lo + (hi-lo)*float64(i)/float64(filters+1)
		points[i] = int(math.Floor(float64(nfft+1) * melToHz(mel) / float64(rate)))
		if points[i] >= bins {
			points[i] = bins - 1
		}
	}

	bank := make([][]float64, filters)
	for f := 0; f < filters; f++ {
		row := make([]float64, bins)
		left, mid, right := points[f], points[f+1], points[f+2]
		for k := left; k < mid; k++ {
			row[k] = float64(k-left) / float64(mid-left)
		}
		for k := mid; k < right; k++ {
			row[k] = float64(right-k) / float64(right-mid)
		}
		if mid == left || mid == right {
			// Degenerate filter at low resolution: keep a single unit tap.
			row[mid] = 1
		}
		bank[f] = row
	}
	return bank
}
