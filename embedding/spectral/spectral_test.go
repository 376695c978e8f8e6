package spectral

import (
	"context"
	"math"
	"math/rand"
	"testing"

	"github.com/kbukum/speakerid/audio"
	"github.com/kbukum/speakerid/embedding"
	apperrors "github.com/kbukum/speakerid/errors"
)

// voice synthesizes a harmonic-rich signal with a fundamental f0 and a
// formant-like emphasis around formant Hz, plus a little seeded noise.
func voice(f0, formant, seconds float64, seed int64) audio.Clip {
	rate := audio.DefaultSampleRate
	rng := rand.New(rand.NewSource(seed))
	n := int(seconds * float64(rate))
	s := make([]float32, n)
	for i := range s {
		t := float64(i) / float64(rate)
		var x float64
		for h := 1; h <= 12; h++ {
			freq := f0 * float64(h)
			gain := 1 / (1 + math.Pow((freq-formant)/400, 2))
			x += gain * math.Sin(2*math.Pi*freq*t)
		}
		s[i] = float32(0.1*x + 0.005*rng.NormFloat64())
	}
	return audio.Clip{Samples: s, SampleRate: rate, Channels: 1}
}

func newExtractor(t *testing.T) *Extractor {
	t.Helper()
	e, err := New(DefaultConfig())
	if err != nil {
		t.Fatalf("New() = %v", err)
	}
	return e
}

func TestDeterministic(t *testing.T) {
	e := newExtractor(t)
	clip := voice(120, 700, 1.5, 1)
	a, err := e.Execute(context.Background(), clip)
	if err != nil {
		t.Fatalf("Execute() = %v", err)
	}
	b, _ := e.Execute(context.Background(), clip)
	if len(a) != e.Dim() {
		t.Fatalf("len = %d, want %d", len(a), e.Dim())
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("dimension %d differs between runs", i)
		}
	}
	var norm float64
	for _, x := range a {
		norm += x * x
	}
	if math.Abs(math.Sqrt(norm)-1) > 1e-6 {
		t.Fatalf("vector norm = %v, want 1", math.Sqrt(norm))
	}
}

func TestSeparatesVoices(t *testing.T) {
	e := newExtractor(t)
	ctx := context.Background()
	low1, _ := e.Execute(ctx, voice(110, 500, 2, 1))
	low2, _ := e.Execute(ctx, voice(110, 500, 2, 2))
	high, _ := e.Execute(ctx, voice(230, 2200, 2, 3))

	same := embedding.Cosine(low1, low2)
	diff := embedding.Cosine(low1, high)
	if same <= diff {
		t.Fatalf("same-voice similarity %.3f not above cross-voice %.3f", same, diff)
	}
}

func TestExecuteRejects(t *testing.T) {
	e := newExtractor(t)
	ctx := context.Background()

	short := audio.Clip{Samples: make([]float32, 100), SampleRate: audio.DefaultSampleRate, Channels: 1}
	if _, err := e.Execute(ctx, short); !apperrors.HasCode(err, apperrors.ErrCodeEmptyAudio) {
		t.Fatalf("short clip: %v, want EMPTY_AUDIO", err)
	}

	wrongRate := audio.Clip{Samples: make([]float32, 44100), SampleRate: 44100, Channels: 1}
	if _, err := e.Execute(ctx, wrongRate); !apperrors.HasCode(err, apperrors.ErrCodeInvalidInput) {
		t.Fatalf("wrong rate: %v, want INVALID_INPUT", err)
	}

	canceled, cancel := context.WithCancel(ctx)
	cancel()
	if _, err := e.Execute(canceled, voice(120, 700, 1, 1)); err == nil {
		t.Fatal("expected context error")
	}
}

func TestFactoryOptions(t *testing.T) {
	ex, err := Factory()(map[string]any{"filters": "24", "sample_rate": 16000})
	if err != nil {
		t.Fatalf("Factory() = %v", err)
	}
	if got := ex.(*Extractor).Dim(); got != 48 {
		t.Fatalf("Dim() = %d, want 48", got)
	}
	if _, err := Factory()(map[string]any{"filters": 2}); err == nil {
		t.Fatal("expected validation error for 2 filters")
	}
}

func TestConfigValidate(t *testing.T) {
	mutate := []func(*Config){
		func(c *Config) { c.SampleRate = 4000 },
		func(c *Config) { c.Filters = 200 },
		func(c *Config) { c.HopMs = 0 },
		func(c *Config) { c.FrameMs = 5 },
		func(c *Config) { c.PreEmphasis = 1 },
		func(c *Config) { c.MinHz = 9000 },
	}
	for i, m := range mutate {
		c := DefaultConfig()
		m(&c)
		if err := c.Validate(); err == nil {
			t.Errorf("case %d: expected error for %+v", i, c)
		}
	}
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

func TestMelBankCoversSpectrum(t *testing.T) {
	bank := melBank(40, 512, 16000, 20, 8000)
	if len(bank) != 40 {
		t.Fatalf("filters = %d", len(bank))
	}
	for f, row := range bank {
		var sum float64
		for _, w := range row {
			if w < 0 || w > 1 {
				t.Fatalf("filter %d has weight %v outside [0, 1]", f, w)
			}
			sum += w
		}
		if sum == 0 {
			t.Fatalf("filter %d is empty", f)
		}
	}
}
