package enrollment

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/kbukum/speakerid/audio"
	"github.com/kbukum/speakerid/embedding"
	apperrors "github.com/kbukum/speakerid/errors"
	"github.com/kbukum/speakerid/media"
)

const testRate = 8000

// writeLevel writes a constant-level clip; the Static extractor maps the
// level to a vector.
func writeLevel(t *testing.T, dir, name string, level float32, seconds float64) {
	t.Helper()
	s := make([]float32, int(seconds*testRate))
	for i := range s {
		s[i] = level
	}
	if err := audio.WriteWAV(filepath.Join(dir, name), audio.Clip{Samples: s, SampleRate: testRate, Channels: 1}); err != nil {
		t.Fatalf("WriteWAV(%s): %v", name, err)
	}
}

func staticVectors() *embedding.Static {
	return embedding.NewStatic(map[string]embedding.Vector{
		"0.10": {1, 0, 0},
		"0.20": {0, 1, 0},
		"0.30": {0, 0, 1},
		"0.40": {1, 1, 1},
	})
}

func newAggregator(ex *embedding.Static, opts ...Option) *Aggregator {
	return NewAggregator(media.NewWAVLoader(testRate), embedding.Bind(ex, testRate), opts...)
}

func fixtureDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	writeLevel(t, dir, "alice(1of2).wav", 0.1, 45)
	writeLevel(t, dir, "alice(2of2).wav", 0.2, 50)
	writeLevel(t, dir, "bob,jones.wav", 0.3, 31)
	writeLevel(t, dir, "carol.wav", 0.4, 20)
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("not audio"), 0o600); err != nil {
		t.Fatal(err)
	}
	return dir
}

func TestBuild_AveragesClipsPerIdentity(t *testing.T) {
	dir := fixtureDir(t)
	ex := staticVectors()

	set, report, err := newAggregator(ex, WithWorkers(3)).Build(context.Background(), dir)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	if got := set.Keys(); len(got) != 2 || got[0] != "alice" || got[1] != "bob,jones" {
		t.Fatalf("Keys() = %v, want [alice bob,jones]", got)
	}
	alice, _ := set.Get("alice")
	if alice.ClipCount != 2 {
		t.Errorf("alice ClipCount = %d, want 2", alice.ClipCount)
	}
	want := embedding.Vector{0.5, 0.5, 0}
	for i := range want {
		if math.Abs(alice.Embedding[i]-want[i]) > 1e-9 {
			t.Fatalf("alice embedding = %v, want %v", alice.Embedding, want)
		}
	}
	if math.Abs(alice.Seconds-95) > 0.01 {
		t.Errorf("alice seconds = %v, want 95", alice.Seconds)
	}

	if _, ok := set.Get("carol"); ok {
		t.Error("carol has only a 20s clip and must not be enrolled")
	}
	if ex.Calls() != 3 {
		t.Errorf("extractions = %d, want 3 (short clips are never embedded)", ex.Calls())
	}

	if report.Count(OutcomeUsed) != 3 || report.Count(OutcomeTooShort) != 1 || report.Count(OutcomeIgnored) != 1 {
		t.Errorf("report = %+v", report.Clips)
	}
	if report.Identities != 2 {
		t.Errorf("report.Identities = %d", report.Identities)
	}
}

func TestBuild_FailedClipIsSkipped(t *testing.T) {
	dir := fixtureDir(t)
	writeLevel(t, dir, "dave.wav", 0.5, 35)

	set, report, err := newAggregator(staticVectors()).Build(context.Background(), dir)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if _, ok := set.Get("dave"); ok {
		t.Error("dave failed to embed and must not be enrolled")
	}
	if report.Count(OutcomeFailed) != 1 {
		t.Errorf("failed = %d, want 1", report.Count(OutcomeFailed))
	}
}

func TestBuild_Participants(t *testing.T) {
	dir := fixtureDir(t)

	set, report, err := newAggregator(staticVectors(), WithParticipants([]string{"bobjones"})).Build(context.Background(), dir)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if set.Len() != 1 {
		t.Fatalf("Keys() = %v, want only bob,jones", set.Keys())
	}
	if _, ok := set.Get("bob,jones"); !ok {
		t.Error("bob,jones should match participant bobjones")
	}
	if report.Count(OutcomeFiltered) != 3 {
		t.Errorf("filtered = %d, want 3", report.Count(OutcomeFiltered))
	}
}

func TestBuild_MinClipSeconds(t *testing.T) {
	dir := fixtureDir(t)
	set, _, err := newAggregator(staticVectors(), WithMinClipSeconds(10)).Build(context.Background(), dir)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if _, ok := set.Get("carol"); !ok {
		t.Error("carol should be enrolled with a 10s minimum")
	}
}

func TestBuild_ThirtySecondBoundary(t *testing.T) {
	dir := t.TempDir()
	writeFrames := func(name string, level float32, frames int) {
		s := make([]float32, frames)
		for i := range s {
			s[i] = level
		}
		if err := audio.WriteWAV(filepath.Join(dir, name), audio.Clip{Samples: s, SampleRate: testRate, Channels: 1}); err != nil {
			t.Fatal(err)
		}
	}
	writeFrames("alice.wav", 0.1, 30*testRate)
	writeFrames("bob.wav", 0.2, 30*testRate-1)

	set, report, err := newAggregator(staticVectors()).Build(context.Background(), dir)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if _, ok := set.Get("alice"); !ok {
		t.Error("a clip of exactly 30s should enroll")
	}
	if _, ok := set.Get("bob"); ok || report.Count(OutcomeTooShort) != 1 {
		t.Errorf("a clip one frame short of 30s enrolled: keys %v, too short %d", set.Keys(), report.Count(OutcomeTooShort))
	}
}

func TestBuild_NoEnrollment(t *testing.T) {
	dir := t.TempDir()
	writeLevel(t, dir, "carol.wav", 0.4, 20)

	_, report, err := newAggregator(staticVectors()).Build(context.Background(), dir)
	if !apperrors.HasCode(err, apperrors.ErrCodeNoEnrollment) {
		t.Fatalf("err = %v, want NO_ENROLLMENT", err)
	}
	if report.Count(OutcomeTooShort) != 1 {
		t.Errorf("report = %+v", report.Clips)
	}
}

func TestBuild_MissingDir(t *testing.T) {
	_, _, err := newAggregator(staticVectors()).Build(context.Background(), filepath.Join(t.TempDir(), "nope"))
	if !apperrors.HasCode(err, apperrors.ErrCodeNotFound) {
		t.Fatalf("err = %v, want NOT_FOUND", err)
	}
}

func TestBuild_Canceled(t *testing.T) {
	dir := fixtureDir(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := newAggregator(staticVectors()).Build(ctx, dir)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestBuild_Extensions(t *testing.T) {
	dir := fixtureDir(t)
	_, report, err := newAggregator(staticVectors(), WithExtensions("flac")).Build(context.Background(), dir)
	if !apperrors.HasCode(err, apperrors.ErrCodeNoEnrollment) {
		t.Fatalf("err = %v, want NO_ENROLLMENT", err)
	}
	if report.Count(OutcomeIgnored) != len(report.Clips) {
		t.Errorf("every file should be ignored: %+v", report.Clips)
	}
}

func TestSet(t *testing.T) {
	s := NewSet(
		Identity{Key: "zoe", Embedding: embedding.Vector{1}},
		Identity{Key: "bob,jones", Embedding: embedding.Vector{2}},
		Identity{Key: "alice", Embedding: embedding.Vector{3}},
	)
	keys := s.Keys()
	if len(keys) != 3 || keys[0] != "alice" || keys[2] != "zoe" {
		t.Fatalf("Keys() = %v", keys)
	}
	keys[0] = "mutated"
	if s.Keys()[0] != "alice" {
		t.Error("Keys() must return a copy")
	}

	f := s.Filter([]string{"bobjones", "Zoe"})
	if f.Len() != 2 {
		t.Errorf("Filter = %v", f.Keys())
	}
	if s.Filter(nil) != s {
		t.Error("empty filter should return the set unchanged")
	}

	var nilSet *Set
	if nilSet.Len() != 0 || nilSet.Keys() != nil {
		t.Error("nil set should be empty")
	}
}

func TestConfig(t *testing.T) {
	var cfg Config
	cfg.ApplyDefaults()
	if cfg.MinClipSeconds != DefaultMinClipSeconds || cfg.Dir != "enroll" {
		t.Errorf("defaults = %+v", cfg)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
	cfg.MinClipSeconds = -1
	if err := cfg.Validate(); err == nil {
		t.Error("negative min_clip_seconds should fail")
	}
}
