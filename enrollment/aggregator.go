package enrollment

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kbukum/speakerid/embedding"
	apperrors "github.com/kbukum/speakerid/errors"
	"github.com/kbukum/speakerid/identity"
	"github.com/kbukum/speakerid/logger"
	"github.com/kbukum/speakerid/media"
	"github.com/kbukum/speakerid/observability"
)

// Clip outcomes recorded in a Report.
const (
	OutcomeUsed     = observability.ClipUsed
	OutcomeTooShort = observability.ClipTooShort
	OutcomeFiltered = observability.ClipFiltered
	OutcomeFailed   = observability.ClipFailed
	// OutcomeIgnored marks files with an unsupported extension or no key.
	OutcomeIgnored = "ignored"
)

// ClipResult describes what happened to one file in the directory.
type ClipResult struct {
	Path    string  `json:"path"`
	Key     string  `json:"key,omitempty"`
	Seconds float64 `json:"seconds,omitempty"`
	Outcome string  `json:"outcome"`
	Error   string  `json:"error,omitempty"`
}

// Report summarizes a Build.
type Report struct {
	Dir        string        `json:"dir"`
	Clips      []ClipResult  `json:"clips"`
	Identities int           `json:"identities"`
	Elapsed    time.Duration `json:"elapsed"`
}

// Count returns how many clips ended with outcome.
func (r Report) Count(outcome string) int {
	n := 0
	for _, c := range r.Clips {
		if c.Outcome == outcome {
			n++
		}
	}
	return n
}

// Aggregator builds a Set from a directory of enrollment recordings.
type Aggregator struct {
	loader         media.Loader
	embedder       embedding.Embedder
	minClipSeconds float64
	extensions     []string
	participants   []string
	workers        int
	metrics        *observability.AttributionMetrics
	log            *logger.Logger
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithMinClipSeconds sets the minimum clip duration.
func WithMinClipSeconds(s float64) Option {
	return func(a *Aggregator) { a.minClipSeconds = s }
}

// WithExtensions overrides the loader's accepted extensions.
func WithExtensions(exts ...string) Option {
	return func(a *Aggregator) {
		a.extensions = nil
		for _, e := range exts {
			e = strings.ToLower(strings.TrimSpace(e))
			if e != "" && !strings.HasPrefix(e, ".") {
				e = "." + e
			}
			if e != "" {
				a.extensions = append(a.extensions, e)
			}
		}
	}
}

// WithParticipants restricts enrollment to the given participants.
func WithParticipants(p []string) Option {
	return func(a *Aggregator) { a.participants = p }
}

// WithWorkers bounds concurrent clip extraction.
func WithWorkers(n int) Option {
	return func(a *Aggregator) { a.workers = n }
}

// WithMetrics records clip outcomes on m.
func WithMetrics(m *observability.AttributionMetrics) Option {
	return func(a *Aggregator) { a.metrics = m }
}

// WithLogger sets the logger.
func WithLogger(l *logger.Logger) Option {
	return func(a *Aggregator) { a.log = l }
}

// WithConfig applies the duration, extension, and participant settings of cfg.
func WithConfig(cfg Config) Option {
	return func(a *Aggregator) {
		a.minClipSeconds = cfg.MinClipSeconds
		if len(cfg.Extensions) > 0 {
			WithExtensions(cfg.Extensions...)(a)
		}
		a.participants = cfg.Participants
	}
}

// NewAggregator creates an aggregator.
func NewAggregator(loader media.Loader, embedder embedding.Embedder, opts ...Option) *Aggregator {
	a := &Aggregator{
		loader:         loader,
		embedder:       embedder,
		minClipSeconds: DefaultMinClipSeconds,
		workers:        1,
		log:            logger.Get("enrollment"),
	}
	for _, opt := range opts {
		opt(a)
	}
	if len(a.extensions) == 0 {
		a.extensions = loader.Extensions()
	}
	if a.workers < 1 {
		a.workers = 1
	}
	return a
}

type pending struct {
	idx  int
	path string
	key  string
}

// Build scans dir and returns the enrolled set.
//
// Clips that are too short, filtered out, or fail to load or embed are
// reported and skipped. Build fails with NOT_FOUND when dir is missing
// and with NO_ENROLLMENT when no identity survives.
func (a *Aggregator) Build(ctx context.Context, dir string) (*Set, Report, error) {
	ctx, span := observability.StartSpan(ctx, observability.SpanEnrollmentBuild)
	defer span.End()
	start := time.Now()

	report := Report{Dir: dir}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, report, apperrors.NotFound("enrollment directory", dir)
		}
		return nil, report, apperrors.Internal(err).WithDetail("dir", dir)
	}

	var todo []pending
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		path := filepath.Join(dir, e.Name())
		res := ClipResult{Path: path}
		if a.screen(ctx, &res) {
			todo = append(todo, pending{idx: len(report.Clips), path: path, key: res.Key})
		}
		report.Clips = append(report.Clips, res)
	}

	vectors, err := a.embedAll(ctx, todo, report.Clips)
	if err != nil {
		observability.FailSpan(ctx, err)
		return nil, report, err
	}

	set := a.aggregate(todo, vectors, report.Clips)
	report.Identities = set.Len()
	report.Elapsed = time.Since(start)
	observability.Annotate(ctx, observability.AttrIdentities.Int(set.Len()))

	a.log.Info("enrollment built", logger.Fields(
		"dir", dir,
		"identities", set.Len(),
		"used", report.Count(OutcomeUsed),
		"too_short", report.Count(OutcomeTooShort),
		"filtered", report.Count(OutcomeFiltered),
		"failed", report.Count(OutcomeFailed),
		logger.FieldDuration, report.Elapsed.Milliseconds(),
	))

	if set.Len() == 0 {
		err := apperrors.NoEnrollment(dir)
		observability.FailSpan(ctx, err)
		return nil, report, err
	}
	return set, report, nil
}

// screen decides whether a file is embedded. It fills res with the key,
// duration, and a terminal outcome for files that are skipped.
func (a *Aggregator) screen(ctx context.Context, res *ClipResult) bool {
	if !a.supported(res.Path) {
		res.Outcome = OutcomeIgnored
		return false
	}
	res.Key = identity.KeyFromFilename(res.Path)
	if res.Key == "" {
		a.log.Warn("enrollment file has no identity key", logger.Fields(logger.FieldPath, res.Path))
		res.Outcome = OutcomeIgnored
		return false
	}
	if !identity.MatchesAny(res.Key, a.participants) {
		a.log.Debug("skipping non-participant", logger.Fields(logger.FieldPath, res.Path, logger.FieldIdentity, res.Key))
		a.finish(ctx, res, OutcomeFiltered, nil)
		return false
	}
	secs, err := a.loader.Duration(ctx, res.Path)
	if err != nil {
		a.log.Warn("cannot read enrollment clip duration", logger.Fields(
			logger.FieldPath, res.Path, logger.FieldError, err.Error()))
		a.finish(ctx, res, OutcomeFailed, err)
		return false
	}
	res.Seconds = secs
	if secs < a.minClipSeconds {
		a.log.Info("enrollment clip too short", logger.Fields(
			logger.FieldPath, res.Path, "seconds", secs, "min_seconds", a.minClipSeconds))
		a.finish(ctx, res, OutcomeTooShort, nil)
		return false
	}
	return true
}

func (a *Aggregator) embedAll(ctx context.Context, todo []pending, clips []ClipResult) ([]embedding.Vector, error) {
	vectors := make([]embedding.Vector, len(todo))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.workers)

	for i := range todo {
		g.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}
			p := todo[i]
			v, err := a.embedFile(gctx, p.path)
			if err != nil {
				// Only cancellation aborts the build; a bad clip is skipped.
				if ctx.Err() != nil {
					return ctx.Err()
				}
				a.log.Warn("enrollment clip failed", logger.Fields(
					logger.FieldPath, p.path, logger.FieldIdentity, p.key, logger.FieldError, err.Error()))
				a.finish(gctx, &clips[p.idx], OutcomeFailed, err)
				return nil
			}
			vectors[i] = v
			a.finish(gctx, &clips[p.idx], OutcomeUsed, nil)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return vectors, nil
}

func (a *Aggregator) embedFile(ctx context.Context, path string) (embedding.Vector, error) {
	clip, err := a.loader.Load(ctx, path)
	if err != nil {
		return nil, err
	}
	if err := clip.Require(path); err != nil {
		return nil, err
	}
	return a.embedder.Embed(ctx, clip)
}

// aggregate averages the embeddings of each key's successful clips.
func (a *Aggregator) aggregate(todo []pending, vectors []embedding.Vector, clips []ClipResult) *Set {
	byKey := map[string]*Identity{}
	perKey := map[string][]embedding.Vector{}
	var order []string
	for i, p := range todo {
		if vectors[i] == nil {
			continue
		}
		id, ok := byKey[p.key]
		if !ok {
			id = &Identity{Key: p.key}
			byKey[p.key] = id
			order = append(order, p.key)
		}
		id.ClipCount++
		id.Seconds += clips[p.idx].Seconds
		id.Sources = append(id.Sources, filepath.Base(p.path))
		perKey[p.key] = append(perKey[p.key], vectors[i])
	}

	ids := make([]Identity, 0, len(order))
	for _, key := range order {
		mean, err := embedding.Mean(perKey[key]...)
		if err != nil {
			a.log.Warn("cannot average identity embeddings", logger.Fields(
				logger.FieldIdentity, key, logger.FieldError, err.Error()))
			continue
		}
		id := byKey[key]
		id.Embedding = mean
		ids = append(ids, *id)
	}
	return NewSet(ids...)
}

func (a *Aggregator) finish(ctx context.Context, res *ClipResult, outcome string, err error) {
	res.Outcome = outcome
	if err != nil {
		res.Error = err.Error()
	}
	a.metrics.RecordClip(ctx, outcome)
}

func (a *Aggregator) supported(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range a.extensions {
		if e == ext {
			return true
		}
	}
	return false
}
