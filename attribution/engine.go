package attribution

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/kbukum/speakerid/audio"
	"github.com/kbukum/speakerid/embedding"
	"github.com/kbukum/speakerid/enrollment"
	apperrors "github.com/kbukum/speakerid/errors"
	"github.com/kbukum/speakerid/logger"
	"github.com/kbukum/speakerid/matching"
	"github.com/kbukum/speakerid/observability"
	"github.com/kbukum/speakerid/pipeline"
	"github.com/kbukum/speakerid/segment"
	"github.com/kbukum/speakerid/turn"
	"github.com/kbukum/speakerid/unknown"
)

// Stats counts what happened to the segments of one run.
type Stats struct {
	Total        int `json:"total"`
	SkippedEmpty int `json:"skipped_empty"`
	SkippedShort int `json:"skipped_short"`
	Failed       int `json:"failed"`
	Accepted     int `json:"accepted"`
	Unknown      int `json:"unknown"`
	Turns        int `json:"turns"`
	// UnknownLabels is the number of distinct placeholders assigned.
	UnknownLabels int           `json:"unknown_labels"`
	Elapsed       time.Duration `json:"elapsed"`
}

// Result is the outcome of one run.
type Result struct {
	RunID    string          `json:"run_id"`
	Strategy string          `json:"strategy"`
	Labeled  []turn.Labeled  `json:"labeled"`
	Turns    []turn.Turn     `json:"turns"`
	Unknown  []unknown.Entry `json:"unknown"`
	// Votes holds the per-cluster decisions of the cluster strategy.
	Votes []matching.ClusterVote `json:"votes,omitempty"`
	Stats Stats                  `json:"stats"`
}

// Engine labels segments against one enrolled set.
type Engine struct {
	embedder embedding.Embedder
	set      *enrollment.Set
	cfg      matching.Config
	matcher  *matching.Matcher
	prefix   string
	workers  int
	timeout  time.Duration
	metrics  *observability.AttributionMetrics
	log      *logger.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithMatching sets the matcher configuration.
func WithMatching(cfg matching.Config) Option {
	return func(e *Engine) { e.cfg = cfg }
}

// WithWorkers bounds parallel extractions.
func WithWorkers(n int) Option {
	return func(e *Engine) { e.workers = n }
}

// WithUnknownPrefix sets the placeholder prefix for unmatched clusters.
func WithUnknownPrefix(p string) Option {
	return func(e *Engine) { e.prefix = p }
}

// WithTimeout bounds a whole run. Zero means no deadline.
func WithTimeout(d time.Duration) Option {
	return func(e *Engine) { e.timeout = d }
}

// WithMetrics records segment outcomes on m.
func WithMetrics(m *observability.AttributionMetrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithLogger sets the logger.
func WithLogger(l *logger.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// NewEngine creates an engine for set.
func NewEngine(embedder embedding.Embedder, set *enrollment.Set, opts ...Option) *Engine {
	e := &Engine{
		embedder: embedder,
		set:      set,
		cfg:      matching.DefaultConfig(),
		prefix:   unknown.DefaultPrefix,
		workers:  1,
		log:      logger.Get("attribution"),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.workers < 1 {
		e.workers = 1
	}
	e.matcher = matching.NewMatcher(e.cfg)
	return e
}

// work is a segment selected for extraction.
type work struct {
	index int
	seg   segment.Segment
}

// scored is the extraction outcome of one work item.
type scored struct {
	work
	cands []matching.Candidate
	err   error
}

// Run labels segs using recording as the audio source.
func (e *Engine) Run(ctx context.Context, recording audio.Clip, segs []segment.Segment) (*Result, error) {
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}
	runID := uuid.NewString()
	ctx = logger.ContextWithRunID(ctx, runID)
	log := e.log.WithContext(ctx)

	ctx, span := observability.StartSpan(ctx, observability.SpanAttributionRun, observability.AttrRunID.String(runID))
	defer span.End()

	start := time.Now()
	res, err := e.run(ctx, log, recording, segs)
	if err == nil {
		// A deadline that fired after the last step still discards the result.
		err = ctx.Err()
	}
	if err != nil {
		observability.FailSpan(ctx, err)
		return nil, err
	}

	res.RunID = runID
	res.Stats.Elapsed = time.Since(start)
	log.Info("attribution run complete", logger.Fields(
		"strategy", res.Strategy,
		"segments", res.Stats.Total,
		"accepted", res.Stats.Accepted,
		"unknown", res.Stats.Unknown,
		"unknown_labels", res.Stats.UnknownLabels,
		"skipped_empty", res.Stats.SkippedEmpty,
		"skipped_short", res.Stats.SkippedShort,
		"failed", res.Stats.Failed,
		"turns", res.Stats.Turns,
		logger.FieldDuration, res.Stats.Elapsed.Milliseconds(),
	))
	return res, nil
}

func (e *Engine) run(ctx context.Context, log *logger.Logger, recording audio.Clip, segs []segment.Segment) (*Result, error) {
	if e.set.Len() == 0 {
		return nil, apperrors.NoEnrollment("")
	}
	if err := recording.Require("recording"); err != nil {
		return nil, err
	}
	rec := recording.Mono()

	res := &Result{Strategy: e.cfg.Strategy}
	res.Stats.Total = len(segs)
	todo := e.screen(ctx, segs, &res.Stats)

	extracted, err := e.extract(ctx, rec, todo)
	if err != nil {
		return nil, err
	}

	ok := extracted[:0]
	for _, s := range extracted {
		if s.err != nil {
			res.Stats.Failed++
			e.metrics.RecordSegment(ctx, observability.OutcomeFailed)
			log.Warn("segment skipped: embedding failed", logger.Fields(
				logger.FieldSegment, s.index,
				"start", s.seg.Start,
				"end", s.seg.End,
				logger.FieldCluster, s.seg.Speaker,
				logger.FieldError, s.err.Error(),
			))
			continue
		}
		ok = append(ok, s)
	}

	tracker := unknown.NewTracker(e.prefix)
	res.Labeled, res.Votes = e.decide(ctx, ok, tracker)
	for _, l := range res.Labeled {
		if l.Unknown {
			res.Stats.Unknown++
			e.metrics.RecordSegment(ctx, observability.OutcomeUnknown)
		} else {
			res.Stats.Accepted++
			e.metrics.RecordSegment(ctx, observability.OutcomeAccepted)
		}
	}

	res.Turns = turn.Merge(res.Labeled)
	res.Unknown = tracker.Mapping()
	res.Stats.Turns = len(res.Turns)
	res.Stats.UnknownLabels = tracker.Len()
	return res, nil
}

// screen drops segments without text or below the minimum duration.
func (e *Engine) screen(ctx context.Context, segs []segment.Segment, stats *Stats) []work {
	todo := make([]work, 0, len(segs))
	for i, s := range segs {
		switch {
		case !s.HasText():
			stats.SkippedEmpty++
			e.metrics.RecordSegment(ctx, observability.OutcomeSkippedEmpty)
		case s.Duration() < e.cfg.MinSegmentSeconds:
			stats.SkippedShort++
			e.metrics.RecordSegment(ctx, observability.OutcomeSkippedShort)
		default:
			todo = append(todo, work{index: i, seg: s})
		}
	}
	return todo
}

// extract embeds and scores every work item concurrently and returns the
// results in segment order. Per-segment failures are carried in the
// result; only cancellation and an unavailable model abort.
func (e *Engine) extract(ctx context.Context, rec audio.Clip, todo []work) ([]scored, error) {
	ctx, span := observability.StartSpan(ctx, observability.SpanExtract, observability.AttrSegments.Int(len(todo)))
	defer span.End()

	p := pipeline.Parallel(pipeline.Enumerate(pipeline.FromSlice(todo)), e.workers,
		func(ctx context.Context, w pipeline.Indexed[work]) (pipeline.Indexed[scored], error) {
			out := pipeline.Indexed[scored]{Index: w.Index, Value: scored{work: w.Value}}
			cands, err := e.score(ctx, rec, w.Value.seg)
			if err != nil {
				if ctx.Err() != nil {
					return out, ctx.Err()
				}
				if apperrors.HasCode(err, apperrors.ErrCodeModelUnavailable) {
					return out, err
				}
				out.Value.err = err
				return out, nil
			}
			out.Value.cands = cands
			return out, nil
		})

	results, err := pipeline.Collect(ctx, p)
	if err != nil {
		observability.FailSpan(ctx, err)
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	sort.Slice(results, func(i, j int) bool { return results[i].Index < results[j].Index })

	out := make([]scored, len(results))
	for i, r := range results {
		out[i] = r.Value
	}
	return out, nil
}

func (e *Engine) score(ctx context.Context, rec audio.Clip, seg segment.Segment) ([]matching.Candidate, error) {
	clip := rec.Slice(seg.Start, seg.End)
	if err := clip.Require("segment audio"); err != nil {
		return nil, err
	}
	v, err := e.embedder.Embed(ctx, clip)
	if err != nil {
		return nil, err
	}
	return matching.Score(v, e.set), nil
}

// decide labels the extracted segments in order.
func (e *Engine) decide(ctx context.Context, items []scored, tracker *unknown.Tracker) ([]turn.Labeled, []matching.ClusterVote) {
	_, span := observability.StartSpan(ctx, observability.SpanDecide)
	defer span.End()

	if e.cfg.Strategy == matching.StrategyCluster {
		return e.decideClusters(items, tracker)
	}

	session := e.matcher.NewSession()
	out := make([]turn.Labeled, 0, len(items))
	for _, it := range items {
		d := session.Decide(it.cands)
		out = append(out, label(it.seg, d.Accepted, d.Key, d.Score, d.Margin, tracker))
	}
	return out, nil
}

// decideClusters votes once per diarization cluster, in first-seen order,
// and applies each cluster's outcome to all of its segments.
func (e *Engine) decideClusters(items []scored, tracker *unknown.Tracker) ([]turn.Labeled, []matching.ClusterVote) {
	byCluster := map[string][][]matching.Candidate{}
	var order []string
	for _, it := range items {
		c := it.seg.Speaker
		if _, ok := byCluster[c]; !ok {
			order = append(order, c)
		}
		byCluster[c] = append(byCluster[c], it.cands)
	}

	votes := make([]matching.ClusterVote, 0, len(order))
	byVote := make(map[string]matching.ClusterVote, len(order))
	for _, c := range order {
		v := e.matcher.Vote(c, byCluster[c])
		votes = append(votes, v)
		byVote[c] = v
	}

	out := make([]turn.Labeled, 0, len(items))
	for _, it := range items {
		v := byVote[it.seg.Speaker]
		best, margin := rawBest(it.cands)
		out = append(out, label(it.seg, v.Accepted, v.Key, best, margin, tracker))
	}
	return out, votes
}

func label(seg segment.Segment, accepted bool, key string, score, margin float64, tracker *unknown.Tracker) turn.Labeled {
	l := turn.Labeled{Segment: seg, Score: score, Margin: margin}
	if accepted {
		l.Label = key
	} else {
		l.Label = tracker.Label(seg.Speaker)
		l.Unknown = true
	}
	return l
}

// rawBest returns the best score and its lead over the runner-up of
// ranked candidates.
func rawBest(cands []matching.Candidate) (float64, float64) {
	switch len(cands) {
	case 0:
		return 0, 0
	case 1:
		return cands[0].Score, 0
	}
	return cands[0].Score, cands[0].Score - cands[1].Score
}
