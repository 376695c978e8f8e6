package matching

import (
	"slices"
)

// Rejection reasons reported in a Decision.
const (
	ReasonAccepted       = "accepted"
	ReasonBelowThreshold = "below_threshold"
	ReasonLowMargin      = "low_margin"
	ReasonNoCandidates   = "no_candidates"
)

// Decision is the outcome for one segment.
type Decision struct {
	// Key is the accepted identity, empty when rejected.
	Key      string `json:"key,omitempty"`
	Accepted bool   `json:"accepted"`
	// Best is the identity that won the raw ranking, accepted or not.
	// When Smoothed is set the gate judged a different candidate.
	Best string `json:"best,omitempty"`
	// Score and Margin are the raw best score and raw lead over the
	// runner-up, before any smoothing.
	Score  float64 `json:"score"`
	Margin float64 `json:"margin"`
	// Smoothed reports whether the switch penalty changed the ranking.
	Smoothed   bool        `json:"smoothed,omitempty"`
	Reason     string      `json:"reason"`
	Candidates []Candidate `json:"candidates,omitempty"`
}

// Matcher applies the confidence gate. It holds no state between calls
// and is safe for concurrent use.
type Matcher struct {
	cfg Config
}

// NewMatcher creates a matcher. cfg should already carry defaults.
func NewMatcher(cfg Config) *Matcher {
	return &Matcher{cfg: cfg}
}

// Config returns the matcher configuration.
func (m *Matcher) Config() Config { return m.cfg }

// Decide gates the candidates of one segment. prev is the last accepted
// identity; it only matters when smoothing is enabled.
func (m *Matcher) Decide(cands []Candidate, prev string) Decision {
	if len(cands) == 0 {
		return Decision{Reason: ReasonNoCandidates}
	}
	ranked := slices.Clone(cands)
	Rank(ranked)

	rawBest, rawSecond := topTwo(ranked)
	d := Decision{
		Best:       rawBest.Key,
		Score:      rawBest.Score,
		Margin:     rawBest.Score - rawSecond.Score,
		Candidates: ranked,
	}

	pool := ranked
	if m.cfg.Smoothing && prev != "" {
		pool = m.penalize(ranked, prev)
		d.Smoothed = pool[0].Key != rawBest.Key
	}
	best, second := topTwo(pool)

	switch {
	case best.Score < m.cfg.SimilarityThreshold:
		d.Reason = ReasonBelowThreshold
	case !m.marginOK(len(pool), best.Score-second.Score, m.cfg.MarginThreshold):
		d.Reason = ReasonLowMargin
	default:
		d.Reason = ReasonAccepted
		d.Accepted = true
		d.Key = best.Key
	}
	return d
}

// penalize lowers every candidate except prev by SwitchPenalty and re-ranks.
func (m *Matcher) penalize(ranked []Candidate, prev string) []Candidate {
	adjusted := make([]Candidate, len(ranked))
	for i, c := range ranked {
		if c.Key != prev {
			c.Score -= m.cfg.SwitchPenalty
		}
		adjusted[i] = c
	}
	Rank(adjusted)
	return adjusted
}

func (m *Matcher) marginOK(n int, margin, threshold float64) bool {
	if n == 1 && m.cfg.SingleIdentity != StrictMargin {
		return true
	}
	return margin >= threshold
}

// Session runs the matcher over segments in chronological order.
// It is not safe for concurrent use.
type Session struct {
	m    *Matcher
	prev string
}

// NewSession starts a pass with no previous identity.
func (m *Matcher) NewSession() *Session {
	return &Session{m: m}
}

// Decide gates one segment. The previous identity advances only when the
// segment is accepted; a rejection leaves it untouched.
func (s *Session) Decide(cands []Candidate) Decision {
	d := s.m.Decide(cands, s.prev)
	if d.Accepted {
		s.prev = d.Key
	}
	return d
}

// Previous returns the last accepted identity.
func (s *Session) Previous() string { return s.prev }
