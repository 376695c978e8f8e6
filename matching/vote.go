package matching

// ClusterVote is the decision for one diarization cluster.
type ClusterVote struct {
	Cluster  string `json:"cluster"`
	Key      string `json:"key,omitempty"`
	Accepted bool   `json:"accepted"`
	// Mean is the best identity's mean score across the cluster.
	Mean float64 `json:"mean"`
	// Margin is Mean minus the runner-up's mean.
	Margin   float64 `json:"margin"`
	Segments int     `json:"segments"`
	// LargeMargin is set when acceptance came from the lower threshold.
	LargeMargin bool        `json:"large_margin,omitempty"`
	Reason      string      `json:"reason"`
	Means       []Candidate `json:"means,omitempty"`
}

// Vote decides a cluster from the scored candidates of its segments.
//
// A cluster is accepted when its best mean clears AggregateThreshold with
// the usual margin, or clears LowerThreshold with a LargeMargin lead.
func (m *Matcher) Vote(cluster string, scored [][]Candidate) ClusterVote {
	v := ClusterVote{Cluster: cluster, Segments: len(scored)}

	sums := map[string]float64{}
	counts := map[string]int{}
	var order []string
	for _, cands := range scored {
		for _, c := range cands {
			if _, ok := counts[c.Key]; !ok {
				order = append(order, c.Key)
			}
			sums[c.Key] += c.Score
			counts[c.Key]++
		}
	}
	if len(order) == 0 {
		v.Reason = ReasonNoCandidates
		return v
	}

	means := make([]Candidate, 0, len(order))
	for _, k := range order {
		means = append(means, Candidate{Key: k, Score: sums[k] / float64(counts[k])})
	}
	Rank(means)
	best, second := topTwo(means)
	v.Means = means
	v.Mean = best.Score
	v.Margin = best.Score - second.Score

	cc := m.cfg.Cluster
	n := len(means)
	standard := best.Score >= cc.AggregateThreshold && m.marginOK(n, v.Margin, m.cfg.MarginThreshold)
	large := best.Score >= cc.LowerThreshold && m.marginOK(n, v.Margin, cc.LargeMargin)

	switch {
	case standard || large:
		v.Accepted = true
		v.Key = best.Key
		v.LargeMargin = !standard
		v.Reason = ReasonAccepted
	case best.Score < cc.LowerThreshold:
		v.Reason = ReasonBelowThreshold
	default:
		v.Reason = ReasonLowMargin
	}
	return v
}
