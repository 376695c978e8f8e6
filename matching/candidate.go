package matching

import (
	"cmp"
	"slices"

	"github.com/kbukum/speakerid/embedding"
	"github.com/kbukum/speakerid/enrollment"
)

// Candidate is one identity's similarity to a segment.
type Candidate struct {
	Key   string  `json:"key"`
	Score float64 `json:"score"`
}

// Score rates v against every identity in set, best first.
func Score(v embedding.Vector, set *enrollment.Set) []Candidate {
	ids := set.Identities()
	out := make([]Candidate, 0, len(ids))
	for _, id := range ids {
		out = append(out, Candidate{Key: id.Key, Score: embedding.Cosine(v, id.Embedding)})
	}
	Rank(out)
	return out
}

// Rank sorts candidates by descending score. Equal scores are ordered by
// ascending key so ties resolve deterministically.
func Rank(cands []Candidate) {
	slices.SortStableFunc(cands, func(a, b Candidate) int {
		if c := cmp.Compare(b.Score, a.Score); c != 0 {
			return c
		}
		return cmp.Compare(a.Key, b.Key)
	})
}

// topTwo returns the best and runner-up scores of ranked candidates. With
// a single candidate the runner-up is the best itself.
func topTwo(ranked []Candidate) (best, second Candidate) {
	best = ranked[0]
	second = best
	if len(ranked) > 1 {
		second = ranked[1]
	}
	return best, second
}
