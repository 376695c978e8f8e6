// Package turn coalesces labeled segments into speaker turns.
package turn

import (
	"strings"

	"github.com/kbukum/speakerid/segment"
)

// Labeled is a segment with its final speaker label.
type Labeled struct {
	segment.Segment
	// Label is the identity key or unknown placeholder. Never empty.
	Label string `json:"label"`
	// Score is the best known-identity score, even when rejected.
	Score float64 `json:"score"`
	// Margin is the best score's lead over the runner-up.
	Margin  float64 `json:"margin"`
	Unknown bool    `json:"unknown"`
	// Merged counts the source segments this entry stands for; zero
	// means one.
	Merged int `json:"-"`
}

func (l Labeled) weight() int {
	if l.Merged > 0 {
		return l.Merged
	}
	return 1
}

// Turn is one or more consecutive segments with the same label.
type Turn struct {
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
	Label   string  `json:"label"`
	Text    string  `json:"text"`
	Score   float64 `json:"score"`
	Margin  float64 `json:"margin"`
	Unknown bool    `json:"unknown"`
	// Speaker is the diarization cluster of the first merged segment.
	Speaker  string `json:"speaker"`
	Segments int    `json:"segments"`
}

// Labeled returns the turn as a single labeled entry.
func (t Turn) Labeled() Labeled {
	return Labeled{
		Segment: segment.Segment{Start: t.Start, End: t.End, Speaker: t.Speaker, Text: t.Text},
		Label:   t.Label,
		Score:   t.Score,
		Margin:  t.Margin,
		Unknown: t.Unknown,
		Merged:  t.Segments,
	}
}

// Merge walks segs once in order. Segments with blank text are dropped;
// a segment whose label equals the current turn's extends it, joining
// text with a single space and keeping the highest score and lowest
// margin. Any other label starts a new turn.
func Merge(segs []Labeled) []Turn {
	var out []Turn
	for _, s := range segs {
		text := strings.TrimSpace(s.Text)
		if text == "" {
			continue
		}
		if n := len(out); n > 0 && out[n-1].Label == s.Label {
			cur := &out[n-1]
			cur.Text += " " + text
			if s.End > cur.End {
				cur.End = s.End
			}
			cur.Score = max(cur.Score, s.Score)
			cur.Margin = min(cur.Margin, s.Margin)
			cur.Segments += s.weight()
			continue
		}
		out = append(out, Turn{
			Start:    s.Start,
			End:      s.End,
			Label:    s.Label,
			Text:     text,
			Score:    s.Score,
			Margin:   s.Margin,
			Unknown:  s.Unknown,
			Speaker:  s.Speaker,
			Segments: s.weight(),
		})
	}
	return out
}

// Relabel returns turns with every label replaced by fn(turn) and merges
// again, so adjacent turns whose new labels coincide join.
func Relabel(turns []Turn, fn func(Turn) string) []Turn {
	segs := make([]Labeled, len(turns))
	for i, t := range turns {
		l := t.Labeled()
		l.Label = fn(t)
		segs[i] = l
	}
	return Merge(segs)
}
