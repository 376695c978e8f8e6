// Package transcript renders speaker turns for people and programs.
//
// Records gives one JSON-friendly record per turn. Text gives the
// readable script, one "<Name>: <text>" paragraph per speaker change
// separated by blank lines. Write stores both next to each other without
// ever exposing a half-written file.
package transcript

import (
	"strings"

	"github.com/kbukum/speakerid/identity"
	"github.com/kbukum/speakerid/turn"
)

// Record is one turn in the structured output.
type Record struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	// Speaker is the display name shown in the script.
	Speaker string `json:"speaker"`
	// Label is the identity key or unknown placeholder.
	Label   string  `json:"label"`
	Score   float64 `json:"score"`
	Unknown bool    `json:"unknown"`
	Text    string  `json:"text"`
}

// DisplayName returns how a turn's speaker is shown. Unknown
// placeholders are kept as they are; identity keys go through dir.
func DisplayName(t turn.Turn, dir *identity.Directory) string {
	if t.Unknown {
		return t.Label
	}
	return dir.DisplayName(t.Label)
}

// Records converts turns to output records. dir may be nil.
func Records(turns []turn.Turn, dir *identity.Directory) []Record {
	out := make([]Record, 0, len(turns))
	for _, t := range turns {
		out = append(out, Record{
			Start:   t.Start,
			End:     t.End,
			Speaker: DisplayName(t, dir),
			Label:   t.Label,
			Score:   t.Score,
			Unknown: t.Unknown,
			Text:    t.Text,
		})
	}
	return out
}

// Text renders the readable script. Adjacent turns whose display names
// coincide share one paragraph. The result ends with a newline unless
// there are no turns.
func Text(turns []turn.Turn, dir *identity.Directory) string {
	if len(turns) == 0 {
		return ""
	}
	turns = turn.Relabel(turns, func(t turn.Turn) string { return DisplayName(t, dir) })
	var b strings.Builder
	for i, t := range turns {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(t.Label)
		b.WriteString(": ")
		b.WriteString(t.Text)
	}
	b.WriteByte('\n')
	return b.String()
}
