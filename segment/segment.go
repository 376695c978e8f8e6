// Package segment reads the diarized, transcribed utterances an
// attribution run consumes.
//
// Two document shapes are accepted:
//
//   - a JSON array of {"start", "end", "speaker", "text"} in seconds,
//     optionally wrapped as {"segments": [...]};
//   - an AssemblyAI transcript {"utterances": [...]} whose times are in
//     milliseconds.
package segment

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	apperrors "github.com/kbukum/speakerid/errors"
)

// Segment is one diarized utterance.
type Segment struct {
	// Start is the segment start time in seconds.
	Start float64 `json:"start"`
	// End is the segment end time in seconds.
	End float64 `json:"end"`
	// Speaker is the diarization cluster label. It is opaque and stable
	// only within one diarization run.
	Speaker string `json:"speaker"`
	// Text is the transcribed text.
	Text string `json:"text"`
}

// Duration returns End - Start in seconds.
func (s Segment) Duration() float64 { return s.End - s.Start }

// HasText reports whether the segment carries non-blank text.
func (s Segment) HasText() bool { return strings.TrimSpace(s.Text) != "" }

// rawSegment accepts null fields so they can be defaulted.
type rawSegment struct {
	Start   *float64 `json:"start"`
	End     *float64 `json:"end"`
	Speaker *string  `json:"speaker"`
	Text    *string  `json:"text"`
}

type document struct {
	Segments   []rawSegment `json:"segments"`
	Utterances []rawSegment `json:"utterances"`
}

// Parse decodes a segment document. A segment without a speaker gets
// "SPEAKER_<index>". Malformed JSON, negative times, and end < start
// fail with INVALID_INPUT.
func Parse(r io.Reader) ([]Segment, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, apperrors.InvalidInput("segments", err.Error())
	}
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, apperrors.InvalidInput("segments", "empty document")
	}

	var raws []rawSegment
	unit := 1.0
	switch data[0] {
	case '[':
		if err := json.Unmarshal(data, &raws); err != nil {
			return nil, invalid(err)
		}
	case '{':
		var doc document
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, invalid(err)
		}
		switch {
		case doc.Utterances != nil:
			raws, unit = doc.Utterances, 1000
		case doc.Segments != nil:
			raws = doc.Segments
		default:
			return nil, apperrors.InvalidInput("segments", `expected a "segments" or "utterances" list`)
		}
	default:
		return nil, apperrors.InvalidInput("segments", "expected a JSON array or object")
	}

	out := make([]Segment, 0, len(raws))
	for i, raw := range raws {
		seg := Segment{
			Start:   deref(raw.Start) / unit,
			End:     deref(raw.End) / unit,
			Speaker: strings.TrimSpace(derefString(raw.Speaker)),
			Text:    strings.TrimSpace(derefString(raw.Text)),
		}
		if seg.Speaker == "" {
			seg.Speaker = fmt.Sprintf("SPEAKER_%d", i)
		}
		if err := seg.validate(); err != nil {
			return nil, err.WithDetail("index", i)
		}
		out = append(out, seg)
	}
	return out, nil
}

// Load parses the segment document at path.
func Load(path string) ([]Segment, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, apperrors.NotFound("segments", path)
		}
		return nil, apperrors.InvalidInput("segments", err.Error())
	}
	defer f.Close()
	return Parse(f)
}

// Encode writes segments as an indented JSON array in seconds.
func Encode(w io.Writer, segs []Segment) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(segs)
}

func (s Segment) validate() *apperrors.AppError {
	switch {
	case math.IsNaN(s.Start) || math.IsNaN(s.End) || math.IsInf(s.Start, 0) || math.IsInf(s.End, 0):
		return apperrors.InvalidInput("segments", "times must be finite")
	case s.Start < 0:
		return apperrors.InvalidInput("segments", fmt.Sprintf("negative start %.3f", s.Start))
	case s.End < s.Start:
		return apperrors.InvalidInput("segments", fmt.Sprintf("end %.3f before start %.3f", s.End, s.Start))
	}
	return nil
}

func invalid(err error) error {
	return apperrors.InvalidInput("segments", err.Error())
}

func deref(f *float64) float64 {
	if f == nil {
		return 0
	}
	return *f
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
