package transcript

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kbukum/speakerid/identity"
	"github.com/kbukum/speakerid/turn"
)

func sampleTurns() []turn.Turn {
	return []turn.Turn{
		{Start: 0, End: 4, Label: "bob,jones", Text: "Morning everyone.", Score: 0.82},
		{Start: 4, End: 6, Label: "Unknown Speaker 1", Text: "Hi.", Score: 0.31, Unknown: true},
		{Start: 6, End: 9, Label: "alice", Text: "Let's start.", Score: 0.77},
	}
}

func directory(t *testing.T) *identity.Directory {
	t.Helper()
	d := identity.NewDirectory()
	if err := d.ReadProfiles(strings.NewReader(`{"alice": {"display_name": "Alice Liddell"}}`)); err != nil {
		t.Fatal(err)
	}
	return d
}

func TestText(t *testing.T) {
	got := Text(sampleTurns(), directory(t))
	want := "Bob Jones: Morning everyone.\n\nUnknown Speaker 1: Hi.\n\nAlice Liddell: Let's start.\n"
	if got != want {
		t.Errorf("Text =\n%q\nwant\n%q", got, want)
	}
	if Text(nil, nil) != "" {
		t.Error("no turns should render nothing")
	}
}

func TestText_MergesSharedDisplayName(t *testing.T) {
	d := identity.NewDirectory()
	profiles := `{"alice": {"display_name": "Alice"}, "alice2": {"display_name": "Alice"}}`
	if err := d.ReadProfiles(strings.NewReader(profiles)); err != nil {
		t.Fatal(err)
	}
	turns := []turn.Turn{
		{Start: 0, End: 2, Label: "alice", Text: "First.", Segments: 1},
		{Start: 2, End: 4, Label: "alice2", Text: "Second.", Segments: 1},
		{Start: 4, End: 5, Label: "Unknown Speaker 1", Text: "Hm.", Unknown: true, Segments: 1},
		{Start: 5, End: 6, Label: "Unknown Speaker 2", Text: "Yes.", Unknown: true, Segments: 1},
	}
	want := "Alice: First. Second.\n\nUnknown Speaker 1: Hm.\n\nUnknown Speaker 2: Yes.\n"
	if got := Text(turns, d); got != want {
		t.Errorf("Text =\n%q\nwant\n%q", got, want)
	}
	if recs := Records(turns, d); len(recs) != 4 || recs[1].Label != "alice2" {
		t.Errorf("records should stay per turn: %+v", recs)
	}
}

func TestRecords(t *testing.T) {
	recs := Records(sampleTurns(), nil)
	if len(recs) != 3 {
		t.Fatalf("len = %d", len(recs))
	}
	if recs[0].Speaker != "Bob Jones" || recs[0].Label != "bob,jones" {
		t.Errorf("recs[0] = %+v", recs[0])
	}
	if !recs[1].Unknown || recs[1].Speaker != "Unknown Speaker 1" {
		t.Errorf("recs[1] = %+v", recs[1])
	}
	if recs[2].Speaker != "Alice" {
		t.Errorf("recs[2] = %+v", recs[2])
	}
}

func TestDisplayName_UnknownNotResolved(t *testing.T) {
	d := identity.NewDirectory()
	if err := d.ReadProfiles(strings.NewReader(`{"unknown speaker 1": {"display_name": "Mallory"}}`)); err != nil {
		t.Fatal(err)
	}
	tr := turn.Turn{Label: "Unknown Speaker 1", Unknown: true}
	if got := DisplayName(tr, d); got != "Unknown Speaker 1" {
		t.Errorf("DisplayName = %q", got)
	}
}

func TestWrite(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	paths, err := Write(dir, "meeting", sampleTurns(), directory(t))
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if filepath.Base(paths.Text) != "meeting_named_script.txt" || filepath.Base(paths.JSON) != "meeting_named_script.json" {
		t.Errorf("paths = %+v", paths)
	}

	txt, err := os.ReadFile(paths.Text)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(txt), "Bob Jones: Morning everyone.\n\n") {
		t.Errorf("text = %q", txt)
	}

	raw, err := os.ReadFile(paths.JSON)
	if err != nil {
		t.Fatal(err)
	}
	var recs []Record
	if err := json.Unmarshal(raw, &recs); err != nil {
		t.Fatalf("json: %v", err)
	}
	if len(recs) != 3 || recs[2].Speaker != "Alice Liddell" {
		t.Errorf("records = %+v", recs)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		var names []string
		for _, e := range entries {
			names = append(names, e.Name())
		}
		t.Errorf("temp files left behind: %v", names)
	}
}

func TestWrite_Overwrites(t *testing.T) {
	dir := t.TempDir()
	if _, err := Write(dir, "m", sampleTurns(), nil); err != nil {
		t.Fatal(err)
	}
	paths, err := Write(dir, "m", sampleTurns()[:1], nil)
	if err != nil {
		t.Fatal(err)
	}
	txt, _ := os.ReadFile(paths.Text)
	if string(txt) != "Bob Jones: Morning everyone.\n" {
		t.Errorf("text = %q", txt)
	}
}
