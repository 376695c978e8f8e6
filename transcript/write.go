package transcript

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/kbukum/speakerid/identity"
	"github.com/kbukum/speakerid/turn"
)

// Suffix is appended to the stem of every output file.
const Suffix = "_named_script"

// Paths are the files produced by Write.
type Paths struct {
	Text string `json:"text"`
	JSON string `json:"json"`
}

// PathsFor returns the output paths for stem in dir.
func PathsFor(dir, stem string) Paths {
	base := filepath.Join(dir, stem+Suffix)
	return Paths{Text: base + ".txt", JSON: base + ".json"}
}

// Write stores the script and its records as <stem>_named_script.txt and
// .json in outDir. Each file is written to a temporary name and renamed
// into place; on failure neither output is left behind.
func Write(outDir, stem string, turns []turn.Turn, dir *identity.Directory) (Paths, error) {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return Paths{}, fmt.Errorf("create output dir: %w", err)
	}
	paths := PathsFor(outDir, stem)

	records, err := json.MarshalIndent(Records(turns, dir), "", "  ")
	if err != nil {
		return Paths{}, fmt.Errorf("encode records: %w", err)
	}
	records = append(records, '\n')

	txtTmp, err := writeTemp(outDir, []byte(Text(turns, dir)))
	if err != nil {
		return Paths{}, err
	}
	jsonTmp, err := writeTemp(outDir, records)
	if err != nil {
		os.Remove(txtTmp)
		return Paths{}, err
	}

	if err := os.Rename(jsonTmp, paths.JSON); err != nil {
		os.Remove(txtTmp)
		os.Remove(jsonTmp)
		return Paths{}, fmt.Errorf("publish %s: %w", paths.JSON, err)
	}
	if err := os.Rename(txtTmp, paths.Text); err != nil {
		os.Remove(txtTmp)
		os.Remove(paths.JSON)
		return Paths{}, fmt.Errorf("publish %s: %w", paths.Text, err)
	}
	return paths, nil
}

func writeTemp(dir string, data []byte) (string, error) {
	f, err := os.CreateTemp(dir, ".speakerid-*.tmp")
	if err != nil {
		return "", fmt.Errorf("create temp output: %w", err)
	}
	name := f.Name()
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(name)
		return "", fmt.Errorf("write temp output: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(name)
		return "", fmt.Errorf("sync temp output: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(name)
		return "", fmt.Errorf("close temp output: %w", err)
	}
	if err := os.Chmod(name, 0o644); err != nil {
		os.Remove(name)
		return "", fmt.Errorf("chmod temp output: %w", err)
	}
	return name, nil
}
