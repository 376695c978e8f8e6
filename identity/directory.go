package identity

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode"
	"unicode/utf8"

	apperrors "github.com/kbukum/speakerid/errors"
	"github.com/kbukum/speakerid/util"
)

// Profile is the per-key entry of a profiles document.
type Profile struct {
	DisplayName string `json:"display_name"`
}

// Directory resolves identity keys to display names.
// The zero value is usable and falls back to formatting the key.
type Directory struct {
	roster   map[string]string
	profiles map[string]Profile
}

// NewDirectory returns an empty directory.
func NewDirectory() *Directory {
	return &Directory{roster: map[string]string{}, profiles: map[string]Profile{}}
}

// LoadDirectory reads the optional roster CSV and profiles JSON.
// Empty or missing paths are skipped.
func LoadDirectory(rosterCSV, profilesJSON string) (*Directory, error) {
	d := NewDirectory()
	if err := readOptional(rosterCSV, d.ReadRoster); err != nil {
		return d, err
	}
	if err := readOptional(profilesJSON, d.ReadProfiles); err != nil {
		return d, err
	}
	return d, nil
}

func readOptional(path string, read func(io.Reader) error) error {
	if path == "" {
		return nil
	}
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	if err := read(f); err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	return nil
}

// ReadRoster loads a CSV with a header naming "username", "first", and
// "last" columns. Rows missing any of them are ignored.
func (d *Directory) ReadRoster(r io.Reader) error {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil
	}
	if err != nil {
		return apperrors.InvalidInput("roster", err.Error())
	}
	cols := map[string]int{}
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, name := range []string{"username", "first", "last"} {
		if _, ok := cols[name]; !ok {
			return apperrors.InvalidInput("roster", fmt.Sprintf("missing %q column", name))
		}
	}

	field := func(row []string, name string) string {
		if i := cols[name]; i < len(row) {
			return strings.TrimSpace(row[i])
		}
		return ""
	}
	for {
		row, err := cr.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return apperrors.InvalidInput("roster", err.Error())
		}
		username := strings.ToLower(field(row, "username"))
		first, last := field(row, "first"), field(row, "last")
		if username == "" || first == "" || last == "" {
			continue
		}
		if d.roster == nil {
			d.roster = map[string]string{}
		}
		d.roster[username] = first + " " + last
	}
}

// ReadProfiles loads a JSON object mapping key to {"display_name": ...}.
func (d *Directory) ReadProfiles(r io.Reader) error {
	var profiles map[string]Profile
	if err := json.NewDecoder(r).Decode(&profiles); err != nil {
		return apperrors.InvalidInput("profiles", err.Error())
	}
	if d.profiles == nil {
		d.profiles = map[string]Profile{}
	}
	for k, p := range profiles {
		d.profiles[NormalizeKey(k)] = p
	}
	return nil
}

// Len returns the number of roster and profile entries.
func (d *Directory) Len() int {
	if d == nil {
		return 0
	}
	return len(d.roster) + len(d.profiles)
}

// DisplayName resolves a key in order: profile display name, roster
// "First Last", a "first,last" key as "First Last", the capitalized key.
func (d *Directory) DisplayName(key string) string {
	k := NormalizeKey(util.StripBracketed(key))
	if d != nil {
		if p, ok := d.profiles[k]; ok && strings.TrimSpace(p.DisplayName) != "" {
			return strings.TrimSpace(p.DisplayName)
		}
		if name, ok := d.roster[k]; ok {
			return name
		}
	}
	if parts := strings.Split(k, ","); len(parts) == 2 {
		return capitalize(strings.TrimSpace(parts[0])) + " " + capitalize(strings.TrimSpace(parts[1]))
	}
	return capitalize(k)
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}
