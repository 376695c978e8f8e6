package version

import (
	"fmt"
	"io"
	"runtime"
	"runtime/debug"
	"sync"
)

// Link-time values. Commit and BuildTime fall back to the VCS stamp the
// go tool embeds.
var (
	Version   = "dev"
	Commit    = ""
	BuildTime = ""
)

// Info describes the running binary.
type Info struct {
	Version   string `json:"version"`
	Commit    string `json:"commit,omitempty"`
	BuildTime string `json:"build_time,omitempty"`
	GoVersion string `json:"go_version"`
	Dirty     bool   `json:"dirty"`
}

var current = sync.OnceValue(func() Info {
	bi, _ := debug.ReadBuildInfo()
	return resolve(bi)
})

// Get returns the build info, resolved once per process.
func Get() Info { return current() }

func resolve(bi *debug.BuildInfo) Info {
	info := Info{Version: Version, Commit: Commit, BuildTime: BuildTime, GoVersion: runtime.Version()}
	if bi == nil {
		return info
	}
	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			if info.Commit == "" {
				info.Commit = s.Value[:min(len(s.Value), 7)]
			}
		case "vcs.time":
			if info.BuildTime == "" {
				info.BuildTime = s.Value
			}
		case "vcs.modified":
			info.Dirty = s.Value == "true"
		}
	}
	return info
}

// Short is "v1.4.0", "v1.4.0-abc1234" or "v1.4.0-abc1234-dirty".
func (i Info) Short() string {
	s := i.Version
	if i.Commit != "" {
		s += "-" + i.Commit
	}
	if i.Dirty {
		s += "-dirty"
	}
	return s
}

// Fprint writes the block shown by "speakerid version".
func Fprint(w io.Writer) error {
	i := Get()
	commit, built := i.Commit, i.BuildTime
	if commit == "" {
		commit = "none"
	}
	if built == "" {
		built = "unknown"
	}
	_, err := fmt.Fprintf(w, "speakerid %s\n  commit: %s\n  built:  %s\n  go:     %s\n", i.Short(), commit, built, i.GoVersion)
	return err
}
