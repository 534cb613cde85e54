package version

import (
	"crypto/sha256"
	"encoding/hex"
	"runtime/debug"
	"sort"
	"strings"
	"sync"
)

// Version is the current semantic version
const Version = "0.1.0"

// Commit and Date may be stamped with -ldflags -X. When left empty they are
// filled from the VCS settings the Go toolchain embeds.
var (
	Commit string
	Date   string
)

// Build describes the running binary
type Build struct {
	Version   string
	Commit    string
	Date      string
	Dirty     bool
	GoVersion string
	// ID fingerprints the build: version, revision, dirty state and the
	// versions of every linked module
	ID string
}

var current = sync.OnceValue(func() Build {
	info, _ := debug.ReadBuildInfo()
	return resolve(info, Commit, Date)
})

// Current returns the build description, computed once per process
func Current() Build {
	return current()
}

func resolve(info *debug.BuildInfo, commit, date string) Build {
	b := Build{Version: Version, Commit: commit, Date: date}
	if info != nil {
		b.GoVersion = info.GoVersion
		for _, s := range info.Settings {
			switch s.Key {
			case "vcs.revision":
				if b.Commit == "" {
					b.Commit = s.Value
				}
			case "vcs.time":
				if b.Date == "" {
					b.Date = s.Value
				}
			case "vcs.modified":
				b.Dirty = s.Value == "true"
			}
		}
	}
	if len(b.Commit) > 12 {
		b.Commit = b.Commit[:12]
	}
	if b.Commit == "" {
		b.Commit = "unknown"
	}
	if b.Date == "" {
		b.Date = "development"
	}
	b.ID = fingerprint(b, info)
	return b
}

func fingerprint(b Build, info *debug.BuildInfo) string {
	parts := []string{b.Version, b.Commit, b.GoVersion}
	if b.Dirty {
		parts = append(parts, "dirty")
	}
	if info != nil {
		deps := make([]string, 0, len(info.Deps))
		for _, d := range info.Deps {
			deps = append(deps, d.Path+"@"+d.Version)
		}
		sort.Strings(deps)
		parts = append(parts, deps...)
	}
	sum := sha256.Sum256([]byte(strings.Join(parts, "\n")))
	return hex.EncodeToString(sum[:8])
}

// Info returns the version string shown by --version
func Info() string {
	b := Current()
	if b.Dirty {
		return b.Version + "+dirty"
	}
	return b.Version
}

// FullInfo returns the version with commit and build date
func FullInfo() string {
	b := Current()
	s := "xsearch " + Info() + " (" + b.Commit + ", " + b.Date
	if b.GoVersion != "" {
		s += ", " + b.GoVersion
	}
	return s + ")"
}

// BuildID returns the build fingerprint reported by the MCP info tool
func BuildID() string {
	return Current().ID
}
