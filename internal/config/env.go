package config

import (
	"strconv"
	"strings"

	xerrors "github.com/standardbeagle/xsearch/internal/errors"
)

// EnvPrefix namespaces every environment override
const EnvPrefix = "XSEARCH_"

// LookupFunc matches os.LookupEnv
type LookupFunc func(key string) (string, bool)

// ApplyEnv overrides cfg from XSEARCH_* variables. A malformed value is a
// ConfigError naming the variable.
func ApplyEnv(cfg *Config, lookup LookupFunc) error {
	ints := []struct {
		key string
		dst *int
	}{
		{"TIMEOUT_MS", &cfg.Process.TimeoutMs},
		{"KILL_GRACE_MS", &cfg.Process.KillGraceMs},
		{"PROBE_TIMEOUT_MS", &cfg.Process.ProbeTimeoutMs},
		{"CONTEXT_LINES", &cfg.Search.ContextLines},
		{"MAX_MATCH_LENGTH", &cfg.Search.MaxMatchLength},
		{"FILES_PER_PAGE", &cfg.Search.FilesPerPage},
		{"MATCHES_PER_PAGE", &cfg.Search.MatchesPerPage},
		{"MAX_FILES", &cfg.Search.MaxFiles},
		{"MAX_MATCHES_PER_FILE", &cfg.Search.MaxMatchesPerFile},
		{"THREADS", &cfg.Search.Threads},
	}
	for _, e := range ints {
		v, ok := lookup(EnvPrefix + e.key)
		if !ok {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return xerrors.NewConfigError(EnvPrefix+e.key, v, err)
		}
		*e.dst = n
	}

	strs := []struct {
		key string
		dst *string
	}{
		{"ROOT", &cfg.Project.Root},
		{"RIPGREP", &cfg.Backends.Ripgrep},
		{"GREP", &cfg.Backends.Grep},
		{"FIND", &cfg.Backends.Find},
		{"LS", &cfg.Backends.Ls},
	}
	for _, e := range strs {
		if v, ok := lookup(EnvPrefix + e.key); ok && v != "" {
			*e.dst = v
		}
	}

	if v, ok := lookup(EnvPrefix + "MAX_OUTPUT_BYTES"); ok {
		sz, err := parseSize(v)
		if err != nil {
			return xerrors.NewConfigError(EnvPrefix+"MAX_OUTPUT_BYTES", v, err)
		}
		cfg.Process.MaxOutputBytes = sz
	}
	if v, ok := lookup(EnvPrefix + "PREFER_LEGACY"); ok {
		b, err := parseBool(v)
		if err != nil {
			return xerrors.NewConfigError(EnvPrefix+"PREFER_LEGACY", v, err)
		}
		cfg.Backends.PreferLegacy = b
	}
	if v, ok := lookup(EnvPrefix + "ALLOW_ENV"); ok {
		cfg.Process.AllowEnv = mergeExclude(cfg.Process.AllowEnv, splitList(v))
	}
	if v, ok := lookup(EnvPrefix + "EXCLUDE"); ok {
		cfg.Exclude = mergeExclude(cfg.Exclude, splitList(v))
	}
	return nil
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
