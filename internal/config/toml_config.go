package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"

	xerrors "github.com/standardbeagle/xsearch/internal/errors"
)

// tomlConfig mirrors the KDL layout. Pointer fields distinguish "unset" from
// zero so a file only overrides what it names.
type tomlConfig struct {
	Project struct {
		Root *string `toml:"root"`
		Name *string `toml:"name"`
	} `toml:"project"`
	Process struct {
		TimeoutMs      *int     `toml:"timeout_ms"`
		KillGraceMs    *int     `toml:"kill_grace_ms"`
		MaxOutputBytes any      `toml:"max_output_bytes"` // integer or size string
		ProbeTimeoutMs *int     `toml:"probe_timeout_ms"`
		AllowEnv       []string `toml:"allow_env"`
	} `toml:"process"`
	Search struct {
		ContextLines      *int `toml:"context_lines"`
		MaxMatchLength    *int `toml:"max_match_length"`
		FilesPerPage      *int `toml:"files_per_page"`
		MatchesPerPage    *int `toml:"matches_per_page"`
		MaxFiles          *int `toml:"max_files"`
		MaxMatchesPerFile *int `toml:"max_matches_per_file"`
		Threads           *int `toml:"threads"`
	} `toml:"search"`
	Backends struct {
		Ripgrep      *string `toml:"ripgrep"`
		Grep         *string `toml:"grep"`
		Find         *string `toml:"find"`
		Ls           *string `toml:"ls"`
		PreferLegacy *bool   `toml:"prefer_legacy"`
	} `toml:"backends"`
	Exclude []string `toml:"exclude"`
}

// LoadTOML layers the TOML file at path onto cfg
func LoadTOML(cfg *Config, path string) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return xerrors.NewConfigError("file", path, fmt.Errorf("failed to read %s: %w", filepath.Base(path), err))
	}
	return parseTOML(cfg, content, filepath.Dir(path))
}

func parseTOML(cfg *Config, content []byte, configDir string) error {
	var tc tomlConfig
	if err := toml.Unmarshal(content, &tc); err != nil {
		return xerrors.NewConfigError("toml", "", fmt.Errorf("failed to parse TOML config: %w", err))
	}

	if tc.Project.Root != nil {
		cfg.Project.Root = resolveRoot(*tc.Project.Root, configDir)
	}
	setString(&cfg.Project.Name, tc.Project.Name)

	setInt(&cfg.Process.TimeoutMs, tc.Process.TimeoutMs)
	setInt(&cfg.Process.KillGraceMs, tc.Process.KillGraceMs)
	setInt(&cfg.Process.ProbeTimeoutMs, tc.Process.ProbeTimeoutMs)
	switch v := tc.Process.MaxOutputBytes.(type) {
	case nil:
	case int64:
		cfg.Process.MaxOutputBytes = v
	case string:
		sz, err := parseSize(v)
		if err != nil {
			return xerrors.NewConfigError("process.max_output_bytes", v, err)
		}
		cfg.Process.MaxOutputBytes = sz
	default:
		return xerrors.NewConfigError("process.max_output_bytes", fmt.Sprint(v),
			fmt.Errorf("expected integer or size string, got %T", v))
	}
	cfg.Process.AllowEnv = mergeExclude(cfg.Process.AllowEnv, tc.Process.AllowEnv)

	setInt(&cfg.Search.ContextLines, tc.Search.ContextLines)
	setInt(&cfg.Search.MaxMatchLength, tc.Search.MaxMatchLength)
	setInt(&cfg.Search.FilesPerPage, tc.Search.FilesPerPage)
	setInt(&cfg.Search.MatchesPerPage, tc.Search.MatchesPerPage)
	setInt(&cfg.Search.MaxFiles, tc.Search.MaxFiles)
	setInt(&cfg.Search.MaxMatchesPerFile, tc.Search.MaxMatchesPerFile)
	setInt(&cfg.Search.Threads, tc.Search.Threads)

	setString(&cfg.Backends.Ripgrep, tc.Backends.Ripgrep)
	setString(&cfg.Backends.Grep, tc.Backends.Grep)
	setString(&cfg.Backends.Find, tc.Backends.Find)
	setString(&cfg.Backends.Ls, tc.Backends.Ls)
	if tc.Backends.PreferLegacy != nil {
		cfg.Backends.PreferLegacy = *tc.Backends.PreferLegacy
	}

	cfg.Exclude = mergeExclude(cfg.Exclude, tc.Exclude)
	return nil
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

// tomlOutput is the fully populated form written by EncodeTOML
type tomlOutput struct {
	Project struct {
		Root string `toml:"root"`
		Name string `toml:"name"`
	} `toml:"project"`
	Process struct {
		TimeoutMs      int      `toml:"timeout_ms"`
		KillGraceMs    int      `toml:"kill_grace_ms"`
		MaxOutputBytes int64    `toml:"max_output_bytes"`
		ProbeTimeoutMs int      `toml:"probe_timeout_ms"`
		AllowEnv       []string `toml:"allow_env,omitempty"`
	} `toml:"process"`
	Search struct {
		ContextLines      int `toml:"context_lines"`
		MaxMatchLength    int `toml:"max_match_length"`
		FilesPerPage      int `toml:"files_per_page"`
		MatchesPerPage    int `toml:"matches_per_page"`
		MaxFiles          int `toml:"max_files"`
		MaxMatchesPerFile int `toml:"max_matches_per_file"`
		Threads           int `toml:"threads"`
	} `toml:"search"`
	Backends struct {
		Ripgrep      string `toml:"ripgrep"`
		Grep         string `toml:"grep"`
		Find         string `toml:"find"`
		Ls           string `toml:"ls"`
		PreferLegacy bool   `toml:"prefer_legacy"`
	} `toml:"backends"`
	Exclude []string `toml:"exclude"`
}

// EncodeTOML renders cfg in the .xsearch.toml layout, so the output of
// "config show" can be saved as a project file
func EncodeTOML(cfg *Config) ([]byte, error) {
	var out tomlOutput
	out.Project.Root = cfg.Project.Root
	out.Project.Name = cfg.Project.Name
	out.Process.TimeoutMs = cfg.Process.TimeoutMs
	out.Process.KillGraceMs = cfg.Process.KillGraceMs
	out.Process.MaxOutputBytes = cfg.Process.MaxOutputBytes
	out.Process.ProbeTimeoutMs = cfg.Process.ProbeTimeoutMs
	out.Process.AllowEnv = cfg.Process.AllowEnv
	out.Search.ContextLines = cfg.Search.ContextLines
	out.Search.MaxMatchLength = cfg.Search.MaxMatchLength
	out.Search.FilesPerPage = cfg.Search.FilesPerPage
	out.Search.MatchesPerPage = cfg.Search.MatchesPerPage
	out.Search.MaxFiles = cfg.Search.MaxFiles
	out.Search.MaxMatchesPerFile = cfg.Search.MaxMatchesPerFile
	out.Search.Threads = cfg.Search.Threads
	out.Backends.Ripgrep = cfg.Backends.Ripgrep
	out.Backends.Grep = cfg.Backends.Grep
	out.Backends.Find = cfg.Backends.Find
	out.Backends.Ls = cfg.Backends.Ls
	out.Backends.PreferLegacy = cfg.Backends.PreferLegacy
	out.Exclude = cfg.Exclude
	return toml.Marshal(out)
}
