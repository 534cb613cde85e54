package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"time"
)

// File names looked up in the project root and in the home directory.
// KDL wins when both exist in the same directory.
const (
	KDLFileName  = ".xsearch.kdl"
	TOMLFileName = ".xsearch.toml"
)

const (
	DefaultTimeoutMs      = 30_000
	DefaultKillGraceMs    = 5_000
	DefaultMaxOutputBytes = 10 * 1024 * 1024
	DefaultProbeTimeoutMs = 2_000

	DefaultFilesPerPage   = 10
	DefaultMatchesPerPage = 10
	MaxContextLines       = 50
)

type Config struct {
	Version  int
	Project  Project
	Process  Process
	Search   Search
	Backends Backends
	Exclude  []string

	// Sources lists the files merged into this config, global first
	Sources []string
}

type Project struct {
	Root string
	Name string
}

// Process bounds every spawned backend
type Process struct {
	TimeoutMs      int
	KillGraceMs    int
	MaxOutputBytes int64
	ProbeTimeoutMs int      // ripgrep availability probe
	AllowEnv       []string // extra variables passed through to children
}

// Search holds defaults applied to queries that leave a field unset
type Search struct {
	ContextLines      int
	MaxMatchLength    int
	FilesPerPage      int
	MatchesPerPage    int
	MaxFiles          int
	MaxMatchesPerFile int
	Threads           int // 0 lets ripgrep decide
}

// Backends names the executables for each backend. Bare names are resolved on PATH.
type Backends struct {
	Ripgrep      string
	Grep         string
	Find         string
	Ls           string
	PreferLegacy bool // skip ripgrep even when it is available
}

func (p Process) Timeout() time.Duration {
	return time.Duration(p.TimeoutMs) * time.Millisecond
}

func (p Process) KillGrace() time.Duration {
	return time.Duration(p.KillGraceMs) * time.Millisecond
}

func (p Process) ProbeTimeout() time.Duration {
	return time.Duration(p.ProbeTimeoutMs) * time.Millisecond
}

// Default returns the built-in configuration rooted at root
func Default(root string) *Config {
	return &Config{
		Version: 1,
		Project: Project{Root: root, Name: filepath.Base(root)},
		Process: Process{
			TimeoutMs:      DefaultTimeoutMs,
			KillGraceMs:    DefaultKillGraceMs,
			MaxOutputBytes: DefaultMaxOutputBytes,
			ProbeTimeoutMs: DefaultProbeTimeoutMs,
		},
		Search: Search{
			FilesPerPage:   DefaultFilesPerPage,
			MatchesPerPage: DefaultMatchesPerPage,
		},
		Backends: Backends{
			Ripgrep: "rg",
			Grep:    "grep",
			Find:    "find",
			Ls:      "ls",
		},
		Exclude: []string{
			"**/.git/**",
			"**/.hg/**",
			"**/.svn/**",
		},
	}
}

func Load(path string) (*Config, error) {
	return LoadWithRoot(path, "")
}

// LoadWithRoot builds the effective config: defaults, then the global file in
// the home directory, then the project file, then XSEARCH_* environment
// overrides. path names an explicit config file and replaces the project lookup.
func LoadWithRoot(path string, rootDir string) (*Config, error) {
	searchDir := "."
	if rootDir != "" {
		searchDir = rootDir
	}
	root, err := filepath.Abs(searchDir)
	if err != nil {
		root = searchDir
	}

	cfg := Default(root)

	// Step 1: global base config
	if homeDir, err := os.UserHomeDir(); err == nil && filepath.Clean(homeDir) != root {
		if _, err := applyDir(cfg, homeDir); err != nil {
			return nil, err
		}
	}
	// the global file may not relocate the project
	cfg.Project.Root = root

	// Step 2: project config
	if path != "" {
		if err := applyFile(cfg, path); err != nil {
			return nil, err
		}
	} else if _, err := applyDir(cfg, root); err != nil {
		return nil, err
	}

	// Step 3: environment
	if err := ApplyEnv(cfg, os.LookupEnv); err != nil {
		return nil, err
	}

	if err := NewValidator().ValidateAndSetDefaults(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyDir layers the config file found in dir, if any, onto cfg
func applyDir(cfg *Config, dir string) (string, error) {
	for _, name := range []string{KDLFileName, TOMLFileName} {
		p := filepath.Join(dir, name)
		if _, err := os.Stat(p); errors.Is(err, fs.ErrNotExist) {
			continue
		}
		return p, applyFile(cfg, p)
	}
	return "", nil
}

func applyFile(cfg *Config, path string) error {
	var err error
	if filepath.Ext(path) == ".toml" {
		err = LoadTOML(cfg, path)
	} else {
		err = LoadKDL(cfg, path)
	}
	if err != nil {
		return err
	}
	cfg.Sources = append(cfg.Sources, path)
	return nil
}

// mergeExclude appends patterns to base, dropping duplicates and keeping the
// first-seen order so later layers extend rather than replace earlier ones
func mergeExclude(base, extra []string) []string {
	out := slices.Clone(base)
	for _, p := range extra {
		if !slices.Contains(out, p) {
			out = append(out, p)
		}
	}
	return out
}

// resolveRoot makes a configured root absolute relative to the config file's directory
func resolveRoot(root, configDir string) string {
	if !filepath.IsAbs(root) {
		root = filepath.Join(configDir, root)
	}
	return filepath.Clean(root)
}
