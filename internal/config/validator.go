package config

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"

	xerrors "github.com/standardbeagle/xsearch/internal/errors"
)

// Validator validates configuration and sets smart defaults
type Validator struct{}

// NewValidator creates a new configuration validator
func NewValidator() *Validator {
	return &Validator{}
}

// ValidateAndSetDefaults validates configuration and fills unset values.
// Zero means "use the default" for every bound; negatives are rejected.
func (v *Validator) ValidateAndSetDefaults(cfg *Config) error {
	if err := v.validateProjectConfig(&cfg.Project); err != nil {
		return xerrors.NewConfigError("project", cfg.Project.Root, err)
	}

	if err := v.validateProcessConfig(&cfg.Process); err != nil {
		return xerrors.NewConfigError("process", "", err)
	}

	if err := v.validateSearchConfig(&cfg.Search); err != nil {
		return xerrors.NewConfigError("search", "", err)
	}

	if err := v.validateExclude(cfg.Exclude); err != nil {
		return xerrors.NewConfigError("exclude", "", err)
	}

	v.setSmartDefaults(cfg)
	return nil
}

func (v *Validator) validateProjectConfig(project *Project) error {
	if project.Root == "" {
		return errors.New("project root cannot be empty")
	}
	return nil
}

func (v *Validator) validateProcessConfig(p *Process) error {
	if p.TimeoutMs < 0 {
		return fmt.Errorf("timeout_ms cannot be negative, got %d", p.TimeoutMs)
	}
	if p.KillGraceMs < 0 {
		return fmt.Errorf("kill_grace_ms cannot be negative, got %d", p.KillGraceMs)
	}
	if p.ProbeTimeoutMs < 0 {
		return fmt.Errorf("probe_timeout_ms cannot be negative, got %d", p.ProbeTimeoutMs)
	}
	if p.MaxOutputBytes < 0 {
		return fmt.Errorf("max_output_bytes cannot be negative, got %d", p.MaxOutputBytes)
	}
	return nil
}

func (v *Validator) validateSearchConfig(s *Search) error {
	if s.ContextLines < 0 || s.ContextLines > MaxContextLines {
		return fmt.Errorf("context_lines must be between 0 and %d, got %d", MaxContextLines, s.ContextLines)
	}
	checks := []struct {
		name  string
		value int
	}{
		{"max_match_length", s.MaxMatchLength},
		{"files_per_page", s.FilesPerPage},
		{"matches_per_page", s.MatchesPerPage},
		{"max_files", s.MaxFiles},
		{"max_matches_per_file", s.MaxMatchesPerFile},
		{"threads", s.Threads},
	}
	for _, c := range checks {
		if c.value < 0 {
			return fmt.Errorf("%s cannot be negative, got %d", c.name, c.value)
		}
	}
	return nil
}

func (v *Validator) validateExclude(patterns []string) error {
	for _, p := range patterns {
		if !doublestar.ValidatePattern(p) {
			return fmt.Errorf("invalid exclude pattern %q", p)
		}
	}
	return nil
}

func (v *Validator) setSmartDefaults(cfg *Config) {
	if cfg.Project.Name == "" {
		cfg.Project.Name = filepath.Base(cfg.Project.Root)
	}

	if cfg.Process.TimeoutMs == 0 {
		cfg.Process.TimeoutMs = DefaultTimeoutMs
	}
	if cfg.Process.KillGraceMs == 0 {
		cfg.Process.KillGraceMs = DefaultKillGraceMs
	}
	if cfg.Process.ProbeTimeoutMs == 0 {
		cfg.Process.ProbeTimeoutMs = DefaultProbeTimeoutMs
	}
	if cfg.Process.MaxOutputBytes == 0 {
		cfg.Process.MaxOutputBytes = DefaultMaxOutputBytes
	}

	if cfg.Search.FilesPerPage == 0 {
		cfg.Search.FilesPerPage = DefaultFilesPerPage
	}
	if cfg.Search.MatchesPerPage == 0 {
		cfg.Search.MatchesPerPage = DefaultMatchesPerPage
	}

	if cfg.Backends.Ripgrep == "" {
		cfg.Backends.Ripgrep = "rg"
	}
	if cfg.Backends.Grep == "" {
		cfg.Backends.Grep = "grep"
	}
	if cfg.Backends.Find == "" {
		cfg.Backends.Find = "find"
	}
	if cfg.Backends.Ls == "" {
		cfg.Backends.Ls = "ls"
	}
}

// ValidateConfig is a convenience function for quick validation
func ValidateConfig(cfg *Config) error {
	return NewValidator().ValidateAndSetDefaults(cfg)
}
