package search

import (
	"context"

	"github.com/standardbeagle/xsearch/internal/command"
	"github.com/standardbeagle/xsearch/internal/process"
)

// BackendStatus describes one configured backend binary
type BackendStatus struct {
	Name      string `json:"name"`
	Binary    string `json:"binary,omitempty"`
	Available bool   `json:"available"`
	Version   string `json:"version,omitempty"`
	Error     string `json:"error,omitempty"`
}

// Limits are the process bounds applied to every invocation
type Limits struct {
	TimeoutMs      int   `json:"timeoutMs"`
	KillGraceMs    int   `json:"killGraceMs"`
	MaxOutputBytes int64 `json:"maxOutputBytes"`
}

// Info summarizes the engine's effective setup
type Info struct {
	Root          string          `json:"root"`
	Project       string          `json:"project"`
	ConfigSources []string        `json:"configSources,omitempty"`
	SearchBackend string          `json:"searchBackend"`
	Backends      []BackendStatus `json:"backends"`
	Limits        Limits          `json:"limits"`
	Exclude       []string        `json:"exclude,omitempty"`
}

// Info resolves every backend and reports which one content searches will use
func (e *Engine) Info(ctx context.Context) Info {
	cfg := e.Config()
	info := Info{
		Root:          cfg.Project.Root,
		Project:       cfg.Project.Name,
		ConfigSources: cfg.Sources,
		Exclude:       cfg.Exclude,
		Limits: Limits{
			TimeoutMs:      cfg.Process.TimeoutMs,
			KillGraceMs:    cfg.Process.KillGraceMs,
			MaxOutputBytes: cfg.Process.MaxOutputBytes,
		},
	}

	backends := []struct{ name, binary string }{
		{command.Ripgrep, cfg.Backends.Ripgrep},
		{command.GNUGrep, cfg.Backends.Grep},
		{command.FindCmd, cfg.Backends.Find},
		{command.ListCmd, cfg.Backends.Ls},
	}
	for _, b := range backends {
		info.Backends = append(info.Backends, e.backendStatus(ctx, b.name, b.binary))
	}

	info.SearchBackend = command.GNUGrep
	if !cfg.Backends.PreferLegacy {
		if _, ok := e.ripgrepAvailable(ctx, cfg); ok {
			info.SearchBackend = command.Ripgrep
		}
	}
	return info
}

func (e *Engine) backendStatus(ctx context.Context, name, binary string) BackendStatus {
	st := BackendStatus{Name: name}
	bin, err := e.lookPath(binary)
	if err != nil {
		st.Error = err.Error()
		return st
	}
	st.Binary = bin
	st.Available = true

	// BSD find and ls have no --version; availability is still known
	cfg := e.Config()
	out, err := e.runner.Output(ctx, bin, []string{"--version"}, process.Options{
		Timeout: cfg.Process.ProbeTimeout(),
	})
	if err == nil {
		st.Version = firstLine(out)
	}
	return st
}
