package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	kdl "github.com/sblinch/kdl-go"
	"github.com/sblinch/kdl-go/document"

	xerrors "github.com/standardbeagle/xsearch/internal/errors"
)

// LoadKDL layers the KDL file at path onto cfg
func LoadKDL(cfg *Config, path string) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return xerrors.NewConfigError("file", path, fmt.Errorf("failed to read %s: %w", filepath.Base(path), err))
	}
	return parseKDL(cfg, string(content), filepath.Dir(path))
}

// parseKDL applies every recognised node onto cfg. Unknown nodes are ignored.
//
//	project { root "."; name "repo" }
//	process { timeout_ms 30000; max_output_bytes "10MB"; allow_env "GOPATH" "GOFLAGS" }
//	search { context_lines 2; files_per_page 20 }
//	backends { ripgrep "/opt/bin/rg"; prefer_legacy false }
//	exclude { "**/dist/**" }
func parseKDL(cfg *Config, content string, configDir string) error {
	doc, err := kdl.Parse(strings.NewReader(content))
	if err != nil {
		return xerrors.NewConfigError("kdl", "", fmt.Errorf("failed to parse KDL config: %w", err))
	}

	for _, n := range doc.Nodes {
		if err := requireValues(n); err != nil {
			return err
		}
		switch nodeName(n) {
		case "project":
			for _, cn := range n.Children {
				assignSimpleString(cn, "root", func(v string) { cfg.Project.Root = resolveRoot(v, configDir) })
				assignSimpleString(cn, "name", func(v string) { cfg.Project.Name = v })
			}
		case "process":
			for _, cn := range n.Children {
				if err := parseProcessNode(&cfg.Process, cn); err != nil {
					return err
				}
			}
		case "search":
			for _, cn := range n.Children {
				parseSearchNode(&cfg.Search, cn)
			}
		case "backends":
			for _, cn := range n.Children {
				assignSimpleString(cn, "ripgrep", func(v string) { cfg.Backends.Ripgrep = v })
				assignSimpleString(cn, "grep", func(v string) { cfg.Backends.Grep = v })
				assignSimpleString(cn, "find", func(v string) { cfg.Backends.Find = v })
				assignSimpleString(cn, "ls", func(v string) { cfg.Backends.Ls = v })
				if nodeName(cn) == "prefer_legacy" {
					if b, ok := firstBoolArg(cn); ok {
						cfg.Backends.PreferLegacy = b
					}
				}
			}
		case "exclude":
			cfg.Exclude = mergeExclude(cfg.Exclude, collectStringArgs(n))
		}
	}
	return nil
}

// scalarKeys lists, per section, the keys that must carry a value
var scalarKeys = map[string]map[string]bool{
	"project": {"root": true, "name": true},
	"process": {"timeout_ms": true, "kill_grace_ms": true, "probe_timeout_ms": true, "max_output_bytes": true, "allow_env": true},
	"search": {
		"context_lines": true, "max_match_length": true, "files_per_page": true, "matches_per_page": true,
		"max_files": true, "max_matches_per_file": true, "threads": true,
	},
	"backends": {"ripgrep": true, "grep": true, "find": true, "ls": true, "prefer_legacy": true},
}

// requireValues rejects a known key written without a value. kdl-go keeps
// such a node when the document is cut off mid-block.
func requireValues(section *document.Node) error {
	keys := scalarKeys[nodeName(section)]
	for _, cn := range section.Children {
		key := nodeName(cn)
		if keys[key] && len(cn.Arguments) == 0 {
			field := nodeName(section) + "." + key
			return xerrors.NewConfigError(field, "", fmt.Errorf("%s: missing value", field))
		}
	}
	return nil
}

func parseProcessNode(p *Process, cn *document.Node) error {
	switch nodeName(cn) {
	case "timeout_ms":
		if v, ok := firstIntArg(cn); ok {
			p.TimeoutMs = v
		}
	case "kill_grace_ms":
		if v, ok := firstIntArg(cn); ok {
			p.KillGraceMs = v
		}
	case "probe_timeout_ms":
		if v, ok := firstIntArg(cn); ok {
			p.ProbeTimeoutMs = v
		}
	case "max_output_bytes":
		if v, ok := firstIntArg(cn); ok {
			p.MaxOutputBytes = int64(v)
		}
		if s, ok := firstStringArg(cn); ok {
			sz, err := parseSize(s)
			if err != nil {
				return xerrors.NewConfigError("process.max_output_bytes", s, err)
			}
			p.MaxOutputBytes = sz
		}
	case "allow_env":
		p.AllowEnv = mergeExclude(p.AllowEnv, collectStringArgs(cn))
	}
	return nil
}

func parseSearchNode(s *Search, cn *document.Node) {
	targets := map[string]*int{
		"context_lines":        &s.ContextLines,
		"max_match_length":     &s.MaxMatchLength,
		"files_per_page":       &s.FilesPerPage,
		"matches_per_page":     &s.MatchesPerPage,
		"max_files":            &s.MaxFiles,
		"max_matches_per_file": &s.MaxMatchesPerFile,
		"threads":              &s.Threads,
	}
	if target, ok := targets[nodeName(cn)]; ok {
		if v, ok := firstIntArg(cn); ok {
			*target = v
		}
	}
}

func nodeName(n *document.Node) string {
	if n == nil || n.Name == nil {
		return ""
	}
	return n.Name.NodeNameString()
}

func firstIntArg(n *document.Node) (int, bool) {
	if len(n.Arguments) == 0 {
		return 0, false
	}
	switch v := n.Arguments[0].Value.(type) {
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	default:
		return 0, false
	}
}

func firstStringArg(n *document.Node) (string, bool) {
	if len(n.Arguments) == 0 {
		return "", false
	}
	if s, ok := n.Arguments[0].Value.(string); ok {
		return s, true
	}
	return "", false
}

func firstBoolArg(n *document.Node) (bool, bool) {
	if len(n.Arguments) == 0 {
		return false, false
	}
	if b, ok := n.Arguments[0].Value.(bool); ok {
		return b, true
	}
	return false, false
}

// collectStringArgs reads both the inline form (allow_env "A" "B") and the
// block form (exclude { "pattern" }), where each child's name is the value
func collectStringArgs(n *document.Node) []string {
	if n == nil {
		return nil
	}
	out := make([]string, 0, len(n.Arguments))
	for _, a := range n.Arguments {
		if s, ok := a.Value.(string); ok {
			out = append(out, s)
		}
	}

	if len(out) == 0 && len(n.Children) > 0 {
		for _, child := range n.Children {
			if s, ok := firstStringArg(child); ok {
				out = append(out, s)
			} else if child.Name != nil {
				if s, ok := child.Name.Value.(string); ok {
					out = append(out, s)
				}
			}
		}
	}
	return out
}

func assignSimpleString(n *document.Node, target string, set func(string)) {
	if nodeName(n) == target {
		if s, ok := firstStringArg(n); ok {
			set(s)
		}
	}
}

// parseSize handles size strings like "10MB", "500KB", "1GB"
func parseSize(s string) (int64, error) {
	s = strings.ToUpper(strings.TrimSpace(s))

	var multiplier int64 = 1
	var numStr string

	switch {
	case strings.HasSuffix(s, "GB"):
		multiplier = 1024 * 1024 * 1024
		numStr = strings.TrimSuffix(s, "GB")
	case strings.HasSuffix(s, "MB"):
		multiplier = 1024 * 1024
		numStr = strings.TrimSuffix(s, "MB")
	case strings.HasSuffix(s, "KB"):
		multiplier = 1024
		numStr = strings.TrimSuffix(s, "KB")
	case strings.HasSuffix(s, "B"):
		numStr = strings.TrimSuffix(s, "B")
	default:
		numStr = s
	}

	num, err := strconv.ParseInt(strings.TrimSpace(numStr), 10, 64)
	if err != nil {
		return 0, err
	}
	return num * multiplier, nil
}

func parseBool(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "yes", "1", "on":
		return true, nil
	case "false", "no", "0", "off", "":
		return false, nil
	}
	return false, fmt.Errorf("invalid boolean %q", s)
}
