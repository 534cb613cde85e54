package parser

import (
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/standardbeagle/xsearch/internal/searchtypes"
)

// LegacyLine is one parsed line of path:line:content output.
// LineNumber is 0 when the line only had the path:content form.
type LegacyLine struct {
	Path       string
	LineNumber int
	Content    string
}

// the line number is the first run of digits between two colons; the lazy path
// group tolerates colons inside the path itself (C:\src, a:b.go)
var legacyLinePattern = regexp.MustCompile(`^(.+?):(\d+):(.*)$`)

// ParseLegacyLine parses a single grep output line. ok is false for lines that
// carry no colon at all, which callers skip.
func ParseLegacyLine(line string) (LegacyLine, bool) {
	if m := legacyLinePattern.FindStringSubmatch(line); m != nil {
		n, err := strconv.Atoi(m[2])
		if err == nil {
			return LegacyLine{Path: m[1], LineNumber: n, Content: m[3]}, true
		}
	}
	path, content, found := strings.Cut(line, ":")
	if !found || path == "" {
		return LegacyLine{}, false
	}
	return LegacyLine{Path: path, Content: content}, true
}

// ParseLegacy parses grep output. In files-only mode every line is a bare path.
// The legacy protocol carries no byte offsets, so locations hold only line numbers.
func ParseLegacy(raw []byte, q searchtypes.SearchQuery) Output {
	if q.FilesOnly {
		return ParsePaths(raw)
	}

	var (
		order []string
		files = make(map[string]*searchtypes.FileMatches)
	)
	forEachLine(raw, func(line []byte) {
		parsed, ok := ParseLegacyLine(string(line))
		if !ok {
			return
		}
		fm, seen := files[parsed.Path]
		if !seen {
			fm = &searchtypes.FileMatches{Path: parsed.Path}
			files[parsed.Path] = fm
			order = append(order, parsed.Path)
		}
		fm.MatchCount++
		fm.Matches = append(fm.Matches, searchtypes.Match{
			Value:    TruncateRunes(parsed.Content, q.MaxMatchLength),
			Location: searchtypes.MatchLocation{Line: parsed.LineNumber},
		})
	})

	out := Output{Files: make([]searchtypes.FileMatches, 0, len(order))}
	for _, path := range order {
		out.Files = append(out.Files, *files[path])
	}
	return out
}

// ParsePaths parses one path per line (grep -l, find -print). Duplicates are
// dropped; order is preserved.
func ParsePaths(raw []byte) Output {
	var out Output
	seen := make(map[string]bool)
	forEachLine(raw, func(line []byte) {
		path := string(line)
		if seen[path] {
			return
		}
		seen[path] = true
		out.Files = append(out.Files, searchtypes.FileMatches{Path: path})
	})
	return out
}

// ParseListing parses `ls -1 -p` output. Entries are joined onto dir; a trailing
// slash marks a directory. Pass an empty dir when the listed path was a file.
func ParseListing(raw []byte, dir string) Output {
	var out Output
	forEachLine(raw, func(line []byte) {
		name := string(line)
		isDir := strings.HasSuffix(name, "/")
		name = strings.TrimSuffix(name, "/")
		if name == "" || name == "." || name == ".." {
			return
		}
		path := name
		if dir != "" {
			path = filepath.Join(dir, name)
		}
		out.Files = append(out.Files, searchtypes.FileMatches{Path: path, IsDir: isDir})
	})
	return out
}
