// Package pathutil converts between the absolute paths the pipeline works with
// and the root-relative paths shown to users.
//
// Backends are always invoked with absolute paths so offset reconciliation and
// stat calls need no working-directory context. Output boundaries (CLI text,
// JSON, MCP responses) convert to relative paths for readability.
package pathutil

import (
	"path/filepath"
	"strings"

	"github.com/standardbeagle/xsearch/internal/searchtypes"
)

// ToRelative converts an absolute path to relative based on a root directory.
// Falls back to the original path if conversion fails or path is already relative.
//
// Examples:
//   - ToRelative("/home/user/project/src/main.go", "/home/user/project") → "src/main.go"
//   - ToRelative("/other/location/file.go", "/home/user/project") → "/other/location/file.go" (outside root)
//   - ToRelative("src/main.go", "/home/user/project") → "src/main.go" (already relative)
func ToRelative(absPath, rootDir string) string {
	if absPath == "" || rootDir == "" {
		return absPath
	}
	if !filepath.IsAbs(absPath) {
		return absPath
	}

	absPath = filepath.Clean(absPath)
	rootDir = filepath.Clean(rootDir)

	relPath, err := filepath.Rel(rootDir, absPath)
	if err != nil {
		// e.g. different drives on Windows
		return absPath
	}

	// outside the root the absolute path is clearer
	if relPath == ".." || strings.HasPrefix(relPath, ".."+string(filepath.Separator)) {
		return absPath
	}
	return relPath
}

// ToRelativeFiles converts file paths from absolute to relative.
// Creates a new slice without modifying the original.
func ToRelativeFiles(files []searchtypes.FileMatches, rootDir string) []searchtypes.FileMatches {
	if len(files) == 0 {
		return files
	}

	converted := make([]searchtypes.FileMatches, len(files))
	copy(converted, files)
	for i := range converted {
		converted[i].Path = ToRelative(converted[i].Path, rootDir)
	}
	return converted
}

// ToRelativeResult returns a shallow copy of r with relative file paths.
//
// This function is designed for use at output boundaries:
//   - CLI text and --json output
//   - MCP tool responses
func ToRelativeResult(r *searchtypes.SearchResult, rootDir string) *searchtypes.SearchResult {
	if r == nil {
		return nil
	}
	out := *r
	out.Files = ToRelativeFiles(r.Files, rootDir)
	return &out
}
