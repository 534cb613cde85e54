package pathutil

import (
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/xsearch/internal/searchtypes"
)

func TestToRelative(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("table uses POSIX paths")
	}

	tests := []struct {
		name     string
		absPath  string
		rootDir  string
		expected string
	}{
		{"simple relative path", "/home/user/project/src/main.go", "/home/user/project", "src/main.go"},
		{"nested relative path", "/home/user/project/internal/core/search.go", "/home/user/project", "internal/core/search.go"},
		{"root level file", "/home/user/project/README.md", "/home/user/project", "README.md"},
		{"same directory", "/home/user/project", "/home/user/project", "."},
		{"already relative path", "src/main.go", "/home/user/project", "src/main.go"},
		{"path outside root", "/other/location/file.go", "/home/user/project", "/other/location/file.go"},
		{"sibling with shared prefix", "/home/user/project2/x.go", "/home/user/project", "/home/user/project2/x.go"},
		{"dot-dot file name inside root", "/home/user/project/..hidden", "/home/user/project", "..hidden"},
		{"empty root directory", "/home/user/project/file.go", "", "/home/user/project/file.go"},
		{"empty absolute path", "", "/home/user/project", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ToRelative(tt.absPath, tt.rootDir))
		})
	}
}

func TestToRelativeFiles(t *testing.T) {
	root := filepath.FromSlash("/home/user/project")
	input := []searchtypes.FileMatches{
		{Path: filepath.Join(root, "src", "main.go"), MatchCount: 3, ContentHash: "abc"},
		{Path: filepath.Join(root, "README.md"), MatchCount: 1},
	}

	out := ToRelativeFiles(input, root)
	require.Len(t, out, 2)
	assert.Equal(t, filepath.Join("src", "main.go"), out[0].Path)
	assert.Equal(t, "README.md", out[1].Path)
	assert.Equal(t, 3, out[0].MatchCount, "other fields are preserved")
	assert.Equal(t, "abc", out[0].ContentHash)
	assert.Equal(t, filepath.Join(root, "src", "main.go"), input[0].Path, "input is not modified")

	assert.Empty(t, ToRelativeFiles(nil, root))
}

func TestToRelativeResult(t *testing.T) {
	root := filepath.FromSlash("/repo")
	r := &searchtypes.SearchResult{
		Status:       searchtypes.StatusHasResults,
		Files:        []searchtypes.FileMatches{{Path: filepath.Join(root, "a.go")}},
		TotalMatches: 7,
	}

	out := ToRelativeResult(r, root)
	assert.Equal(t, "a.go", out.Files[0].Path)
	assert.Equal(t, 7, out.TotalMatches)
	assert.Equal(t, filepath.Join(root, "a.go"), r.Files[0].Path)
	assert.Nil(t, ToRelativeResult(nil, root))
}
