package command

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	xerrors "github.com/standardbeagle/xsearch/internal/errors"
	"github.com/standardbeagle/xsearch/internal/searchtypes"
)

func intPtr(v int) *int { return &v }

func TestBuildRipgrep(t *testing.T) {
	cmd, err := BuildRipgrep(searchtypes.SearchQuery{
		Pattern:           "func (a|b)\\(",
		Path:              "/repo",
		SmartCase:         true,
		WholeWord:         true,
		ContextLines:      2,
		Types:             []string{"go"},
		Globs:             []string{"*.{go,mod}"},
		ExcludeGlobs:      []string{"*_test.go"},
		ExcludeDirs:       []string{"vendor/"},
		MaxMatchesPerFile: 5,
		Threads:           4,
	})
	require.NoError(t, err)

	assert.Equal(t, "rg", cmd.Name)
	assert.Equal(t, []string{
		"--json", "--no-config", "-S", "-w",
		"-C", "2",
		"--type", "go",
		"--glob", "*.{go,mod}",
		"--glob", "!*_test.go",
		"--glob", "!vendor",
		"--max-count", "5",
		"--threads", "4",
		"--", "func (a|b)\\(", "/repo",
	}, cmd.Args)
	assert.Empty(t, cmd.Unsupported)
}

func TestBuildRipgrep_AsymmetricContext(t *testing.T) {
	cmd, err := BuildRipgrep(searchtypes.SearchQuery{
		Pattern:       "x",
		Path:          ".",
		ContextLines:  3,
		BeforeContext: intPtr(1),
	})
	require.NoError(t, err)
	assert.Contains(t, cmd.Args, "-B")
	assert.Contains(t, cmd.Args, "-A")
	assert.NotContains(t, cmd.Args, "-C")
}

func TestBuildRipgrep_FilesOnlyKeepsJSON(t *testing.T) {
	cmd, err := BuildRipgrep(searchtypes.SearchQuery{Pattern: "x", Path: ".", FilesOnly: true, ContextLines: 4})
	require.NoError(t, err)
	assert.Equal(t, "--json", cmd.Args[0])
	assert.NotContains(t, cmd.Args, "-C", "context is irrelevant without match bodies")
}

func TestBuildRipgrep_QueryErrors(t *testing.T) {
	tests := []struct {
		name  string
		query searchtypes.SearchQuery
		field string
	}{
		{"empty pattern", searchtypes.SearchQuery{Path: "."}, "pattern"},
		{"empty path", searchtypes.SearchQuery{Pattern: "x", Path: " "}, "path"},
		{"bad glob", searchtypes.SearchQuery{Pattern: "x", Path: ".", Globs: []string{"[unterminated"}}, "globs"},
		{"negative cap", searchtypes.SearchQuery{Pattern: "x", Path: ".", MaxMatchesPerFile: -1}, "maxMatchesPerFile"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := BuildRipgrep(tt.query)
			var qe *xerrors.QueryError
			require.True(t, errors.As(err, &qe), "got %v", err)
			assert.Equal(t, tt.field, qe.Field)
		})
	}
}

func TestBuildRipgrep_RejectsDangerousPath(t *testing.T) {
	_, err := BuildRipgrep(searchtypes.SearchQuery{Pattern: "x", Path: "/repo/../etc"})
	var ve *xerrors.ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "path traversal", ve.Reason)

	_, err = BuildRipgrep(searchtypes.SearchQuery{Pattern: "x", Path: ".", Encoding: "utf8;id"})
	assert.Error(t, err)
}

func TestBuildGrep(t *testing.T) {
	cmd, err := BuildGrep(searchtypes.SearchQuery{
		Pattern:      "TODO",
		Path:         "src",
		SmartCase:    true,
		FilesOnly:    true,
		Globs:        []string{"*.ts"},
		ExcludeDirs:  []string{"node_modules"},
		ContextLines: 2,
		Multiline:    true,
		Types:        []string{"ts"},
	})
	require.NoError(t, err)

	assert.Equal(t, "grep", cmd.Name)
	assert.Equal(t, []string{
		"-r", "-n", "-H", "-I", "--color=never",
		"-E", "-l",
		"--include=*.ts",
		"--exclude-dir=node_modules",
		"--", "TODO", "src",
	}, cmd.Args, "smart case with an upper-case pattern stays case sensitive")
	assert.Equal(t, []string{"multiline patterns", "file type filters"}, cmd.Unsupported)
}

func TestBuildGrep_SmartCaseLowercase(t *testing.T) {
	cmd, err := BuildGrep(searchtypes.SearchQuery{Pattern: "todo", Path: ".", SmartCase: true, FixedString: true, ContextLines: 1})
	require.NoError(t, err)
	assert.Contains(t, cmd.Args, "-i")
	assert.Contains(t, cmd.Args, "-F")
	assert.NotContains(t, cmd.Args, "-E")
	assert.Equal(t, []string{"context lines"}, cmd.Unsupported)
}

func TestForSearch(t *testing.T) {
	q := searchtypes.SearchQuery{Pattern: "x", Path: "."}

	cmd, err := ForSearch(Ripgrep, q)
	require.NoError(t, err)
	assert.Equal(t, "rg", cmd.Name)

	cmd, err = ForSearch(GNUGrep, q)
	require.NoError(t, err)
	assert.Equal(t, "grep", cmd.Name)

	_, err = ForSearch(ListCmd, q)
	assert.Error(t, err)
}

func TestBuildFind(t *testing.T) {
	cmd, err := BuildFind(searchtypes.FileQuery{
		Path:           "/repo",
		Names:          []string{"*.go", "*.{mod,sum}"},
		EntryType:      "f",
		MaxDepth:       3,
		ModifiedWithin: "2h",
		ExcludeDirs:    []string{".git"},
	})
	require.NoError(t, err)

	assert.Equal(t, "find", cmd.Name)
	assert.Equal(t, []string{
		"/repo",
		"-maxdepth", "3",
		"-not", "-path", "*/.git/*",
		"(", "-name", "*.go", "-o", "-name", "*.{mod,sum}", ")",
		"-type", "f",
		"-mmin", "-120",
		"-print",
	}, cmd.Args)
}

func TestBuildFind_SingleNameNoGrouping(t *testing.T) {
	cmd, err := BuildFind(searchtypes.FileQuery{Path: ".", Names: []string{"*.md"}, ModifiedWithin: "7d", Size: "+10k"})
	require.NoError(t, err)
	assert.NotContains(t, cmd.Args, "(")
	assert.Equal(t, []string{".", "-name", "*.md", "-size", "+10k", "-mtime", "-7", "-print"}, cmd.Args)
}

func TestBuildFind_QueryErrors(t *testing.T) {
	tests := []struct {
		name  string
		query searchtypes.FileQuery
		field string
	}{
		{"missing path", searchtypes.FileQuery{}, "path"},
		{"entry type", searchtypes.FileQuery{Path: ".", EntryType: "x"}, "entryType"},
		{"size", searchtypes.FileQuery{Path: ".", Size: "big"}, "size"},
		{"permissions", searchtypes.FileQuery{Path: ".", Permissions: "999"}, "permissions"},
		{"modified", searchtypes.FileQuery{Path: ".", ModifiedWithin: "yesterday"}, "modifiedWithin"},
		{"regex", searchtypes.FileQuery{Path: ".", Regex: "(["}, "regex"},
		{"name glob", searchtypes.FileQuery{Path: ".", Names: []string{"[x"}}, "names"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := BuildFind(tt.query)
			var qe *xerrors.QueryError
			require.True(t, errors.As(err, &qe), "got %v", err)
			assert.Equal(t, tt.field, qe.Field)
		})
	}
}

func TestBuildList(t *testing.T) {
	cmd, err := BuildList(searchtypes.ListQuery{Path: "/repo", All: true})
	require.NoError(t, err)
	assert.Equal(t, "ls", cmd.Name)
	assert.Equal(t, []string{"-1", "-p", "-A", "--", "/repo"}, cmd.Args)

	_, err = BuildList(searchtypes.ListQuery{})
	assert.Error(t, err)
}

func TestCommandString(t *testing.T) {
	c := Command{Name: "rg", Args: []string{"--json", "it's"}}
	assert.Equal(t, `rg '--json' 'it'\''s'`, c.String())
}
