package pagination

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/xsearch/internal/searchtypes"
)

// makeFiles builds n files named f00..fNN with i+1 matches each
func makeFiles(n int) []searchtypes.FileMatches {
	files := make([]searchtypes.FileMatches, n)
	for i := range files {
		fm := searchtypes.FileMatches{Path: fmt.Sprintf("f%02d.go", i), MatchCount: i + 1}
		for j := 0; j <= i; j++ {
			fm.Matches = append(fm.Matches, searchtypes.Match{Value: fmt.Sprintf("m%d", j)})
		}
		files[i] = fm
	}
	return files
}

func TestPaginate_TwentyFiveFiles(t *testing.T) {
	files := makeFiles(25)

	page := Paginate(files, Options{FilesPerPage: 10, FilePageNumber: 1})
	assert.Len(t, page.Files, 10)
	assert.Equal(t, 25, page.TotalFiles)
	assert.Equal(t, searchtypes.Pagination{CurrentPage: 1, TotalPages: 3, FilesPerPage: 10, HasMore: true}, page.Pagination)

	page = Paginate(files, Options{FilesPerPage: 10, FilePageNumber: 3})
	assert.Len(t, page.Files, 5)
	assert.False(t, page.Pagination.HasMore)
	assert.Equal(t, "f20.go", page.Files[0].Path)
}

func TestPaginate_PageOutOfRange(t *testing.T) {
	page := Paginate(makeFiles(25), Options{FilesPerPage: 10, FilePageNumber: 7})
	assert.NotNil(t, page.Files)
	assert.Empty(t, page.Files)
	assert.Equal(t, 3, page.Pagination.TotalPages)
	assert.False(t, page.Pagination.HasMore)
	assert.Equal(t, 25, page.TotalFiles)
}

func TestPaginate_TotalsInvariantUnderWindowing(t *testing.T) {
	files := makeFiles(12)
	want := 0
	for _, f := range files {
		want += f.MatchCount
	}

	for _, perPage := range []int{1, 3, 10, 50} {
		for page := 1; page <= 4; page++ {
			for _, mpp := range []int{1, 2, 100} {
				p := Paginate(files, Options{FilesPerPage: perPage, FilePageNumber: page, MatchesPerPage: mpp})
				assert.Equal(t, want, p.TotalMatches)
				assert.Equal(t, 12, p.TotalFiles)
				assert.Equal(t, (12+perPage-1)/perPage, p.Pagination.TotalPages)
			}
		}
	}
}

func TestWindowMatches_KeepsFullCount(t *testing.T) {
	files := makeFiles(5)
	out := WindowMatches(files, 2)

	last := out[4]
	assert.Equal(t, 5, last.MatchCount)
	assert.Len(t, last.Matches, 2)
	require.NotNil(t, last.MatchPagination)
	assert.Equal(t, searchtypes.MatchPagination{CurrentPage: 1, TotalPages: 3, MatchesPerPage: 2, TotalMatches: 5, HasMore: true}, *last.MatchPagination)

	assert.False(t, out[0].MatchPagination.HasMore)
	assert.Len(t, files[4].Matches, 5, "input is not modified")
}

func TestWindowMatches_NoBodies(t *testing.T) {
	out := WindowMatches([]searchtypes.FileMatches{{Path: "a", MatchCount: 3}}, 2)
	assert.Nil(t, out[0].MatchPagination)
}

func TestSortFiles(t *testing.T) {
	now := time.Now()
	older := now.Add(-time.Hour)
	files := []searchtypes.FileMatches{
		{Path: "c.go", LastModified: &older},
		{Path: "b.go"},
		{Path: "a.go", LastModified: &older},
		{Path: "d.go", LastModified: &now},
	}

	byPath := SortFiles(files, false)
	assert.Equal(t, []string{"a.go", "b.go", "c.go", "d.go"}, paths(byPath))

	byTime := SortFiles(files, true)
	assert.Equal(t, []string{"d.go", "a.go", "c.go", "b.go"}, paths(byTime))

	assert.Equal(t, "c.go", files[0].Path, "input order is untouched")
	assert.Equal(t, byTime, SortFiles(files, true), "deterministic")
}

func TestCapFiles(t *testing.T) {
	files := makeFiles(5)

	out, capped := CapFiles(files, 3)
	assert.Len(t, out, 3)
	assert.True(t, capped)

	out, capped = CapFiles(files, 5)
	assert.Len(t, out, 5)
	assert.False(t, capped, "exactly at the cap is not capped")

	_, capped = CapFiles(files, 0)
	assert.False(t, capped)
}

func TestPaginate_CapAppliesBeforeWindow(t *testing.T) {
	page := Paginate(makeFiles(25), Options{MaxFiles: 15, FilesPerPage: 10, FilePageNumber: 2})
	assert.True(t, page.Capped)
	assert.Equal(t, 15, page.TotalFiles)
	assert.Len(t, page.Files, 5)
	assert.Equal(t, 2, page.Pagination.TotalPages)
}

func TestPaginate_TotalsSource(t *testing.T) {
	reported := 42
	namesOnly := []searchtypes.FileMatches{{Path: "a"}, {Path: "b"}, {Path: "c"}}

	p := Paginate(namesOnly, Options{ReportedMatches: &reported})
	assert.Equal(t, 42, p.TotalMatches, "backend stats are authoritative")

	p = Paginate(namesOnly, Options{})
	assert.Equal(t, 3, p.TotalMatches, "no stats falls back to the file count")

	counted := []searchtypes.FileMatches{{Path: "a", MatchCount: 4}, {Path: "b", MatchCount: 6}, {Path: "c", MatchCount: 1}}
	p = Paginate(counted, Options{ReportedMatches: &reported, MaxFiles: 2})
	assert.Equal(t, 10, p.TotalMatches, "a capped set sums what survived the cap")
}

func TestFromQuery(t *testing.T) {
	opts := FromQuery(searchtypes.SearchQuery{FilesPerPage: 5, FilePageNumber: 2, MatchesPerPage: 3, MaxFiles: 9, SortByModified: true},
		&searchtypes.Stats{Matches: 17})
	require.NotNil(t, opts.ReportedMatches)
	assert.Equal(t, 17, *opts.ReportedMatches)
	assert.Equal(t, 5, opts.FilesPerPage)
	assert.True(t, opts.SortByModified)

	assert.Nil(t, FromQuery(searchtypes.SearchQuery{}, nil).ReportedMatches)
}

func TestWindowFiles_Defaults(t *testing.T) {
	out, pag := WindowFiles(makeFiles(3), 0, 0)
	assert.Len(t, out, 3)
	assert.Equal(t, 1, pag.CurrentPage)
	assert.Equal(t, DefaultFilesPerPage, pag.FilesPerPage)

	out, pag = WindowFiles(nil, 10, 1)
	assert.Empty(t, out)
	assert.Equal(t, 0, pag.TotalPages)
	assert.False(t, pag.HasMore)
}

func paths(files []searchtypes.FileMatches) []string {
	out := make([]string, len(files))
	for i, f := range files {
		out[i] = f.Path
	}
	return out
}
