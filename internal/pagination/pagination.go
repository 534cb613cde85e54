// Package pagination sorts, caps and windows per-file match models across two
// independent dimensions: files, and matches within each file of the current page.
package pagination

import (
	"cmp"
	"slices"
	"strings"

	"github.com/standardbeagle/xsearch/internal/searchtypes"
)

const (
	DefaultFilesPerPage   = 10
	DefaultMatchesPerPage = 10
)

// Options control one pagination pass
type Options struct {
	FilesPerPage   int
	FilePageNumber int
	MatchesPerPage int
	MaxFiles       int
	SortByModified bool

	// ReportedMatches is the backend's own match total. It is preferred over the
	// local sum unless the file list was capped.
	ReportedMatches *int
}

// FromQuery maps a search query onto pagination options
func FromQuery(q searchtypes.SearchQuery, stats *searchtypes.Stats) Options {
	opts := Options{
		FilesPerPage:   q.FilesPerPage,
		FilePageNumber: q.FilePageNumber,
		MatchesPerPage: q.MatchesPerPage,
		MaxFiles:       q.MaxFiles,
		SortByModified: q.SortByModified,
	}
	if stats != nil {
		reported := stats.Matches
		opts.ReportedMatches = &reported
	}
	return opts
}

// Page is the windowed result. TotalFiles and TotalMatches describe the full
// capped set, never just the current page.
type Page struct {
	Files        []searchtypes.FileMatches
	TotalFiles   int
	TotalMatches int
	Pagination   searchtypes.Pagination
	Capped       bool
}

// Paginate composes SortFiles, CapFiles, WindowFiles and WindowMatches
func Paginate(files []searchtypes.FileMatches, opts Options) Page {
	sorted := SortFiles(files, opts.SortByModified)
	capped, wasCapped := CapFiles(sorted, opts.MaxFiles)

	window, pag := WindowFiles(capped, opts.FilesPerPage, opts.FilePageNumber)
	window = WindowMatches(window, opts.MatchesPerPage)

	return Page{
		Files:        window,
		TotalFiles:   len(capped),
		TotalMatches: totalMatches(capped, opts.ReportedMatches, wasCapped),
		Pagination:   pag,
		Capped:       wasCapped,
	}
}

// totalMatches prefers the backend's count; without one it sums the full
// per-file counts, and falls back to the file count when no file carries a
// count at all (files-only grep, path enumeration).
func totalMatches(files []searchtypes.FileMatches, reported *int, capped bool) int {
	if reported != nil && !capped {
		return *reported
	}
	sum := 0
	for _, f := range files {
		sum += f.MatchCount
	}
	if sum == 0 {
		return len(files)
	}
	return sum
}

// SortFiles returns a sorted copy: newest first with path as tie-breaker when
// byModified is set (files without a timestamp sort last), else by path.
func SortFiles(files []searchtypes.FileMatches, byModified bool) []searchtypes.FileMatches {
	out := slices.Clone(files)
	slices.SortStableFunc(out, func(a, b searchtypes.FileMatches) int {
		if byModified {
			if c := compareModifiedDesc(a, b); c != 0 {
				return c
			}
		}
		return strings.Compare(a.Path, b.Path)
	})
	return out
}

func compareModifiedDesc(a, b searchtypes.FileMatches) int {
	switch {
	case a.LastModified == nil && b.LastModified == nil:
		return 0
	case a.LastModified == nil:
		return 1
	case b.LastModified == nil:
		return -1
	default:
		return b.LastModified.Compare(*a.LastModified)
	}
}

// CapFiles truncates files to at most maxFiles and reports whether anything was
// dropped. maxFiles <= 0 means no cap.
func CapFiles(files []searchtypes.FileMatches, maxFiles int) ([]searchtypes.FileMatches, bool) {
	if maxFiles <= 0 || len(files) <= maxFiles {
		return files, false
	}
	return files[:maxFiles], true
}

// WindowFiles returns the requested page of files. A page past the end is
// empty, not an error.
func WindowFiles(files []searchtypes.FileMatches, perPage, page int) ([]searchtypes.FileMatches, searchtypes.Pagination) {
	if perPage <= 0 {
		perPage = DefaultFilesPerPage
	}
	if page <= 0 {
		page = 1
	}

	totalPages := ceilDiv(len(files), perPage)
	pag := searchtypes.Pagination{
		CurrentPage:  page,
		TotalPages:   totalPages,
		FilesPerPage: perPage,
		HasMore:      page < totalPages,
	}

	start := (page - 1) * perPage
	if start >= len(files) {
		return []searchtypes.FileMatches{}, pag
	}
	end := min(start+perPage, len(files))
	return slices.Clone(files[start:end]), pag
}

// WindowMatches keeps the first page of matches of each file. Later match pages
// for a single file are a separate, narrower query. MatchCount is left as the
// file's full total.
func WindowMatches(files []searchtypes.FileMatches, perPage int) []searchtypes.FileMatches {
	if perPage <= 0 {
		perPage = DefaultMatchesPerPage
	}

	out := make([]searchtypes.FileMatches, len(files))
	for i, f := range files {
		out[i] = f
		if len(f.Matches) == 0 {
			continue
		}
		total := cmp.Or(f.MatchCount, len(f.Matches))
		totalPages := ceilDiv(total, perPage)
		out[i].Matches = slices.Clone(f.Matches[:min(perPage, len(f.Matches))])
		out[i].MatchPagination = &searchtypes.MatchPagination{
			CurrentPage:    1,
			TotalPages:     totalPages,
			MatchesPerPage: perPage,
			TotalMatches:   total,
			HasMore:        totalPages > 1,
		}
	}
	return out
}

func ceilDiv(n, d int) int {
	if n <= 0 {
		return 0
	}
	return (n + d - 1) / d
}
