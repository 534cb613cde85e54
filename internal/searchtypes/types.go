package searchtypes

import (
	"time"
)

// Status is the top-level outcome of one invocation
type Status string

const (
	StatusHasResults Status = "hasResults"
	StatusEmpty      Status = "empty"
	StatusError      Status = "error"
)

// SearchQuery is the backend-agnostic content search request.
// It is built once per invocation and never mutated afterwards.
type SearchQuery struct {
	Pattern string `json:"pattern"`
	Path    string `json:"path"`

	FixedString     bool `json:"fixedString,omitempty"`
	CaseInsensitive bool `json:"caseInsensitive,omitempty"`
	SmartCase       bool `json:"smartCase,omitempty"`
	WholeWord       bool `json:"wholeWord,omitempty"`
	Multiline       bool `json:"multiline,omitempty"`
	Hidden          bool `json:"hidden,omitempty"`
	NoIgnore        bool `json:"noIgnore,omitempty"`
	InvertMatch     bool `json:"invertMatch,omitempty"`

	// ContextLines is the shared radius; BeforeContext/AfterContext override it when set
	ContextLines  int  `json:"contextLines,omitempty"`
	BeforeContext *int `json:"beforeContext,omitempty"`
	AfterContext  *int `json:"afterContext,omitempty"`

	Types        []string `json:"types,omitempty"`
	ExcludeTypes []string `json:"excludeTypes,omitempty"`
	Globs        []string `json:"globs,omitempty"`
	ExcludeGlobs []string `json:"excludeGlobs,omitempty"`
	ExcludeDirs  []string `json:"excludeDirs,omitempty"`

	FilesOnly         bool `json:"filesOnly,omitempty"`
	MaxMatchesPerFile int  `json:"maxMatchesPerFile,omitempty"`

	FilesPerPage   int  `json:"filesPerPage,omitempty"`
	FilePageNumber int  `json:"filePageNumber,omitempty"`
	MatchesPerPage int  `json:"matchesPerPage,omitempty"`
	MaxMatchLength int  `json:"maxMatchLength,omitempty"`
	MaxFiles       int  `json:"maxFiles,omitempty"`
	SortByModified bool `json:"sortByModified,omitempty"`

	Encoding string `json:"encoding,omitempty"`
	Threads  int    `json:"threads,omitempty"`
}

// ContextRadius resolves the before/after context line counts.
// Explicit values win over the shared radius; negatives clamp to zero.
func (q SearchQuery) ContextRadius() (before, after int) {
	before, after = q.ContextLines, q.ContextLines
	if q.BeforeContext != nil {
		before = *q.BeforeContext
	}
	if q.AfterContext != nil {
		after = *q.AfterContext
	}
	return max(before, 0), max(after, 0)
}

// FileQuery is a path-enumeration request served by the find backend
type FileQuery struct {
	Path           string   `json:"path"`
	Names          []string `json:"names,omitempty"` // OR-ed -name predicates
	IName          string   `json:"iname,omitempty"`
	PathPattern    string   `json:"pathPattern,omitempty"`
	Regex          string   `json:"regex,omitempty"`
	EntryType      string   `json:"entryType,omitempty"` // f, d or l
	MinDepth       int      `json:"minDepth,omitempty"`
	MaxDepth       int      `json:"maxDepth,omitempty"`
	Size           string   `json:"size,omitempty"`           // find -size syntax, e.g. +10k
	Permissions    string   `json:"permissions,omitempty"`    // find -perm syntax
	ModifiedWithin string   `json:"modifiedWithin,omitempty"` // "7d" or "60m"
	Empty          bool     `json:"empty,omitempty"`
	ExcludeDirs    []string `json:"excludeDirs,omitempty"`

	FilesPerPage   int  `json:"filesPerPage,omitempty"`
	FilePageNumber int  `json:"filePageNumber,omitempty"`
	MaxFiles       int  `json:"maxFiles,omitempty"`
	SortByModified bool `json:"sortByModified,omitempty"`
}

// ListQuery lists a single directory through the ls backend
type ListQuery struct {
	Path           string `json:"path"`
	All            bool   `json:"all,omitempty"`
	FilesPerPage   int    `json:"filesPerPage,omitempty"`
	FilePageNumber int    `json:"filePageNumber,omitempty"`
	SortByModified bool   `json:"sortByModified,omitempty"`
}

// MatchLocation pins a match inside the raw file bytes.
// Char fields equal the byte fields until offset reconciliation has run.
type MatchLocation struct {
	ByteOffset int `json:"byteOffset"`
	ByteLength int `json:"byteLength"`
	CharOffset int `json:"charOffset"`
	CharLength int `json:"charLength"`
	Line       int `json:"line"`   // 1-based
	Column     int `json:"column"` // 0-based
}

// Match is one hit with its (possibly truncated) surrounding context
type Match struct {
	Value    string        `json:"value"`
	Location MatchLocation `json:"location"`
}

// MatchPagination describes the inner (per-file) window
type MatchPagination struct {
	CurrentPage    int  `json:"currentPage"`
	TotalPages     int  `json:"totalPages"`
	MatchesPerPage int  `json:"matchesPerPage"`
	TotalMatches   int  `json:"totalMatches"`
	HasMore        bool `json:"hasMore"`
}

// FileMatches groups the matches of one file.
// MatchCount is always the file's full count; Matches is only the current page.
type FileMatches struct {
	Path            string           `json:"path"`
	MatchCount      int              `json:"matchCount"`
	Matches         []Match          `json:"matches,omitempty"`
	MatchPagination *MatchPagination `json:"matchPagination,omitempty"`
	LastModified    *time.Time       `json:"lastModified,omitempty"`
	ContentHash     string           `json:"contentHash,omitempty"`
	IsDir           bool             `json:"isDir,omitempty"`
}

// Pagination describes the outer (files) window
type Pagination struct {
	CurrentPage  int  `json:"currentPage"`
	TotalPages   int  `json:"totalPages"`
	FilesPerPage int  `json:"filesPerPage"`
	HasMore      bool `json:"hasMore"`
}

// Stats are the backend's own aggregate numbers, authoritative when present
type Stats struct {
	Matches       int   `json:"matches"`
	MatchedLines  int   `json:"matchedLines"`
	FilesMatched  int   `json:"filesMatched"`
	FilesSearched int   `json:"filesSearched"`
	BytesSearched int64 `json:"bytesSearched"`
}

// ErrorInfo carries enough context for a caller to decide whether to retry narrower
type ErrorInfo struct {
	Type      string `json:"type"`
	Message   string `json:"message"`
	Stderr    string `json:"stderr,omitempty"`
	ExitCode  *int   `json:"exitCode,omitempty"`
	Limit     string `json:"limit,omitempty"`
	ElapsedMs int64  `json:"elapsedMs"`
	Retryable bool   `json:"retryable,omitempty"`
}

// SearchResult is the assembled response.
// TotalFiles/TotalMatches describe the full post-cap result set, Files only the current page.
type SearchResult struct {
	Status       Status        `json:"status"`
	Files        []FileMatches `json:"files"`
	TotalFiles   int           `json:"totalFiles"`
	TotalMatches int           `json:"totalMatches"`
	Pagination   Pagination    `json:"pagination"`
	Capped       bool          `json:"capped,omitempty"`
	Warnings     []string      `json:"warnings,omitempty"`
	SearchEngine string        `json:"searchEngine"`
	Stats        *Stats        `json:"stats,omitempty"`
	Error        *ErrorInfo    `json:"error,omitempty"`
	ElapsedMs    int64         `json:"elapsedMs"`
	InvocationID string        `json:"invocationId,omitempty"`
}

// AddWarning appends a warning once
func (r *SearchResult) AddWarning(w string) {
	for _, existing := range r.Warnings {
		if existing == w {
			return
		}
	}
	r.Warnings = append(r.Warnings, w)
}
