package mcp

import (
	"reflect"

	"github.com/standardbeagle/xsearch/internal/searchtypes"
)

// SearchContentParams are the arguments of the search_content tool
type SearchContentParams struct {
	Pattern string `json:"pattern"`
	Path    string `json:"path,omitempty"`

	FixedString     bool `json:"fixed_string,omitempty"`
	CaseInsensitive bool `json:"case_insensitive,omitempty"`
	SmartCase       bool `json:"smart_case,omitempty"`
	WholeWord       bool `json:"whole_word,omitempty"`
	Multiline       bool `json:"multiline,omitempty"`
	Hidden          bool `json:"hidden,omitempty"`
	NoIgnore        bool `json:"no_ignore,omitempty"`
	InvertMatch     bool `json:"invert_match,omitempty"`

	ContextLines  *int `json:"context_lines,omitempty"`
	BeforeContext *int `json:"before_context,omitempty"`
	AfterContext  *int `json:"after_context,omitempty"`

	Types        []string `json:"types,omitempty"`
	ExcludeTypes []string `json:"exclude_types,omitempty"`
	Globs        []string `json:"globs,omitempty"`
	ExcludeGlobs []string `json:"exclude_globs,omitempty"`
	ExcludeDirs  []string `json:"exclude_dirs,omitempty"`

	FilesOnly         bool `json:"files_only,omitempty"`
	MaxMatchesPerFile int  `json:"max_matches_per_file,omitempty"`

	FilesPerPage   int  `json:"files_per_page,omitempty"`
	Page           int  `json:"page,omitempty"`
	MatchesPerPage int  `json:"matches_per_page,omitempty"`
	MaxMatchLength int  `json:"max_match_length,omitempty"`
	MaxFiles       int  `json:"max_files,omitempty"`
	SortByModified bool `json:"sort_by_modified,omitempty"`

	Encoding string `json:"encoding,omitempty"`
	Threads  int    `json:"threads,omitempty"`

	Warnings []UnknownField `json:"-"`
}

var (
	searchContentFields = fieldsOf(reflect.TypeFor[SearchContentParams]())

	// names callers commonly borrow from other search tools
	searchContentAliases = map[string]string{
		"query":            "pattern",
		"ignore_case":      "case_insensitive",
		"context":          "context_lines",
		"word_boundary":    "whole_word",
		"files_with_match": "files_only",
		"page_number":      "page",
	}
)

func (p *SearchContentParams) UnmarshalJSON(data []byte) error {
	type alias SearchContentParams
	warnings, err := decodeParams(data, (*alias)(p), searchContentFields, searchContentAliases)
	if err != nil {
		return err
	}
	p.Warnings = warnings
	return nil
}

// query maps the tool arguments onto a search query. An explicit
// context_lines of 0 disables context even when the config sets a default.
func (p SearchContentParams) query() searchtypes.SearchQuery {
	q := searchtypes.SearchQuery{
		Pattern:           p.Pattern,
		Path:              p.Path,
		FixedString:       p.FixedString,
		CaseInsensitive:   p.CaseInsensitive,
		SmartCase:         p.SmartCase,
		WholeWord:         p.WholeWord,
		Multiline:         p.Multiline,
		Hidden:            p.Hidden,
		NoIgnore:          p.NoIgnore,
		InvertMatch:       p.InvertMatch,
		BeforeContext:     p.BeforeContext,
		AfterContext:      p.AfterContext,
		Types:             p.Types,
		ExcludeTypes:      p.ExcludeTypes,
		Globs:             p.Globs,
		ExcludeGlobs:      p.ExcludeGlobs,
		ExcludeDirs:       p.ExcludeDirs,
		FilesOnly:         p.FilesOnly,
		MaxMatchesPerFile: p.MaxMatchesPerFile,
		FilesPerPage:      p.FilesPerPage,
		FilePageNumber:    p.Page,
		MatchesPerPage:    p.MatchesPerPage,
		MaxMatchLength:    p.MaxMatchLength,
		MaxFiles:          p.MaxFiles,
		SortByModified:    p.SortByModified,
		Encoding:          p.Encoding,
		Threads:           p.Threads,
	}
	if p.ContextLines != nil {
		q.ContextLines = *p.ContextLines
		if *p.ContextLines == 0 {
			zero := 0
			if q.BeforeContext == nil {
				q.BeforeContext = &zero
			}
			if q.AfterContext == nil {
				q.AfterContext = &zero
			}
		}
	}
	return q
}

// FindFilesParams are the arguments of the find_files tool
type FindFilesParams struct {
	Path           string   `json:"path,omitempty"`
	Names          []string `json:"names,omitempty"`
	IName          string   `json:"iname,omitempty"`
	PathPattern    string   `json:"path_pattern,omitempty"`
	Regex          string   `json:"regex,omitempty"`
	Type           string   `json:"type,omitempty"`
	MinDepth       int      `json:"min_depth,omitempty"`
	MaxDepth       int      `json:"max_depth,omitempty"`
	Size           string   `json:"size,omitempty"`
	Permissions    string   `json:"permissions,omitempty"`
	ModifiedWithin string   `json:"modified_within,omitempty"`
	Empty          bool     `json:"empty,omitempty"`
	ExcludeDirs    []string `json:"exclude_dirs,omitempty"`

	FilesPerPage   int  `json:"files_per_page,omitempty"`
	Page           int  `json:"page,omitempty"`
	MaxFiles       int  `json:"max_files,omitempty"`
	SortByModified bool `json:"sort_by_modified,omitempty"`

	Warnings []UnknownField `json:"-"`
}

var (
	findFilesFields  = fieldsOf(reflect.TypeFor[FindFilesParams]())
	findFilesAliases = map[string]string{
		"entry_type":  "type",
		"depth":       "max_depth",
		"page_number": "page",
	}
)

func (p *FindFilesParams) UnmarshalJSON(data []byte) error {
	type alias FindFilesParams
	warnings, err := decodeParams(data, (*alias)(p), findFilesFields, findFilesAliases)
	if err != nil {
		return err
	}
	p.Warnings = warnings
	return nil
}

func (p FindFilesParams) query() searchtypes.FileQuery {
	return searchtypes.FileQuery{
		Path:           p.Path,
		Names:          p.Names,
		IName:          p.IName,
		PathPattern:    p.PathPattern,
		Regex:          p.Regex,
		EntryType:      p.Type,
		MinDepth:       p.MinDepth,
		MaxDepth:       p.MaxDepth,
		Size:           p.Size,
		Permissions:    p.Permissions,
		ModifiedWithin: p.ModifiedWithin,
		Empty:          p.Empty,
		ExcludeDirs:    p.ExcludeDirs,
		FilesPerPage:   p.FilesPerPage,
		FilePageNumber: p.Page,
		MaxFiles:       p.MaxFiles,
		SortByModified: p.SortByModified,
	}
}

// ListDirectoryParams are the arguments of the list_directory tool
type ListDirectoryParams struct {
	Path           string `json:"path,omitempty"`
	All            bool   `json:"all,omitempty"`
	FilesPerPage   int    `json:"files_per_page,omitempty"`
	Page           int    `json:"page,omitempty"`
	SortByModified bool   `json:"sort_by_modified,omitempty"`

	Warnings []UnknownField `json:"-"`
}

var (
	listDirectoryFields  = fieldsOf(reflect.TypeFor[ListDirectoryParams]())
	listDirectoryAliases = map[string]string{
		"hidden":      "all",
		"page_number": "page",
	}
)

func (p *ListDirectoryParams) UnmarshalJSON(data []byte) error {
	type alias ListDirectoryParams
	warnings, err := decodeParams(data, (*alias)(p), listDirectoryFields, listDirectoryAliases)
	if err != nil {
		return err
	}
	p.Warnings = warnings
	return nil
}

func (p ListDirectoryParams) query() searchtypes.ListQuery {
	return searchtypes.ListQuery{
		Path:           p.Path,
		All:            p.All,
		FilesPerPage:   p.FilesPerPage,
		FilePageNumber: p.Page,
		SortByModified: p.SortByModified,
	}
}

// InfoParams are the arguments of the info tool
type InfoParams struct {
	Warnings []UnknownField `json:"-"`
}

var infoFields = fieldsOf(reflect.TypeFor[InfoParams]())

func (p *InfoParams) UnmarshalJSON(data []byte) error {
	type alias InfoParams
	warnings, err := decodeParams(data, (*alias)(p), infoFields, nil)
	if err != nil {
		return err
	}
	p.Warnings = warnings
	return nil
}
