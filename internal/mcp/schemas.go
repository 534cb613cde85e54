package mcp

import "github.com/google/jsonschema-go/jsonschema"

func stringProp(desc string) *jsonschema.Schema {
	return &jsonschema.Schema{Type: "string", Description: desc}
}

func intProp(desc string) *jsonschema.Schema {
	return &jsonschema.Schema{Type: "integer", Description: desc}
}

func boolProp(desc string) *jsonschema.Schema {
	return &jsonschema.Schema{Type: "boolean", Description: desc}
}

func stringsProp(desc string) *jsonschema.Schema {
	return &jsonschema.Schema{Type: "array", Items: &jsonschema.Schema{Type: "string"}, Description: desc}
}

func pagingProps(props map[string]*jsonschema.Schema) map[string]*jsonschema.Schema {
	props["files_per_page"] = intProp("Files per page (default from config, usually 10)")
	props["page"] = intProp("1-based file page number")
	props["sort_by_modified"] = boolProp("Newest files first instead of path order")
	return props
}

func searchContentSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type: "object",
		Properties: pagingProps(map[string]*jsonschema.Schema{
			"pattern":              stringProp("Regular expression (or literal text with fixed_string)"),
			"path":                 stringProp("File or directory to search, relative to the project root (default: root)"),
			"fixed_string":         boolProp("Treat pattern as literal text"),
			"case_insensitive":     boolProp("Ignore case"),
			"smart_case":           boolProp("Ignore case unless the pattern has an uppercase letter"),
			"whole_word":           boolProp("Only match whole words"),
			"multiline":            boolProp("Let the pattern span lines (ripgrep only)"),
			"hidden":               boolProp("Search hidden files and directories"),
			"no_ignore":            boolProp("Do not honor .gitignore and similar files"),
			"invert_match":         boolProp("Return lines that do not match"),
			"context_lines":        intProp("Lines of context around each match, 0-50 (ripgrep only)"),
			"before_context":       intProp("Lines of context before each match; overrides context_lines"),
			"after_context":        intProp("Lines of context after each match; overrides context_lines"),
			"types":                stringsProp("ripgrep file types to include, e.g. [\"go\", \"ts\"]"),
			"exclude_types":        stringsProp("ripgrep file types to skip"),
			"globs":                stringsProp("Only search files matching these globs"),
			"exclude_globs":        stringsProp("Skip files matching these globs"),
			"exclude_dirs":         stringsProp("Skip these directory names"),
			"files_only":           boolProp("Return matching file paths with counts, no match bodies"),
			"max_matches_per_file": intProp("Stop each file after this many matches"),
			"matches_per_page":     intProp("Matches returned per file (first page)"),
			"max_match_length":     intProp("Truncate match text to this many characters"),
			"max_files":            intProp("Cap the number of files before paging"),
			"encoding":             stringProp("Text encoding, e.g. utf-16le (ripgrep only)"),
			"threads":              intProp("ripgrep worker threads"),
		}),
		Required: []string{"pattern"},
	}
}

func findFilesSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type: "object",
		Properties: pagingProps(map[string]*jsonschema.Schema{
			"path":            stringProp("Directory to enumerate, relative to the project root (default: root)"),
			"names":           stringsProp("Base-name globs, any of which may match, e.g. [\"*.go\", \"Makefile\"]"),
			"iname":           stringProp("Case-insensitive base-name glob"),
			"path_pattern":    stringProp("Glob matched against the whole path"),
			"regex":           stringProp("POSIX extended regex matched against the whole path"),
			"type":            stringProp("Entry type: f (file), d (directory) or l (symlink)"),
			"min_depth":       intProp("Minimum depth below path"),
			"max_depth":       intProp("Maximum depth below path"),
			"size":            stringProp("find -size expression, e.g. +10k"),
			"permissions":     stringProp("find -perm expression, e.g. 644 or -u+x"),
			"modified_within": stringProp("Modified within a duration, e.g. 7d, 12h or 30m"),
			"empty":           boolProp("Only empty files and directories"),
			"exclude_dirs":    stringsProp("Skip these directory names"),
			"max_files":       intProp("Cap the number of paths before paging"),
		}),
	}
}

func listDirectorySchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type: "object",
		Properties: pagingProps(map[string]*jsonschema.Schema{
			"path": stringProp("Directory to list, relative to the project root (default: root)"),
			"all":  boolProp("Include hidden entries"),
		}),
	}
}

func infoSchema() *jsonschema.Schema {
	return &jsonschema.Schema{Type: "object", Properties: map[string]*jsonschema.Schema{}}
}
