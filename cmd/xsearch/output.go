package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/standardbeagle/xsearch/internal/searchtypes"
	"github.com/standardbeagle/xsearch/pkg/pathutil"
)

// report prints a result and maps its status onto the process exit code
func report(c *cli.Context, root string, result *searchtypes.SearchResult) error {
	if !c.Bool("absolute") {
		result = pathutil.ToRelativeResult(result, root)
	}

	if c.Bool("json") {
		if err := writeJSON(c.App.Writer, result); err != nil {
			return cli.Exit(err.Error(), exitError)
		}
	} else {
		writeText(c.App.Writer, result)
		writeFooter(c.App.ErrWriter, result)
	}

	switch result.Status {
	case searchtypes.StatusError:
		return cli.Exit(errorLine(result.Error), exitError)
	case searchtypes.StatusEmpty:
		return cli.Exit("", exitNoResults)
	}
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// writeText prints grep-style lines: path:line:column: text. Columns are
// printed 1-based; multi-line values (context, multiline matches) continue
// on indented lines.
func writeText(w io.Writer, result *searchtypes.SearchResult) {
	for _, f := range result.Files {
		if len(f.Matches) == 0 {
			writeEntry(w, f)
			continue
		}
		for _, m := range f.Matches {
			loc := m.Location
			lines := strings.Split(m.Value, "\n")
			fmt.Fprintf(w, "%s:%d:%d: %s\n", f.Path, loc.Line, loc.Column+1, lines[0])
			for _, l := range lines[1:] {
				fmt.Fprintf(w, "    %s\n", l)
			}
		}
		if mp := f.MatchPagination; mp != nil && mp.HasMore {
			fmt.Fprintf(w, "%s: %d more matches not shown\n", f.Path, mp.TotalMatches-len(f.Matches))
		}
	}
}

func writeEntry(w io.Writer, f searchtypes.FileMatches) {
	switch {
	case f.IsDir:
		fmt.Fprintf(w, "%s/\n", strings.TrimSuffix(f.Path, "/"))
	case f.MatchCount > 0:
		fmt.Fprintf(w, "%s (%d matches)\n", f.Path, f.MatchCount)
	default:
		fmt.Fprintln(w, f.Path)
	}
}

// writeFooter prints warnings and the paging summary to stderr so stdout
// stays pipeable
func writeFooter(w io.Writer, result *searchtypes.SearchResult) {
	for _, warn := range result.Warnings {
		fmt.Fprintf(w, "warning: %s\n", warn)
	}
	if result.Status == searchtypes.StatusError {
		return
	}

	p := result.Pagination
	fmt.Fprintf(w, "%s: %d files, %d matches, page %d/%d", result.SearchEngine,
		result.TotalFiles, result.TotalMatches, p.CurrentPage, p.TotalPages)
	if result.Capped {
		fmt.Fprint(w, " (capped)")
	}
	if p.HasMore {
		fmt.Fprintf(w, ", next: --page %d", p.CurrentPage+1)
	}
	fmt.Fprintf(w, " [%dms]\n", result.ElapsedMs)
}

func errorLine(info *searchtypes.ErrorInfo) string {
	if info == nil {
		return "search failed"
	}
	msg := fmt.Sprintf("%s error: %s", info.Type, info.Message)
	if stderr := strings.TrimSpace(info.Stderr); stderr != "" {
		msg += "\n" + stderr
	}
	return msg
}
