package parser

import (
	"bytes"
	"strings"
	"unicode/utf8"

	"github.com/standardbeagle/xsearch/internal/searchtypes"
)

// Output is the parser's intermediate model. Files keep first-appearance order.
// Stats is non-nil only when the backend reported a summary.
type Output struct {
	Files []searchtypes.FileMatches
	Stats *searchtypes.Stats
}

// fileState accumulates one path's events until the stream ends
type fileState struct {
	path    string
	matches []MatchEvent
	// line number -> text, for context lines and match lines alike
	lines map[int]string
}

// ParseJSON parses a ripgrep --json stream. Malformed and unrecognized lines are
// skipped. Match values carry the context radius of q and are truncated to
// q.MaxMatchLength code points. In files-only mode match bodies are dropped but
// per-file counts are kept.
func ParseJSON(raw []byte, q searchtypes.SearchQuery) Output {
	var (
		order  []string
		states = make(map[string]*fileState)
		stats  *searchtypes.Stats
	)

	state := func(path string) *fileState {
		st, ok := states[path]
		if !ok {
			st = &fileState{path: path, lines: make(map[int]string)}
			states[path] = st
			order = append(order, path)
		}
		return st
	}

	forEachLine(raw, func(line []byte) {
		switch ev := DecodeEvent(line).(type) {
		case MatchEvent:
			st := state(ev.Path)
			st.matches = append(st.matches, ev)
			if ev.LineNumber > 0 {
				st.lines[ev.LineNumber] = trimEOL(ev.Text)
			}
		case ContextEvent:
			if ev.LineNumber > 0 {
				state(ev.Path).lines[ev.LineNumber] = trimEOL(ev.Text)
			}
		case SummaryEvent:
			stats = &searchtypes.Stats{
				Matches:       ev.Matches,
				MatchedLines:  ev.MatchedLines,
				FilesMatched:  ev.FilesMatched,
				FilesSearched: ev.FilesSearched,
				BytesSearched: ev.BytesSearched,
			}
		}
	})

	before, after := q.ContextRadius()
	out := Output{Stats: stats}
	for _, path := range order {
		st := states[path]
		if len(st.matches) == 0 {
			// context lines without a match, e.g. from a truncated stream
			continue
		}
		fm := searchtypes.FileMatches{Path: path}
		for _, ev := range st.matches {
			n := len(ev.Submatches)
			if n == 0 {
				n = 1
			}
			fm.MatchCount += n
			if q.FilesOnly {
				continue
			}
			value := TruncateRunes(st.assemble(ev, before, after), q.MaxMatchLength)
			for _, loc := range locations(ev) {
				fm.Matches = append(fm.Matches, searchtypes.Match{Value: value, Location: loc})
			}
		}
		out.Files = append(out.Files, fm)
	}
	return out
}

// assemble joins the available context lines around ev with the match text.
// Missing lines are omitted.
func (st *fileState) assemble(ev MatchEvent, before, after int) string {
	if ev.LineNumber <= 0 || (before == 0 && after == 0) {
		return trimEOL(ev.Text)
	}

	var parts []string
	for n := ev.LineNumber - before; n < ev.LineNumber; n++ {
		if text, ok := st.lines[n]; ok {
			parts = append(parts, text)
		}
	}
	matchText := trimEOL(ev.Text)
	parts = append(parts, matchText)

	// a multiline match spans several lines; after-context starts past its end
	last := ev.LineNumber + strings.Count(matchText, "\n")
	for n := last + 1; n <= last+after; n++ {
		if text, ok := st.lines[n]; ok {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, "\n")
}

// locations yields one location per submatch. A line without submatches (an
// inverted match) is located as a whole.
func locations(ev MatchEvent) []searchtypes.MatchLocation {
	if len(ev.Submatches) == 0 {
		length := len(trimEOL(ev.Text))
		return []searchtypes.MatchLocation{{
			ByteOffset: ev.AbsoluteOffset,
			ByteLength: length,
			CharOffset: ev.AbsoluteOffset,
			CharLength: length,
			Line:       ev.LineNumber,
		}}
	}

	locs := make([]searchtypes.MatchLocation, 0, len(ev.Submatches))
	for _, sm := range ev.Submatches {
		offset := ev.AbsoluteOffset + sm.Start
		length := sm.End - sm.Start
		locs = append(locs, searchtypes.MatchLocation{
			ByteOffset: offset,
			ByteLength: length,
			CharOffset: offset,
			CharLength: length,
			Line:       ev.LineNumber + strings.Count(safePrefix(ev.Text, sm.Start), "\n"),
			Column:     column(ev.Text, sm.Start),
		})
	}
	return locs
}

// column is the code point index of byte offset start within its own line
func column(text string, start int) int {
	prefix := safePrefix(text, start)
	if i := strings.LastIndexByte(prefix, '\n'); i >= 0 {
		prefix = prefix[i+1:]
	}
	return utf8.RuneCountInString(prefix)
}

func safePrefix(text string, end int) string {
	if end > len(text) {
		end = len(text)
	}
	return text[:end]
}

func trimEOL(s string) string {
	s = strings.TrimSuffix(s, "\n")
	return strings.TrimSuffix(s, "\r")
}

func forEachLine(raw []byte, fn func(line []byte)) {
	for len(raw) > 0 {
		var line []byte
		line, raw, _ = bytes.Cut(raw, []byte{'\n'})
		line = bytes.TrimSuffix(line, []byte{'\r'})
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		fn(line)
	}
}
