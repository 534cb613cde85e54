// Package parser turns raw backend stdout into per-file match models.
package parser

import (
	"encoding/base64"
	"encoding/json"
)

// Event is one decoded line of ripgrep's --json stream. The set of variants is
// closed: MatchEvent, ContextEvent, SummaryEvent and UnrecognizedEvent.
type Event interface {
	eventType() string
}

// Submatch is one regex hit inside a matched line; offsets are bytes into the line
type Submatch struct {
	Text  string
	Start int
	End   int
}

// MatchEvent is a line (or multiline block) containing at least one hit
type MatchEvent struct {
	Path           string
	Text           string
	LineNumber     int
	AbsoluteOffset int
	Submatches     []Submatch
}

// ContextEvent is a line surrounding a match
type ContextEvent struct {
	Path           string
	Text           string
	LineNumber     int
	AbsoluteOffset int
}

// SummaryEvent carries ripgrep's aggregate statistics for the whole run
type SummaryEvent struct {
	Matches       int
	MatchedLines  int
	FilesMatched  int
	FilesSearched int
	BytesSearched int64
}

// UnrecognizedEvent covers begin/end messages, malformed JSON and interleaved
// tool warnings. It is never an error.
type UnrecognizedEvent struct {
	Type string
	Raw  string
}

func (MatchEvent) eventType() string { return "match" }
func (ContextEvent) eventType() string { return "context" }
func (SummaryEvent) eventType() string { return "summary" }
func (e UnrecognizedEvent) eventType() string { return e.Type }

// arbitraryData is ripgrep's encoding for text that may not be valid UTF-8:
// either {"text": "..."} or {"bytes": "<base64>"}
type arbitraryData struct {
	Text  *string `json:"text"`
	Bytes *string `json:"bytes"`
}

func (d *arbitraryData) decode() (string, bool) {
	if d == nil {
		return "", false
	}
	if d.Text != nil {
		return *d.Text, true
	}
	if d.Bytes != nil {
		raw, err := base64.StdEncoding.DecodeString(*d.Bytes)
		if err != nil {
			return "", false
		}
		return string(raw), true
	}
	return "", false
}

type wireMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type wireLine struct {
	Path           *arbitraryData `json:"path"`
	Lines          *arbitraryData `json:"lines"`
	LineNumber     *int           `json:"line_number"`
	AbsoluteOffset int            `json:"absolute_offset"`
	Submatches     []struct {
		Match *arbitraryData `json:"match"`
		Start int            `json:"start"`
		End   int            `json:"end"`
	} `json:"submatches"`
}

type wireSummary struct {
	Stats struct {
		Searches          int   `json:"searches"`
		SearchesWithMatch int   `json:"searches_with_match"`
		BytesSearched     int64 `json:"bytes_searched"`
		MatchedLines      int   `json:"matched_lines"`
		Matches           int   `json:"matches"`
	} `json:"stats"`
}

// DecodeEvent decodes one line of the stream. It never fails: anything it cannot
// interpret becomes an UnrecognizedEvent.
func DecodeEvent(line []byte) Event {
	var msg wireMessage
	if err := json.Unmarshal(line, &msg); err != nil {
		return UnrecognizedEvent{Raw: string(line)}
	}

	switch msg.Type {
	case "match", "context":
		var data wireLine
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			return UnrecognizedEvent{Type: msg.Type, Raw: string(line)}
		}
		path, ok := data.Path.decode()
		if !ok || path == "" {
			return UnrecognizedEvent{Type: msg.Type, Raw: string(line)}
		}
		text, _ := data.Lines.decode()
		lineNumber := 0
		if data.LineNumber != nil {
			lineNumber = *data.LineNumber
		}

		if msg.Type == "context" {
			return ContextEvent{Path: path, Text: text, LineNumber: lineNumber, AbsoluteOffset: data.AbsoluteOffset}
		}

		ev := MatchEvent{Path: path, Text: text, LineNumber: lineNumber, AbsoluteOffset: data.AbsoluteOffset}
		for _, sm := range data.Submatches {
			if sm.Start < 0 || sm.End < sm.Start {
				continue
			}
			smText, _ := sm.Match.decode()
			ev.Submatches = append(ev.Submatches, Submatch{Text: smText, Start: sm.Start, End: sm.End})
		}
		return ev

	case "summary":
		var data wireSummary
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			return UnrecognizedEvent{Type: msg.Type, Raw: string(line)}
		}
		return SummaryEvent{
			Matches:       data.Stats.Matches,
			MatchedLines:  data.Stats.MatchedLines,
			FilesMatched:  data.Stats.SearchesWithMatch,
			FilesSearched: data.Stats.Searches,
			BytesSearched: data.Stats.BytesSearched,
		}

	default:
		return UnrecognizedEvent{Type: msg.Type, Raw: string(line)}
	}
}
