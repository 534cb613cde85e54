package mcp

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
	"slices"
	"strings"

	"github.com/hbollon/go-edlib"
)

// suggestionThreshold is the Jaro-Winkler similarity above which an unknown
// parameter gets a "did you mean" hint
const suggestionThreshold = 0.85

// UnknownField is an argument the tool does not recognize. It is ignored and
// reported back as a warning.
type UnknownField struct {
	Name       string `json:"name"`
	Value      any    `json:"value"`
	Suggestion string `json:"suggestion,omitempty"`
}

func (u UnknownField) String() string {
	msg := fmt.Sprintf("unknown parameter %q ignored", u.Name)
	if u.Suggestion != "" {
		msg += fmt.Sprintf("; did you mean %q?", u.Suggestion)
	}
	return msg
}

// fieldSet is the set of JSON names a params struct accepts
type fieldSet struct {
	names  map[string]struct{}
	sorted []string
}

// fieldsOf collects the json tag names of t's exported fields
func fieldsOf(t reflect.Type) fieldSet {
	fs := fieldSet{names: make(map[string]struct{}), sorted: []string{}}
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			continue
		}
		if name == "" {
			name = f.Name
		}
		fs.names[name] = struct{}{}
		fs.sorted = append(fs.sorted, name)
	}
	slices.Sort(fs.sorted)
	return fs
}

func (fs fieldSet) has(name string) bool {
	_, ok := fs.names[name]
	return ok
}

// decodeParams decodes a JSON object into dst, which must be a pointer to a type
// without its own UnmarshalJSON. Keys listed in aliases are renamed first;
// keys still unknown are returned as warnings instead of failing the call.
func decodeParams(data []byte, dst any, known fieldSet, aliases map[string]string) ([]UnknownField, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil, nil
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("arguments must be a JSON object: %w", err)
	}

	normalized := make(map[string]json.RawMessage, len(raw))
	var unknown []UnknownField
	for _, key := range sortedKeys(raw) {
		value := raw[key]
		name := key
		if target, ok := aliases[key]; ok {
			name = target
		}
		if !known.has(name) {
			unknown = append(unknown, decodeUnknownField(key, value, known))
			continue
		}
		// the canonical name wins over an alias
		if _, dup := normalized[name]; dup && name != key {
			continue
		}
		normalized[name] = value
	}

	encoded, err := json.Marshal(normalized)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(encoded, dst); err != nil {
		return nil, err
	}
	return unknown, nil
}

func decodeUnknownField(name string, data json.RawMessage, known fieldSet) UnknownField {
	var value any
	if err := json.Unmarshal(data, &value); err != nil {
		value = string(data)
	}
	field := UnknownField{Name: name, Value: value}
	if s, err := edlib.FuzzySearchThreshold(strings.ToLower(name), known.sorted, suggestionThreshold, edlib.JaroWinkler); err == nil {
		field.Suggestion = s
	}
	return field
}

// sortedKeys keeps warning order stable across calls
func sortedKeys(raw map[string]json.RawMessage) []string {
	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
