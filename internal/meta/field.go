// Package meta normalizes loosely typed post metadata into canonical values.
//
// Remote payloads and front matter carry tags, categories and authors as a
// single string, a delimited string, a list, or nothing at all. Field models
// those shapes as one tagged union; List is the only way downstream code
// reads them.
package meta

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

type Kind uint8

const (
	Absent Kind = iota
	Single
	Multi
)

func (k Kind) String() string {
	switch k {
	case Single:
		return "single"
	case Multi:
		return "multi"
	default:
		return "absent"
	}
}

// Field is a metadata value as it arrived at the API boundary.
type Field struct {
	kind   Kind
	single string
	multi  []string
}

func Str(s string) Field {
	return Field{kind: Single, single: s}
}

func Strs(items ...string) Field {
	return Field{kind: Multi, multi: append([]string(nil), items...)}
}

func (f Field) Kind() Kind { return f.kind }

func (f Field) IsAbsent() bool { return f.kind == Absent }

// String returns the scalar value, or the first list item for lists.
func (f Field) String() string {
	switch f.kind {
	case Single:
		return strings.TrimSpace(f.single)
	case Multi:
		for _, it := range f.multi {
			if s := strings.TrimSpace(it); s != "" {
				return s
			}
		}
	}
	return ""
}

// UnmarshalJSON never fails on shape: anything that is not a string, a
// scalar or a list of scalars decodes as Absent.
func (f *Field) UnmarshalJSON(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		*f = Field{}
		return nil
	}
	*f = FieldOf(v)
	return nil
}

func (f Field) MarshalJSON() ([]byte, error) {
	switch f.kind {
	case Single:
		return json.Marshal(f.single)
	case Multi:
		return json.Marshal(f.multi)
	default:
		return []byte("null"), nil
	}
}

// FieldOf converts a value produced by a JSON, YAML or TOML decoder.
func FieldOf(v any) Field {
	switch x := v.(type) {
	case nil:
		return Field{}
	case Field:
		return x
	case string:
		return Str(x)
	case []string:
		return Strs(x...)
	case []any:
		items := make([]string, 0, len(x))
		for _, it := range x {
			if s, ok := scalar(it); ok {
				items = append(items, s)
			}
		}
		return Strs(items...)
	case map[string]any:
		if s, ok := scalar(x["name"]); ok {
			return Str(s)
		}
		return Field{}
	case map[any]any:
		if s, ok := scalar(x["name"]); ok {
			return Str(s)
		}
		return Field{}
	}
	if s, ok := scalar(v); ok {
		return Str(s)
	}
	return Field{}
}

func scalar(v any) (string, bool) {
	switch x := v.(type) {
	case string:
		return x, true
	case time.Time:
		return x.UTC().Format(time.RFC3339), true
	case *time.Time:
		if x == nil {
			return "", false
		}
		return x.UTC().Format(time.RFC3339), true
	case json.Number:
		return x.String(), true
	case bool:
		return strconv.FormatBool(x), true
	case int:
		return strconv.Itoa(x), true
	case int64:
		return strconv.FormatInt(x, 10), true
	case uint64:
		return strconv.FormatUint(x, 10), true
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), true
	case map[string]any:
		return scalar(x["name"])
	case map[any]any:
		return scalar(x["name"])
	case fmt.Stringer:
		return x.String(), true
	}
	return "", false
}

// List returns the canonical ordered list form of f. Items are trimmed and
// stripped of surrounding quotes and brackets; empty items are dropped.
func List(f Field) []string {
	var raw []string
	switch f.kind {
	case Single:
		raw = splitDelimited(f.single)
	case Multi:
		raw = f.multi
	default:
		return []string{}
	}

	out := make([]string, 0, len(raw))
	for _, it := range raw {
		if s := clean(it); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func splitDelimited(s string) []string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "[") && strings.HasSuffix(s, "]") {
		s = s[1 : len(s)-1]
	}
	for _, sep := range []string{",", ";", "|"} {
		if strings.Contains(s, sep) {
			return strings.Split(s, sep)
		}
	}
	return []string{s}
}

const strippable = "\"'`[]"

func clean(s string) string {
	s = strings.TrimSpace(s)
	for {
		t := strings.TrimSpace(strings.Trim(s, strippable))
		if t == s {
			return s
		}
		s = t
	}
}
