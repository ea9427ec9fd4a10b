package ingest

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"tipblog/internal/meta"
)

type Shape string

const (
	ShapeEnvelope    Shape = "envelope"
	ShapeFrontMatter Shape = "front-matter"
	ShapeRaw         Shape = "raw"
)

// Payload is a single post response after unwrapping.
type Payload struct {
	Meta  map[string]any
	Body  string
	Shape Shape
}

// maxUnwrap bounds how many nested JSON encodings are peeled off.
const maxUnwrap = 3

var (
	contentKeys = []string{"content", "body", "markdown"}
	metaKeys    = []string{"metadata", "frontMatter", "frontmatter", "data", "meta"}
)

// Decode resolves the post payload shapes the content API returns: a JSON
// envelope, raw markdown with front matter, or either of those encoded once
// more as a JSON string. It never fails; unrecognized input is raw markdown.
func Decode(raw []byte) Payload {
	return decode(raw, 0)
}

func decode(raw []byte, depth int) Payload {
	trimmed := bytes.TrimSpace(bytes.TrimPrefix(raw, utf8BOM))

	if depth < maxUnwrap && len(trimmed) > 0 {
		switch trimmed[0] {
		case '"':
			var s string
			if err := json.Unmarshal(trimmed, &s); err == nil {
				return decode([]byte(s), depth+1)
			}
		case '{':
			if p, ok := decodeEnvelope(trimmed, depth); ok {
				return p
			}
		}
	}

	fm, body, err := ParseFrontMatter(trimmed)
	if err == nil {
		return Payload{Meta: fm, Body: string(body), Shape: ShapeFrontMatter}
	}
	return Payload{Meta: map[string]any{}, Body: string(trimmed), Shape: ShapeRaw}
}

func decodeEnvelope(raw []byte, depth int) (Payload, bool) {
	var env map[string]any
	if err := json.Unmarshal(raw, &env); err != nil {
		return Payload{}, false
	}

	var body string
	found := false
	for _, k := range contentKeys {
		if s, ok := env[k].(string); ok {
			body, found = s, true
			break
		}
	}
	if !found {
		return Payload{}, false
	}

	md := map[string]any{}
	for _, k := range metaKeys {
		if nested, ok := env[k].(map[string]any); ok {
			md = meta.Merge(md, nested)
		}
	}
	for k, v := range env {
		if isReserved(k) {
			continue
		}
		if _, ok := md[k]; !ok {
			md[k] = v
		}
	}

	inner := decode([]byte(body), depth+1)
	return Payload{
		Meta:  meta.Merge(md, inner.Meta),
		Body:  inner.Body,
		Shape: ShapeEnvelope,
	}, true
}

func isReserved(k string) bool {
	for _, r := range contentKeys {
		if k == r {
			return true
		}
	}
	for _, r := range metaKeys {
		if k == r {
			return true
		}
	}
	return false
}

const wordsPerMinute = 200

// ReadTime estimates reading time for a markdown body.
func ReadTime(body string) string {
	words := len(strings.Fields(body))
	mins := (words + wordsPerMinute - 1) / wordsPerMinute
	if mins < 1 {
		mins = 1
	}
	return strconv.Itoa(mins) + " min read"
}
