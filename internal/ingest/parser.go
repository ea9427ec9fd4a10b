package ingest

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/BurntSushi/toml"
	"github.com/adrg/frontmatter"
	"gopkg.in/yaml.v3"
)

var errNoFrontMatter = errors.New("no front matter found")
var errInvalidFrontMatter = errors.New("invalid front matter")

// Recognized marker syntaxes. The opening line selects the decoder.
var formats = []*frontmatter.Format{
	frontmatter.NewFormat("---", "---", yaml.Unmarshal),
	frontmatter.NewFormat("---yaml", "---", yaml.Unmarshal),
	frontmatter.NewFormat("+++", "+++", toml.Unmarshal),
	frontmatter.NewFormat("---toml", "---", toml.Unmarshal),
	frontmatter.NewFormat(";;;", ";;;", json.Unmarshal),
	frontmatter.NewFormat("---json", "---", json.Unmarshal),
}

var utf8BOM = []byte("\xef\xbb\xbf")

// ParseFrontMatter splits raw into its metadata block and body.
func ParseFrontMatter(raw []byte) (map[string]any, []byte, error) {
	norm := normalizeNewlines(raw)
	if len(norm) == 0 {
		return nil, raw, errNoFrontMatter
	}

	fm := map[string]any{}
	body, err := frontmatter.MustParse(bytes.NewReader(norm), &fm, formats...)
	if err != nil {
		if errors.Is(err, frontmatter.ErrNotFound) {
			return nil, raw, errNoFrontMatter
		}
		return nil, raw, fmt.Errorf("%w: %v", errInvalidFrontMatter, err)
	}
	return fm, bytes.TrimSpace(body), nil
}

func normalizeNewlines(raw []byte) []byte {
	norm := bytes.TrimPrefix(raw, utf8BOM)
	norm = bytes.ReplaceAll(norm, []byte("\r\n"), []byte("\n"))
	norm = bytes.ReplaceAll(norm, []byte("\r"), []byte("\n"))
	return bytes.TrimLeft(norm, " \t\n")
}
