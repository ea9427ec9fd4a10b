package meta

import (
	"net/url"
	"path"
	"regexp"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
)

var slugDatePrefixRe = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}-`)

// StripSlugDate removes a leading "YYYY-MM-DD-" from slug.
func StripSlugDate(slug string) string {
	return slugDatePrefixRe.ReplaceAllString(slug, "")
}

// Humanize turns a slug into a display title: date prefix dropped, dashes
// and underscores become spaces, first letter upper-cased.
func Humanize(slug string) string {
	s := StripSlugDate(strings.TrimSpace(slug))
	if _, ok := SlugDate(s); ok && len(s) == len(time.DateOnly) {
		return s
	}
	s = strings.NewReplacer("-", " ", "_", " ").Replace(s)
	s = strings.Join(strings.Fields(s), " ")
	if s == "" {
		return strings.TrimSpace(slug)
	}
	r, size := utf8.DecodeRuneInString(s)
	return string(unicode.ToUpper(r)) + s[size:]
}

// NormalizeKey is the comparison form of a tag or category: Unicode case
// folded, trimmed, inner whitespace runs collapsed to a single hyphen.
func NormalizeKey(s string) string {
	folded := cases.Fold().String(strings.TrimSpace(s))
	return strings.Join(strings.Fields(folded), "-")
}

// SlugOf finds the identity of a raw metadata object: its slug, else the last
// path segment of its url or path, else its id.
func SlugOf(m map[string]any) string {
	if s := FieldOf(m["slug"]).String(); s != "" {
		return strings.Trim(s, "/")
	}
	for _, key := range []string{"url", "path", "link"} {
		raw := FieldOf(m[key]).String()
		if raw == "" {
			continue
		}
		p := raw
		if u, err := url.Parse(raw); err == nil {
			p = u.Path
		}
		p = strings.TrimSuffix(strings.Trim(p, "/"), path.Ext(p))
		if base := path.Base(p); base != "" && base != "." && base != "/" {
			return base
		}
	}
	return FieldOf(m["id"]).String()
}
