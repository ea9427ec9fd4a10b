package content

import (
	"strings"
	"time"
)

// DateSource records which field a post's date was resolved from.
type DateSource string

const (
	DateExplicit DateSource = "date"
	DateGMT      DateSource = "date_gmt"
	DateSlug     DateSource = "slug"
	DateFetched  DateSource = "fetched"
	DateUnset    DateSource = ""
)

type Post struct {
	Slug  string
	Title string

	Date       time.Time
	DateSource DateSource

	Tags       []string
	Categories []string
	Authors    []string

	Cover       string
	Summary     string
	Description string
	ReadTime    string
}

type Heading struct {
	Level int
	ID    string
	Text  string
}

// HasExplicitDate reports whether the date came from the post's own metadata
// rather than from the slug or the fetch clock.
func (p *Post) HasExplicitDate() bool {
	return p.DateSource == DateExplicit || p.DateSource == DateGMT
}

// FirstTags returns at most n tags for card display.
func (p *Post) FirstTags(n int) []string {
	if len(p.Tags) <= n {
		return p.Tags
	}
	return p.Tags[:n]
}

// Normalize is the one-time coercion pass applied after a post is built.
func (p *Post) Normalize() {
	p.Slug = strings.Trim(strings.TrimSpace(p.Slug), "/")
	p.Title = strings.TrimSpace(p.Title)
	p.Cover = strings.TrimSpace(p.Cover)
	p.Summary = strings.TrimSpace(p.Summary)
	p.Description = strings.TrimSpace(p.Description)
	p.ReadTime = strings.TrimSpace(p.ReadTime)

	p.Tags = dedupe(p.Tags)
	p.Categories = dedupe(p.Categories)
	p.Authors = dedupe(p.Authors)
	if p.Summary == "" {
		p.Summary = p.Description
	}
}

// dedupe drops empty and repeated (case-insensitive) items, keeping the
// first spelling seen.
func dedupe(items []string) []string {
	seen := make(map[string]struct{}, len(items))
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		key := strings.ToLower(item)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, item)
	}
	return out
}
