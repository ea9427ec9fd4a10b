package meta

import (
	"time"

	"tipblog/internal/domain/content"
)

// Aliases of the same logical field across the payload shapes the content
// API and hand-written front matter have used.
var (
	keysDate     = []string{"date", "published", "publishedAt", "published_at"}
	keysDateGMT  = []string{"date_gmt", "dateGmt"}
	keysTags     = []string{"tags", "tag", "keywords"}
	keysCats     = []string{"categories", "category"}
	keysAuthors  = []string{"authors", "author"}
	keysCover    = []string{"coverImage", "cover_image", "cover", "image"}
	keysSummary  = []string{"summary", "shortDescription", "short_description", "excerpt"}
	keysReadTime = []string{"readTime", "read_time", "reading_time"}
)

// Pick returns the first non-absent field among keys.
func Pick(m map[string]any, keys ...string) Field {
	for _, k := range keys {
		if v, ok := m[k]; ok {
			if f := FieldOf(v); !f.IsAbsent() {
				return f
			}
		}
	}
	return Field{}
}

// FromMap builds a normalized post from a raw metadata object. slug wins
// over any slug found in m; now is the fetch-time clock used as the last
// date fallback.
func FromMap(slug string, m map[string]any, now time.Time) content.Post {
	if slug == "" {
		slug = SlugOf(m)
	}

	p := content.Post{
		Slug:        slug,
		Title:       Pick(m, "title").String(),
		Tags:        List(Pick(m, keysTags...)),
		Categories:  List(Pick(m, keysCats...)),
		Authors:     List(Pick(m, keysAuthors...)),
		Cover:       Pick(m, keysCover...).String(),
		Summary:     Pick(m, keysSummary...).String(),
		Description: Pick(m, "description").String(),
		ReadTime:    Pick(m, keysReadTime...).String(),
	}
	p.Date, p.DateSource = ResolveDate(Pick(m, keysDate...), Pick(m, keysDateGMT...), slug, now)
	if p.Title == "" {
		p.Title = Humanize(slug)
	}
	p.Normalize()
	return p
}

// Merge fills keys missing from dst with values from src.
func Merge(dst, src map[string]any) map[string]any {
	if dst == nil {
		dst = make(map[string]any, len(src))
	}
	for k, v := range src {
		if cur, ok := dst[k]; ok && !FieldOf(cur).IsAbsent() {
			continue
		}
		dst[k] = v
	}
	return dst
}
