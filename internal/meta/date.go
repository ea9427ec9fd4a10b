package meta

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"tipblog/internal/domain/content"
)

var slugDateRe = regexp.MustCompile(`^(\d{4}-\d{2}-\d{2})`)

var layouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	time.DateTime,
	"2006-01-02 15:04",
	time.DateOnly,
	"2006/01/02",
	"January 2, 2006",
	"Jan 2, 2006",
}

// ParseTime parses the date shapes seen in front matter and API payloads.
// Values without a zone are read as UTC. Bare integers are Unix seconds, or
// milliseconds when they have 12 or more digits. Integers under 9 digits,
// such as a lone year, are not dates.
func ParseTime(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		if len(s) < 9 {
			return time.Time{}
		}
		if len(s) >= 12 {
			return time.UnixMilli(n).UTC()
		}
		return time.Unix(n, 0).UTC()
	}
	for _, layout := range layouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t
		}
	}
	return time.Time{}
}

// SlugDate extracts a leading YYYY-MM-DD date from slug.
func SlugDate(slug string) (time.Time, bool) {
	m := slugDateRe.FindString(strings.TrimSpace(slug))
	if m == "" {
		return time.Time{}, false
	}
	t, err := time.ParseInLocation(time.DateOnly, m, time.UTC)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// ResolveDate picks a post date in the canonical precedence order:
// explicit date, date_gmt, slug-embedded date, now. Unparseable values are
// skipped rather than treated as errors.
func ResolveDate(explicit, gmt Field, slug string, now time.Time) (time.Time, content.DateSource) {
	if t := ParseTime(explicit.String()); !t.IsZero() {
		return t, content.DateExplicit
	}
	if t := ParseTime(gmt.String()); !t.IsZero() {
		return t, content.DateGMT
	}
	if t, ok := SlugDate(slug); ok {
		return t, content.DateSlug
	}
	return now, content.DateFetched
}

// FormatISO renders t as an RFC 3339 UTC string.
func FormatISO(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
