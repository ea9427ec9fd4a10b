// Package posts filters, sorts and summarizes post collections. Every
// function returns a new slice and leaves its input untouched.
package posts

import (
	"slices"
	"strings"
	"time"

	"tipblog/internal/domain/content"
	"tipblog/internal/meta"
)

// Criteria selects posts. Zero value means no filtering.
type Criteria struct {
	Tag      string
	Category string
	Topic    string
}

func (c Criteria) IsZero() bool {
	return strings.TrimSpace(c.Tag) == "" &&
		strings.TrimSpace(c.Category) == "" &&
		strings.TrimSpace(c.Topic) == ""
}

// EffectiveDate is the date used for ordering: the post date, else the date
// embedded in the slug, else the zero time.
func EffectiveDate(p content.Post) time.Time {
	if !p.Date.IsZero() {
		return p.Date
	}
	if t, ok := meta.SlugDate(p.Slug); ok {
		return t
	}
	return time.Time{}
}

// Sort orders newest first. Posts with equal dates keep their input order.
func Sort(in []content.Post) []content.Post {
	out := slices.Clone(in)
	if out == nil {
		out = []content.Post{}
	}
	slices.SortStableFunc(out, func(a, b content.Post) int {
		return EffectiveDate(b).Compare(EffectiveDate(a))
	})
	return out
}

// Filter keeps posts matching every non-empty field of c.
func Filter(in []content.Post, c Criteria) []content.Post {
	out := make([]content.Post, 0, len(in))
	tag := meta.NormalizeKey(c.Tag)
	cat := meta.NormalizeKey(c.Category)
	topic := Topic(meta.NormalizeKey(c.Topic))

	for _, p := range in {
		if tag != "" && !hasKey(p.Tags, tag) {
			continue
		}
		if cat != "" && !hasKey(p.Categories, cat) {
			continue
		}
		if topic != "" && !topic.Matches(p.Categories) {
			continue
		}
		out = append(out, p)
	}
	return out
}

// Query filters then sorts.
func Query(in []content.Post, c Criteria) []content.Post {
	return Sort(Filter(in, c))
}

func hasKey(items []string, key string) bool {
	for _, it := range items {
		if meta.NormalizeKey(it) == key {
			return true
		}
	}
	return false
}
