package posts

import (
	"cmp"
	"slices"

	"tipblog/internal/domain/content"
	"tipblog/internal/meta"
)

// Term is a tag or category with its post count. Key is the normalized form
// used in URLs and filters; Name is the first spelling seen.
type Term struct {
	Key   string
	Name  string
	Count int
}

func Tags(in []content.Post) []Term {
	return count(in, func(p content.Post) []string { return p.Tags })
}

func Categories(in []content.Post) []Term {
	return count(in, func(p content.Post) []string { return p.Categories })
}

func count(in []content.Post, values func(content.Post) []string) []Term {
	idx := map[string]int{}
	var out []Term
	for _, p := range in {
		seen := map[string]struct{}{}
		for _, v := range values(p) {
			key := meta.NormalizeKey(v)
			if key == "" {
				continue
			}
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}

			if i, ok := idx[key]; ok {
				out[i].Count++
				continue
			}
			idx[key] = len(out)
			out = append(out, Term{Key: key, Name: v, Count: 1})
		}
	}

	slices.SortFunc(out, func(a, b Term) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return cmp.Compare(a.Key, b.Key)
	})
	if out == nil {
		out = []Term{}
	}
	return out
}
