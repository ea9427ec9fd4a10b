package site

import (
	"fmt"
	"net/url"
	"path"
	"strconv"
	"strings"

	"tipblog/internal/meta"
)

type RouteKind string

const (
	RouteIndex      RouteKind = "index"
	RoutePage       RouteKind = "page"
	RoutePost       RouteKind = "post"
	RouteTag        RouteKind = "tag"
	RouteCategory   RouteKind = "category"
	RouteTags       RouteKind = "tags"
	RouteCategories RouteKind = "categories"
	RouteNotFound   RouteKind = "404"
)

type Route struct {
	Kind    RouteKind
	Slug    string
	Key     string
	Page    int
	URL     string
	OutPath string
}

func (r Route) String() string {
	var parts []string
	parts = append(parts, string(r.Kind))
	if r.Slug != "" {
		parts = append(parts, "slug="+r.Slug)
	}
	if r.Key != "" {
		parts = append(parts, "key="+r.Key)
	}
	if r.Page > 0 {
		parts = append(parts, fmt.Sprintf("page=%d", r.Page))
	}
	if r.OutPath != "" {
		parts = append(parts, "out="+r.OutPath)
	}
	return strings.Join(parts, " ")
}

// URLs builds site-relative links under a base path such as "/blog". Every
// page URL ends in a slash so static exports resolve to index.html.
type URLs struct {
	BasePath string
}

func NewURLs(basePath string) URLs {
	return URLs{BasePath: strings.TrimRight(strings.TrimSpace(basePath), "/")}
}

func (u URLs) join(segs ...string) string {
	p := u.BasePath + "/" + strings.Join(segs, "/")
	if !strings.HasSuffix(p, "/") {
		p += "/"
	}
	return p
}

func (u URLs) Index() string { return u.join() }

// Page is the numbered index page; page 1 is the index itself.
func (u URLs) Page(n int) string {
	if n <= 1 {
		return u.Index()
	}
	return u.join("page", strconv.Itoa(n))
}

func (u URLs) Post(slug string) string {
	segs := strings.Split(strings.Trim(slug, "/"), "/")
	for i, s := range segs {
		segs[i] = url.PathEscape(s)
	}
	return u.join(segs...)
}

func (u URLs) Tag(name string) string {
	return u.join("tags", url.PathEscape(meta.NormalizeKey(name)))
}

func (u URLs) Category(name string) string {
	return u.join("categories", url.PathEscape(meta.NormalizeKey(name)))
}

func (u URLs) Tags() string       { return u.join("tags") }
func (u URLs) Categories() string { return u.join("categories") }

// Asset links a theme static file.
func (u URLs) Asset(p string) string {
	return u.BasePath + path.Join("/static", p)
}
