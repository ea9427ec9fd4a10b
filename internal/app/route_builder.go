package app

import (
	"path/filepath"
	"strconv"
	"strings"

	"tipblog/internal/domain/content"
	"tipblog/internal/domain/site"
	"tipblog/internal/paginate"
	"tipblog/internal/posts"
)

// RouteBuilder maps the site's pages to URLs and static output paths.
type RouteBuilder struct {
	URLs     site.URLs
	PageSize int
}

func NewRouteBuilder(basePath string, pageSize int) *RouteBuilder {
	return &RouteBuilder{URLs: site.NewURLs(basePath), PageSize: pageSize}
}

// BuildIndexRoutes returns one route per numbered index page.
func (rb *RouteBuilder) BuildIndexRoutes(total int) []site.Route {
	pages := paginate.Pages(total, rb.PageSize)
	routes := make([]site.Route, 0, pages)
	for n := 1; n <= pages; n++ {
		r := site.Route{Kind: site.RoutePage, Page: n, URL: rb.URLs.Page(n)}
		if n == 1 {
			r.Kind = site.RouteIndex
			r.OutPath = "index.html"
		} else {
			r.OutPath = filepath.Join("page", strconv.Itoa(n), "index.html")
		}
		routes = append(routes, r)
	}
	return routes
}

// BuildPostRoutes skips slugs that cannot be written as a directory name.
func (rb *RouteBuilder) BuildPostRoutes(list []content.Post) []site.Route {
	routes := make([]site.Route, 0, len(list))
	for _, p := range list {
		if !safeSlug(p.Slug) {
			continue
		}
		routes = append(routes, site.Route{
			Kind:    site.RoutePost,
			Slug:    p.Slug,
			URL:     rb.URLs.Post(p.Slug),
			OutPath: filepath.Join(filepath.FromSlash(p.Slug), "index.html"),
		})
	}
	return routes
}

func (rb *RouteBuilder) BuildTagRoutes(terms []posts.Term) []site.Route {
	return rb.termRoutes(site.RouteTag, "tags", terms, rb.URLs.Tag)
}

func (rb *RouteBuilder) BuildCategoryRoutes(terms []posts.Term) []site.Route {
	return rb.termRoutes(site.RouteCategory, "categories", terms, rb.URLs.Category)
}

func (rb *RouteBuilder) termRoutes(kind site.RouteKind, dir string, terms []posts.Term, urlOf func(string) string) []site.Route {
	routes := make([]site.Route, 0, len(terms))
	for _, t := range terms {
		if !safeSlug(t.Key) || strings.Contains(t.Key, "/") {
			continue
		}
		routes = append(routes, site.Route{
			Kind:    kind,
			Key:     t.Key,
			URL:     urlOf(t.Key),
			OutPath: filepath.Join(dir, t.Key, "index.html"),
		})
	}
	return routes
}

// BuildStaticRoutes returns the overview and 404 pages.
func (rb *RouteBuilder) BuildStaticRoutes() []site.Route {
	return []site.Route{
		{Kind: site.RouteTags, URL: rb.URLs.Tags(), OutPath: filepath.Join("tags", "index.html")},
		{Kind: site.RouteCategories, URL: rb.URLs.Categories(), OutPath: filepath.Join("categories", "index.html")},
		{Kind: site.RouteNotFound, URL: rb.URLs.BasePath + "/404.html", OutPath: "404.html"},
	}
}

// IsPostSlug reports whether slug can be served and written as a post page.
func (rb *RouteBuilder) IsPostSlug(slug string) bool { return safeSlug(slug) }

// reserved are top-level directories owned by non-post pages.
var reserved = map[string]bool{
	"page":       true,
	"tags":       true,
	"categories": true,
	"static":     true,
	"feed":       true,
	"api":        true,
	"images":     true,
	"dev":        true,
	"health":     true,
}

func safeSlug(slug string) bool {
	if slug == "" || strings.HasPrefix(slug, "/") || strings.Contains(slug, `\`) {
		return false
	}
	for _, seg := range strings.Split(slug, "/") {
		if seg == "" || seg == "." || seg == ".." {
			return false
		}
	}
	first, _, _ := strings.Cut(slug, "/")
	return !reserved[first]
}
