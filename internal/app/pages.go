package app

import (
	"context"
	"strconv"
	"strings"
	"time"

	"tipblog/internal/domain/config"
	"tipblog/internal/domain/content"
	"tipblog/internal/posts"
	"tipblog/internal/remote"
	"tipblog/internal/render"
)

// Source is where posts come from. *remote.Client implements it.
type Source interface {
	FetchPosts(ctx context.Context) []content.Post
	FetchPost(ctx context.Context, slug string) (remote.Document, error)
}

// Pages assembles render view models from config and fetched posts. It is
// shared by the static export and the server.
type Pages struct {
	Cfg      config.Config
	Routes   *RouteBuilder
	Compiler *render.Compiler
	// DevReload is set by the dev server.
	DevReload bool
	Now       func() time.Time
}

func NewPages(cfg config.Config, compiler *render.Compiler) *Pages {
	return &Pages{
		Cfg:      cfg,
		Routes:   NewRouteBuilder(cfg.Site.BasePath, cfg.Build.PageSize),
		Compiler: compiler,
		Now:      time.Now,
	}
}

func (p *Pages) Base(head render.Head) render.Base {
	if head.Description == "" {
		head.Description = p.Cfg.Site.Description
	}
	if head.Author == "" {
		head.Author = p.Cfg.Site.Author
	}
	return render.Base{
		Site:      p.Cfg.Site,
		Tip:       p.Cfg.Tip,
		Head:      head,
		DevReload: p.DevReload,
		Generated: p.Now(),
	}
}

func (p *Pages) canonical(path string) string {
	return strings.TrimRight(p.Cfg.Site.SiteURL, "/") + path
}

// Home is index page n of pages, showing list.
func (p *Pages) Home(list []content.Post, crit posts.Criteria, page, pages int) render.HomePage {
	head := render.Head{Canonical: p.canonical(p.Routes.URLs.Page(page))}
	if page > 1 {
		head.Title = "Page " + strconv.Itoa(page)
	}
	return render.HomePage{
		Base:     p.Base(head),
		Posts:    list,
		Criteria: crit,
		Topics:   posts.Topics(),
		Page:     page,
		Pages:    pages,
	}
}

// Post compiles an already fetched document into its page.
func (p *Pages) Post(ctx context.Context, doc remote.Document) render.PostPage {
	post := doc.Post
	body := p.Compiler.Compile(ctx, doc.Body)

	desc := post.Description
	if desc == "" {
		desc = post.Summary
	}
	return render.PostPage{
		Base: p.Base(render.Head{
			Title:       post.Title,
			Description: desc,
			Keywords:    strings.Join(post.Tags, ", "),
			Author:      strings.Join(post.Authors, ", "),
			Canonical:   p.canonical(p.Routes.URLs.Post(post.Slug)),
		}),
		Post:     post,
		Body:     body,
		TOC:      body.Headings,
		Fallback: doc.Fallback,
	}
}

func (p *Pages) List(kind render.ListKind, term posts.Term, list []content.Post) render.ListPage {
	url := p.Routes.URLs.Tag(term.Key)
	title := "Tag: " + term.Name
	if kind == render.ListCategory {
		url = p.Routes.URLs.Category(term.Key)
		title = "Category: " + term.Name
	}
	return render.ListPage{
		Base:  p.Base(render.Head{Title: title, Canonical: p.canonical(url)}),
		Kind:  kind,
		Term:  term,
		Posts: list,
	}
}

func (p *Pages) Tags(terms []posts.Term) render.TagsPage {
	return render.TagsPage{
		Base:  p.Base(render.Head{Title: "Tags", Canonical: p.canonical(p.Routes.URLs.Tags())}),
		Tags:  terms,
		Total: len(terms),
	}
}

func (p *Pages) Categories(terms []posts.Term) render.CategoriesPage {
	return render.CategoriesPage{
		Base:       p.Base(render.Head{Title: "Categories", Canonical: p.canonical(p.Routes.URLs.Categories())}),
		Categories: terms,
		Total:      len(terms),
	}
}

func (p *Pages) NotFound(path string) render.NotFoundPage {
	return render.NotFoundPage{
		Base: p.Base(render.Head{Title: "Not found"}),
		Path: path,
	}
}

func (p *Pages) Cards(list []content.Post) render.CardsPage {
	return render.CardsPage{Base: p.Base(render.Head{}), Posts: list}
}

// FindTerm returns the term with the given normalized key.
func FindTerm(terms []posts.Term, key string) (posts.Term, bool) {
	for _, t := range terms {
		if t.Key == key {
			return t, true
		}
	}
	return posts.Term{}, false
}
