package build

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"tipblog/internal/app"
	"tipblog/internal/domain/config"
	"tipblog/internal/domain/content"
	domainerr "tipblog/internal/domain/errors"
	"tipblog/internal/domain/site"
	"tipblog/internal/paginate"
	"tipblog/internal/posts"
	"tipblog/internal/render"
)

// Builder exports the whole site as static files under Cfg.Build.PublicDir.
type Builder struct {
	Cfg      config.Config
	Source   app.Source
	Pages    *app.Pages
	Renderer render.Renderer
	// Static holds theme assets copied to <public>/static.
	Static fs.FS
	Log    *slog.Logger
}

type Result struct {
	Posts int
	Pages int
	// Fallbacks lists posts written as placeholder pages because their fetch
	// failed.
	Fallbacks []string
	Skipped   []string
}

func (b *Builder) Run(ctx context.Context) (*Result, error) {
	log := b.Log
	if log == nil {
		log = slog.Default()
	}
	log = log.With(slog.String("component", "build"))

	list := posts.Sort(b.Source.FetchPosts(ctx))
	log.Info("fetched post list", slog.Int("posts", len(list)))

	outDir := b.Cfg.Build.PublicDir
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("mkdir public: %w", err)
	}

	res := &Result{}
	if err := b.buildAll(ctx, log, outDir, list, res); err != nil {
		return res, err
	}
	sort.Strings(res.Fallbacks)
	sort.Strings(res.Skipped)
	return res, nil
}

func (b *Builder) buildAll(ctx context.Context, log *slog.Logger, outDir string, list []content.Post, res *Result) error {
	if err := b.buildIndex(ctx, outDir, list, res); err != nil {
		return fmt.Errorf("build index: %w", err)
	}
	if err := b.buildPosts(ctx, log, outDir, list, res); err != nil {
		return fmt.Errorf("build posts: %w", err)
	}

	tags := posts.Tags(list)
	if err := b.buildTerms(ctx, outDir, render.ListTag, b.Pages.Routes.BuildTagRoutes(tags), tags, list, res); err != nil {
		return fmt.Errorf("build tags: %w", err)
	}
	cats := posts.Categories(list)
	if err := b.buildTerms(ctx, outDir, render.ListCategory, b.Pages.Routes.BuildCategoryRoutes(cats), cats, list, res); err != nil {
		return fmt.Errorf("build categories: %w", err)
	}

	for _, r := range b.Pages.Routes.BuildStaticRoutes() {
		var (
			html []byte
			err  error
		)
		switch r.Kind {
		case site.RouteTags:
			html, err = b.Renderer.RenderTagsPage(ctx, b.Pages.Tags(tags))
		case site.RouteCategories:
			html, err = b.Renderer.RenderCategoriesPage(ctx, b.Pages.Categories(cats))
		case site.RouteNotFound:
			html, err = b.Renderer.RenderNotFound(ctx, b.Pages.NotFound(""))
		}
		if err != nil {
			return fmt.Errorf("render %s: %w", r.Kind, err)
		}
		if err := b.write(outDir, r.OutPath, html, res); err != nil {
			return err
		}
	}

	if err := b.copyStaticAssets(outDir); err != nil {
		return fmt.Errorf("copy static assets: %w", err)
	}
	return nil
}

func (b *Builder) buildIndex(ctx context.Context, outDir string, list []content.Post, res *Result) error {
	routes := b.Pages.Routes.BuildIndexRoutes(len(list))
	for _, r := range routes {
		items := paginate.Page(list, r.Page, b.Cfg.Build.PageSize)
		html, err := b.Renderer.RenderHome(ctx, b.Pages.Home(items, posts.Criteria{}, r.Page, len(routes)))
		if err != nil {
			return fmt.Errorf("render page %d: %w", r.Page, err)
		}
		if err := b.write(outDir, r.OutPath, html, res); err != nil {
			return err
		}
	}
	return nil
}

// buildPosts fetches and renders posts concurrently, at most
// Cfg.Build.Workers at a time.
func (b *Builder) buildPosts(ctx context.Context, log *slog.Logger, outDir string, list []content.Post, res *Result) error {
	routes := b.Pages.Routes.BuildPostRoutes(list)

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, b.Cfg.Build.Workers))

	for _, r := range routes {
		r := r
		g.Go(func() error {
			doc, err := b.Source.FetchPost(gctx, r.Slug)
			if errors.Is(err, domainerr.ErrNotFound) {
				mu.Lock()
				res.Skipped = append(res.Skipped, r.Slug)
				mu.Unlock()
				return nil
			}
			if err != nil {
				return fmt.Errorf("fetch %s: %w", r.Slug, err)
			}

			html, err := b.Renderer.RenderPost(gctx, b.Pages.Post(gctx, doc))
			if err != nil {
				return fmt.Errorf("render post(%s): %w", r.Slug, err)
			}

			mu.Lock()
			defer mu.Unlock()
			if doc.Fallback {
				log.Warn("post written as fallback", slog.String("slug", r.Slug))
				res.Fallbacks = append(res.Fallbacks, r.Slug)
			}
			res.Posts++
			return b.write(outDir, r.OutPath, html, res)
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	mu.Lock()
	defer mu.Unlock()
	built := make(map[string]bool, len(routes))
	for _, r := range routes {
		built[r.Slug] = true
	}
	for _, p := range list {
		if !built[p.Slug] {
			res.Skipped = append(res.Skipped, p.Slug)
		}
	}
	return nil
}

func (b *Builder) buildTerms(
	ctx context.Context,
	outDir string,
	kind render.ListKind,
	routes []site.Route,
	terms []posts.Term,
	list []content.Post,
	res *Result,
) error {
	for _, r := range routes {
		term, ok := app.FindTerm(terms, r.Key)
		if !ok {
			continue
		}
		crit := posts.Criteria{Tag: term.Key}
		if kind == render.ListCategory {
			crit = posts.Criteria{Category: term.Key}
		}

		html, err := b.Renderer.RenderList(ctx, b.Pages.List(kind, term, posts.Filter(list, crit)))
		if err != nil {
			return fmt.Errorf("render %s(%s): %w", kind, term.Key, err)
		}
		if err := b.write(outDir, r.OutPath, html, res); err != nil {
			return err
		}
	}
	return nil
}

// write is called with the result lock held when used from post workers.
func (b *Builder) write(outDir, rel string, data []byte, res *Result) error {
	if err := writeFile(outDir, rel, data); err != nil {
		return err
	}
	res.Pages++
	return nil
}

func writeFile(root, rel string, data []byte) error {
	full := filepath.Join(root, rel)
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return err
	}
	return os.WriteFile(full, data, 0o644)
}

func (b *Builder) copyStaticAssets(outDir string) error {
	if b.Static == nil {
		return nil
	}
	dstRoot := filepath.Join(outDir, "static")

	err := fs.WalkDir(b.Static, ".", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		in, err := fs.ReadFile(b.Static, path)
		if err != nil {
			return err
		}
		return writeFile(dstRoot, filepath.FromSlash(path), in)
	})
	// a theme without a static directory is fine
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}
