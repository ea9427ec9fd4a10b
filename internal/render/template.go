package render

import (
	"bytes"
	"context"
	"crypto/sha256"
	"embed"
	"encoding/hex"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"tipblog/internal/domain/content"
	"tipblog/internal/domain/site"
	"tipblog/internal/transform"
)

//go:embed all:themes/default
var embeddedThemes embed.FS

const embeddedTheme = "themes/default"

var requiredTemplates = []string{
	"home.tmpl",
	"post.tmpl",
	"list.tmpl",
	"404.tmpl",
	"tags-all.tmpl",
	"categories-all.tmpl",
	"cards.tmpl",
}

type TemplateOptions struct {
	URLs      site.URLs
	ImageBase string
}

// TemplateRenderer executes the theme's page templates. The template set can
// be swapped at runtime with Reload.
type TemplateRenderer struct {
	mu      sync.RWMutex
	tpl     *template.Template
	version string

	templates fs.FS
	static    fs.FS
	// dir is the on-disk templates directory, empty for the embedded theme.
	dir  string
	opts TemplateOptions
}

// NewTemplateRenderer loads <themeDir>/<themeName>/templates. When that
// directory does not exist the embedded default theme is used.
func NewTemplateRenderer(themeDir, themeName string, opts TemplateOptions) (*TemplateRenderer, error) {
	r := &TemplateRenderer{opts: opts}

	root := filepath.Join(themeDir, themeName)
	dir := filepath.Join(root, "templates")
	if st, err := os.Stat(dir); err == nil && st.IsDir() {
		r.dir = dir
		r.templates = os.DirFS(dir)
		r.static = os.DirFS(filepath.Join(root, "static"))
	} else {
		tfs, err := fs.Sub(embeddedThemes, embeddedTheme+"/templates")
		if err != nil {
			return nil, err
		}
		sfs, err := fs.Sub(embeddedThemes, embeddedTheme+"/static")
		if err != nil {
			return nil, err
		}
		r.templates, r.static = tfs, sfs
	}

	if err := r.Reload(); err != nil {
		return nil, err
	}
	return r, nil
}

// Reload re-parses the templates. On error the current set stays active.
func (r *TemplateRenderer) Reload() error {
	tpl, err := template.New("").Funcs(r.templateFuncs()).ParseFS(r.templates, "*.tmpl")
	if err != nil {
		return fmt.Errorf("parse templates: %w", err)
	}
	if err := CheckThemeTemplates(tpl); err != nil {
		return err
	}
	version, err := hashFS(r.templates)
	if err != nil {
		return err
	}

	r.mu.Lock()
	r.tpl, r.version = tpl, version
	r.mu.Unlock()
	return nil
}

// Dir is the watched templates directory; empty for the embedded theme.
func (r *TemplateRenderer) Dir() string { return r.dir }

// Static serves the theme's static assets.
func (r *TemplateRenderer) Static() fs.FS { return r.static }

// Version is a hash of the current template sources.
func (r *TemplateRenderer) Version() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.version
}

func (r *TemplateRenderer) templateFuncs() template.FuncMap {
	urls := r.opts.URLs
	return template.FuncMap{
		"date": func(t interface{}, layout string) string {
			switch v := t.(type) {
			case nil:
				return ""
			case string:
				return v
			case time.Time:
				if v.IsZero() {
					return "Date not available"
				}
				return v.Format(layout)
			case interface{ Format(string) string }:
				return v.Format(layout)
			default:
				return ""
			}
		},
		"isoDate": func(t time.Time) string {
			if t.IsZero() {
				return ""
			}
			return t.UTC().Format(time.RFC3339)
		},
		"nowYear": func() int {
			return time.Now().Year()
		},
		"postURL": func(p content.Post) string {
			return urls.Post(p.Slug)
		},
		"imageURL": func(src string) string {
			return transform.ImageURL(src, r.opts.ImageBase)
		},
		"tagURL":        urls.Tag,
		"categoryURL":   urls.Category,
		"indexURL":      urls.Index,
		"pageURL":       urls.Page,
		"tagsURL":       urls.Tags,
		"categoriesURL": urls.Categories,
		"asset":         urls.Asset,
		"add":           func(a, b int) int { return a + b },
		"sub":           func(a, b int) int { return a - b },
		"join":          strings.Join,
		"first": func(n int, items []string) []string {
			if len(items) <= n {
				return items
			}
			return items[:n]
		},
		"seq": func(n int) []int {
			out := make([]int, 0, max(n, 0))
			for i := 1; i <= n; i++ {
				out = append(out, i)
			}
			return out
		},
		"amount": func(f float64) string {
			return fmt.Sprintf("%.2f", f)
		},
	}
}

func (r *TemplateRenderer) RenderHome(ctx context.Context, page HomePage) ([]byte, error) {
	return r.exec("home.tmpl", page)
}

func (r *TemplateRenderer) RenderPost(ctx context.Context, page PostPage) ([]byte, error) {
	return r.exec("post.tmpl", page)
}

func (r *TemplateRenderer) RenderList(ctx context.Context, page ListPage) ([]byte, error) {
	return r.exec("list.tmpl", page)
}

func (r *TemplateRenderer) RenderNotFound(ctx context.Context, page NotFoundPage) ([]byte, error) {
	return r.exec("404.tmpl", page)
}

func (r *TemplateRenderer) RenderTagsPage(ctx context.Context, page TagsPage) ([]byte, error) {
	return r.exec("tags-all.tmpl", page)
}

func (r *TemplateRenderer) RenderCategoriesPage(ctx context.Context, page CategoriesPage) ([]byte, error) {
	return r.exec("categories-all.tmpl", page)
}

func (r *TemplateRenderer) RenderCards(ctx context.Context, page CardsPage) ([]byte, error) {
	return r.exec("cards.tmpl", page)
}

func (r *TemplateRenderer) exec(name string, data interface{}) ([]byte, error) {
	r.mu.RLock()
	t := r.tpl.Lookup(name)
	r.mu.RUnlock()
	if t == nil {
		return nil, fmt.Errorf("template %s not found", name)
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// CheckThemeTemplates reports page templates missing from tpl.
func CheckThemeTemplates(tpl *template.Template) error {
	var missing []string
	for _, name := range requiredTemplates {
		if tpl.Lookup(name) == nil {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return errors.New("missing template: " + strings.Join(missing, ", "))
	}
	return nil
}

func hashFS(fsys fs.FS) (string, error) {
	names, err := fs.Glob(fsys, "*.tmpl")
	if err != nil {
		return "", err
	}
	sort.Strings(names)

	h := sha256.New()
	for _, name := range names {
		b, err := fs.ReadFile(fsys, name)
		if err != nil {
			return "", fmt.Errorf("read template %s: %w", name, err)
		}
		h.Write([]byte(name))
		h.Write(b)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
