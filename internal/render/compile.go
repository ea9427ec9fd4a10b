package render

import (
	"context"
	"fmt"
	"html/template"
	"log/slog"

	"github.com/microcosm-cc/bluemonday"

	"tipblog/internal/domain/content"
	"tipblog/internal/transform"
)

const excerptRunes = 280

// ErrorPanel replaces a post body that failed to compile.
type ErrorPanel struct {
	Message string
	Excerpt string
}

type Compiled struct {
	HTML     template.HTML
	Headings []content.Heading
	Embeds   []transform.Embed
	Error    *ErrorPanel
}

// HasEmbed reports whether the body contains an embed of kind k.
func (c Compiled) HasEmbed(k transform.EmbedKind) bool {
	for _, e := range c.Embeds {
		if e.Kind == k {
			return true
		}
	}
	return false
}

// Compiler turns a markdown post body into page-ready HTML.
type Compiler struct {
	md     *MarkdownRenderer
	policy *bluemonday.Policy
	opts   transform.Options
	log    *slog.Logger
}

type CompilerOptions struct {
	ImageBase   string
	Placeholder string
	// UnsafeHTML skips sanitizing. Only for trusted content APIs.
	UnsafeHTML bool
	Logger     *slog.Logger
}

func NewCompiler(o CompilerOptions) *Compiler {
	log := o.Logger
	if log == nil {
		log = slog.Default()
	}
	c := &Compiler{
		md:   NewMarkdownRenderer(),
		opts: transform.Options{ImageBase: o.ImageBase, Placeholder: o.Placeholder},
		log:  log.With(slog.String("component", "compile")),
	}
	if !o.UnsafeHTML {
		c.policy = sanitizePolicy()
	}
	return c
}

func sanitizePolicy() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()
	p.AllowElements("codewallet")
	p.AllowAttrs("address", "amount").OnElements("codewallet")
	p.AllowAttrs("class").Matching(bluemonday.SpaceSeparatedTokens).Globally()
	p.AllowAttrs("type").Matching(bluemonday.SpaceSeparatedTokens).OnElements("input")
	p.AllowAttrs("checked", "disabled").OnElements("input")
	p.AllowElements("input")
	return p
}

// Compile never fails: problems are reported through Compiled.Error.
func (c *Compiler) Compile(ctx context.Context, body string) (out Compiled) {
	defer func() {
		if r := recover(); r != nil {
			out = c.panel(body, fmt.Errorf("panic: %v", r))
		}
	}()

	if err := ctx.Err(); err != nil {
		return c.panel(body, err)
	}

	res, err := c.md.Render([]byte(body))
	if err != nil {
		return c.panel(body, fmt.Errorf("markdown: %w", err))
	}

	html := string(res.HTML)
	if c.policy != nil {
		html = c.policy.Sanitize(html)
	}

	root, err := transform.Parse(html)
	if err != nil {
		return c.panel(body, err)
	}
	root = transform.Transform(root, c.opts)

	rendered, err := transform.RenderString(root)
	if err != nil {
		return c.panel(body, err)
	}
	return Compiled{
		HTML:     template.HTML(rendered),
		Headings: res.Headings,
		Embeds:   root.Embeds(),
	}
}

func (c *Compiler) panel(body string, err error) Compiled {
	c.log.Warn("compile failed", slog.String("error", err.Error()))
	return Compiled{Error: &ErrorPanel{Message: err.Error(), Excerpt: excerpt(body)}}
}

func excerpt(s string) string {
	r := []rune(s)
	if len(r) <= excerptRunes {
		return s
	}
	return string(r[:excerptRunes]) + "…"
}
