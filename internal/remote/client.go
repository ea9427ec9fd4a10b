package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"tipblog/internal/domain/content"
	domainerr "tipblog/internal/domain/errors"
	"tipblog/internal/ingest"
	"tipblog/internal/meta"
)

const (
	FallbackDescription = "This post could not be loaded."
	fallbackBody        = "_" + FallbackDescription + " Please try again later._"

	maxBodyBytes = 8 << 20
)

// Document is a fetched post with its markdown body.
type Document struct {
	Post content.Post
	Body string
	// Fallback is set when the fetch failed and Post/Body are placeholders.
	Fallback bool
}

// Client reads posts from the content API. Every fetch is fail-soft: errors
// are logged and replaced by empty or placeholder results.
type Client struct {
	baseURL    string
	httpClient *http.Client
	log        *slog.Logger
	now        func() time.Time
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}

// WithNow overrides the clock used for the fetch-time date fallback.
func WithNow(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

// New creates a client for the API rooted at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
		log:        slog.Default(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.log = c.log.With(slog.String("component", "remote"))
	return c
}

// BaseURL returns the API root without a trailing slash.
func (c *Client) BaseURL() string { return c.baseURL }

// FetchPosts returns the post list in API order. The result is never nil.
func (c *Client) FetchPosts(ctx context.Context) []content.Post {
	raw, err := c.get(ctx, "/api/posts")
	if err != nil {
		c.log.Warn("fetch posts failed", slog.String("error", err.Error()))
		return []content.Post{}
	}

	items, err := decodeList(raw)
	if err != nil {
		c.log.Warn("decode posts failed", slog.String("error", err.Error()))
		return []content.Post{}
	}

	now := c.now()
	out := make([]content.Post, 0, len(items))
	for i, item := range items {
		p := meta.FromMap("", item, now)
		if p.Slug == "" {
			c.log.Debug("skipping post without slug", slog.Int("index", i))
			continue
		}
		out = append(out, p)
	}
	return out
}

// FetchPost returns a single post. An empty slug is ErrNotFound; any other
// failure yields a fallback Document and a nil error.
func (c *Client) FetchPost(ctx context.Context, slug string) (Document, error) {
	slug = strings.Trim(strings.TrimSpace(slug), "/")
	if slug == "" {
		return Document{}, domainerr.ErrNotFound
	}

	raw, err := c.get(ctx, "/api/posts/"+url.PathEscape(slug))
	if err == nil && len(bytes.TrimSpace(raw)) == 0 {
		err = errors.New("empty response")
	}
	if err != nil {
		c.log.Warn("fetch post failed",
			slog.String("slug", slug),
			slog.String("error", err.Error()),
		)
		return c.fallback(slug), nil
	}

	payload := ingest.Decode(raw)
	post := meta.FromMap(slug, payload.Meta, c.now())
	if post.ReadTime == "" {
		post.ReadTime = ingest.ReadTime(payload.Body)
	}
	c.log.Debug("fetched post",
		slog.String("slug", slug),
		slog.String("shape", string(payload.Shape)),
	)
	return Document{Post: post, Body: payload.Body}, nil
}

func (c *Client) fallback(slug string) Document {
	p := content.Post{
		Slug:        slug,
		Title:       meta.Humanize(slug),
		Date:        c.now(),
		DateSource:  content.DateFetched,
		Description: FallbackDescription,
	}
	p.Normalize()
	return Document{Post: p, Body: fallbackBody, Fallback: true}
}

func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	if c.baseURL == "" {
		return nil, errors.New("backend url not configured")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json, text/markdown;q=0.9, */*;q=0.5")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("GET %s: status %d", path, resp.StatusCode)
	}
	return body, nil
}

// decodeList accepts a bare array of metadata objects or {"posts": [...]}.
// Array entries that are not objects are dropped.
func decodeList(raw []byte) ([]map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("unmarshal posts: %w", err)
	}

	var arr []any
	switch t := v.(type) {
	case []any:
		arr = t
	case map[string]any:
		nested, ok := t["posts"].([]any)
		if !ok {
			return nil, errors.New("unexpected posts payload: object without posts array")
		}
		arr = nested
	default:
		return nil, fmt.Errorf("unexpected posts payload: %T", v)
	}

	out := make([]map[string]any, 0, len(arr))
	for _, item := range arr {
		if m, ok := item.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out, nil
}
