package app

import (
	"context"
	"log/slog"

	"tipblog/internal/domain/content"
	"tipblog/internal/index"
	"tipblog/internal/remote"
)

// CachedSource records every successful fetch in a local index and answers
// from it when the backend fails.
type CachedSource struct {
	Source Source
	Store  *index.Store
	Log    *slog.Logger
}

func NewCachedSource(src Source, store *index.Store, log *slog.Logger) *CachedSource {
	if log == nil {
		log = slog.Default()
	}
	return &CachedSource{Source: src, Store: store, Log: log.With(slog.String("component", "cache"))}
}

// FetchPosts treats an empty list as a failed fetch.
func (c *CachedSource) FetchPosts(ctx context.Context) []content.Post {
	list := c.Source.FetchPosts(ctx)
	if len(list) > 0 {
		if err := c.Store.PutList(list); err != nil {
			c.Log.Warn("cache post list", slog.String("error", err.Error()))
		}
		return list
	}

	cached, err := c.Store.List()
	if err != nil {
		c.Log.Warn("read cached post list", slog.String("error", err.Error()))
		return list
	}
	if len(cached) > 0 {
		c.Log.Warn("backend returned no posts, using cached list", slog.Int("posts", len(cached)))
	}
	return cached
}

func (c *CachedSource) FetchPost(ctx context.Context, slug string) (remote.Document, error) {
	doc, err := c.Source.FetchPost(ctx, slug)
	if err != nil {
		return doc, err
	}
	if !doc.Fallback {
		if err := c.Store.PutDocument(index.Document{Post: doc.Post, Body: doc.Body}); err != nil {
			c.Log.Warn("cache post", slog.String("slug", slug), slog.String("error", err.Error()))
		}
		return doc, nil
	}

	cached, ok, err := c.Store.GetDocument(doc.Post.Slug)
	if err != nil {
		c.Log.Warn("read cached post", slog.String("slug", slug), slog.String("error", err.Error()))
		return doc, nil
	}
	if !ok {
		return doc, nil
	}
	c.Log.Warn("post fetch failed, using cached copy", slog.String("slug", slug))
	return remote.Document{Post: cached.Post, Body: cached.Body}, nil
}
