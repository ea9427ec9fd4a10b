package render

import (
	"time"

	"tipblog/internal/domain/config"
	"tipblog/internal/domain/content"
	"tipblog/internal/posts"
)

// Head is the per-page <head> metadata.
type Head struct {
	Title       string
	Description string
	Keywords    string
	Author      string
	Canonical   string
}

// Base carries what every page needs: site settings and the tip widget.
type Base struct {
	Site config.SiteConfig
	Tip  config.TipConfig
	Head Head
	// DevReload adds the hot reload client when served by the dev server.
	DevReload bool
	Generated time.Time
}

type HomePage struct {
	Base
	Posts    []content.Post
	Criteria posts.Criteria
	Topics   []posts.Topic

	// Numbered pagination, used by the static export.
	Page  int
	Pages int

	// Incremental loading, used by the server.
	FeedURL string
	Next    int
	Done    bool
}

type PostPage struct {
	Base
	Post     content.Post
	Body     Compiled
	TOC      []content.Heading
	Fallback bool
}

type ListKind string

const (
	ListTag      ListKind = "tag"
	ListCategory ListKind = "category"
)

// ListPage shows the posts of one tag or category.
type ListPage struct {
	Base
	Kind  ListKind
	Term  posts.Term
	Posts []content.Post
}

type TagsPage struct {
	Base
	Tags  []posts.Term
	Total int
}

type CategoriesPage struct {
	Base
	Categories []posts.Term
	Total      int
}

type NotFoundPage struct {
	Base
	Path string
}

// CardsPage is a fragment of post cards appended by the feed client.
type CardsPage struct {
	Base
	Posts []content.Post
}
