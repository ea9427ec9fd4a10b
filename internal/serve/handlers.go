package serve

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"tipblog/internal/app"
	"tipblog/internal/domain/build"
	"tipblog/internal/domain/content"
	"tipblog/internal/meta"
	"tipblog/internal/paginate"
	"tipblog/internal/posts"
	"tipblog/internal/render"
)

func criteriaFrom(r *http.Request) posts.Criteria {
	q := r.URL.Query()
	return posts.Criteria{
		Tag:      strings.TrimSpace(q.Get("tag")),
		Category: strings.TrimSpace(q.Get("category")),
		Topic:    strings.TrimSpace(q.Get("topic")),
	}
}

func (s *Server) query(r *http.Request, crit posts.Criteria) []content.Post {
	return posts.Query(s.src.FetchPosts(r.Context()), crit)
}

func (s *Server) feedURL(crit posts.Criteria) string {
	v := url.Values{}
	if crit.Tag != "" {
		v.Set("tag", crit.Tag)
	}
	if crit.Category != "" {
		v.Set("category", crit.Category)
	}
	if crit.Topic != "" {
		v.Set("topic", crit.Topic)
	}
	u := s.pages.Routes.URLs.Index() + "feed"
	if len(v) > 0 {
		u += "?" + v.Encode()
	}
	return u
}

// handleHome shows the first batch of matching posts; the rest arrive
// through /feed. ?page=N selects a numbered page instead.
func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	crit := criteriaFrom(r)
	list := s.query(r, crit)

	if n, err := strconv.Atoi(r.URL.Query().Get("page")); err == nil && n > 0 {
		s.renderNumbered(w, r, crit, list, n)
		return
	}

	loader := paginate.NewLoader(list, s.cfg.Build.BatchSize)
	page := s.pages.Home(loader.Visible(), crit, 1, 1)
	page.FeedURL = s.feedURL(crit)
	page.Next = loader.Cursor()
	page.Done = loader.Done()

	s.renderPage(w, r, "home", func() ([]byte, error) {
		return s.tpl.RenderHome(r.Context(), page)
	})
}

// handlePage serves /page/N/, the same URLs the static export writes.
func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	n, err := strconv.Atoi(chi.URLParam(r, "n"))
	if err != nil || n < 1 {
		s.handleNotFound(w, r)
		return
	}
	crit := criteriaFrom(r)
	s.renderNumbered(w, r, crit, s.query(r, crit), n)
}

func (s *Server) renderNumbered(w http.ResponseWriter, r *http.Request, crit posts.Criteria, list []content.Post, n int) {
	size := s.cfg.Build.PageSize
	pages := paginate.Pages(len(list), size)
	if n > pages {
		s.handleNotFound(w, r)
		return
	}
	page := s.pages.Home(paginate.Page(list, n, size), crit, n, pages)
	s.renderPage(w, r, "home", func() ([]byte, error) {
		return s.tpl.RenderHome(r.Context(), page)
	})
}

type feedPost struct {
	Slug  string    `json:"slug"`
	Title string    `json:"title"`
	URL   string    `json:"url"`
	Date  time.Time `json:"date"`
	Tags  []string  `json:"tags"`
}

type feedResponse struct {
	Posts []feedPost `json:"posts"`
	HTML  string     `json:"html"`
	Next  int        `json:"next"`
	Done  bool       `json:"done"`
}

// handleFeed returns the batch after ?offset=N as cards and post data.
func (s *Server) handleFeed(w http.ResponseWriter, r *http.Request) {
	offset, err := strconv.Atoi(r.URL.Query().Get("offset"))
	if err != nil || offset < 0 {
		writeJSON(w, http.StatusBadRequest, errorBody("offset must be a non-negative integer"))
		return
	}

	loader := paginate.NewLoader(s.query(r, criteriaFrom(r)), s.cfg.Build.BatchSize)
	loader.Seek(offset)
	batch := loader.LoadNext()
	if batch == nil {
		batch = []content.Post{}
	}

	cards, err := s.tpl.RenderCards(r.Context(), s.pages.Cards(batch))
	if err != nil {
		s.log.Error("render cards", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("render failed"))
		return
	}
	items := make([]feedPost, 0, len(batch))
	for _, p := range batch {
		items = append(items, feedPost{
			Slug:  p.Slug,
			Title: p.Title,
			URL:   s.pages.Routes.URLs.Post(p.Slug),
			Date:  p.Date,
			Tags:  p.Tags,
		})
	}
	writeJSON(w, http.StatusOK, feedResponse{
		Posts: items,
		HTML:  string(cards),
		Next:  loader.Cursor(),
		Done:  loader.Done(),
	})
}

func (s *Server) handlePost(w http.ResponseWriter, r *http.Request) {
	slug := slugFromPath(r)
	if !s.pages.Routes.IsPostSlug(slug) {
		s.handleNotFound(w, r)
		return
	}

	doc, err := s.src.FetchPost(r.Context(), slug)
	if err != nil {
		s.handleNotFound(w, r)
		return
	}
	if doc.Fallback && !s.listed(r, slug) {
		s.handleNotFound(w, r)
		return
	}

	page := s.pages.Post(r.Context(), doc)
	s.renderPage(w, r, "post", func() ([]byte, error) {
		return s.tpl.RenderPost(r.Context(), page)
	})
}

// listed reports whether slug is a known post. An empty list means the
// backend is unreachable, so every slug is given the benefit of the doubt.
func (s *Server) listed(r *http.Request, slug string) bool {
	list := s.src.FetchPosts(r.Context())
	if len(list) == 0 {
		return true
	}
	for _, p := range list {
		if p.Slug == slug {
			return true
		}
	}
	return false
}

func (s *Server) handleTag(w http.ResponseWriter, r *http.Request) {
	s.handleTerm(w, r, render.ListTag)
}

func (s *Server) handleCategory(w http.ResponseWriter, r *http.Request) {
	s.handleTerm(w, r, render.ListCategory)
}

func (s *Server) handleTerm(w http.ResponseWriter, r *http.Request, kind render.ListKind) {
	key := meta.NormalizeKey(chi.URLParam(r, "key"))
	list := posts.Sort(s.src.FetchPosts(r.Context()))

	terms, crit := posts.Tags(list), posts.Criteria{Tag: key}
	if kind == render.ListCategory {
		terms, crit = posts.Categories(list), posts.Criteria{Category: key}
	}
	term, ok := app.FindTerm(terms, key)
	if !ok {
		s.handleNotFound(w, r)
		return
	}

	page := s.pages.List(kind, term, posts.Filter(list, crit))
	s.renderPage(w, r, string(kind), func() ([]byte, error) {
		return s.tpl.RenderList(r.Context(), page)
	})
}

func (s *Server) handleTagsRoot(w http.ResponseWriter, r *http.Request) {
	page := s.pages.Tags(posts.Tags(s.src.FetchPosts(r.Context())))
	s.renderPage(w, r, "tags", func() ([]byte, error) {
		return s.tpl.RenderTagsPage(r.Context(), page)
	})
}

func (s *Server) handleCategoriesRoot(w http.ResponseWriter, r *http.Request) {
	page := s.pages.Categories(posts.Categories(s.src.FetchPosts(r.Context())))
	s.renderPage(w, r, "categories", func() ([]byte, error) {
		return s.tpl.RenderCategoriesPage(r.Context(), page)
	})
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	htmlBytes, err := s.tpl.RenderNotFound(r.Context(), s.pages.NotFound(r.URL.Path))
	if err != nil {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusNotFound)
	_, _ = w.Write(htmlBytes)
}

// renderPage writes a rendered page with its ETag, answering a matching
// If-None-Match with 304.
func (s *Server) renderPage(w http.ResponseWriter, r *http.Request, name string, fn func() ([]byte, error)) {
	htmlBytes, err := fn()
	if err != nil {
		s.log.Error("render page",
			slog.String("page", name),
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
		http.Error(w, "render "+name+" error", http.StatusInternalServerError)
		return
	}

	fp := build.Fingerprint{
		ContentHash: build.Hash(htmlBytes),
		ThemeHash:   s.tpl.Version(),
		ConfigHash:  s.configHash,
	}
	etag := fp.ETag()
	w.Header().Set("ETag", etag)
	w.Header().Set("Cache-Control", "no-cache")
	if match := r.Header.Get("If-None-Match"); match != "" && etagMatch(match, etag) {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	writeHTML(w, htmlBytes)
}

func etagMatch(header, etag string) bool {
	for _, part := range strings.Split(header, ",") {
		part = strings.TrimPrefix(strings.TrimSpace(part), "W/")
		if part == etag || part == "*" {
			return true
		}
	}
	return false
}

func writeHTML(w http.ResponseWriter, data []byte) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(data)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func errorBody(msg string) map[string]string {
	return map[string]string{"error": msg}
}
