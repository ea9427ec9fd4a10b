package serve

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"tipblog/internal/domain/config"
	"tipblog/internal/domain/content"
	domainerr "tipblog/internal/domain/errors"
	"tipblog/internal/remote"
	"tipblog/internal/render"
)

type fakeSource struct {
	list []content.Post
}

func (f *fakeSource) FetchPosts(context.Context) []content.Post { return f.list }

func (f *fakeSource) FetchPost(_ context.Context, slug string) (remote.Document, error) {
	if slug == "" {
		return remote.Document{}, domainerr.ErrNotFound
	}
	for _, p := range f.list {
		if p.Slug == slug {
			return remote.Document{Post: p, Body: "body of " + p.Title}, nil
		}
	}
	return remote.Document{
		Post:     content.Post{Slug: slug, Title: "Missing", Description: remote.FallbackDescription},
		Fallback: true,
	}, nil
}

func manyPosts(n int) []content.Post {
	out := make([]content.Post, 0, n)
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		p := content.Post{
			Slug:  fmt.Sprintf("post-%02d", i),
			Title: fmt.Sprintf("Post %02d", i),
			Date:  start.AddDate(0, 0, i),
		}
		if i%2 == 0 {
			p.Tags = []string{"Go"}
		}
		if i%3 == 0 {
			p.Categories = []string{"Machine Learning"}
		}
		out = append(out, p)
	}
	return out
}

func newServer(t *testing.T, src *fakeSource, backend string) *Server {
	t.Helper()
	cfg := config.Default()
	if backend != "" {
		cfg.Backend.URL = backend
	}

	tpl, err := render.NewTemplateRenderer(t.TempDir(), "default", render.TemplateOptions{})
	if err != nil {
		t.Fatalf("NewTemplateRenderer: %v", err)
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s, err := New(cfg, Options{
		Source:   src,
		Renderer: tpl,
		Compiler: render.NewCompiler(render.CompilerOptions{Logger: logger}),
		Logger:   logger,
		Dev:      true,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s
}

func get(t *testing.T, h http.Handler, target string, hdr ...string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	for i := 0; i+1 < len(hdr); i += 2 {
		req.Header.Set(hdr[i], hdr[i+1])
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHome_FirstBatchAndFeed(t *testing.T) {
	s := newServer(t, &fakeSource{list: manyPosts(60)}, "")
	h := s.Handler()

	rec := get(t, h, "/")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET / = %d", rec.Code)
	}
	body := rec.Body.String()
	if got := strings.Count(body, `class="card"`); got != 24 {
		t.Errorf("cards = %d, want 24", got)
	}
	if !strings.Contains(body, `data-next="24"`) || !strings.Contains(body, `data-feed="/feed"`) {
		t.Error("home lacks the feed sentinel")
	}
	if !strings.Contains(body, "Post 59") || strings.Contains(body, "Post 35") {
		t.Error("home should show the newest 24 posts")
	}

	var feed feedResponse
	rec = get(t, h, "/feed?offset=24")
	if err := json.Unmarshal(rec.Body.Bytes(), &feed); err != nil {
		t.Fatalf("decode feed: %v", err)
	}
	if len(feed.Posts) != 24 || feed.Next != 48 || feed.Done {
		t.Errorf("feed = %d posts next %d done %v", len(feed.Posts), feed.Next, feed.Done)
	}
	if feed.Posts[0].Slug != "post-35" || feed.Posts[0].URL != "/post-35/" {
		t.Errorf("first feed post = %+v", feed.Posts[0])
	}

	rec = get(t, h, "/feed?offset=48")
	feed = feedResponse{}
	if err := json.Unmarshal(rec.Body.Bytes(), &feed); err != nil {
		t.Fatal(err)
	}
	if len(feed.Posts) != 12 || feed.Next != 60 || !feed.Done {
		t.Errorf("last feed = %d posts next %d done %v", len(feed.Posts), feed.Next, feed.Done)
	}
	if !strings.Contains(feed.HTML, "Post 00") {
		t.Error("last batch html lacks the oldest post")
	}

	if rec := get(t, h, "/feed?offset=-1"); rec.Code != http.StatusBadRequest {
		t.Errorf("negative offset = %d, want 400", rec.Code)
	}
}

func TestHome_Filters(t *testing.T) {
	s := newServer(t, &fakeSource{list: manyPosts(10)}, "")
	h := s.Handler()

	body := get(t, h, "/?tag=go").Body.String()
	if got := strings.Count(body, `class="card"`); got != 5 {
		t.Errorf("tag=go cards = %d, want 5", got)
	}
	if strings.Contains(body, "feed-sentinel") {
		t.Error("exhausted list still renders the feed sentinel")
	}

	body = get(t, h, "/?topic=ai").Body.String()
	if got := strings.Count(body, `class="card"`); got != 4 {
		t.Errorf("topic=ai cards = %d, want 4", got)
	}

	body = get(t, h, "/?tag=nope").Body.String()
	if !strings.Contains(body, "No posts found.") {
		t.Error("empty filter result lacks the empty state")
	}

	body = get(t, h, "/?page=2").Body.String()
	if got := strings.Count(body, `class="card"`); got != 1 || !strings.Contains(body, "Post 00") {
		t.Errorf("page 2 shows %d cards, want only the oldest post", got)
	}
	if got := get(t, h, "/page/2/").Body.String(); got != body {
		t.Error("/page/2/ differs from ?page=2")
	}
	if rec := get(t, h, "/?page=9"); rec.Code != http.StatusNotFound {
		t.Errorf("page beyond range = %d, want 404", rec.Code)
	}
}

func TestPost_ETagAndNotFound(t *testing.T) {
	s := newServer(t, &fakeSource{list: manyPosts(3)}, "")
	h := s.Handler()

	rec := get(t, h, "/post-01/")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET post = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "body of Post 01") {
		t.Error("post body missing")
	}
	etag := rec.Header().Get("ETag")
	if etag == "" {
		t.Fatal("missing ETag")
	}

	if rec := get(t, h, "/post-01/", "If-None-Match", etag); rec.Code != http.StatusNotModified {
		t.Errorf("conditional GET = %d, want 304", rec.Code)
	}
	if rec := get(t, h, "/post-01", "If-None-Match", `"other"`); rec.Code != http.StatusOK {
		t.Errorf("mismatched ETag = %d, want 200", rec.Code)
	}

	for _, path := range []string{"/no-such-post/", "/page/x/"} {
		rec := get(t, h, path)
		if rec.Code != http.StatusNotFound {
			t.Errorf("GET %s = %d, want 404", path, rec.Code)
		}
		if !strings.Contains(rec.Body.String(), path) {
			t.Errorf("404 page for %s does not echo the path", path)
		}
	}
}

func TestPost_FallbackWhenBackendDown(t *testing.T) {
	s := newServer(t, &fakeSource{}, "")
	rec := get(t, s.Handler(), "/2024-01-09-anything/")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET = %d, want 200 fallback", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), remote.FallbackDescription) {
		t.Error("fallback page lacks the fallback description")
	}
}

func TestTermPages(t *testing.T) {
	s := newServer(t, &fakeSource{list: manyPosts(6)}, "")
	h := s.Handler()

	rec := get(t, h, "/tags/go/")
	if rec.Code != http.StatusOK || strings.Count(rec.Body.String(), `class="card"`) != 3 {
		t.Errorf("tag page = %d with %d cards", rec.Code, strings.Count(rec.Body.String(), `class="card"`))
	}
	if rec := get(t, h, "/categories/machine-learning/"); rec.Code != http.StatusOK {
		t.Errorf("category page = %d", rec.Code)
	}
	if rec := get(t, h, "/tags/unknown/"); rec.Code != http.StatusNotFound {
		t.Errorf("unknown tag = %d, want 404", rec.Code)
	}
	if rec := get(t, h, "/tags/"); rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "/tags/go/") {
		t.Errorf("tags overview = %d", rec.Code)
	}
	if rec := get(t, h, "/categories/"); rec.Code != http.StatusOK {
		t.Errorf("categories overview = %d", rec.Code)
	}
}

func TestProxy(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		fmt.Fprintf(w, "%s?%s", r.URL.Path, r.URL.RawQuery)
	}))
	defer backend.Close()

	h := newServer(t, &fakeSource{}, backend.URL).Handler()

	rec := get(t, h, "/api/proxy/posts/abc?x=1")
	if rec.Code != http.StatusOK || rec.Body.String() != "/api/posts/abc?x=1" {
		t.Errorf("api proxy = %d %q", rec.Code, rec.Body.String())
	}
	rec = get(t, h, "/images/cover.png")
	if rec.Body.String() != "/images/cover.png?" {
		t.Errorf("image proxy = %q", rec.Body.String())
	}
}

func TestProxy_BackendDown(t *testing.T) {
	backend := httptest.NewServer(http.NotFoundHandler())
	url := backend.URL
	backend.Close()

	rec := get(t, newServer(t, &fakeSource{}, url).Handler(), "/api/proxy/posts")
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", rec.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil || body["error"] == "" {
		t.Errorf("body = %q", rec.Body.String())
	}
}

func TestHealthAndStatic(t *testing.T) {
	h := newServer(t, &fakeSource{}, "").Handler()

	if rec := get(t, h, "/health/live"); rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "ok") {
		t.Errorf("health = %d %q", rec.Code, rec.Body.String())
	}
	rec := get(t, h, "/static/feed.js")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "IntersectionObserver") {
		t.Errorf("static asset = %d", rec.Code)
	}
}

func TestBasePath(t *testing.T) {
	cfg := config.Default()
	cfg.Site.BasePath = "/blog"
	tpl, err := render.NewTemplateRenderer(t.TempDir(), "default", render.TemplateOptions{})
	if err != nil {
		t.Fatal(err)
	}
	s, err := New(cfg, Options{
		Source:   &fakeSource{list: manyPosts(2)},
		Renderer: tpl,
		Compiler: render.NewCompiler(render.CompilerOptions{}),
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	if err != nil {
		t.Fatal(err)
	}
	h := s.Handler()

	if rec := get(t, h, "/blog/post-00/"); rec.Code != http.StatusOK {
		t.Errorf("post under base = %d", rec.Code)
	}
	if rec := get(t, h, "/"); rec.Code != http.StatusFound || rec.Header().Get("Location") != "/blog/" {
		t.Errorf("root = %d -> %q", rec.Code, rec.Header().Get("Location"))
	}
	if rec := get(t, h, "/blog/static/style.css"); rec.Code != http.StatusOK {
		t.Errorf("static under base = %d", rec.Code)
	}
	if rec := get(t, h, "/blog/dev/events"); rec.Code != http.StatusNotFound {
		t.Errorf("dev events without dev mode = %d, want 404", rec.Code)
	}
}

func TestDevEvents_Reload(t *testing.T) {
	s := newServer(t, &fakeSource{}, "")
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/dev/events", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("Content-Type = %q", ct)
	}

	rd := bufio.NewReader(resp.Body)
	if line, _ := rd.ReadString('\n'); line != ": connected\n" {
		t.Fatalf("first line = %q", line)
	}
	if n := s.subscribers(); n != 1 {
		t.Fatalf("subscribers = %d, want 1", n)
	}

	s.reload()

	for {
		line, err := rd.ReadString('\n')
		if err != nil {
			t.Fatalf("read event: %v", err)
		}
		if line == "event: reload\n" {
			break
		}
	}
}

func TestStartWatch_MissingDirLeavesNoWatcher(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "default", "templates")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"home", "post", "list", "404", "tags-all", "categories-all", "cards"} {
		if err := os.WriteFile(filepath.Join(dir, name+".tmpl"), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	tpl, err := render.NewTemplateRenderer(root, "default", render.TemplateOptions{})
	if err != nil {
		t.Fatalf("NewTemplateRenderer: %v", err)
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s, err := New(config.Default(), Options{
		Source:   &fakeSource{},
		Renderer: tpl,
		Compiler: render.NewCompiler(render.CompilerOptions{Logger: logger}),
		Logger:   logger,
		Dev:      true,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if err := os.RemoveAll(dir); err != nil {
		t.Fatal(err)
	}
	if err := s.startWatch(); err == nil {
		t.Fatal("startWatch on a removed dir succeeded")
	}
	if s.watcher != nil {
		t.Error("watcher kept after failed startWatch")
	}
}

func TestStartWatch_EmbeddedTheme(t *testing.T) {
	s := newServer(t, &fakeSource{}, "")
	if err := s.startWatch(); err != nil {
		t.Fatalf("startWatch: %v", err)
	}
	if s.watcher == nil {
		t.Fatal("watcher not set")
	}
	_ = s.watcher.Close()
}
