package remote

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"tipblog/internal/domain/content"
	domainerr "tipblog/internal/domain/errors"
)

var fixedNow = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	return New(baseURL,
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithNow(func() time.Time { return fixedNow }),
		WithTimeout(2*time.Second),
	)
}

func TestFetchPosts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/posts" {
			t.Errorf("path = %q, want /api/posts", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"slug":"2024-05-01-hello-world","tags":"go, web"},
			{"slug":"dated","title":"Dated","date":"2023-01-02T03:04:05Z","categories":["AI"]},
			{"title":"no slug"},
			{"url":"https://example.com/posts/from-url.md"},
			"not an object"
		]`))
	}))
	defer srv.Close()

	posts := newTestClient(t, srv.URL).FetchPosts(context.Background())
	if len(posts) != 3 {
		t.Fatalf("len(posts) = %d, want 3", len(posts))
	}

	first := posts[0]
	if first.Title != "Hello world" {
		t.Errorf("title = %q, want %q", first.Title, "Hello world")
	}
	if first.DateSource != content.DateSlug || !first.Date.Equal(time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("date = %v (%s), want slug date", first.Date, first.DateSource)
	}
	if len(first.Tags) != 2 || first.Tags[0] != "go" || first.Tags[1] != "web" {
		t.Errorf("tags = %q", first.Tags)
	}

	if posts[1].DateSource != content.DateExplicit {
		t.Errorf("date source = %q, want explicit", posts[1].DateSource)
	}
	if posts[2].Slug != "from-url" {
		t.Errorf("slug = %q, want from-url", posts[2].Slug)
	}
	if posts[2].DateSource != content.DateFetched || !posts[2].Date.Equal(fixedNow) {
		t.Errorf("undated post date = %v (%s), want fetch time", posts[2].Date, posts[2].DateSource)
	}
}

func TestFetchPosts_WrappedObject(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"posts":[{"slug":"a"},{"slug":"b"}]}`))
	}))
	defer srv.Close()

	if got := newTestClient(t, srv.URL).FetchPosts(context.Background()); len(got) != 2 {
		t.Errorf("len(posts) = %d, want 2", len(got))
	}
}

func TestFetchPosts_FailSoft(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"server error", func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "boom", http.StatusInternalServerError)
		}},
		{"bad json", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"posts": nope`))
		}},
		{"wrong shape", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`42`))
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			got := newTestClient(t, srv.URL).FetchPosts(context.Background())
			if got == nil || len(got) != 0 {
				t.Errorf("posts = %v, want empty non-nil slice", got)
			}
		})
	}
}

func TestFetchPosts_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	got := newTestClient(t, base).FetchPosts(context.Background())
	if got == nil || len(got) != 0 {
		t.Errorf("posts = %v, want empty non-nil slice", got)
	}
}

func TestFetchPost_Envelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.EscapedPath() != "/api/posts/my%20post" {
			t.Errorf("escaped path = %q", r.URL.EscapedPath())
		}
		_, _ = w.Write([]byte(`{"content":"# Title\n\nsome words here","metadata":{"title":"Mine","date":"2024-02-03"}}`))
	}))
	defer srv.Close()

	doc, err := newTestClient(t, srv.URL).FetchPost(context.Background(), "my post")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc.Fallback {
		t.Fatal("Fallback = true, want false")
	}
	if doc.Post.Title != "Mine" {
		t.Errorf("title = %q, want Mine", doc.Post.Title)
	}
	if doc.Post.ReadTime != "1 min read" {
		t.Errorf("read time = %q, want computed %q", doc.Post.ReadTime, "1 min read")
	}
	if doc.Body != "# Title\n\nsome words here" {
		t.Errorf("body = %q", doc.Body)
	}
}

func TestFetchPost_FrontMatter(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/markdown")
		_, _ = w.Write([]byte("---\ntitle: FM\nreadTime: 7 min read\n---\nbody"))
	}))
	defer srv.Close()

	doc, err := newTestClient(t, srv.URL).FetchPost(context.Background(), "fm")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc.Post.Title != "FM" || doc.Post.ReadTime != "7 min read" || doc.Body != "body" {
		t.Errorf("doc = %+v", doc)
	}
}

func TestFetchPost_Fallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	doc, err := newTestClient(t, srv.URL).FetchPost(context.Background(), "2024-01-09-missing-post")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !doc.Fallback {
		t.Fatal("Fallback = false, want true")
	}
	if doc.Post.Title != "Missing post" {
		t.Errorf("title = %q, want %q", doc.Post.Title, "Missing post")
	}
	if doc.Post.Description != FallbackDescription {
		t.Errorf("description = %q", doc.Post.Description)
	}
	if !doc.Post.Date.Equal(fixedNow) {
		t.Errorf("date = %v, want %v", doc.Post.Date, fixedNow)
	}
}

func TestFetchPost_EmptySlug(t *testing.T) {
	_, err := newTestClient(t, "http://127.0.0.1:1").FetchPost(context.Background(), " / ")
	if !errors.Is(err, domainerr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}
