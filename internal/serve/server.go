package serve

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"tipblog/internal/app"
	"tipblog/internal/domain/build"
	"tipblog/internal/domain/config"
	"tipblog/internal/render"
)

type Server struct {
	cfg    config.Config
	log    *slog.Logger
	src    app.Source
	pages  *app.Pages
	tpl    *render.TemplateRenderer
	router chi.Router

	backend    *url.URL
	configHash string

	sseMu    sync.Mutex
	sseConns map[chan string]struct{}
	watcher  *fsnotify.Watcher
}

type Options struct {
	Source   app.Source
	Renderer *render.TemplateRenderer
	Compiler *render.Compiler
	Logger   *slog.Logger
	// Dev enables the hot reload client and the /dev/events stream.
	Dev bool
}

func New(cfg config.Config, opts Options) (*Server, error) {
	if opts.Source == nil || opts.Renderer == nil || opts.Compiler == nil {
		return nil, errors.New("serve: source, renderer and compiler are required")
	}
	backend, err := url.Parse(cfg.Backend.URL)
	if err != nil {
		return nil, fmt.Errorf("serve: backend url: %w", err)
	}
	raw, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("serve: hash config: %w", err)
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}

	pages := app.NewPages(cfg, opts.Compiler)
	pages.DevReload = opts.Dev

	s := &Server{
		cfg:        cfg,
		log:        log.With(slog.String("component", "serve")),
		src:        opts.Source,
		pages:      pages,
		tpl:        opts.Renderer,
		backend:    backend,
		configHash: build.Hash(raw),
		sseConns:   make(map[chan string]struct{}),
	}
	s.router = s.routes(opts.Dev)
	return s, nil
}

func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) routes(dev bool) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	base := s.pages.Routes.URLs.BasePath
	if base == "" {
		s.siteRoutes(r, dev)
		return r
	}
	r.Get("/", func(w http.ResponseWriter, req *http.Request) {
		http.Redirect(w, req, base+"/", http.StatusFound)
	})
	r.Route(base, func(site chi.Router) {
		s.siteRoutes(site, dev)
	})
	return r
}

func (s *Server) siteRoutes(r chi.Router, dev bool) {
	r.Get("/", s.handleHome)
	r.Get("/page/{n}/", s.handlePage)
	r.Get("/feed", s.handleFeed)
	r.Get("/tags/", s.handleTagsRoot)
	r.Get("/tags/{key}/", s.handleTag)
	r.Get("/categories/", s.handleCategoriesRoot)
	r.Get("/categories/{key}/", s.handleCategory)
	r.Handle("/static/*", s.staticHandler())
	r.Handle("/api/proxy/*", s.apiProxy())
	r.Handle("/images/*", s.imageProxy())
	if dev {
		r.Get("/dev/events", s.handleSSE)
	}
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/*", s.handlePost)
	r.NotFound(s.handleNotFound)
}

func (s *Server) staticHandler() http.Handler {
	prefix := s.pages.Routes.URLs.BasePath + "/static/"
	return http.StripPrefix(prefix, http.FileServer(http.FS(s.tpl.Static())))
}

// ListenAndServe runs the HTTP server, and in dev mode the theme watcher,
// until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	if s.pages.DevReload {
		if err := s.startWatch(); err != nil {
			return err
		}
		defer s.watcher.Close()
		g.Go(func() error {
			s.watchLoop(gctx)
			return nil
		})
	}

	g.Go(func() error {
		s.log.Info("listening", slog.String("addr", addr), slog.String("backend", s.cfg.Backend.URL))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		s.closeSSE()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.log.Error("shutdown", slog.String("error", err.Error()))
		}
		return nil
	})

	return g.Wait()
}

// slugFromPath extracts a post slug from the catch-all param, tolerating a
// missing trailing slash.
func slugFromPath(r *http.Request) string {
	raw := strings.Trim(chi.URLParam(r, "*"), "/")
	if raw == "" {
		return ""
	}
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return decoded
}
