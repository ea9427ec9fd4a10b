package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/urfave/cli/v3"

	"tipblog/internal/app"
	"tipblog/internal/build"
	"tipblog/internal/domain/config"
	"tipblog/internal/domain/site"
	"tipblog/internal/index"
	"tipblog/internal/serve"
)

func newURLs(cfg config.Config) site.URLs {
	return site.NewURLs(cfg.Site.BasePath)
}

func runServe(ctx context.Context, cmd *cli.Command) error {
	st, err := setup(cmd)
	if err != nil {
		return err
	}
	addr := st.cfg.Serve.Addr
	if v := cmd.String("addr"); v != "" {
		addr = v
	}

	srv, err := serve.New(st.cfg, serve.Options{
		Source:   st.client,
		Renderer: st.tpl,
		Compiler: st.compiler,
		Logger:   st.log,
		Dev:      cmd.Bool("dev"),
	})
	if err != nil {
		return err
	}
	return srv.ListenAndServe(ctx, addr)
}

func runBuild(ctx context.Context, cmd *cli.Command) error {
	st, err := setup(cmd)
	if err != nil {
		return err
	}
	if v := cmd.String("out"); v != "" {
		st.cfg.Build.PublicDir = v
	}

	if v := cmd.String("cache"); v != "" {
		st.cfg.Build.CacheFile = v
	}

	var src app.Source = st.client
	if path := st.cfg.Build.CacheFile; path != "" {
		store, err := index.Open(index.OpenOptions{Path: path})
		if err != nil {
			return fmt.Errorf("open cache: %w", err)
		}
		defer store.Close()
		src = app.NewCachedSource(st.client, store, st.log)
	}

	b := &build.Builder{
		Cfg:      st.cfg,
		Source:   src,
		Pages:    app.NewPages(st.cfg, st.compiler),
		Renderer: st.tpl,
		Static:   st.tpl.Static(),
		Log:      st.log,
	}
	res, err := b.Run(ctx)
	if err != nil {
		return fmt.Errorf("build failed: %w", err)
	}
	st.log.Info("build complete",
		slog.String("out", st.cfg.Build.PublicDir),
		slog.Int("posts", res.Posts),
		slog.Int("pages", res.Pages),
		slog.Int("fallbacks", len(res.Fallbacks)),
		slog.Int("skipped", len(res.Skipped)),
	)
	for _, slug := range res.Fallbacks {
		st.log.Warn("post could not be fetched", slog.String("slug", slug))
	}
	return nil
}

func runPosts(ctx context.Context, cmd *cli.Command) error {
	st, err := setup(cmd)
	if err != nil {
		return err
	}
	return printPosts(ctx, cmd, st)
}
