package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"tipblog/internal/domain/config"
	"tipblog/internal/posts"
	"tipblog/internal/remote"
	"tipblog/internal/render"
)

func main() {
	cmd := &cli.Command{
		Name:  "tipblog",
		Usage: "Blog front end for a remote post API, with tipping",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "site.yaml",
				Value:       "site.yaml",
				Sources:     cli.EnvVars("APP_CONFIG_FILE"),
			},
		},
		Commands: []*cli.Command{
			serveCommand(),
			buildCommand(),
			postsCommand(),
		},
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cmd.Run(ctx, os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the preview server",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "addr", Usage: "Listen address, overrides serve.addr"},
			&cli.BoolFlag{Name: "dev", Usage: "Hot reload theme templates", Value: true},
		},
		Action: runServe,
	}
}

func buildCommand() *cli.Command {
	return &cli.Command{
		Name:  "build",
		Usage: "Export the site as static files",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "out", Usage: "Output directory, overrides build.public_dir"},
			&cli.StringFlag{Name: "cache", Usage: "Keep a fetch cache at `PATH`, overrides build.cache_file"},
		},
		Action: runBuild,
	}
}

func postsCommand() *cli.Command {
	return &cli.Command{
		Name:  "posts",
		Usage: "List posts from the backend, newest first",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "tag"},
			&cli.StringFlag{Name: "category"},
			&cli.StringFlag{Name: "topic", Usage: "One of ai, web3, dev"},
		},
		Action: runPosts,
	}
}

type stack struct {
	cfg      config.Config
	log      *slog.Logger
	client   *remote.Client
	tpl      *render.TemplateRenderer
	compiler *render.Compiler
}

func setup(cmd *cli.Command) (*stack, error) {
	cfg, err := config.LoadOrDefault(cmd.String("config"))
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	log := newLogger(cfg.Serve)
	slog.SetDefault(log)

	tpl, err := render.NewTemplateRenderer(cfg.Build.ThemeDir, cfg.Site.Theme, render.TemplateOptions{
		URLs:      newURLs(cfg),
		ImageBase: cfg.Backend.URL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load theme: %w", err)
	}

	return &stack{
		cfg: cfg,
		log: log,
		client: remote.New(cfg.Backend.URL,
			remote.WithTimeout(cfg.Backend.Timeout),
			remote.WithLogger(log),
		),
		tpl: tpl,
		compiler: render.NewCompiler(render.CompilerOptions{
			ImageBase:  cfg.Backend.URL,
			UnsafeHTML: cfg.Build.UnsafeHTML,
			Logger:     log,
		}),
	}, nil
}

func newLogger(c config.ServeConfig) *slog.Logger {
	opts := &slog.HandlerOptions{Level: c.Level()}
	if c.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

func printPosts(ctx context.Context, cmd *cli.Command, st *stack) error {
	crit := posts.Criteria{
		Tag:      cmd.String("tag"),
		Category: cmd.String("category"),
		Topic:    cmd.String("topic"),
	}
	if crit.Topic != "" {
		if _, ok := posts.ParseTopic(crit.Topic); !ok {
			return fmt.Errorf("unknown topic %q", crit.Topic)
		}
	}

	list := posts.Query(st.client.FetchPosts(ctx), crit)
	for _, p := range list {
		date := "----------"
		if d := posts.EffectiveDate(p); !d.IsZero() {
			date = d.Format("2006-01-02")
		}
		fmt.Fprintf(os.Stdout, "%s  %-40s  %s\n", date, p.Slug, p.Title)
	}
	st.log.Debug("listed posts", slog.Int("count", len(list)))
	return nil
}
