package config

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"

	domainerr "tipblog/internal/domain/errors"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"BACKEND_URL", "TIP_DESTINATION", "TIP_DEFAULT_AMOUNT"} {
		t.Setenv(k, "")
	}
}

func TestDefaultIsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("Default().Validate() = %v", err)
	}
}

func TestDefault_CacheDisabled(t *testing.T) {
	if got := Default().Build.CacheFile; got != "" {
		t.Errorf("default cache_file = %q, want empty", got)
	}
}

func TestLoad_OverridesDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("BLOG_AUTHOR", "Jo")

	path := writeConfig(t, `
site:
  title: My Blog
  author: ${BLOG_AUTHOR}
  base_path: /blog
  nav:
    - name: GitHub
      url: https://github.com/example
backend:
  url: https://api.example.com
  timeout: 3s
tip:
  destination: wallet-123
build:
  page_size: 12
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Site.Title != "My Blog" || cfg.Site.Author != "Jo" {
		t.Errorf("site = %+v", cfg.Site)
	}
	if cfg.Backend.Timeout != 3*time.Second {
		t.Errorf("timeout = %v, want 3s", cfg.Backend.Timeout)
	}
	if cfg.Build.PageSize != 12 || cfg.Build.BatchSize != 24 {
		t.Errorf("build = %+v, want page_size 12 and default batch", cfg.Build)
	}
	if cfg.Tip.DefaultAmount != 1.0 || cfg.Tip.Destination != "wallet-123" {
		t.Errorf("tip = %+v", cfg.Tip)
	}
	if len(cfg.Site.Nav) != 1 || cfg.Site.Nav[0].Name != "GitHub" {
		t.Errorf("nav = %+v", cfg.Site.Nav)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("BACKEND_URL", "https://env.example.com")
	t.Setenv("TIP_DESTINATION", "env-wallet")
	t.Setenv("TIP_DEFAULT_AMOUNT", "2.5")

	cfg, err := Load(writeConfig(t, "backend:\n  url: https://file.example.com\n"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Backend.URL != "https://env.example.com" {
		t.Errorf("backend.url = %q", cfg.Backend.URL)
	}
	if cfg.Tip.Destination != "env-wallet" || cfg.Tip.DefaultAmount != 2.5 {
		t.Errorf("tip = %+v", cfg.Tip)
	}
}

func TestLoad_BadEnvAmount(t *testing.T) {
	clearEnv(t)
	t.Setenv("TIP_DEFAULT_AMOUNT", "lots")

	_, err := LoadOrDefault(filepath.Join(t.TempDir(), "missing.yaml"))
	if !errors.Is(err, domainerr.ErrInvalid) {
		t.Errorf("err = %v, want ErrInvalid", err)
	}
}

func TestLoadOrDefault_MissingFile(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadOrDefault(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("LoadOrDefault: %v", err)
	}
	if cfg.Site.Title != Default().Site.Title {
		t.Errorf("title = %q, want default", cfg.Site.Title)
	}
}

func TestLoad_ParseError(t *testing.T) {
	clearEnv(t)
	if _, err := Load(writeConfig(t, "site: [unterminated")); err == nil {
		t.Fatal("Load with broken yaml: err = nil")
	}
}

func TestValidate_CollectsAllFields(t *testing.T) {
	cfg := Default()
	cfg.Site.Title = ""
	cfg.Site.BasePath = "blog/"
	cfg.Backend.URL = "ftp://x"
	cfg.Tip.DefaultAmount = 50
	cfg.Build.Workers = 0
	cfg.Serve.LogLevel = "verbose"

	err := cfg.Validate()
	if !errors.Is(err, domainerr.ErrInvalid) {
		t.Fatalf("err = %v, want ErrInvalid", err)
	}

	var ve domainerr.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("err is %T, want ValidationError", err)
	}
	for _, field := range []string{
		"site.title",
		"site.base_path",
		"backend.url",
		"tip.default_amount",
		"build.workers",
		"serve.log_level",
	} {
		if !slices.Contains(ve.Fields(), field) {
			t.Errorf("missing error for %s in %v", field, ve.Fields())
		}
	}
}

func TestServeLevel(t *testing.T) {
	if got := (ServeConfig{LogLevel: "DEBUG"}).Level().String(); got != "DEBUG" {
		t.Errorf("Level = %s, want DEBUG", got)
	}
	if got := (ServeConfig{}).Level().String(); got != "INFO" {
		t.Errorf("Level = %s, want INFO", got)
	}
}
