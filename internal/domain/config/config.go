package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"gopkg.in/yaml.v3"

	domainerr "tipblog/internal/domain/errors"
)

type Config struct {
	Site    SiteConfig    `yaml:"site"`
	Backend BackendConfig `yaml:"backend"`
	Tip     TipConfig     `yaml:"tip"`
	Build   BuildConfig   `yaml:"build"`
	Serve   ServeConfig   `yaml:"serve"`
}

type SiteConfig struct {
	Title       string    `yaml:"title"`
	Subtitle    string    `yaml:"subtitle"`
	Author      string    `yaml:"author"`
	SiteURL     string    `yaml:"site_url"`
	BasePath    string    `yaml:"base_path"`
	Description string    `yaml:"description"`
	Language    string    `yaml:"language"`
	Theme       string    `yaml:"theme"`
	Nav         []NavLink `yaml:"nav"`
	ReadMore    string    `yaml:"read_more"`
}

type NavLink struct {
	Name string `yaml:"name"`
	URL  string `yaml:"url"`
}

type BackendConfig struct {
	URL     string        `yaml:"url"`
	Timeout time.Duration `yaml:"timeout"`
}

// TipConfig configures the tip widget shown on every page. Amounts are in
// the widget's display currency.
type TipConfig struct {
	Destination   string  `yaml:"destination"`
	DefaultAmount float64 `yaml:"default_amount"`
	MinAmount     float64 `yaml:"min_amount"`
	MaxAmount     float64 `yaml:"max_amount"`
	ScriptURL     string  `yaml:"script_url"`
}

type BuildConfig struct {
	PublicDir  string `yaml:"public_dir"`
	ThemeDir   string `yaml:"theme_dir"`
	PageSize   int    `yaml:"page_size"`
	BatchSize  int    `yaml:"batch_size"`
	Workers    int    `yaml:"workers"`
	UnsafeHTML bool   `yaml:"unsafe_html"`

	// CacheFile keeps the last good fetches for offline builds. Empty, the
	// default, disables it.
	CacheFile string `yaml:"cache_file"`
}

type ServeConfig struct {
	Addr      string `yaml:"addr"`
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
}

func Default() Config {
	return Config{
		Site: SiteConfig{
			Title:    "Tip Blog",
			SiteURL:  "http://localhost:8080",
			Language: "en",
			Theme:    "default",
			ReadMore: "Read More →",
		},
		Backend: BackendConfig{
			URL:     "http://localhost:3001",
			Timeout: 10 * time.Second,
		},
		Tip: TipConfig{
			DefaultAmount: 1.00,
			MinAmount:     0.10,
			MaxAmount:     10.00,
		},
		Build: BuildConfig{
			PublicDir: "public",
			ThemeDir:  "themes",
			PageSize:  9,
			BatchSize: 24,
			Workers:   4,
		},
		Serve: ServeConfig{
			Addr:      ":8080",
			LogLevel:  "info",
			LogFormat: "text",
		},
	}
}

func (c Config) Validate() error {
	var ve domainerr.ValidationError

	if strings.TrimSpace(c.Site.Title) == "" {
		ve.Add("site.title", "must not be empty")
	}
	if strings.TrimSpace(c.Site.SiteURL) == "" {
		ve.Add("site.site_url", "must not be empty")
	} else if !isValidAbsURL(c.Site.SiteURL) {
		ve.Add("site.site_url", "must be a valid absolute URL")
	}
	if strings.TrimSpace(c.Site.Theme) == "" {
		ve.Add("site.theme", "must not be empty")
	}
	if bp := strings.TrimSpace(c.Site.BasePath); bp != "" {
		if !strings.HasPrefix(bp, "/") {
			ve.Add("site.base_path", "must start with '/'")
		}
		if strings.HasSuffix(bp, "/") && bp != "/" {
			ve.Add("site.base_path", "must not end with '/'")
		}
	}
	for i, n := range c.Site.Nav {
		if strings.TrimSpace(n.Name) == "" || strings.TrimSpace(n.URL) == "" {
			ve.Add(fmt.Sprintf("site.nav[%d]", i), "name and url are required")
		}
	}

	if strings.TrimSpace(c.Backend.URL) == "" {
		ve.Add("backend.url", "must not be empty")
	} else if !isValidAbsURL(c.Backend.URL) {
		ve.Add("backend.url", "must be a valid absolute URL")
	}
	ve.AddErr("backend.timeout", validation.Validate(c.Backend.Timeout, validation.Min(time.Duration(0))))

	ve.AddErr("tip.min_amount", validation.Validate(c.Tip.MinAmount, validation.Required, validation.Min(0.0).Exclusive()))
	ve.AddErr("tip.max_amount", validation.Validate(c.Tip.MaxAmount, validation.Required, validation.Min(c.Tip.MinAmount)))
	ve.AddErr("tip.default_amount", validation.Validate(c.Tip.DefaultAmount,
		validation.Required,
		validation.Min(c.Tip.MinAmount),
		validation.Max(c.Tip.MaxAmount),
	))
	if s := strings.TrimSpace(c.Tip.ScriptURL); s != "" && !isValidAbsURL(s) {
		ve.Add("tip.script_url", "must be a valid absolute URL")
	}

	if strings.TrimSpace(c.Build.PublicDir) == "" {
		ve.Add("build.public_dir", "must not be empty")
	}
	if strings.TrimSpace(c.Build.ThemeDir) == "" {
		ve.Add("build.theme_dir", "must not be empty")
	}
	ve.AddErr("build.page_size", validation.Validate(c.Build.PageSize, validation.Required, validation.Min(1)))
	ve.AddErr("build.batch_size", validation.Validate(c.Build.BatchSize, validation.Required, validation.Min(1)))
	ve.AddErr("build.workers", validation.Validate(c.Build.Workers, validation.Required, validation.Min(1), validation.Max(64)))

	ve.AddErr("serve.log_level", validation.Validate(strings.ToLower(c.Serve.LogLevel),
		validation.In("", "debug", "info", "warn", "error")))
	ve.AddErr("serve.log_format", validation.Validate(strings.ToLower(c.Serve.LogFormat),
		validation.In("", "text", "json")))

	if ve.HasAny() {
		return ve
	}
	return nil
}

// Level maps serve.log_level to a slog level; unknown values are info.
func (c ServeConfig) Level() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func isValidAbsURL(s string) bool {
	u, err := url.Parse(strings.TrimSpace(s))
	if err != nil {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	return u.Host != ""
}

// Load reads path over Default. ${VAR} references in the file are expanded
// from the environment, then the well-known variables override.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := applyEnv(&cfg); err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// LoadOrDefault is Load, except that a missing file means defaults.
func LoadOrDefault(path string) (Config, error) {
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			return Load(path)
		} else if !errors.Is(err, os.ErrNotExist) {
			return Default(), fmt.Errorf("stat config %s: %w", path, err)
		}
	}

	cfg := Default()
	if err := applyEnv(&cfg); err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	if v := strings.TrimSpace(os.Getenv("BACKEND_URL")); v != "" {
		cfg.Backend.URL = v
	}
	if v := strings.TrimSpace(os.Getenv("TIP_DESTINATION")); v != "" {
		cfg.Tip.Destination = v
	}
	if v := strings.TrimSpace(os.Getenv("TIP_DEFAULT_AMOUNT")); v != "" {
		amount, err := strconv.ParseFloat(v, 64)
		if err != nil {
			var ve domainerr.ValidationError
			ve.Add("TIP_DEFAULT_AMOUNT", "must be a number")
			return ve
		}
		cfg.Tip.DefaultAmount = amount
	}
	return nil
}
