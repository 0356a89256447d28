// Package config loads process configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	Extractor      string        `env:"EXTRACTOR" envDefault:"ytdlp://yt-dlp"`
	ExtractTimeout time.Duration `env:"EXTRACT_TIMEOUT" envDefault:"12s"`
	ExtractFormat  string        `env:"EXTRACT_FORMAT" envDefault:"mp4/best[ext=mp4]/best"`
	DefaultTitle   string        `env:"DEFAULT_TITLE" envDefault:"Video"`
	SourcePatterns []string      `env:"SOURCE_PATTERNS" envSeparator:","`
	MaxBodyBytes   int64         `env:"MAX_BODY_BYTES" envDefault:"65536"`
	HTTPTimeout    time.Duration `env:"HTTP_TIMEOUT" envDefault:"20s"`

	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat   string `env:"LOG_FORMAT" envDefault:"json"`
	ServiceName string `env:"SERVICE_NAME" envDefault:"tiktok-direct-link"`
	Addr        string `env:"ADDR" envDefault:":8888"`
}

// Load reads the process environment.
func Load() (Config, error) {
	return parse(env.Options{})
}

// LoadFrom reads environ instead of the process environment.
func LoadFrom(environ map[string]string) (Config, error) {
	return parse(env.Options{Environment: environ})
}

func parse(opts env.Options) (Config, error) {
	cfg, err := env.ParseAsWithOptions[Config](opts)
	if err != nil {
		return Config{}, fmt.Errorf("parsing env: %w", err)
	}
	cfg.SourcePatterns = compact(cfg.SourcePatterns)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	var errs []error
	if c.ExtractTimeout <= 0 {
		errs = append(errs, fmt.Errorf("EXTRACT_TIMEOUT must be positive, got %s", c.ExtractTimeout))
	}
	if c.MaxBodyBytes <= 0 {
		errs = append(errs, fmt.Errorf("MAX_BODY_BYTES must be positive, got %d", c.MaxBodyBytes))
	}
	if _, err := c.ExtractorURL(); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.level(); err != nil {
		errs = append(errs, err)
	}
	switch c.LogFormat {
	case "json", "text":
	default:
		errs = append(errs, fmt.Errorf("LOG_FORMAT must be json or text, got %q", c.LogFormat))
	}
	return errors.Join(errs...)
}

func (c Config) ExtractorURL() (*url.URL, error) {
	u, err := url.Parse(c.Extractor)
	if err != nil {
		return nil, fmt.Errorf("parsing EXTRACTOR: %w", err)
	}
	if u.Scheme == "" {
		return nil, fmt.Errorf("EXTRACTOR needs a scheme such as ytdlp:// or cobalt://, got %q", c.Extractor)
	}
	return u, nil
}

// NewLogger builds the process logger writing to w.
func (c Config) NewLogger(w io.Writer) *slog.Logger {
	level, _ := c.level()
	opts := &slog.HandlerOptions{Level: level}
	var h slog.Handler
	if c.LogFormat == "text" {
		h = slog.NewTextHandler(w, opts)
	} else {
		h = slog.NewJSONHandler(w, opts)
	}
	return slog.New(h).With("service", c.ServiceName)
}

func (c Config) level() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo, fmt.Errorf("LOG_LEVEL: %w", err)
	}
	return level, nil
}

func compact(in []string) []string {
	out := in[:0]
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
