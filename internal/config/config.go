// Package config loads the todos service configuration from a YAML file
// and TODOS_* environment variables, and watches the file for changes.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"gopkg.in/yaml.v3"

	"github.com/bjaus/routekit"
)

// AppName names the xdg config directory and prefixes environment variables.
const AppName = "todos"

const envPrefix = "TODOS_"

// ErrInvalid is returned by Validate.
var ErrInvalid = errors.New("invalid configuration")

// File is the full service configuration.
type File struct {
	Server    routekit.Config `yaml:"server"`
	Log       Log             `yaml:"log"`
	RateLimit RateLimit       `yaml:"rate_limit"`
	Metrics   Metrics         `yaml:"metrics"`
	Tracing   Tracing         `yaml:"tracing"`
	Debug     Debug           `yaml:"debug"`
}

// Log configures the slog handler.
type Log struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text or json
}

// RateLimit configures per-client request limiting. A zero rate disables it.
type RateLimit struct {
	Rate  float64 `yaml:"rate"`
	Burst int     `yaml:"burst"`
}

// Metrics configures the Prometheus endpoint.
type Metrics struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// Tracing toggles request spans.
type Tracing struct {
	Enabled bool `yaml:"enabled"`
}

// Debug toggles diagnostic endpoints.
type Debug struct {
	Pprof bool `yaml:"pprof"`
}

// Default returns the configuration used when no file or variable
// overrides a field.
func Default() File {
	server := routekit.DefaultConfig()
	server.Title = "Todos API"
	server.Version = "1.0.0"

	return File{
		Server:  server,
		Log:     Log{Level: "info", Format: "text"},
		Metrics: Metrics{Enabled: true, Path: "/metrics"},
	}
}

// DefaultPath returns the first todos/config.yaml found in the xdg config
// directories, or "" if there is none.
func DefaultPath() string {
	path, err := xdg.SearchConfigFile(filepath.Join(AppName, "config.yaml"))
	if err != nil {
		return ""
	}
	return path
}

// Load reads path (optional), overlays the environment and validates.
func Load(path string) (File, error) {
	return load(path, os.LookupEnv)
}

func load(path string, lookup func(string) (string, bool)) (File, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return File{}, fmt.Errorf("read config: %w", err)
		}
		if err := decode(data, &cfg); err != nil {
			return File{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := applyEnv(&cfg, lookup); err != nil {
		return File{}, err
	}
	if err := cfg.Validate(); err != nil {
		return File{}, err
	}
	return cfg, nil
}

func decode(data []byte, cfg *File) error {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// applyEnv overlays TODOS_* variables onto cfg.
func applyEnv(cfg *File, lookup func(string) (string, bool)) error {
	var errs []error
	str := func(key string, dst *string) {
		if v, ok := lookup(envPrefix + key); ok {
			*dst = v
		}
	}
	parse := func(key string, fn func(string) error) {
		if v, ok := lookup(envPrefix + key); ok {
			if err := fn(v); err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", envPrefix, key, err))
			}
		}
	}

	str("HOST", &cfg.Server.Host)
	parse("PORT", func(v string) (err error) {
		cfg.Server.Port, err = strconv.Atoi(v)
		return err
	})
	parse("DRAIN_TIMEOUT", func(v string) (err error) {
		cfg.Server.DrainTimeout, err = time.ParseDuration(v)
		return err
	})
	parse("MAX_BODY_BYTES", func(v string) (err error) {
		cfg.Server.MaxBodyBytes, err = strconv.ParseInt(v, 10, 64)
		return err
	})
	str("TITLE", &cfg.Server.Title)
	str("LOG_LEVEL", &cfg.Log.Level)
	str("LOG_FORMAT", &cfg.Log.Format)
	parse("RATE_LIMIT", func(v string) (err error) {
		cfg.RateLimit.Rate, err = strconv.ParseFloat(v, 64)
		return err
	})
	parse("RATE_BURST", func(v string) (err error) {
		cfg.RateLimit.Burst, err = strconv.Atoi(v)
		return err
	})
	parse("METRICS", func(v string) (err error) {
		cfg.Metrics.Enabled, err = strconv.ParseBool(v)
		return err
	})
	parse("TRACING", func(v string) (err error) {
		cfg.Tracing.Enabled, err = strconv.ParseBool(v)
		return err
	})
	parse("PPROF", func(v string) (err error) {
		cfg.Debug.Pprof, err = strconv.ParseBool(v)
		return err
	})

	return errors.Join(errs...)
}

// Validate reports the first invalid field.
func (f File) Validate() error {
	if f.Server.Port < 0 || f.Server.Port > 65535 {
		return fmt.Errorf("%w: server.port %d out of range", ErrInvalid, f.Server.Port)
	}
	if f.Server.DrainTimeout < 0 {
		return fmt.Errorf("%w: server.drain_timeout must not be negative", ErrInvalid)
	}
	if _, err := f.Log.level(); err != nil {
		return fmt.Errorf("%w: log.level: %w", ErrInvalid, err)
	}
	if f.Log.Format != "text" && f.Log.Format != "json" {
		return fmt.Errorf("%w: log.format must be text or json, got %q", ErrInvalid, f.Log.Format)
	}
	if f.RateLimit.Rate < 0 {
		return fmt.Errorf("%w: rate_limit.rate must not be negative", ErrInvalid)
	}
	if f.RateLimit.Rate > 0 && f.RateLimit.Burst < 1 {
		return fmt.Errorf("%w: rate_limit.burst must be at least 1", ErrInvalid)
	}
	if f.Metrics.Enabled && !strings.HasPrefix(f.Metrics.Path, "/") {
		return fmt.Errorf("%w: metrics.path must start with /", ErrInvalid)
	}
	return nil
}

func (l Log) level() (slog.Level, error) {
	var lvl slog.Level
	err := lvl.UnmarshalText([]byte(l.Level))
	return lvl, err
}

// SlogLevel returns the configured level, or info when it does not parse.
func (l Log) SlogLevel() slog.Level {
	lvl, err := l.level()
	if err != nil {
		return slog.LevelInfo
	}
	return lvl
}

// Handler builds the slog handler described by l. A non-nil level
// overrides l.Level, which lets callers adjust it later through a
// *slog.LevelVar.
func (l Log) Handler(w io.Writer, level slog.Leveler) slog.Handler {
	if level == nil {
		level = l.SlogLevel()
	}
	opts := &slog.HandlerOptions{Level: level}
	if l.Format == "json" {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}
