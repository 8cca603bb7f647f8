// Package config loads runtime settings: defaults, then an optional YAML or
// TOML file, then SCENE_* environment variables.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/aframevr/aframe-sub002/internal/core/builtin"
	"github.com/aframevr/aframe-sub002/internal/core/observability/log"
)

var ErrInvalid = errors.New("invalid config")

type Config struct {
	// LogLevel is one of debug, info, warn, error or silent.
	LogLevel  string `yaml:"log_level" toml:"log_level" env:"SCENE_LOG_LEVEL"`
	FrameRate int    `yaml:"frame_rate" toml:"frame_rate" env:"SCENE_FRAME_RATE"`
	// AllowOverride lets a later registration replace a component or
	// property type of the same name.
	AllowOverride     bool     `yaml:"allow_override" toml:"allow_override" env:"SCENE_ALLOW_OVERRIDE"`
	DefaultComponents []string `yaml:"default_components" toml:"default_components" env:"SCENE_DEFAULT_COMPONENTS" envSeparator:","`

	Inspector Inspector `yaml:"inspector" toml:"inspector" envPrefix:"SCENE_INSPECTOR_"`
}

type Inspector struct {
	Enabled bool   `yaml:"enabled" toml:"enabled" env:"ENABLED"`
	Addr    string `yaml:"addr" toml:"addr" env:"ADDR"`
}

func Default() Config {
	return Config{
		LogLevel:          "info",
		FrameRate:         60,
		DefaultComponents: append([]string(nil), builtin.Defaults...),
		Inspector: Inspector{
			Addr: "127.0.0.1:8089",
		},
	}
}

// Load reads path over the defaults (skipped when path is empty) and applies
// environment overrides. The file format follows the extension: .toml is
// TOML, .yaml/.yml is YAML.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		if err := decodeFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	cfg.LogLevel = strings.ToLower(strings.TrimSpace(cfg.LogLevel))
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func decodeFile(path string, cfg *Config) error {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return fmt.Errorf("load config %s: %w", path, err)
		}
	case ".yaml", ".yml":
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		defer f.Close()
		dec := yaml.NewDecoder(f)
		dec.KnownFields(true)
		if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("load config %s: %w", path, err)
		}
	default:
		return fmt.Errorf("%w: unsupported config format %q", ErrInvalid, ext)
	}
	return nil
}

func (c Config) Validate() error {
	var errs []error
	if c.LogLevel == "" {
		errs = append(errs, fmt.Errorf("%w: log_level is empty", ErrInvalid))
	} else if _, err := log.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("%w: %w", ErrInvalid, err))
	}
	if c.FrameRate <= 0 {
		errs = append(errs, fmt.Errorf("%w: frame_rate must be positive, got %d", ErrInvalid, c.FrameRate))
	}
	if c.Inspector.Enabled && c.Inspector.Addr == "" {
		errs = append(errs, fmt.Errorf("%w: inspector enabled without an address", ErrInvalid))
	}
	return errors.Join(errs...)
}

// Level returns the parsed log level.
func (c Config) Level() log.Level {
	l, err := log.ParseLevel(c.LogLevel)
	if err != nil {
		return log.LevelInfo
	}
	return l
}
