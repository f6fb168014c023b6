// Package config loads runtime settings from an optional YAML file,
// MEMODECK_-prefixed environment variables, and command-line flags, in that
// order of increasing precedence.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	flag "github.com/spf13/pflag"
)

const envPrefix = "MEMODECK_"

// Config is the application's runtime configuration.
type Config struct {
	// DataDir is the block store root; databases and session records live
	// under it.
	DataDir string `koanf:"data_dir" validate:"required"`
	// Listen is the HTTP listen address of the JSON API.
	Listen string `koanf:"listen" validate:"required,hostname_port"`
	// LogLevel is one of debug, info, warn, error.
	LogLevel string `koanf:"log_level" validate:"oneof=debug info warn error"`
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		DataDir:  "data",
		Listen:   "127.0.0.1:8787",
		LogLevel: "info",
	}
}

// Load merges defaults, the YAML file at path (skipped when absent), the
// environment, and the given flag set into a validated Config.
func Load(path string, flags *flag.FlagSet) (Config, error) {
	k := koanf.New(".")

	cfg := Defaults()
	if err := k.Set("data_dir", cfg.DataDir); err != nil {
		return Config{}, err
	}
	if err := k.Set("listen", cfg.Listen); err != nil {
		return Config{}, err
	}
	if err := k.Set("log_level", cfg.LogLevel); err != nil {
		return Config{}, err
	}

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
				return Config{}, fmt.Errorf("failed to load config file %s: %w", path, err)
			}
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, envPrefix))
	}), nil); err != nil {
		return Config{}, fmt.Errorf("failed to load environment: %w", err)
	}

	if flags != nil {
		if err := k.Load(posflag.Provider(flags, ".", k), nil); err != nil {
			return Config{}, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}
