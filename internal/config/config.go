// Package config loads CLI settings from defaults, an optional config file,
// AUTOINIT_* environment variables and command-line flags, in increasing order
// of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/agentic-research/autoinit/api"
)

const (
	// ConfigFileName is the config file name without extension. Viper accepts
	// any extension it can decode (.toml, .yaml, .json).
	ConfigFileName = ".autoinit"
	// EnvPrefix prefixes environment overrides, e.g. AUTOINIT_LOG_LEVEL.
	EnvPrefix = "AUTOINIT"
)

// Config holds the settings shared by every command.
type Config struct {
	LogLevel  string `mapstructure:"log-level"`
	LogFormat string `mapstructure:"log-format"`
	MetaFile  string `mapstructure:"meta-file"`
	// Data enables the .json, .toml and .hcl record loaders.
	Data bool `mapstructure:"data"`
	// Context seeds the shared store handed to initializers.
	Context map[string]string `mapstructure:"context"`

	// File is the config file that was read, if any.
	File string `mapstructure:"-"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		LogLevel:  "info",
		LogFormat: "text",
		MetaFile:  api.MetaFileName,
	}
}

// flagKeys are the flags that may override file and environment values.
var flagKeys = []string{"log-level", "log-format", "meta-file", "data"}

// Load resolves the configuration. When path is empty, .autoinit.* is looked
// up in the working directory, then the home directory, and a missing file is
// not an error. flags may be nil.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	defaults := Default()
	v.SetDefault("log-level", defaults.LogLevel)
	v.SetDefault("log-format", defaults.LogFormat)
	v.SetDefault("meta-file", defaults.MetaFile)
	v.SetDefault("data", defaults.Data)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(ConfigFileName)
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	if flags != nil {
		for _, key := range flagKeys {
			if f := flags.Lookup(key); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("bind flag %s: %w", key, err)
				}
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.File = v.ConfigFileUsed()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the CLI cannot honor.
func (c *Config) Validate() error {
	switch c.LogFormat {
	case "text", "json", "logfmt":
	default:
		return fmt.Errorf("invalid log-format %q: want text, json or logfmt", c.LogFormat)
	}
	if c.MetaFile == "" {
		return errors.New("meta-file must not be empty")
	}
	return nil
}

// Store returns a fresh shared store seeded with the configured context values
// followed by overrides.
func (c *Config) Store(overrides map[string]string) *api.Store {
	s := api.NewStore()
	for k, v := range c.Context {
		s.Set(k, v)
	}
	for k, v := range overrides {
		s.Set(k, v)
	}
	return s
}
