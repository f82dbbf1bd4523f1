// Package config loads server configuration in three layers:
// defaults, then an optional YAML file, then environment variables,
// each overriding the one before.
package config

import (
	"fmt"
	"os"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/mordian/w40k-companion/internal/logging"
)

// Config holds every tunable of the API server.
type Config struct {
	Port string `yaml:"port" env:"PORT"`

	// DataDir holds the pipe-delimited datasheet exports.
	DataDir string `yaml:"data_dir" env:"DATA_DIR"`
	// HomebrewFile is an optional YAML library of custom profiles
	// served alongside the exports.
	HomebrewFile string `yaml:"homebrew_file" env:"HOMEBREW_FILE"`

	SessionDir string `yaml:"session_dir" env:"SESSION_LOG_DIR"`
	RosterDir  string `yaml:"roster_dir" env:"ROSTER_DIR"`

	Log logging.Config `yaml:"log" envPrefix:"LOG_"`
}

// Default returns the configuration used when nothing else is set.
func Default() Config {
	return Config{
		Port:       "8080",
		DataDir:    "src",
		SessionDir: "sessions",
		RosterDir:  "rosters",
		Log: logging.Config{
			Level:      "info",
			MaxSizeMB:  50,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
	}
}

// Load builds the effective config. An empty path skips the file
// layer; a path given explicitly must exist.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse env: %w", err)
	}
	// older deployments exported API_PORT instead of PORT
	if os.Getenv("PORT") == "" {
		if v := os.Getenv("API_PORT"); v != "" {
			cfg.Port = v
		}
	}
	return cfg, nil
}

// Addr is the listen address for the HTTP server.
func (c Config) Addr() string {
	return ":" + c.Port
}
