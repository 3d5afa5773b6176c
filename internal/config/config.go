// Package config loads CLI configuration from an optional yaml file with
// environment-variable overrides.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds the server endpoints the CLI talks to.
type Config struct {
	API struct {
		BaseURL string `yaml:"base_url"`
	} `yaml:"api"`
	Socket struct {
		URL string `yaml:"url"`
	} `yaml:"socket"`
}

// Load reads path (skipped when empty or missing), then applies
// BLITZTIME_API_URL and BLITZTIME_SOCKET_URL overrides.
func Load(path string) (Config, error) {
	cfg := Config{}
	cfg.API.BaseURL = "https://blitztime.artemisdev.xyz/api"
	cfg.Socket.URL = "wss://blitztime.artemisdev.xyz/socket"

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
			// Defaults plus env are fine.
		case err != nil:
			return Config{}, fmt.Errorf("config: reading %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return Config{}, fmt.Errorf("config: parsing %s: %w", path, err)
			}
		}
	}

	if v := os.Getenv("BLITZTIME_API_URL"); v != "" {
		cfg.API.BaseURL = v
	}
	if v := os.Getenv("BLITZTIME_SOCKET_URL"); v != "" {
		cfg.Socket.URL = v
	}
	return cfg, nil
}
