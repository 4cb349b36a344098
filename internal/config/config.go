// Package config loads dashboard configuration from a YAML file and
// RELAYDIAL_ environment variables, with env taking precedence.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Cache    CacheConfig    `koanf:"cache"`
	Platform PlatformConfig `koanf:"platform"`
	Session  SessionConfig  `koanf:"session"`
}

type ServerConfig struct {
	Port int `koanf:"port"`
}

type CacheConfig struct {
	Path string        `koanf:"path"`
	TTL  time.Duration `koanf:"ttl"`
}

type PlatformConfig struct {
	APIKey     string `koanf:"api_key"`
	BaseURL    string `koanf:"base_url"`
	FromNumber string `koanf:"from_number"`
}

type SessionConfig struct {
	LiveEndpoint string `koanf:"live_endpoint"`
}

// Load reads the given YAML file (missing file is fine) and overlays
// RELAYDIAL_ environment variables. RELAYDIAL_PLATFORM__API_KEY maps to
// platform.api_key.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("load config file %s: %w", path, err)
			}
		}
	}

	if err := k.Load(env.Provider("RELAYDIAL_", ".", func(s string) string {
		return strings.Replace(strings.ToLower(strings.TrimPrefix(s, "RELAYDIAL_")), "__", ".", -1)
	}), nil); err != nil {
		return nil, fmt.Errorf("load env config: %w", err)
	}

	// Defaults
	if !k.Exists("server.port") {
		k.Set("server.port", 8080)
	}
	if !k.Exists("cache.path") {
		k.Set("cache.path", "./data/relaydial.db")
	}
	if !k.Exists("cache.ttl") {
		k.Set("cache.ttl", "5m")
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if cfg.Cache.TTL <= 0 {
		cfg.Cache.TTL = 5 * time.Minute
	}
	return &cfg, nil
}

// Validate checks the fields the dashboard cannot run without.
func (c *Config) Validate() error {
	if c.Platform.APIKey == "" {
		return fmt.Errorf("platform.api_key is required (set RELAYDIAL_PLATFORM__API_KEY)")
	}
	return nil
}
