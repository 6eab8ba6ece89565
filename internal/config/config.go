// Package config provides configuration for the playlist browser service.
package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Config holds the application configuration.
type Config struct {
	// Playlist source, optional. When empty the catalog is populated only
	// through uploads.
	M3UURL string

	// Server
	BindAddr string
	Port     int
	LogLevel string

	// Data refresh
	RefreshInterval time.Duration

	// Logo cache
	CacheDir           string
	LogoCacheMaxBytes  int64
	LogoCacheMaxItems  int
	LogoCacheTTL       time.Duration
	LogoSweepInterval  time.Duration
	PreloadConcurrency int
}

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		BindAddr:           "0.0.0.0",
		Port:               8080,
		LogLevel:           "info",
		RefreshInterval:    30 * time.Minute,
		CacheDir:           "./cache",
		LogoCacheMaxBytes:  50 * 1024 * 1024,
		LogoCacheMaxItems:  1000,
		LogoCacheTTL:       7 * 24 * time.Hour,
		LogoSweepInterval:  time.Hour,
		PreloadConcurrency: 5,
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.M3UURL != "" {
		parsed, err := url.Parse(c.M3UURL)
		if err != nil {
			return fmt.Errorf("invalid M3U URL: %w", err)
		}

		if parsed.Scheme != "http" && parsed.Scheme != "https" {
			return fmt.Errorf("M3U URL must be http or https, got %q", c.M3UURL)
		}
	}

	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", c.Port)
	}

	if strings.TrimSpace(c.CacheDir) == "" {
		return fmt.Errorf("cache directory must not be empty")
	}

	if c.LogoCacheMaxBytes < 1 {
		return fmt.Errorf("logo cache size must be at least 1 byte, got %d", c.LogoCacheMaxBytes)
	}

	if c.LogoCacheMaxItems < 1 {
		return fmt.Errorf("logo cache capacity must be at least 1 item, got %d", c.LogoCacheMaxItems)
	}

	if c.RefreshInterval < time.Minute {
		return fmt.Errorf("refresh interval must be at least 1 minute, got %s", c.RefreshInterval)
	}

	return nil
}

// ListenAddr returns the full listen address.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.BindAddr, c.Port)
}
