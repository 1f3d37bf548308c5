package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config represents the top-level configuration for Vitalog.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Database  DatabaseConfig  `koanf:"database"`
	Reference ReferenceConfig `koanf:"reference"`
	OCR       OCRConfig       `koanf:"ocr"`
	Notify    NotifyConfig    `koanf:"notify"`
}

// ServerConfig holds the HTTP server configuration.
type ServerConfig struct {
	Port          int    `koanf:"port"`
	Host          string `koanf:"host"`
	MaxBodySizeMB int    `koanf:"max_body_size_mb"`
	Mode          string `koanf:"mode"` // "debug" or "release"
}

// DatabaseConfig holds the database connection settings.
type DatabaseConfig struct {
	DSN          string `koanf:"dsn"`
	MaxOpenConns int    `koanf:"max_open_conns"`
	MaxIdleConns int    `koanf:"max_idle_conns"`
	AutoMigrate  bool   `koanf:"auto_migrate"`
}

// ReferenceConfig holds settings for the exercise reference catalog.
type ReferenceConfig struct {
	SourceType string `koanf:"source_type"` // "postgres" or "filesystem"
	Path       string `koanf:"path"`        // catalog dir for the filesystem source
	CacheTTL   string `koanf:"cache_ttl"`   // parsed as time.Duration
}

// EffectiveCacheTTL parses the configured TTL, falling back to five minutes
// when the key is empty or malformed.
func (c ReferenceConfig) EffectiveCacheTTL() time.Duration {
	if c.CacheTTL == "" {
		return 5 * time.Minute
	}
	ttl, err := time.ParseDuration(c.CacheTTL)
	if err != nil {
		return 5 * time.Minute
	}
	return ttl
}

// OCRConfig holds settings for the measurement sheet recognition gateway.
// An empty endpoint disables the feature.
type OCRConfig struct {
	Endpoint string `koanf:"endpoint"`
	Deadline string `koanf:"deadline"` // parsed as time.Duration
}

// NotifyConfig holds settings for the measurement event webhook.
// An empty endpoint disables delivery.
type NotifyConfig struct {
	Endpoint string `koanf:"endpoint"`
	Timeout  string `koanf:"timeout"` // parsed as time.Duration
}

// Load loads the configuration from the given file path and environment variables.
func Load(configPath string) (*Config, error) {
	k := koanf.New(".")

	// 1. Defaults
	defaults := map[string]interface{}{
		"server.port":             8080,
		"server.host":             "0.0.0.0",
		"server.max_body_size_mb": 10,
		"server.mode":             "release",
		"database.dsn":            "postgres://localhost:5432/vitalog?sslmode=disable",
		"database.max_open_conns": 25,
		"database.max_idle_conns": 25,
		"database.auto_migrate":   true,
		"reference.source_type":   "postgres",
		"reference.path":          "./config/catalog",
		"reference.cache_ttl":     "5m",
		"ocr.endpoint":            "",
		"ocr.deadline":            "30s",
		"notify.endpoint":         "",
		"notify.timeout":          "5s",
	}
	for key, value := range defaults {
		k.Set(key, value)
	}

	// 2. Load from file
	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	// 3. Load from Environment Variables
	// VITALOG_SERVER__PORT=9090 overrides server.port
	if err := k.Load(env.Provider("VITALOG_", ".", func(s string) string {
		return strings.Replace(strings.ToLower(
			strings.TrimPrefix(s, "VITALOG_")), "__", ".", -1)
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}
