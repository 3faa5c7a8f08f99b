package conf

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v2"

	"domainmap/internal/blobstorage"
	"domainmap/internal/route"
)

// Source types for the domain map
const (
	SourceInline = "inline" // the domainmap section of this file
	SourceFile   = "file"   // a separate YAML file
	SourceSQLite = "sqlite"
	SourceS3     = "s3"
)

// Config holds the service configuration
type Config struct {
	Listen    string            `yaml:"listen"`
	AuthHost  string            `yaml:"auth_host"`       // host value returned by a successful authenticate hook
	Plugins   []string          `yaml:"plugins"`         // plugins the webmail host enables globally
	Messages  map[string]string `yaml:"messages"`        // login error texts by key (nodomain, nohost, loginfailed)
	Session   SessionConfig     `yaml:"session"`
	Source    SourceConfig      `yaml:"source"`
	Logging   LoggingConfig     `yaml:"logging"`
	DomainMap route.DomainMap   `yaml:"domainmap"`
}

// SessionConfig holds session token settings
type SessionConfig struct {
	Secret string `yaml:"secret"`
	TTL    int    `yaml:"ttl"` // Token lifetime in seconds
}

// SourceConfig selects where the domain map is loaded from
type SourceConfig struct {
	Type        string             `yaml:"type"`
	Path        string             `yaml:"path"` // YAML file or SQLite database
	BlobStorage blobstorage.Config `yaml:"blob_storage"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`  // log level: debug, info, warn, error
	Format string `yaml:"format"` // log format: text, json
}

// ConfigPaths are searched in order when no path is given.
var ConfigPaths = []string{
	"/etc/domainmap/domainmap.yaml",
	"./config/domainmap.yaml",
	"./domainmap.yaml",
}

// DefaultConfig returns a default configuration
func DefaultConfig() *Config {
	return &Config{
		Listen:   "127.0.0.1:8025",
		AuthHost: "localhost",
		Plugins:  []string{},
		Messages: DefaultMessages(),
		Session: SessionConfig{
			TTL: 86400, // 1 day
		},
		Source: SourceConfig{
			Type: SourceInline,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		DomainMap: route.DomainMap{},
	}
}

// DefaultMessages returns the English login error texts.
func DefaultMessages() map[string]string {
	return map[string]string{
		route.KeyNoDomain: "Please enter your full email address (user@domain).",
		route.KeyNoHost:   "No mail server is configured for this domain.",
		route.KeyFailed:   "Login failed. Please try again.",
	}
}

// FindConfig returns path if set, otherwise the first of ConfigPaths that exists
func FindConfig(path string) (string, error) {
	if path != "" {
		return path, nil
	}
	for _, p := range ConfigPaths {
		if _, err := os.Stat(filepath.Clean(p)); err == nil {
			return p, nil
		}
	}
	return "", fmt.Errorf("no configuration file found in %v", ConfigPaths)
}

// LoadConfig loads configuration from a YAML file. The result is not
// validated: callers apply environment overrides first and then call Validate.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Keep default texts for keys the file does not override.
	if cfg.Messages == nil {
		cfg.Messages = map[string]string{}
	}
	for key, text := range DefaultMessages() {
		if _, ok := cfg.Messages[key]; !ok {
			cfg.Messages[key] = text
		}
	}

	return cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Session.TTL <= 0 {
		return fmt.Errorf("session ttl must be positive")
	}

	switch c.Source.Type {
	case SourceInline:
	case SourceFile, SourceSQLite:
		if c.Source.Path == "" {
			return fmt.Errorf("source path cannot be empty for %s source", c.Source.Type)
		}
	case SourceS3:
		if err := c.Source.BlobStorage.Validate(); err != nil {
			return fmt.Errorf("invalid s3 source: %w", err)
		}
	default:
		return fmt.Errorf("invalid source type: %s", c.Source.Type)
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}

	validFormats := map[string]bool{"text": true, "json": true}
	if !validFormats[c.Logging.Format] {
		return fmt.Errorf("invalid log format: %s", c.Logging.Format)
	}

	return nil
}

// Gettext returns the configured text for key, or key itself.
func (c *Config) Gettext(key string) string {
	if text, ok := c.Messages[key]; ok {
		return text
	}
	return key
}
