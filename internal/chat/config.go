/*-------------------------------------------------------------------------
 *
 * pgEdge Postgres Insights - Chat Client Configuration
 *
 * Portions copyright (c) 2025, pgEdge, Inc.
 * This software is released under The PostgreSQL License
 *
 *-------------------------------------------------------------------------
 */

package chat

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every chat client environment variable
const EnvPrefix = "PGEDGE_INSIGHTS_CHAT_"

// DefaultServerURL is where the report server listens by default
const DefaultServerURL = "http://localhost:5000"

// Config holds all configuration for the chat client
type Config struct {
	Server      ServerConfig `yaml:"server" envPrefix:"SERVER_"`
	UI          UIConfig     `yaml:"ui" envPrefix:"UI_"`
	HistoryFile string       `yaml:"history_file" env:"HISTORY_FILE"`
}

// ServerConfig locates the report server
type ServerConfig struct {
	URL     string `yaml:"url" env:"URL"`         // Base URL (default: http://localhost:5000)
	Timeout string `yaml:"timeout" env:"TIMEOUT"` // Per-request timeout (default: 60s)
}

// UIConfig holds display defaults. Saved preferences take precedence.
type UIConfig struct {
	NoColor        bool `yaml:"no_color" env:"NO_COLOR"`
	RenderMarkdown bool `yaml:"render_markdown" env:"RENDER_MARKDOWN"`
	ShowSQL        bool `yaml:"show_sql" env:"SHOW_SQL"`
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			URL:     DefaultServerURL,
			Timeout: "60s",
		},
		UI: UIConfig{
			NoColor:        os.Getenv("NO_COLOR") != "",
			RenderMarkdown: true,
		},
		HistoryFile: filepath.Join(os.Getenv("HOME"), ".pgedge-insights-chat-history"),
	}
}

// DefaultConfigPaths lists where the client looks for a config file when
// none is given, in order
func DefaultConfigPaths() []string {
	return []string{
		".pgedge-insights-chat.yaml",
		filepath.Join(os.Getenv("HOME"), ".pgedge-insights-chat.yaml"),
		"/etc/pgedge/postgres-insights/chat.yaml",
	}
}

// LoadConfig loads defaults, then the config file, then environment
// variables. An explicit path must exist; default paths are optional.
func LoadConfig(configPath string) (*Config, error) {
	cfg := defaultConfig()

	if configPath != "" {
		if err := loadConfigFile(configPath, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	} else {
		for _, path := range DefaultConfigPaths() {
			if _, err := os.Stat(path); err == nil {
				if err := loadConfigFile(path, cfg); err != nil {
					return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
				}
				break
			}
		}
	}

	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	return cfg, nil
}

// loadConfigFile overlays a YAML file onto cfg
func loadConfigFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// Validate validates the configuration
func (c *Config) Validate() error {
	u, err := url.Parse(c.Server.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid server url: %q (must be http:// or https://)", c.Server.URL)
	}
	if d, err := time.ParseDuration(c.Server.Timeout); err != nil || d <= 0 {
		return fmt.Errorf("invalid server timeout: %q", c.Server.Timeout)
	}
	return nil
}

// TimeoutDuration returns the request timeout, 60s if unparseable
func (c *ServerConfig) TimeoutDuration() time.Duration {
	if d, err := time.ParseDuration(c.Timeout); err == nil && d > 0 {
		return d
	}
	return 60 * time.Second
}
