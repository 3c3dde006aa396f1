/*-------------------------------------------------------------------------
 *
 * pgEdge Postgres Insights
 *
 * Portions copyright (c) 2025, pgEdge, Inc.
 * This software is released under The PostgreSQL License
 *
 *-------------------------------------------------------------------------
 */

package config

import (
	"fmt"
	"sync"

	"pgedge-postgres-insights/internal/logging"
)

// ReloadableConfig wraps a Config with thread-safe access and reload capability
type ReloadableConfig struct {
	mu       sync.RWMutex
	config   *Config
	path     string
	cliFlags CLIFlags
	onReload []func(*Config)
}

// NewReloadableConfig creates a new reloadable configuration
func NewReloadableConfig(config *Config, path string, cliFlags CLIFlags) *ReloadableConfig {
	return &ReloadableConfig{
		config:   config,
		path:     path,
		cliFlags: cliFlags,
	}
}

// Get returns the current configuration (read-only access)
func (rc *ReloadableConfig) Get() *Config {
	rc.mu.RLock()
	defer rc.mu.RUnlock()
	return rc.config
}

// Reload reloads the configuration from the file.
// On failure the previous configuration stays in effect.
func (rc *ReloadableConfig) Reload() error {
	rc.mu.Lock()

	if rc.path == "" {
		rc.mu.Unlock()
		return fmt.Errorf("no configuration file path set")
	}

	// An explicit path must load; a vanished file should not silently
	// revert everything to defaults.
	flags := rc.cliFlags
	flags.ConfigFileSet = true

	newConfig, err := LoadConfig(rc.path, flags)
	if err != nil {
		rc.mu.Unlock()
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	rc.logRestartRequiredSettings(newConfig)
	rc.config = newConfig
	callbacks := make([]func(*Config), len(rc.onReload))
	copy(callbacks, rc.onReload)
	rc.mu.Unlock()

	for _, callback := range callbacks {
		callback(newConfig)
	}

	logging.Info("configuration reloaded", "path", rc.path)
	return nil
}

// logRestartRequiredSettings logs settings that changed but require a restart
func (rc *ReloadableConfig) logRestartRequiredSettings(newConfig *Config) {
	old := rc.config
	if old == nil {
		return
	}

	changed := func(field string) {
		logging.Warn("setting changed but requires restart", "setting", field)
	}

	if old.HTTP.Address != newConfig.HTTP.Address {
		changed("http.address")
	}
	if old.HTTP.TLS != newConfig.HTTP.TLS {
		changed("http.tls")
	}
	if old.Database.BuildConnectionString() != newConfig.Database.BuildConnectionString() {
		changed("database connection")
	}
	if old.Database.PoolMaxConns != newConfig.Database.PoolMaxConns ||
		old.Database.PoolMinConns != newConfig.Database.PoolMinConns {
		changed("database pool size")
	}
}

// OnReload registers a callback to be called when configuration is reloaded.
// The callback receives the new configuration.
func (rc *ReloadableConfig) OnReload(fn func(*Config)) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	rc.onReload = append(rc.onReload, fn)
}

// GetPath returns the configuration file path
func (rc *ReloadableConfig) GetPath() string {
	rc.mu.RLock()
	defer rc.mu.RUnlock()
	return rc.path
}
