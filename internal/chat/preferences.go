/*-------------------------------------------------------------------------
 *
 * pgEdge Postgres Insights - Chat Preferences
 *
 * Portions copyright (c) 2025, pgEdge, Inc.
 * This software is released under The PostgreSQL License
 *
 *-------------------------------------------------------------------------
 */

package chat

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Preferences holds display settings that persist across sessions
type Preferences struct {
	RenderMarkdown bool `yaml:"render_markdown"`
	ShowSQL        bool `yaml:"show_sql"`
	ShowData       bool `yaml:"show_data"`
}

// GetPreferencesPath returns the path to the user preferences file
func GetPreferencesPath() string {
	return filepath.Join(os.Getenv("HOME"), ".pgedge-insights-chat-prefs")
}

// PreferencesFromConfig returns the preferences used when nothing has
// been saved yet
func PreferencesFromConfig(ui UIConfig) *Preferences {
	return &Preferences{
		RenderMarkdown: ui.RenderMarkdown,
		ShowSQL:        ui.ShowSQL,
	}
}

// LoadPreferences reads preferences from path. A missing file yields
// defaults.
func LoadPreferences(path string, defaults *Preferences) (*Preferences, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		prefs := *defaults
		return &prefs, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read preferences file: %w", err)
	}

	prefs := *defaults
	if err := yaml.Unmarshal(data, &prefs); err != nil {
		return nil, fmt.Errorf("failed to parse preferences file: %w", err)
	}
	return &prefs, nil
}

// SavePreferences writes preferences to path atomically
func SavePreferences(path string, prefs *Preferences) error {
	data, err := yaml.Marshal(prefs)
	if err != nil {
		return fmt.Errorf("failed to marshal preferences: %w", err)
	}

	tempPath := path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write preferences file: %w", err)
	}
	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to save preferences file: %w", err)
	}
	return nil
}
