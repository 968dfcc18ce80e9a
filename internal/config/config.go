// Package config handles global sceneql configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// Config represents the global sceneql configuration.
type Config struct {
	// DefaultScene is the YAML snapshot queried when no --scene or --db is given.
	DefaultScene string `toml:"default_scene"`

	// DefaultDB is the SQLite scene database used when no --scene or --db is given.
	// It takes precedence over DefaultScene when both are set.
	DefaultDB string `toml:"default_db"`

	// UI controls optional CLI theming preferences.
	UI UIConfig `toml:"ui"`

	// Queries maps saved-query names to query text.
	Queries map[string]SavedQuery `toml:"queries"`
}

// UIConfig represents optional CLI theming preferences.
type UIConfig struct {
	// Accent is an optional accent color for CLI output and markdown rendering.
	// Supported values are ANSI color codes ("0" to "255") or hex colors ("#RRGGBB").
	Accent string `toml:"accent"`

	// CodeTheme sets the Glamour/Chroma theme used for rendered markdown code blocks.
	CodeTheme string `toml:"code_theme"`
}

// Load loads the configuration from the default location.
// Returns a default config if the file doesn't exist.
func Load() (*Config, error) {
	configPath := DefaultPath()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return &Config{}, nil
	}

	return LoadFrom(configPath)
}

// LoadFrom loads the configuration from a specific path.
func LoadFrom(path string) (*Config, error) {
	var config Config
	if _, err := toml.DecodeFile(path, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return &config, nil
}

// ResolveConfigPath resolves the effective config path from an optional override.
func ResolveConfigPath(explicitConfigPath string) string {
	if strings.TrimSpace(explicitConfigPath) != "" {
		return explicitConfigPath
	}
	return DefaultPath()
}

// LoadResolved loads the config at the resolved path. A missing file yields an
// empty config.
func LoadResolved(explicitConfigPath string) (*Config, string, error) {
	path := ResolveConfigPath(explicitConfigPath)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return &Config{}, path, nil
	}
	cfg, err := LoadFrom(path)
	return cfg, path, err
}

// DefaultPath returns the default config file path.
// Checks ~/.config/sceneql/config.toml first (XDG style),
// then falls back to OS-specific location.
func DefaultPath() string {
	if home, err := os.UserHomeDir(); err == nil {
		xdgPath := filepath.Join(home, ".config", "sceneql", "config.toml")
		if _, err := os.Stat(xdgPath); err == nil {
			return xdgPath
		}
	}

	if configDir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(configDir, "sceneql", "config.toml")
	}

	return filepath.Join(".", "config.toml")
}

// CreateDefault creates a commented default config file at path if it
// doesn't exist. Returns true when a new file was written.
func CreateDefault(path string) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		return false, nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return false, fmt.Errorf("failed to create config directory: %w", err)
	}

	defaultConfig := `# sceneql configuration

# Scene queried when neither --scene nor --db is given.
# default_scene = "/path/to/scene.yaml"
# default_db = "/path/to/scene.db"

# Optional UI accent color for headers in terminal output.
# Supports ANSI color codes (0-255) or hex (#RRGGBB).
# [ui]
# accent = "39"
# code_theme = "monokai"

# Saved queries, run with: sceneql query <name>
# [queries.hidden-meshes]
# query = "type is mesh and attr:visibility is false"
# description = "Meshes switched off in the viewport"
`

	if err := os.WriteFile(path, []byte(defaultConfig), 0644); err != nil {
		return false, fmt.Errorf("failed to write config file: %w", err)
	}
	return true, nil
}
