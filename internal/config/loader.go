// Package config provides configuration management for flowdeck.
//
// This file contains config loading functionality including:
// - XDG config path detection
// - TOML file parsing
// - Environment variable overrides
// - Validation
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	fderrors "github.com/chazuruo/flowdeck/internal/errors"
)

// DefaultConfigPath returns ~/.config/flowdeck/config.toml, honoring
// XDG_CONFIG_HOME.
func DefaultConfigPath() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "flowdeck", "config.toml")
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(homeDir, ".config", "flowdeck", "config.toml")
}

// DetectConfigPath returns the default config path if the file exists, or an
// empty string (caller should use defaults).
func DetectConfigPath() string {
	configPath := DefaultConfigPath()
	if configPath == "" {
		return ""
	}
	if _, err := os.Stat(configPath); err == nil {
		return configPath
	}
	return ""
}

// Load loads a config from the specified path.
// If the file doesn't exist, returns an error.
// After loading, applies environment variable overrides and validates.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &fderrors.ConfigError{Path: path, Err: fmt.Errorf("config file not found: %w", fderrors.ErrNotFound)}
		}
		return nil, &fderrors.ConfigError{Path: path, Err: fmt.Errorf("failed to read config file: %w", err)}
	}

	// Start with defaults
	cfg := DefaultConfig()

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, &fderrors.ConfigError{Path: path, Err: fmt.Errorf("failed to parse config file: %w", err)}
	}

	applyEnvOverrides(cfg)
	expandPaths(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, &fderrors.ConfigError{Path: path, Err: fmt.Errorf("config validation failed: %w: %w", fderrors.ErrInvalid, err)}
	}

	return cfg, nil
}

// LoadWithDefaults loads the config file from the XDG path when present.
// If no config file is found, returns a config with all default values.
// If a config file is found but fails to load/validate, returns an error.
func LoadWithDefaults() (*Config, error) {
	configPath := DetectConfigPath()
	if configPath == "" {
		cfg := DefaultConfig()
		applyEnvOverrides(cfg)
		expandPaths(cfg)
		if err := cfg.Validate(); err != nil {
			return nil, &fderrors.ConfigError{Err: fmt.Errorf("config validation failed: %w: %w", fderrors.ErrInvalid, err)}
		}
		return cfg, nil
	}

	return Load(configPath)
}

// LoadFrom loads path when given, otherwise falls back to LoadWithDefaults.
func LoadFrom(path string) (*Config, error) {
	if path != "" {
		return Load(path)
	}
	return LoadWithDefaults()
}

// applyEnvOverrides applies environment variable overrides to the config.
// Environment variables follow the pattern: FLOWDECK_<SECTION>_<FIELD>
//
// Examples:
// - FLOWDECK_STORE_BACKEND overrides [store].backend
// - FLOWDECK_LOG_LEVEL overrides [log].level
//
// Boolean fields: use "true"/"false" strings
func applyEnvOverrides(c *Config) {
	applyString := func(key string, target *string) {
		if val, ok := os.LookupEnv(key); ok && val != "" {
			*target = val
		}
	}

	applyBool := func(key string, target *bool) {
		if val, ok := os.LookupEnv(key); ok && val != "" {
			switch strings.ToLower(val) {
			case "true", "1", "yes", "on":
				*target = true
			case "false", "0", "no", "off":
				*target = false
			}
		}
	}

	// Store section
	applyString("FLOWDECK_STORE_BACKEND", &c.Store.Backend)
	applyString("FLOWDECK_STORE_ROOT", &c.Store.Root)
	applyString("FLOWDECK_STORE_DB_PATH", &c.Store.DBPath)
	applyString("FLOWDECK_STORE_WORKFLOWS_DIR", &c.Store.WorkflowsDir)
	applyString("FLOWDECK_STORE_METADATA_FILE", &c.Store.MetadataFile)
	applyString("FLOWDECK_STORE_CACHE_TTL", &c.Store.CacheTTL)

	// Session section
	applyString("FLOWDECK_SESSION_SETTINGS_PATH", &c.Session.SettingsPath)
	applyBool("FLOWDECK_SESSION_RESTORE", &c.Session.Restore)

	// TUI section
	applyBool("FLOWDECK_TUI_ENABLED", &c.TUI.Enabled)
	applyBool("FLOWDECK_TUI_ACCESSIBLE", &c.TUI.Accessible)

	// Log section
	applyString("FLOWDECK_LOG_LEVEL", &c.Log.Level)
	applyString("FLOWDECK_LOG_FILE", &c.Log.File)

	// Telemetry section
	applyString("FLOWDECK_TELEMETRY_EXPORTER", &c.Telemetry.Exporter)
	applyString("FLOWDECK_TELEMETRY_ENDPOINT", &c.Telemetry.Endpoint)
	applyString("FLOWDECK_TELEMETRY_SERVICE_NAME", &c.Telemetry.ServiceName)

	// Watch section
	applyBool("FLOWDECK_WATCH_ENABLED", &c.Watch.Enabled)
	applyString("FLOWDECK_WATCH_DEBOUNCE", &c.Watch.Debounce)
}

// expandPaths expands ~ to the home directory in filesystem paths.
func expandPaths(c *Config) {
	for _, p := range []*string{&c.Store.Root, &c.Store.DBPath, &c.Session.SettingsPath, &c.Log.File} {
		*p = expandHome(*p)
	}
}

func expandHome(p string) string {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(homeDir, strings.TrimPrefix(strings.TrimPrefix(p, "~"), "/"))
}
