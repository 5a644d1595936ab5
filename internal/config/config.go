// Package config provides configuration management for flowdeck.
//
// The configuration is stored in TOML format and supports validation
// and default values for all fields.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Storage backends.
const (
	BackendFilesystem = "filesystem"
	BackendSQLite     = "sqlite"
	BackendMemory     = "memory"
)

// Config is the top-level configuration struct for flowdeck.
type Config struct {
	Store     StoreConfig     `toml:"store"`
	Session   SessionConfig   `toml:"session"`
	TUI       TUIConfig       `toml:"tui"`
	Log       LogConfig       `toml:"log"`
	Telemetry TelemetryConfig `toml:"telemetry"`
	Watch     WatchConfig     `toml:"watch"`
}

// StoreConfig selects where workflow documents live.
type StoreConfig struct {
	// Backend is the document store implementation.
	// Valid values: "filesystem", "sqlite", "memory".
	Backend string `toml:"backend"`

	// Root is the directory the filesystem backend keeps documents in.
	Root string `toml:"root"`

	// DBPath is the SQLite database file for the sqlite backend.
	DBPath string `toml:"db_path"`

	// WorkflowsDir is the store folder holding workflow documents.
	WorkflowsDir string `toml:"workflows_dir"`

	// MetadataFile is the favorites document inside WorkflowsDir.
	MetadataFile string `toml:"metadata_file"`

	// CacheTTL keeps read documents in memory for this long (e.g. "30s").
	// Empty or "0" disables the cache.
	CacheTTL string `toml:"cache_ttl"`
}

// SessionConfig contains settings restored across runs.
type SessionConfig struct {
	// SettingsPath is the YAML file holding the previous session.
	SettingsPath string `toml:"settings_path"`

	// Restore reopens the previously active workflow on start.
	Restore bool `toml:"restore"`
}

// TUIConfig contains terminal UI settings.
type TUIConfig struct {
	// Enabled controls whether to use the TUI (when false, falls back to CLI).
	Enabled bool `toml:"enabled"`

	// Accessible renders prompts without cursor movement.
	Accessible bool `toml:"accessible"`
}

// LogConfig controls the log file.
type LogConfig struct {
	// Level is one of: debug, info, warn, error.
	Level string `toml:"level"`

	// File is the log destination. Empty disables logging.
	File string `toml:"file"`
}

// TelemetryConfig controls tracing.
type TelemetryConfig struct {
	// Exporter is one of: none, stdout, otlp.
	Exporter string `toml:"exporter"`

	// Endpoint is the OTLP gRPC collector address (host:port).
	Endpoint string `toml:"endpoint"`

	// ServiceName is reported on every span.
	ServiceName string `toml:"service_name"`
}

// WatchConfig controls the catalog refresh on filesystem changes.
type WatchConfig struct {
	// Enabled starts the watcher in the browser.
	Enabled bool `toml:"enabled"`

	// Debounce collapses bursts of events (e.g. "250ms").
	Debounce string `toml:"debounce"`
}

// DefaultConfig returns a Config with all default values set.
func DefaultConfig() *Config {
	dataDir := DataDir()

	return &Config{
		Store: StoreConfig{
			Backend:      BackendFilesystem,
			Root:         filepath.Join(dataDir, "user", "default"),
			DBPath:       filepath.Join(dataDir, "flowdeck.db"),
			WorkflowsDir: "workflows",
			MetadataFile: ".index.json",
			CacheTTL:     "30s",
		},
		Session: SessionConfig{
			SettingsPath: filepath.Join(dataDir, "session.yaml"),
			Restore:      true,
		},
		TUI: TUIConfig{
			Enabled:    true,
			Accessible: false,
		},
		Log: LogConfig{
			Level: "info",
			File:  "",
		},
		Telemetry: TelemetryConfig{
			Exporter:    "none",
			Endpoint:    "",
			ServiceName: "flowdeck",
		},
		Watch: WatchConfig{
			Enabled:  true,
			Debounce: "250ms",
		},
	}
}

// DataDir returns the directory flowdeck keeps its data in.
func DataDir() string {
	if dir := os.Getenv("XDG_DATA_HOME"); dir != "" {
		return filepath.Join(dir, "flowdeck")
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".flowdeck")
	}
	return filepath.Join(homeDir, ".local", "share", "flowdeck")
}

// Validate checks the configuration for valid values.
// Returns a nil error if the config is valid, or an error describing the problem.
func (c *Config) Validate() error {
	// Validate Store section
	validBackends := map[string]bool{
		BackendFilesystem: true,
		BackendSQLite:     true,
		BackendMemory:     true,
	}
	if !validBackends[c.Store.Backend] {
		return fmt.Errorf("store.backend must be one of: filesystem, sqlite, memory; got %q", c.Store.Backend)
	}
	if c.Store.Backend == BackendFilesystem && c.Store.Root == "" {
		return fmt.Errorf("store.root cannot be empty for the filesystem backend")
	}
	if c.Store.Backend == BackendSQLite && c.Store.DBPath == "" {
		return fmt.Errorf("store.db_path cannot be empty for the sqlite backend")
	}
	if c.Store.WorkflowsDir == "" {
		return fmt.Errorf("store.workflows_dir cannot be empty")
	}
	if strings.Contains(c.Store.WorkflowsDir, "..") {
		return fmt.Errorf("store.workflows_dir cannot contain '..': %q", c.Store.WorkflowsDir)
	}
	if filepath.IsAbs(c.Store.WorkflowsDir) || isWindowsAbsPath(c.Store.WorkflowsDir) {
		return fmt.Errorf("store.workflows_dir cannot be an absolute path: %q", c.Store.WorkflowsDir)
	}
	if c.Store.MetadataFile == "" || strings.ContainsAny(c.Store.MetadataFile, `/\`) {
		return fmt.Errorf("store.metadata_file must be a plain file name; got %q", c.Store.MetadataFile)
	}
	if _, err := c.CacheTTL(); err != nil {
		return fmt.Errorf("store.cache_ttl: %w", err)
	}

	// Validate Session section
	if c.Session.SettingsPath == "" {
		return fmt.Errorf("session.settings_path cannot be empty")
	}

	// Validate Log section
	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[c.Log.Level] {
		return fmt.Errorf("log.level must be one of: debug, info, warn, error; got %q", c.Log.Level)
	}

	// Validate Telemetry section
	validExporters := map[string]bool{
		"none":   true,
		"stdout": true,
		"otlp":   true,
	}
	if !validExporters[c.Telemetry.Exporter] {
		return fmt.Errorf("telemetry.exporter must be one of: none, stdout, otlp; got %q", c.Telemetry.Exporter)
	}

	// Validate Watch section
	if _, err := c.WatchDebounce(); err != nil {
		return fmt.Errorf("watch.debounce: %w", err)
	}

	return nil
}

// CacheTTL parses store.cache_ttl. Zero disables the read cache.
func (c *Config) CacheTTL() (time.Duration, error) {
	return parseDuration(c.Store.CacheTTL)
}

// WatchDebounce parses watch.debounce.
func (c *Config) WatchDebounce() (time.Duration, error) {
	return parseDuration(c.Watch.Debounce)
}

func parseDuration(s string) (time.Duration, error) {
	if s == "" || s == "0" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("duration cannot be negative: %q", s)
	}
	return d, nil
}

// isWindowsAbsPath detects Windows-style absolute paths (e.g., "C:\Windows", "D:\path").
func isWindowsAbsPath(path string) bool {
	if len(path) < 3 {
		return false
	}
	// Check for drive letter pattern: X:\ or X:/
	return (path[0] >= 'A' && path[0] <= 'Z' || path[0] >= 'a' && path[0] <= 'z') &&
		path[1] == ':' &&
		(path[2] == '\\' || path[2] == '/')
}
