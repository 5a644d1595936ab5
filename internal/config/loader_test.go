package config

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	fderrors "github.com/chazuruo/flowdeck/internal/errors"
)

// TestDetectConfigPath tests XDG_CONFIG_HOME detection.
func TestDetectConfigPath(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)

	if got := DetectConfigPath(); got != "" {
		t.Errorf("expected no config path, got %q", got)
	}

	want := filepath.Join(dir, "flowdeck", "config.toml")
	if got := DefaultConfigPath(); got != want {
		t.Errorf("DefaultConfigPath() = %q, want %q", got, want)
	}
	if err := Write(want, DefaultConfig()); err != nil {
		t.Fatalf("Write() returned error: %v", err)
	}
	if got := DetectConfigPath(); got != want {
		t.Errorf("DetectConfigPath() = %q, want %q", got, want)
	}
}

// TestLoad_ValidConfig tests loading a valid config file.
func TestLoad_ValidConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.toml")

	configContent := `
[store]
backend = "sqlite"
db_path = "/tmp/flowdeck.db"
workflows_dir = "user/default/workflows"
cache_ttl = "0"

[log]
level = "debug"
file = "/tmp/flowdeck.log"

[watch]
enabled = false
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}

	if cfg.Store.Backend != BackendSQLite {
		t.Errorf("expected store.backend to be 'sqlite', got %q", cfg.Store.Backend)
	}
	if cfg.Store.DBPath != "/tmp/flowdeck.db" {
		t.Errorf("expected store.db_path to be '/tmp/flowdeck.db', got %q", cfg.Store.DBPath)
	}
	if cfg.Store.WorkflowsDir != "user/default/workflows" {
		t.Errorf("expected store.workflows_dir override, got %q", cfg.Store.WorkflowsDir)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("expected log.level to be 'debug', got %q", cfg.Log.Level)
	}
	if cfg.Watch.Enabled {
		t.Errorf("expected watch.enabled to be false")
	}
	// Unset fields keep their defaults.
	if cfg.Store.MetadataFile != ".index.json" {
		t.Errorf("expected default metadata file, got %q", cfg.Store.MetadataFile)
	}
	if cfg.Telemetry.Exporter != "none" {
		t.Errorf("expected default exporter, got %q", cfg.Telemetry.Exporter)
	}
}

// TestLoad_InvalidTOML tests that invalid TOML returns error.
func TestLoad_InvalidTOML(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(configPath, []byte("[store\nbackend = \"sqlite\"\n"), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	_, err := Load(configPath)
	if err == nil {
		t.Fatal("expected error for invalid TOML, got nil")
	}
	if _, ok := fderrors.AsConfigError(err); !ok {
		t.Errorf("expected ConfigError, got %T", err)
	}
	if !strings.Contains(err.Error(), "failed to parse config file") {
		t.Errorf("unexpected error: %v", err)
	}
}

// TestLoad_ValidationFailed tests that invalid values fail to load.
func TestLoad_ValidationFailed(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(configPath, []byte("[store]\nbackend = \"s3\"\n"), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	_, err := Load(configPath)
	if err == nil {
		t.Fatal("expected validation error, got nil")
	}
	if !fderrors.IsInvalid(err) {
		t.Errorf("expected ErrInvalid in chain, got %v", err)
	}
	if !strings.Contains(err.Error(), "store.backend must be one of") {
		t.Errorf("unexpected error: %v", err)
	}
}

// TestLoad_FileNotExist tests that a missing file returns error.
func TestLoad_FileNotExist(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	if err == nil {
		t.Fatal("expected error for missing file, got nil")
	}
	if !fderrors.IsNotFound(err) {
		t.Errorf("expected ErrNotFound in chain, got %v", err)
	}
}

// TestEnvOverrides tests FLOWDECK_* overrides.
func TestEnvOverrides(t *testing.T) {
	t.Setenv("FLOWDECK_STORE_BACKEND", "memory")
	t.Setenv("FLOWDECK_STORE_WORKFLOWS_DIR", "flows")
	t.Setenv("FLOWDECK_LOG_LEVEL", "warn")
	t.Setenv("FLOWDECK_TELEMETRY_EXPORTER", "stdout")
	t.Setenv("FLOWDECK_TUI_ENABLED", "no")
	t.Setenv("FLOWDECK_SESSION_RESTORE", "off")
	t.Setenv("FLOWDECK_WATCH_ENABLED", "maybe")
	t.Setenv("FLOWDECK_WATCH_DEBOUNCE", "")

	cfg := DefaultConfig()
	applyEnvOverrides(cfg)

	if cfg.Store.Backend != "memory" {
		t.Errorf("store.backend = %q", cfg.Store.Backend)
	}
	if cfg.Store.WorkflowsDir != "flows" {
		t.Errorf("store.workflows_dir = %q", cfg.Store.WorkflowsDir)
	}
	if cfg.Log.Level != "warn" {
		t.Errorf("log.level = %q", cfg.Log.Level)
	}
	if cfg.Telemetry.Exporter != "stdout" {
		t.Errorf("telemetry.exporter = %q", cfg.Telemetry.Exporter)
	}
	if cfg.TUI.Enabled {
		t.Errorf("tui.enabled should be false")
	}
	if cfg.Session.Restore {
		t.Errorf("session.restore should be false")
	}
	// Unparseable bools and empty strings leave the default.
	if !cfg.Watch.Enabled {
		t.Errorf("watch.enabled should keep its default")
	}
	if cfg.Watch.Debounce != "250ms" {
		t.Errorf("watch.debounce = %q", cfg.Watch.Debounce)
	}
}

// TestLoad_ExpandsHome tests ~ expansion in paths.
func TestLoad_ExpandsHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	configPath := filepath.Join(t.TempDir(), "config.toml")
	content := "[store]\nroot = \"~/flows\"\n\n[log]\nfile = \"~/flowdeck.log\"\n"
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}
	if want := filepath.Join(home, "flows"); cfg.Store.Root != want {
		t.Errorf("store.root = %q, want %q", cfg.Store.Root, want)
	}
	if want := filepath.Join(home, "flowdeck.log"); cfg.Log.File != want {
		t.Errorf("log.file = %q, want %q", cfg.Log.File, want)
	}
}

// TestLoadWithDefaults_NoFile tests the defaults path.
func TestLoadWithDefaults_NoFile(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cfg, err := LoadWithDefaults()
	if err != nil {
		t.Fatalf("LoadWithDefaults() returned error: %v", err)
	}
	if cfg.Store.Backend != BackendFilesystem {
		t.Errorf("expected default backend, got %q", cfg.Store.Backend)
	}
}

// TestWrite_RoundTrip tests that a written config loads back unchanged.
func TestWrite_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	cfg := DefaultConfig()
	cfg.Store.Backend = BackendSQLite
	cfg.Telemetry.Exporter = "otlp"
	cfg.Telemetry.Endpoint = "localhost:4317"

	if err := Write(path, cfg); err != nil {
		t.Fatalf("Write() returned error: %v", err)
	}
	loaded, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom() returned error: %v", err)
	}
	if *loaded != *cfg {
		t.Errorf("round trip mismatch:\n got  %+v\n want %+v", *loaded, *cfg)
	}
}

// TestWrite_ReplacesFileOwnerOnly tests that Write replaces an existing file
// without leaving temporary files behind.
func TestWrite_ReplacesFileOwnerOnly(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte("stale"), 0o644); err != nil {
		t.Fatalf("failed to seed config: %v", err)
	}

	if err := Write(path, DefaultConfig()); err != nil {
		t.Fatalf("Write() returned error: %v", err)
	}
	if _, err := LoadFrom(path); err != nil {
		t.Fatalf("LoadFrom() returned error: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir() returned error: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("expected only config.toml in %s, got %d entries", dir, len(entries))
	}

	if runtime.GOOS == "windows" {
		return
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat() returned error: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("expected mode 0600, got %o", perm)
	}
}
