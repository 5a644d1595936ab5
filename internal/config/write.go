package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	fderrors "github.com/chazuruo/flowdeck/internal/errors"
)

// Write saves cfg as TOML at path. The file is replaced atomically and is
// readable only by the owner.
func Write(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return &fderrors.ConfigError{Path: path, Err: fmt.Errorf("create config directory: %w", err)}
	}

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return &fderrors.ConfigError{Path: path, Err: fmt.Errorf("encode: %w", err)}
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".config-*.toml")
	if err != nil {
		return &fderrors.ConfigError{Path: path, Err: err}
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		return &fderrors.ConfigError{Path: path, Err: err}
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return &fderrors.ConfigError{Path: path, Err: err}
	}
	if err := tmp.Close(); err != nil {
		return &fderrors.ConfigError{Path: path, Err: err}
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return &fderrors.ConfigError{Path: path, Err: err}
	}
	return nil
}
