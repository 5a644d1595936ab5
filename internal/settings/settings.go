// Package settings persists the session values flowdeck restores on the next
// start, such as the previously active workflow.
package settings

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/spf13/viper"

	fderrors "github.com/chazuruo/flowdeck/internal/errors"
	"github.com/chazuruo/flowdeck/internal/log"
)

// File keeps settings in a YAML file. Every Set writes the file.
type File struct {
	mu   sync.Mutex
	path string
	v    *viper.Viper
}

// Open loads the settings file at path. A missing file starts empty.
func Open(path string) (*File, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.Is(err, fs.ErrNotExist) && !errors.As(err, &notFound) {
			return nil, &fderrors.ConfigError{Path: path, Err: fmt.Errorf("failed to read settings: %w", err)}
		}
		log.Debug(log.CatSession, "no settings file yet", "path", path)
	}
	return &File{path: path, v: v}, nil
}

// Path returns the settings file location.
func (f *File) Path() string {
	return f.path
}

func (f *File) GetString(key string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.v.GetString(key)
}

func (f *File) GetBool(key string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.v.GetBool(key)
}

// Set stores value under key and writes the file.
func (f *File) Set(key string, value any) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.v.Set(key, value)
	if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
		return &fderrors.ConfigError{Path: f.path, Err: fmt.Errorf("failed to create settings directory: %w", err)}
	}
	if err := f.v.WriteConfigAs(f.path); err != nil {
		return &fderrors.ConfigError{Path: f.path, Err: fmt.Errorf("failed to write settings: %w", err)}
	}
	log.Debug(log.CatSession, "setting saved", "key", key)
	return nil
}

// All returns every stored setting keyed by its dotted name.
func (f *File) All() map[string]any {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]any)
	for _, k := range f.v.AllKeys() {
		out[k] = f.v.Get(k)
	}
	return out
}

// Memory keeps settings for the life of the process.
type Memory struct {
	mu     sync.Mutex
	values map[string]any
}

// NewMemory returns empty in-memory settings.
func NewMemory() *Memory {
	return &Memory{values: make(map[string]any)}
}

func (m *Memory) GetString(key string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, _ := m.values[key].(string)
	return v
}

func (m *Memory) GetBool(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, _ := m.values[key].(bool)
	return v
}

func (m *Memory) Set(key string, value any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

// All returns a copy of the stored settings.
func (m *Memory) All() map[string]any {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]any, len(m.values))
	for k, v := range m.values {
		out[k] = v
	}
	return out
}
