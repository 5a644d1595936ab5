// Package log provides category-tagged structured logging for flowdeck.
//
// Nothing is written until Init is called; the CLI points it at the
// configured log file so terminal output stays clean.
package log

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Category tags a log line with the subsystem that produced it.
type Category string

const (
	CatStore    Category = "store"
	CatWorkflow Category = "workflow"
	CatSession  Category = "session"
	CatConfig   Category = "config"
	CatSubflow  Category = "subflow"
	CatCLI      Category = "cli"
	CatTUI      Category = "tui"
	CatWatch    Category = "watch"
)

var (
	mu     sync.RWMutex
	logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	closer io.Closer
)

// ParseLevel maps a config level name to a slog level. Unknown names map to info.
func ParseLevel(name string) slog.Level {
	switch strings.ToLower(name) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Init opens (or creates) the log file at path and routes all log calls to it.
// An empty path keeps logging disabled.
func Init(path, level string) error {
	if path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	SetOutput(f, level)

	mu.Lock()
	closer = f
	mu.Unlock()
	return nil
}

// SetOutput routes log calls to w. Tests use it to capture output.
func SetOutput(w io.Writer, level string) {
	h := slog.NewTextHandler(w, &slog.HandlerOptions{Level: ParseLevel(level)})
	mu.Lock()
	logger = slog.New(h)
	mu.Unlock()
}

// Close releases the log file opened by Init.
func Close() error {
	mu.Lock()
	defer mu.Unlock()
	logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	if closer == nil {
		return nil
	}
	err := closer.Close()
	closer = nil
	return err
}

func current() *slog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return logger
}

func with(cat Category, args []any) []any {
	return append([]any{"cat", string(cat)}, args...)
}

// Debug logs at debug level.
func Debug(cat Category, msg string, args ...any) {
	current().Debug(msg, with(cat, args)...)
}

// Info logs at info level.
func Info(cat Category, msg string, args ...any) {
	current().Info(msg, with(cat, args)...)
}

// Warn logs at warn level.
func Warn(cat Category, msg string, args ...any) {
	current().Warn(msg, with(cat, args)...)
}

// Error logs at error level.
func Error(cat Category, msg string, args ...any) {
	current().Error(msg, with(cat, args)...)
}

// ErrorErr logs at error level with err attached under the "error" key.
func ErrorErr(cat Category, msg string, err error, args ...any) {
	current().Error(msg, with(cat, append([]any{"error", err}, args...))...)
}
