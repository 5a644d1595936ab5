// Package watch refreshes the workflow catalog when documents change on disk.
package watch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/chazuruo/flowdeck/internal/log"
)

// DefaultDebounce collapses bursts of filesystem events into one refresh.
const DefaultDebounce = 250 * time.Millisecond

// Watcher calls OnChange after files under a directory tree change.
type Watcher struct {
	root     string
	debounce time.Duration
	onChange func(ctx context.Context) error
}

// New creates a watcher for root. onChange runs on the goroutine that called Run.
func New(root string, debounce time.Duration, onChange func(ctx context.Context) error) *Watcher {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Watcher{root: root, debounce: debounce, onChange: onChange}
}

// Run watches until ctx is done. Errors returned by OnChange are logged and
// do not stop the watcher.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer fw.Close()

	if err := os.MkdirAll(w.root, 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", w.root, err)
	}
	if err := addTree(fw, w.root); err != nil {
		return err
	}
	log.Info(log.CatWatch, "watching workflows", "root", w.root)

	timer := time.NewTimer(w.debounce)
	timer.Stop()

	for {
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil

		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if ev.Has(fsnotify.Create) {
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
					if err := addTree(fw, ev.Name); err != nil {
						log.Warn(log.CatWatch, "cannot watch new folder", "path", ev.Name, "error", err)
					}
				}
			}
			if ev.Has(fsnotify.Chmod) && !ev.Has(fsnotify.Write) {
				continue
			}
			log.Debug(log.CatWatch, "filesystem event", "op", ev.Op.String(), "path", ev.Name)
			timer.Reset(w.debounce)

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			log.ErrorErr(log.CatWatch, "watcher error", err)

		case <-timer.C:
			if err := w.onChange(ctx); err != nil {
				log.ErrorErr(log.CatWatch, "refresh failed", err)
			}
		}
	}
}

func addTree(fw *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if err := fw.Add(p); err != nil {
			return fmt.Errorf("failed to watch %s: %w", p, err)
		}
		return nil
	})
}
