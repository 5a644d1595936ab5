package docstore

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	fderrors "github.com/chazuruo/flowdeck/internal/errors"
	"github.com/chazuruo/flowdeck/internal/log"
)

// FileSystemStore implements the Store interface on a directory tree.
// Document keys map to files below root.
type FileSystemStore struct {
	root string
}

// NewFileSystemStore creates a FileSystemStore rooted at root, creating the
// directory if needed.
func NewFileSystemStore(root string) (*FileSystemStore, error) {
	if root == "" {
		return nil, fmt.Errorf("root cannot be empty")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create store root: %w", err)
	}
	return &FileSystemStore{root: root}, nil
}

// Root returns the directory the store writes to.
func (s *FileSystemStore) Root() string {
	return s.root
}

func (s *FileSystemStore) file(key string) string {
	return filepath.Join(s.root, filepath.FromSlash(key))
}

// List walks the directory under prefix.
func (s *FileSystemStore) List(ctx context.Context, prefix string, opts ListOptions) ([]Entry, error) {
	if err := checkContext(ctx); err != nil {
		return nil, err
	}
	prefix, err := CleanPrefix(prefix)
	if err != nil {
		return nil, err
	}

	base := s.root
	if prefix != "" {
		base = s.file(prefix)
	}

	var entries []Entry
	err = filepath.WalkDir(base, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if p != base && !opts.Recursive {
				return filepath.SkipDir
			}
			return nil
		}
		if isTempFile(d.Name()) {
			return nil
		}

		rel, err := filepath.Rel(base, p)
		if err != nil {
			return err
		}
		e := Entry{Path: filepath.ToSlash(rel)}
		if opts.WithMetadata {
			info, err := d.Info()
			if err != nil {
				return err
			}
			e.Size = info.Size()
			e.Modified = info.ModTime()
		}
		entries = append(entries, e)
		return nil
	})
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fderrors.NotFound("list", prefix)
		}
		return nil, fderrors.IOFailure("list", prefix, err)
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Path < entries[j].Path })
	return entries, nil
}

// Read returns the file contents at path.
func (s *FileSystemStore) Read(ctx context.Context, path string) ([]byte, error) {
	if err := checkContext(ctx); err != nil {
		return nil, err
	}
	key, err := CleanKey("read", path)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.file(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fderrors.NotFound("read", key)
		}
		return nil, fderrors.IOFailure("read", key, err)
	}
	return data, nil
}

// Write stores content at path through a temp file and rename, so readers
// never see a partially written document.
func (s *FileSystemStore) Write(ctx context.Context, path string, content []byte, opts WriteOptions) error {
	if err := checkContext(ctx); err != nil {
		return err
	}
	key, err := CleanKey("write", path)
	if err != nil {
		return err
	}
	target := s.file(key)

	// Check if file exists and Overwrite is not set
	if _, err := os.Stat(target); err == nil && !opts.Overwrite {
		return fderrors.Conflict("write", key)
	}

	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fderrors.IOFailure("write", key, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(target), "."+filepath.Base(target)+".*.tmp")
	if err != nil {
		return fderrors.IOFailure("write", key, err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(content); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fderrors.IOFailure("write", key, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fderrors.IOFailure("write", key, err)
	}
	if err := os.Rename(tmpName, target); err != nil {
		_ = os.Remove(tmpName)
		return fderrors.IOFailure("write", key, err)
	}

	log.Debug(log.CatStore, "wrote document", "path", key, "bytes", len(content))
	return nil
}

// Move renames the file at oldPath to newPath.
func (s *FileSystemStore) Move(ctx context.Context, oldPath, newPath string, opts WriteOptions) error {
	if err := checkContext(ctx); err != nil {
		return err
	}
	from, err := CleanKey("move", oldPath)
	if err != nil {
		return err
	}
	to, err := CleanKey("move", newPath)
	if err != nil {
		return err
	}

	if _, err := os.Stat(s.file(from)); err != nil {
		if os.IsNotExist(err) {
			return fderrors.NotFound("move", from)
		}
		return fderrors.IOFailure("move", from, err)
	}
	if from == to {
		return nil
	}
	if _, err := os.Stat(s.file(to)); err == nil && !opts.Overwrite {
		return fderrors.Conflict("move", to)
	}

	if err := os.MkdirAll(filepath.Dir(s.file(to)), 0o755); err != nil {
		return fderrors.IOFailure("move", to, err)
	}
	if err := os.Rename(s.file(from), s.file(to)); err != nil {
		return fderrors.IOFailure("move", from, err)
	}

	log.Debug(log.CatStore, "moved document", "from", from, "to", to)
	return nil
}

// Delete removes the file at path.
func (s *FileSystemStore) Delete(ctx context.Context, path string) error {
	if err := checkContext(ctx); err != nil {
		return err
	}
	key, err := CleanKey("delete", path)
	if err != nil {
		return err
	}

	if err := os.Remove(s.file(key)); err != nil {
		if os.IsNotExist(err) {
			return fderrors.NotFound("delete", key)
		}
		return fderrors.IOFailure("delete", key, err)
	}

	log.Debug(log.CatStore, "deleted document", "path", key)
	return nil
}

// isTempFile reports whether name is an in-flight write from Write.
func isTempFile(name string) bool {
	return strings.HasPrefix(name, ".") && strings.HasSuffix(name, ".tmp")
}

var _ Store = (*FileSystemStore)(nil)
