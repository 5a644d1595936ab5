// Package docstore defines the document store flowdeck persists workflows in,
// along with its in-memory and filesystem implementations.
//
// A store is a flat key/value space. Keys are slash-separated relative paths
// such as "workflows/team/render.json". Failures are reported as
// *errors.StoreError values carrying a status code:
//
//	404  the document does not exist
//	409  the target exists and overwrite was not requested
//	400  the key is malformed
//	500  any other I/O failure
package docstore

import (
	"context"
	"path"
	"strings"
	"time"

	fderrors "github.com/chazuruo/flowdeck/internal/errors"
)

// Store defines the document persistence operations.
type Store interface {
	// List returns the documents under prefix. Entry paths are relative to prefix.
	List(ctx context.Context, prefix string, opts ListOptions) ([]Entry, error)

	// Read returns the document body stored at path.
	Read(ctx context.Context, path string) ([]byte, error)

	// Write stores content at path. Without opts.Overwrite an existing
	// document makes the call fail with a 409 StoreError.
	Write(ctx context.Context, path string, content []byte, opts WriteOptions) error

	// Move renames a document. Overwrite semantics match Write.
	Move(ctx context.Context, oldPath, newPath string, opts WriteOptions) error

	// Delete removes a document.
	Delete(ctx context.Context, path string) error
}

// ListOptions controls List.
type ListOptions struct {
	// Recursive descends into nested folders.
	Recursive bool

	// WithMetadata fills Entry.Size and Entry.Modified.
	WithMetadata bool
}

// WriteOptions controls Write and Move.
type WriteOptions struct {
	// Overwrite replaces an existing document instead of failing with 409.
	Overwrite bool
}

// Entry describes one listed document.
type Entry struct {
	// Path is relative to the listed prefix.
	Path string `json:"path"`

	// Size is the body length in bytes (WithMetadata only).
	Size int64 `json:"size,omitempty"`

	// Modified is the last write time (WithMetadata only).
	Modified time.Time `json:"modified,omitempty"`
}

// CleanKey normalizes a document key and rejects keys that escape the store.
func CleanKey(op, key string) (string, error) {
	key = strings.ReplaceAll(key, `\`, "/")
	if key == "" || strings.HasPrefix(key, "/") {
		return "", fderrors.Invalid(op, key)
	}
	for _, seg := range strings.Split(key, "/") {
		if seg == ".." {
			return "", fderrors.Invalid(op, key)
		}
	}
	cleaned := path.Clean(key)
	if cleaned == "." {
		return "", fderrors.Invalid(op, key)
	}
	return cleaned, nil
}

// CleanPrefix normalizes a list prefix. The empty prefix lists the whole store.
func CleanPrefix(prefix string) (string, error) {
	prefix = strings.Trim(strings.ReplaceAll(prefix, `\`, "/"), "/")
	if prefix == "" {
		return "", nil
	}
	return CleanKey("list", prefix)
}

// RelativePath returns key relative to prefix, and whether key lives under it.
// Non-recursive listings only accept direct children.
func RelativePath(prefix, key string, recursive bool) (string, bool) {
	rel := key
	if prefix != "" {
		if !strings.HasPrefix(key, prefix+"/") {
			return "", false
		}
		rel = strings.TrimPrefix(key, prefix+"/")
	}
	if !recursive && strings.Contains(rel, "/") {
		return "", false
	}
	return rel, true
}

func checkContext(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}
