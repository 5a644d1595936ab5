package docstore

import (
	"context"
	"sort"
	"sync"
	"time"

	fderrors "github.com/chazuruo/flowdeck/internal/errors"
)

// MemoryStore is an in-memory Store. It backs the "memory" backend and tests.
type MemoryStore struct {
	mu   sync.RWMutex
	docs map[string]memDoc
	now  func() time.Time
}

type memDoc struct {
	content  []byte
	modified time.Time
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{docs: make(map[string]memDoc), now: time.Now}
}

// List returns documents under prefix sorted by path.
func (m *MemoryStore) List(ctx context.Context, prefix string, opts ListOptions) ([]Entry, error) {
	if err := checkContext(ctx); err != nil {
		return nil, err
	}
	prefix, err := CleanPrefix(prefix)
	if err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []Entry
	for key, doc := range m.docs {
		rel, ok := RelativePath(prefix, key, opts.Recursive)
		if !ok {
			continue
		}
		e := Entry{Path: rel}
		if opts.WithMetadata {
			e.Size = int64(len(doc.content))
			e.Modified = doc.modified
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}

// Read returns a copy of the document at path.
func (m *MemoryStore) Read(ctx context.Context, path string) ([]byte, error) {
	if err := checkContext(ctx); err != nil {
		return nil, err
	}
	key, err := CleanKey("read", path)
	if err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	doc, ok := m.docs[key]
	if !ok {
		return nil, fderrors.NotFound("read", key)
	}
	return append([]byte(nil), doc.content...), nil
}

// Write stores a copy of content at path.
func (m *MemoryStore) Write(ctx context.Context, path string, content []byte, opts WriteOptions) error {
	if err := checkContext(ctx); err != nil {
		return err
	}
	key, err := CleanKey("write", path)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.docs[key]; exists && !opts.Overwrite {
		return fderrors.Conflict("write", key)
	}
	m.docs[key] = memDoc{content: append([]byte(nil), content...), modified: m.now()}
	return nil
}

// Move renames a document.
func (m *MemoryStore) Move(ctx context.Context, oldPath, newPath string, opts WriteOptions) error {
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

	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.docs[from]
	if !ok {
		return fderrors.NotFound("move", from)
	}
	if from == to {
		return nil
	}
	if _, exists := m.docs[to]; exists && !opts.Overwrite {
		return fderrors.Conflict("move", to)
	}
	doc.modified = m.now()
	m.docs[to] = doc
	delete(m.docs, from)
	return nil
}

// Delete removes the document at path.
func (m *MemoryStore) Delete(ctx context.Context, path string) error {
	if err := checkContext(ctx); err != nil {
		return err
	}
	key, err := CleanKey("delete", path)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.docs[key]; !ok {
		return fderrors.NotFound("delete", key)
	}
	delete(m.docs, key)
	return nil
}

// Len returns the number of stored documents.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.docs)
}

var _ Store = (*MemoryStore)(nil)
