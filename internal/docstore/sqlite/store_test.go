package sqlite_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chazuruo/flowdeck/internal/docstore"
	"github.com/chazuruo/flowdeck/internal/docstore/sqlite"
	"github.com/chazuruo/flowdeck/internal/testutil"
)

func openStore(t *testing.T, path string) *sqlite.Store {
	t.Helper()
	s, err := sqlite.Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStore_Contract(t *testing.T) {
	testutil.RunStoreContract(t, func(t *testing.T) docstore.Store {
		return openStore(t, sqlite.MemoryPath)
	})
}

func TestStore_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "data", "flowdeck.db")

	s, err := sqlite.Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Write(ctx, "workflows/a.json", []byte(`{"nodes":[]}`), docstore.WriteOptions{}))
	require.NoError(t, s.Close())

	reopened := openStore(t, path)
	assert.Equal(t, path, reopened.Path())
	data, err := reopened.Read(ctx, "workflows/a.json")
	require.NoError(t, err)
	assert.JSONEq(t, `{"nodes":[]}`, string(data))
}

func TestStore_ListTreatsWildcardsLiterally(t *testing.T) {
	ctx := context.Background()
	s := openStore(t, sqlite.MemoryPath)

	require.NoError(t, s.Write(ctx, "work_flows/a.json", []byte(`{}`), docstore.WriteOptions{}))
	require.NoError(t, s.Write(ctx, "workXflows/b.json", []byte(`{}`), docstore.WriteOptions{}))
	require.NoError(t, s.Write(ctx, "100%/c.json", []byte(`{}`), docstore.WriteOptions{}))

	entries, err := s.List(ctx, "work_flows", docstore.ListOptions{})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "a.json", entries[0].Path)

	entries, err = s.List(ctx, "100%", docstore.ListOptions{})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "c.json", entries[0].Path)
}

func TestStore_EmptyContent(t *testing.T) {
	ctx := context.Background()
	s := openStore(t, sqlite.MemoryPath)

	require.NoError(t, s.Write(ctx, "workflows/empty.json", nil, docstore.WriteOptions{}))
	data, err := s.Read(ctx, "workflows/empty.json")
	require.NoError(t, err)
	assert.Empty(t, data)
}

func TestStore_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s := openStore(t, sqlite.MemoryPath)

	err := s.Write(ctx, "workflows/a.json", []byte(`{}`), docstore.WriteOptions{})
	assert.ErrorIs(t, err, context.Canceled)
}
