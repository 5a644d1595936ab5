package testutil

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chazuruo/flowdeck/internal/docstore"
	fderrors "github.com/chazuruo/flowdeck/internal/errors"
)

// RunStoreContract checks the status semantics every docstore.Store must honor.
// newStore must return an empty store.
func RunStoreContract(t *testing.T, newStore func(t *testing.T) docstore.Store) {
	t.Helper()
	ctx := context.Background()

	t.Run("read missing is 404", func(t *testing.T) {
		s := newStore(t)
		_, err := s.Read(ctx, "workflows/missing.json")
		require.Error(t, err)
		assert.Equal(t, fderrors.StatusNotFound, fderrors.StatusOf(err))
	})

	t.Run("write then read", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Write(ctx, "workflows/a.json", []byte(`{"a":1}`), docstore.WriteOptions{}))
		data, err := s.Read(ctx, "workflows/a.json")
		require.NoError(t, err)
		assert.JSONEq(t, `{"a":1}`, string(data))
	})

	t.Run("write existing without overwrite is 409", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Write(ctx, "workflows/a.json", []byte(`1`), docstore.WriteOptions{}))
		err := s.Write(ctx, "workflows/a.json", []byte(`2`), docstore.WriteOptions{})
		assert.Equal(t, fderrors.StatusConflict, fderrors.StatusOf(err))

		data, err := s.Read(ctx, "workflows/a.json")
		require.NoError(t, err)
		assert.Equal(t, "1", string(data), "conflicting write must not change the document")
	})

	t.Run("write existing with overwrite replaces", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Write(ctx, "workflows/a.json", []byte(`1`), docstore.WriteOptions{}))
		require.NoError(t, s.Write(ctx, "workflows/a.json", []byte(`2`), docstore.WriteOptions{Overwrite: true}))
		data, err := s.Read(ctx, "workflows/a.json")
		require.NoError(t, err)
		assert.Equal(t, "2", string(data))
	})

	t.Run("list recursive and flat", func(t *testing.T) {
		s := newStore(t)
		for _, p := range []string{"workflows/b.json", "workflows/a.json", "workflows/team/c.json", "other/x.json"} {
			require.NoError(t, s.Write(ctx, p, []byte(`{}`), docstore.WriteOptions{}))
		}

		flat, err := s.List(ctx, "workflows", docstore.ListOptions{})
		require.NoError(t, err)
		assert.Equal(t, []string{"a.json", "b.json"}, entryPaths(flat))

		deep, err := s.List(ctx, "workflows", docstore.ListOptions{Recursive: true, WithMetadata: true})
		require.NoError(t, err)
		assert.Equal(t, []string{"a.json", "b.json", "team/c.json"}, entryPaths(deep))
		for _, e := range deep {
			assert.Equal(t, int64(2), e.Size)
			assert.False(t, e.Modified.IsZero())
		}
	})

	t.Run("move", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Write(ctx, "workflows/a.json", []byte(`1`), docstore.WriteOptions{}))
		require.NoError(t, s.Move(ctx, "workflows/a.json", "workflows/sub/b.json", docstore.WriteOptions{}))

		_, err := s.Read(ctx, "workflows/a.json")
		assert.Equal(t, fderrors.StatusNotFound, fderrors.StatusOf(err))
		data, err := s.Read(ctx, "workflows/sub/b.json")
		require.NoError(t, err)
		assert.Equal(t, "1", string(data))
	})

	t.Run("move onto existing is 409 unless overwrite", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Write(ctx, "workflows/a.json", []byte(`a`), docstore.WriteOptions{}))
		require.NoError(t, s.Write(ctx, "workflows/b.json", []byte(`b`), docstore.WriteOptions{}))

		err := s.Move(ctx, "workflows/a.json", "workflows/b.json", docstore.WriteOptions{})
		assert.Equal(t, fderrors.StatusConflict, fderrors.StatusOf(err))

		require.NoError(t, s.Move(ctx, "workflows/a.json", "workflows/b.json", docstore.WriteOptions{Overwrite: true}))
		data, err := s.Read(ctx, "workflows/b.json")
		require.NoError(t, err)
		assert.Equal(t, "a", string(data))
	})

	t.Run("move missing is 404", func(t *testing.T) {
		s := newStore(t)
		err := s.Move(ctx, "workflows/nope.json", "workflows/b.json", docstore.WriteOptions{})
		assert.Equal(t, fderrors.StatusNotFound, fderrors.StatusOf(err))
	})

	t.Run("delete", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Write(ctx, "workflows/a.json", []byte(`1`), docstore.WriteOptions{}))
		require.NoError(t, s.Delete(ctx, "workflows/a.json"))
		_, err := s.Read(ctx, "workflows/a.json")
		assert.Equal(t, fderrors.StatusNotFound, fderrors.StatusOf(err))

		err = s.Delete(ctx, "workflows/a.json")
		assert.Equal(t, fderrors.StatusNotFound, fderrors.StatusOf(err))
	})

	t.Run("keys escaping the store are rejected", func(t *testing.T) {
		s := newStore(t)
		err := s.Write(ctx, "../evil.json", []byte(`1`), docstore.WriteOptions{})
		assert.Equal(t, fderrors.StatusBadRequest, fderrors.StatusOf(err))
		_, err = s.Read(ctx, "/etc/passwd")
		assert.Equal(t, fderrors.StatusBadRequest, fderrors.StatusOf(err))
	})
}

func entryPaths(entries []docstore.Entry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Path)
	}
	return out
}
