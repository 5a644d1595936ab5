package settings

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	fderrors "github.com/chazuruo/flowdeck/internal/errors"
	"github.com/chazuruo/flowdeck/internal/workflows"
)

var (
	_ workflows.Settings = (*File)(nil)
	_ workflows.Settings = (*Memory)(nil)
)

func TestFile_MissingFileStartsEmpty(t *testing.T) {
	f, err := Open(filepath.Join(t.TempDir(), "session.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "", f.GetString(workflows.KeyPreviousPath))
	assert.False(t, f.GetBool(workflows.KeyPreviousUnsaved))
}

func TestFile_SetPersistsAcrossOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "session.yaml")

	f, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, f.Set(workflows.KeyPreviousPath, "team/render.json"))
	require.NoError(t, f.Set(workflows.KeyPreviousUnsaved, true))
	assert.FileExists(t, path)

	reopened, err := Open(path)
	require.NoError(t, err)
	assert.Equal(t, "team/render.json", reopened.GetString(workflows.KeyPreviousPath))
	assert.True(t, reopened.GetBool(workflows.KeyPreviousUnsaved))
	assert.Equal(t, map[string]any{
		"workflow.previous_path":    "team/render.json",
		"workflow.previous_unsaved": true,
	}, reopened.All())
}

func TestFile_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.yaml")
	require.NoError(t, os.WriteFile(path, []byte("workflow: [unterminated"), 0o644))

	_, err := Open(path)
	require.Error(t, err)
	var cfgErr *fderrors.ConfigError
	assert.ErrorAs(t, err, &cfgErr)
}

func TestMemory(t *testing.T) {
	m := NewMemory()
	require.NoError(t, m.Set("a", "x"))
	require.NoError(t, m.Set("b", true))
	require.NoError(t, m.Set("c", 3))

	assert.Equal(t, "x", m.GetString("a"))
	assert.True(t, m.GetBool("b"))
	assert.Equal(t, "", m.GetString("c"), "wrong type reads as zero")
	assert.Len(t, m.All(), 3)
}
