package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chazuruo/flowdeck/internal/app"
	"github.com/chazuruo/flowdeck/internal/config"
	"github.com/chazuruo/flowdeck/internal/testutil"
)

const graphA = `{"nodes":[{"id":1,"type":"LoadImage"}],"links":[]}`

type testEnv struct {
	t          *testing.T
	dir        string
	configPath string
	cfg        *config.Config
}

// newTestEnv writes a config for a filesystem store under a temp directory.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := testutil.TempDir(t)

	cfg := config.DefaultConfig()
	cfg.Store.Root = filepath.Join(dir, "store")
	cfg.Store.CacheTTL = "0"
	cfg.Session.SettingsPath = filepath.Join(dir, "session.yaml")
	cfg.Watch.Enabled = false

	configPath := filepath.Join(dir, "config.toml")
	require.NoError(t, config.Write(configPath, cfg))

	t.Cleanup(func() { NoTUI = false })
	return &testEnv{t: t, dir: dir, configPath: configPath, cfg: cfg}
}

// run executes flowdeck --no-tui <args> --config <path>.
func (e *testEnv) run(args ...string) (string, error) {
	e.t.Helper()
	root := NewRootCommand("1.2.3", "abc123", "2026-01-01", "test")

	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetIn(strings.NewReader(""))

	full := append([]string{"--no-tui"}, args...)
	if len(args) > 0 && args[0] != "version" && args[0] != "subflow" {
		full = append(full, "--config", e.configPath)
	}
	root.SetArgs(full)

	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func (e *testEnv) mustRun(args ...string) string {
	e.t.Helper()
	out, err := e.run(args...)
	require.NoError(e.t, err, "flowdeck %s: %s", strings.Join(args, " "), out)
	return out
}

// file writes a fixture outside the store and returns its path.
func (e *testEnv) file(name, content string) string {
	e.t.Helper()
	return testutil.WriteFile(e.t, e.dir, name, content)
}

func (e *testEnv) stored(rel string) string {
	e.t.Helper()
	data, err := os.ReadFile(filepath.Join(e.cfg.Store.Root, "workflows", filepath.FromSlash(rel)))
	require.NoError(e.t, err)
	return string(data)
}

func (e *testEnv) status() app.StatusOutput {
	e.t.Helper()
	var out app.StatusOutput
	require.NoError(e.t, json.Unmarshal([]byte(e.mustRun("status", "--json")), &out))
	return out
}

func TestInitNonInteractive(t *testing.T) {
	tmpDir := t.TempDir()
	root := filepath.Join(tmpDir, "data")
	configPath := filepath.Join(tmpDir, "config.toml")

	opts := &InitOptions{
		ConfigPath: configPath,
		Backend:    config.BackendFilesystem,
		Root:       root,
		NoRestore:  true,
	}

	var out bytes.Buffer
	if err := runInitNonInteractive(&out, opts); err != nil {
		t.Fatalf("runInitNonInteractive() error = %v", err)
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("config.Load() error = %v", err)
	}
	if cfg.Store.Root != root {
		t.Errorf("config.Store.Root = %s, want %s", cfg.Store.Root, root)
	}
	if cfg.Session.Restore {
		t.Errorf("config.Session.Restore = true, want false")
	}

	workflowsDir := filepath.Join(root, cfg.Store.WorkflowsDir)
	if _, err := os.Stat(workflowsDir); os.IsNotExist(err) {
		t.Errorf("workflows directory not created at %s", workflowsDir)
	}

	// A second init refuses to clobber the file.
	if err := runInit(&out, opts); err == nil {
		t.Errorf("runInit() with existing config should fail")
	}
	opts.Force = true
	NoTUI = true
	defer func() { NoTUI = false }()
	if err := runInit(&out, opts); err != nil {
		t.Errorf("runInit() with --force error = %v", err)
	}
}

func TestInitNonInteractive_SQLite(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "db", "flowdeck.db")
	configPath := filepath.Join(tmpDir, "config.toml")

	opts := &InitOptions{ConfigPath: configPath, Backend: config.BackendSQLite, DBPath: dbPath}
	require.NoError(t, runInitNonInteractive(&bytes.Buffer{}, opts))

	cfg, err := config.Load(configPath)
	require.NoError(t, err)
	assert.Equal(t, config.BackendSQLite, cfg.Store.Backend)
	assert.FileExists(t, dbPath)
}

func TestImportAndList(t *testing.T) {
	e := newTestEnv(t)
	src := e.file("render.json", graphA)

	out := e.mustRun("import", src, "--name", "team/render")
	assert.Contains(t, out, "Imported team/render.json")
	assert.JSONEq(t, graphA, e.stored("team/render.json"))

	out = e.mustRun("import", e.file("Basic.json", graphA))
	assert.Contains(t, out, "Imported Basic.json", "name defaults to the file name")

	out = e.mustRun("list", "--format", "plain")
	assert.Equal(t, "Basic.json\nteam/render.json\n", out)

	var items []ListItem
	require.NoError(t, json.Unmarshal([]byte(e.mustRun("list", "--format", "json")), &items))
	require.Len(t, items, 2)
	assert.Equal(t, "render", items[1].Name)
	assert.Equal(t, int64(len(graphA)), items[1].Size)
	assert.False(t, items[1].Modified.IsZero())

	out = e.mustRun("list")
	assert.Contains(t, out, "NAME")
	assert.Contains(t, out, "team")
}

func TestList_EmptyAndInvalidFormat(t *testing.T) {
	e := newTestEnv(t)
	assert.Contains(t, e.mustRun("list"), "No workflows found.")

	_, err := e.run("list", "--format", "xml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}

func TestImport_Conflict(t *testing.T) {
	e := newTestEnv(t)
	e.mustRun("import", e.file("a.json", graphA), "--name", "a")

	edited := `{"nodes":[],"links":[]}`
	other := e.file("edited.json", edited)

	out := e.mustRun("import", other, "--name", "a")
	assert.Contains(t, out, "Target exists")
	assert.JSONEq(t, graphA, e.stored("a.json"))

	out = e.mustRun("import", other, "--name", "a", "--force")
	assert.Contains(t, out, "Imported a.json")
	assert.JSONEq(t, edited, e.stored("a.json"))
}

func TestImport_Errors(t *testing.T) {
	e := newTestEnv(t)

	_, err := e.run("import", "-")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--name is required")

	_, err = e.run("import", e.file("bad.json", "{not json"), "--name", "bad")
	require.Error(t, err)

	_, err = e.run("import", filepath.Join(e.dir, "missing.json"))
	require.Error(t, err)
}

func TestFavorites(t *testing.T) {
	e := newTestEnv(t)
	e.mustRun("import", e.file("a.json", graphA), "--name", "a")
	e.mustRun("import", e.file("b.json", graphA), "--name", "b")

	assert.Contains(t, e.mustRun("favorite", "b"), "Added b.json to favorites")
	assert.JSONEq(t, `{"favorites":["b.json"]}`, e.stored(".index.json"))

	out := e.mustRun("list", "--favorites", "--format", "yaml")
	assert.Contains(t, out, "path: b.json")
	assert.NotContains(t, out, "path: a.json")
	assert.Equal(t, 1, e.status().Favorites)

	assert.Contains(t, e.mustRun("unfavorite", "b.json"), "Removed b.json from favorites")
	assert.Equal(t, 0, e.status().Favorites)

	_, err := e.run("favorite", "missing")
	require.Error(t, err)
}

func TestRename(t *testing.T) {
	e := newTestEnv(t)
	e.mustRun("import", e.file("a.json", graphA), "--name", "a")
	e.mustRun("import", e.file("b.json", `{"nodes":[]}`), "--name", "b")
	e.mustRun("favorite", "a")

	out := e.mustRun("rename", "a", "b")
	assert.Contains(t, out, "Target exists")

	out = e.mustRun("rename", "a", "archive/a")
	assert.Contains(t, out, "Renamed a.json to archive/a.json")
	assert.JSONEq(t, `{"favorites":["archive/a.json"]}`, e.stored(".index.json"))
	assert.Equal(t, "archive/a.json\nb.json\n", e.mustRun("list", "--format", "plain"))

	out = e.mustRun("rename", "archive/a", "b", "--force")
	assert.Contains(t, out, "Renamed archive/a.json to b.json")
	assert.JSONEq(t, graphA, e.stored("b.json"))
}

func TestDelete(t *testing.T) {
	e := newTestEnv(t)
	e.mustRun("import", e.file("a.json", graphA), "--name", "a")
	e.mustRun("favorite", "a")

	_, err := e.run("delete", "a")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "without --yes")

	assert.Contains(t, e.mustRun("delete", "a", "--yes"), "Deleted a.json")
	assert.Equal(t, "", e.mustRun("list", "--format", "plain"))
	assert.JSONEq(t, `{"favorites":[]}`, e.stored(".index.json"))
}

func TestOpenSaveClose(t *testing.T) {
	e := newTestEnv(t)
	e.mustRun("import", e.file("a.json", graphA), "--name", "a")

	assert.Contains(t, e.mustRun("open", "a"), "Opened a.json")
	printed := e.mustRun("open", "a.json", "--print")
	assert.JSONEq(t, graphA, printed)

	st := e.status()
	require.NotNil(t, st.Active)
	assert.Equal(t, "a.json", st.Active.Path)
	assert.False(t, st.Active.Unsaved)

	// The next run reopens a.json and saves the edited graph over it.
	edited := `{"nodes":[{"id":1,"type":"LoadImage"},{"id":2,"type":"SaveImage"}],"links":[]}`
	out := e.mustRun("save", "--from", e.file("edited.json", edited))
	assert.Contains(t, out, "Saved a.json")
	assert.JSONEq(t, edited, e.stored("a.json"))

	out = e.mustRun("save", "--as", "copy")
	assert.Contains(t, out, "Saved copy.json")
	assert.JSONEq(t, edited, e.stored("copy.json"))
	assert.Equal(t, "copy.json", e.status().Active.Path)

	out = e.mustRun("close")
	assert.Contains(t, out, "Closed copy.json")
}

func TestExport(t *testing.T) {
	e := newTestEnv(t)
	e.mustRun("import", e.file("a.json", graphA), "--name", "team/render")

	out := e.mustRun("export", "team/render")
	assert.Contains(t, out, "# render")
	assert.Contains(t, out, "| 1 | LoadImage |")

	dest := filepath.Join(e.dir, "render.yaml")
	out = e.mustRun("export", "team/render", "--format", "yaml", "--out", dest)
	assert.Contains(t, out, "Exported team/render.json to "+dest)
	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Contains(t, string(data), "type: LoadImage")

	out = e.mustRun("export", "team/render", "--render")
	assert.Contains(t, out, "render")

	_, err = e.run("export", "team/render", "--format", "pdf")
	require.Error(t, err)
}

func TestDiff(t *testing.T) {
	e := newTestEnv(t)
	e.mustRun("import", e.file("a.json", graphA), "--name", "a")

	out := e.mustRun("diff", "a", e.file("same.json", `{"links":[],"nodes":[{"type":"LoadImage","id":1}]}`))
	assert.Equal(t, "No differences.\n", out)

	out = e.mustRun("diff", "a", e.file("edited.json", `{"nodes":[{"id":1,"type":"SaveImage"}],"links":[]}`))
	assert.Contains(t, out, "--- a.json")
	assert.Contains(t, out, `+       "type": "SaveImage"`)
}

func TestStatus_Text(t *testing.T) {
	e := newTestEnv(t)
	e.mustRun("import", e.file("a.json", graphA), "--name", "a")
	e.mustRun("open", "a")

	out := e.mustRun("status")
	assert.Contains(t, out, "filesystem")
	assert.Contains(t, out, "a [saved]")
}

func TestBrowse_RequiresTUI(t *testing.T) {
	e := newTestEnv(t)
	_, err := e.run("browse")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "requires the TUI")
}

func TestWatch_RequiresFilesystem(t *testing.T) {
	e := newTestEnv(t)
	e.cfg.Store.Backend = config.BackendSQLite
	e.cfg.Store.DBPath = filepath.Join(e.dir, "flowdeck.db")
	require.NoError(t, config.Write(e.configPath, e.cfg))

	_, err := e.run("watch")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "filesystem")
}

const subflowDoc = `{
  "title": "Upscale",
  "nodes": [
    {
      "id": 7,
      "type": "ImageScale",
      "exports": {
        "inputs": [{"name": "image", "type": "IMAGE", "slot_index": 0}],
        "outputs": [{"name": "IMAGE", "type": "IMAGE", "slot_index": 0}],
        "widgets": [{"name": "width", "config": ["INT", {"default": 512}]}]
      }
    }
  ]
}`

func TestSubflow(t *testing.T) {
	e := newTestEnv(t)
	doc := e.file("subflow.json", subflowDoc)

	out := e.mustRun("subflow", doc)
	assert.Contains(t, out, "Container: Upscale")
	assert.Contains(t, out, "image")
	assert.Contains(t, out, "width")

	var parsed struct {
		Title   string `json:"title"`
		Widgets []struct {
			Name  string `json:"name"`
			Value any    `json:"value"`
		} `json:"widgets"`
		Routes []subflowRoute `json:"routes"`
	}
	require.NoError(t, json.Unmarshal([]byte(e.mustRun("subflow", doc, "--json", "--values", "[1024]")), &parsed))
	assert.Equal(t, "Upscale", parsed.Title)
	require.Len(t, parsed.Widgets, 1)
	assert.Equal(t, float64(1024), parsed.Widgets[0].Value)
	require.Len(t, parsed.Routes, 2)
	assert.Equal(t, "input", parsed.Routes[0].Direction)
	assert.Equal(t, 7, parsed.Routes[0].Target.NodeID)

	_, err := e.run("subflow", doc, "--values", "{")
	require.Error(t, err)
}

func TestVersion(t *testing.T) {
	e := newTestEnv(t)
	assert.Equal(t, "1.2.3\n", e.mustRun("version", "--short"))

	var info VersionInfo
	require.NoError(t, json.Unmarshal([]byte(e.mustRun("version", "--json")), &info))
	assert.Equal(t, "abc123", info.Commit)
	assert.Equal(t, "test", info.BuiltBy)
	assert.Equal(t, []string{"filesystem", "sqlite", "memory"}, info.Backends)

	out := e.mustRun("version")
	assert.Contains(t, out, "flowdeck 1.2.3 (abc123, ")
	assert.Contains(t, out, "backends: filesystem, sqlite, memory")
}
