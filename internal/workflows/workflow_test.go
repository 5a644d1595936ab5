package workflows

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	fderrors "github.com/chazuruo/flowdeck/internal/errors"
)

const graphB = `{"nodes":[{"id":2}],"links":[]}`

func TestSave_NewDocumentAppendsExtension(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.manager.LoadCatalog(f.ctx))

	wf, err := f.manager.SetActive(f.ctx, NewDocument())
	require.NoError(t, err)
	wf.Track(nil)
	f.canvas.content = []byte(graphA)
	f.drain()

	f.prompter.On("PromptName", mock.Anything, "Save workflow as:", "Unsaved Workflow").Return("foo", nil).Once()
	outcome, err := wf.Save(f.ctx)
	require.NoError(t, err)

	assert.Equal(t, OutcomeCompleted, outcome)
	assert.Equal(t, "foo.json", wf.Path())
	assert.Equal(t, "foo", wf.Name())
	assert.Equal(t, []string{"foo.json"}, wf.PathParts())
	assert.False(t, wf.IsUnsaved())
	assert.JSONEq(t, graphA, f.read("foo.json"))
	assert.Same(t, wf, f.manager.Lookup("foo.json"))
	assert.Equal(t, "foo.json", f.settings.GetString(KeyPreviousPath))
	assert.False(t, f.settings.GetBool(KeyPreviousUnsaved))

	events := f.drain()
	assert.Equal(t, []EventType{EventRename, EventSave}, eventTypes(events))
	assert.Same(t, wf, events[1].Workflow)
}

func TestSave_PromptCanceled(t *testing.T) {
	f := newFixture(t)
	wf, err := f.manager.SetActive(f.ctx, NewDocument())
	require.NoError(t, err)
	wf.Track(nil)
	f.store.Reset()

	f.prompter.On("PromptName", mock.Anything, mock.Anything, mock.Anything).Return("", fderrors.ErrCanceled).Once()
	outcome, err := wf.Save(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, OutcomeCanceled, outcome)
	assert.False(t, wf.IsPersisted())
	assert.True(t, wf.IsUnsaved())
	assert.Empty(t, f.store.Calls())
}

func TestSave_ExistingPathOverwritesWithoutAsking(t *testing.T) {
	f := newFixture(t)
	f.seed(map[string]string{"a.json": graphA})
	wf := f.open("a.json")

	f.canvas.content = []byte(graphB)
	wf.CheckState([]byte(graphB))
	require.True(t, wf.IsUnsaved())
	f.drain()

	outcome, err := wf.Save(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, OutcomeCompleted, outcome)
	assert.JSONEq(t, graphB, f.read("a.json"))
	assert.False(t, wf.IsUnsaved())
	assert.False(t, wf.Tracker().Dirty())
	assert.Equal(t, []EventType{EventSave}, eventTypes(f.drain()))
}

func TestSaveAs_OntoExistingDeclined(t *testing.T) {
	f := newFixture(t)
	f.seed(map[string]string{"a.json": graphA, "b.json": graphB})
	wf := f.open("a.json")
	f.canvas.content = []byte(`{"nodes":[]}`)
	wf.CheckState(f.canvas.content)
	f.drain()

	f.prompter.On("PromptName", mock.Anything, mock.Anything, "a").Return("b", nil).Once()
	f.prompter.On("Confirm", mock.Anything, "Overwrite workflow", mock.Anything).Return(false, nil).Once()

	outcome, err := wf.SaveAs(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, OutcomeDeclined, outcome)
	assert.Equal(t, "a.json", wf.Path())
	assert.True(t, wf.IsUnsaved())
	assert.JSONEq(t, graphB, f.read("b.json"))
	assert.JSONEq(t, graphA, f.read("a.json"))
	assert.Empty(t, f.drain())
}

func TestSaveAs_OntoExistingAccepted(t *testing.T) {
	f := newFixture(t)
	f.seed(map[string]string{"a.json": graphA, "team/b.json": graphB})
	wf := f.open("a.json")
	replaced := f.manager.Lookup("team/b.json")
	edited := `{"nodes":[{"id":3}]}`
	f.canvas.content = []byte(edited)
	wf.CheckState(f.canvas.content)
	f.drain()

	f.prompter.On("PromptName", mock.Anything, mock.Anything, "a").Return(`team\b`, nil).Once()
	f.prompter.On("Confirm", mock.Anything, "Overwrite workflow", mock.Anything).Return(true, nil).Once()

	outcome, err := wf.SaveAs(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, OutcomeCompleted, outcome)
	assert.JSONEq(t, edited, f.read("team/b.json"))

	assert.Equal(t, "team/b.json", wf.Path())
	assert.Equal(t, []string{"team", "b.json"}, wf.PathParts())
	assert.Equal(t, "b", wf.Name())
	assert.False(t, wf.IsUnsaved())
	assert.NotContains(t, f.manager.Workflows(), replaced)
	assert.Equal(t, []EventType{EventRename, EventSave}, eventTypes(f.drain()))
}

func TestSaveAs_CopyOpensNewWorkflow(t *testing.T) {
	f := newFixture(t)
	f.seed(map[string]string{"a.json": graphA})
	wf := f.open("a.json")
	f.canvas.content = []byte(graphB)

	f.prompter.On("PromptName", mock.Anything, mock.Anything, "a").Return("copy", nil).Once()
	outcome, err := wf.SaveAs(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, OutcomeCompleted, outcome)

	cp := f.manager.Lookup("copy.json")
	require.NotNil(t, cp)
	assert.Same(t, cp, f.manager.ActiveWorkflow())
	assert.True(t, cp.IsOpen())
	assert.Equal(t, "a.json", wf.Path())
	assert.JSONEq(t, graphA, f.read("a.json"))
	assert.JSONEq(t, graphB, f.read("copy.json"))
	assert.Equal(t, []string{"copy.json", "a.json"}, paths(f.manager.OpenWorkflows()))
}

func TestSave_StoreFailureReported(t *testing.T) {
	f := newFixture(t)
	f.seed(map[string]string{"a.json": graphA})
	wf := f.open("a.json")
	wf.CheckState([]byte(graphB))
	f.store.fail["write"] = fderrors.IOFailure("write", "workflows/a.json", errors.New("quota exceeded"))

	_, err := wf.Save(f.ctx)
	require.Error(t, err)
	assert.True(t, fderrors.IsIO(err))
	assert.True(t, wf.IsUnsaved())
	require.Len(t, f.reporter.errs, 1)
	we, ok := fderrors.AsWorkflowError(f.reporter.errs[0])
	require.True(t, ok)
	assert.Equal(t, "save", we.Op)
}

func TestSave_RejectsEscapingName(t *testing.T) {
	f := newFixture(t)
	wf, err := f.manager.SetActive(f.ctx, NewDocument())
	require.NoError(t, err)
	wf.Track(nil)

	f.prompter.On("PromptName", mock.Anything, mock.Anything, mock.Anything).Return("../outside", nil).Once()
	_, err = wf.Save(f.ctx)
	require.Error(t, err)
	assert.True(t, fderrors.IsInvalid(err))
	assert.False(t, wf.IsPersisted())
}

func TestRename(t *testing.T) {
	f := newFixture(t)
	f.seed(map[string]string{"a/b.json": graphA}, "a/b.json")
	wf := f.open("a/b.json")
	id := wf.ID()

	outcome, err := wf.Rename(f.ctx, "a/c")
	require.NoError(t, err)
	assert.Equal(t, OutcomeCompleted, outcome)

	assert.Equal(t, "a/c.json", wf.Path())
	assert.Equal(t, []string{"a", "c.json"}, wf.PathParts())
	assert.Equal(t, "c", wf.Name())
	assert.Equal(t, id, wf.ID())
	assert.Same(t, wf, f.manager.Lookup("a/c.json"))
	assert.Nil(t, f.manager.Lookup("a/b.json"))
	assert.False(t, f.exists("a/b.json"))
	assert.JSONEq(t, graphA, f.read("a/c.json"))
	assert.JSONEq(t, `{"favorites":["a/c.json"]}`, f.read(DefaultMetadataFile))
	assert.Equal(t, "a/c.json", f.settings.GetString(KeyPreviousPath))

	events := f.drain()
	require.Len(t, events, 1)
	assert.Equal(t, EventRename, events[0].Type)
	assert.Same(t, wf, events[0].Workflow)
}

func TestRename_Conflict(t *testing.T) {
	t.Run("declined", func(t *testing.T) {
		f := newFixture(t)
		f.seed(map[string]string{"a.json": graphA, "b.json": graphB})
		wf := f.manager.Lookup("a.json")

		f.prompter.On("Confirm", mock.Anything, "Overwrite workflow", mock.Anything).Return(false, nil).Once()
		outcome, err := wf.Rename(f.ctx, "b.json")
		require.NoError(t, err)
		assert.Equal(t, OutcomeDeclined, outcome)
		assert.Equal(t, "a.json", wf.Path())
		assert.JSONEq(t, graphA, f.read("a.json"))
		assert.JSONEq(t, graphB, f.read("b.json"))
		assert.Empty(t, f.drain())
	})

	t.Run("accepted", func(t *testing.T) {
		f := newFixture(t)
		f.seed(map[string]string{"a.json": graphA, "b.json": graphB})
		wf := f.manager.Lookup("a.json")
		old := f.manager.Lookup("b.json")

		f.prompter.On("Confirm", mock.Anything, "Overwrite workflow", mock.Anything).Return(true, nil).Once()
		outcome, err := wf.Rename(f.ctx, "b.json")
		require.NoError(t, err)
		assert.Equal(t, OutcomeCompleted, outcome)
		assert.Equal(t, "b.json", wf.Path())
		assert.JSONEq(t, graphA, f.read("b.json"))
		assert.NotContains(t, f.manager.Workflows(), old)
		assert.Len(t, f.manager.Workflows(), 1)
	})
}

func TestRename_OntoOpenWorkflow(t *testing.T) {
	f := newFixture(t)
	f.seed(map[string]string{"a.json": graphA, "b.json": graphB})
	a := f.open("a.json")
	b := f.open("b.json")

	f.prompter.On("Confirm", mock.Anything, "Overwrite workflow", mock.Anything).Return(true, nil).Once()
	outcome, err := a.Rename(f.ctx, "b.json")
	require.NoError(t, err)
	assert.Equal(t, OutcomeCompleted, outcome)

	assert.False(t, b.IsOpen())
	assert.Same(t, a, f.manager.ActiveWorkflow())
	assert.Equal(t, []string{"b.json"}, paths(f.manager.OpenWorkflows()))
	assert.Equal(t, "b.json", f.settings.GetString(KeyPreviousPath))
	assert.Equal(t, []EventType{EventRename, EventChange}, eventTypes(f.drain()))
}

func TestRename_Unsaved(t *testing.T) {
	f := newFixture(t)
	wf, err := f.manager.SetActive(f.ctx, NewDocument())
	require.NoError(t, err)

	_, err = wf.Rename(f.ctx, "x")
	require.Error(t, err)
	assert.True(t, fderrors.IsInvalid(err))
}

func TestFavorite(t *testing.T) {
	f := newFixture(t)
	f.seed(map[string]string{"a.json": graphA, "b.json": graphA}, "b.json")
	a := f.manager.Lookup("a.json")

	require.NoError(t, a.Favorite(f.ctx, true))
	assert.True(t, a.IsFavorite())
	assert.JSONEq(t, `{"favorites":["a.json","b.json"]}`, f.read(DefaultMetadataFile))
	assert.Equal(t, []EventType{EventFavorite}, eventTypes(f.drain()))

	// Setting the current value is a no-op.
	f.store.Reset()
	require.NoError(t, a.Favorite(f.ctx, true))
	assert.Empty(t, f.store.Calls())
	assert.Empty(t, f.drain())

	require.NoError(t, a.Favorite(f.ctx, false))
	assert.JSONEq(t, `{"favorites":["b.json"]}`, f.read(DefaultMetadataFile))
}

func TestFavorite_PersistFailureKeepsFlag(t *testing.T) {
	f := newFixture(t)
	f.seed(map[string]string{"a.json": graphA})
	a := f.manager.Lookup("a.json")
	f.store.fail["write"] = fderrors.IOFailure("write", "workflows/.index.json", errors.New("offline"))

	err := a.Favorite(f.ctx, true)
	require.Error(t, err)
	assert.False(t, a.IsFavorite())
	assert.Len(t, f.reporter.errs, 1)
	assert.Empty(t, f.drain())
}

func TestDelete_FavoriteOpenWorkflow(t *testing.T) {
	f := newFixture(t)
	f.seed(map[string]string{"a.json": graphA, "b.json": graphA}, "a.json")
	b := f.open("b.json")
	a := f.open("a.json")

	require.NoError(t, a.Delete(f.ctx))

	assert.Equal(t, []string{
		"write workflows/.index.json",
		"delete workflows/a.json",
	}, f.store.Calls(), "favorite must be cleared before the document is deleted")
	assert.False(t, a.IsFavorite())
	assert.False(t, a.IsOpen())
	assert.False(t, f.exists("a.json"))
	assert.JSONEq(t, `{"favorites":[]}`, f.read(DefaultMetadataFile))

	assert.Nil(t, f.manager.Lookup("a.json"))
	assert.Equal(t, []string{"b.json"}, paths(f.manager.OpenWorkflows()))
	assert.Same(t, b, f.manager.ActiveWorkflow())
	assert.Equal(t, "b.json", f.settings.GetString(KeyPreviousPath))

	events := f.drain()
	assert.Equal(t, []EventType{EventFavorite, EventDelete, EventChange}, eventTypes(events))
	assert.Same(t, a, events[1].Workflow)
}

func TestDelete_StoreFailureKeepsWorkflow(t *testing.T) {
	f := newFixture(t)
	f.seed(map[string]string{"a.json": graphA})
	a := f.open("a.json")
	f.store.fail["delete"] = fderrors.IOFailure("delete", "workflows/a.json", errors.New("locked"))

	require.Error(t, a.Delete(f.ctx))
	assert.Same(t, a, f.manager.Lookup("a.json"))
	assert.True(t, a.IsOpen())
	assert.Len(t, f.reporter.errs, 1)
	assert.Empty(t, f.drain())
}

func TestLoad_OpenWorkflowUsesLiveState(t *testing.T) {
	f := newFixture(t)
	f.seed(map[string]string{"a.json": graphA, "b.json": graphB})
	a := f.open("a.json")
	a.CheckState([]byte(`{"nodes":[{"id":99}]}`))
	f.open("b.json")

	require.NoError(t, a.Load(f.ctx))
	assert.Empty(t, f.store.Calls(), "switching back to an open tab must not refetch")
	assert.JSONEq(t, `{"nodes":[{"id":99}]}`, string(f.canvas.content))
	assert.True(t, a.IsUnsaved())
	assert.Same(t, a, f.manager.ActiveWorkflow())
}

func TestLoad_FetchFailure(t *testing.T) {
	f := newFixture(t)
	f.seed(map[string]string{"a.json": graphA})
	a := f.manager.Lookup("a.json")
	require.NoError(t, f.store.Store.Delete(f.ctx, "workflows/a.json"))

	err := a.Load(f.ctx)
	require.Error(t, err)
	assert.Equal(t, fderrors.StatusNotFound, fderrors.StatusOf(err))
	assert.False(t, a.IsOpen())
	assert.Nil(t, f.manager.ActiveWorkflow())
	assert.Len(t, f.reporter.errs, 1)
}

type countingTracker struct {
	ChangeTracker
	restores int
}

func (c *countingTracker) Restore() { c.restores++ }

func TestTrack_Idempotent(t *testing.T) {
	var created []*countingTracker
	f := newFixture(t)
	f.manager.trackerFactory = func(wf *Workflow, initial []byte) ChangeTracker {
		tr := &countingTracker{ChangeTracker: defaultTrackerFactory(wf, initial)}
		created = append(created, tr)
		return tr
	}
	f.seed(map[string]string{"a.json": graphA})
	a := f.manager.Lookup("a.json")

	a.Track([]byte(graphA))
	first := a.Tracker()
	a.Track([]byte(graphB))

	assert.Same(t, first, a.Tracker())
	require.Len(t, created, 1)
	assert.Equal(t, 1, created[0].restores)
	assert.JSONEq(t, graphA, string(a.Tracker().ActiveState()))
}

func TestCheckState_UpdatesSessionFlag(t *testing.T) {
	f := newFixture(t)
	f.seed(map[string]string{"a.json": graphA})
	a := f.open("a.json")

	a.CheckState([]byte(graphB))
	assert.True(t, a.IsUnsaved())
	assert.True(t, f.settings.GetBool(KeyPreviousUnsaved))
	assert.Equal(t, []EventType{EventChange}, eventTypes(f.drain()))

	a.CheckState([]byte(graphB))
	assert.Empty(t, f.drain(), "no event without a state change")

	a.CheckState([]byte(graphA))
	assert.False(t, a.IsUnsaved())
	assert.False(t, f.settings.GetBool(KeyPreviousUnsaved))
}

func TestCheckState_ClosedWorkflowIgnored(t *testing.T) {
	f := newFixture(t)
	f.seed(map[string]string{"a.json": graphA})
	a := f.manager.Lookup("a.json")

	a.CheckState([]byte(graphB))
	assert.False(t, a.IsUnsaved())
}
