package workflows

import (
	"context"
	"fmt"
	"slices"

	"github.com/google/uuid"

	"github.com/chazuruo/flowdeck/internal/docstore"
	fderrors "github.com/chazuruo/flowdeck/internal/errors"
	"github.com/chazuruo/flowdeck/internal/log"
)

// Workflow is one named workflow document known to a Manager.
//
// Identity fields are read through accessors and only change through the
// workflow's own methods. A Workflow is open while a ChangeTracker is attached.
type Workflow struct {
	manager *Manager

	id         string
	name       string
	path       string
	pathParts  []string
	isFavorite bool
	unsaved    bool
	tracker    ChangeTracker
}

func newWorkflow(m *Manager, path, name string) *Workflow {
	wf := &Workflow{manager: m, id: uuid.NewString(), name: name}
	if path != "" {
		wf.setPath(path)
	}
	return wf
}

// ID is a stable identifier that survives renames.
func (w *Workflow) ID() string { return w.id }

// Name is the display name.
func (w *Workflow) Name() string { return w.name }

// Path is the store key relative to the workflows directory, empty until saved.
func (w *Workflow) Path() string { return w.path }

// PathParts returns Path split into its segments.
func (w *Workflow) PathParts() []string { return slices.Clone(w.pathParts) }

// IsFavorite reports whether the workflow is in the favorites list.
func (w *Workflow) IsFavorite() bool { return w.isFavorite }

// IsOpen reports whether the workflow has an editing session.
func (w *Workflow) IsOpen() bool { return w.tracker != nil }

// IsUnsaved reports whether the workflow has changes not yet persisted.
func (w *Workflow) IsUnsaved() bool { return w.unsaved }

// IsPersisted reports whether the workflow has a path in the store.
func (w *Workflow) IsPersisted() bool { return w.path != "" }

// Tracker returns the attached change tracker, or nil when closed.
func (w *Workflow) Tracker() ChangeTracker { return w.tracker }

func (w *Workflow) String() string {
	if w.path != "" {
		return w.path
	}
	return w.name
}

func (w *Workflow) setPath(path string) {
	w.path = path
	w.pathParts = SplitPath(path)
	w.name = NameFromPath(path)
}

// FetchContent reads the workflow document from the store. Failures are
// reported before being returned.
func (w *Workflow) FetchContent(ctx context.Context) ([]byte, error) {
	if w.path == "" {
		return nil, &fderrors.WorkflowError{Op: "fetch", Err: fderrors.ErrInvalid}
	}
	data, err := w.manager.store.Read(ctx, w.manager.key(w.path))
	if err != nil {
		return nil, w.manager.fail("fetch", w.path, err)
	}
	return data, nil
}

// Load opens the workflow on the canvas and makes it active. An open workflow
// is reloaded from its live tracker state instead of the store.
func (w *Workflow) Load(ctx context.Context) error {
	var content []byte
	if w.IsOpen() {
		content = w.tracker.ActiveState()
	} else {
		data, err := w.FetchContent(ctx)
		if err != nil {
			return err
		}
		content = data
	}

	if err := w.attach(ctx, content); err != nil {
		return err
	}
	_, err := w.manager.SetActive(ctx, ByWorkflow(w))
	return err
}

// attach tracks the workflow and hands its content to the canvas.
func (w *Workflow) attach(ctx context.Context, content []byte) error {
	w.Track(content)
	if w.manager.canvas == nil {
		return nil
	}
	if err := w.manager.canvas.Load(ctx, w, content); err != nil {
		return w.manager.fail("load", w.path, err)
	}
	return nil
}

// Track makes sure the workflow has an editing session. A new session starts
// from initial; an existing one only restores its viewport.
func (w *Workflow) Track(initial []byte) {
	if w.tracker != nil {
		w.tracker.Restore()
		return
	}
	w.tracker = w.manager.newTracker(w, initial)
	log.Debug(log.CatWorkflow, "tracking workflow", "id", w.id, "path", w.path)
}

// CheckState feeds a canvas snapshot to the tracker and updates the dirty flag.
func (w *Workflow) CheckState(state []byte) {
	if w.tracker == nil {
		return
	}
	dirty := w.tracker.Update(state)
	if dirty == w.unsaved {
		return
	}
	w.unsaved = dirty
	if w.manager.ActiveWorkflow() == w {
		w.manager.setSetting(KeyPreviousUnsaved, dirty)
	}
	w.manager.emit(EventChange, nil)
}

// Save writes the workflow to its own path, or asks for a name when it has none.
func (w *Workflow) Save(ctx context.Context) (Outcome, error) {
	if w.path == "" {
		return w.SaveAs(ctx)
	}
	return w.save(ctx, w.path, true)
}

// SaveAs asks for a new name and writes a copy there.
func (w *Workflow) SaveAs(ctx context.Context) (Outcome, error) {
	return w.save(ctx, "", false)
}

// SaveTo writes the workflow to path without asking for a name.
func (w *Workflow) SaveTo(ctx context.Context, path string) (Outcome, error) {
	if path == "" {
		return w.SaveAs(ctx)
	}
	return w.save(ctx, path, false)
}

func (w *Workflow) save(ctx context.Context, target string, overwrite bool) (Outcome, error) {
	m := w.manager

	if target == "" {
		name, err := m.promptName(ctx, "Save workflow as:", w.defaultSaveName())
		if err != nil {
			if fderrors.IsCanceled(err) {
				return OutcomeCanceled, nil
			}
			return OutcomeCompleted, err
		}
		target = name
	}
	key, err := docstore.CleanKey("save", AppendExtension(target))
	if err != nil {
		return OutcomeCompleted, m.fail("save", target, err)
	}
	target = key

	content, err := w.serialize(ctx)
	if err != nil {
		return OutcomeCompleted, m.fail("save", target, err)
	}

	write := func(ctx context.Context, overwrite bool) error {
		return m.store.Write(ctx, m.key(target), content, docstore.WriteOptions{Overwrite: overwrite})
	}
	outcome, overwrote, err := resolveConflict(ctx, write, overwrite, m.confirmOverwrite(target))
	if err != nil {
		return OutcomeCompleted, m.fail("save", target, err)
	}
	if outcome != OutcomeCompleted {
		log.Debug(log.CatWorkflow, "save stopped", "path", target, "outcome", outcome)
		return outcome, nil
	}

	switch {
	case w.path == "" || overwrote:
		if target != w.path {
			m.adopt(ctx, w, target)
		}
	case target != w.path:
		// Saved as a new document: the copy joins the catalog and opens.
		cp := m.ensureWorkflow(target)
		if err := cp.Load(ctx); err != nil {
			return OutcomeCompleted, err
		}
		log.Info(log.CatWorkflow, "saved workflow copy", "from", w.path, "to", target)
		return OutcomeCompleted, nil
	}

	if target == w.path {
		w.unsaved = false
		if m.ActiveWorkflow() == w {
			m.setSetting(KeyPreviousUnsaved, false)
		}
		if w.IsOpen() {
			w.tracker.Reset(content)
			m.emit(EventSave, w)
		}
	}
	log.Info(log.CatWorkflow, "saved workflow", "id", w.id, "path", target)
	return OutcomeCompleted, nil
}

func (w *Workflow) defaultSaveName() string {
	if w.path != "" {
		return TrimExtension(w.path)
	}
	if w.name != "" {
		return w.name
	}
	return "workflow"
}

// serialize returns the graph to persist. The canvas only holds the active
// workflow; any other open workflow is saved from its live tracker state.
func (w *Workflow) serialize(ctx context.Context) ([]byte, error) {
	if w.manager.canvas != nil && w.manager.ActiveWorkflow() == w {
		return w.manager.canvas.Serialize(ctx)
	}
	if w.tracker != nil {
		return w.tracker.ActiveState(), nil
	}
	return nil, fmt.Errorf("no canvas or editing session to serialize: %w", fderrors.ErrInvalid)
}

// Rename moves the workflow to newPath. A declined overwrite leaves it unchanged.
func (w *Workflow) Rename(ctx context.Context, newPath string) (Outcome, error) {
	m := w.manager
	if w.path == "" {
		return OutcomeCompleted, &fderrors.WorkflowError{Op: "rename", Path: newPath, Err: fderrors.ErrInvalid}
	}
	target, err := docstore.CleanKey("rename", AppendExtension(newPath))
	if err != nil {
		return OutcomeCompleted, m.fail("rename", newPath, err)
	}
	if target == w.path {
		return OutcomeCompleted, nil
	}

	move := func(ctx context.Context, overwrite bool) error {
		return m.store.Move(ctx, m.key(w.path), m.key(target), docstore.WriteOptions{Overwrite: overwrite})
	}
	outcome, _, err := resolveConflict(ctx, move, false, m.confirmOverwrite(target))
	if err != nil {
		return OutcomeCompleted, m.fail("rename", w.path, err)
	}
	if outcome != OutcomeCompleted {
		return outcome, nil
	}

	old := w.path
	m.adopt(ctx, w, target)
	log.Info(log.CatWorkflow, "renamed workflow", "id", w.id, "from", old, "to", target)
	return OutcomeCompleted, nil
}

// Favorite sets the favorite flag. The favorites list is persisted before the
// flag flips, so a store failure leaves the flag unchanged.
func (w *Workflow) Favorite(ctx context.Context, value bool) error {
	if w.isFavorite == value {
		return nil
	}
	if w.path == "" {
		return &fderrors.WorkflowError{Op: "favorite", Path: w.name, Err: fderrors.ErrInvalid}
	}

	m := w.manager
	if err := m.writeMetadata(ctx, m.favoritePathsWith(w, value)); err != nil {
		return err
	}
	w.isFavorite = value
	m.emit(EventFavorite, w)
	return nil
}

// Delete removes the workflow from the store, the catalog and the open stack.
// A favorite is cleared first so the favorites list never names a missing
// document.
func (w *Workflow) Delete(ctx context.Context) error {
	m := w.manager
	if w.isFavorite {
		if err := w.Favorite(ctx, false); err != nil {
			return err
		}
	}

	if w.path != "" {
		if err := m.store.Delete(ctx, m.key(w.path)); err != nil {
			return m.fail("delete", w.path, err)
		}
	}

	m.removeFromCatalog(w)
	wasOpen := m.removeFromStack(w)
	w.tracker = nil
	log.Info(log.CatWorkflow, "deleted workflow", "id", w.id, "path", w.path)

	m.emit(EventDelete, w)
	if wasOpen {
		m.emit(EventChange, nil)
	}
	return nil
}
