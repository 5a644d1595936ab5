// Package workflows manages the catalog of workflow documents and the stack
// of workflows open for editing.
//
// All Manager and Workflow methods are meant to be called from one goroutine.
// Observers receive lifecycle events through Subscribe.
package workflows

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"slices"
	"strings"

	"github.com/chazuruo/flowdeck/internal/docstore"
	fderrors "github.com/chazuruo/flowdeck/internal/errors"
	"github.com/chazuruo/flowdeck/internal/log"
	"github.com/chazuruo/flowdeck/internal/pubsub"
)

const (
	// DefaultDir is the store prefix workflows live under.
	DefaultDir = "workflows"

	// DefaultMetadataFile holds the favorites list, relative to the workflows directory.
	DefaultMetadataFile = ".index.json"
)

// Metadata is the document that stores the favorites list.
type Metadata struct {
	Favorites []string `json:"favorites"`
}

// Selector picks the workflow SetActive opens: an existing workflow, a path
// looked up in the catalog, or neither for a new document.
type Selector struct {
	Workflow *Workflow
	Path     string
}

// ByWorkflow selects wf.
func ByWorkflow(wf *Workflow) Selector { return Selector{Workflow: wf} }

// ByPath selects the catalog workflow stored at path.
func ByPath(path string) Selector { return Selector{Path: path} }

// NewDocument selects a new unsaved document.
func NewDocument() Selector { return Selector{} }

// CloseOptions controls Close.
type CloseOptions struct {
	// WarnIfUnsaved asks whether to save a dirty workflow before closing it.
	WarnIfUnsaved bool
}

// Option configures a Manager.
type Option func(*Manager)

// WithSettings sets the session settings store.
func WithSettings(s Settings) Option {
	return func(m *Manager) { m.settings = s }
}

// WithCanvas sets the canvas workflows are loaded into and serialized from.
func WithCanvas(c Canvas) Option {
	return func(m *Manager) { m.canvas = c }
}

// WithPrompter sets the prompter used for names and confirmations.
func WithPrompter(p Prompter) Option {
	return func(m *Manager) { m.prompter = p }
}

// WithReporter sets where recoverable failures are reported.
func WithReporter(r Reporter) Option {
	return func(m *Manager) { m.reporter = r }
}

// WithTrackerFactory sets how change trackers are created.
func WithTrackerFactory(f TrackerFactory) Option {
	return func(m *Manager) { m.trackerFactory = f }
}

// WithDir sets the store prefix workflows live under.
func WithDir(dir string) Option {
	return func(m *Manager) { m.dir = dir }
}

// WithMetadataFile sets the favorites document name inside the workflows directory.
func WithMetadataFile(name string) Option {
	return func(m *Manager) { m.metadataFile = name }
}

// WithBroker sets the broker events are published on.
func WithBroker(b *pubsub.Broker[Event]) Option {
	return func(m *Manager) { m.broker = b }
}

// Manager owns the workflow catalog and the open stack.
type Manager struct {
	store          docstore.Store
	dir            string
	metadataFile   string
	settings       Settings
	canvas         Canvas
	prompter       Prompter
	reporter       Reporter
	trackerFactory TrackerFactory
	broker         *pubsub.Broker[Event]

	catalog      []*Workflow
	openStack    []*Workflow
	unsavedCount int
}

// NewManager creates a Manager on store.
func NewManager(store docstore.Store, opts ...Option) *Manager {
	m := &Manager{
		store:        store,
		dir:          DefaultDir,
		metadataFile: DefaultMetadataFile,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.settings == nil {
		m.settings = newMemorySettings()
	}
	if m.reporter == nil {
		m.reporter = logReporter{}
	}
	if m.trackerFactory == nil {
		m.trackerFactory = defaultTrackerFactory
	}
	if m.broker == nil {
		m.broker = pubsub.NewBroker[Event]()
	}
	return m
}

// LoadCatalog reads the favorites list and the workflow listing from the store.
// Workflows still listed keep their identity across refreshes. On failure the
// catalog is emptied and the error is reported and returned.
func (m *Manager) LoadCatalog(ctx context.Context) error {
	favorites, err := m.readMetadata(ctx)
	if err != nil {
		m.catalog = nil
		return m.fail("load catalog", m.dir, err)
	}

	entries, err := m.store.List(ctx, m.dir, docstore.ListOptions{Recursive: true, WithMetadata: true})
	if err != nil && !fderrors.IsNotFound(err) {
		m.catalog = nil
		return m.fail("load catalog", m.dir, err)
	}

	favSet := make(map[string]bool, len(favorites))
	for _, f := range favorites {
		favSet[f] = true
	}
	existing := make(map[string]*Workflow, len(m.catalog))
	for _, wf := range m.catalog {
		existing[wf.path] = wf
	}

	catalog := make([]*Workflow, 0, len(entries))
	for _, e := range entries {
		if e.Path == m.metadataFile || !strings.EqualFold(path.Ext(e.Path), Extension) {
			continue
		}
		wf, ok := existing[e.Path]
		if !ok {
			wf = newWorkflow(m, e.Path, "")
		}
		wf.isFavorite = favSet[e.Path]
		catalog = append(catalog, wf)
	}
	m.catalog = catalog

	log.Debug(log.CatWorkflow, "loaded catalog", "workflows", len(catalog), "favorites", len(favorites))
	return nil
}

func (m *Manager) readMetadata(ctx context.Context) ([]string, error) {
	data, err := m.store.Read(ctx, m.key(m.metadataFile))
	if fderrors.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var meta Metadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("parse %s: %w", m.metadataFile, err)
	}
	return meta.Favorites, nil
}

// PersistMetadata writes the current favorites list.
func (m *Manager) PersistMetadata(ctx context.Context) error {
	return m.writeMetadata(ctx, m.favoritePathsWith(nil, false))
}

func (m *Manager) writeMetadata(ctx context.Context, favorites []string) error {
	if favorites == nil {
		favorites = []string{}
	}
	data, err := json.Marshal(Metadata{Favorites: favorites})
	if err != nil {
		return m.fail("persist metadata", m.metadataFile, err)
	}
	if err := m.store.Write(ctx, m.key(m.metadataFile), data, docstore.WriteOptions{Overwrite: true}); err != nil {
		return m.fail("persist metadata", m.metadataFile, err)
	}
	return nil
}

// favoritePathsWith lists favorite paths in catalog order, with wf counted as
// favorite iff value.
func (m *Manager) favoritePathsWith(wf *Workflow, value bool) []string {
	var out []string
	seen := false
	for _, c := range m.catalog {
		fav := c.isFavorite
		if c == wf {
			fav = value
			seen = true
		}
		if fav && c.path != "" {
			out = append(out, c.path)
		}
	}
	if wf != nil && !seen && value && wf.path != "" {
		out = append(out, wf.path)
	}
	return out
}

// SetActive moves the selected workflow to the front of the open stack,
// opening it if needed, and records it as the session's active workflow.
func (m *Manager) SetActive(_ context.Context, sel Selector) (*Workflow, error) {
	wf := sel.Workflow
	if wf == nil && sel.Path != "" {
		if found := m.Lookup(sel.Path); found != nil {
			wf = found
			if !wf.IsOpen() {
				wf.unsaved = m.settings.GetBool(KeyPreviousUnsaved)
			}
		}
	}
	if wf == nil {
		wf = newWorkflow(m, "", m.nextUnsavedName())
		wf.unsaved = true
	}

	if i := slices.Index(m.openStack, wf); i >= 0 {
		m.openStack = slices.Delete(m.openStack, i, i+1)
	}
	m.openStack = slices.Insert(m.openStack, 0, wf)

	m.syncSession()
	m.emit(EventChange, nil)
	return wf, nil
}

// RestoreSession reopens the workflow that was active in the previous
// session, or a new document when there was none.
func (m *Manager) RestoreSession(ctx context.Context) (*Workflow, error) {
	prev := m.settings.GetString(KeyPreviousPath)
	wf, err := m.SetActive(ctx, ByPath(prev))
	if err != nil {
		return nil, err
	}
	if wf.IsPersisted() && !wf.IsOpen() {
		content, err := wf.FetchContent(ctx)
		if err != nil {
			return wf, err
		}
		if err := wf.attach(ctx, content); err != nil {
			return wf, err
		}
	} else if !wf.IsOpen() {
		wf.Track(nil)
	}
	log.Info(log.CatSession, "restored session", "path", wf.path, "unsaved", wf.unsaved)
	return wf, nil
}

// Close removes wf from the open stack and ends its editing session.
func (m *Manager) Close(ctx context.Context, wf *Workflow, opts CloseOptions) (Outcome, error) {
	if !slices.Contains(m.openStack, wf) {
		return OutcomeCompleted, nil
	}

	if opts.WarnIfUnsaved && wf.unsaved {
		save, err := m.confirm(ctx, "Unsaved changes", fmt.Sprintf("Save changes to %q before closing?", wf.name))
		if err != nil {
			if fderrors.IsCanceled(err) {
				return OutcomeCanceled, nil
			}
			return OutcomeCompleted, err
		}
		if save {
			outcome, err := wf.Save(ctx)
			if err != nil || outcome != OutcomeCompleted {
				return outcome, err
			}
		}
	}

	m.removeFromStack(wf)
	wf.tracker = nil
	if wf.IsPersisted() {
		wf.unsaved = false
	}
	log.Debug(log.CatWorkflow, "closed workflow", "id", wf.id, "path", wf.path)
	m.emit(EventChange, nil)
	return OutcomeCompleted, nil
}

// ActiveWorkflow returns the front of the open stack, or nil.
func (m *Manager) ActiveWorkflow() *Workflow {
	if len(m.openStack) == 0 {
		return nil
	}
	return m.openStack[0]
}

// Workflows returns the catalog in discovery order.
func (m *Manager) Workflows() []*Workflow {
	return slices.Clone(m.catalog)
}

// OpenWorkflows returns the open stack, most recently activated first.
func (m *Manager) OpenWorkflows() []*Workflow {
	return slices.Clone(m.openStack)
}

// Favorites returns the favorite workflows in catalog order.
func (m *Manager) Favorites() []*Workflow {
	var out []*Workflow
	for _, wf := range m.catalog {
		if wf.isFavorite {
			out = append(out, wf)
		}
	}
	return out
}

// Lookup returns the catalog workflow stored at path, or nil.
func (m *Manager) Lookup(path string) *Workflow {
	if path == "" {
		return nil
	}
	for _, wf := range m.catalog {
		if wf.path == path {
			return wf
		}
	}
	return nil
}

// Subscribe returns a channel of lifecycle events until ctx is done.
func (m *Manager) Subscribe(ctx context.Context) <-chan pubsub.Event[Event] {
	return m.broker.Subscribe(ctx)
}

// Dir returns the store prefix workflows live under.
func (m *Manager) Dir() string {
	return m.dir
}

// nextUnsavedName advances the process-wide counter of unsaved documents.
func (m *Manager) nextUnsavedName() string {
	m.unsavedCount++
	return unsavedName(m.unsavedCount)
}

func (m *Manager) newTracker(wf *Workflow, initial []byte) ChangeTracker {
	return m.trackerFactory(wf, initial)
}

func (m *Manager) key(p string) string {
	if m.dir == "" {
		return p
	}
	return path.Join(m.dir, p)
}

// ensureWorkflow returns the catalog workflow at p, adding one if missing.
func (m *Manager) ensureWorkflow(p string) *Workflow {
	if wf := m.Lookup(p); wf != nil {
		return wf
	}
	wf := newWorkflow(m, p, "")
	m.catalog = append(m.catalog, wf)
	return wf
}

// adopt gives wf the path target. A different workflow that held target is
// dropped, and the favorites list follows the move.
func (m *Manager) adopt(ctx context.Context, wf *Workflow, target string) {
	persist := wf.isFavorite
	stackChanged := false
	if other := m.Lookup(target); other != nil && other != wf {
		persist = persist || other.isFavorite
		m.removeFromCatalog(other)
		if m.removeFromStack(other) {
			other.tracker = nil
			stackChanged = true
		}
	}

	wf.setPath(target)
	if !slices.Contains(m.catalog, wf) {
		m.catalog = append(m.catalog, wf)
	}
	if persist {
		// Already reported on failure; the rename itself succeeded.
		_ = m.PersistMetadata(ctx)
	}
	if m.ActiveWorkflow() == wf {
		m.setSetting(KeyPreviousPath, target)
	}
	m.emit(EventRename, wf)
	if stackChanged {
		m.emit(EventChange, nil)
	}
}

func (m *Manager) removeFromCatalog(wf *Workflow) {
	if i := slices.Index(m.catalog, wf); i >= 0 {
		m.catalog = slices.Delete(m.catalog, i, i+1)
	}
}

// removeFromStack reports whether wf was open. Removing the active workflow
// makes the next one active.
func (m *Manager) removeFromStack(wf *Workflow) bool {
	i := slices.Index(m.openStack, wf)
	if i < 0 {
		return false
	}
	m.openStack = slices.Delete(m.openStack, i, i+1)
	if i == 0 {
		m.syncSession()
	}
	return true
}

// syncSession records the active workflow in the session settings.
func (m *Manager) syncSession() {
	active := m.ActiveWorkflow()
	if active == nil {
		m.setSetting(KeyPreviousPath, "")
		m.setSetting(KeyPreviousUnsaved, false)
		return
	}
	m.setSetting(KeyPreviousPath, active.path)
	m.setSetting(KeyPreviousUnsaved, active.unsaved)
}

func (m *Manager) setSetting(key string, value any) {
	if err := m.settings.Set(key, value); err != nil {
		m.reporter.Report(fmt.Errorf("save session setting %s: %w", key, err))
	}
}

func (m *Manager) promptName(ctx context.Context, title, def string) (string, error) {
	if m.prompter == nil {
		return "", fderrors.ErrCanceled
	}
	name, err := m.prompter.PromptName(ctx, title, def)
	if err != nil {
		return "", err
	}
	if name == "" {
		return "", fderrors.ErrCanceled
	}
	return name, nil
}

func (m *Manager) confirm(ctx context.Context, title, message string) (bool, error) {
	if m.prompter == nil {
		return false, nil
	}
	return m.prompter.Confirm(ctx, title, message)
}

func (m *Manager) confirmOverwrite(target string) confirmFunc {
	return func(ctx context.Context) (bool, error) {
		return m.confirm(ctx, "Overwrite workflow",
			fmt.Sprintf("Workflow %q already exists, do you want to overwrite it?", target))
	}
}

// fail reports err and returns it with the operation attached.
func (m *Manager) fail(op, p string, err error) error {
	if _, ok := fderrors.AsWorkflowError(err); !ok {
		err = &fderrors.WorkflowError{Op: op, Path: p, Err: err}
	}
	m.reporter.Report(err)
	return err
}

func (m *Manager) emit(t EventType, wf *Workflow) {
	if wf != nil {
		log.Debug(log.CatWorkflow, "event", "type", t, "id", wf.id, "path", wf.path)
	} else {
		log.Debug(log.CatWorkflow, "event", "type", t)
	}
	m.broker.Publish(t.brokerType(), Event{Type: t, Workflow: wf})
}
