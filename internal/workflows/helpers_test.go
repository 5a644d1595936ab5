package workflows

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/chazuruo/flowdeck/internal/docstore"
	"github.com/chazuruo/flowdeck/internal/pubsub"
)

type mockPrompter struct {
	mock.Mock
}

func (m *mockPrompter) PromptName(ctx context.Context, title, defaultValue string) (string, error) {
	args := m.Called(ctx, title, defaultValue)
	return args.String(0), args.Error(1)
}

func (m *mockPrompter) Confirm(ctx context.Context, title, message string) (bool, error) {
	args := m.Called(ctx, title, message)
	return args.Bool(0), args.Error(1)
}

type fakeCanvas struct {
	content []byte
	loaded  []string
}

func (c *fakeCanvas) Load(_ context.Context, wf *Workflow, content []byte) error {
	c.content = append([]byte(nil), content...)
	c.loaded = append(c.loaded, wf.Path())
	return nil
}

func (c *fakeCanvas) Serialize(context.Context) ([]byte, error) {
	return append([]byte(nil), c.content...), nil
}

type recordingReporter struct {
	errs []error
}

func (r *recordingReporter) Report(err error) {
	r.errs = append(r.errs, err)
}

// spyStore records every call and can fail selected operations.
type spyStore struct {
	docstore.Store

	mu    sync.Mutex
	calls []string
	fail  map[string]error
}

func newSpyStore() *spyStore {
	return &spyStore{Store: docstore.NewMemoryStore(), fail: make(map[string]error)}
}

func (s *spyStore) record(op, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, op+" "+path)
	return s.fail[op]
}

func (s *spyStore) List(ctx context.Context, prefix string, opts docstore.ListOptions) ([]docstore.Entry, error) {
	if err := s.record("list", prefix); err != nil {
		return nil, err
	}
	return s.Store.List(ctx, prefix, opts)
}

func (s *spyStore) Read(ctx context.Context, path string) ([]byte, error) {
	if err := s.record("read", path); err != nil {
		return nil, err
	}
	return s.Store.Read(ctx, path)
}

func (s *spyStore) Write(ctx context.Context, path string, content []byte, opts docstore.WriteOptions) error {
	if err := s.record("write", path); err != nil {
		return err
	}
	return s.Store.Write(ctx, path, content, opts)
}

func (s *spyStore) Move(ctx context.Context, oldPath, newPath string, opts docstore.WriteOptions) error {
	if err := s.record("move", oldPath); err != nil {
		return err
	}
	return s.Store.Move(ctx, oldPath, newPath, opts)
}

func (s *spyStore) Delete(ctx context.Context, path string) error {
	if err := s.record("delete", path); err != nil {
		return err
	}
	return s.Store.Delete(ctx, path)
}

func (s *spyStore) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.calls...)
}

func (s *spyStore) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = nil
}

type fixture struct {
	t        *testing.T
	ctx      context.Context
	store    *spyStore
	settings *memorySettings
	canvas   *fakeCanvas
	prompter *mockPrompter
	reporter *recordingReporter
	manager  *Manager
	events   <-chan pubsub.Event[Event]
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	f := &fixture{
		t:        t,
		ctx:      ctx,
		store:    newSpyStore(),
		settings: newMemorySettings(),
		canvas:   &fakeCanvas{},
		prompter: &mockPrompter{},
		reporter: &recordingReporter{},
	}
	f.manager = NewManager(f.store,
		WithSettings(f.settings),
		WithCanvas(f.canvas),
		WithPrompter(f.prompter),
		WithReporter(f.reporter),
	)
	f.events = f.manager.Subscribe(ctx)
	t.Cleanup(func() { f.prompter.AssertExpectations(t) })
	return f
}

// seed writes documents (paths relative to the workflows directory) and
// loads the catalog.
func (f *fixture) seed(docs map[string]string, favorites ...string) {
	f.t.Helper()
	for p, body := range docs {
		require.NoError(f.t, f.store.Store.Write(f.ctx, f.manager.key(p), []byte(body), docstore.WriteOptions{}))
	}
	if len(favorites) > 0 {
		require.NoError(f.t, f.manager.writeMetadata(f.ctx, favorites))
	}
	require.NoError(f.t, f.manager.LoadCatalog(f.ctx))
	f.drain()
	f.store.Reset()
}

func (f *fixture) read(p string) string {
	f.t.Helper()
	data, err := f.store.Store.Read(f.ctx, f.manager.key(p))
	require.NoError(f.t, err)
	return string(data)
}

func (f *fixture) exists(p string) bool {
	_, err := f.store.Store.Read(f.ctx, f.manager.key(p))
	return err == nil
}

// open loads the catalog workflow at p.
func (f *fixture) open(p string) *Workflow {
	f.t.Helper()
	wf := f.manager.Lookup(p)
	require.NotNil(f.t, wf, "workflow %s not in catalog", p)
	require.NoError(f.t, wf.Load(f.ctx))
	f.drain()
	f.store.Reset()
	return wf
}

// drain returns the events published so far.
func (f *fixture) drain() []Event {
	var out []Event
	for {
		select {
		case e := <-f.events:
			out = append(out, e.Payload)
		default:
			return out
		}
	}
}

func eventTypes(events []Event) []EventType {
	out := make([]EventType, 0, len(events))
	for _, e := range events {
		out = append(out, e.Type)
	}
	return out
}

func paths(wfs []*Workflow) []string {
	out := make([]string, 0, len(wfs))
	for _, wf := range wfs {
		out = append(out, wf.String())
	}
	return out
}
