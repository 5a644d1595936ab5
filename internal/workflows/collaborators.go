package workflows

import (
	"context"

	"github.com/chazuruo/flowdeck/internal/changetracker"
	"github.com/chazuruo/flowdeck/internal/log"
)

// Session setting keys written on every active workflow change.
const (
	KeyPreviousPath    = "workflow.previous_path"
	KeyPreviousUnsaved = "workflow.previous_unsaved"
)

// Canvas is the editor surface a workflow is loaded into.
type Canvas interface {
	// Load replaces the canvas content with the graph of wf.
	Load(ctx context.Context, wf *Workflow, content []byte) error

	// Serialize returns the current graph in its persisted form.
	Serialize(ctx context.Context) ([]byte, error)
}

// Prompter asks the user for input. Implementations return errors.ErrCanceled
// when the user dismisses a prompt.
type Prompter interface {
	PromptName(ctx context.Context, title, defaultValue string) (string, error)
	Confirm(ctx context.Context, title, message string) (bool, error)
}

// Reporter surfaces recoverable failures to the user.
type Reporter interface {
	Report(err error)
}

// ReporterFunc adapts a function to Reporter.
type ReporterFunc func(err error)

func (f ReporterFunc) Report(err error) { f(err) }

// Settings is the durable key/value store that survives across sessions.
type Settings interface {
	GetString(key string) string
	GetBool(key string) bool
	Set(key string, value any) error
}

// ChangeTracker follows the live graph of one open workflow and decides
// whether it differs from the last persisted state.
type ChangeTracker interface {
	// ActiveState returns the latest graph seen by the tracker.
	ActiveState() []byte

	// Update records a new graph snapshot and reports whether it is dirty.
	Update(state []byte) bool

	// Reset makes state the persisted baseline.
	Reset(state []byte)

	// Restore reapplies the last known viewport.
	Restore()

	// Dirty reports whether the active state differs from the baseline.
	Dirty() bool
}

// TrackerFactory creates the change tracker for a workflow being opened.
type TrackerFactory func(wf *Workflow, initial []byte) ChangeTracker

func defaultTrackerFactory(_ *Workflow, initial []byte) ChangeTracker {
	return changetracker.New(initial)
}

type logReporter struct{}

func (logReporter) Report(err error) {
	log.ErrorErr(log.CatWorkflow, "workflow operation failed", err)
}

// memorySettings keeps session settings for the life of the process only.
type memorySettings struct {
	values map[string]any
}

func newMemorySettings() *memorySettings {
	return &memorySettings{values: make(map[string]any)}
}

func (s *memorySettings) GetString(key string) string {
	v, _ := s.values[key].(string)
	return v
}

func (s *memorySettings) GetBool(key string) bool {
	v, _ := s.values[key].(bool)
	return v
}

func (s *memorySettings) Set(key string, value any) error {
	s.values[key] = value
	return nil
}
