// Package canvas provides the in-memory editor surface used outside the
// graphical editor. It holds the graph of the workflow currently loaded and
// the last viewport handed back by its change tracker.
package canvas

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/chazuruo/flowdeck/internal/changetracker"
	fderrors "github.com/chazuruo/flowdeck/internal/errors"
	"github.com/chazuruo/flowdeck/internal/log"
	"github.com/chazuruo/flowdeck/internal/workflows"
)

// Document is a canvas backed by a JSON byte slice.
type Document struct {
	mu       sync.Mutex
	workflow *workflows.Workflow
	content  []byte
	viewport *changetracker.Viewport
}

var _ workflows.Canvas = (*Document)(nil)

// New returns an empty canvas.
func New() *Document {
	return &Document{}
}

// Load replaces the canvas content with the graph of wf.
func (d *Document) Load(ctx context.Context, wf *workflows.Workflow, content []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(content) > 0 && !json.Valid(content) {
		return &fderrors.WorkflowError{Op: "load", Path: wf.Path(), Err: fmt.Errorf("graph is not valid JSON: %w", fderrors.ErrInvalid)}
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.workflow = wf
	d.content = bytes.Clone(content)
	d.viewport = viewportOf(content)
	log.Debug(log.CatSession, "canvas loaded", "workflow", wf.String(), "bytes", len(content))
	return nil
}

// Serialize returns the current graph.
func (d *Document) Serialize(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.content == nil {
		return []byte("{}"), nil
	}
	return bytes.Clone(d.content), nil
}

// SetContent replaces the graph as if the user had edited it and returns the
// new state for the workflow's change tracker.
func (d *Document) SetContent(content []byte) ([]byte, error) {
	if !json.Valid(content) {
		return nil, fmt.Errorf("graph is not valid JSON: %w", fderrors.ErrInvalid)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.content = bytes.Clone(content)
	return bytes.Clone(content), nil
}

// Workflow returns the workflow last loaded, or nil.
func (d *Document) Workflow() *workflows.Workflow {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.workflow
}

// SetViewport moves the canvas to v. Trackers call it on Restore.
func (d *Document) SetViewport(v changetracker.Viewport) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.viewport = &v

	patched, err := withViewport(d.content, v)
	if err != nil {
		log.Warn(log.CatSession, "viewport not applied", "error", err)
		return
	}
	d.content = patched
}

// Viewport returns the last viewport applied to the canvas.
func (d *Document) Viewport() (changetracker.Viewport, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.viewport == nil {
		return changetracker.Viewport{}, false
	}
	return *d.viewport, true
}

// TrackerFactory creates change trackers that restore their viewport onto d.
func (d *Document) TrackerFactory() workflows.TrackerFactory {
	return func(_ *workflows.Workflow, initial []byte) workflows.ChangeTracker {
		return changetracker.New(initial, changetracker.WithViewportSink(d.SetViewport))
	}
}

func withViewport(content []byte, v changetracker.Viewport) ([]byte, error) {
	graph := map[string]any{}
	if len(content) > 0 {
		if err := json.Unmarshal(content, &graph); err != nil {
			return nil, err
		}
		if graph == nil {
			graph = map[string]any{}
		}
	}
	extra, _ := graph["extra"].(map[string]any)
	if extra == nil {
		extra = map[string]any{}
	}
	extra["ds"] = v
	graph["extra"] = extra
	return json.Marshal(graph)
}

func viewportOf(content []byte) *changetracker.Viewport {
	var graph struct {
		Extra struct {
			DS *changetracker.Viewport `json:"ds"`
		} `json:"extra"`
	}
	if err := json.Unmarshal(content, &graph); err != nil {
		return nil
	}
	return graph.Extra.DS
}
