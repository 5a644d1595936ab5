// Package changetracker decides whether an open workflow differs from its
// last persisted state.
//
// Graphs are compared by a blake2b digest of their canonical JSON form with
// the viewport (extra.ds) removed, so panning or zooming never marks a
// workflow dirty.
package changetracker

import (
	"bytes"
	"encoding/json"

	"github.com/google/uuid"
	"golang.org/x/crypto/blake2b"
)

// Viewport is the canvas position stored under extra.ds in a graph.
type Viewport struct {
	Scale  float64    `json:"scale"`
	Offset [2]float64 `json:"offset"`
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithViewportSink sets the function Restore hands the saved viewport to.
func WithViewportSink(fn func(Viewport)) Option {
	return func(t *Tracker) {
		t.sink = fn
	}
}

// Tracker holds the live graph of one open workflow.
type Tracker struct {
	id       string
	baseline [blake2b.Size256]byte
	active   []byte
	viewport *Viewport
	sink     func(Viewport)
}

// New starts tracking with initial as both the live state and the baseline.
func New(initial []byte, opts ...Option) *Tracker {
	t := &Tracker{id: uuid.NewString()}
	for _, opt := range opts {
		opt(t)
	}
	t.Reset(initial)
	return t
}

// ID identifies the editing session.
func (t *Tracker) ID() string {
	return t.id
}

// ActiveState returns a copy of the latest graph.
func (t *Tracker) ActiveState() []byte {
	return bytes.Clone(t.active)
}

// Update records state as the live graph and reports whether it is dirty.
func (t *Tracker) Update(state []byte) bool {
	t.active = bytes.Clone(state)
	t.captureViewport(state)
	return t.Dirty()
}

// Reset makes state the persisted baseline. A nil state keeps the live graph.
func (t *Tracker) Reset(state []byte) {
	if state != nil {
		t.active = bytes.Clone(state)
		t.captureViewport(state)
	}
	t.baseline = digest(t.active)
}

// Restore hands the last captured viewport to the sink, if both exist.
func (t *Tracker) Restore() {
	if t.viewport != nil && t.sink != nil {
		t.sink(*t.viewport)
	}
}

// Dirty reports whether the live graph differs from the baseline.
func (t *Tracker) Dirty() bool {
	return digest(t.active) != t.baseline
}

// Viewport returns the last viewport seen in a graph.
func (t *Tracker) Viewport() (Viewport, bool) {
	if t.viewport == nil {
		return Viewport{}, false
	}
	return *t.viewport, true
}

func (t *Tracker) captureViewport(state []byte) {
	var graph struct {
		Extra struct {
			DS *Viewport `json:"ds"`
		} `json:"extra"`
	}
	if err := json.Unmarshal(state, &graph); err != nil || graph.Extra.DS == nil {
		return
	}
	t.viewport = graph.Extra.DS
}

// digest hashes the canonical form of a graph. Content that is not a JSON
// object is hashed as is.
func digest(state []byte) [blake2b.Size256]byte {
	var graph map[string]any
	if err := json.Unmarshal(state, &graph); err != nil || graph == nil {
		return blake2b.Sum256(state)
	}
	if extra, ok := graph["extra"].(map[string]any); ok {
		delete(extra, "ds")
		if len(extra) == 0 {
			delete(graph, "extra")
		}
	}
	canonical, err := json.Marshal(graph)
	if err != nil {
		return blake2b.Sum256(state)
	}
	return blake2b.Sum256(canonical)
}
