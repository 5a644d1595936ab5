package subflow

import (
	"math"

	"github.com/mattn/go-runewidth"

	"github.com/chazuruo/flowdeck/internal/log"
)

// Layout constants for the container's title bar.
const (
	MinWidth      = 140.0
	TitleCellSize = 8.4
	TitlePadding  = 40.0
)

// Container is a node that wraps a sub-graph and exposes part of it.
type Container struct {
	Title   string   `json:"title"`
	Inputs  []Pin    `json:"inputs"`
	Outputs []Pin    `json:"outputs"`
	Widgets []Widget `json:"widgets"`
	Width   float64  `json:"width"`

	inputMap  map[int]SlotRef
	outputMap map[int]SlotRef
}

// NewContainer creates an empty container with its width computed.
func NewContainer(title string) *Container {
	c := &Container{Title: title}
	c.resize()
	return c
}

// Container builds the container for the document, configured for the first time.
func (d *Document) Container() (*Container, error) {
	c := NewContainer(d.Title)
	if err := Rebuild(c, d.Nodes, nil); err != nil {
		return nil, err
	}
	return c, nil
}

// Route returns the inner slot a container pin forwards to.
func (c *Container) Route(dir Direction, slot int) (SlotRef, bool) {
	m := c.inputMap
	if dir == Output {
		m = c.outputMap
	}
	ref, ok := m[slot]
	return ref, ok
}

// Values returns the values of all widgets except triggers, in order. They can
// be passed back to Rebuild to keep user input across a reconfigure.
func (c *Container) Values() []any {
	var out []any
	for _, w := range c.Widgets {
		if w.Kind != KindTrigger {
			out = append(out, w.Value)
		}
	}
	return out
}

// Rebuild recomputes the pins and widgets of c from the exports of nodes.
// saved is nil when the container is configured for the first time; otherwise
// saved[i] becomes the value of the i-th rebuilt widget. On error c is left
// unchanged.
func Rebuild(c *Container, nodes []Node, saved []any) error {
	var (
		inputs, outputs []Pin
		built           []Widget
	)
	inputMap := make(map[int]SlotRef)
	outputMap := make(map[int]SlotRef)

	for _, n := range nodes {
		if n.Exports == nil {
			continue
		}
		for _, in := range n.Exports.Inputs {
			inputMap[len(inputs)] = SlotRef{NodeID: n.ID, Slot: in.SlotIndex}
			inputs = append(inputs, pinFrom(in))
		}
		for _, out := range n.Exports.Outputs {
			outputMap[len(outputs)] = SlotRef{NodeID: n.ID, Slot: out.SlotIndex}
			outputs = append(outputs, pinFrom(out))
		}
		for _, spec := range n.Exports.Widgets {
			w, ok, err := spec.Build()
			if err != nil {
				return err
			}
			if !ok {
				log.Debug(log.CatSubflow, "skipping widget without editor form", "node", n.ID, "widget", spec.Name)
				continue
			}
			if saved != nil && len(built) < len(saved) {
				w.Value = saved[len(built)]
			}
			built = append(built, w)
		}
	}

	var widgets []Widget
	for _, w := range c.Widgets {
		if w.Kind == KindTrigger {
			widgets = append(widgets, w)
			continue
		}
		if w.OnRemove != nil {
			w.OnRemove()
		}
	}

	c.Inputs = inputs
	c.Outputs = outputs
	c.inputMap = inputMap
	c.outputMap = outputMap
	c.Widgets = append(widgets, built...)

	c.resize()
	log.Debug(log.CatSubflow, "rebuilt container", "title", c.Title,
		"inputs", len(c.Inputs), "outputs", len(c.Outputs), "widgets", len(c.Widgets))
	return nil
}

func pinFrom(s ExportedSlot) Pin {
	p := Pin{Name: s.Name, Type: s.Type}
	if len(s.Extra) > 0 {
		p.Extra = make(map[string]any, len(s.Extra))
		for k, v := range s.Extra {
			p.Extra[k] = v
		}
	}
	return p
}

func (c *Container) resize() {
	w := float64(runewidth.StringWidth(c.Title))*TitleCellSize + TitlePadding
	c.Width = math.Max(MinWidth, w)
}
