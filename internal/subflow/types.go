// Package subflow derives the external pins and widgets of a container node
// from the export metadata of the nodes in its sub-graph.
package subflow

import (
	"encoding/json"
	"fmt"
)

// Document is a persisted sub-graph: the container title and its inner nodes.
type Document struct {
	Title string `json:"title"`
	Nodes []Node `json:"nodes"`
}

// Node is one node inside a sub-graph.
type Node struct {
	ID      int      `json:"id"`
	Type    string   `json:"type"`
	Title   string   `json:"title,omitempty"`
	Exports *Exports `json:"exports,omitempty"`
}

// Exports lists what a node exposes on its container.
type Exports struct {
	Inputs  []ExportedSlot `json:"inputs,omitempty"`
	Outputs []ExportedSlot `json:"outputs,omitempty"`
	Widgets []WidgetSpec   `json:"widgets,omitempty"`
}

// ExportedSlot is one exported input or output. Attributes other than the
// well-known ones are kept in Extra and copied onto the container pin.
type ExportedSlot struct {
	Name      string
	Type      string
	Link      *int
	SlotIndex int
	Extra     map[string]any
}

var slotKeys = map[string]bool{"name": true, "type": true, "link": true, "slot_index": true}

func (s *ExportedSlot) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("exported slot: %w", err)
	}

	var known struct {
		Name      string `json:"name"`
		Type      string `json:"type"`
		Link      *int   `json:"link"`
		SlotIndex int    `json:"slot_index"`
	}
	if err := json.Unmarshal(data, &known); err != nil {
		return fmt.Errorf("exported slot: %w", err)
	}
	*s = ExportedSlot{Name: known.Name, Type: known.Type, Link: known.Link, SlotIndex: known.SlotIndex}

	for k, v := range raw {
		if slotKeys[k] {
			continue
		}
		var val any
		if err := json.Unmarshal(v, &val); err != nil {
			return fmt.Errorf("exported slot %q attribute %s: %w", known.Name, k, err)
		}
		if s.Extra == nil {
			s.Extra = make(map[string]any)
		}
		s.Extra[k] = val
	}
	return nil
}

func (s ExportedSlot) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(s.Extra)+4)
	for k, v := range s.Extra {
		out[k] = v
	}
	out["name"] = s.Name
	out["type"] = s.Type
	out["link"] = s.Link
	out["slot_index"] = s.SlotIndex
	return json.Marshal(out)
}

// Pin is an input or output on the container.
type Pin struct {
	Name  string         `json:"name"`
	Type  string         `json:"type"`
	Extra map[string]any `json:"extra,omitempty"`
}

// SlotRef addresses one slot of an inner node.
type SlotRef struct {
	NodeID int `json:"node_id"`
	Slot   int `json:"slot"`
}

// Direction selects inputs or outputs.
type Direction int

const (
	Input Direction = iota
	Output
)

// Decode parses a sub-graph document.
func Decode(data []byte) (*Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode subflow: %w", err)
	}
	return &doc, nil
}
