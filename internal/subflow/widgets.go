package subflow

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// WidgetKind is the editor control a widget renders as.
type WidgetKind string

const (
	KindChoice  WidgetKind = "choice"
	KindNumber  WidgetKind = "number"
	KindText    WidgetKind = "text"
	KindToggle  WidgetKind = "toggle"
	KindTrigger WidgetKind = "trigger"
)

// Widget is an editable value on the container.
type Widget struct {
	Name    string         `json:"name"`
	Kind    WidgetKind     `json:"kind"`
	Value   any            `json:"value"`
	Options map[string]any `json:"options,omitempty"`

	// OnRemove runs when the widget is discarded during a rebuild.
	OnRemove func() `json:"-"`
}

// WidgetSpec is an exported widget: a name and an input config of the form
// [TYPE, {options}] where TYPE is a token such as "INT" or a list of choices.
type WidgetSpec struct {
	Name   string          `json:"name"`
	Config json.RawMessage `json:"config"`
}

// Build translates the spec into a widget. ok is false for config types that
// have no widget form, such as links to other nodes.
func (s WidgetSpec) Build() (w Widget, ok bool, err error) {
	var config []json.RawMessage
	if err := json.Unmarshal(s.Config, &config); err != nil || len(config) == 0 {
		return Widget{}, false, fmt.Errorf("widget %q: config must be a non-empty array", s.Name)
	}

	opts := map[string]any{}
	if len(config) > 1 {
		if err := json.Unmarshal(config[1], &opts); err != nil {
			return Widget{}, false, fmt.Errorf("widget %q options: %w", s.Name, err)
		}
		if opts == nil {
			opts = map[string]any{}
		}
	}

	w = Widget{Name: s.Name, Options: opts}

	if bytes.HasPrefix(bytes.TrimSpace(config[0]), []byte("[")) {
		var choices []any
		if err := json.Unmarshal(config[0], &choices); err != nil {
			return Widget{}, false, fmt.Errorf("widget %q choices: %w", s.Name, err)
		}
		w.Kind = KindChoice
		w.Options["values"] = choices
		w.Value = opts["default"]
		if w.Value == nil && len(choices) > 0 {
			w.Value = choices[0]
		}
		return w, true, nil
	}

	var token string
	if err := json.Unmarshal(config[0], &token); err != nil {
		return Widget{}, false, fmt.Errorf("widget %q: type must be a token or a list", s.Name)
	}

	switch token {
	case "COMBO":
		w.Kind = KindChoice
		values, _ := opts["values"].([]any)
		w.Value = opts["default"]
		if w.Value == nil && len(values) > 0 {
			w.Value = values[0]
		}
	case "INT", "FLOAT":
		w.Kind = KindNumber
		w.Value = numberOr(opts["default"], 0)
		if token == "INT" {
			w.Options["precision"] = 0
		}
	case "STRING":
		w.Kind = KindText
		w.Value = stringOr(opts["default"], "")
	case "BOOLEAN":
		w.Kind = KindToggle
		w.Value = boolOr(opts["default"], false)
	default:
		return Widget{}, false, nil
	}
	return w, true, nil
}

func numberOr(v any, def float64) float64 {
	if f, ok := v.(float64); ok {
		return f
	}
	return def
}

func stringOr(v any, def string) string {
	if s, ok := v.(string); ok {
		return s
	}
	return def
}

func boolOr(v any, def bool) bool {
	if b, ok := v.(bool); ok {
		return b
	}
	return def
}
