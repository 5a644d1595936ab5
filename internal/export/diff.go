package export

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// Diff compares two graphs line by line after normalizing both to indented
// JSON with sorted keys. The result is a unified-style listing where changed
// lines start with "+" or "-"; changed reports whether any line differs.
func Diff(oldGraph, newGraph []byte) (out string, changed bool, err error) {
	a, err := canonical(oldGraph)
	if err != nil {
		return "", false, fmt.Errorf("old graph: %w", err)
	}
	b, err := canonical(newGraph)
	if err != nil {
		return "", false, fmt.Errorf("new graph: %w", err)
	}

	dmp := diffmatchpatch.New()
	ca, cb, lines := dmp.DiffLinesToChars(a, b)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(ca, cb, false), lines)

	var sb strings.Builder
	for _, d := range diffs {
		prefix := "  "
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			prefix = "+ "
			changed = true
		case diffmatchpatch.DiffDelete:
			prefix = "- "
			changed = true
		}
		for _, line := range strings.SplitAfter(d.Text, "\n") {
			if line == "" {
				continue
			}
			sb.WriteString(prefix)
			sb.WriteString(line)
		}
	}
	return sb.String(), changed, nil
}

func canonical(graph []byte) (string, error) {
	var v any
	if err := json.Unmarshal(graph, &v); err != nil {
		return "", fmt.Errorf("graph is not valid JSON: %w", err)
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data) + "\n", nil
}
