// Package export renders workflow documents for use outside the store.
package export

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/template"

	"gopkg.in/yaml.v3"

	fderrors "github.com/chazuruo/flowdeck/internal/errors"
)

// Format represents the export format.
type Format string

const (
	// FormatMarkdown exports a readable summary as Markdown.
	FormatMarkdown Format = "md"
	// FormatYAML exports the graph as YAML.
	FormatYAML Format = "yaml"
	// FormatJSON exports the graph as indented JSON.
	FormatJSON Format = "json"
)

// Document is a stored workflow to export.
type Document struct {
	Name     string
	Path     string
	Favorite bool
	Content  []byte
}

// Options contains export options.
type Options struct {
	Format Format

	// Out is the output file. Empty or "-" only returns the output.
	Out string

	// CustomTemplate replaces the built-in Markdown template. A relative
	// name is looked up in TemplateDir first.
	CustomTemplate string
	TemplateDir    string
}

// Exporter exports workflows in various formats.
type Exporter struct {
	format   Format
	outPath  string
	template *template.Template
}

// NewExporter creates a new exporter.
func NewExporter(opts Options) (*Exporter, error) {
	e := &Exporter{format: opts.Format, outPath: opts.Out}

	switch opts.Format {
	case FormatMarkdown:
		tmpl, err := loadTemplate(opts.CustomTemplate, opts.TemplateDir)
		if err != nil {
			return nil, err
		}
		e.template = tmpl
	case FormatYAML, FormatJSON:
		if opts.CustomTemplate != "" {
			return nil, fmt.Errorf("templates only apply to the %s format", FormatMarkdown)
		}
	default:
		return nil, fmt.Errorf("unsupported format: %s", opts.Format)
	}
	return e, nil
}

func loadTemplate(custom, dir string) (*template.Template, error) {
	if custom == "" {
		return template.New("export").Parse(builtinMarkdownTemplate)
	}

	path := custom
	if !filepath.IsAbs(path) && dir != "" {
		candidate := filepath.Join(dir, filepath.Base(path))
		if _, err := os.Stat(candidate); err == nil {
			path = candidate
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading template file: %w", err)
	}
	return template.New("export").Parse(string(data))
}

// Export renders doc and writes it to the output file, if any.
func (e *Exporter) Export(doc Document) (string, error) {
	var graph map[string]any
	if err := json.Unmarshal(doc.Content, &graph); err != nil {
		return "", &fderrors.WorkflowError{Op: "export", Path: doc.Path, Err: fmt.Errorf("graph is not a JSON object: %w", fderrors.ErrInvalid)}
	}

	var buf bytes.Buffer
	switch e.format {
	case FormatMarkdown:
		if err := e.template.Execute(&buf, templateData(doc, graph)); err != nil {
			return "", fmt.Errorf("executing template: %w", err)
		}
	case FormatYAML:
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(graph); err != nil {
			return "", fmt.Errorf("encoding YAML: %w", err)
		}
		if err := enc.Close(); err != nil {
			return "", fmt.Errorf("encoding YAML: %w", err)
		}
	case FormatJSON:
		if err := json.Indent(&buf, doc.Content, "", "  "); err != nil {
			return "", fmt.Errorf("indenting JSON: %w", err)
		}
		buf.WriteByte('\n')
	}

	output := buf.String()
	if e.outPath != "" && e.outPath != "-" {
		if err := os.WriteFile(e.outPath, []byte(output), 0644); err != nil {
			return "", fmt.Errorf("writing output file: %w", err)
		}
	}
	return output, nil
}

// NodeSummary is one node as shown in the Markdown export.
type NodeSummary struct {
	ID    any
	Type  string
	Title string
}

// templateData creates template data from a workflow graph.
func templateData(doc Document, graph map[string]any) map[string]any {
	var nodes []NodeSummary
	types := map[string]int{}
	if raw, ok := graph["nodes"].([]any); ok {
		for _, n := range raw {
			node, ok := n.(map[string]any)
			if !ok {
				continue
			}
			s := NodeSummary{ID: node["id"]}
			s.Type, _ = node["type"].(string)
			s.Title, _ = node["title"].(string)
			nodes = append(nodes, s)
			types[s.Type]++
		}
	}

	links := 0
	if raw, ok := graph["links"].([]any); ok {
		links = len(raw)
	}

	typeNames := make([]string, 0, len(types))
	for t := range types {
		if t != "" {
			typeNames = append(typeNames, t)
		}
	}
	sort.Strings(typeNames)

	return map[string]any{
		"Name":       doc.Name,
		"Path":       doc.Path,
		"Favorite":   doc.Favorite,
		"Nodes":      nodes,
		"NodeCount":  len(nodes),
		"LinkCount":  links,
		"Types":      typeNames,
		"TypeString": strings.Join(typeNames, ", "),
	}
}

// builtinMarkdownTemplate is the default Markdown template.
const builtinMarkdownTemplate = "# {{.Name}}{{if .Favorite}} ★{{end}}\n\n" +
	"{{if .Path}}**Path:** {{.Path}}\n\n{{end}}" +
	"**Nodes:** {{.NodeCount}} • **Links:** {{.LinkCount}}\n" +
	"{{if .Types}}**Node types:** {{.TypeString}}\n{{end}}\n" +
	"## Nodes\n\n" +
	"| ID | Type | Title |\n|----|------|-------|\n" +
	"{{range .Nodes}}| {{.ID}} | {{.Type}} | {{.Title}} |\n{{end}}" +
	"\n---\n*Generated by flowdeck*\n"
