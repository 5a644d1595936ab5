package cli

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"

	"github.com/chazuruo/flowdeck/internal/export"
)

// ExportOptions contains the options for the export command.
type ExportOptions struct {
	ConfigPath string
	Format     string
	Out        string
	Template   string
	Render     bool
}

// NewExportCommand creates the export command.
func NewExportCommand() *cobra.Command {
	opts := &ExportOptions{}

	cmd := &cobra.Command{
		Use:   "export <path>",
		Short: "Export a workflow as Markdown, YAML or JSON",
		Long: `Export a saved workflow.

Formats:
- md:   a summary of nodes and links (customizable with --template)
- yaml: the graph as YAML
- json: the graph as indented JSON

Relative template names are looked up in the templates folder next to the
config file first.

Examples:
  flowdeck export render
  flowdeck export team/render --format yaml --out render.yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(cmd.Context(), cmd.OutOrStdout(), args[0], opts)
		},
	}

	cmd.Flags().StringVar(&opts.ConfigPath, "config", "", "config file path")
	cmd.Flags().StringVarP(&opts.Format, "format", "f", "md", "output format (md, yaml, json)")
	cmd.Flags().StringVarP(&opts.Out, "out", "o", "", "output file (default stdout)")
	cmd.Flags().StringVar(&opts.Template, "template", "", "custom Markdown template")
	cmd.Flags().BoolVar(&opts.Render, "render", false, "render Markdown for the terminal")

	return cmd
}

func runExport(ctx context.Context, w io.Writer, target string, opts *ExportOptions) error {
	exporter, err := export.NewExporter(export.Options{
		Format:         export.Format(opts.Format),
		Out:            opts.Out,
		CustomTemplate: opts.Template,
		TemplateDir:    filepath.Join(filepath.Dir(getConfigPath(opts.ConfigPath)), "templates"),
	})
	if err != nil {
		return err
	}

	a, err := openSession(ctx, sessionOptions{configPath: opts.ConfigPath})
	if err != nil {
		return err
	}
	defer a.Close(ctx)

	wf, err := a.Resolve(target)
	if err != nil {
		return err
	}
	content, err := wf.FetchContent(ctx)
	if err != nil {
		return err
	}

	output, err := exporter.Export(export.Document{
		Name:     wf.Name(),
		Path:     wf.Path(),
		Favorite: wf.IsFavorite(),
		Content:  content,
	})
	if err != nil {
		return err
	}

	if opts.Out == "" || opts.Out == "-" {
		if opts.Render && export.Format(opts.Format) == export.FormatMarkdown {
			rendered, err := glamour.Render(output, "dark")
			if err != nil {
				return fmt.Errorf("failed to render markdown: %w", err)
			}
			output = rendered
		}
		fmt.Fprint(w, output)
		return nil
	}
	fmt.Fprintf(w, "Exported %s to %s\n", wf.Path(), opts.Out)
	return nil
}
