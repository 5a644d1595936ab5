package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/chazuruo/flowdeck/internal/workflows"
)

// ImportOptions contains the options for the import command.
type ImportOptions struct {
	ConfigPath string
	Name       string
	Force      bool
}

// NewImportCommand creates the import command.
func NewImportCommand() *cobra.Command {
	opts := &ImportOptions{}

	cmd := &cobra.Command{
		Use:   "import <file|->",
		Short: "Save a workflow document into the store",
		Long: `Import a workflow document from a file, or from stdin with "-".

The document is opened as a new workflow and saved under --name. Without
--name, the file name is used with --no-tui or --force and asked for otherwise.

Examples:
  flowdeck import graph.json
  flowdeck import graph.json --name team/render
  cat graph.json | flowdeck --no-tui import - --name render`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout(), args[0], opts)
		},
	}

	cmd.Flags().StringVar(&opts.ConfigPath, "config", "", "config file path")
	cmd.Flags().StringVar(&opts.Name, "name", "", "workflow name or path in the store")
	cmd.Flags().BoolVar(&opts.Force, "force", false, "overwrite an existing workflow")

	return cmd
}

func runImport(ctx context.Context, in io.Reader, w io.Writer, source string, opts *ImportOptions) error {
	var (
		content []byte
		err     error
	)
	if source == "-" {
		content, err = io.ReadAll(in)
	} else {
		content, err = os.ReadFile(source)
	}
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", source, err)
	}

	name := opts.Name
	if name == "" && (IsNoTUI() || opts.Force) {
		if source == "-" {
			return fmt.Errorf("--name is required when importing from stdin")
		}
		name = workflows.TrimExtension(filepath.Base(source))
	}

	a, err := openSession(ctx, sessionOptions{
		configPath: opts.ConfigPath,
		name:       name,
		overwrite:  opts.Force,
	})
	if err != nil {
		return err
	}
	defer a.Close(ctx)

	wf, outcome, err := a.Import(ctx, content, name)
	if err != nil {
		return err
	}
	if outcome == workflows.OutcomeCompleted {
		name = wf.Path()
	}
	printOutcome(w, outcome, fmt.Sprintf("Imported %s", name))
	return nil
}
