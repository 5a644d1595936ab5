package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/chazuruo/flowdeck/internal/export"
)

// DiffOptions contains the options for the diff command.
type DiffOptions struct {
	ConfigPath string
}

// NewDiffCommand creates the diff command.
func NewDiffCommand() *cobra.Command {
	opts := &DiffOptions{}

	cmd := &cobra.Command{
		Use:   "diff <path> <file>",
		Short: "Compare a saved workflow with a document",
		Long: `Show the lines that differ between a saved workflow and a document file.

Both graphs are normalized first, so key order and whitespace do not count
as changes.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDiff(cmd.Context(), cmd.OutOrStdout(), args[0], args[1], opts)
		},
	}

	cmd.Flags().StringVar(&opts.ConfigPath, "config", "", "config file path")

	return cmd
}

func runDiff(ctx context.Context, w io.Writer, target, file string, opts *DiffOptions) error {
	edited, err := os.ReadFile(file)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", file, err)
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
	saved, err := wf.FetchContent(ctx)
	if err != nil {
		return err
	}

	out, changed, err := export.Diff(saved, edited)
	if err != nil {
		return err
	}
	if !changed {
		fmt.Fprintln(w, "No differences.")
		return nil
	}
	fmt.Fprintf(w, "--- %s\n+++ %s\n", wf.Path(), file)
	fmt.Fprint(w, out)
	return nil
}
