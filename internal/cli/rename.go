package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

// RenameOptions contains the options for the rename command.
type RenameOptions struct {
	ConfigPath string
	Force      bool
}

// NewRenameCommand creates the rename command.
func NewRenameCommand() *cobra.Command {
	opts := &RenameOptions{}

	cmd := &cobra.Command{
		Use:     "rename <path> <new-path>",
		Aliases: []string{"mv"},
		Short:   "Rename or move a workflow",
		Long: `Rename a workflow. Its favorite flag and open state follow it.

An existing workflow at the new path is only replaced after confirmation,
or with --force.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRename(cmd.Context(), cmd.OutOrStdout(), args[0], args[1], opts)
		},
	}

	cmd.Flags().StringVar(&opts.ConfigPath, "config", "", "config file path")
	cmd.Flags().BoolVar(&opts.Force, "force", false, "overwrite an existing workflow")

	return cmd
}

func runRename(ctx context.Context, w io.Writer, from, to string, opts *RenameOptions) error {
	a, err := openSession(ctx, sessionOptions{
		configPath: opts.ConfigPath,
		overwrite:  opts.Force,
		restore:    true,
	})
	if err != nil {
		return err
	}
	defer a.Close(ctx)

	wf, err := a.Resolve(from)
	if err != nil {
		return err
	}
	old := wf.Path()

	outcome, err := wf.Rename(ctx, to)
	if err != nil {
		return err
	}
	printOutcome(w, outcome, fmt.Sprintf("Renamed %s to %s", old, wf.Path()))
	return nil
}
