package cli

import (
	"context"
	"fmt"
	"io"
	"slices"

	"github.com/spf13/cobra"

	"github.com/chazuruo/flowdeck/internal/workflows"
)

// CloseOptions contains the options for the close command.
type CloseOptions struct {
	ConfigPath string
	Save       bool
	Discard    bool
}

// NewCloseCommand creates the close command.
func NewCloseCommand() *cobra.Command {
	opts := &CloseOptions{}

	cmd := &cobra.Command{
		Use:   "close [path]",
		Short: "Close the active workflow",
		Long: `Close an open workflow, the active one by default.

Unsaved changes are saved with --save or dropped with --discard. Without
either flag you are asked; with --no-tui one of them is required.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			target := ""
			if len(args) == 1 {
				target = args[0]
			}
			return runClose(cmd.Context(), cmd.OutOrStdout(), target, opts)
		},
	}

	cmd.Flags().StringVar(&opts.ConfigPath, "config", "", "config file path")
	cmd.Flags().BoolVar(&opts.Save, "save", false, "save unsaved changes before closing")
	cmd.Flags().BoolVar(&opts.Discard, "discard", false, "drop unsaved changes")
	cmd.MarkFlagsMutuallyExclusive("save", "discard")

	return cmd
}

func runClose(ctx context.Context, w io.Writer, target string, opts *CloseOptions) error {
	a, err := openSession(ctx, sessionOptions{
		configPath: opts.ConfigPath,
		overwrite:  opts.Save,
		restore:    true,
	})
	if err != nil {
		return err
	}
	defer a.Close(ctx)

	wf := a.Manager.ActiveWorkflow()
	if target != "" {
		if wf, err = a.Resolve(target); err != nil {
			return err
		}
	}
	if wf == nil || !slices.Contains(a.Manager.OpenWorkflows(), wf) {
		fmt.Fprintln(w, "Nothing to close.")
		return nil
	}

	if wf.IsUnsaved() && !opts.Save && !opts.Discard && !interactive(a) {
		return fmt.Errorf("%s has unsaved changes; use --save or --discard", wf)
	}

	outcome, err := a.Manager.Close(ctx, wf, workflows.CloseOptions{WarnIfUnsaved: !opts.Discard})
	if err != nil {
		return err
	}
	printOutcome(w, outcome, fmt.Sprintf("Closed %s", wf))
	return nil
}
