package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	fderrors "github.com/chazuruo/flowdeck/internal/errors"
	"github.com/chazuruo/flowdeck/internal/prompt"
)

// DeleteOptions contains the options for the delete command.
type DeleteOptions struct {
	ConfigPath string
	Yes        bool
}

// NewDeleteCommand creates the delete command.
func NewDeleteCommand() *cobra.Command {
	opts := &DeleteOptions{}

	cmd := &cobra.Command{
		Use:     "delete <path>",
		Aliases: []string{"rm"},
		Short:   "Delete a workflow from the store",
		Long: `Delete a workflow. It is removed from favorites and closed if open.

Asks for confirmation unless --yes is given. With --no-tui, --yes is required.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDelete(cmd.Context(), cmd.OutOrStdout(), args[0], opts)
		},
	}

	cmd.Flags().StringVar(&opts.ConfigPath, "config", "", "config file path")
	cmd.Flags().BoolVarP(&opts.Yes, "yes", "y", false, "delete without confirmation")

	return cmd
}

func runDelete(ctx context.Context, w io.Writer, target string, opts *DeleteOptions) error {
	a, err := openSession(ctx, sessionOptions{configPath: opts.ConfigPath, restore: true})
	if err != nil {
		return err
	}
	defer a.Close(ctx)

	wf, err := a.Resolve(target)
	if err != nil {
		return err
	}

	if !opts.Yes {
		if !interactive(a) {
			return fmt.Errorf("refusing to delete %s without --yes in non-interactive mode", wf.Path())
		}
		form := &prompt.Form{Accessible: a.Config.TUI.Accessible}
		ok, err := form.Confirm(ctx, "Delete workflow", fmt.Sprintf("Delete %s? This cannot be undone.", wf.Path()))
		if err != nil {
			if fderrors.IsCanceled(err) {
				fmt.Fprintln(w, "Canceled.")
				return nil
			}
			return err
		}
		if !ok {
			fmt.Fprintln(w, "Canceled.")
			return nil
		}
	}

	if err := wf.Delete(ctx); err != nil {
		return err
	}
	fmt.Fprintf(w, "Deleted %s\n", wf.Path())
	return nil
}
