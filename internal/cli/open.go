package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

// OpenOptions contains the options for the open command.
type OpenOptions struct {
	ConfigPath string
	Print      bool
}

// NewOpenCommand creates the open command.
func NewOpenCommand() *cobra.Command {
	opts := &OpenOptions{}

	cmd := &cobra.Command{
		Use:   "open <path>",
		Short: "Open a workflow and make it active",
		Long: `Open a saved workflow. It moves to the top of the open stack and
becomes the active workflow of the next session.

The .json extension may be omitted.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOpen(cmd.Context(), cmd.OutOrStdout(), args[0], opts)
		},
	}

	cmd.Flags().StringVar(&opts.ConfigPath, "config", "", "config file path")
	cmd.Flags().BoolVar(&opts.Print, "print", false, "print the workflow document")

	return cmd
}

func runOpen(ctx context.Context, w io.Writer, target string, opts *OpenOptions) error {
	a, err := openSession(ctx, sessionOptions{configPath: opts.ConfigPath, restore: true})
	if err != nil {
		return err
	}
	defer a.Close(ctx)

	wf, err := a.Resolve(target)
	if err != nil {
		return err
	}
	if err := wf.Load(ctx); err != nil {
		return err
	}

	if opts.Print {
		content, err := a.Canvas.Serialize(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintln(w, string(content))
		return nil
	}
	fmt.Fprintf(w, "Opened %s\n", wf.Path())
	return nil
}
