package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/chazuruo/flowdeck/internal/workflows"
)

// SaveOptions contains the options for the save command.
type SaveOptions struct {
	ConfigPath string
	As         string
	From       string
	Force      bool
}

// NewSaveCommand creates the save command.
func NewSaveCommand() *cobra.Command {
	opts := &SaveOptions{}

	cmd := &cobra.Command{
		Use:   "save",
		Short: "Save the active workflow",
		Long: `Save the active workflow to its path.

--from replaces the workflow graph with a document before saving.
--as writes a copy under a new name; the copy becomes active.

Examples:
  flowdeck save --from edited.json
  flowdeck save --as render-v2`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSave(cmd.Context(), cmd.OutOrStdout(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.ConfigPath, "config", "", "config file path")
	cmd.Flags().StringVar(&opts.As, "as", "", "save a copy under this name")
	cmd.Flags().StringVar(&opts.From, "from", "", "document to save in place of the current graph")
	cmd.Flags().BoolVar(&opts.Force, "force", false, "overwrite an existing workflow")

	return cmd
}

func runSave(ctx context.Context, w io.Writer, opts *SaveOptions) error {
	a, err := openSession(ctx, sessionOptions{
		configPath: opts.ConfigPath,
		name:       opts.As,
		overwrite:  opts.Force,
		restore:    true,
	})
	if err != nil {
		return err
	}
	defer a.Close(ctx)

	wf := a.Manager.ActiveWorkflow()
	if wf == nil {
		return fmt.Errorf("no active workflow; run 'flowdeck open <path>' first")
	}

	if opts.From != "" {
		content, err := os.ReadFile(opts.From)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", opts.From, err)
		}
		if _, err := a.Edit(content); err != nil {
			return err
		}
	}

	var outcome workflows.Outcome
	if opts.As != "" {
		outcome, err = wf.SaveTo(ctx, opts.As)
	} else {
		outcome, err = wf.Save(ctx)
	}
	if err != nil {
		return err
	}

	saved := a.Manager.ActiveWorkflow()
	printOutcome(w, outcome, fmt.Sprintf("Saved %s", saved))
	return nil
}
