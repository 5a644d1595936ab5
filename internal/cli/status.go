package cli

import (
	"context"
	"io"

	"github.com/spf13/cobra"

	"github.com/chazuruo/flowdeck/internal/app"
)

// StatusOptions contains the options for the status command.
type StatusOptions struct {
	ConfigPath string
	JSON       bool
}

// NewStatusCommand creates the status command.
func NewStatusCommand() *cobra.Command {
	opts := &StatusOptions{}

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show store and session status",
		Long: `Display the current state of the workflow store and session.

Shows:
- Store backend and location
- Workflow and favorite counts
- Active workflow and whether it has unsaved changes
- Open workflows`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(cmd.Context(), cmd.OutOrStdout(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.ConfigPath, "config", "", "config file path")
	cmd.Flags().BoolVar(&opts.JSON, "json", false, "output in JSON format")

	return cmd
}

func runStatus(ctx context.Context, w io.Writer, opts *StatusOptions) error {
	a, err := openSession(ctx, sessionOptions{configPath: opts.ConfigPath, restore: true})
	if err != nil {
		return err
	}
	defer a.Close(ctx)

	out := a.Status()
	if opts.JSON {
		return app.FormatStatusJSON(w, out)
	}
	app.FormatStatusText(w, out)
	return nil
}
