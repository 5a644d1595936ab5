package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

// FavoriteOptions contains the options for the favorite and unfavorite commands.
type FavoriteOptions struct {
	ConfigPath string
}

// NewFavoriteCommand creates the favorite command.
func NewFavoriteCommand() *cobra.Command {
	return newFavoriteCommand("favorite <path>", "Add a workflow to favorites", true)
}

// NewUnfavoriteCommand creates the unfavorite command.
func NewUnfavoriteCommand() *cobra.Command {
	return newFavoriteCommand("unfavorite <path>", "Remove a workflow from favorites", false)
}

func newFavoriteCommand(use, short string, value bool) *cobra.Command {
	opts := &FavoriteOptions{}

	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFavorite(cmd.Context(), cmd.OutOrStdout(), args[0], value, opts)
		},
	}

	cmd.Flags().StringVar(&opts.ConfigPath, "config", "", "config file path")

	return cmd
}

func runFavorite(ctx context.Context, w io.Writer, target string, value bool, opts *FavoriteOptions) error {
	a, err := openSession(ctx, sessionOptions{configPath: opts.ConfigPath})
	if err != nil {
		return err
	}
	defer a.Close(ctx)

	wf, err := a.Resolve(target)
	if err != nil {
		return err
	}
	if err := wf.Favorite(ctx, value); err != nil {
		return err
	}

	if value {
		fmt.Fprintf(w, "Added %s to favorites\n", wf.Path())
	} else {
		fmt.Fprintf(w, "Removed %s from favorites\n", wf.Path())
	}
	return nil
}
