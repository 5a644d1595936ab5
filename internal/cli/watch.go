package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/chazuruo/flowdeck/internal/app"
	"github.com/chazuruo/flowdeck/internal/watch"
)

// WatchOptions contains the options for the watch command.
type WatchOptions struct {
	ConfigPath string
}

// NewWatchCommand creates the watch command.
func NewWatchCommand() *cobra.Command {
	opts := &WatchOptions{}

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Reload the catalog whenever workflow files change",
		Long: `Watch the workflows directory and print the catalog size after each
change. Only the filesystem backend keeps workflows on disk.

Stop with Ctrl+C.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd.Context(), cmd.OutOrStdout(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.ConfigPath, "config", "", "config file path")

	return cmd
}

func runWatch(ctx context.Context, w io.Writer, opts *WatchOptions) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := openSession(ctx, sessionOptions{configPath: opts.ConfigPath})
	if err != nil {
		return err
	}
	defer a.Close(context.WithoutCancel(ctx))

	root := a.WatchRoot()
	if root == "" {
		return fmt.Errorf("watch requires the %q backend, not %q", "filesystem", a.Config.Store.Backend)
	}
	debounce, err := a.Config.WatchDebounce()
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "Watching %s (%d workflows)\n", root, len(a.Manager.Workflows()))
	return newCatalogWatcher(a, root, debounce, w).Run(ctx)
}

// newCatalogWatcher reloads the catalog of a after every burst of changes
// under root and reports the new size to w.
func newCatalogWatcher(a *app.App, root string, debounce time.Duration, w io.Writer) *watch.Watcher {
	return watch.New(root, debounce, func(ctx context.Context) error {
		if err := a.Refresh(ctx); err != nil {
			return err
		}
		fmt.Fprintf(w, "Catalog updated: %d workflows\n", len(a.Manager.Workflows()))
		return nil
	})
}
