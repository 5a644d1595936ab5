package cli

import (
	"context"
	"fmt"
	"io"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/chazuruo/flowdeck/internal/log"
	"github.com/chazuruo/flowdeck/internal/tui"
	"github.com/chazuruo/flowdeck/internal/watch"
)

// BrowseOptions contains the options for the browse command.
type BrowseOptions struct {
	ConfigPath string
	NoWatch    bool
}

// NewBrowseCommand creates the browse command.
func NewBrowseCommand() *cobra.Command {
	opts := &BrowseOptions{}

	cmd := &cobra.Command{
		Use:   "browse",
		Short: "Browse workflows interactively",
		Long: `Open the interactive workflow browser.

Workflows can be filtered, opened, favorited and deleted. With the
filesystem backend the list refreshes when files change on disk.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBrowse(cmd.Context(), cmd.OutOrStdout(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.ConfigPath, "config", "", "config file path")
	cmd.Flags().BoolVar(&opts.NoWatch, "no-watch", false, "do not refresh on file changes")

	return cmd
}

func runBrowse(ctx context.Context, w io.Writer, opts *BrowseOptions) error {
	if IsNoTUI() {
		return fmt.Errorf("browse requires the TUI; use 'flowdeck list' with --no-tui")
	}

	a, err := openSession(ctx, sessionOptions{configPath: opts.ConfigPath, restore: true})
	if err != nil {
		return err
	}
	defer a.Close(ctx)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	model := tui.NewBrowser(ctx, a.Manager).WithRefresh(a.Refresh)
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))

	if root := a.WatchRoot(); root != "" && a.Config.Watch.Enabled && !opts.NoWatch {
		debounce, _ := a.Config.WatchDebounce()
		// The catalog is reloaded inside the program's update loop.
		watcher := watch.New(root, debounce, func(context.Context) error {
			p.Send(tui.RefreshMsg{})
			return nil
		})
		go func() {
			if err := watcher.Run(ctx); err != nil {
				log.ErrorErr(log.CatWatch, "watcher stopped", err)
			}
		}()
	}

	final, err := p.Run()
	if err != nil {
		return fmt.Errorf("browser error: %w", err)
	}

	if m, ok := final.(tui.BrowserModel); ok && m.Opened != nil {
		fmt.Fprintf(w, "Opened %s\n", m.Opened)
	}
	return nil
}
