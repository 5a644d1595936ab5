package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewRootCommand builds the flowdeck command tree.
func NewRootCommand(version, commit, date, builtBy string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "flowdeck",
		Short: "Manage a collection of node-graph workflows",
		Long: `flowdeck keeps named workflow documents in a store and tracks which are
open, favorite or unsaved across sessions.`,
		Version:      fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		SilenceUsage: true,
		Run: func(cmd *cobra.Command, args []string) {
			_ = cmd.Help()
		},
	}

	AddGlobalFlags(rootCmd)
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.AddCommand(NewInitCommand())
	rootCmd.AddCommand(NewListCommand())
	rootCmd.AddCommand(NewOpenCommand())
	rootCmd.AddCommand(NewImportCommand())
	rootCmd.AddCommand(NewSaveCommand())
	rootCmd.AddCommand(NewRenameCommand())
	rootCmd.AddCommand(NewFavoriteCommand())
	rootCmd.AddCommand(NewUnfavoriteCommand())
	rootCmd.AddCommand(NewDeleteCommand())
	rootCmd.AddCommand(NewCloseCommand())
	rootCmd.AddCommand(NewStatusCommand())
	rootCmd.AddCommand(NewBrowseCommand())
	rootCmd.AddCommand(NewWatchCommand())
	rootCmd.AddCommand(NewExportCommand())
	rootCmd.AddCommand(NewDiffCommand())
	rootCmd.AddCommand(NewSubflowCommand())
	rootCmd.AddCommand(NewVersionCommand(version, commit, date, builtBy))

	return rootCmd
}
