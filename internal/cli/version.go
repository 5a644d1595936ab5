package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"runtime"
	"strings"

	"github.com/spf13/cobra"

	"github.com/chazuruo/flowdeck/internal/config"
)

// VersionInfo describes the build and the storage backends it supports.
type VersionInfo struct {
	Version  string   `json:"version"`
	Commit   string   `json:"commit"`
	Date     string   `json:"date"`
	BuiltBy  string   `json:"built_by,omitempty"`
	Go       string   `json:"go_version"`
	Backends []string `json:"backends"`
}

type VersionOptions struct {
	Short bool
	JSON  bool
}

// NewVersionCommand creates the version command.
func NewVersionCommand(version, commit, date, builtBy string) *cobra.Command {
	opts := &VersionOptions{}

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Show build and backend information",
		Long: `Show the flowdeck build: version, commit, build date, Go version
and the document store backends compiled in.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if builtBy == "unknown" {
				builtBy = ""
			}
			return runVersion(cmd.OutOrStdout(), opts, VersionInfo{
				Version:  version,
				Commit:   commit,
				Date:     date,
				BuiltBy:  builtBy,
				Go:       runtime.Version(),
				Backends: []string{config.BackendFilesystem, config.BackendSQLite, config.BackendMemory},
			})
		},
	}

	cmd.Flags().BoolVar(&opts.Short, "short", false, "print only the version number")
	cmd.Flags().BoolVar(&opts.JSON, "json", false, "output in JSON format")
	cmd.MarkFlagsMutuallyExclusive("short", "json")

	return cmd
}

func runVersion(w io.Writer, opts *VersionOptions, info VersionInfo) error {
	switch {
	case opts.JSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(info); err != nil {
			return fmt.Errorf("failed to encode JSON: %w", err)
		}
	case opts.Short:
		fmt.Fprintln(w, info.Version)
	default:
		fmt.Fprintf(w, "flowdeck %s (%s, %s)\n", info.Version, info.Commit, info.Date)
		if info.BuiltBy != "" {
			fmt.Fprintf(w, "built by %s with %s\n", info.BuiltBy, info.Go)
		} else {
			fmt.Fprintf(w, "built with %s\n", info.Go)
		}
		fmt.Fprintf(w, "backends: %s\n", strings.Join(info.Backends, ", "))
	}
	return nil
}
