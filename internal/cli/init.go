package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/chazuruo/flowdeck/internal/app"
	"github.com/chazuruo/flowdeck/internal/config"
)

// InitOptions contains the options for the init command.
type InitOptions struct {
	ConfigPath string

	// Scriptable/flag options for --no-tui mode
	Backend   string
	Root      string
	DBPath    string
	NoRestore bool
	Force     bool
}

// NewInitCommand creates the init command.
func NewInitCommand() *cobra.Command {
	opts := &InitOptions{}

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize flowdeck configuration",
		Long: `Initialize flowdeck configuration and create the workflow store.

The init command guides you through setting up your flowdeck configuration:
- Choose a store backend (filesystem or sqlite)
- Set where workflows are kept
- Choose whether to reopen the last workflow on start

Use --no-tui with flags for scripted setup.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(cmd.OutOrStdout(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.ConfigPath, "config", "", "config file path")
	cmd.Flags().StringVar(&opts.Backend, "backend", "", "store backend: filesystem or sqlite")
	cmd.Flags().StringVar(&opts.Root, "root", "", "directory for the filesystem backend")
	cmd.Flags().StringVar(&opts.DBPath, "db", "", "database file for the sqlite backend")
	cmd.Flags().BoolVar(&opts.NoRestore, "no-restore", false, "do not reopen the last workflow on start")
	cmd.Flags().BoolVar(&opts.Force, "force", false, "overwrite an existing config file")

	return cmd
}

func runInit(w io.Writer, opts *InitOptions) error {
	configPath := getConfigPath(opts.ConfigPath)
	if _, err := os.Stat(configPath); err == nil && !opts.Force {
		return fmt.Errorf("config already exists at %s (use --force to overwrite)", configPath)
	}

	// Check if --no-tui mode
	if IsNoTUI() {
		return runInitNonInteractive(w, opts)
	}

	// Interactive TUI mode
	return runInitInteractive(w, opts)
}

// runInitInteractive runs the init wizard with TUI.
func runInitInteractive(w io.Writer, opts *InitOptions) error {
	cfg := config.DefaultConfig()

	backend := cfg.Store.Backend
	if opts.Backend != "" {
		backend = opts.Backend
	}
	restore := !opts.NoRestore

	// Step 1: Backend
	if err := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Store backend").
				Options(
					huh.NewOption("Filesystem - one JSON file per workflow", config.BackendFilesystem),
					huh.NewOption("SQLite - a single database file", config.BackendSQLite),
				).
				Value(&backend),
		),
	).Run(); err != nil {
		return fmt.Errorf("form error: %w", err)
	}

	// Step 2: Location
	var location string
	input := huh.NewInput().Value(&location)
	if backend == config.BackendSQLite {
		input = input.Title("Database file").Placeholder(cfg.Store.DBPath)
	} else {
		input = input.Title("Workflows root").
			Description("Directory the workflows folder is created in").
			Placeholder(cfg.Store.Root)
	}

	if err := huh.NewForm(
		huh.NewGroup(
			input,
			huh.NewConfirm().
				Title("Reopen the last workflow on start?").
				Value(&restore),
		),
	).Run(); err != nil {
		return fmt.Errorf("form error: %w", err)
	}

	opts.Backend = backend
	opts.NoRestore = !restore
	if backend == config.BackendSQLite {
		opts.DBPath = location
	} else {
		opts.Root = location
	}

	return runInitNonInteractive(w, opts)
}

// runInitNonInteractive runs init in non-TUI mode using flags.
func runInitNonInteractive(w io.Writer, opts *InitOptions) error {
	cfg := buildConfig(opts)

	// Validate
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	// Create the store so the first command finds it
	_, closeStore, err := app.OpenStore(cfg)
	if err != nil {
		return err
	}
	if err := closeStore(); err != nil {
		return fmt.Errorf("failed to close store: %w", err)
	}
	if cfg.Store.Backend == config.BackendFilesystem {
		dir := filepath.Join(cfg.Store.Root, filepath.FromSlash(cfg.Store.WorkflowsDir))
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create workflows directory: %w", err)
		}
	}

	// Write config
	configPath := getConfigPath(opts.ConfigPath)
	if err := config.Write(configPath, cfg); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	fmt.Fprintf(w, "Configuration written to: %s\n", configPath)
	fmt.Fprintf(w, "  Backend: %s\n", cfg.Store.Backend)
	if cfg.Store.Backend == config.BackendSQLite {
		fmt.Fprintf(w, "  Database: %s\n", cfg.Store.DBPath)
	} else {
		fmt.Fprintf(w, "  Root:    %s\n", cfg.Store.Root)
	}
	return nil
}

// buildConfig applies the init options to the default configuration.
func buildConfig(opts *InitOptions) *config.Config {
	cfg := config.DefaultConfig()
	if opts.Backend != "" {
		cfg.Store.Backend = opts.Backend
	}
	if opts.Root != "" {
		cfg.Store.Root = opts.Root
	}
	if opts.DBPath != "" {
		cfg.Store.DBPath = opts.DBPath
	}
	cfg.Session.Restore = !opts.NoRestore
	return cfg
}

// getConfigPath returns the config path to use.
func getConfigPath(path string) string {
	if path != "" {
		return path
	}
	return config.DefaultConfigPath()
}
