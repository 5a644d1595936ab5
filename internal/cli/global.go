// Package cli provides global state and utilities for CLI commands.
package cli

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/spf13/cobra"

	"github.com/chazuruo/flowdeck/internal/app"
	"github.com/chazuruo/flowdeck/internal/config"
	"github.com/chazuruo/flowdeck/internal/log"
	"github.com/chazuruo/flowdeck/internal/prompt"
	"github.com/chazuruo/flowdeck/internal/workflows"
)

var (
	// NoTUI indicates that TUI/interactive mode should be disabled.
	// This is set by the global --no-tui flag.
	NoTUI bool

	// noTUIMutex protects NoTUI for concurrent access.
	noTUIMutex sync.RWMutex
)

// AddGlobalFlags adds global flags to a command.
func AddGlobalFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().BoolVar(&NoTUI, "no-tui", false,
		"disable TUI/interactive mode; use plain text or JSON output")
}

// IsNoTUI returns true if TUI mode is disabled.
func IsNoTUI() bool {
	noTUIMutex.RLock()
	defer noTUIMutex.RUnlock()
	return NoTUI
}

// sessionOptions controls how a command opens the app.
type sessionOptions struct {
	configPath string

	// name answers name prompts in non-interactive mode.
	name string

	// overwrite answers every confirmation with yes, without prompting.
	overwrite bool

	// restore reopens the previous session; read-only commands skip it.
	restore bool
}

// openSession loads the config, builds the app and reads the catalog.
func openSession(ctx context.Context, opts sessionOptions) (*app.App, error) {
	cfg, err := config.LoadFrom(opts.configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	var p workflows.Prompter
	if IsNoTUI() || !cfg.TUI.Enabled || opts.overwrite {
		p = prompt.Static{Name: opts.name, Overwrite: opts.overwrite}
	}

	a, err := app.New(ctx, app.Options{
		Config:   cfg,
		Prompter: p,
		Reporter: workflows.ReporterFunc(func(err error) {
			log.ErrorErr(log.CatCLI, "workflow operation failed", err)
		}),
	})
	if err != nil {
		return nil, err
	}

	if opts.restore {
		err = a.Start(ctx)
	} else {
		err = a.Manager.LoadCatalog(ctx)
	}
	if err != nil {
		_ = a.Close(ctx)
		return nil, err
	}
	return a, nil
}

// interactive reports whether prompts may run on the terminal.
func interactive(a *app.App) bool {
	return !IsNoTUI() && a.Config.TUI.Enabled
}

// printOutcome reports the result of an operation that may be declined.
func printOutcome(w io.Writer, outcome workflows.Outcome, done string) {
	switch outcome {
	case workflows.OutcomeCompleted:
		fmt.Fprintln(w, done)
	case workflows.OutcomeDeclined:
		fmt.Fprintln(w, "Target exists; nothing changed (use --force to overwrite).")
	case workflows.OutcomeCanceled:
		fmt.Fprintln(w, "Canceled.")
	}
}
