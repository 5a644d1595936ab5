// Package app wires the flowdeck components together from a configuration.
package app

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/chazuruo/flowdeck/internal/canvas"
	"github.com/chazuruo/flowdeck/internal/config"
	"github.com/chazuruo/flowdeck/internal/docstore"
	"github.com/chazuruo/flowdeck/internal/docstore/sqlite"
	fderrors "github.com/chazuruo/flowdeck/internal/errors"
	"github.com/chazuruo/flowdeck/internal/log"
	"github.com/chazuruo/flowdeck/internal/prompt"
	"github.com/chazuruo/flowdeck/internal/settings"
	"github.com/chazuruo/flowdeck/internal/telemetry"
	"github.com/chazuruo/flowdeck/internal/workflows"
)

// Options contains the options for building an App.
type Options struct {
	// ConfigPath is the path to the config file.
	// If empty, uses the default XDG config path.
	ConfigPath string

	// Config is used as is when set; ConfigPath is then ignored.
	Config *config.Config

	// Prompter answers name and overwrite prompts.
	// If nil, prompts run as huh forms on the terminal.
	Prompter workflows.Prompter

	// Reporter receives recoverable failures. If nil, they are logged.
	Reporter workflows.Reporter
}

// App holds one configured flowdeck session.
type App struct {
	Config   *config.Config
	Store    docstore.Store
	Settings workflows.Settings
	Canvas   *canvas.Document
	Manager  *workflows.Manager

	cache   *docstore.CachedStore
	closers []func(context.Context) error
}

// New loads the config and builds the store, settings, canvas and Manager.
// The catalog is not read until Start.
func New(ctx context.Context, opts Options) (*App, error) {
	cfg := opts.Config
	if cfg == nil {
		loaded, err := config.LoadFrom(opts.ConfigPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}

	if err := log.Init(cfg.Log.File, cfg.Log.Level); err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}

	a := &App{Config: cfg}
	a.closers = append(a.closers, func(context.Context) error { return log.Close() })

	tp, err := telemetry.Setup(ctx, telemetry.Options{
		Exporter:    cfg.Telemetry.Exporter,
		Endpoint:    cfg.Telemetry.Endpoint,
		ServiceName: cfg.Telemetry.ServiceName,
	})
	if err != nil {
		_ = a.Close(ctx)
		return nil, err
	}
	a.closers = append(a.closers, tp.Shutdown)

	store, closeStore, err := OpenStore(cfg)
	if err != nil {
		_ = a.Close(ctx)
		return nil, err
	}
	a.closers = append(a.closers, func(context.Context) error { return closeStore() })

	ttl, _ := cfg.CacheTTL()
	if ttl > 0 {
		a.cache = docstore.NewCachedStore(store, ttl)
		store = a.cache
	}
	if cfg.Telemetry.Exporter != telemetry.ExporterNone {
		store = telemetry.NewTracedStore(store, tp.Tracer())
	}
	a.Store = store

	if cfg.Store.Backend == config.BackendMemory {
		a.Settings = settings.NewMemory()
	} else {
		s, err := settings.Open(cfg.Session.SettingsPath)
		if err != nil {
			_ = a.Close(ctx)
			return nil, err
		}
		a.Settings = s
	}

	prompter := opts.Prompter
	if prompter == nil {
		prompter = &prompt.Form{Accessible: cfg.TUI.Accessible}
	}

	a.Canvas = canvas.New()
	managerOpts := []workflows.Option{
		workflows.WithDir(cfg.Store.WorkflowsDir),
		workflows.WithMetadataFile(cfg.Store.MetadataFile),
		workflows.WithSettings(a.Settings),
		workflows.WithCanvas(a.Canvas),
		workflows.WithTrackerFactory(a.Canvas.TrackerFactory()),
		workflows.WithPrompter(prompter),
	}
	if opts.Reporter != nil {
		managerOpts = append(managerOpts, workflows.WithReporter(opts.Reporter))
	}
	a.Manager = workflows.NewManager(a.Store, managerOpts...)

	log.Debug(log.CatConfig, "app ready", "backend", cfg.Store.Backend, "dir", cfg.Store.WorkflowsDir)
	return a, nil
}

// OpenStore opens the document store selected by cfg.Store.Backend. The
// returned function releases it.
func OpenStore(cfg *config.Config) (docstore.Store, func() error, error) {
	noop := func() error { return nil }

	switch cfg.Store.Backend {
	case config.BackendFilesystem:
		s, err := docstore.NewFileSystemStore(cfg.Store.Root)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open store: %w", err)
		}
		return s, noop, nil
	case config.BackendSQLite:
		s, err := sqlite.Open(cfg.Store.DBPath)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open store: %w", err)
		}
		return s, s.Close, nil
	case config.BackendMemory:
		return docstore.NewMemoryStore(), noop, nil
	default:
		return nil, nil, &fderrors.ConfigError{Err: fmt.Errorf("unknown store backend %q: %w", cfg.Store.Backend, fderrors.ErrInvalid)}
	}
}

// Start reads the catalog and, when session.restore is set, reopens the
// previously active workflow.
func (a *App) Start(ctx context.Context) error {
	if err := a.Manager.LoadCatalog(ctx); err != nil {
		return fmt.Errorf("failed to load workflows: %w", err)
	}
	if !a.Config.Session.Restore {
		return nil
	}
	if _, err := a.Manager.RestoreSession(ctx); err != nil {
		return fmt.Errorf("failed to restore session: %w", err)
	}
	return nil
}

// Refresh drops cached documents and reloads the catalog. It is used after
// the store changed behind the Manager's back.
func (a *App) Refresh(ctx context.Context) error {
	if a.cache != nil {
		a.cache.Flush()
	}
	return a.Manager.LoadCatalog(ctx)
}

// WatchRoot returns the directory holding workflow files, or "" when the
// backend does not keep them on disk.
func (a *App) WatchRoot() string {
	if a.Config.Store.Backend != config.BackendFilesystem {
		return ""
	}
	return filepath.Join(a.Config.Store.Root, filepath.FromSlash(a.Config.Store.WorkflowsDir))
}

// Resolve finds a catalog workflow by path. The .json extension is optional.
func (a *App) Resolve(path string) (*workflows.Workflow, error) {
	key, err := docstore.CleanKey("resolve", workflows.AppendExtension(path))
	if err != nil {
		return nil, err
	}
	wf := a.Manager.Lookup(key)
	if wf == nil {
		return nil, &fderrors.WorkflowError{Op: "resolve", Path: key, Err: fderrors.ErrNotFound}
	}
	return wf, nil
}

// Edit replaces the graph of the active workflow and updates its dirty flag.
func (a *App) Edit(content []byte) (*workflows.Workflow, error) {
	wf := a.Manager.ActiveWorkflow()
	if wf == nil {
		return nil, &fderrors.WorkflowError{Op: "edit", Err: fmt.Errorf("no active workflow: %w", fderrors.ErrInvalid)}
	}
	state, err := a.Canvas.SetContent(content)
	if err != nil {
		return nil, &fderrors.WorkflowError{Op: "edit", Path: wf.Path(), Err: err}
	}
	wf.CheckState(state)
	return wf, nil
}

// Import opens content as a new document and saves it under name. An empty
// name asks for one.
func (a *App) Import(ctx context.Context, content []byte, name string) (*workflows.Workflow, workflows.Outcome, error) {
	wf, err := a.Manager.SetActive(ctx, workflows.NewDocument())
	if err != nil {
		return nil, workflows.OutcomeCompleted, err
	}
	wf.Track(content)
	if err := a.Canvas.Load(ctx, wf, content); err != nil {
		_, _ = a.Manager.Close(ctx, wf, workflows.CloseOptions{})
		return nil, workflows.OutcomeCompleted, err
	}

	outcome, err := wf.SaveTo(ctx, name)
	if err != nil || outcome != workflows.OutcomeCompleted {
		_, _ = a.Manager.Close(ctx, wf, workflows.CloseOptions{})
		return wf, outcome, err
	}
	return wf, outcome, nil
}

// Close releases everything New opened, in reverse order.
func (a *App) Close(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
