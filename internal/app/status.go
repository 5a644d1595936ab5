package app

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/chazuruo/flowdeck/internal/config"
	"github.com/chazuruo/flowdeck/internal/workflows"
)

// StatusOutput contains the information displayed by the status command.
type StatusOutput struct {
	Backend      string           `json:"backend"`
	Location     string           `json:"location"`
	WorkflowsDir string           `json:"workflows_dir"`
	Workflows    int              `json:"workflows"`
	Favorites    int              `json:"favorites"`
	Active       *WorkflowSummary `json:"active,omitempty"`
	Open         []string         `json:"open"`
}

// WorkflowSummary describes one workflow for output.
type WorkflowSummary struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Path     string `json:"path,omitempty"`
	Favorite bool   `json:"favorite"`
	Open     bool   `json:"open"`
	Unsaved  bool   `json:"unsaved"`
}

// Summarize converts a workflow for output.
func Summarize(wf *workflows.Workflow) WorkflowSummary {
	return WorkflowSummary{
		ID:       wf.ID(),
		Name:     wf.Name(),
		Path:     wf.Path(),
		Favorite: wf.IsFavorite(),
		Open:     wf.IsOpen(),
		Unsaved:  wf.IsUnsaved(),
	}
}

// Status reports the store location and the session state.
func (a *App) Status() *StatusOutput {
	out := &StatusOutput{
		Backend:      a.Config.Store.Backend,
		Location:     a.location(),
		WorkflowsDir: a.Config.Store.WorkflowsDir,
		Workflows:    len(a.Manager.Workflows()),
		Favorites:    len(a.Manager.Favorites()),
		Open:         []string{},
	}
	if wf := a.Manager.ActiveWorkflow(); wf != nil {
		s := Summarize(wf)
		out.Active = &s
	}
	for _, wf := range a.Manager.OpenWorkflows() {
		out.Open = append(out.Open, wf.String())
	}
	return out
}

func (a *App) location() string {
	switch a.Config.Store.Backend {
	case config.BackendSQLite:
		return a.Config.Store.DBPath
	case config.BackendMemory:
		return "(memory)"
	default:
		return a.Config.Store.Root
	}
}

// FormatStatusJSON formats the status output as JSON.
func FormatStatusJSON(w io.Writer, out *StatusOutput) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

// FormatStatusText formats the status output as plain text.
func FormatStatusText(w io.Writer, out *StatusOutput) {
	fmt.Fprintf(w, "Store:      %s (%s)\n", out.Location, out.Backend)
	fmt.Fprintf(w, "Folder:     %s\n", out.WorkflowsDir)
	fmt.Fprintf(w, "Workflows:  %d (%d favorite)\n", out.Workflows, out.Favorites)
	if out.Active == nil {
		fmt.Fprintln(w, "Active:     none")
		return
	}
	state := "saved"
	if out.Active.Unsaved {
		state = "unsaved changes"
	}
	fmt.Fprintf(w, "Active:     %s [%s]\n", out.Active.Name, state)
	if out.Active.Path != "" {
		fmt.Fprintf(w, "Path:       %s\n", out.Active.Path)
	}
}
