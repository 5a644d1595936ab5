// Package tui provides Bubble Tea models for flowdeck.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/chazuruo/flowdeck/internal/log"
	"github.com/chazuruo/flowdeck/internal/pubsub"
	"github.com/chazuruo/flowdeck/internal/workflows"
)

// RefreshMsg asks the browser to reload the catalog from the store.
type RefreshMsg struct{}

// eventMsg carries a Manager event into the update loop.
type eventMsg struct {
	event pubsub.Event[workflows.Event]
}

// BrowserModel lists the workflow catalog and runs the entity operations on
// the selected workflow. All Manager calls happen inside Update.
type BrowserModel struct {
	ctx     context.Context
	manager *workflows.Manager
	events  <-chan pubsub.Event[workflows.Event]
	refresh func(context.Context) error

	// Items is the catalog snapshot being displayed.
	Items []*workflows.Workflow

	// Filtered holds indices into Items that match the filter.
	Filtered []int

	cursor int

	// FilterInput is the text input for filtering.
	FilterInput textinput.Model

	// Focused is "list" or "filter".
	Focused string

	// confirmDelete is set while waiting for y/n on a delete.
	confirmDelete bool

	// Status is the last message shown in the footer.
	Status string

	// Err is the last operation failure.
	Err error

	// Opened is the workflow chosen with enter, if any.
	Opened *workflows.Workflow

	// Quit indicates whether the user left the browser.
	Quit bool

	width  int
	height int

	normalStyle   lipgloss.Style
	selectedStyle lipgloss.Style
	dimStyle      lipgloss.Style
	errorStyle    lipgloss.Style
}

// NewBrowser creates a browser over the Manager's catalog. The catalog must
// already be loaded.
func NewBrowser(ctx context.Context, m *workflows.Manager) BrowserModel {
	ti := textinput.New()
	ti.Placeholder = "Filter workflows..."

	b := BrowserModel{
		ctx:         ctx,
		manager:     m,
		events:      m.Subscribe(ctx),
		FilterInput: ti,
		Focused:     "list",
		width:       80,
		height:      24,

		normalStyle:   lipgloss.NewStyle().Foreground(lipgloss.Color("252")),
		selectedStyle: lipgloss.NewStyle().Foreground(lipgloss.Color("229")).Bold(true),
		dimStyle:      lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
		errorStyle:    lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
	}
	b.reload()
	return b
}

// WithRefresh replaces the catalog reload run on RefreshMsg.
func (m BrowserModel) WithRefresh(fn func(context.Context) error) BrowserModel {
	m.refresh = fn
	return m
}

// Init implements tea.Model.
func (m BrowserModel) Init() tea.Cmd {
	return waitForEvent(m.events)
}

func waitForEvent(ch <-chan pubsub.Event[workflows.Event]) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-ch
		if !ok {
			return nil
		}
		return eventMsg{event: ev}
	}
}

// Update implements tea.Model.
func (m BrowserModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case eventMsg:
		log.Debug(log.CatTUI, "manager event", "type", string(msg.event.Payload.Type))
		m.reload()
		return m, waitForEvent(m.events)

	case RefreshMsg:
		refresh := m.refresh
		if refresh == nil {
			refresh = m.manager.LoadCatalog
		}
		if err := refresh(m.ctx); err != nil {
			m.Err = err
		}
		m.reload()
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		if m.confirmDelete {
			return m.handleConfirmKey(msg)
		}
		if m.Focused == "filter" {
			return m.handleFilterKey(msg)
		}
		return m.handleListKey(msg)
	}
	return m, nil
}

func (m BrowserModel) handleConfirmKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.confirmDelete = false
	wf := m.Selected()
	if wf == nil || (msg.String() != "y" && msg.String() != "Y") {
		m.Status = "Delete canceled"
		return m, nil
	}
	m.run(fmt.Sprintf("Deleted %s", wf.Name()), wf.Delete(m.ctx))
	return m, nil
}

func (m BrowserModel) handleFilterKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		m.Quit = true
		return m, tea.Quit
	case "enter", "esc":
		m.Focused = "list"
		m.FilterInput.Blur()
		return m, nil
	}

	var cmd tea.Cmd
	old := m.FilterInput.Value()
	m.FilterInput, cmd = m.FilterInput.Update(msg)
	if m.FilterInput.Value() != old {
		m.applyFilter()
	}
	return m, cmd
}

func (m BrowserModel) handleListKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q", "esc":
		m.Quit = true
		return m, tea.Quit

	case "/":
		m.Focused = "filter"
		cmd := m.FilterInput.Focus()
		return m, cmd

	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}

	case "down", "j":
		if m.cursor < len(m.Filtered)-1 {
			m.cursor++
		}

	case "home", "g":
		m.cursor = 0

	case "end", "G":
		m.cursor = max(0, len(m.Filtered)-1)

	case "enter":
		if wf := m.Selected(); wf != nil {
			if m.run(fmt.Sprintf("Opened %s", wf.Name()), wf.Load(m.ctx)) {
				m.Opened = wf
				return m, tea.Quit
			}
		}

	case "f":
		if wf := m.Selected(); wf != nil {
			value := !wf.IsFavorite()
			label := "Added %s to favorites"
			if !value {
				label = "Removed %s from favorites"
			}
			m.run(fmt.Sprintf(label, wf.Name()), wf.Favorite(m.ctx, value))
		}

	case "d":
		if m.Selected() != nil {
			m.confirmDelete = true
		}

	case "r":
		return m.Update(RefreshMsg{})
	}
	return m, nil
}

// run records the outcome of an operation in the footer.
func (m *BrowserModel) run(success string, err error) bool {
	if err != nil {
		m.Err = err
		m.Status = ""
		return false
	}
	m.Err = nil
	m.Status = success
	m.reload()
	return true
}

// reload copies the catalog and reapplies the filter, keeping the cursor on
// the same workflow when it still exists.
func (m *BrowserModel) reload() {
	var current string
	if wf := m.Selected(); wf != nil {
		current = wf.ID()
	}
	m.Items = m.manager.Workflows()
	m.applyFilter()
	for i, idx := range m.Filtered {
		if m.Items[idx].ID() == current {
			m.cursor = i
			break
		}
	}
}

func (m *BrowserModel) applyFilter() {
	query := strings.ToLower(m.FilterInput.Value())
	m.Filtered = nil
	for i, wf := range m.Items {
		if query == "" || strings.Contains(strings.ToLower(wf.String()), query) {
			m.Filtered = append(m.Filtered, i)
		}
	}
	if m.cursor >= len(m.Filtered) {
		m.cursor = max(0, len(m.Filtered)-1)
	}
}

// Selected returns the workflow under the cursor, or nil.
func (m BrowserModel) Selected() *workflows.Workflow {
	if m.cursor < 0 || m.cursor >= len(m.Filtered) {
		return nil
	}
	return m.Items[m.Filtered[m.cursor]]
}

// View implements tea.Model.
func (m BrowserModel) View() string {
	var b strings.Builder

	b.WriteString("\n  ")
	b.WriteString(lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86")).Render("Workflows"))
	b.WriteString("\n\n  Filter: ")
	b.WriteString(m.FilterInput.View())
	b.WriteString("\n\n")

	left := m.renderList(m.width/2 - 2)
	right := m.renderDetails(m.width/2 - 2)
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, left, right))
	b.WriteString("\n")
	b.WriteString(m.renderFooter())
	return b.String()
}

func (m BrowserModel) renderList(width int) string {
	var b strings.Builder
	if len(m.Filtered) == 0 {
		b.WriteString(m.dimStyle.Render("  (no workflows)"))
	}

	visible := max(1, m.height-10)
	start := max(0, m.cursor-visible+1)
	end := min(len(m.Filtered), start+visible)
	for i := start; i < end; i++ {
		wf := m.Items[m.Filtered[i]]
		marker := "  "
		if wf.IsFavorite() {
			marker = "★ "
		}
		name := wf.String()
		if wf.IsUnsaved() {
			name += " *"
		}
		style := m.normalStyle
		prefix := "  "
		if i == m.cursor {
			style = m.selectedStyle
			prefix = "> "
		}
		b.WriteString(prefix + marker + style.Render(name) + "\n")
	}

	return lipgloss.NewStyle().
		Width(max(20, width)).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")).
		Render(b.String())
}

func (m BrowserModel) renderDetails(width int) string {
	wf := m.Selected()
	if wf == nil {
		return ""
	}
	yesNo := func(v bool) string {
		if v {
			return "yes"
		}
		return "no"
	}

	var b strings.Builder
	b.WriteString("  " + m.selectedStyle.Render(wf.Name()) + "\n\n")
	fmt.Fprintf(&b, "  Path:     %s\n", wf.Path())
	fmt.Fprintf(&b, "  Folder:   %s\n", strings.Join(folder(wf.PathParts()), "/"))
	fmt.Fprintf(&b, "  Favorite: %s\n", yesNo(wf.IsFavorite()))
	fmt.Fprintf(&b, "  Open:     %s\n", yesNo(wf.IsOpen()))
	fmt.Fprintf(&b, "  Unsaved:  %s\n", yesNo(wf.IsUnsaved()))

	return lipgloss.NewStyle().
		Width(max(20, width)).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")).
		Render(b.String())
}

func folder(parts []string) []string {
	if len(parts) <= 1 {
		return nil
	}
	return parts[:len(parts)-1]
}

func (m BrowserModel) renderFooter() string {
	var line string
	switch {
	case m.confirmDelete:
		if wf := m.Selected(); wf != nil {
			line = m.errorStyle.Render(fmt.Sprintf("Delete %s? [y/N]", wf.Name()))
		}
	case m.Err != nil:
		line = m.errorStyle.Render(m.Err.Error())
	case m.Status != "":
		line = m.normalStyle.Render(m.Status)
	}

	help := "[Enter] Open • [f] Favorite • [d] Delete • [r] Refresh • [/] Filter • [q] Quit"
	if m.Focused == "filter" {
		help = "[Enter] Focus list • [Esc] Done"
	}
	return "  " + line + "\n  " + m.dimStyle.Render(help) + "\n"
}
