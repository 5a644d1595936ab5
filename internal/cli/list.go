package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path"
	"slices"
	"time"

	"github.com/rodaine/table"
	"github.com/spf13/cobra"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"

	"github.com/chazuruo/flowdeck/internal/app"
	"github.com/chazuruo/flowdeck/internal/docstore"
	"github.com/chazuruo/flowdeck/internal/log"
)

// OutputFormat defines the output format for the list command.
type OutputFormat string

const (
	FormatTable OutputFormat = "table"
	FormatJSON  OutputFormat = "json"
	FormatYAML  OutputFormat = "yaml"
	FormatPlain OutputFormat = "plain"
)

// ListOptions contains the options for the list command.
type ListOptions struct {
	ConfigPath string
	Favorites  bool
	Format     string
}

// ListItem is one row of the list output.
type ListItem struct {
	Name     string    `json:"name" yaml:"name"`
	Path     string    `json:"path" yaml:"path"`
	Favorite bool      `json:"favorite" yaml:"favorite"`
	Open     bool      `json:"open" yaml:"open"`
	Size     int64     `json:"size" yaml:"size"`
	Modified time.Time `json:"modified,omitzero" yaml:"modified,omitempty"`
}

// NewListCommand creates the list command for listing workflows.
func NewListCommand() *cobra.Command {
	opts := &ListOptions{}

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List saved workflows",
		Long: `List all workflows in the store.

Workflows are sorted by path. Use --favorites to show only favorites.

Examples:
  flowdeck list                  # List all workflows in table format
  flowdeck list --favorites      # List only favorites
  flowdeck list --format json    # List workflows in JSON format`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(cmd.Context(), cmd.OutOrStdout(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.ConfigPath, "config", "", "config file path")
	cmd.Flags().BoolVar(&opts.Favorites, "favorites", false, "only show favorite workflows")
	cmd.Flags().StringVar(&opts.Format, "format", "table", "output format (table, json, yaml, plain)")

	return cmd
}

func runList(ctx context.Context, w io.Writer, opts *ListOptions) error {
	format := OutputFormat(opts.Format)
	switch format {
	case FormatTable, FormatJSON, FormatYAML, FormatPlain:
	default:
		return fmt.Errorf("invalid format %q: must be table, json, yaml, or plain", opts.Format)
	}

	a, err := openSession(ctx, sessionOptions{configPath: opts.ConfigPath})
	if err != nil {
		return err
	}
	defer a.Close(ctx)

	items, err := listItems(ctx, a, opts.Favorites)
	if err != nil {
		return err
	}

	switch format {
	case FormatJSON:
		return outputListJSON(w, items)
	case FormatYAML:
		return outputListYAML(w, items)
	case FormatPlain:
		return outputListPlain(w, items)
	default:
		return outputListTable(w, items)
	}
}

// listItems joins the catalog with store metadata and sorts the rows
// in natural, case-insensitive order.
func listItems(ctx context.Context, a *app.App, favoritesOnly bool) ([]ListItem, error) {
	wfs := a.Manager.Workflows()
	if favoritesOnly {
		wfs = a.Manager.Favorites()
	}

	dir := a.Manager.Dir()
	meta := make(map[string]docstore.Entry)
	entries, err := a.Store.List(ctx, dir, docstore.ListOptions{Recursive: true, WithMetadata: true})
	if err != nil {
		// Sizes are optional; the catalog is already loaded.
		log.Warn(log.CatCLI, "failed to read workflow metadata", "dir", dir, "error", err)
	}
	for _, e := range entries {
		meta[e.Path] = e
	}

	items := make([]ListItem, 0, len(wfs))
	for _, wf := range wfs {
		e := meta[wf.Path()]
		items = append(items, ListItem{
			Name:     wf.Name(),
			Path:     wf.Path(),
			Favorite: wf.IsFavorite(),
			Open:     wf.IsOpen(),
			Size:     e.Size,
			Modified: e.Modified,
		})
	}

	c := collate.New(language.Und, collate.IgnoreCase, collate.Numeric)
	slices.SortStableFunc(items, func(x, y ListItem) int {
		return c.CompareString(x.Path, y.Path)
	})
	return items, nil
}

func outputListJSON(w io.Writer, items []ListItem) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(items); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}

func outputListYAML(w io.Writer, items []ListItem) error {
	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	if err := encoder.Encode(items); err != nil {
		return fmt.Errorf("failed to encode YAML: %w", err)
	}
	return encoder.Close()
}

func outputListPlain(w io.Writer, items []ListItem) error {
	for _, item := range items {
		fmt.Fprintln(w, item.Path)
	}
	return nil
}

func outputListTable(w io.Writer, items []ListItem) error {
	if len(items) == 0 {
		fmt.Fprintln(w, "No workflows found.")
		return nil
	}

	tbl := table.New("NAME", "FOLDER", "FAV", "SIZE", "MODIFIED").WithWriter(w)
	for _, item := range items {
		folder := path.Dir(item.Path)
		if folder == "." {
			folder = ""
		}
		fav := ""
		if item.Favorite {
			fav = "★"
		}
		modified := ""
		if !item.Modified.IsZero() {
			modified = item.Modified.Local().Format("2006-01-02 15:04")
		}
		tbl.AddRow(item.Name, folder, fav, item.Size, modified)
	}
	tbl.Print()
	return nil
}
