package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/rodaine/table"
	"github.com/spf13/cobra"

	"github.com/chazuruo/flowdeck/internal/subflow"
)

// SubflowOptions contains the options for the subflow command.
type SubflowOptions struct {
	JSON   bool
	Values string
}

// subflowOutput is the JSON form of a configured container.
type subflowOutput struct {
	*subflow.Container
	Routes []subflowRoute `json:"routes"`
}

type subflowRoute struct {
	Direction string          `json:"direction"`
	Slot      int             `json:"slot"`
	Target    subflow.SlotRef `json:"target"`
}

// NewSubflowCommand creates the subflow command.
func NewSubflowCommand() *cobra.Command {
	opts := &SubflowOptions{}

	cmd := &cobra.Command{
		Use:   "subflow <file>",
		Short: "Show the pins and widgets a sub-graph exports",
		Long: `Build the container node for a sub-graph document and print its input
pins, output pins, widgets and the inner slot each pin forwards to.

--values takes a JSON array of widget values to restore by position.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSubflow(cmd.OutOrStdout(), args[0], opts)
		},
	}

	cmd.Flags().BoolVar(&opts.JSON, "json", false, "output in JSON format")
	cmd.Flags().StringVar(&opts.Values, "values", "", "saved widget values as a JSON array")

	return cmd
}

func runSubflow(w io.Writer, file string, opts *SubflowOptions) error {
	data, err := os.ReadFile(file)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", file, err)
	}
	doc, err := subflow.Decode(data)
	if err != nil {
		return err
	}

	var saved []any
	if opts.Values != "" {
		if err := json.Unmarshal([]byte(opts.Values), &saved); err != nil {
			return fmt.Errorf("invalid --values: %w", err)
		}
	}

	c := subflow.NewContainer(doc.Title)
	if err := subflow.Rebuild(c, doc.Nodes, saved); err != nil {
		return err
	}

	out := subflowOutput{Container: c, Routes: routesOf(c)}
	if opts.JSON {
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(out); err != nil {
			return fmt.Errorf("failed to encode JSON: %w", err)
		}
		return nil
	}

	fmt.Fprintf(w, "Container: %s (width %.1f)\n\n", c.Title, c.Width)

	pins := table.New("DIR", "SLOT", "NAME", "TYPE", "NODE", "INNER SLOT").WithWriter(w)
	for _, r := range out.Routes {
		pin := c.Inputs[r.Slot]
		if r.Direction == "output" {
			pin = c.Outputs[r.Slot]
		}
		pins.AddRow(r.Direction, r.Slot, pin.Name, pin.Type, r.Target.NodeID, r.Target.Slot)
	}
	pins.Print()

	if len(c.Widgets) > 0 {
		fmt.Fprintln(w)
		widgets := table.New("WIDGET", "KIND", "VALUE").WithWriter(w)
		for _, wd := range c.Widgets {
			widgets.AddRow(wd.Name, wd.Kind, fmt.Sprint(wd.Value))
		}
		widgets.Print()
	}
	return nil
}

func routesOf(c *subflow.Container) []subflowRoute {
	var routes []subflowRoute
	for i := range c.Inputs {
		if ref, ok := c.Route(subflow.Input, i); ok {
			routes = append(routes, subflowRoute{Direction: "input", Slot: i, Target: ref})
		}
	}
	for i := range c.Outputs {
		if ref, ok := c.Route(subflow.Output, i); ok {
			routes = append(routes, subflowRoute{Direction: "output", Slot: i, Target: ref})
		}
	}
	return routes
}
