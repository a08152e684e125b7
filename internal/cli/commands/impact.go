package commands

import (
	"strconv"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/datalens/internal/cli/output"
	"github.com/leapstack-labs/datalens/internal/query"
)

// NewDependentsCommand creates the dependents command.
func NewDependentsCommand() *cobra.Command {
	var depth int

	cmd := &cobra.Command{
		Use:   "dependents <node-id>",
		Short: "Show what depends on a node",
		Long: `Walk lineage edges in reverse from the node and list everything with a
path into it, grouped by hop depth. Node ids are the canonical
schema.object or schema.object.column strings.`,
		Example: `  datalens dependents dbo.customers.email
  datalens dependents dbo.orders --depth 5 --output json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, rt, err := openEngine(cmd)
			if err != nil {
				return err
			}
			defer eng.Close()
			return renderGroups(rt.Renderer, eng.Dependents(args[0], depth))
		},
	}

	cmd.Flags().IntVar(&depth, "depth", 0, "Max traversal depth (0 = configured default)")
	return cmd
}

// NewDependenciesCommand creates the dependencies command.
func NewDependenciesCommand() *cobra.Command {
	var depth int

	cmd := &cobra.Command{
		Use:   "dependencies <node-id>",
		Short: "Show what a node depends on",
		Long: `Walk lineage edges forward from the node and list everything it has a
path to, grouped by hop depth.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, rt, err := openEngine(cmd)
			if err != nil {
				return err
			}
			defer eng.Close()
			return renderGroups(rt.Renderer, eng.Dependencies(args[0], depth))
		},
	}

	cmd.Flags().IntVar(&depth, "depth", 0, "Max traversal depth (0 = configured default)")
	return cmd
}

func renderGroups(r *output.Renderer, groups []query.DepthGroup) error {
	if r.JSONMode() {
		if groups == nil {
			groups = []query.DepthGroup{}
		}
		return r.JSON(groups)
	}

	var rows [][]string
	for _, group := range groups {
		for _, node := range group.Nodes {
			rows = append(rows, []string{
				strconv.Itoa(node.Depth),
				node.NodeID,
				string(node.ObjectType),
				string(node.Relationship),
			})
		}
	}
	r.Table([]string{"Depth", "Node", "Type", "Relationship"}, rows)
	return nil
}
