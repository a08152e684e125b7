package commands

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/datalens/internal/query"
)

// NewPIIPathsCommand creates the pii-paths command.
func NewPIIPathsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "pii-paths <node-id>",
		Short: "Show where PII flows from a column",
		Long: `Enumerate the paths of PII-carrying edges starting at the column, each
as an ordered node list with the PII type carried.`,
		Example: `  datalens pii-paths dbo.customers.ssn`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, rt, err := openEngine(cmd)
			if err != nil {
				return err
			}
			defer eng.Close()

			paths := eng.PIIFlowPaths(args[0])
			if rt.Renderer.JSONMode() {
				if paths == nil {
					paths = []query.PIIFlowPath{}
				}
				return rt.Renderer.JSON(paths)
			}

			rows := make([][]string, 0, len(paths))
			for _, path := range paths {
				rows = append(rows, []string{
					string(path.PIIType),
					strings.Join(path.Nodes, " -> "),
				})
			}
			rt.Renderer.Table([]string{"PII Type", "Path"}, rows)
			return nil
		},
	}
}
