package commands

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"
)

// NewStatusCommand creates the status command.
func NewStatusCommand() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "status [scan-id]",
		Short: "Show scan status",
		Long: `With a scan id, show the full record of that scan. Without arguments,
list recent scans, newest first.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, rt, err := openEngine(cmd)
			if err != nil {
				return err
			}
			defer eng.Close()

			if len(args) == 1 {
				scan, err := eng.ScanStatus(args[0])
				if err != nil {
					return err
				}
				renderScan(rt.Renderer, scan)
				return nil
			}

			scans, err := eng.ListScans(limit)
			if err != nil {
				return err
			}
			if rt.Renderer.JSONMode() {
				views := make([]scanView, 0, len(scans))
				for _, scan := range scans {
					views = append(views, viewOf(scan))
				}
				return rt.Renderer.JSON(views)
			}

			rows := make([][]string, 0, len(scans))
			for _, scan := range scans {
				rows = append(rows, []string{
					scan.ID,
					string(scan.Type),
					string(scan.Status),
					fmt.Sprintf("%.2f%%", scan.Progress()),
					strconv.Itoa(scan.ErrorCount),
					scan.StartedAt.Format(time.RFC3339),
				})
			}
			rt.Renderer.Table([]string{"ID", "Type", "Status", "Progress", "Errors", "Started"}, rows)
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Number of scans to list")
	return cmd
}

// NewCancelCommand creates the cancel command.
func NewCancelCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <scan-id>",
		Short: "Cancel a running scan",
		Long: `Request cooperative cancellation of a running scan. The scan stops at
the next object boundary and leaves a consistent partial graph.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, rt, err := openEngine(cmd)
			if err != nil {
				return err
			}
			defer eng.Close()

			if err := eng.CancelScan(args[0]); err != nil {
				return err
			}
			if rt.Renderer.JSONMode() {
				return rt.Renderer.JSON(map[string]string{"scanId": args[0], "status": "cancelling"})
			}
			rt.Renderer.Printf("Cancellation requested for scan %s\n", args[0])
			return nil
		},
	}
}
