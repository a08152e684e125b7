package commands

import (
	"fmt"
	"os/user"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/datalens/internal/cli/output"
	"github.com/leapstack-labs/datalens/pkg/core"
)

// ScanOptions holds options for the scan command.
type ScanOptions struct {
	Type      string
	Schema    string
	Object    string
	StartedBy string
	Wait      bool
}

// NewScanCommand creates the scan command.
func NewScanCommand() *cobra.Command {
	opts := &ScanOptions{}

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Start a lineage scan",
		Long: `Enumerate the configured catalog, extract column-level lineage facts
from every procedure and view, and rebuild risk scores.

The scan runs asynchronously; use --wait to block until it finishes, or
check on it later with "datalens status <scan-id>".`,
		Example: `  # Full scan of every schema
  datalens scan --wait

  # Incremental scan of one schema
  datalens scan --type incremental --schema etl

  # Single object
  datalens scan --type single-object --schema etl --object usp_load_orders`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runScan(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Type, "type", string(core.ScanTypeFull), "Scan type (full|incremental|single-object)")
	cmd.Flags().StringVar(&opts.Schema, "schema", "", "Restrict the scan to one schema")
	cmd.Flags().StringVar(&opts.Object, "object", "", "Restrict the scan to one object")
	cmd.Flags().StringVar(&opts.StartedBy, "started-by", "", "Who started the scan (defaults to the OS user)")
	cmd.Flags().BoolVar(&opts.Wait, "wait", false, "Block until the scan finishes")

	return cmd
}

func runScan(cmd *cobra.Command, opts *ScanOptions) error {
	eng, rt, err := openEngine(cmd)
	if err != nil {
		return err
	}
	defer eng.Close()

	startedBy := opts.StartedBy
	if startedBy == "" {
		if u, err := user.Current(); err == nil {
			startedBy = u.Username
		}
	}

	scanID, err := eng.StartScan(cmd.Context(), core.ScanType(opts.Type), opts.Schema, opts.Object, startedBy)
	if err != nil {
		return err
	}

	if !opts.Wait {
		if rt.Renderer.JSONMode() {
			return rt.Renderer.JSON(map[string]string{"scanId": scanID})
		}
		rt.Renderer.Printf("Scan %s started\n", scanID)
		return nil
	}

	eng.WaitForScan(scanID)
	status, err := eng.ScanStatus(scanID)
	if err != nil {
		return err
	}
	renderScan(rt.Renderer, status)
	if status.Status == core.ScanFailed {
		return fmt.Errorf("scan failed: %s", status.ErrorMessage)
	}
	return nil
}

// scanView is the JSON shape of a scan record.
type scanView struct {
	ID               string   `json:"id"`
	Type             string   `json:"type"`
	Status           string   `json:"status"`
	SchemaFilter     string   `json:"schemaFilter,omitempty"`
	ObjectFilter     string   `json:"objectFilter,omitempty"`
	Progress         float64  `json:"progressPercent"`
	TotalObjects     int      `json:"totalObjects"`
	ProcessedObjects int      `json:"processedObjects"`
	NodesCreated     int      `json:"nodesCreated"`
	EdgesCreated     int      `json:"edgesCreated"`
	PIIColumnsFound  int      `json:"piiColumnsFound"`
	DynamicSQLCount  int      `json:"dynamicSqlCount"`
	ErrorCount       int      `json:"errorCount"`
	StartedAt        string   `json:"startedAt"`
	CompletedAt      string   `json:"completedAt,omitempty"`
	Duration         string   `json:"duration"`
	StartedBy        string   `json:"startedBy,omitempty"`
	ErrorMessage     string   `json:"errorMessage,omitempty"`
}

func viewOf(scan *core.LineageScan) scanView {
	v := scanView{
		ID:               scan.ID,
		Type:             string(scan.Type),
		Status:           string(scan.Status),
		SchemaFilter:     scan.SchemaFilter,
		ObjectFilter:     scan.ObjectFilter,
		Progress:         scan.Progress(),
		TotalObjects:     scan.TotalObjects,
		ProcessedObjects: scan.ProcessedObjects,
		NodesCreated:     scan.NodesCreated,
		EdgesCreated:     scan.EdgesCreated,
		PIIColumnsFound:  scan.PIIColumnsFound,
		DynamicSQLCount:  scan.DynamicSQLCount,
		ErrorCount:       scan.ErrorCount,
		StartedAt:        scan.StartedAt.Format(time.RFC3339),
		Duration:         scan.Duration().Round(time.Millisecond).String(),
		StartedBy:        scan.StartedBy,
		ErrorMessage:     scan.ErrorMessage,
	}
	if scan.CompletedAt != nil {
		v.CompletedAt = scan.CompletedAt.Format(time.RFC3339)
	}
	return v
}

func renderScan(r *output.Renderer, scan *core.LineageScan) {
	if r.JSONMode() {
		_ = r.JSON(viewOf(scan))
		return
	}

	r.Printf("Scan %s (%s)\n", scan.ID, scan.Type)
	rows := [][]string{
		{"Status", string(scan.Status)},
		{"Progress", fmt.Sprintf("%.2f%% (%d/%d)", scan.Progress(), scan.ProcessedObjects, scan.TotalObjects)},
		{"Nodes created", strconv.Itoa(scan.NodesCreated)},
		{"Edges created", strconv.Itoa(scan.EdgesCreated)},
		{"PII columns", strconv.Itoa(scan.PIIColumnsFound)},
		{"Dynamic SQL", strconv.Itoa(scan.DynamicSQLCount)},
		{"Errors", strconv.Itoa(scan.ErrorCount)},
		{"Duration", scan.Duration().Round(time.Millisecond).String()},
	}
	if scan.ErrorMessage != "" {
		rows = append(rows, []string{"Error", scan.ErrorMessage})
	}
	r.Table([]string{"Field", "Value"}, rows)
}
