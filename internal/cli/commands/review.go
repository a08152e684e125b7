package commands

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/datalens/pkg/core"
)

// ReviewOptions holds options for marking a procedure reviewed.
type ReviewOptions struct {
	All      bool
	Reviewer string
	Notes    string
	Targets  []string
}

// NewReviewCommand creates the review command.
func NewReviewCommand() *cobra.Command {
	opts := &ReviewOptions{}

	cmd := &cobra.Command{
		Use:   "review [schema.procedure]",
		Short: "Manage the dynamic-SQL review queue",
		Long: `Procedures that build SQL at runtime cannot be statically analyzed, so
scans queue them for manual review instead of guessing their effects.

Without arguments, list the queue. With a schema.procedure argument and
--reviewer, record the review findings; the reviewed mark is permanent
and survives later scans.`,
		Example: `  # List unreviewed procedures
  datalens review

  # Include already-reviewed ones
  datalens review --all

  # Record findings
  datalens review etl.usp_rebuild --reviewer dba --notes "rebuilds stage only" --targets stage.orders`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				return runMarkReviewed(cmd, args[0], opts)
			}
			return runListQueue(cmd, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.All, "all", false, "Include reviewed procedures")
	cmd.Flags().StringVar(&opts.Reviewer, "reviewer", "", "Who performed the review")
	cmd.Flags().StringVar(&opts.Notes, "notes", "", "Review findings")
	cmd.Flags().StringSliceVar(&opts.Targets, "targets", nil, "Tables the procedure is known to affect")

	return cmd
}

func runListQueue(cmd *cobra.Command, opts *ReviewOptions) error {
	eng, rt, err := openEngine(cmd)
	if err != nil {
		return err
	}
	defer eng.Close()

	procs, err := eng.ReviewQueue(!opts.All)
	if err != nil {
		return err
	}

	if rt.Renderer.JSONMode() {
		views := make([]reviewView, 0, len(procs))
		for _, proc := range procs {
			views = append(views, reviewViewOf(proc))
		}
		return rt.Renderer.JSON(views)
	}

	rows := make([][]string, 0, len(procs))
	for _, proc := range procs {
		reviewed := "no"
		if proc.ManuallyReviewed {
			reviewed = "yes (" + proc.ReviewedBy + ")"
		}
		rows = append(rows, []string{
			proc.ProcedureID(),
			string(proc.Type),
			string(proc.Risk),
			proc.DetectedPattern,
			strconv.Itoa(proc.LineNumber),
			reviewed,
		})
	}
	rt.Renderer.Table([]string{"Procedure", "Type", "Risk", "Pattern", "Line", "Reviewed"}, rows)
	return nil
}

func runMarkReviewed(cmd *cobra.Command, id string, opts *ReviewOptions) error {
	schema, procedure, ok := strings.Cut(id, ".")
	if !ok || schema == "" || procedure == "" {
		return fmt.Errorf("invalid procedure id %q (want schema.procedure)", id)
	}
	if opts.Reviewer == "" {
		return fmt.Errorf("--reviewer is required when recording a review")
	}

	eng, rt, err := openEngine(cmd)
	if err != nil {
		return err
	}
	defer eng.Close()

	if err := eng.ReviewDynamicSQL(schema, procedure, opts.Reviewer, opts.Notes, opts.Targets); err != nil {
		return err
	}
	if rt.Renderer.JSONMode() {
		return rt.Renderer.JSON(map[string]string{"procedure": id, "reviewedBy": opts.Reviewer})
	}
	rt.Renderer.Printf("Recorded review of %s by %s\n", id, opts.Reviewer)
	return nil
}

type reviewView struct {
	Schema          string   `json:"schema"`
	Procedure       string   `json:"procedure"`
	Type            string   `json:"type"`
	Risk            string   `json:"riskLevel"`
	DetectedPattern string   `json:"detectedPattern"`
	LineNumber      int      `json:"lineNumber"`
	Reviewed        bool     `json:"manuallyReviewed"`
	ReviewedBy      string   `json:"reviewedBy,omitempty"`
	ReviewNotes     string   `json:"reviewNotes,omitempty"`
	KnownTargets    []string `json:"knownTargets,omitempty"`
	FirstDetectedAt string   `json:"firstDetectedAt"`
	LastDetectedAt  string   `json:"lastDetectedAt"`
}

func reviewViewOf(proc *core.DynamicSQLProcedure) reviewView {
	return reviewView{
		Schema:          proc.Schema,
		Procedure:       proc.ProcedureName,
		Type:            string(proc.Type),
		Risk:            string(proc.Risk),
		DetectedPattern: proc.DetectedPattern,
		LineNumber:      proc.LineNumber,
		Reviewed:        proc.ManuallyReviewed,
		ReviewedBy:      proc.ReviewedBy,
		ReviewNotes:     proc.ReviewNotes,
		KnownTargets:    proc.KnownTargets,
		FirstDetectedAt: proc.FirstDetectedAt.Format(time.RFC3339),
		LastDetectedAt:  proc.LastDetectedAt.Format(time.RFC3339),
	}
}
