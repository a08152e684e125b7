package core

import "time"

// DynamicSQLType classifies how a procedure builds SQL at runtime.
type DynamicSQLType string

// Dynamic SQL type constants.
const (
	// DynamicSQLExecParam is sp_executesql-style parameterized execution.
	DynamicSQLExecParam DynamicSQLType = "exec-parameterized"
	// DynamicSQLExecString is literal string execution, EXEC('...').
	DynamicSQLExecString DynamicSQLType = "exec-string"
	// DynamicSQLExecVariable is variable execution, EXEC(@var).
	DynamicSQLExecVariable DynamicSQLType = "exec-variable"
	// DynamicSQLCrossServer is OPENQUERY/OPENROWSET cross-server execution.
	DynamicSQLCrossServer DynamicSQLType = "cross-server"
)

// RiskLevel grades a flagged dynamic-SQL procedure for manual review.
type RiskLevel string

// Risk level constants.
const (
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

// DynamicSQLProcedure records a procedure whose effects cannot be statically
// analyzed. It is queued for manual review instead of being silently omitted
// from the graph.
type DynamicSQLProcedure struct {
	Schema        string
	ProcedureName string

	Type            DynamicSQLType
	DetectedPattern string
	LineNumber      int

	Risk RiskLevel

	// ManuallyReviewed flips permanently true once a human records findings;
	// it is never auto-reverted by a later scan.
	ManuallyReviewed bool
	ReviewedBy       string
	ReviewNotes      string
	// KnownTargets lists tables a reviewer identified as affected.
	KnownTargets []string

	FirstDetectedAt time.Time
	LastDetectedAt  time.Time
}

// ProcedureID returns the node identifier of the flagged procedure.
func (d *DynamicSQLProcedure) ProcedureID() string {
	return d.Schema + "." + d.ProcedureName
}

// MarkReviewed records a human review. The reviewed flag is permanent.
func (d *DynamicSQLProcedure) MarkReviewed(reviewer, notes string, knownTargets []string) {
	d.ManuallyReviewed = true
	d.ReviewedBy = reviewer
	d.ReviewNotes = notes
	d.KnownTargets = knownTargets
}

// Refresh updates detection details from a later scan without touching the
// review fields.
func (d *DynamicSQLProcedure) Refresh(pattern string, line int) {
	d.DetectedPattern = pattern
	d.LineNumber = line
	d.LastDetectedAt = time.Now().UTC()
}
