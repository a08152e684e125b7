// Package dynamicsql classifies procedures whose source builds SQL at
// runtime. Such procedures cannot be statically analyzed; instead of
// silently omitting their effects from the lineage graph, they are graded
// and queued for manual review.
package dynamicsql

import (
	"regexp"
	"strings"
	"time"

	"github.com/leapstack-labs/datalens/pkg/core"
)

// Detection is one matched dynamic-SQL pattern in a procedure body.
type Detection struct {
	Type    core.DynamicSQLType
	Pattern string
	Line    int
	Risk    core.RiskLevel
}

// detector pairs a pattern with its base classification. Order is the
// detection priority; the first match wins.
type detector struct {
	re   *regexp.Regexp
	kind core.DynamicSQLType
	risk core.RiskLevel
}

var detectors = []detector{
	{regexp.MustCompile(`(?i)\bsp_executesql\b`), core.DynamicSQLExecParam, core.RiskHigh},
	{regexp.MustCompile(`(?i)\bexec(?:ute)?\s*\(\s*'[^']*'`), core.DynamicSQLExecString, core.RiskHigh},
	{regexp.MustCompile(`(?i)\bexec(?:ute)?\s*\(\s*@\w+`), core.DynamicSQLExecVariable, core.RiskMedium},
	{regexp.MustCompile(`(?i)\b(?:openquery|openrowset)\s*\(`), core.DynamicSQLCrossServer, core.RiskCritical},
}

// destructive matches keywords that escalate any detection to critical.
var destructive = regexp.MustCompile(`(?i)\b(?:delete|drop|truncate)\b`)

// Detect classifies a raw procedure body. The first detector to match (in
// priority order) determines type and base risk; the destructive-keyword
// override is applied last and escalates to critical regardless of type.
func Detect(body string) (Detection, bool) {
	for _, d := range detectors {
		loc := d.re.FindStringIndex(body)
		if loc == nil {
			continue
		}

		det := Detection{
			Type:    d.kind,
			Pattern: body[loc[0]:loc[1]],
			Line:    1 + strings.Count(body[:loc[0]], "\n"),
			Risk:    d.risk,
		}
		if destructive.MatchString(det.Pattern) {
			det.Risk = core.RiskCritical
		}
		return det, true
	}
	return Detection{}, false
}

// Flag classifies a procedure body and builds the review-queue record.
// Returns nil when no dynamic-SQL pattern is present.
func Flag(schema, procedure, body string) *core.DynamicSQLProcedure {
	det, ok := Detect(body)
	if !ok {
		return nil
	}
	now := time.Now().UTC()
	return &core.DynamicSQLProcedure{
		Schema:          schema,
		ProcedureName:   procedure,
		Type:            det.Type,
		DetectedPattern: det.Pattern,
		LineNumber:      det.Line,
		Risk:            det.Risk,
		FirstDetectedAt: now,
		LastDetectedAt:  now,
	}
}
