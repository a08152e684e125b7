// Package extract turns parsed statement streams into column lineage facts.
//
// Statement parsing itself happens in an external collaborator; this package
// defines the boundary types that collaborator hands over and derives
// ColumnFact values from them, tagging PII at creation time.
package extract

import (
	"context"

	"github.com/leapstack-labs/datalens/pkg/core"
)

// ParsedStatement is one already-identified read/write/merge operation with
// its resolved column references, as produced by the external SQL parser.
type ParsedStatement struct {
	Operation           core.OperationType `json:"operation"`
	Source              core.ColumnRef     `json:"source,omitempty"`
	Target              core.ColumnRef     `json:"target,omitempty"`
	TransformExpression string             `json:"transformExpression,omitempty"`
	LineNumber          int                `json:"lineNumber,omitempty"`
}

// ParsedObject is the per-object output of the external parser: the statement
// stream for statically analyzable objects, or the dynamic-SQL flag with the
// matched pattern for objects that are not.
type ParsedObject struct {
	Schema     string             `json:"schema"`
	Name       string             `json:"name"`
	ObjectType core.NodeType      `json:"objectType"`
	Statements []ParsedStatement  `json:"statements,omitempty"`

	HasDynamicSQL  bool   `json:"hasDynamicSql,omitempty"`
	DynamicPattern string `json:"dynamicPattern,omitempty"`
	PatternLine    int    `json:"patternLine,omitempty"`

	// Body is the raw source text, kept for the dynamic-SQL flagger.
	Body string `json:"body,omitempty"`
}

// Parser is the external SQL-parsing collaborator. Implementations must be
// safe for concurrent use; the scan orchestrator calls Parse from its worker
// pool.
type Parser interface {
	Parse(ctx context.Context, schema, name, definition string) (*ParsedObject, error)
}
