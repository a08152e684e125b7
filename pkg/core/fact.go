package core

// ColumnRef identifies a schema-qualified column (or bare table) reference
// inside a parsed statement. Column is empty for table-level references.
type ColumnRef struct {
	Schema string
	Table  string
	Column string
}

// IsZero reports whether the reference is unset.
func (r ColumnRef) IsZero() bool {
	return r.Schema == "" && r.Table == "" && r.Column == ""
}

// NodeID derives the lineage node identifier for the reference.
func (r ColumnRef) NodeID() string {
	if r.Column != "" {
		return r.Schema + "." + r.Table + "." + r.Column
	}
	return r.Schema + "." + r.Table
}

// ColumnFact is one statement-level read/insert/update/delete/merge effect
// between a source and/or target column, discovered during fact extraction.
// Facts are immutable once discovered.
type ColumnFact struct {
	// ProcedureSchema and ProcedureName identify the object the fact was
	// extracted from.
	ProcedureSchema string
	ProcedureName   string

	// Source is set for reads and for the read side of writes/merges.
	Source ColumnRef
	// Target is set for writes.
	Target ColumnRef

	Operation OperationType

	// TransformExpression is the raw expression text when the value is
	// derived rather than copied.
	TransformExpression string

	// StatementIndex is the ordinal position of the statement within the
	// object's body.
	StatementIndex int
	// LineNumber is the raw source line, zero when unknown.
	LineNumber int

	// IsPII and PIIType are stamped at creation from the PII registry.
	IsPII   bool
	PIIType PIIType

	// RiskWeight is assigned at creation per operation type.
	RiskWeight float64
}

// NewColumnFact constructs a fact and stamps its risk weight from the
// operation weight table.
func NewColumnFact(procSchema, procName string, source, target ColumnRef, op OperationType, stmtIndex int) *ColumnFact {
	return &ColumnFact{
		ProcedureSchema: procSchema,
		ProcedureName:   procName,
		Source:          source,
		Target:          target,
		Operation:       op,
		StatementIndex:  stmtIndex,
		RiskWeight:      OperationWeight(op),
	}
}

// ProcedureID returns the node identifier of the originating object.
func (f *ColumnFact) ProcedureID() string {
	return f.ProcedureSchema + "." + f.ProcedureName
}

// TagPII marks the fact as carrying PII. Called at creation time only; the
// weight override is applied when the graph builder derives the edge.
func (f *ColumnFact) TagPII(piiType PIIType) {
	f.IsPII = true
	f.PIIType = piiType
	f.RiskWeight = EdgeWeight(f.Operation, true)
}
