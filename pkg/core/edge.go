package core

// EdgeType identifies the relationship kind carried by a lineage edge.
type EdgeType string

// Edge type constants.
const (
	EdgeTypeUses       EdgeType = "uses"
	EdgeTypeProduces   EdgeType = "produces"
	EdgeTypeTransforms EdgeType = "transforms"
	EdgeTypeReads      EdgeType = "reads"
	EdgeTypeWrites     EdgeType = "writes"
	EdgeTypePIIFlow    EdgeType = "pii-flow"
	EdgeTypeDependsOn  EdgeType = "depends-on"
	EdgeTypeContains   EdgeType = "contains"
	EdgeTypeReferences EdgeType = "references"
)

// Valid reports whether the edge type is a known value.
func (t EdgeType) Valid() bool {
	switch t {
	case EdgeTypeUses, EdgeTypeProduces, EdgeTypeTransforms, EdgeTypeReads,
		EdgeTypeWrites, EdgeTypePIIFlow, EdgeTypeDependsOn, EdgeTypeContains,
		EdgeTypeReferences:
		return true
	}
	return false
}

// OperationType identifies the statement-level operation a fact was
// extracted from.
type OperationType string

// Operation type constants.
const (
	OpRead        OperationType = "read"
	OpInsert      OperationType = "insert"
	OpUpdate      OperationType = "update"
	OpDelete      OperationType = "delete"
	OpMergeInsert OperationType = "merge-insert"
	OpMergeUpdate OperationType = "merge-update"
)

// Valid reports whether the operation type is a known value.
func (o OperationType) Valid() bool {
	switch o {
	case OpRead, OpInsert, OpUpdate, OpDelete, OpMergeInsert, OpMergeUpdate:
		return true
	}
	return false
}

// operationWeights is the fixed per-operation risk weight table.
var operationWeights = map[OperationType]float64{
	OpRead:        1.0,
	OpInsert:      2.0,
	OpMergeInsert: 2.0,
	OpUpdate:      3.0,
	OpMergeUpdate: 3.0,
	OpDelete:      5.0,
}

// piiFlowWeight overrides the operation weight when a fact is PII-tagged.
const piiFlowWeight = 10.0

// OperationWeight returns the fixed risk weight for an operation type.
// Unknown operations weigh the same as reads.
func OperationWeight(op OperationType) float64 {
	if w, ok := operationWeights[op]; ok {
		return w
	}
	return operationWeights[OpRead]
}

// EdgeWeight returns the weight for an edge derived from the given operation,
// applying the PII-flow override.
func EdgeWeight(op OperationType, piiFlow bool) float64 {
	if piiFlow {
		return piiFlowWeight
	}
	return OperationWeight(op)
}

// DefaultEdgeType returns the edge type implied by an operation: reads for
// read operations, writes for everything else, pii-flow when the fact is
// PII-tagged.
func DefaultEdgeType(op OperationType, piiFlow bool) EdgeType {
	if piiFlow {
		return EdgeTypePIIFlow
	}
	if op == OpRead {
		return EdgeTypeReads
	}
	return EdgeTypeWrites
}

// LineageEdge is a directed, typed relationship between two lineage nodes.
// An edge is uniquely identified by (SourceID, TargetID, Type, OriginProcedure);
// re-extracting the same fact upserts rather than duplicates.
type LineageEdge struct {
	SourceID string
	TargetID string
	Type     EdgeType

	// Operation records the statement operation the edge was derived from,
	// when applicable.
	Operation OperationType

	// Weight is fixed at creation from the operation weight table and never
	// mutated afterwards.
	Weight float64

	// IsPIIFlow is refreshed when a source or target node is subsequently
	// marked PII.
	IsPIIFlow bool

	// OriginProcedure is the procedure/view that produced the fact, empty for
	// structural edges.
	OriginProcedure string
}

// NewLineageEdge constructs an edge for the given operation, assigning its
// weight and type from the fixed lookup table.
func NewLineageEdge(sourceID, targetID string, op OperationType, piiFlow bool, origin string) *LineageEdge {
	return &LineageEdge{
		SourceID:        sourceID,
		TargetID:        targetID,
		Type:            DefaultEdgeType(op, piiFlow),
		Operation:       op,
		Weight:          EdgeWeight(op, piiFlow),
		IsPIIFlow:       piiFlow,
		OriginProcedure: origin,
	}
}

// EdgeKey returns the string identity key for the edge.
func (e *LineageEdge) EdgeKey() string {
	return EdgeKey(e.SourceID, e.TargetID, e.Type, e.OriginProcedure)
}

// EdgeKey builds the identity key for an edge. The empty origin participates
// in the key so structural edges dedupe per (source, target, type).
func EdgeKey(sourceID, targetID string, edgeType EdgeType, origin string) string {
	return sourceID + "->" + targetID + "|" + string(edgeType) + "|" + origin
}
