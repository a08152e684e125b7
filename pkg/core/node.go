package core

import "strings"

// NodeType identifies what kind of database object a lineage node represents.
type NodeType string

// Node type constants.
const (
	NodeTypeTable     NodeType = "table"
	NodeTypeColumn    NodeType = "column"
	NodeTypeProcedure NodeType = "procedure"
	NodeTypeView      NodeType = "view"
	NodeTypeFunction  NodeType = "function"
)

// Valid reports whether the node type is a known value.
func (t NodeType) Valid() bool {
	switch t {
	case NodeTypeTable, NodeTypeColumn, NodeTypeProcedure, NodeTypeView, NodeTypeFunction:
		return true
	}
	return false
}

// PIIType classifies the kind of personally-identifiable information a column holds.
type PIIType string

// PII type constants.
const (
	PIITypeEmail     PIIType = "email"
	PIITypeSSN       PIIType = "ssn"
	PIITypePhone     PIIType = "phone"
	PIITypeName      PIIType = "name"
	PIITypeDOB       PIIType = "dob"
	PIITypeAddress   PIIType = "address"
	PIITypeFinancial PIIType = "financial"
	PIITypeOther     PIIType = "other"
)

// DataClassification is the governance label attached to a node.
type DataClassification string

// Data classification constants.
const (
	ClassificationPublic       DataClassification = "public"
	ClassificationInternal     DataClassification = "internal"
	ClassificationConfidential DataClassification = "confidential"
	ClassificationRestricted   DataClassification = "restricted"
)

// LineageNode is a vertex in the lineage graph: a table, column, procedure,
// view, or function. Identity is carried by Schema/Object/Column; the derived
// NodeID is the sole lookup key.
type LineageNode struct {
	// Database is the optional database (catalog) qualifier.
	Database string
	// Schema is the owning schema (e.g., "dbo", "public").
	Schema string
	// Object is the table/procedure/view/function name.
	Object string
	// Column is set only for column nodes.
	Column string

	Type NodeType

	// IsPII is true when the node is on the configured PII list.
	IsPII   bool
	PIIType PIIType
	// IsPIIFlow is true when a PII-tagged node reaches this node in one hop.
	IsPIIFlow bool

	Classification DataClassification

	// RiskScore is the last computed change-impact score. Recomputed, never
	// independently mutated.
	RiskScore float64

	// InDegree and OutDegree are recomputed after every graph-build pass.
	InDegree  int
	OutDegree int

	// Cluster is an optional grouping label for presentation.
	Cluster string
}

// NodeID derives the canonical identifier: "schema.object" for object nodes
// and "schema.object.column" for column nodes. Case-preserving.
func (n *LineageNode) NodeID() string {
	if n.Column != "" {
		return n.Schema + "." + n.Object + "." + n.Column
	}
	return n.Schema + "." + n.Object
}

// DisplayName returns a human-readable name for the node.
func (n *LineageNode) DisplayName() string {
	if n.Column != "" {
		return n.Object + "." + n.Column
	}
	return n.Object
}

// TableID returns the owning table's node identifier for a column node, or
// the node's own identifier otherwise. A column node's identifier is always
// a prefix-extension of this value.
func (n *LineageNode) TableID() string {
	return n.Schema + "." + n.Object
}

// NewTableNode constructs a table node.
func NewTableNode(schema, table string) *LineageNode {
	return &LineageNode{Schema: schema, Object: table, Type: NodeTypeTable}
}

// NewColumnNode constructs a column node owned by schema.table.
func NewColumnNode(schema, table, column string) *LineageNode {
	return &LineageNode{Schema: schema, Object: table, Column: column, Type: NodeTypeColumn}
}

// NewProcedureNode constructs a procedure node.
func NewProcedureNode(schema, name string) *LineageNode {
	return &LineageNode{Schema: schema, Object: name, Type: NodeTypeProcedure}
}

// NewViewNode constructs a view node.
func NewViewNode(schema, name string) *LineageNode {
	return &LineageNode{Schema: schema, Object: name, Type: NodeTypeView}
}

// NewFunctionNode constructs a function node.
func NewFunctionNode(schema, name string) *LineageNode {
	return &LineageNode{Schema: schema, Object: name, Type: NodeTypeFunction}
}

// ParseNodeID splits a node identifier into schema, object, and column parts.
// The column part is empty for two-part identifiers. Invalid identifiers
// (fewer than two parts, more than three, or any empty part) yield zero
// values and false.
func ParseNodeID(id string) (schema, object, column string, ok bool) {
	parts := strings.Split(id, ".")
	if len(parts) < 2 || len(parts) > 3 {
		return "", "", "", false
	}
	for _, part := range parts {
		if part == "" {
			return "", "", "", false
		}
	}
	if len(parts) == 2 {
		return parts[0], parts[1], "", true
	}
	return parts[0], parts[1], parts[2], true
}
