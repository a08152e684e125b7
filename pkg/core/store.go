package core

// Store defines the persistence interface for the lineage engine.
type Store interface {
	Open(path string) error
	Close() error
	Migrate() error

	// Scan operations
	CreateScan(scan *LineageScan) error
	GetScan(id string) (*LineageScan, error)
	UpdateScanStatus(id string, status ScanStatus, errMsg string) error
	UpdateScanProgress(scan *LineageScan) error
	ListScans(limit int) ([]*LineageScan, error)

	// Graph operations
	SaveNode(node *LineageNode) error
	SaveEdge(edge *LineageEdge) error
	GetNode(nodeID string) (*LineageNode, error)
	ListNodes() ([]*LineageNode, error)
	ListEdges() ([]*LineageEdge, error)
	ResetGraph() error

	// Risk score operations
	SaveRiskScore(score *ColumnRiskScore) error
	GetRiskScore(nodeID string) (*ColumnRiskScore, error)

	// Dynamic SQL review queue
	UpsertDynamicSQL(proc *DynamicSQLProcedure) error
	GetDynamicSQL(schema, procedure string) (*DynamicSQLProcedure, error)
	ListDynamicSQL(unreviewedOnly bool) ([]*DynamicSQLProcedure, error)
	MarkDynamicSQLReviewed(schema, procedure, reviewer, notes string, knownTargets []string) error
}
