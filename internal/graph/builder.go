package graph

import (
	"log/slog"
	"sort"

	"github.com/leapstack-labs/datalens/pkg/core"
)

// PIILookup answers whether a column is on the configured PII list.
// Implemented by pii.Registry.
type PIILookup interface {
	Lookup(schema, table, column string) (core.PIIType, bool)
}

// Builder applies extracted column facts to the graph with upsert semantics:
// re-applying an unchanged fact set leaves node and edge counts identical.
type Builder struct {
	graph  *Graph
	pii    PIILookup
	logger *slog.Logger
}

// NewBuilder creates a builder over the given graph. The PII lookup may be
// nil, in which case column nodes are never tagged. If logger is nil, a
// discard logger is used.
func NewBuilder(g *Graph, pii PIILookup, logger *slog.Logger) *Builder {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Builder{graph: g, pii: pii, logger: logger}
}

// ApplyStats summarizes one builder pass.
type ApplyStats struct {
	NodesCreated    int
	EdgesCreated    int
	PIIColumnsFound int
}

// Apply upserts nodes and edges for every fact, then recomputes degrees for
// all touched nodes and refreshes one-hop PII flow marks.
func (b *Builder) Apply(facts []*core.ColumnFact) ApplyStats {
	var stats ApplyStats
	touched := make(map[string]struct{})

	for _, fact := range facts {
		sourceID, targetID := b.resolveEndpoints(fact, &stats, touched)
		if sourceID == "" || targetID == "" || sourceID == targetID {
			continue
		}

		edge := core.NewLineageEdge(sourceID, targetID, fact.Operation, fact.IsPII, fact.ProcedureID())
		if b.graph.UpsertEdge(edge) {
			stats.EdgesCreated++
		}
	}

	ids := make([]string, 0, len(touched))
	for id := range touched {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	b.graph.RecomputeDegrees(ids)
	b.graph.MarkPIIFlows()

	b.logger.Debug("applied facts",
		"facts", len(facts),
		"nodes_created", stats.NodesCreated,
		"edges_created", stats.EdgesCreated,
		"pii_columns", stats.PIIColumnsFound)

	return stats
}

// resolveEndpoints upserts the nodes a fact references and returns the edge
// endpoints. A missing source or target resolves to the owning procedure
// node, so a bare read still yields a column -> procedure edge and a bare
// write a procedure -> column edge.
func (b *Builder) resolveEndpoints(fact *core.ColumnFact, stats *ApplyStats, touched map[string]struct{}) (sourceID, targetID string) {
	procNode := core.NewProcedureNode(fact.ProcedureSchema, fact.ProcedureName)
	if b.graph.UpsertNode(procNode) {
		stats.NodesCreated++
	}
	touched[procNode.NodeID()] = struct{}{}

	sourceID = b.upsertRef(fact.Source, stats, touched)
	targetID = b.upsertRef(fact.Target, stats, touched)

	if sourceID == "" {
		sourceID = procNode.NodeID()
	}
	if targetID == "" {
		targetID = procNode.NodeID()
	}
	return sourceID, targetID
}

// upsertRef resolves a column reference to a node: a column node when the
// reference names a column, a table node for bare table references. Column
// nodes on the PII list are tagged at upsert.
func (b *Builder) upsertRef(ref core.ColumnRef, stats *ApplyStats, touched map[string]struct{}) string {
	if ref.IsZero() {
		return ""
	}

	var node *core.LineageNode
	if ref.Column != "" {
		node = core.NewColumnNode(ref.Schema, ref.Table, ref.Column)
		if b.pii != nil {
			if piiType, ok := b.pii.Lookup(ref.Schema, ref.Table, ref.Column); ok {
				node.IsPII = true
				node.PIIType = piiType
			}
		}
	} else {
		node = core.NewTableNode(ref.Schema, ref.Table)
	}

	before, found := b.graph.Node(node.NodeID())
	if b.graph.UpsertNode(node) {
		stats.NodesCreated++
	}
	// Count a PII column once, when it first gets tagged.
	if node.IsPII && (!found || !before.IsPII) {
		stats.PIIColumnsFound++
	}

	touched[node.NodeID()] = struct{}{}
	return node.NodeID()
}
