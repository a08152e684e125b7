// Package graph provides the in-memory lineage graph store.
// Nodes and edges are indexed by their derived string identifiers, with
// adjacency lists per direction, so reads stay safe while a scan is
// actively extending the graph.
package graph

import (
	"sort"
	"sync"

	"github.com/leapstack-labs/datalens/pkg/core"
)

// Graph is the shared lineage graph. It is mutated only by the scan
// orchestrator (through the Builder) and read concurrently by the query
// engine. Writers are serialized by a single lock; readers always observe a
// committed state and never block on an in-progress scan beyond the current
// upsert.
type Graph struct {
	mu sync.RWMutex

	nodes map[string]*core.LineageNode
	edges map[string]*core.LineageEdge

	// out and in hold edge keys per node id, one list per direction.
	out map[string][]string
	in  map[string][]string
}

// New creates an empty graph.
func New() *Graph {
	return &Graph{
		nodes: make(map[string]*core.LineageNode),
		edges: make(map[string]*core.LineageEdge),
		out:   make(map[string][]string),
		in:    make(map[string][]string),
	}
}

// Reset removes all nodes and edges. Only a full-rebuild scan may call this.
func (g *Graph) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.nodes = make(map[string]*core.LineageNode)
	g.edges = make(map[string]*core.LineageEdge)
	g.out = make(map[string][]string)
	g.in = make(map[string][]string)
}

// UpsertNode inserts the node if its id is unknown and returns whether a new
// node was created. An existing node keeps its accumulated attributes; only
// the PII tag is refreshed when the incoming node carries one.
func (g *Graph) UpsertNode(node *core.LineageNode) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.upsertNodeLocked(node)
}

func (g *Graph) upsertNodeLocked(node *core.LineageNode) bool {
	id := node.NodeID()
	existing, ok := g.nodes[id]
	if !ok {
		clone := *node
		g.nodes[id] = &clone
		return true
	}
	if node.IsPII && !existing.IsPII {
		existing.IsPII = true
		existing.PIIType = node.PIIType
	}
	return false
}

// UpsertEdge inserts the edge if its identity key is unknown and returns
// whether a new edge was created. Both endpoints must already exist; a
// re-extracted edge keeps its original weight.
func (g *Graph) UpsertEdge(edge *core.LineageEdge) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.upsertEdgeLocked(edge)
}

func (g *Graph) upsertEdgeLocked(edge *core.LineageEdge) bool {
	key := edge.EdgeKey()
	if existing, ok := g.edges[key]; ok {
		if edge.IsPIIFlow && !existing.IsPIIFlow {
			existing.IsPIIFlow = true
		}
		return false
	}
	clone := *edge
	g.edges[key] = &clone
	g.out[edge.SourceID] = append(g.out[edge.SourceID], key)
	g.in[edge.TargetID] = append(g.in[edge.TargetID], key)
	return true
}

// Node returns a copy of the node with the given id.
func (g *Graph) Node(id string) (core.LineageNode, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	node, ok := g.nodes[id]
	if !ok {
		return core.LineageNode{}, false
	}
	return *node, true
}

// HasNode reports whether the node id exists.
func (g *Graph) HasNode(id string) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	_, ok := g.nodes[id]
	return ok
}

// OutEdges returns copies of the edges leaving the node.
func (g *Graph) OutEdges(id string) []core.LineageEdge {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.collectLocked(g.out[id])
}

// InEdges returns copies of the edges entering the node.
func (g *Graph) InEdges(id string) []core.LineageEdge {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.collectLocked(g.in[id])
}

func (g *Graph) collectLocked(keys []string) []core.LineageEdge {
	if len(keys) == 0 {
		return nil
	}
	edges := make([]core.LineageEdge, 0, len(keys))
	for _, key := range keys {
		if e, ok := g.edges[key]; ok {
			edges = append(edges, *e)
		}
	}
	return edges
}

// Nodes returns copies of all nodes, sorted by id for deterministic output.
func (g *Graph) Nodes() []core.LineageNode {
	g.mu.RLock()
	defer g.mu.RUnlock()
	nodes := make([]core.LineageNode, 0, len(g.nodes))
	for _, n := range g.nodes {
		nodes = append(nodes, *n)
	}
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].NodeID() < nodes[j].NodeID() })
	return nodes
}

// Edges returns copies of all edges, sorted by key for deterministic output.
func (g *Graph) Edges() []core.LineageEdge {
	g.mu.RLock()
	defer g.mu.RUnlock()
	keys := make([]string, 0, len(g.edges))
	for key := range g.edges {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	edges := make([]core.LineageEdge, 0, len(keys))
	for _, key := range keys {
		edges = append(edges, *g.edges[key])
	}
	return edges
}

// NodeCount returns the number of nodes.
func (g *Graph) NodeCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.nodes)
}

// EdgeCount returns the number of edges.
func (g *Graph) EdgeCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.edges)
}

// RecomputeDegrees refreshes InDegree/OutDegree for the given node ids.
// Degrees are recomputed from the adjacency lists, never patched.
func (g *Graph) RecomputeDegrees(ids []string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, id := range ids {
		if node, ok := g.nodes[id]; ok {
			node.InDegree = len(g.in[id])
			node.OutDegree = len(g.out[id])
		}
	}
}

// SetRiskScore stamps a computed risk score onto the node. Missing ids are
// ignored; the score lives on the node purely for display.
func (g *Graph) SetRiskScore(id string, score float64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if node, ok := g.nodes[id]; ok {
		node.RiskScore = score
	}
}

// MarkPIIFlows marks every node reachable from a PII-tagged node via a
// reads/writes/transforms edge as part of a PII flow, refreshing the edge's
// IsPIIFlow flag. Propagation is one hop per pass; transitive exposure is
// counted by the risk scorer, not encoded as additional edges.
func (g *Graph) MarkPIIFlows() {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, edge := range g.edges {
		source, ok := g.nodes[edge.SourceID]
		if !ok || !source.IsPII {
			continue
		}
		switch edge.Type {
		case core.EdgeTypeReads, core.EdgeTypeWrites, core.EdgeTypeTransforms:
			edge.IsPIIFlow = true
			if target, ok := g.nodes[edge.TargetID]; ok {
				target.IsPIIFlow = true
			}
		}
	}
}
