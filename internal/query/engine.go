// Package query answers impact questions against the lineage graph: what
// depends on a node, what a node depends on, and where PII flows from it.
// All queries are read-only functions of the current graph snapshot and can
// run at any time, including while a scan is extending the graph.
package query

import (
	"log/slog"
	"sort"

	"github.com/leapstack-labs/datalens/internal/graph"
	"github.com/leapstack-labs/datalens/pkg/core"
)

const (
	// DefaultTraversalDepth is used when a caller passes a non-positive
	// maxDepth.
	DefaultTraversalDepth = 3
	// DefaultMaxPathLength bounds PII flow path enumeration, counted in
	// nodes.
	DefaultMaxPathLength = 10
)

// RelatedNode is one node discovered by a traversal, tagged with the hop
// depth and the relationship of the edge it was discovered through.
type RelatedNode struct {
	NodeID       string        `json:"nodeId"`
	DisplayName  string        `json:"displayName"`
	Schema       string        `json:"schema"`
	ObjectType   core.NodeType `json:"objectType"`
	Depth        int           `json:"depth"`
	Relationship core.EdgeType `json:"relationshipType"`
}

// DepthGroup collects the nodes discovered at one hop depth.
type DepthGroup struct {
	Depth int           `json:"depth"`
	Nodes []RelatedNode `json:"nodes"`
}

// PIIFlowPath is one simple path of PII-carrying edges starting at the
// queried node.
type PIIFlowPath struct {
	PIIType core.PIIType `json:"piiType"`
	Nodes   []string     `json:"pathNodes"`
}

// Engine runs read-side traversals over a lineage graph.
type Engine struct {
	graph      *graph.Graph
	maxPathLen int
	logger     *slog.Logger
}

// NewEngine creates a query engine. A non-positive maxPathLen falls back to
// DefaultMaxPathLength.
func NewEngine(g *graph.Graph, maxPathLen int, logger *slog.Logger) *Engine {
	if maxPathLen <= 0 {
		maxPathLen = DefaultMaxPathLength
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Engine{graph: g, maxPathLen: maxPathLen, logger: logger}
}

// Dependents walks edges in reverse from the node: everything with a path
// into it, up to maxDepth hops. An unknown node yields an empty result.
func (e *Engine) Dependents(nodeID string, maxDepth int) []DepthGroup {
	return e.traverse(nodeID, maxDepth, e.inbound)
}

// Dependencies is the mirror walk along forward edges.
func (e *Engine) Dependencies(nodeID string, maxDepth int) []DepthGroup {
	return e.traverse(nodeID, maxDepth, e.outbound)
}

// step is one candidate hop: the neighbor reached and the edge type used.
type step struct {
	neighborID string
	rel        core.EdgeType
}

func (e *Engine) inbound(id string) []step {
	edges := e.graph.InEdges(id)
	steps := make([]step, 0, len(edges))
	for i := range edges {
		steps = append(steps, step{neighborID: edges[i].SourceID, rel: edges[i].Type})
	}
	return steps
}

func (e *Engine) outbound(id string) []step {
	edges := e.graph.OutEdges(id)
	steps := make([]step, 0, len(edges))
	for i := range edges {
		steps = append(steps, step{neighborID: edges[i].TargetID, rel: edges[i].Type})
	}
	return steps
}

func (e *Engine) traverse(nodeID string, maxDepth int, next func(string) []step) []DepthGroup {
	if maxDepth <= 0 {
		maxDepth = DefaultTraversalDepth
	}
	if !e.graph.HasNode(nodeID) {
		return nil
	}

	visited := map[string]struct{}{nodeID: {}}
	frontier := []string{nodeID}
	var groups []DepthGroup

	for depth := 1; depth <= maxDepth && len(frontier) > 0; depth++ {
		var discovered []RelatedNode
		var nextFrontier []string
		for _, current := range frontier {
			for _, s := range next(current) {
				if _, seen := visited[s.neighborID]; seen {
					continue
				}
				visited[s.neighborID] = struct{}{}
				node, ok := e.graph.Node(s.neighborID)
				if !ok {
					continue
				}
				discovered = append(discovered, RelatedNode{
					NodeID:       s.neighborID,
					DisplayName:  node.DisplayName(),
					Schema:       node.Schema,
					ObjectType:   node.Type,
					Depth:        depth,
					Relationship: s.rel,
				})
				nextFrontier = append(nextFrontier, s.neighborID)
			}
		}
		if len(discovered) > 0 {
			sort.Slice(discovered, func(i, j int) bool { return discovered[i].NodeID < discovered[j].NodeID })
			groups = append(groups, DepthGroup{Depth: depth, Nodes: discovered})
		}
		frontier = nextFrontier
	}
	return groups
}

// PIIFlowPaths enumerates simple paths starting at the node that consist
// exclusively of PII-carrying edges, each bounded by the configured length.
// Paths are maximal: a path is reported when it cannot be extended further.
func (e *Engine) PIIFlowPaths(nodeID string) []PIIFlowPath {
	if !e.graph.HasNode(nodeID) {
		return nil
	}

	var paths []PIIFlowPath
	onPath := map[string]struct{}{nodeID: {}}
	e.walkPIIPath([]string{nodeID}, onPath, &paths)

	sort.Slice(paths, func(i, j int) bool {
		a, b := paths[i].Nodes, paths[j].Nodes
		for k := 0; k < len(a) && k < len(b); k++ {
			if a[k] != b[k] {
				return a[k] < b[k]
			}
		}
		return len(a) < len(b)
	})
	return paths
}

func (e *Engine) walkPIIPath(path []string, onPath map[string]struct{}, paths *[]PIIFlowPath) {
	current := path[len(path)-1]
	extended := false

	if len(path) < e.maxPathLen {
		edges := e.graph.OutEdges(current)
		sort.Slice(edges, func(i, j int) bool { return edges[i].TargetID < edges[j].TargetID })
		for i := range edges {
			if !edges[i].IsPIIFlow {
				continue
			}
			target := edges[i].TargetID
			if _, seen := onPath[target]; seen {
				continue
			}
			extended = true
			onPath[target] = struct{}{}
			e.walkPIIPath(append(path, target), onPath, paths)
			delete(onPath, target)
		}
	}

	if !extended && len(path) > 1 {
		nodes := make([]string, len(path))
		copy(nodes, path)
		*paths = append(*paths, PIIFlowPath{PIIType: e.pathPIIType(nodes), Nodes: nodes})
	}
}

// pathPIIType returns the PII type carried by the path: the type of the
// first PII-tagged node along it.
func (e *Engine) pathPIIType(nodes []string) core.PIIType {
	for _, id := range nodes {
		if node, ok := e.graph.Node(id); ok && node.IsPII {
			return node.PIIType
		}
	}
	return core.PIITypeOther
}
