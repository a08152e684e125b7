// Package risk derives per-column change-impact scores from the lineage
// graph. Scores are recomputed in full from the current graph after every
// scan; nothing is patched incrementally.
package risk

import (
	"log/slog"
	"sort"

	"github.com/leapstack-labs/datalens/internal/graph"
	"github.com/leapstack-labs/datalens/pkg/core"
)

// DefaultTransitiveDepth bounds the reverse traversal used for the
// transitive dependent count.
const DefaultTransitiveDepth = 5

// Scorer computes column risk scores over a lineage graph.
type Scorer struct {
	graph  *graph.Graph
	depth  int
	logger *slog.Logger
}

// NewScorer creates a scorer over the given graph. A zero or negative depth
// falls back to DefaultTransitiveDepth.
func NewScorer(g *graph.Graph, depth int, logger *slog.Logger) *Scorer {
	if depth <= 0 {
		depth = DefaultTransitiveDepth
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Scorer{graph: g, depth: depth, logger: logger}
}

// ScoreColumn computes the risk score for one column node.
func (s *Scorer) ScoreColumn(nodeID string) (*core.ColumnRiskScore, error) {
	node, ok := s.graph.Node(nodeID)
	if !ok {
		return nil, core.ErrNodeNotFound
	}
	score := s.score(&node)
	return score, nil
}

// ScoreAll computes risk scores for every column node in the graph and
// stamps the numeric score back onto the nodes. Results are sorted by
// descending score, ties by node id.
func (s *Scorer) ScoreAll() []*core.ColumnRiskScore {
	nodes := s.graph.Nodes()
	scores := make([]*core.ColumnRiskScore, 0, len(nodes))
	for i := range nodes {
		if nodes[i].Type != core.NodeTypeColumn {
			continue
		}
		score := s.score(&nodes[i])
		s.graph.SetRiskScore(score.NodeID, score.RiskScore)
		scores = append(scores, score)
	}
	sort.Slice(scores, func(i, j int) bool {
		if scores[i].RiskScore != scores[j].RiskScore {
			return scores[i].RiskScore > scores[j].RiskScore
		}
		return scores[i].NodeID < scores[j].NodeID
	})
	s.logger.Debug("risk scores computed", "columns", len(scores))
	return scores
}

func (s *Scorer) score(node *core.LineageNode) *core.ColumnRiskScore {
	id := node.NodeID()
	score := &core.ColumnRiskScore{NodeID: id}

	in := s.graph.InEdges(id)
	out := s.graph.OutEdges(id)

	affected := make(map[string]core.NodeType)
	dependents := make(map[string]struct{})

	count := func(edge *core.LineageEdge, neighborID string, inbound bool) {
		switch edge.Operation {
		case core.OpRead:
			score.ReadOps++
		case core.OpInsert, core.OpUpdate, core.OpMergeInsert, core.OpMergeUpdate:
			score.WriteOps++
		case core.OpDelete:
			score.DeleteOps++
		}
		if edge.IsPIIFlow {
			score.PIIExposureCount++
		}
		if neighbor, ok := s.graph.Node(neighborID); ok {
			switch neighbor.Type {
			case core.NodeTypeProcedure, core.NodeTypeView:
				affected[neighborID] = neighbor.Type
				if inbound {
					dependents[neighborID] = struct{}{}
				}
			}
		}
	}
	for i := range in {
		count(&in[i], in[i].SourceID, true)
	}
	for i := range out {
		count(&out[i], out[i].TargetID, false)
	}

	for _, t := range affected {
		switch t {
		case core.NodeTypeProcedure:
			score.AffectedProcedures++
		case core.NodeTypeView:
			score.AffectedViews++
		}
	}
	score.DirectDependentCount = len(dependents)
	score.TransitiveDependentCount = s.transitiveDependents(id)
	score.Compute()
	return score
}

// transitiveDependents walks edges in reverse from the column, breadth first,
// up to the configured depth. The column itself is never counted.
func (s *Scorer) transitiveDependents(id string) int {
	visited := map[string]struct{}{id: {}}
	frontier := []string{id}
	count := 0
	for depth := 0; depth < s.depth && len(frontier) > 0; depth++ {
		var next []string
		for _, current := range frontier {
			for _, edge := range s.graph.InEdges(current) {
				if _, seen := visited[edge.SourceID]; seen {
					continue
				}
				visited[edge.SourceID] = struct{}{}
				count++
				next = append(next, edge.SourceID)
			}
		}
		frontier = next
	}
	return count
}
