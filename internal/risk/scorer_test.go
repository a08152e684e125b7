package risk

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/datalens/internal/graph"
	"github.com/leapstack-labs/datalens/pkg/core"
)

// buildGraph wires a small lineage neighborhood around dbo.orders.total:
// one reader, one writer, one deleter, plus a second column feeding the
// writer so the transitive walk has a second hop.
func buildGraph(t *testing.T) *graph.Graph {
	t.Helper()
	g := graph.New()

	total := core.NewColumnNode("dbo", "orders", "total")
	qty := core.NewColumnNode("dbo", "orders", "qty")
	reader := core.NewProcedureNode("etl", "usp_report")
	writer := core.NewProcedureNode("etl", "usp_load")
	deleter := core.NewProcedureNode("etl", "usp_purge")

	for _, n := range []*core.LineageNode{total, qty, reader, writer, deleter} {
		require.True(t, g.UpsertNode(n))
	}

	edges := []*core.LineageEdge{
		core.NewLineageEdge(total.NodeID(), reader.NodeID(), core.OpRead, false, reader.NodeID()),
		core.NewLineageEdge(writer.NodeID(), total.NodeID(), core.OpInsert, false, writer.NodeID()),
		core.NewLineageEdge(deleter.NodeID(), total.NodeID(), core.OpDelete, false, deleter.NodeID()),
		core.NewLineageEdge(qty.NodeID(), writer.NodeID(), core.OpRead, false, writer.NodeID()),
	}
	for _, e := range edges {
		require.True(t, g.UpsertEdge(e))
	}
	return g
}

func TestScoreColumn(t *testing.T) {
	g := buildGraph(t)
	scorer := NewScorer(g, 0, nil)

	score, err := scorer.ScoreColumn("dbo.orders.total")
	require.NoError(t, err)

	assert.Equal(t, 1, score.ReadOps)
	assert.Equal(t, 1, score.WriteOps)
	assert.Equal(t, 1, score.DeleteOps)
	assert.Equal(t, 0, score.PIIExposureCount)
	assert.Equal(t, 3, score.AffectedProcedures)
	assert.Equal(t, 0, score.AffectedViews)

	// Only the writer and the deleter have an edge into the column.
	assert.Equal(t, 2, score.DirectDependentCount)
	// Second hop reaches dbo.orders.qty through the writer.
	assert.Equal(t, 3, score.TransitiveDependentCount)

	// 1*1 + 1*3 + 1*5 + 0*10 + 2*2
	assert.Equal(t, 13.0, score.RiskScore)
	assert.Equal(t, core.ImpactLow, score.Impact)
	assert.False(t, score.LastCalculatedAt.IsZero())
}

func TestScoreColumn_NotFound(t *testing.T) {
	scorer := NewScorer(graph.New(), 0, nil)
	_, err := scorer.ScoreColumn("dbo.missing.col")
	assert.ErrorIs(t, err, core.ErrNodeNotFound)
}

func TestScoreColumn_PIIExposure(t *testing.T) {
	g := graph.New()
	ssn := core.NewColumnNode("dbo", "customers", "ssn")
	ssn.IsPII = true
	ssn.PIIType = core.PIITypeSSN
	proc := core.NewProcedureNode("etl", "usp_export")
	require.True(t, g.UpsertNode(ssn))
	require.True(t, g.UpsertNode(proc))
	require.True(t, g.UpsertEdge(core.NewLineageEdge(ssn.NodeID(), proc.NodeID(), core.OpRead, true, proc.NodeID())))

	score, err := NewScorer(g, 0, nil).ScoreColumn(ssn.NodeID())
	require.NoError(t, err)
	assert.Equal(t, 1, score.PIIExposureCount)
	// read weight 1 plus exposure weight 10
	assert.Equal(t, 11.0, score.RiskScore)
}

func TestTransitiveDepthBound(t *testing.T) {
	g := buildGraph(t)

	score, err := NewScorer(g, 1, nil).ScoreColumn("dbo.orders.total")
	require.NoError(t, err)
	assert.Equal(t, 2, score.TransitiveDependentCount, "depth 1 must stop before the second hop")
}

func TestScoreAll(t *testing.T) {
	g := buildGraph(t)
	scores := NewScorer(g, 0, nil).ScoreAll()

	require.Len(t, scores, 2, "only column nodes are scored")
	assert.Equal(t, "dbo.orders.total", scores[0].NodeID, "highest score first")
	assert.Equal(t, "dbo.orders.qty", scores[1].NodeID)
	assert.Greater(t, scores[0].RiskScore, scores[1].RiskScore)

	node, ok := g.Node("dbo.orders.total")
	require.True(t, ok)
	assert.Equal(t, scores[0].RiskScore, node.RiskScore)
}
